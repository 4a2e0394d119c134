package format

import (
	"fmt"

	"github.com/scttfrdmn/bioconv-go/pkg/gfa"
	"github.com/scttfrdmn/bioconv-go/pkg/source"
	"github.com/scttfrdmn/bioconv-go/pkg/value"
)

// GFA table names, in output order.
const (
	SegmentsTable     = "segments"
	LinksTable        = "links"
	ContainmentsTable = "containments"
	PathsTable        = "paths"
)

// GFA decodes GFA 1.0 graphs into one table per line type.
type GFA struct{}

func (GFA) Name() string { return "gfa" }
func (GFA) Text() bool   { return true }

func (GFA) Tables(DecodeOptions) []Table {
	return []Table{
		{Name: SegmentsTable, Schema: Schema{"name", "sequence", "optional_fields"}},
		{Name: LinksTable, Schema: Schema{"from_orient", "to_orient", "from_segment", "to_segment", "overlaps", "optional_fields"}},
		{Name: ContainmentsTable, Schema: Schema{"container_name", "container_orient", "contained_name", "contained_orient", "pos", "overlap", "optional_fields"}},
		{Name: PathsTable, Schema: Schema{"path_name", "segment_names", "overlaps", "optional_fields"}},
	}
}

func (GFA) Open(r source.Reader, _ DecodeOptions) (Decoder, error) {
	return &gfaDecoder{gr: gfa.NewReader(r)}, nil
}

type gfaDecoder struct {
	gr *gfa.Reader
}

func (d *gfaDecoder) Header() value.Value {
	h := d.gr.Header()
	if h == nil {
		return value.String("No header.")
	}
	return value.FromRecord(value.NewRecord().
		Push("version", orSentinel(h.Version, "No version specified.")).
		Push("optional_fields", optionalFields(h.Optional)))
}

func (d *gfaDecoder) Next() (Row, error) {
	l, err := d.gr.Read()
	if err != nil {
		return Row{}, err
	}
	switch l := l.(type) {
	case gfa.Segment:
		return Row{Table: SegmentsTable, Fields: []value.Value{
			value.String(l.Name), value.String(l.Sequence), optionalFields(l.Optional),
		}}, nil
	case gfa.Link:
		return Row{Table: LinksTable, Fields: []value.Value{
			value.String(string(l.FromOrient)), value.String(string(l.ToOrient)),
			value.String(l.From), value.String(l.To),
			value.String(l.Overlap), optionalFields(l.Optional),
		}}, nil
	case gfa.Containment:
		return Row{Table: ContainmentsTable, Fields: []value.Value{
			value.String(l.Container), value.String(string(l.ContainerOrient)),
			value.String(l.Contained), value.String(string(l.ContainedOrient)),
			value.Int(l.Pos), value.String(l.Overlap), optionalFields(l.Optional),
		}}, nil
	case gfa.Path:
		return Row{Table: PathsTable, Fields: []value.Value{
			value.String(l.Name), value.String(l.SegmentNames),
			value.String(l.Overlaps), optionalFields(l.Optional),
		}}, nil
	}
	return Row{}, fmt.Errorf("unexpected GFA line %c", l.Type())
}

// optionalFields renders TAG:TYPE:VALUE strings. The result is always a
// list, empty when there are no fields.
func optionalFields(opts []gfa.OptField) value.Value {
	vals := make([]value.Value, len(opts))
	for i, o := range opts {
		vals[i] = value.String(o.String())
	}
	return value.List(vals...)
}
