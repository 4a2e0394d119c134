package format

import (
	"bytes"
	"fmt"

	"github.com/biogo/biogo/io/featio/bed"

	"github.com/scttfrdmn/bioconv-go/pkg/gff"
	"github.com/scttfrdmn/bioconv-go/pkg/source"
	"github.com/scttfrdmn/bioconv-go/pkg/value"
)

// GFFSchema is the GFF body layout.
var GFFSchema = Schema{
	"ref_seq_name",
	"source",
	"ty",
	"start",
	"end",
	"score",
	"strand",
	"phase",
	"attributes",
}

// BEDSchema is the BED body layout. Coordinates are as written in the file.
var BEDSchema = Schema{"chrom", "chromStart", "chromEnd"}

// GFF decodes GFF3 feature lines. "##" directives are captured into the
// header; a "##FASTA" directive ends the feature section.
type GFF struct{}

func (GFF) Name() string                 { return "gff" }
func (GFF) Text() bool                   { return true }
func (GFF) Tables(DecodeOptions) []Table { return single(GFFSchema) }

func (GFF) Open(r source.Reader, _ DecodeOptions) (Decoder, error) {
	return &gffDecoder{gr: gff.NewReader(r)}, nil
}

type gffDecoder struct {
	gr *gff.Reader
}

func (d *gffDecoder) Header() value.Value {
	h := d.gr.Header()
	regions := value.NewRecord()
	for _, reg := range h.Regions {
		regions.Push(reg.SeqID, value.FromRecord(value.NewRecord().
			Push("start", value.Int(reg.Start)).
			Push("end", value.Int(reg.End))))
	}
	return value.FromRecord(value.NewRecord().
		Push("version", orSentinel(h.Version, "No version specified.")).
		Push("sequence_regions", value.FromRecord(regions)).
		Push("directives", value.Strings(h.Directives)))
}

func (d *gffDecoder) Next() (Row, error) {
	f, err := d.gr.Read()
	if err != nil {
		return Row{}, err
	}
	return Row{Table: BodyTable, Fields: ProjectGFF(f)}, nil
}

// ProjectGFF projects one feature onto GFFSchema.
func ProjectGFF(f *gff.Feature) []value.Value {
	return []value.Value{
		value.String(f.SeqID),
		value.String(f.Source),
		value.String(f.Type),
		value.Int(f.Start),
		value.Int(f.End),
		value.String(f.ScoreString()),
		value.String(string(f.Strand)),
		value.String(f.PhaseString()),
		value.String(f.Attributes.String()),
	}
}

// BED decodes the first three columns of BED. Comment, track and browser
// lines are skipped.
type BED struct{}

func (BED) Name() string                 { return "bed" }
func (BED) Text() bool                   { return true }
func (BED) Tables(DecodeOptions) []Table { return single(BEDSchema) }

func (BED) Open(r source.Reader, _ DecodeOptions) (Decoder, error) {
	br, err := bed.NewReader(&lineFilter{r: r, keep: keepBED}, 3)
	if err != nil {
		return nil, fmt.Errorf("failed to create BED reader: %w", err)
	}
	return &bedDecoder{br: br}, nil
}

func keepBED(line []byte) bool {
	if blank(line) || line[0] == '#' {
		return false
	}
	return !bytes.HasPrefix(line, []byte("track")) && !bytes.HasPrefix(line, []byte("browser"))
}

type bedDecoder struct {
	br *bed.Reader
}

func (d *bedDecoder) Header() value.Value { return emptyHeader() }

func (d *bedDecoder) Next() (Row, error) {
	f, err := d.br.Read()
	if err != nil {
		return Row{}, err
	}
	b, ok := f.(*bed.Bed3)
	if !ok {
		return Row{}, fmt.Errorf("unexpected feature type %T", f)
	}
	return Row{Table: BodyTable, Fields: []value.Value{
		value.String(b.Chrom),
		value.Int(int64(b.ChromStart)),
		value.Int(int64(b.ChromEnd)),
	}}, nil
}
