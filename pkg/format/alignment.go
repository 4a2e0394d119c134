package format

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"

	"github.com/scttfrdmn/bioconv-go/pkg/cram"
	"github.com/scttfrdmn/bioconv-go/pkg/source"
	"github.com/scttfrdmn/bioconv-go/pkg/value"
)

// AlignmentSchema is shared by SAM, BAM and CRAM.
var AlignmentSchema = Schema{
	"read_name",
	"flags",
	"reference_sequence_id",
	"alignment_start",
	"mapping_quality",
	"cigar",
	"mate_reference_sequence_id",
	"mate_alignment_start",
	"template_length",
	"sequence",
	"quality_scores",
	"data",
}

// SAM decodes SAM text.
type SAM struct{}

func (SAM) Name() string                 { return "sam" }
func (SAM) Text() bool                   { return true }
func (SAM) Tables(DecodeOptions) []Table { return single(AlignmentSchema) }

func (SAM) Open(r source.Reader, _ DecodeOptions) (Decoder, error) {
	sr, err := sam.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read SAM header: %w", err)
	}
	return &alignmentDecoder{header: sr.Header(), read: sr.Read}, nil
}

// BAM decodes BAM. The input is BGZF by definition so it is only
// registered for Raw sources.
type BAM struct{}

func (BAM) Name() string                 { return "bam" }
func (BAM) Text() bool                   { return false }
func (BAM) Tables(DecodeOptions) []Table { return single(AlignmentSchema) }

func (BAM) Open(r source.Reader, _ DecodeOptions) (Decoder, error) {
	in, err := withReferenceText(r)
	if err != nil {
		return nil, err
	}
	br, err := bam.NewReader(in, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to read BAM header: %w", err)
	}
	return &alignmentDecoder{header: br.Header(), read: br.Read, close: br.Close}, nil
}

// CRAM decodes CRAM 2.1 and 3.x.
type CRAM struct{}

func (CRAM) Name() string                 { return "cram" }
func (CRAM) Text() bool                   { return false }
func (CRAM) Tables(DecodeOptions) []Table { return single(AlignmentSchema) }

func (CRAM) Open(r source.Reader, _ DecodeOptions) (Decoder, error) {
	cr, err := cram.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read CRAM header: %w", err)
	}
	return &alignmentDecoder{header: cr.Header(), read: cr.Read}, nil
}

type alignmentDecoder struct {
	header *sam.Header
	read   func() (*sam.Record, error)
	close  func() error
}

func (d *alignmentDecoder) Header() value.Value { return NormalizeSAMHeader(d.header) }

func (d *alignmentDecoder) Next() (Row, error) {
	rec, err := d.read()
	if err != nil {
		if d.close != nil {
			d.close()
		}
		return Row{}, err
	}
	return Row{Table: BodyTable, Fields: ProjectAlignment(rec)}, nil
}

var (
	tagVN = sam.NewTag("VN")
	tagSS = sam.NewTag("SS")
	tagAH = sam.NewTag("AH")
	tagAN = sam.NewTag("AN")
	tagAS = sam.NewTag("AS")
	tagDS = sam.NewTag("DS")
	tagM5 = sam.NewTag("M5")
	tagSP = sam.NewTag("SP")
	tagTP = sam.NewTag("TP")
	tagUR = sam.NewTag("UR")
	tagBC = sam.NewTag("BC")
	tagCN = sam.NewTag("CN")
	tagFO = sam.NewTag("FO")
	tagKS = sam.NewTag("KS")
	tagLB = sam.NewTag("LB")
	tagPG = sam.NewTag("PG")
	tagPL = sam.NewTag("PL")
	tagPI = sam.NewTag("PI")
	tagPM = sam.NewTag("PM")
	tagPU = sam.NewTag("PU")
	tagSM = sam.NewTag("SM")
	tagPN = sam.NewTag("PN")
	tagCL = sam.NewTag("CL")
	tagPP = sam.NewTag("PP")
)

// NormalizeSAMHeader converts a SAM header into the fixed key layout
// shared by SAM, BAM and CRAM. A nil header, or one with no text, still
// yields every key.
func NormalizeSAMHeader(h *sam.Header) value.Value {
	if h == nil {
		h, _ = sam.NewHeader(nil, nil)
	}

	metadata := value.NewRecord().
		Push("version", value.String(h.Version)).
		Push("sorting_order", value.String(h.SortOrder.String())).
		Push("grouping", value.String(h.GroupOrder.String())).
		Push("sub_sort_order", orSentinel(h.Get(tagSS), "No subsort order."))

	refs := value.NewRecord()
	for _, ref := range h.Refs() {
		refs.Push(ref.Name(), value.FromRecord(value.NewRecord().
			Push("sequence_name", value.String(ref.Name())).
			Push("sequence_length", value.Int(int64(ref.Len()))).
			Push("alternate_locus", orSentinel(ref.Get(tagAH), "No alternative locus.")).
			Push("alternate_names", orSentinel(ref.Get(tagAN), "No alternative names.")).
			Push("assembly_id", orSentinel(ref.Get(tagAS), "No assembly ID.")).
			Push("description", orSentinel(ref.Get(tagDS), "No description")).
			Push("md5", orSentinel(ref.Get(tagM5), "No md5 checksum")).
			Push("species", orSentinel(ref.Get(tagSP), "No species name")).
			Push("molecule_topology", orSentinel(ref.Get(tagTP), "No molecule topology")).
			Push("uri", orSentinel(ref.Get(tagUR), "No URI"))))
	}

	groups := value.NewRecord()
	for _, rg := range h.RGs() {
		insert, _ := strconv.ParseInt(rg.Get(tagPI), 10, 64)
		groups.Push(rg.Name(), value.FromRecord(value.NewRecord().
			Push("id", value.String(rg.Name())).
			Push("barcode", orSentinel(rg.Get(tagBC), "No barcode")).
			Push("sequencing_center", orSentinel(rg.Get(tagCN), "No sequencing center")).
			Push("description", orSentinel(rg.Get(tagDS), "No description")).
			Push("flow_order", orSentinel(rg.Get(tagFO), "No flow order")).
			Push("key_sequence", orSentinel(rg.Get(tagKS), "No key sequence")).
			Push("library", orSentinel(rg.Get(tagLB), "No library")).
			Push("program", orSentinel(rg.Get(tagPG), "No program")).
			Push("platform", orSentinel(rg.Get(tagPL), "No platform")).
			Push("predicted_insert_size", value.Int(insert)).
			Push("platform_model", orSentinel(rg.Get(tagPM), "No platform model")).
			Push("platform_unit", orSentinel(rg.Get(tagPU), "No platform unit")).
			Push("sample", orSentinel(rg.Get(tagSM), "No sample"))))
	}

	programs := value.NewRecord()
	for _, pg := range h.Progs() {
		programs.Push(pg.UID(), value.FromRecord(value.NewRecord().
			Push("id", value.String(pg.UID())).
			Push("name", orSentinel(pg.Get(tagPN), "No name")).
			Push("command_line", orSentinel(pg.Get(tagCL), "No command line")).
			Push("previous_id", orSentinel(pg.Get(tagPP), "No previous ID")).
			Push("description", orSentinel(pg.Get(tagDS), "No description")).
			Push("version", orSentinel(pg.Get(tagVN), "No version"))))
	}

	return value.FromRecord(value.NewRecord().
		Push("metadata", value.FromRecord(metadata)).
		Push("reference_sequences", value.FromRecord(refs)).
		Push("read_groups", value.FromRecord(groups)).
		Push("programs", value.FromRecord(programs)).
		Push("comments", value.Strings(h.Comments)))
}

// ProjectAlignment projects one alignment onto AlignmentSchema.
// Optional numeric fields are rendered as decimal text or a sentinel so
// every row has the same column types.
func ProjectAlignment(r *sam.Record) []value.Value {
	name := r.Name
	if name == "" || name == "*" {
		name = "No read name."
	}

	refID := value.String("No reference sequence ID")
	if r.Ref != nil {
		refID = value.String(strconv.Itoa(r.Ref.ID()))
	}
	start := value.String("No alignment start")
	if r.Pos >= 0 {
		start = value.String(strconv.Itoa(r.Pos + 1))
	}
	mapq := ""
	if r.MapQ != 0xff {
		mapq = strconv.Itoa(int(r.MapQ))
	}
	mateID := value.String("No mate reference sequence ID")
	if r.MateRef != nil {
		mateID = value.String(strconv.Itoa(r.MateRef.ID()))
	}
	mateStart := value.String("No mate alignment start")
	if r.MatePos >= 0 {
		mateStart = value.String(strconv.Itoa(r.MatePos + 1))
	}

	cigar := ""
	if len(r.Cigar) > 0 {
		cigar = r.Cigar.String()
	}

	return []value.Value{
		value.String(name),
		value.String(fmt.Sprintf("0x%04x", uint16(r.Flags))),
		refID,
		start,
		value.String(mapq),
		value.String(cigar),
		mateID,
		mateStart,
		value.Int(int64(r.TempLen)),
		value.String(string(r.Seq.Expand())),
		value.String(qualityText(r.Qual)),
		value.String(auxText(r.AuxFields)),
	}
}

// qualityText renders Phred scores as Phred+33. Missing scores (0xff)
// render as "".
func qualityText(q []byte) string {
	if len(q) == 0 || q[0] == 0xff {
		return ""
	}
	b := make([]byte, len(q))
	for i, v := range q {
		b[i] = v + 33
	}
	return string(b)
}

func auxText(aux sam.AuxFields) string {
	parts := make([]string, len(aux))
	for i, a := range aux {
		parts[i] = a.String()
	}
	return strings.Join(parts, "\t")
}
