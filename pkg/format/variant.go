package format

import (
	"fmt"

	"github.com/scttfrdmn/bioconv-go/pkg/bcf"
	"github.com/scttfrdmn/bioconv-go/pkg/dictionary"
	"github.com/scttfrdmn/bioconv-go/pkg/source"
	"github.com/scttfrdmn/bioconv-go/pkg/value"
	"github.com/scttfrdmn/bioconv-go/pkg/vcf"
)

// VariantSchema is shared by VCF and BCF.
var VariantSchema = Schema{
	"chrom",
	"pos",
	"rlen",
	"qual",
	"id",
	"ref",
	"alt",
	"filter",
	"info",
	"genotypes",
}

// VCF decodes VCF text.
type VCF struct{}

func (VCF) Name() string                 { return "vcf" }
func (VCF) Text() bool                   { return true }
func (VCF) Tables(DecodeOptions) []Table { return single(VariantSchema) }

func (VCF) Open(r source.Reader, _ DecodeOptions) (Decoder, error) {
	vr, err := vcf.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read VCF header: %w", err)
	}
	return &variantDecoder{header: vr.Header(), read: vr.Read}, nil
}

// BCF decodes BCF 2.2. Raw sources hold uncompressed BCF; block
// compressed sources hold the usual BGZF .bcf file.
type BCF struct{}

func (BCF) Name() string                 { return "bcf" }
func (BCF) Text() bool                   { return false }
func (BCF) Tables(DecodeOptions) []Table { return single(VariantSchema) }

func (BCF) Open(r source.Reader, _ DecodeOptions) (Decoder, error) {
	br, err := bcf.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read BCF header: %w", err)
	}
	dict, err := dictionary.New(br.Header())
	if err != nil {
		return nil, err
	}
	read := func() (*vcf.Record, error) {
		rec, err := br.Read()
		if err != nil {
			return nil, err
		}
		return dict.Resolve(rec)
	}
	return &variantDecoder{header: br.Header(), read: read}, nil
}

type variantDecoder struct {
	header *vcf.Header
	read   func() (*vcf.Record, error)
}

func (d *variantDecoder) Header() value.Value { return NormalizeVCFHeader(d.header) }

func (d *variantDecoder) Next() (Row, error) {
	rec, err := d.read()
	if err != nil {
		return Row{}, err
	}
	return Row{Table: BodyTable, Fields: ProjectVariant(rec)}, nil
}

// NormalizeVCFHeader converts a VCF header into the fixed key layout
// shared by VCF and BCF.
func NormalizeVCFHeader(h *vcf.Header) value.Value {
	definitions := func(defs []vcf.Definition) value.Value {
		out := value.NewRecord()
		for _, d := range defs {
			out.Push(d.ID, value.FromRecord(value.NewRecord().
				Push("number", value.String(d.Number)).
				Push("type", value.String(d.Type)).
				Push("description", value.String(d.Description))))
		}
		return value.FromRecord(out)
	}

	filters := value.NewRecord()
	for _, f := range h.Filters {
		filters.Push(f.ID, value.FromRecord(value.NewRecord().
			Push("description", value.String(f.Description))))
	}

	alts := value.NewRecord()
	for _, a := range h.AltAlleles {
		alts.Push(a.ID, value.FromRecord(value.NewRecord().
			Push("description", value.String(a.Description))))
	}

	contigs := value.NewRecord()
	for _, c := range h.Contigs {
		rec := value.NewRecord().Push("length", value.Int(c.Length))
		for _, f := range c.Other {
			rec.Push(f.Key, value.String(f.Value))
		}
		contigs.Push(c.ID, value.FromRecord(rec))
	}

	// Each META entry maps its allowed values to themselves.
	meta := value.NewRecord()
	for _, m := range h.Meta {
		vals := value.NewRecord()
		for _, v := range m.Values {
			vals.Push(v, value.String(v))
		}
		meta.Push(m.ID, value.FromRecord(vals))
	}

	return value.FromRecord(value.NewRecord().
		Push("file_format", value.String(h.FileFormat)).
		Push("info", definitions(h.Infos)).
		Push("filter", value.FromRecord(filters)).
		Push("format", definitions(h.Formats)).
		Push("alt_alleles", value.FromRecord(alts)).
		Push("assembly", orSentinel(h.Assembly, "No reference assembly URL specified.")).
		Push("contig", value.FromRecord(contigs)).
		Push("meta", value.FromRecord(meta)).
		Push("pedigree", orSentinel(h.PedigreeDB, "No pedigree database.")).
		Push("samples", value.Strings(h.Samples)))
}

// ProjectVariant projects one variant onto VariantSchema.
func ProjectVariant(r *vcf.Record) []value.Value {
	return []value.Value{
		value.String(r.Chrom),
		value.Int(r.Pos),
		value.Int(int64(len(r.Ref))),
		value.String(r.Qual),
		value.String(r.IDText()),
		value.String(r.Ref),
		value.String(r.AltText()),
		value.String(r.FilterText()),
		value.String(r.InfoText()),
		value.String(r.GenotypesText()),
	}
}
