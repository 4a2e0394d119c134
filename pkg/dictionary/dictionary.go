// Package dictionary maps the integer references in BCF records back to the
// contig, key and sample names declared in the document header.
package dictionary

import (
	"fmt"
	"strings"

	"github.com/scttfrdmn/bioconv-go/pkg/bcf"
	"github.com/scttfrdmn/bioconv-go/pkg/bioerr"
	"github.com/scttfrdmn/bioconv-go/pkg/vcf"
)

const format = "bcf"

// Dictionary holds the index tables of one document. It is built once,
// after the header and before the first record, and never changes.
type Dictionary struct {
	header  *vcf.Header
	contigs map[int32]string
	strs    map[int32]string
	samples []string
}

// New builds the dictionary for h. Contigs are numbered by IDX or by
// declaration order. The string table starts with PASS at 0 and continues
// with FILTER, INFO and FORMAT IDs by IDX or first appearance.
func New(h *vcf.Header) (*Dictionary, error) {
	d := &Dictionary{
		header:  h,
		contigs: make(map[int32]string),
		strs:    make(map[int32]string),
		samples: h.Samples,
	}

	contigs := newTable("contig", d.contigs)
	for _, c := range h.Contigs {
		if err := contigs.add(c.ID, c.IDX); err != nil {
			return nil, err
		}
	}

	strs := newTable("string", d.strs)
	passIDX := 0
	for _, decl := range h.Declared {
		if decl.Section == "FILTER" && decl.ID == "PASS" && decl.IDX >= 0 {
			passIDX = decl.IDX
		}
	}
	if err := strs.add("PASS", passIDX); err != nil {
		return nil, err
	}
	for _, decl := range h.Declared {
		if err := strs.add(decl.ID, decl.IDX); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// table assigns indices to names. Re-declaring a name keeps its index.
type table struct {
	kind string
	byID map[int32]string
	idx  map[string]int32
	next int32
}

func newTable(kind string, byID map[int32]string) *table {
	return &table{kind: kind, byID: byID, idx: make(map[string]int32)}
}

func (t *table) add(name string, idx int) error {
	if have, ok := t.idx[name]; ok {
		if idx >= 0 && int32(idx) != have {
			return bioerr.Integrity(format, fmt.Errorf("%s %q declared with IDX %d and %d", t.kind, name, have, idx))
		}
		return nil
	}
	i := t.next
	if idx >= 0 {
		i = int32(idx)
	}
	if other, ok := t.byID[i]; ok {
		return bioerr.Integrity(format, fmt.Errorf("%s index %d claimed by both %q and %q", t.kind, i, other, name))
	}
	t.byID[i] = name
	t.idx[name] = i
	if i >= t.next {
		t.next = i + 1
	}
	return nil
}

// Contig returns the contig name at index i.
func (d *Dictionary) Contig(i int32) (string, error) {
	if name, ok := d.contigs[i]; ok {
		return name, nil
	}
	return "", bioerr.Integrity(format, fmt.Errorf("contig index %d not in dictionary", i))
}

// String returns the FILTER, INFO or FORMAT ID at index i.
func (d *Dictionary) String(i int32) (string, error) {
	if name, ok := d.strs[i]; ok {
		return name, nil
	}
	return "", bioerr.Integrity(format, fmt.Errorf("string index %d not in dictionary", i))
}

// Sample returns the sample name at column i.
func (d *Dictionary) Sample(i int) (string, error) {
	if i >= 0 && i < len(d.samples) {
		return d.samples[i], nil
	}
	return "", bioerr.Integrity(format, fmt.Errorf("sample index %d not in dictionary", i))
}

// Resolve converts r into the record the VCF text reader would produce for
// the same data.
func (d *Dictionary) Resolve(r *bcf.Record) (*vcf.Record, error) {
	chrom, err := d.Contig(r.Chrom)
	if err != nil {
		return nil, err
	}
	if len(r.Alleles) == 0 {
		return nil, fmt.Errorf("record has no reference allele")
	}
	out := &vcf.Record{
		Chrom: chrom,
		Pos:   int64(r.Pos) + 1,
		Ref:   r.Alleles[0],
	}
	if r.ID != "" {
		out.IDs = strings.Split(r.ID, ";")
	}
	out.Alts = append(out.Alts, r.Alleles[1:]...)
	if !r.QualMissing() {
		out.Qual = bcf.Vector{Type: bcf.TypeFloat, Len: 1, Floats: []uint32{r.Qual}}.String()
	}

	if r.Filters != nil {
		out.Filters = make([]string, 0, len(r.Filters))
		for _, f := range r.Filters {
			name, err := d.String(f)
			if err != nil {
				return nil, err
			}
			out.Filters = append(out.Filters, name)
		}
	}

	for _, in := range r.Info {
		key, err := d.String(in.Key)
		if err != nil {
			return nil, err
		}
		def, _ := d.header.Info(key)
		if def.Type == "Flag" || in.Value.Type == bcf.TypeMissing {
			out.Info = append(out.Info, vcf.InfoField{Key: key, Flag: true})
			continue
		}
		out.Info = append(out.Info, vcf.InfoField{Key: key, Value: in.Value.String()})
	}

	if len(r.Format) > 0 {
		if r.NSample != len(d.samples) {
			return nil, bioerr.Integrity(format, fmt.Errorf("record has %d samples, header declares %d", r.NSample, len(d.samples)))
		}
		out.Samples = make([][]string, r.NSample)
		for _, f := range r.Format {
			key, err := d.String(f.Key)
			if err != nil {
				return nil, err
			}
			out.Format = append(out.Format, key)
			for s := 0; s < r.NSample; s++ {
				if key == "GT" {
					out.Samples[s] = append(out.Samples[s], f.Value.Genotype(s))
				} else {
					out.Samples[s] = append(out.Samples[s], f.Value.Sample(s))
				}
			}
		}
	}
	return out, nil
}
