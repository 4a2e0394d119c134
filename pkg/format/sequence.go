package format

import (
	"fmt"
	"io"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/io/seqio/fastq"
	"github.com/biogo/biogo/seq/linear"

	"github.com/scttfrdmn/bioconv-go/pkg/source"
	"github.com/scttfrdmn/bioconv-go/pkg/value"
)

// FASTA decodes FASTA text into {id, [description], sequence} rows.
type FASTA struct{}

func (FASTA) Name() string { return "fasta" }
func (FASTA) Text() bool   { return true }

func (FASTA) Tables(opts DecodeOptions) []Table {
	s := Schema{"id"}
	if opts.Description {
		s = append(s, "description")
	}
	return single(append(s, "sequence"))
}

func (FASTA) Open(r source.Reader, opts DecodeOptions) (Decoder, error) {
	fr := fasta.NewReader(r, linear.NewSeq("", nil, alphabet.DNAgapped))
	return &sequenceDecoder{sc: seqio.NewScanner(fr), opts: opts}, nil
}

// FASTQ decodes FASTQ text into {id, [description], sequence,
// [quality_scores]} rows. Qualities are rendered Phred+33.
type FASTQ struct{}

func (FASTQ) Name() string { return "fastq" }
func (FASTQ) Text() bool   { return true }

func (FASTQ) Tables(opts DecodeOptions) []Table {
	s := Schema{"id"}
	if opts.Description {
		s = append(s, "description")
	}
	s = append(s, "sequence")
	if opts.QualityScores {
		s = append(s, "quality_scores")
	}
	return single(s)
}

func (FASTQ) Open(r source.Reader, opts DecodeOptions) (Decoder, error) {
	fr := fastq.NewReader(r, linear.NewQSeq("", nil, alphabet.DNAgapped, alphabet.Sanger))
	return &sequenceDecoder{sc: seqio.NewScanner(fr), opts: opts, quality: true}, nil
}

// sequenceDecoder projects biogo sequences. FASTA and FASTQ differ only in
// the concrete sequence type the scanner yields.
type sequenceDecoder struct {
	sc      *seqio.Scanner
	opts    DecodeOptions
	quality bool
}

func (d *sequenceDecoder) Header() value.Value { return emptyHeader() }

func (d *sequenceDecoder) Next() (Row, error) {
	if !d.sc.Next() {
		if err := d.sc.Error(); err != nil {
			return Row{}, err
		}
		return Row{}, io.EOF
	}

	var (
		id, desc string
		letters  []byte
		quals    []byte
	)
	switch s := d.sc.Seq().(type) {
	case *linear.Seq:
		id, desc = s.ID, s.Desc
		letters = make([]byte, len(s.Seq))
		for i, l := range s.Seq {
			letters[i] = byte(l)
		}
	case *linear.QSeq:
		id, desc = s.ID, s.Desc
		letters = make([]byte, len(s.Seq))
		quals = make([]byte, len(s.Seq))
		for i, ql := range s.Seq {
			letters[i] = byte(ql.L)
			quals[i] = byte(ql.Q) + 33
		}
	default:
		return Row{}, fmt.Errorf("unexpected sequence type %T", s)
	}

	fields := []value.Value{value.String(id)}
	if d.opts.Description {
		fields = append(fields, value.String(desc))
	}
	fields = append(fields, value.String(string(letters)))
	if d.quality && d.opts.QualityScores {
		fields = append(fields, value.String(string(quals)))
	}
	return Row{Table: BodyTable, Fields: fields}, nil
}
