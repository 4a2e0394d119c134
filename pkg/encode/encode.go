// Package encode writes FASTA and FASTQ text from decoded records. The
// layout is inferred from the first record: the trailing columns are the
// payload and every column before them joins the header line.
package encode

import (
	"bytes"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/scttfrdmn/bioconv-go/pkg/bioerr"
	"github.com/scttfrdmn/bioconv-go/pkg/value"
)

// layout is the column arrangement shared by every record of one call.
type layout struct {
	format  string
	cols    []string
	payload int
}

func inferLayout(format string, records []*value.Record, payload int) (*layout, error) {
	if len(records) == 0 {
		return nil, bioerr.Layout(format, errors.New("no records to encode"))
	}
	first := records[0]
	if first.Len() <= payload {
		return nil, bioerr.Layout(format, fmt.Errorf("record has %d columns, need at least %d", first.Len(), payload+1))
	}
	l := &layout{format: format, cols: first.Cols, payload: payload}
	for i, r := range records[1:] {
		if !slices.Equal(r.Cols, l.cols) {
			e := bioerr.Layout(format, fmt.Errorf("columns [%s] differ from first record [%s]",
				strings.Join(r.Cols, ","), strings.Join(l.cols, ",")))
			e.Index = i + 1
			return nil, e
		}
	}
	return l, nil
}

// header joins the non-payload columns with single spaces, skipping
// empty ones.
func (l *layout) header(r *value.Record) string {
	n := len(l.cols) - l.payload
	parts := make([]string, 0, n)
	for _, v := range r.Vals[:n] {
		if s := v.Text(); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// payloads returns the trailing string columns of r.
func (l *layout) payloads(i int, r *value.Record) ([]string, error) {
	out := make([]string, l.payload)
	base := len(l.cols) - l.payload
	for j := range out {
		s, ok := r.Vals[base+j].AsString()
		if !ok {
			e := bioerr.InputType(l.format, fmt.Errorf("column %q is %s, want string", l.cols[base+j], r.Vals[base+j].Kind))
			e.Index = i
			return nil, e
		}
		out[j] = s
	}
	return out, nil
}

// FASTA renders records as FASTA. The last column is the sequence.
func FASTA(records []*value.Record) ([]byte, error) {
	l, err := inferLayout("fasta", records, 1)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	for i, r := range records {
		p, err := l.payloads(i, r)
		if err != nil {
			return nil, err
		}
		buf.WriteByte('>')
		buf.WriteString(l.header(r))
		buf.WriteByte('\n')
		buf.WriteString(p[0])
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// FASTQ renders records as FASTQ. The last two columns are the sequence
// and its quality string, which must be the same length.
func FASTQ(records []*value.Record) ([]byte, error) {
	l, err := inferLayout("fastq", records, 2)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	for i, r := range records {
		p, err := l.payloads(i, r)
		if err != nil {
			return nil, err
		}
		if len(p[0]) != len(p[1]) {
			e := bioerr.Layout("fastq", fmt.Errorf("sequence length %d does not match quality length %d", len(p[0]), len(p[1])))
			e.Index = i
			return nil, e
		}
		buf.WriteByte('@')
		buf.WriteString(l.header(r))
		buf.WriteByte('\n')
		buf.WriteString(p[0])
		buf.WriteString("\n+\n")
		buf.WriteString(p[1])
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}
