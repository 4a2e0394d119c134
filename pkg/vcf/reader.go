package vcf

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/scttfrdmn/bioconv-go/pkg/source"
)

// Reader reads VCF text.
type Reader struct {
	r    source.Reader
	h    *Header
	line int
}

// NewReader reads the header from r and returns a Reader positioned at the
// first data line.
func NewReader(r source.Reader) (*Reader, error) {
	vr := &Reader{r: r}
	var text strings.Builder
	for {
		line, err := vr.readLine()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if !strings.HasPrefix(line, "#") {
			return nil, fmt.Errorf("line %d: data line before #CHROM header", vr.line)
		}
		text.WriteString(line)
		text.WriteByte('\n')
		if strings.HasPrefix(line, "#CHROM") {
			break
		}
	}
	h, err := ParseHeader(text.String())
	if err != nil {
		return nil, err
	}
	vr.h = h
	return vr, nil
}

// Header returns the parsed header.
func (r *Reader) Header() *Header { return r.h }

// Read returns the next record, or io.EOF.
func (r *Reader) Read() (*Record, error) {
	for {
		line, err := r.readLine()
		if err != nil {
			return nil, err
		}
		if line == "" {
			continue
		}
		rec, err := ParseRecord(line, r.h)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", r.line, err)
		}
		return rec, nil
	}
}

// readLine returns the next line without its terminator. A final line with
// no newline is returned with a nil error.
func (r *Reader) readLine() (string, error) {
	b, err := r.r.ReadBytes('\n')
	if err != nil {
		if err != io.EOF || len(b) == 0 {
			return "", err
		}
	}
	r.line++
	return string(bytes.TrimRight(b, "\r\n")), nil
}
