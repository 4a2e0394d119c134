// Package gff reads GFF3 feature files: nine tab separated columns with
// tag=value attributes, plus "##" directives.
package gff

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/scttfrdmn/bioconv-go/pkg/source"
)

// Attribute is one tag=value pair of column nine. Value is kept as
// written, so multi-valued attributes keep their commas.
type Attribute struct {
	Tag   string
	Value string
}

func (a Attribute) String() string { return a.Tag + "=" + a.Value }

// Attributes is column nine in file order.
type Attributes []Attribute

// String renders the attributes as they appear in GFF3, or "" when there
// are none.
func (as Attributes) String() string {
	parts := make([]string, len(as))
	for i, a := range as {
		parts[i] = a.String()
	}
	return strings.Join(parts, ";")
}

// Get returns the value of the first attribute named tag.
func (as Attributes) Get(tag string) (string, bool) {
	for _, a := range as {
		if a.Tag == tag {
			return a.Value, true
		}
	}
	return "", false
}

// Feature is one feature line. Start and End are 1-based and inclusive.
// Score and Phase are nil when the column holds ".".
type Feature struct {
	SeqID      string
	Source     string
	Type       string
	Start      int64
	End        int64
	Score      *float32
	Strand     byte
	Phase      *int
	Attributes Attributes
}

// ScoreString is the score as text, or "" when missing.
func (f *Feature) ScoreString() string {
	if f.Score == nil {
		return ""
	}
	return strconv.FormatFloat(float64(*f.Score), 'f', -1, 32)
}

// PhaseString is the phase as text, or "" when missing.
func (f *Feature) PhaseString() string {
	if f.Phase == nil {
		return ""
	}
	return strconv.Itoa(*f.Phase)
}

// Region is a ##sequence-region directive.
type Region struct {
	SeqID string
	Start int64
	End   int64
}

// Header collects the directives seen so far.
type Header struct {
	// Version is the ##gff-version value, "" when absent.
	Version string
	Regions []Region
	// Directives holds every other directive without its "##" prefix.
	Directives []string
}

// ParseError locates a malformed line.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string { return fmt.Sprintf("line %d: %v", e.Line, e.Err) }
func (e *ParseError) Unwrap() error  { return e.Err }

var (
	ErrFieldCount = errors.New("gff: expected 9 tab separated columns")
	ErrPosition   = errors.New("gff: invalid position")
	ErrScore      = errors.New("gff: invalid score")
	ErrStrand     = errors.New("gff: invalid strand")
	ErrPhase      = errors.New("gff: invalid phase")
	ErrAttribute  = errors.New("gff: invalid attribute")
	ErrDirective  = errors.New("gff: invalid directive")
)

// Reader reads features one at a time.
type Reader struct {
	r      source.Reader
	line   int
	header Header
	done   bool
}

// NewReader returns a Reader over r.
func NewReader(r source.Reader) *Reader {
	return &Reader{r: r}
}

// Header returns the directives read so far.
func (r *Reader) Header() Header { return r.header }

// Read returns the next feature, or io.EOF. Directives are absorbed into
// Header, comments and blank lines are skipped, and ##FASTA ends the
// feature section.
func (r *Reader) Read() (*Feature, error) {
	for !r.done {
		b, err := r.r.ReadBytes('\n')
		if err != nil && (err != io.EOF || len(b) == 0) {
			return nil, err
		}
		r.line++
		line := string(bytes.TrimRight(b, "\r\n"))
		switch {
		case strings.TrimSpace(line) == "":
			continue
		case strings.HasPrefix(line, "##"):
			if err := r.directive(line[2:]); err != nil {
				return nil, &ParseError{Line: r.line, Err: err}
			}
			continue
		case line[0] == '#':
			continue
		}
		f, err := ParseFeature(line)
		if err != nil {
			return nil, &ParseError{Line: r.line, Err: err}
		}
		return f, nil
	}
	return nil, io.EOF
}

func (r *Reader) directive(text string) error {
	text = strings.TrimSpace(text)
	key, rest, _ := strings.Cut(text, " ")
	rest = strings.TrimSpace(rest)
	switch key {
	case "gff-version":
		if r.header.Version == "" {
			r.header.Version = rest
		}
	case "sequence-region":
		f := strings.Fields(rest)
		if len(f) != 3 {
			return fmt.Errorf("%w: %q", ErrDirective, text)
		}
		start, err1 := strconv.ParseInt(f[1], 10, 64)
		end, err2 := strconv.ParseInt(f[2], 10, 64)
		if err1 != nil || err2 != nil {
			return fmt.Errorf("%w: %q", ErrDirective, text)
		}
		r.header.Regions = append(r.header.Regions, Region{SeqID: f[0], Start: start, End: end})
	case "FASTA":
		r.done = true
	case "#":
		// forward references resolved
	default:
		r.header.Directives = append(r.header.Directives, text)
	}
	return nil
}

// ParseFeature parses one feature line without its line terminator.
func ParseFeature(line string) (*Feature, error) {
	cols := strings.Split(line, "\t")
	if len(cols) != 9 {
		return nil, fmt.Errorf("%w: got %d", ErrFieldCount, len(cols))
	}
	f := &Feature{
		SeqID:  cols[0],
		Source: cols[1],
		Type:   cols[2],
	}
	var err error
	if f.Start, err = parsePosition(cols[3]); err != nil {
		return nil, err
	}
	if f.End, err = parsePosition(cols[4]); err != nil {
		return nil, err
	}
	if cols[5] != "." {
		v, err := strconv.ParseFloat(cols[5], 32)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrScore, cols[5])
		}
		score := float32(v)
		f.Score = &score
	}
	switch cols[6] {
	case "+", "-", ".", "?":
		f.Strand = cols[6][0]
	default:
		return nil, fmt.Errorf("%w: %q", ErrStrand, cols[6])
	}
	switch cols[7] {
	case ".":
	case "0", "1", "2":
		phase := int(cols[7][0] - '0')
		f.Phase = &phase
	default:
		return nil, fmt.Errorf("%w: %q", ErrPhase, cols[7])
	}
	if f.Attributes, err = ParseAttributes(cols[8]); err != nil {
		return nil, err
	}
	return f, nil
}

func parsePosition(s string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("%w: %q", ErrPosition, s)
	}
	return v, nil
}

// ParseAttributes parses column nine. "." and "" give no attributes and a
// trailing ";" is allowed.
func ParseAttributes(s string) (Attributes, error) {
	if s == "." || s == "" {
		return nil, nil
	}
	var as Attributes
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		tag, val, ok := strings.Cut(part, "=")
		if !ok || tag == "" {
			return nil, fmt.Errorf("%w: %q", ErrAttribute, part)
		}
		as = append(as, Attribute{Tag: tag, Value: val})
	}
	return as, nil
}
