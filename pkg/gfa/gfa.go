// Package gfa parses GFA 1.0 assembly graphs: header, segment, link,
// containment and path lines with typed optional fields.
package gfa

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/scttfrdmn/bioconv-go/pkg/source"
)

// OptField is a TAG:TYPE:VALUE optional field.
type OptField struct {
	Tag   string
	Type  byte
	Value string
}

func (f OptField) String() string {
	return f.Tag + ":" + string(f.Type) + ":" + f.Value
}

// Header is an H line. The VN tag is lifted into Version.
type Header struct {
	Version  string
	Optional []OptField
}

// Segment is an S line.
type Segment struct {
	Name     string
	Sequence string
	Optional []OptField
}

// Link is an L line.
type Link struct {
	From       string
	FromOrient byte
	To         string
	ToOrient   byte
	Overlap    string
	Optional   []OptField
}

// Containment is a C line.
type Containment struct {
	Container       string
	ContainerOrient byte
	Contained       string
	ContainedOrient byte
	Pos             int64
	Overlap         string
	Optional        []OptField
}

// Path is a P line.
type Path struct {
	Name         string
	SegmentNames string
	Overlaps     string
	Optional     []OptField
}

// ParseError locates a malformed line.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string { return fmt.Sprintf("line %d: %v", e.Line, e.Err) }
func (e *ParseError) Unwrap() error  { return e.Err }

// Line is a Segment, Link, Containment or Path.
type Line interface {
	// Type returns the record type letter.
	Type() byte
}

func (Segment) Type() byte     { return 'S' }
func (Link) Type() byte        { return 'L' }
func (Containment) Type() byte { return 'C' }
func (Path) Type() byte        { return 'P' }

// Reader reads GFA lines one at a time.
type Reader struct {
	r      source.Reader
	line   int
	header *Header
}

// NewReader returns a Reader over r.
func NewReader(r source.Reader) *Reader {
	return &Reader{r: r}
}

// Header returns the first H line seen so far, or nil.
func (r *Reader) Header() *Header { return r.header }

// Read returns the next S, L, C or P line, or io.EOF. H lines are
// absorbed into Header and comment lines are skipped. Any other line type
// is an error.
func (r *Reader) Read() (Line, error) {
	for {
		b, err := r.r.ReadBytes('\n')
		if err != nil && (err != io.EOF || len(b) == 0) {
			return nil, err
		}
		r.line++
		line := string(bytes.TrimRight(b, "\r\n"))
		if line == "" || line[0] == '#' {
			continue
		}
		l, err := r.parse(line)
		if err != nil {
			return nil, &ParseError{Line: r.line, Err: err}
		}
		if l != nil {
			return l, nil
		}
	}
}

// parse returns the line, or nil for an H line.
func (r *Reader) parse(line string) (Line, error) {
	f := strings.Split(line, "\t")
	switch f[0] {
	case "H":
		opts, err := parseOptional(f[1:])
		if err != nil {
			return nil, err
		}
		if r.header != nil {
			return nil, nil
		}
		h := &Header{Optional: []OptField{}}
		for _, o := range opts {
			if o.Tag == "VN" {
				h.Version = o.Value
				continue
			}
			h.Optional = append(h.Optional, o)
		}
		r.header = h
		return nil, nil
	case "S":
		if err := arity("S", f, 3); err != nil {
			return nil, err
		}
		opts, err := parseOptional(f[3:])
		if err != nil {
			return nil, err
		}
		return Segment{Name: f[1], Sequence: f[2], Optional: opts}, nil
	case "L":
		if err := arity("L", f, 6); err != nil {
			return nil, err
		}
		from, err := orientation(f[2])
		if err != nil {
			return nil, err
		}
		to, err := orientation(f[4])
		if err != nil {
			return nil, err
		}
		opts, err := parseOptional(f[6:])
		if err != nil {
			return nil, err
		}
		return Link{From: f[1], FromOrient: from, To: f[3], ToOrient: to, Overlap: f[5], Optional: opts}, nil
	case "C":
		if err := arity("C", f, 7); err != nil {
			return nil, err
		}
		from, err := orientation(f[2])
		if err != nil {
			return nil, err
		}
		to, err := orientation(f[4])
		if err != nil {
			return nil, err
		}
		pos, err := strconv.ParseInt(f[5], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("containment position %q: %w", f[5], err)
		}
		opts, err := parseOptional(f[7:])
		if err != nil {
			return nil, err
		}
		return Containment{
			Container: f[1], ContainerOrient: from,
			Contained: f[3], ContainedOrient: to,
			Pos: pos, Overlap: f[6], Optional: opts,
		}, nil
	case "P":
		if err := arity("P", f, 4); err != nil {
			return nil, err
		}
		opts, err := parseOptional(f[4:])
		if err != nil {
			return nil, err
		}
		return Path{Name: f[1], SegmentNames: f[2], Overlaps: f[3], Optional: opts}, nil
	}
	return nil, fmt.Errorf("unsupported line type %q", f[0])
}

func arity(kind string, f []string, n int) error {
	if len(f) < n {
		return fmt.Errorf("%s line has %d fields, need %d", kind, len(f), n)
	}
	return nil
}

func orientation(s string) (byte, error) {
	if s != "+" && s != "-" {
		return 0, fmt.Errorf("invalid orientation %q", s)
	}
	return s[0], nil
}

// parseOptional parses and type checks optional fields.
func parseOptional(fields []string) ([]OptField, error) {
	out := []OptField{}
	for _, s := range fields {
		if s == "" {
			continue
		}
		parts := strings.SplitN(s, ":", 3)
		if len(parts) != 3 || len(parts[0]) != 2 || len(parts[1]) != 1 {
			return nil, fmt.Errorf("malformed optional field %q", s)
		}
		f := OptField{Tag: parts[0], Type: parts[1][0], Value: parts[2]}
		if err := checkValue(f); err != nil {
			return nil, fmt.Errorf("optional field %s: %w", f.Tag, err)
		}
		out = append(out, f)
	}
	return out, nil
}

func checkValue(f OptField) error {
	v := f.Value
	switch f.Type {
	case 'A':
		if len(v) != 1 {
			return fmt.Errorf("type A needs one character, got %q", v)
		}
	case 'i':
		if _, err := strconv.ParseInt(v, 10, 64); err != nil {
			return err
		}
	case 'f':
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			return err
		}
	case 'Z':
	case 'J':
		if !json.Valid([]byte(v)) {
			return fmt.Errorf("invalid JSON value")
		}
	case 'H':
		if _, err := hex.DecodeString(v); err != nil {
			return err
		}
	case 'B':
		elems := strings.Split(v, ",")
		if len(elems[0]) != 1 || !strings.Contains("cCsSiIf", elems[0]) {
			return fmt.Errorf("invalid array subtype %q", elems[0])
		}
		for _, e := range elems[1:] {
			var err error
			if elems[0] == "f" {
				_, err = strconv.ParseFloat(e, 32)
			} else {
				_, err = strconv.ParseInt(e, 10, 64)
			}
			if err != nil {
				return fmt.Errorf("array element %q: %w", e, err)
			}
		}
	default:
		return fmt.Errorf("unknown type %q", f.Type)
	}
	return nil
}
