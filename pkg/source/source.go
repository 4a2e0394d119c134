// Package source provides a single buffered reader over a document's bytes,
// whether those bytes are raw or BGZF block-compressed.
package source

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/biogo/hts/bgzf"
)

// Mode states how the document bytes are framed. It is asserted by the
// caller and never sniffed from the content.
type Mode int

const (
	// Raw bytes are read as-is.
	Raw Mode = iota
	// BlockCompressed bytes are a BGZF stream.
	BlockCompressed
)

// Modes lists every mode in registration order.
var Modes = []Mode{Raw, BlockCompressed}

func (m Mode) String() string {
	switch m {
	case Raw:
		return "raw"
	case BlockCompressed:
		return "bgzf"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode parses a mode name as accepted on the command line.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "raw", "none", "plain":
		return Raw, nil
	case "bgzf", "gz", "gzip", "block", "compressed":
		return BlockCompressed, nil
	}
	return Raw, fmt.Errorf("unknown compression mode %q (use raw or bgzf)", s)
}

// Reader is the buffered read capability every decoder is written against.
// *bufio.Reader satisfies it.
type Reader interface {
	io.Reader
	io.ByteReader
	Peek(n int) ([]byte, error)
	ReadBytes(delim byte) ([]byte, error)
}

// Source is a buffered reader over one document.
type Source struct {
	*bufio.Reader
	mode   Mode
	closer io.Closer
}

var _ Reader = (*Source)(nil)

// New returns a Source over data. For BlockCompressed input the BGZF
// decoder is created on first read, so malformed input is reported by the
// first read rather than here.
func New(data []byte, mode Mode) (*Source, error) {
	return NewReader(bytes.NewReader(data), mode)
}

// NewReader is like New but reads from r.
func NewReader(r io.Reader, mode Mode) (*Source, error) {
	switch mode {
	case Raw:
		return &Source{Reader: bufio.NewReader(r), mode: mode}, nil
	case BlockCompressed:
		lz := &lazyBGZF{src: r}
		return &Source{Reader: bufio.NewReader(lz), mode: mode, closer: lz}, nil
	default:
		return nil, fmt.Errorf("unsupported compression mode %v", mode)
	}
}

// Mode returns the framing the source was opened with.
func (s *Source) Mode() Mode { return s.mode }

// Close releases the decompressor, if any.
func (s *Source) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// lazyBGZF defers construction of the BGZF reader to the first Read.
type lazyBGZF struct {
	src io.Reader
	bg  *bgzf.Reader
	err error
}

func (l *lazyBGZF) Read(p []byte) (int, error) {
	if l.bg == nil && l.err == nil {
		bg, err := bgzf.NewReader(l.src, 1)
		if err != nil {
			l.err = fmt.Errorf("failed to open BGZF stream: %w", err)
		} else {
			l.bg = bg
		}
	}
	if l.err != nil {
		return 0, l.err
	}
	n, err := l.bg.Read(p)
	if err != nil && err != io.EOF {
		return n, fmt.Errorf("failed to read BGZF block: %w", err)
	}
	return n, err
}

func (l *lazyBGZF) Close() error {
	if l.bg == nil {
		return nil
	}
	return l.bg.Close()
}
