package format

import (
	"bytes"

	"github.com/scttfrdmn/bioconv-go/pkg/source"
)

// lineFilter is an io.Reader that passes on the lines of r for which keep
// returns true. Line terminators are preserved.
type lineFilter struct {
	r    source.Reader
	keep func(line []byte) bool
	buf  []byte
	err  error
}

func (f *lineFilter) Read(p []byte) (int, error) {
	for len(f.buf) == 0 {
		if f.err != nil {
			return 0, f.err
		}
		line, err := f.r.ReadBytes('\n')
		if len(line) > 0 && f.keep(line) {
			f.buf = line
		}
		f.err = err
	}
	n := copy(p, f.buf)
	f.buf = f.buf[n:]
	return n, nil
}

func blank(line []byte) bool {
	return len(bytes.TrimSpace(line)) == 0
}
