package cram

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// rANS 4x8 constants: 12-bit frequency precision, 8-bit renormalization.
const (
	ransTFShift = 12
	ransTotFreq = 1 << ransTFShift
	ransLower   = 1 << 23
)

var errRANSTruncated = errors.New("rans: truncated stream")

type ransSym struct {
	start uint32
	freq  uint32
}

// ransTable is the decoding table of one context.
type ransTable struct {
	syms   [256]ransSym
	lookup [ransTotFreq]byte
}

// ransStream walks the compressed payload.
type ransStream struct {
	b   []byte
	off int
}

func (s *ransStream) byte() (byte, error) {
	if s.off >= len(s.b) {
		return 0, errRANSTruncated
	}
	v := s.b[s.off]
	s.off++
	return v, nil
}

func (s *ransStream) peek() byte {
	if s.off >= len(s.b) {
		return 0
	}
	return s.b[s.off]
}

// unRANS decodes an order-0 or order-1 rANS 4x8 block.
func unRANS(in []byte) ([]byte, error) {
	if len(in) < 9 {
		return nil, errRANSTruncated
	}
	order := in[0]
	outSize := int(binary.LittleEndian.Uint32(in[5:9]))
	s := &ransStream{b: in, off: 9}
	switch order {
	case 0:
		return ransDecode0(s, outSize)
	case 1:
		return ransDecode1(s, outSize)
	default:
		return nil, fmt.Errorf("rans: unknown order %d", order)
	}
}

// readFreqs reads one run-length coded frequency table into t.
func readFreqs(s *ransStream, t *ransTable) error {
	sym, err := s.byte()
	if err != nil {
		return err
	}
	var x uint32
	rle := 0
	for {
		f, err := s.byte()
		if err != nil {
			return err
		}
		freq := uint32(f)
		if f >= 0x80 {
			lo, err := s.byte()
			if err != nil {
				return err
			}
			freq = uint32(f&0x7f)<<8 | uint32(lo)
		}
		if x+freq > ransTotFreq {
			return fmt.Errorf("rans: frequency table exceeds %d", ransTotFreq)
		}
		t.syms[sym] = ransSym{start: x, freq: freq}
		for i := x; i < x+freq; i++ {
			t.lookup[i] = sym
		}
		x += freq

		switch {
		case rle == 0 && int(sym)+1 == int(s.peek()):
			if sym, err = s.byte(); err != nil {
				return err
			}
			r, err := s.byte()
			if err != nil {
				return err
			}
			rle = int(r)
		case rle > 0:
			rle--
			sym++
		default:
			if sym, err = s.byte(); err != nil {
				return err
			}
		}
		if sym == 0 {
			return nil
		}
	}
}

func (s *ransStream) states() ([4]uint32, error) {
	var r [4]uint32
	if s.off+16 > len(s.b) {
		return r, errRANSTruncated
	}
	for i := range r {
		r[i] = binary.LittleEndian.Uint32(s.b[s.off:])
		s.off += 4
	}
	return r, nil
}

// advance moves state r past symbol sym and renormalizes it.
func (s *ransStream) advance(r uint32, sym ransSym) uint32 {
	m := r & (ransTotFreq - 1)
	r = sym.freq*(r>>ransTFShift) + m - sym.start
	for r < ransLower && s.off < len(s.b) {
		r = r<<8 | uint32(s.b[s.off])
		s.off++
	}
	return r
}

func ransDecode0(s *ransStream, outSize int) ([]byte, error) {
	var t ransTable
	if err := readFreqs(s, &t); err != nil {
		return nil, err
	}
	r, err := s.states()
	if err != nil {
		return nil, err
	}
	out := make([]byte, outSize)
	end := outSize &^ 3
	for i := 0; i < end; i += 4 {
		for k := 0; k < 4; k++ {
			c := t.lookup[r[k]&(ransTotFreq-1)]
			out[i+k] = c
			r[k] = s.advance(r[k], t.syms[c])
		}
	}
	for k := 0; k < outSize&3; k++ {
		out[end+k] = t.lookup[r[k]&(ransTotFreq-1)]
	}
	return out, nil
}

func ransDecode1(s *ransStream, outSize int) ([]byte, error) {
	tables := make([]*ransTable, 256)
	ctx, err := s.byte()
	if err != nil {
		return nil, err
	}
	rle := 0
	for {
		t := &ransTable{}
		if err := readFreqs(s, t); err != nil {
			return nil, err
		}
		tables[ctx] = t

		switch {
		case rle == 0 && int(ctx)+1 == int(s.peek()):
			if ctx, err = s.byte(); err != nil {
				return nil, err
			}
			n, err := s.byte()
			if err != nil {
				return nil, err
			}
			rle = int(n)
		case rle > 0:
			rle--
			ctx++
		default:
			if ctx, err = s.byte(); err != nil {
				return nil, err
			}
		}
		if ctx == 0 {
			break
		}
	}

	r, err := s.states()
	if err != nil {
		return nil, err
	}
	out := make([]byte, outSize)
	quarter := outSize >> 2
	var last [4]byte
	pos := [4]int{0, quarter, 2 * quarter, 3 * quarter}
	step := func(k int) error {
		t := tables[last[k]]
		if t == nil {
			return fmt.Errorf("rans: no table for context %d", last[k])
		}
		c := t.lookup[r[k]&(ransTotFreq-1)]
		out[pos[k]] = c
		r[k] = s.advance(r[k], t.syms[c])
		last[k] = c
		pos[k]++
		return nil
	}
	for i := 0; i < quarter; i++ {
		for k := 0; k < 4; k++ {
			if err := step(k); err != nil {
				return nil, err
			}
		}
	}
	for pos[3] < outSize {
		if err := step(3); err != nil {
			return nil, err
		}
	}
	return out, nil
}
