package cram

import (
	"fmt"
	"io"
	"sort"
)

// Encoding codec identifiers.
const (
	encNull          = 0
	encExternal      = 1
	encGolomb        = 2
	encHuffman       = 3
	encByteArrayLen  = 4
	encByteArrayStop = 5
	encBeta          = 6
	encSubexp        = 7
	encGolombRice    = 8
	encGamma         = 9
)

// encoding is a parsed data series encoding descriptor.
type encoding struct {
	codec  int32
	params []byte
}

func readEncoding(c *cursor) (encoding, error) {
	codec, err := c.itf8()
	if err != nil {
		return encoding{}, err
	}
	params, err := c.byteArray()
	if err != nil {
		return encoding{}, err
	}
	return encoding{codec: codec, params: params}, nil
}

// sliceBlocks gives decoders access to the core bit stream and the
// external blocks of the slice being decoded.
type sliceBlocks struct {
	core     *bitReader
	external map[int32]*cursor
}

func (s *sliceBlocks) block(id int32) (*cursor, error) {
	b, ok := s.external[id]
	if !ok {
		return nil, fmt.Errorf("external block %d not present in slice", id)
	}
	return b, nil
}

// intDecoder decodes integer data series.
type intDecoder interface {
	decodeInt(s *sliceBlocks) (int32, error)
}

// byteDecoder decodes single byte data series.
type byteDecoder interface {
	decodeByte(s *sliceBlocks) (byte, error)
}

// bytesDecoder decodes byte array data series.
type bytesDecoder interface {
	decodeBytes(s *sliceBlocks) ([]byte, error)
}

// newIntDecoder builds a decoder for an integer series.
func newIntDecoder(e encoding) (intDecoder, error) {
	p := newCursor(e.params)
	switch e.codec {
	case encNull:
		return nullCodec{}, nil
	case encExternal:
		id, err := p.itf8()
		return externalCodec{id: id}, err
	case encHuffman:
		return newHuffman(p)
	case encBeta:
		offset, err := p.itf8()
		if err != nil {
			return nil, err
		}
		bits, err := p.itf8()
		return betaCodec{offset: offset, bits: bits}, err
	case encSubexp:
		offset, err := p.itf8()
		if err != nil {
			return nil, err
		}
		k, err := p.itf8()
		return subexpCodec{offset: offset, k: k}, err
	case encGamma:
		offset, err := p.itf8()
		return gammaCodec{offset: offset}, err
	default:
		return nil, fmt.Errorf("unsupported integer encoding %d", e.codec)
	}
}

// newByteDecoder builds a decoder for a single byte series.
func newByteDecoder(e encoding) (byteDecoder, error) {
	if e.codec == encExternal {
		id, err := newCursor(e.params).itf8()
		return externalCodec{id: id}, err
	}
	d, err := newIntDecoder(e)
	if err != nil {
		return nil, err
	}
	return byteFromInt{d}, nil
}

// newBytesDecoder builds a decoder for a byte array series.
func newBytesDecoder(e encoding) (bytesDecoder, error) {
	p := newCursor(e.params)
	switch e.codec {
	case encNull:
		return nullCodec{}, nil
	case encByteArrayLen:
		lenEnc, err := readEncoding(p)
		if err != nil {
			return nil, err
		}
		valEnc, err := readEncoding(p)
		if err != nil {
			return nil, err
		}
		lens, err := newIntDecoder(lenEnc)
		if err != nil {
			return nil, fmt.Errorf("length: %w", err)
		}
		vals, err := newByteDecoder(valEnc)
		if err != nil {
			return nil, fmt.Errorf("values: %w", err)
		}
		return byteArrayLenCodec{lens: lens, vals: vals}, nil
	case encByteArrayStop:
		stop, err := p.ReadByte()
		if err != nil {
			return nil, noEOF(err)
		}
		id, err := p.itf8()
		return byteArrayStopCodec{stop: stop, id: id}, err
	case encExternal:
		id, err := p.itf8()
		return externalCodec{id: id}, err
	default:
		return nil, fmt.Errorf("unsupported byte array encoding %d", e.codec)
	}
}

type nullCodec struct{}

func (nullCodec) decodeInt(*sliceBlocks) (int32, error)    { return 0, nil }
func (nullCodec) decodeBytes(*sliceBlocks) ([]byte, error) { return nil, nil }

type externalCodec struct{ id int32 }

func (e externalCodec) decodeInt(s *sliceBlocks) (int32, error) {
	b, err := s.block(e.id)
	if err != nil {
		return 0, err
	}
	return b.itf8()
}

func (e externalCodec) decodeByte(s *sliceBlocks) (byte, error) {
	b, err := s.block(e.id)
	if err != nil {
		return 0, err
	}
	v, err := b.ReadByte()
	return v, noEOF(err)
}

// decodeBytes returns the rest of the block; only used by legacy files
// that store a whole series in its own block.
func (e externalCodec) decodeBytes(s *sliceBlocks) ([]byte, error) {
	b, err := s.block(e.id)
	if err != nil {
		return nil, err
	}
	return b.next(b.len())
}

type byteFromInt struct{ intDecoder }

func (d byteFromInt) decodeByte(s *sliceBlocks) (byte, error) {
	v, err := d.decodeInt(s)
	return byte(v), err
}

type byteArrayLenCodec struct {
	lens intDecoder
	vals byteDecoder
}

func (d byteArrayLenCodec) decodeBytes(s *sliceBlocks) ([]byte, error) {
	n, err := d.lens.decodeInt(s)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("negative byte array length %d", n)
	}
	if ext, ok := d.vals.(externalCodec); ok {
		b, err := s.block(ext.id)
		if err != nil {
			return nil, err
		}
		v, err := b.next(int(n))
		if err != nil {
			return nil, err
		}
		return append([]byte(nil), v...), nil
	}
	out := make([]byte, n)
	for i := range out {
		if out[i], err = d.vals.decodeByte(s); err != nil {
			return nil, err
		}
	}
	return out, nil
}

type byteArrayStopCodec struct {
	stop byte
	id   int32
}

func (d byteArrayStopCodec) decodeBytes(s *sliceBlocks) ([]byte, error) {
	b, err := s.block(d.id)
	if err != nil {
		return nil, err
	}
	for i := b.off; i < len(b.b); i++ {
		if b.b[i] == d.stop {
			v := append([]byte(nil), b.b[b.off:i]...)
			b.off = i + 1
			return v, nil
		}
	}
	return nil, fmt.Errorf("stop byte %#x not found in block %d: %w", d.stop, d.id, io.ErrUnexpectedEOF)
}

type betaCodec struct{ offset, bits int32 }

func (d betaCodec) decodeInt(s *sliceBlocks) (int32, error) {
	v, err := s.core.bits(int(d.bits))
	return int32(v) - d.offset, err
}

type subexpCodec struct{ offset, k int32 }

func (d subexpCodec) decodeInt(s *sliceBlocks) (int32, error) {
	u := 0
	for {
		b, err := s.core.bit()
		if err != nil {
			return 0, err
		}
		if b == 0 {
			break
		}
		u++
	}
	var v uint32
	if u == 0 {
		x, err := s.core.bits(int(d.k))
		if err != nil {
			return 0, err
		}
		v = x
	} else {
		n := u + int(d.k) - 1
		x, err := s.core.bits(n)
		if err != nil {
			return 0, err
		}
		v = 1<<uint(n) | x
	}
	return int32(v) - d.offset, nil
}

type gammaCodec struct{ offset int32 }

func (d gammaCodec) decodeInt(s *sliceBlocks) (int32, error) {
	n := 0
	for {
		b, err := s.core.bit()
		if err != nil {
			return 0, err
		}
		if b == 1 {
			break
		}
		n++
	}
	x, err := s.core.bits(n)
	if err != nil {
		return 0, err
	}
	return int32(1<<uint(n)|x) - d.offset, nil
}

// huffmanCodec is a canonical Huffman code read from the core block.
type huffmanCodec struct {
	single bool
	value  int32
	// codes maps bit length to code to symbol.
	codes  map[int]map[uint32]int32
	maxLen int
}

type huffmanSym struct {
	value int32
	len   int
}

func newHuffman(p *cursor) (*huffmanCodec, error) {
	values, err := p.itf8s()
	if err != nil {
		return nil, fmt.Errorf("huffman alphabet: %w", err)
	}
	lens, err := p.itf8s()
	if err != nil {
		return nil, fmt.Errorf("huffman bit lengths: %w", err)
	}
	if len(values) != len(lens) || len(values) == 0 {
		return nil, fmt.Errorf("huffman: %d symbols with %d lengths", len(values), len(lens))
	}
	if len(values) == 1 {
		return &huffmanCodec{single: true, value: values[0]}, nil
	}

	syms := make([]huffmanSym, len(values))
	for i := range values {
		syms[i] = huffmanSym{value: values[i], len: int(lens[i])}
	}
	sort.Slice(syms, func(i, j int) bool {
		if syms[i].len != syms[j].len {
			return syms[i].len < syms[j].len
		}
		return syms[i].value < syms[j].value
	})

	h := &huffmanCodec{codes: make(map[int]map[uint32]int32)}
	var code uint32
	prevLen := syms[0].len
	for i, s := range syms {
		if i > 0 {
			code++
		}
		if s.len > prevLen {
			code <<= uint(s.len - prevLen)
			prevLen = s.len
		}
		if h.codes[s.len] == nil {
			h.codes[s.len] = make(map[uint32]int32)
		}
		h.codes[s.len][code] = s.value
		if s.len > h.maxLen {
			h.maxLen = s.len
		}
	}
	return h, nil
}

func (h *huffmanCodec) decodeInt(s *sliceBlocks) (int32, error) {
	if h.single {
		return h.value, nil
	}
	var code uint32
	for n := 1; n <= h.maxLen; n++ {
		b, err := s.core.bit()
		if err != nil {
			return 0, err
		}
		code = code<<1 | uint32(b)
		if v, ok := h.codes[n][code]; ok {
			return v, nil
		}
	}
	return 0, fmt.Errorf("huffman: no symbol for code %b", code)
}

// bitReader reads the core block most significant bit first.
type bitReader struct {
	b     []byte
	off   int
	shift uint
}

func (r *bitReader) bit() (uint32, error) {
	if r.off >= len(r.b) {
		return 0, fmt.Errorf("core block: %w", io.ErrUnexpectedEOF)
	}
	v := uint32(r.b[r.off]>>(7-r.shift)) & 1
	r.shift++
	if r.shift == 8 {
		r.shift = 0
		r.off++
	}
	return v, nil
}

func (r *bitReader) bits(n int) (uint32, error) {
	var v uint32
	for i := 0; i < n; i++ {
		b, err := r.bit()
		if err != nil {
			return 0, err
		}
		v = v<<1 | b
	}
	return v, nil
}
