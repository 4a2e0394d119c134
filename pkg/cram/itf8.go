package cram

import (
	"encoding/binary"
	"fmt"
	"io"
	"math/bits"

	"github.com/biogo/hts/cram/encoding/itf8"
	"github.com/biogo/hts/cram/encoding/ltf8"
)

// readITF8 reads a CRAM variable-length 32-bit integer from br.
func readITF8(br io.ByteReader) (int32, error) {
	b, err := readVarint(br, itf8Len)
	if err != nil {
		return 0, err
	}
	v, _, _ := itf8.Decode(b)
	return v, nil
}

// readLTF8 reads a CRAM variable-length 64-bit integer from br.
func readLTF8(br io.ByteReader) (int64, error) {
	b, err := readVarint(br, ltf8Len)
	if err != nil {
		return 0, err
	}
	v, _, _ := ltf8.Decode(b)
	return v, nil
}

// itf8Len and ltf8Len give the encoded length from the first byte: one
// plus the count of leading one bits, capped at the format maximum.
func itf8Len(b0 byte) int { return bits.LeadingZeros8(^(b0 & 0xf0)) + 1 }
func ltf8Len(b0 byte) int { return bits.LeadingZeros8(^b0) + 1 }

// readVarint collects the bytes of one ITF8 or LTF8 value.
func readVarint(br io.ByteReader, length func(byte) int) ([]byte, error) {
	b0, err := br.ReadByte()
	if err != nil {
		return nil, err
	}
	var buf [9]byte
	buf[0] = b0
	n := length(b0)
	for i := 1; i < n; i++ {
		if buf[i], err = br.ReadByte(); err != nil {
			return nil, noEOF(err)
		}
	}
	return buf[:n], nil
}

func noEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

// cursor reads CRAM primitives from an in-memory byte slice.
type cursor struct {
	b   []byte
	off int
}

func newCursor(b []byte) *cursor { return &cursor{b: b} }

func (c *cursor) ReadByte() (byte, error) {
	if c.off >= len(c.b) {
		return 0, io.EOF
	}
	v := c.b[c.off]
	c.off++
	return v, nil
}

func (c *cursor) len() int { return len(c.b) - c.off }

func (c *cursor) itf8() (int32, error) {
	v, n, ok := itf8.Decode(c.b[c.off:])
	if !ok {
		return 0, io.ErrUnexpectedEOF
	}
	c.off += n
	return v, nil
}

func (c *cursor) ltf8() (int64, error) {
	v, n, ok := ltf8.Decode(c.b[c.off:])
	if !ok {
		return 0, io.ErrUnexpectedEOF
	}
	c.off += n
	return v, nil
}

func (c *cursor) next(n int) ([]byte, error) {
	if n < 0 || c.off+n > len(c.b) {
		return nil, fmt.Errorf("need %d bytes, %d left: %w", n, c.len(), io.ErrUnexpectedEOF)
	}
	v := c.b[c.off : c.off+n]
	c.off += n
	return v, nil
}

func (c *cursor) uint32() (uint32, error) {
	b, err := c.next(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// itf8s reads an ITF8 count followed by that many ITF8 values.
func (c *cursor) itf8s() ([]int32, error) {
	n, err := c.itf8()
	if err != nil {
		return nil, err
	}
	if n < 0 || int(n) > c.len() {
		return nil, fmt.Errorf("invalid array length %d", n)
	}
	out := make([]int32, n)
	for i := range out {
		if out[i], err = c.itf8(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// byteArray reads an ITF8 length followed by that many bytes.
func (c *cursor) byteArray() ([]byte, error) {
	n, err := c.itf8()
	if err != nil {
		return nil, err
	}
	return c.next(int(n))
}
