// Package bcf reads BCF 2.x, the binary encoding of VCF. Records are
// returned with their dictionary indices unresolved.
package bcf

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/scttfrdmn/bioconv-go/pkg/vcf"
)

// Magic is the BCF 2.2 file signature.
var Magic = []byte{'B', 'C', 'F', 2, 2}

// ErrNotBCF is returned when the stream does not start with a BCF signature.
var ErrNotBCF = errors.New("bcf: invalid file signature")

// Type is a typed value's element type.
type Type uint8

const (
	TypeMissing Type = 0
	TypeInt8    Type = 1
	TypeInt16   Type = 2
	TypeInt32   Type = 3
	TypeFloat   Type = 5
	TypeChar    Type = 7
)

// Normalized integer sentinels. Narrow missing and end-of-vector values are
// widened to these.
const (
	IntMissing   int32 = math.MinInt32
	IntEndVector int32 = math.MinInt32 + 1
)

// Float sentinel bit patterns.
const (
	FloatMissing   uint32 = 0x7F800001
	FloatEndVector uint32 = 0x7F800002
)

// Vector is a typed vector. For FORMAT values it holds Len elements for each
// sample, back to back.
type Vector struct {
	Type   Type
	Len    int
	Ints   []int32
	Floats []uint32
	Chars  []byte
}

// Field is an INFO or FORMAT entry keyed by a string dictionary index.
type Field struct {
	Key   int32
	Value Vector
}

// Record is a BCF record with unresolved dictionary references.
type Record struct {
	Chrom int32
	// Pos is 0-based.
	Pos     int32
	RLen    int32
	Qual    uint32
	ID      string
	Alleles []string
	// Filters is nil when the FILTER vector is empty.
	Filters []int32
	Info    []Field
	Format  []Field
	NSample int
}

// QualMissing reports whether QUAL holds the missing sentinel.
func (r *Record) QualMissing() bool { return r.Qual == FloatMissing }

// Reader reads BCF records.
type Reader struct {
	r io.Reader
	h *vcf.Header
	n int
}

// NewReader reads the signature and header text from r.
func NewReader(r io.Reader) (*Reader, error) {
	magic := make([]byte, len(Magic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, fmt.Errorf("failed to read signature: %w", err)
	}
	if !bytes.Equal(magic[:4], Magic[:4]) {
		return nil, ErrNotBCF
	}
	var lText uint32
	if err := binary.Read(r, binary.LittleEndian, &lText); err != nil {
		return nil, fmt.Errorf("failed to read header length: %w", err)
	}
	text := make([]byte, lText)
	if _, err := io.ReadFull(r, text); err != nil {
		return nil, fmt.Errorf("failed to read header text: %w", err)
	}
	text = bytes.TrimRight(text, "\x00")
	h, err := vcf.ParseHeader(string(text))
	if err != nil {
		return nil, err
	}
	return &Reader{r: r, h: h}, nil
}

// Header returns the parsed header.
func (r *Reader) Header() *vcf.Header { return r.h }

// Read returns the next record, or io.EOF.
func (r *Reader) Read() (*Record, error) {
	var lens [8]byte
	n, err := io.ReadFull(r.r, lens[:])
	if err == io.EOF && n == 0 {
		return nil, io.EOF
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read record lengths: %w", err)
	}
	lShared := binary.LittleEndian.Uint32(lens[0:])
	lIndiv := binary.LittleEndian.Uint32(lens[4:])
	buf := make([]byte, int(lShared)+int(lIndiv))
	if _, err := io.ReadFull(r.r, buf); err != nil {
		return nil, fmt.Errorf("failed to read record body: %w", noEOF(err))
	}
	rec, err := decodeRecord(buf[:lShared], buf[lShared:])
	if err != nil {
		return nil, err
	}
	r.n++
	return rec, nil
}

func noEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

func decodeRecord(shared, indiv []byte) (*Record, error) {
	c := &cursor{b: shared}
	rec := &Record{}
	rec.Chrom = int32(c.u32())
	rec.Pos = int32(c.u32())
	rec.RLen = int32(c.u32())
	rec.Qual = c.u32()
	nInfoAllele := c.u32()
	nFmtSample := c.u32()
	if c.err != nil {
		return nil, fmt.Errorf("truncated fixed fields: %w", c.err)
	}
	nInfo := int(nInfoAllele & 0xffff)
	nAllele := int(nInfoAllele >> 16)
	rec.NSample = int(nFmtSample & 0xffffff)
	nFmt := int(nFmtSample >> 24)

	id, err := c.vector()
	if err != nil {
		return nil, fmt.Errorf("ID: %w", err)
	}
	if s := id.String(); s != vcf.Missing {
		rec.ID = s
	}
	for i := 0; i < nAllele; i++ {
		a, err := c.vector()
		if err != nil {
			return nil, fmt.Errorf("allele %d: %w", i, err)
		}
		rec.Alleles = append(rec.Alleles, string(bytes.TrimRight(a.Chars, "\x00")))
	}
	filters, err := c.vector()
	if err != nil {
		return nil, fmt.Errorf("FILTER: %w", err)
	}
	if len(filters.Ints) > 0 {
		rec.Filters = filters.Ints
	}
	for i := 0; i < nInfo; i++ {
		key, err := c.key()
		if err != nil {
			return nil, fmt.Errorf("INFO %d key: %w", i, err)
		}
		v, err := c.vector()
		if err != nil {
			return nil, fmt.Errorf("INFO %d value: %w", i, err)
		}
		rec.Info = append(rec.Info, Field{Key: key, Value: v})
	}

	c = &cursor{b: indiv}
	for i := 0; i < nFmt; i++ {
		key, err := c.key()
		if err != nil {
			return nil, fmt.Errorf("FORMAT %d key: %w", i, err)
		}
		typ, n, err := c.descriptor()
		if err != nil {
			return nil, fmt.Errorf("FORMAT %d descriptor: %w", i, err)
		}
		v, err := c.values(typ, n*rec.NSample)
		if err != nil {
			return nil, fmt.Errorf("FORMAT %d values: %w", i, err)
		}
		v.Len = n
		rec.Format = append(rec.Format, Field{Key: key, Value: v})
	}
	return rec, nil
}

// cursor decodes little-endian values from a byte slice. The first failure
// is sticky.
type cursor struct {
	b   []byte
	off int
	err error
}

func (c *cursor) need(n int) bool {
	if c.err != nil {
		return false
	}
	if c.off+n > len(c.b) {
		c.err = io.ErrUnexpectedEOF
		return false
	}
	return true
}

func (c *cursor) u8() uint8 {
	if !c.need(1) {
		return 0
	}
	v := c.b[c.off]
	c.off++
	return v
}

func (c *cursor) u16() uint16 {
	if !c.need(2) {
		return 0
	}
	v := binary.LittleEndian.Uint16(c.b[c.off:])
	c.off += 2
	return v
}

func (c *cursor) u32() uint32 {
	if !c.need(4) {
		return 0
	}
	v := binary.LittleEndian.Uint32(c.b[c.off:])
	c.off += 4
	return v
}

// descriptor reads a type byte and its element count, following the
// overflow count when the inline count is 15.
func (c *cursor) descriptor() (Type, int, error) {
	b := c.u8()
	if c.err != nil {
		return 0, 0, c.err
	}
	typ := Type(b & 0x0f)
	n := int(b >> 4)
	if n == 15 {
		v, err := c.vector()
		if err != nil {
			return 0, 0, fmt.Errorf("overflow count: %w", err)
		}
		if len(v.Ints) != 1 || v.Ints[0] < 0 {
			return 0, 0, fmt.Errorf("invalid overflow count")
		}
		n = int(v.Ints[0])
	}
	return typ, n, nil
}

func (c *cursor) vector() (Vector, error) {
	typ, n, err := c.descriptor()
	if err != nil {
		return Vector{}, err
	}
	v, err := c.values(typ, n)
	v.Len = n
	return v, err
}

// key reads a single typed integer.
func (c *cursor) key() (int32, error) {
	v, err := c.vector()
	if err != nil {
		return 0, err
	}
	if len(v.Ints) != 1 {
		return 0, fmt.Errorf("expected a single integer key, got %d values of type %d", v.Len, v.Type)
	}
	return v.Ints[0], nil
}

func (c *cursor) values(typ Type, n int) (Vector, error) {
	v := Vector{Type: typ}
	switch typ {
	case TypeMissing:
	case TypeInt8:
		v.Ints = make([]int32, n)
		for i := range v.Ints {
			v.Ints[i] = widen(int32(int8(c.u8())), -128, -127)
		}
	case TypeInt16:
		v.Ints = make([]int32, n)
		for i := range v.Ints {
			v.Ints[i] = widen(int32(int16(c.u16())), math.MinInt16, math.MinInt16+1)
		}
	case TypeInt32:
		v.Ints = make([]int32, n)
		for i := range v.Ints {
			v.Ints[i] = int32(c.u32())
		}
	case TypeFloat:
		v.Floats = make([]uint32, n)
		for i := range v.Floats {
			v.Floats[i] = c.u32()
		}
	case TypeChar:
		if c.need(n) {
			v.Chars = c.b[c.off : c.off+n]
			c.off += n
		}
	default:
		return v, fmt.Errorf("unknown value type %d", typ)
	}
	return v, c.err
}

func widen(v, missing, end int32) int32 {
	switch v {
	case missing:
		return IntMissing
	case end:
		return IntEndVector
	}
	return v
}
