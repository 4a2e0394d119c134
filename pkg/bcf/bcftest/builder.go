// Package bcftest builds small BCF documents for tests.
package bcftest

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/scttfrdmn/bioconv-go/pkg/bcf"
)

// Info is an INFO entry; Value is an encoded typed vector from Ints,
// Floats, Str or Flag.
type Info struct {
	Key   int32
	Value []byte
}

// Format is a FORMAT entry holding Len int8 values per sample, or Len
// bytes per sample when Chars is set.
type Format struct {
	Key   int32
	Len   int
	Ints  []int32
	Chars []byte
}

// Record describes one record to encode.
type Record struct {
	Chrom   int32
	Pos     int32
	RLen    int32
	Qual    float32
	NoQual  bool
	ID      string
	Alleles []string
	Filters []int32
	Info    []Info
	Format  []Format
	NSample int
}

// Builder accumulates an uncompressed BCF stream.
type Builder struct {
	buf bytes.Buffer
}

// New writes the signature and header text.
func New(header string) *Builder {
	b := &Builder{}
	b.buf.Write(bcf.Magic)
	text := append([]byte(header), 0)
	binary.Write(&b.buf, binary.LittleEndian, uint32(len(text)))
	b.buf.Write(text)
	return b
}

// Bytes returns the encoded stream.
func (b *Builder) Bytes() []byte { return b.buf.Bytes() }

// Add encodes r.
func (b *Builder) Add(r Record) *Builder {
	var shared, indiv bytes.Buffer
	le := binary.LittleEndian
	binary.Write(&shared, le, r.Chrom)
	binary.Write(&shared, le, r.Pos)
	binary.Write(&shared, le, r.RLen)
	qual := math.Float32bits(r.Qual)
	if r.NoQual {
		qual = bcf.FloatMissing
	}
	binary.Write(&shared, le, qual)
	binary.Write(&shared, le, uint32(len(r.Alleles))<<16|uint32(len(r.Info)))
	binary.Write(&shared, le, uint32(len(r.Format))<<24|uint32(r.NSample))
	shared.Write(Str(r.ID))
	for _, a := range r.Alleles {
		shared.Write(Str(a))
	}
	if len(r.Filters) == 0 {
		shared.WriteByte(0)
	} else {
		shared.Write(Ints(r.Filters...))
	}
	for _, in := range r.Info {
		shared.Write(Ints(in.Key))
		shared.Write(in.Value)
	}
	for _, f := range r.Format {
		indiv.Write(Ints(f.Key))
		if f.Chars != nil {
			indiv.Write(descriptor(bcf.TypeChar, f.Len))
			indiv.Write(f.Chars)
			continue
		}
		indiv.Write(descriptor(bcf.TypeInt8, f.Len))
		for _, v := range f.Ints {
			indiv.WriteByte(narrow(v))
		}
	}
	binary.Write(&b.buf, le, uint32(shared.Len()))
	binary.Write(&b.buf, le, uint32(indiv.Len()))
	b.buf.Write(shared.Bytes())
	b.buf.Write(indiv.Bytes())
	return b
}

// Ints encodes an int8 vector when every value fits, int32 otherwise.
// bcf.IntMissing and bcf.IntEndVector are narrowed to their int8 forms.
func Ints(xs ...int32) []byte {
	fits := true
	for _, x := range xs {
		if x != bcf.IntMissing && x != bcf.IntEndVector && (x < -120 || x > 127) {
			fits = false
		}
	}
	var out bytes.Buffer
	if fits {
		out.Write(descriptor(bcf.TypeInt8, len(xs)))
		for _, x := range xs {
			out.WriteByte(narrow(x))
		}
		return out.Bytes()
	}
	out.Write(descriptor(bcf.TypeInt32, len(xs)))
	for _, x := range xs {
		binary.Write(&out, binary.LittleEndian, x)
	}
	return out.Bytes()
}

// Floats encodes a float vector.
func Floats(fs ...float32) []byte {
	var out bytes.Buffer
	out.Write(descriptor(bcf.TypeFloat, len(fs)))
	for _, f := range fs {
		binary.Write(&out, binary.LittleEndian, math.Float32bits(f))
	}
	return out.Bytes()
}

// Str encodes a character vector. The empty string is encoded as missing.
func Str(s string) []byte {
	if s == "" {
		return []byte{0x07}
	}
	return append(descriptor(bcf.TypeChar, len(s)), s...)
}

// Flag encodes a present flag.
func Flag() []byte { return []byte{0x00} }

// GT encodes one sample's genotype; allele -1 is missing.
func GT(phased bool, alleles ...int) []int32 {
	out := make([]int32, len(alleles))
	for i, a := range alleles {
		v := int32(a+1) << 1
		if i > 0 && phased {
			v |= 1
		}
		out[i] = v
	}
	return out
}

func descriptor(t bcf.Type, n int) []byte {
	if n < 15 {
		return []byte{byte(n<<4) | byte(t)}
	}
	return append([]byte{0xf0 | byte(t)}, Ints(int32(n))...)
}

func narrow(v int32) byte {
	switch v {
	case bcf.IntMissing:
		return 0x80
	case bcf.IntEndVector:
		return 0x81
	}
	return byte(int8(v))
}
