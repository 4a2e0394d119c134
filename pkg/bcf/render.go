package bcf

import (
	"bytes"
	"math"
	"strconv"
	"strings"

	"github.com/scttfrdmn/bioconv-go/pkg/vcf"
)

// String renders the whole vector as VCF text.
func (v Vector) String() string {
	return v.render(0, v.Len)
}

// Sample renders the i-th per-sample slice of a FORMAT vector.
func (v Vector) Sample(i int) string {
	return v.render(i*v.Len, v.Len)
}

// Genotype renders the i-th per-sample slice of a GT vector, e.g. "0|1".
func (v Vector) Genotype(i int) string {
	if v.Ints == nil {
		return v.Sample(i)
	}
	var b strings.Builder
	for j, g := range v.Ints[i*v.Len : (i+1)*v.Len] {
		if g == IntEndVector {
			break
		}
		if j > 0 {
			if g&1 == 1 {
				b.WriteByte('|')
			} else {
				b.WriteByte('/')
			}
		}
		if g == IntMissing || g>>1 == 0 {
			b.WriteString(vcf.Missing)
			continue
		}
		b.WriteString(strconv.Itoa(int(g>>1) - 1))
	}
	if b.Len() == 0 {
		return vcf.Missing
	}
	return b.String()
}

func (v Vector) render(off, n int) string {
	switch v.Type {
	case TypeChar:
		s := v.Chars[off : off+n]
		if i := bytes.IndexByte(s, 0); i >= 0 {
			s = s[:i]
		}
		if len(s) == 0 {
			return vcf.Missing
		}
		return string(s)
	case TypeFloat:
		parts := make([]string, 0, n)
		for _, f := range v.Floats[off : off+n] {
			if f == FloatEndVector {
				break
			}
			if f == FloatMissing {
				parts = append(parts, vcf.Missing)
				continue
			}
			parts = append(parts, vcf.FormatFloat(math.Float32frombits(f)))
		}
		return joinOrMissing(parts)
	case TypeInt8, TypeInt16, TypeInt32:
		parts := make([]string, 0, n)
		for _, x := range v.Ints[off : off+n] {
			if x == IntEndVector {
				break
			}
			if x == IntMissing {
				parts = append(parts, vcf.Missing)
				continue
			}
			parts = append(parts, strconv.Itoa(int(x)))
		}
		return joinOrMissing(parts)
	}
	return vcf.Missing
}

func joinOrMissing(parts []string) string {
	if len(parts) == 0 {
		return vcf.Missing
	}
	return strings.Join(parts, ",")
}
