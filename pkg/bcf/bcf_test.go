package bcf_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scttfrdmn/bioconv-go/pkg/bcf"
	"github.com/scttfrdmn/bioconv-go/pkg/bcf/bcftest"
)

const header = "##fileformat=VCFv4.3\n" +
	"##FILTER=<ID=PASS,Description=\"All filters passed\",IDX=0>\n" +
	"##INFO=<ID=DP,Number=1,Type=Integer,Description=\"Depth\",IDX=1>\n" +
	"##FORMAT=<ID=GT,Number=1,Type=String,Description=\"Genotype\",IDX=2>\n" +
	"##contig=<ID=20,length=100,IDX=0>\n" +
	"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tA\tB\n"

func TestReadRecord(t *testing.T) {
	data := bcftest.New(header).Add(bcftest.Record{
		Chrom:   0,
		Pos:     9,
		RLen:    1,
		Qual:    30.5,
		ID:      "rs1",
		Alleles: []string{"G", "A", "T"},
		Filters: []int32{0},
		Info:    []bcftest.Info{{Key: 1, Value: bcftest.Ints(14)}},
		Format: []bcftest.Format{{
			Key:  2,
			Len:  2,
			Ints: append(bcftest.GT(true, 0, 1), bcftest.GT(false, 2, -1)...),
		}},
		NSample: 2,
	}).Bytes()

	r, err := bcf.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, r.Header().Samples)

	rec, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, int32(9), rec.Pos)
	assert.Equal(t, "rs1", rec.ID)
	assert.Equal(t, []string{"G", "A", "T"}, rec.Alleles)
	assert.Equal(t, []int32{0}, rec.Filters)
	assert.False(t, rec.QualMissing())
	require.Len(t, rec.Info, 1)
	assert.Equal(t, "14", rec.Info[0].Value.String())
	require.Len(t, rec.Format, 1)
	assert.Equal(t, "0|1", rec.Format[0].Value.Genotype(0))
	assert.Equal(t, "2/.", rec.Format[0].Value.Genotype(1))

	_, err = r.Read()
	assert.Equal(t, io.EOF, err)
}

func TestVectorRendering(t *testing.T) {
	tests := []struct {
		name string
		v    bcf.Vector
		want string
	}{
		{"ints", bcf.Vector{Type: bcf.TypeInt16, Len: 3, Ints: []int32{1, bcf.IntMissing, 3}}, "1,.,3"},
		{"end of vector", bcf.Vector{Type: bcf.TypeInt8, Len: 3, Ints: []int32{7, bcf.IntEndVector, bcf.IntEndVector}}, "7"},
		{"all missing", bcf.Vector{Type: bcf.TypeInt8, Len: 1, Ints: []int32{bcf.IntMissing}}, "."},
		{"floats", bcf.Vector{Type: bcf.TypeFloat, Len: 2, Floats: []uint32{0x3f000000, bcf.FloatMissing}}, "0.5,."},
		{"chars", bcf.Vector{Type: bcf.TypeChar, Len: 4, Chars: []byte("ab\x00\x00")}, "ab"},
		{"empty chars", bcf.Vector{Type: bcf.TypeChar}, "."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.v.String())
		})
	}
}

func TestSignatureAndTruncation(t *testing.T) {
	_, err := bcf.NewReader(bytes.NewReader([]byte("VCF\x02\x02rest")))
	assert.ErrorIs(t, err, bcf.ErrNotBCF)

	data := bcftest.New(header).Add(bcftest.Record{Alleles: []string{"A"}, NoQual: true}).Bytes()
	r, err := bcf.NewReader(bytes.NewReader(data[:len(data)-2]))
	require.NoError(t, err)
	_, err = r.Read()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}
