package dictionary

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scttfrdmn/bioconv-go/pkg/bcf"
	"github.com/scttfrdmn/bioconv-go/pkg/bcf/bcftest"
	"github.com/scttfrdmn/bioconv-go/pkg/bioerr"
	"github.com/scttfrdmn/bioconv-go/pkg/vcf"
)

const header = "##fileformat=VCFv4.3\n" +
	"##contig=<ID=chr1,length=1000>\n" +
	"##contig=<ID=chr2,length=2000>\n" +
	"##FILTER=<ID=q10,Description=\"Low quality\">\n" +
	"##INFO=<ID=DP,Number=1,Type=Integer,Description=\"Depth\">\n" +
	"##INFO=<ID=AF,Number=A,Type=Float,Description=\"Frequency\">\n" +
	"##INFO=<ID=DB,Number=0,Type=Flag,Description=\"dbSNP\">\n" +
	"##FORMAT=<ID=GT,Number=1,Type=String,Description=\"Genotype\">\n" +
	"##FORMAT=<ID=DP,Number=1,Type=Integer,Description=\"Depth\">\n" +
	"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tS1\tS2\n"

func mustHeader(t *testing.T, text string) *vcf.Header {
	t.Helper()
	h, err := vcf.ParseHeader(text)
	require.NoError(t, err)
	return h
}

func TestIndexAssignment(t *testing.T) {
	d, err := New(mustHeader(t, header))
	require.NoError(t, err)

	for i, want := range []string{"PASS", "q10", "DP", "AF", "DB", "GT"} {
		got, err := d.String(int32(i))
		require.NoError(t, err)
		assert.Equal(t, want, got, "string index %d", i)
	}
	_, err = d.String(6)
	assert.True(t, bioerr.Is(err, bioerr.KindFormatIntegrity))

	c, err := d.Contig(1)
	require.NoError(t, err)
	assert.Equal(t, "chr2", c)

	s, err := d.Sample(1)
	require.NoError(t, err)
	assert.Equal(t, "S2", s)
	_, err = d.Sample(2)
	assert.Error(t, err)
}

func TestExplicitIDX(t *testing.T) {
	text := "##fileformat=VCFv4.3\n" +
		"##FILTER=<ID=PASS,Description=\"ok\",IDX=0>\n" +
		"##INFO=<ID=DP,Number=1,Type=Integer,Description=\"d\",IDX=5>\n" +
		"##FORMAT=<ID=DP,Number=1,Type=Integer,Description=\"d\",IDX=5>\n" +
		"##contig=<ID=x,IDX=3>\n" +
		"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\n"
	d, err := New(mustHeader(t, text))
	require.NoError(t, err)

	dp, err := d.String(5)
	require.NoError(t, err)
	assert.Equal(t, "DP", dp)
	x, err := d.Contig(3)
	require.NoError(t, err)
	assert.Equal(t, "x", x)

	conflict := strings.Replace(text, "##FORMAT=<ID=DP,Number=1,Type=Integer,Description=\"d\",IDX=5>", "##FORMAT=<ID=GQ,Number=1,Type=Integer,Description=\"d\",IDX=5>", 1)
	_, err = New(mustHeader(t, conflict))
	assert.True(t, bioerr.Is(err, bioerr.KindFormatIntegrity))
}

func TestResolveMatchesText(t *testing.T) {
	line := "chr2\t100\trs7\tA\tC,G\t12.5\tq10\tDP=8;AF=0.25,0.5;DB\tGT:DP\t0/1:3\t1|2:."

	want, err := vcf.ParseRecord(line, mustHeader(t, header))
	require.NoError(t, err)

	data := bcftest.New(header).Add(bcftest.Record{
		Chrom:   1,
		Pos:     99,
		RLen:    1,
		Qual:    12.5,
		ID:      "rs7",
		Alleles: []string{"A", "C", "G"},
		Filters: []int32{1},
		Info: []bcftest.Info{
			{Key: 2, Value: bcftest.Ints(8)},
			{Key: 3, Value: bcftest.Floats(0.25, 0.5)},
			{Key: 4, Value: bcftest.Flag()},
		},
		Format: []bcftest.Format{
			{Key: 5, Len: 2, Ints: append(bcftest.GT(false, 0, 1), bcftest.GT(true, 1, 2)...)},
			{Key: 2, Len: 1, Ints: []int32{3, bcf.IntMissing}},
		},
		NSample: 2,
	}).Bytes()

	r, err := bcf.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	d, err := New(r.Header())
	require.NoError(t, err)
	raw, err := r.Read()
	require.NoError(t, err)

	got, err := d.Resolve(raw)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, "GT:DP\t0/1:3\t1|2:.", got.GenotypesText())
}

func TestResolveDanglingIndex(t *testing.T) {
	d, err := New(mustHeader(t, header))
	require.NoError(t, err)

	_, err = d.Resolve(&bcf.Record{Chrom: 9, Alleles: []string{"A"}, Qual: bcf.FloatMissing})
	require.Error(t, err)
	assert.True(t, bioerr.Is(err, bioerr.KindFormatIntegrity))

	_, err = d.Resolve(&bcf.Record{Chrom: 0, Alleles: []string{"A"}, Qual: bcf.FloatMissing, Filters: []int32{42}})
	assert.True(t, bioerr.Is(err, bioerr.KindFormatIntegrity))
}
