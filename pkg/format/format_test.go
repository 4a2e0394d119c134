package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/scttfrdmn/bioconv-go/pkg/bioerr"
	"github.com/scttfrdmn/bioconv-go/pkg/source"
	"github.com/scttfrdmn/bioconv-go/pkg/value"
)

// row asserts that r holds exactly the given columns and values.
func row(t *testing.T, r *value.Record, kv ...interface{}) {
	t.Helper()
	require.Equal(t, len(kv)/2, r.Len(), "columns %v", r.Cols)
	for i := 0; i < len(kv); i += 2 {
		col := kv[i].(string)
		assert.Equal(t, col, r.Cols[i/2])
		var want value.Value
		switch v := kv[i+1].(type) {
		case string:
			want = value.String(v)
		case int:
			want = value.Int(int64(v))
		case value.Value:
			want = v
		default:
			t.Fatalf("unsupported expectation %T", v)
		}
		assert.True(t, value.Equal(want, r.Vals[i/2]), "%s: want %s, got %s", col, want.Text(), r.Vals[i/2].Text())
	}
}

func TestRegistryLookup(t *testing.T) {
	r := DefaultRegistry()

	for _, name := range []string{"fasta", "fastq", "sam", "vcf", "bcf", "gff", "gfa", "bed"} {
		for _, m := range source.Modes {
			a, err := r.Lookup(name, m)
			require.NoError(t, err, "%s/%s", name, m)
			assert.Equal(t, name, a.Name())
		}
	}
	for _, name := range []string{"bam", "cram"} {
		_, err := r.Lookup(name, source.Raw)
		require.NoError(t, err)
		_, err = r.Lookup(name, source.BlockCompressed)
		assert.True(t, bioerr.Is(err, bioerr.KindNotFound), name)
	}

	a, err := r.Lookup("FA", source.Raw)
	require.NoError(t, err)
	assert.Equal(t, "fasta", a.Name())
	a, err = r.Lookup("fq", source.BlockCompressed)
	require.NoError(t, err)
	assert.Equal(t, "fastq", a.Name())

	_, err = r.Lookup("genbank", source.Raw)
	assert.True(t, bioerr.Is(err, bioerr.KindNotFound))

	assert.Equal(t, []string{"bam", "bcf", "bed", "cram", "fasta", "fastq", "gfa", "gff", "sam", "vcf"}, r.Names())
	assert.Equal(t, []source.Mode{source.Raw}, r.Modes("bam"))
}

func TestFASTADescription(t *testing.T) {
	doc, err := Decode("fasta", []byte(">seq1 desc text\nACGT\n"), source.Raw, DecodeOptions{Description: true})
	require.NoError(t, err)
	require.Len(t, doc.Body(), 1)
	row(t, doc.Body()[0], "id", "seq1", "description", "desc text", "sequence", "ACGT")

	doc, err = Decode("fasta", []byte(">seq1 desc text\nACGT\n>seq2\nGG\nTT\n"), source.Raw, DecodeOptions{})
	require.NoError(t, err)
	require.Len(t, doc.Body(), 2)
	row(t, doc.Body()[0], "id", "seq1", "sequence", "ACGT")
	row(t, doc.Body()[1], "id", "seq2", "sequence", "GGTT")

	assert.True(t, value.Equal(value.FromRecord(value.NewRecord()), doc.Header))
}

func TestFASTQ(t *testing.T) {
	data := []byte("@r1 first read\nACGT\n+\nII#5\n@r2\nGG\n+\n!!\n")
	doc, err := Decode("fastq", data, source.Raw, DecodeOptions{Description: true, QualityScores: true})
	require.NoError(t, err)
	require.Len(t, doc.Body(), 2)
	row(t, doc.Body()[0], "id", "r1", "description", "first read", "sequence", "ACGT", "quality_scores", "II#5")
	row(t, doc.Body()[1], "id", "r2", "description", "", "sequence", "GG", "quality_scores", "!!")

	doc, err = Decode("fq", data, source.Raw, DecodeOptions{})
	require.NoError(t, err)
	row(t, doc.Body()[0], "id", "r1", "sequence", "ACGT")
}

func TestSequenceRoundTrip(t *testing.T) {
	tests := []struct {
		format string
		data   string
		opts   DecodeOptions
	}{
		{"fasta", ">a one\nACGT\n>b\nNNNN\n", DecodeOptions{Description: true}},
		{"fasta", ">a\nACGT\n", DecodeOptions{}},
		{"fastq", "@a one two\nACGT\n+\nIIII\n@b\nG\n+\n#\n", DecodeOptions{Description: true, QualityScores: true}},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			doc, err := Decode(tt.format, []byte(tt.data), source.Raw, tt.opts)
			require.NoError(t, err)
			out, err := Encode(tt.format, doc.Body())
			require.NoError(t, err)
			assert.Equal(t, tt.data, string(out))

			again, err := Decode(tt.format, out, source.Raw, tt.opts)
			require.NoError(t, err)
			assert.True(t, value.Equal(doc.Value(), again.Value()))
		})
	}
}

func TestEncodeErrors(t *testing.T) {
	_, err := Encode("fasta", nil)
	assert.True(t, bioerr.Is(err, bioerr.KindEncodeLayout))

	_, err = Encode("vcf", []*value.Record{value.NewRecord()})
	assert.True(t, bioerr.Is(err, bioerr.KindNotFound))
}

func TestInputNotText(t *testing.T) {
	_, err := Decode("fasta", []byte{'>', 0xff, 0xfe, '\n'}, source.Raw, DecodeOptions{})
	require.Error(t, err)
	assert.True(t, bioerr.Is(err, bioerr.KindInputType))
}

func TestBlockCompressedOnRawBytes(t *testing.T) {
	_, err := Decode("vcf", []byte("##fileformat=VCFv4.3\n"), source.BlockCompressed, DecodeOptions{})
	require.Error(t, err)
	assert.True(t, bioerr.Is(err, bioerr.KindHeaderDecode))
}

func TestBlockCompressedText(t *testing.T) {
	plain := []byte(">a\nAC\n>b\nGT\n")
	want, err := Decode("fasta", plain, source.Raw, DecodeOptions{})
	require.NoError(t, err)
	got, err := Decode("fasta", bgzfBytes(t, plain), source.BlockCompressed, DecodeOptions{})
	require.NoError(t, err)
	assert.True(t, value.Equal(want.Value(), got.Value()))
}

func TestDeterminism(t *testing.T) {
	inputs := map[string]string{
		"fasta": ">x y\nACGT\n",
		"vcf":   vcfHeader + vcfLine + "\n",
		"gfa":   "H\tVN:Z:1.0\nS\t1\tACGT\n",
		"bed":   "chr1\t1\t2\n",
	}
	p := NewPipeline(WithLogger(zap.NewNop()))
	for name, data := range inputs {
		a, err := p.Decode(name, []byte(data), source.Raw, DecodeOptions{Description: true})
		require.NoError(t, err, name)
		b, err := p.Decode(name, []byte(data), source.Raw, DecodeOptions{Description: true})
		require.NoError(t, err, name)
		assert.True(t, value.Equal(a.Value(), b.Value()), name)
	}
}

func TestRowsMatchSchema(t *testing.T) {
	doc, err := Decode("gfa", []byte(gfaDoc), source.Raw, DecodeOptions{})
	require.NoError(t, err)
	for _, tbl := range doc.Tables {
		for _, r := range doc.Rows(tbl.Name) {
			assert.Equal(t, []string(tbl.Schema), r.Cols, tbl.Name)
		}
	}
}
