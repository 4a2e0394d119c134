package gff

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scttfrdmn/bioconv-go/pkg/source"
)

func readAll(t *testing.T, text string) ([]*Feature, Header, error) {
	t.Helper()
	src, err := source.New([]byte(text), source.Raw)
	require.NoError(t, err)
	r := NewReader(src)
	var fs []*Feature
	for {
		f, err := r.Read()
		if err == io.EOF {
			return fs, r.Header(), nil
		}
		if err != nil {
			return fs, r.Header(), err
		}
		fs = append(fs, f)
	}
}

func TestRead(t *testing.T) {
	fs, h, err := readAll(t, "##gff-version 3.1.26\n"+
		"##sequence-region ctg123 1 1497228\n"+
		"##species https://example.org/taxon=9606\n"+
		"ctg123\t.\tgene\t1000\t9000\t.\t+\t.\tID=gene00001;Name=EDEN\n"+
		"# comment\n"+
		"ctg123\t.\tCDS\t1201\t1500\t1.5e2\t-\t2\tID=cds1;Parent=mrna1,mrna2;\r\n"+
		"###\n"+
		"ctg123\t.\tregion\t1\t10\t.\t?\t.\t.\n"+
		"##FASTA\n"+
		">ctg123\n"+
		"ACGT\n")
	require.NoError(t, err)

	assert.Equal(t, "3.1.26", h.Version)
	assert.Equal(t, []Region{{SeqID: "ctg123", Start: 1, End: 1497228}}, h.Regions)
	assert.Equal(t, []string{"species https://example.org/taxon=9606"}, h.Directives)

	require.Len(t, fs, 3)
	gene := fs[0]
	assert.Equal(t, "ctg123", gene.SeqID)
	assert.Equal(t, ".", gene.Source)
	assert.Equal(t, "gene", gene.Type)
	assert.Equal(t, int64(1000), gene.Start)
	assert.Equal(t, int64(9000), gene.End)
	assert.Nil(t, gene.Score)
	assert.Equal(t, byte('+'), gene.Strand)
	assert.Nil(t, gene.Phase)
	assert.Equal(t, Attributes{{"ID", "gene00001"}, {"Name", "EDEN"}}, gene.Attributes)
	assert.Equal(t, "ID=gene00001;Name=EDEN", gene.Attributes.String())
	name, ok := gene.Attributes.Get("Name")
	assert.True(t, ok)
	assert.Equal(t, "EDEN", name)

	cds := fs[1]
	assert.Equal(t, "150", cds.ScoreString())
	assert.Equal(t, "2", cds.PhaseString())
	assert.Equal(t, byte('-'), cds.Strand)
	assert.Equal(t, "ID=cds1;Parent=mrna1,mrna2", cds.Attributes.String())

	region := fs[2]
	assert.Equal(t, byte('?'), region.Strand)
	assert.Empty(t, region.Attributes)
	assert.Equal(t, "", region.Attributes.String())
	assert.Equal(t, "", region.ScoreString())
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		line string
		want error
	}{
		{"chr1\tsrc\tgene\t1\t5\t.\t+\t.", ErrFieldCount},
		{"chr1\tsrc\tgene\t0\t5\t.\t+\t.\tID=a", ErrPosition},
		{"chr1\tsrc\tgene\t1\tx\t.\t+\t.\tID=a", ErrPosition},
		{"chr1\tsrc\tgene\t1\t5\thigh\t+\t.\tID=a", ErrScore},
		{"chr1\tsrc\tgene\t1\t5\t.\tforward\t.\tID=a", ErrStrand},
		{"chr1\tsrc\tgene\t1\t5\t.\t+\t3\tID=a", ErrPhase},
		{"chr1\tsrc\tgene\t1\t5\t.\t+\t.\tgene_id \"a\"", ErrAttribute},
		{"chr1\tsrc\tgene\t1\t5\t.\t+\t.\t=a", ErrAttribute},
		{"##sequence-region chr1 1", ErrDirective},
	}
	for _, tt := range tests {
		_, _, err := readAll(t, "##gff-version 3\n"+tt.line+"\n")
		require.Error(t, err, tt.line)
		assert.True(t, errors.Is(err, tt.want), "%q: %v", tt.line, err)
		var pe *ParseError
		require.True(t, errors.As(err, &pe))
		assert.Equal(t, 2, pe.Line)
	}
}

func TestEmptyDocument(t *testing.T) {
	fs, h, err := readAll(t, "")
	require.NoError(t, err)
	assert.Empty(t, fs)
	assert.Equal(t, Header{}, h)
}
