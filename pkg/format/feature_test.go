package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scttfrdmn/bioconv-go/pkg/bioerr"
	"github.com/scttfrdmn/bioconv-go/pkg/source"
	"github.com/scttfrdmn/bioconv-go/pkg/value"
)

const gffDoc = "##gff-version 3\n" +
	"##sequence-region chr1 1 1000\n" +
	"##date 2024-01-01\n" +
	"chr1\tsrc\tgene\t10\t20\t.\t+\t.\tID=gene1;Name=foo;Alias=a,b\n" +
	"# a comment\n" +
	"\n" +
	"chr1\tsrc\tCDS\t12\t18\t0.5\t-\t0\tID=cds1\n" +
	"##FASTA\n" +
	">chr1\n" +
	"ACGT\n"

func TestGFF(t *testing.T) {
	doc, err := Decode("gff", []byte(gffDoc), source.Raw, DecodeOptions{})
	require.NoError(t, err)
	require.Len(t, doc.Body(), 2)

	first := doc.Body()[0]
	assert.Equal(t, []string(GFFSchema), first.Cols)
	for col, want := range map[string]value.Value{
		"ref_seq_name": value.String("chr1"),
		"source":       value.String("src"),
		"ty":           value.String("gene"),
		"start":        value.Int(10),
		"end":          value.Int(20),
		"score":        value.String(""),
		"strand":       value.String("+"),
		"phase":        value.String(""),
	} {
		got, _ := first.Get(col)
		assert.True(t, value.Equal(want, got), "%s: got %s", col, got.Text())
	}
	attrs, _ := first.GetString("attributes")
	assert.Equal(t, "ID=gene1;Name=foo;Alias=a,b", attrs)

	second := doc.Body()[1]
	score, _ := second.GetString("score")
	assert.Equal(t, "0.5", score)
	strand, _ := second.GetString("strand")
	assert.Equal(t, "-", strand)
	phase, _ := second.GetString("phase")
	assert.Equal(t, "0", phase)
	attrs, _ = second.GetString("attributes")
	assert.Equal(t, "ID=cds1", attrs)

	h := doc.Header.Record
	assert.Equal(t, []string{"version", "sequence_regions", "directives"}, h.Cols)
	version, _ := h.GetString("version")
	assert.Equal(t, "3", version)
	assert.Equal(t, int64(1), field(t, h, "sequence_regions", "chr1", "start").Int)
	assert.Equal(t, int64(1000), field(t, h, "sequence_regions", "chr1", "end").Int)
	assert.True(t, value.Equal(value.Strings([]string{"date 2024-01-01"}), field(t, h, "directives")))
}

func TestGFFNoDirectives(t *testing.T) {
	doc, err := Decode("gff", []byte("chr1\tsrc\tgene\t1\t5\t.\t.\t.\tID=g\n"), source.Raw, DecodeOptions{})
	require.NoError(t, err)
	require.Len(t, doc.Body(), 1)
	version, _ := doc.Header.Record.GetString("version")
	assert.Equal(t, "No version specified.", version)
	strand, _ := doc.Body()[0].GetString("strand")
	assert.Equal(t, ".", strand)
}

func TestGFF3Line(t *testing.T) {
	data := "##gff-version 3\nchr1\tsrc\tgene\t10\t20\t.\t+\t.\tID=gene1;Name=foo\n"
	doc, err := Decode("gff", []byte(data), source.Raw, DecodeOptions{})
	require.NoError(t, err)
	require.Len(t, doc.Body(), 1)
	row(t, doc.Body()[0],
		"ref_seq_name", "chr1",
		"source", "src",
		"ty", "gene",
		"start", 10,
		"end", 20,
		"score", "",
		"strand", "+",
		"phase", "",
		"attributes", "ID=gene1;Name=foo",
	)
}

func TestGFFBadLine(t *testing.T) {
	data := "##gff-version 3\n" +
		"chr1\tsrc\tgene\t1\t5\t.\t+\t.\tID=g1\n" +
		"chr1\tsrc\tgene\t1\t5\t.\t+\t.\tID g2\n"
	_, err := Decode("gff", []byte(data), source.Raw, DecodeOptions{})
	require.Error(t, err)
	assert.True(t, bioerr.Is(err, bioerr.KindRecordDecode))
	assert.Equal(t, 1, bioerr.IndexOf(err))
}

func TestGFFBadSequenceRegion(t *testing.T) {
	_, err := Decode("gff", []byte("##sequence-region chr1 x\nchr1\tsrc\tgene\t1\t5\t.\t.\t.\tID=g\n"), source.Raw, DecodeOptions{})
	require.Error(t, err)
	assert.True(t, bioerr.Is(err, bioerr.KindRecordDecode))
}

func TestBED(t *testing.T) {
	data := "track name=demo\n" +
		"browser position chr1:1-100\n" +
		"# comment\n" +
		"chr1\t0\t100\n" +
		"chr2\t5\t10\n"
	doc, err := Decode("bed", []byte(data), source.Raw, DecodeOptions{})
	require.NoError(t, err)
	require.Len(t, doc.Body(), 2)
	row(t, doc.Body()[0], "chrom", "chr1", "chromStart", 0, "chromEnd", 100)
	row(t, doc.Body()[1], "chrom", "chr2", "chromStart", 5, "chromEnd", 10)
	assert.Equal(t, 0, doc.Header.Record.Len())
}

const gfaDoc = "H\tVN:Z:1.0\tTS:i:4\n" +
	"S\t1\tACGT\n" +
	"S\t2\tGG\tLN:i:2\n" +
	"L\t1\t+\t2\t-\t0M\n" +
	"C\t1\t+\t2\t+\t1\t2M\n" +
	"P\tp\t1+,2-\t0M\n"

func TestGFA(t *testing.T) {
	doc, err := Decode("gfa", []byte(gfaDoc), source.Raw, DecodeOptions{})
	require.NoError(t, err)

	h := doc.Header.Record
	version, _ := h.GetString("version")
	assert.Equal(t, "1.0", version)
	assert.True(t, value.Equal(value.Strings([]string{"TS:i:4"}), field(t, h, "optional_fields")))

	segs := doc.Rows(SegmentsTable)
	require.Len(t, segs, 2)
	row(t, segs[0], "name", "1", "sequence", "ACGT", "optional_fields", value.List())
	row(t, segs[1], "name", "2", "sequence", "GG", "optional_fields", value.Strings([]string{"LN:i:2"}))

	links := doc.Rows(LinksTable)
	require.Len(t, links, 1)
	row(t, links[0],
		"from_orient", "+",
		"to_orient", "-",
		"from_segment", "1",
		"to_segment", "2",
		"overlaps", "0M",
		"optional_fields", value.List(),
	)

	cs := doc.Rows(ContainmentsTable)
	require.Len(t, cs, 1)
	row(t, cs[0],
		"container_name", "1",
		"container_orient", "+",
		"contained_name", "2",
		"contained_orient", "+",
		"pos", 1,
		"overlap", "2M",
		"optional_fields", value.List(),
	)

	paths := doc.Rows(PathsTable)
	require.Len(t, paths, 1)
	row(t, paths[0], "path_name", "p", "segment_names", "1+,2-", "overlaps", "0M", "optional_fields", value.List())

	assert.Equal(t, []string{"header", "segments", "links", "containments", "paths"}, doc.Value().Record.Cols)
}

func TestGFANoHeader(t *testing.T) {
	doc, err := Decode("gfa", []byte("S\t1\t*\n"), source.Raw, DecodeOptions{})
	require.NoError(t, err)
	assert.True(t, value.Equal(value.String("No header."), doc.Header))
	links, ok := doc.Value().Record.Get("links")
	require.True(t, ok)
	assert.Equal(t, value.KindList, links.Kind)
	assert.Empty(t, links.List)
}

func TestGFABadLine(t *testing.T) {
	_, err := Decode("gfa", []byte("S\t1\tA\nS\t2\tC\tXX:i:notanint\n"), source.Raw, DecodeOptions{})
	require.Error(t, err)
	assert.True(t, bioerr.Is(err, bioerr.KindRecordDecode))
	assert.Equal(t, 1, bioerr.IndexOf(err))
}
