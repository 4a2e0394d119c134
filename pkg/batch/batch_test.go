package batch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scttfrdmn/bioconv-go/pkg/bioerr"
	"github.com/scttfrdmn/bioconv-go/pkg/format"
	"github.com/scttfrdmn/bioconv-go/pkg/source"
)

func TestNewConfig(t *testing.T) {
	c := NewConfig()
	assert.GreaterOrEqual(t, c.Workers, 1)
	assert.Greater(t, c.MemoryBudget, int64(0))
	assert.Equal(t, source.Raw, c.Mode)
	require.NoError(t, c.Validate())

	var buf bytes.Buffer
	c.ShowConfig(&buf)
	assert.Contains(t, buf.String(), fmt.Sprintf("Workers: %d", c.Workers))
	assert.Contains(t, buf.String(), "Mode: raw")
}

func TestValidate(t *testing.T) {
	c := NewConfig()
	c.Workers = 0
	assert.Error(t, c.Validate())

	c = NewConfig()
	c.MemoryBudget = 0
	assert.Error(t, c.Validate())

	c = NewConfig()
	c.MemoryBudget = c.availableMemory + GB
	assert.Error(t, c.Validate())
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"512", 512},
		{"4K", 4 * KB},
		{"64m", 64 * MB},
		{"2G", 2 * GB},
		{"2GB", 2 * GB},
	}
	for _, tt := range tests {
		got, err := ParseSize(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
	_, err := ParseSize("lots")
	assert.Error(t, err)
}

func memLoader(files map[string]string) LoadFunc {
	return func(_ context.Context, loc string) ([]byte, error) {
		data, ok := files[loc]
		if !ok {
			return nil, errors.New("no such input")
		}
		return []byte(data), nil
	}
}

func testConfig(workers int) *Config {
	c := NewConfig()
	c.Workers = workers
	c.MemoryBudget = 16
	return c
}

func TestRun(t *testing.T) {
	files := map[string]string{}
	var locs []string
	for i := 0; i < 10; i++ {
		loc := fmt.Sprintf("in%d.fa", i)
		files[loc] = fmt.Sprintf(">s%d\nACGTACGTACGTACGTACGT\n", i)
		locs = append(locs, loc)
	}

	r, err := NewRunner(testConfig(3), format.NewPipeline(), memLoader(files), nil)
	require.NoError(t, err)
	results, err := r.Run(context.Background(), "fasta", locs)
	require.NoError(t, err)
	require.Len(t, results, len(locs))
	for i, res := range results {
		assert.Equal(t, locs[i], res.Location)
		require.Len(t, res.Document.Body(), 1)
		id, _ := res.Document.Body()[0].GetString("id")
		assert.Equal(t, fmt.Sprintf("s%d", i), id)
	}
}

func TestRunError(t *testing.T) {
	files := map[string]string{
		"good.vcf": "##fileformat=VCFv4.3\n#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\n",
		"bad.vcf":  "##fileformat=VCFv4.3\n#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\nchr1\tx\t.\tA\t.\t.\t.\t.\n",
	}
	r, err := NewRunner(testConfig(1), format.NewPipeline(), memLoader(files), nil)
	require.NoError(t, err)

	_, err = r.Run(context.Background(), "vcf", []string{"good.vcf", "bad.vcf"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.vcf")
	assert.True(t, bioerr.Is(err, bioerr.KindRecordDecode))

	_, err = r.Run(context.Background(), "vcf", []string{"missing.vcf"})
	assert.Error(t, err)
}

func TestNewRunnerRejectsInvalidConfig(t *testing.T) {
	c := testConfig(0)
	_, err := NewRunner(c, format.NewPipeline(), memLoader(nil), nil)
	assert.Error(t, err)
}
