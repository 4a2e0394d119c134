package source

import (
	"bytes"
	"io"
	"testing"

	"github.com/biogo/hts/bgzf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bgzfBytes(t *testing.T, payload string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := bgzf.NewWriter(&buf, 1)
	_, err := w.Write([]byte(payload))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestRawAndBlockCompressedReadTheSame(t *testing.T) {
	payload := ">seq1 desc\nACGT\n>seq2\nTTGA\n"

	raw, err := New([]byte(payload), Raw)
	require.NoError(t, err)
	rawOut, err := io.ReadAll(raw)
	require.NoError(t, err)

	bg, err := New(bgzfBytes(t, payload), BlockCompressed)
	require.NoError(t, err)
	defer bg.Close()
	bgOut, err := io.ReadAll(bg)
	require.NoError(t, err)

	assert.Equal(t, payload, string(rawOut))
	assert.Equal(t, rawOut, bgOut)
	assert.Equal(t, BlockCompressed, bg.Mode())
}

func TestBlockCompressedFailsOnFirstRead(t *testing.T) {
	src, err := New([]byte(">seq1\nACGT\n"), BlockCompressed)
	require.NoError(t, err, "construction must not inspect the bytes")

	_, err = src.ReadBytes('\n')
	require.Error(t, err)
	assert.NotErrorIs(t, err, io.EOF)
	assert.Contains(t, err.Error(), "BGZF")

	_, err = src.Peek(1)
	assert.Error(t, err, "the failure is sticky")
	assert.NoError(t, src.Close())
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", Raw, false},
		{"raw", Raw, false},
		{"BGZF", BlockCompressed, false},
		{"gz", BlockCompressed, false},
		{"zip", Raw, true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
	assert.Equal(t, "bgzf", BlockCompressed.String())
}
