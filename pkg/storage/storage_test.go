package storage

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseS3URI(t *testing.T) {
	tests := []struct {
		uri    string
		bucket string
		key    string
		ok     bool
	}{
		{"s3://bucket/reads.bam", "bucket", "reads.bam", true},
		{"s3://bucket/a/b/c.vcf.gz", "bucket", "a/b/c.vcf.gz", true},
		{"s3://bucket", "", "", false},
		{"s3://bucket/", "", "", false},
		{"s3:///key", "", "", false},
		{"/local/path", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, key, err := ParseS3URI(tt.uri)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.bucket, bucket)
			assert.Equal(t, tt.key, key)
		})
	}
}

func TestLocalStorage(t *testing.T) {
	ctx := context.Background()
	s := NewLocalStorage(t.TempDir())

	ok, err := s.Exists(ctx, "out/doc.json")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.WriteFile(ctx, "out/doc.json", []byte(`{"header":{}}`)))
	ok, err = s.Exists(ctx, "out/doc.json")
	require.NoError(t, err)
	assert.True(t, ok)

	data, err := s.ReadFile(ctx, "out/doc.json")
	require.NoError(t, err)
	assert.Equal(t, `{"header":{}}`, string(data))
	assert.True(t, strings.HasSuffix(s.Location("out/doc.json"), filepath.Join("out", "doc.json")))
}

func TestStreams(t *testing.T) {
	ctx := context.Background()
	var out bytes.Buffer
	st := Streams{In: strings.NewReader(">a\nACGT\n"), Out: &out}

	data, err := st.Load(ctx, Stdio)
	require.NoError(t, err)
	assert.Equal(t, ">a\nACGT\n", string(data))

	require.NoError(t, st.Save(ctx, Stdio, []byte("done")))
	assert.Equal(t, "done", out.String())

	path := filepath.Join(t.TempDir(), "x.fa")
	require.NoError(t, st.Save(ctx, path, data))
	back, err := st.Load(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, data, back)

	_, err = st.Load(ctx, filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
