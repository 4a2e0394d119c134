package output

import (
	"fmt"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Compression names an output compression algorithm.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionZstd Compression = "zstd"
)

// ParseCompression accepts "none", "zstd" or an empty string (none).
func ParseCompression(s string) (Compression, error) {
	switch Compression(strings.ToLower(strings.TrimSpace(s))) {
	case "", CompressionNone:
		return CompressionNone, nil
	case CompressionZstd:
		return CompressionZstd, nil
	}
	return "", fmt.Errorf("unknown compression %q (want none or zstd)", s)
}

// Extension is the file suffix conventionally added for c.
func (c Compression) Extension() string {
	if c == CompressionZstd {
		return ".zst"
	}
	return ""
}

// Compressor handles document compression
type Compressor struct {
	algo    Compression
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewCompressor creates a compressor for algo. level follows the CLI scale:
// 1 fastest, 2 default, 3 better compression.
func NewCompressor(algo Compression, level int) (*Compressor, error) {
	c := &Compressor{algo: algo}
	if algo != CompressionZstd {
		return c, nil
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(encoderLevel(level)))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	c.encoder = encoder
	c.decoder = decoder
	return c, nil
}

func encoderLevel(level int) zstd.EncoderLevel {
	switch level {
	case 1:
		return zstd.SpeedFastest
	case 3:
		return zstd.SpeedBetterCompression
	default:
		return zstd.SpeedDefault
	}
}

// Algorithm reports the configured algorithm.
func (c *Compressor) Algorithm() Compression {
	return c.algo
}

// Compress returns data unchanged for CompressionNone.
func (c *Compressor) Compress(data []byte) []byte {
	if c.encoder == nil {
		return data
	}
	return c.encoder.EncodeAll(data, make([]byte, 0, len(data)))
}

// Decompress reverses Compress.
func (c *Compressor) Decompress(data []byte) ([]byte, error) {
	if c.decoder == nil {
		return data, nil
	}
	out, err := c.decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress zstd data: %w", err)
	}
	return out, nil
}

// Close releases the zstd encoder and decoder.
func (c *Compressor) Close() error {
	if c.encoder != nil {
		c.encoder.Close()
	}
	if c.decoder != nil {
		c.decoder.Close()
	}
	return nil
}
