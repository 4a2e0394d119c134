package cram

import (
	"bytes"
	"compress/bzip2"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/ulikunitz/xz"
)

// Block compression methods.
const (
	methodRaw   = 0
	methodGzip  = 1
	methodBzip2 = 2
	methodLZMA  = 3
	methodRANS  = 4
)

// Block content types.
const (
	contentFileHeader        = 0
	contentCompressionHeader = 1
	contentSliceHeader       = 2
	contentExternal          = 4
	contentCore              = 5
)

// block is a decompressed CRAM block.
type block struct {
	method      byte
	contentType byte
	contentID   int32
	data        []byte
}

// readBlock reads and decompresses one block. CRAM 3 blocks carry a
// trailing CRC32 which is skipped.
func readBlock(c *cursor, major byte) (*block, error) {
	method, err := c.ReadByte()
	if err != nil {
		return nil, noEOF(err)
	}
	contentType, err := c.ReadByte()
	if err != nil {
		return nil, noEOF(err)
	}
	b := &block{method: method, contentType: contentType}
	if b.contentID, err = c.itf8(); err != nil {
		return nil, err
	}
	size, err := c.itf8()
	if err != nil {
		return nil, err
	}
	rawSize, err := c.itf8()
	if err != nil {
		return nil, err
	}
	payload, err := c.next(int(size))
	if err != nil {
		return nil, fmt.Errorf("block payload: %w", err)
	}
	if major >= 3 {
		if _, err := c.next(4); err != nil {
			return nil, fmt.Errorf("block crc32: %w", err)
		}
	}
	if b.data, err = decompress(method, payload, int(rawSize)); err != nil {
		return nil, fmt.Errorf("content %d/%d: %w", contentType, b.contentID, err)
	}
	if len(b.data) != int(rawSize) {
		return nil, fmt.Errorf("content %d/%d: decompressed %d bytes, expected %d", contentType, b.contentID, len(b.data), rawSize)
	}
	return b, nil
}

func decompress(method byte, payload []byte, rawSize int) ([]byte, error) {
	switch method {
	case methodRaw:
		return payload, nil
	case methodGzip:
		zr, err := gzip.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip block: %w", err)
		}
		defer zr.Close()
		return readAllSized(zr, rawSize)
	case methodBzip2:
		return readAllSized(bzip2.NewReader(bytes.NewReader(payload)), rawSize)
	case methodLZMA:
		lr, err := xz.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("failed to open xz block: %w", err)
		}
		return readAllSized(lr, rawSize)
	case methodRANS:
		return unRANS(payload)
	default:
		return nil, fmt.Errorf("unsupported block compression method %d", method)
	}
}

func readAllSized(r io.Reader, n int) ([]byte, error) {
	out := make([]byte, 0, n)
	buf := bytes.NewBuffer(out)
	if _, err := io.Copy(buf, r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
