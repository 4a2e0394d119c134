// Package cram reads CRAM 2.1 and 3.x alignment files into biogo/hts SAM
// records. Reference bases that are not embedded in the file are reported
// as N.
package cram

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/biogo/hts/sam"
)

// ErrNotCRAM is returned when the stream does not start with a CRAM file
// definition.
var ErrNotCRAM = errors.New("cram: invalid file signature")

var magic = []byte("CRAM")

// containerHeader is the fixed part of a container.
type containerHeader struct {
	length        int32
	refID         int32
	start         int32
	span          int32
	nRecords      int32
	recordCounter int64
	bases         int64
	nBlocks       int32
	landmarks     []int32
}

// Reader reads alignment records from a CRAM stream.
type Reader struct {
	br      *bufio.Reader
	major   byte
	minor   byte
	h       *sam.Header
	pending []*sam.Record
}

// NewReader reads the file definition and SAM header from r.
func NewReader(r io.Reader) (*Reader, error) {
	cr := &Reader{br: bufio.NewReader(r)}
	def := make([]byte, 26)
	if _, err := io.ReadFull(cr.br, def); err != nil {
		return nil, fmt.Errorf("failed to read file definition: %w", err)
	}
	if !bytes.Equal(def[:4], magic) {
		return nil, ErrNotCRAM
	}
	cr.major, cr.minor = def[4], def[5]
	if cr.major < 2 || cr.major > 3 {
		return nil, fmt.Errorf("cram: unsupported version %d.%d", cr.major, cr.minor)
	}

	ch, payload, err := cr.readContainer()
	if err != nil {
		return nil, fmt.Errorf("failed to read header container: %w", noEOF(err))
	}
	if ch.nBlocks < 1 {
		return nil, fmt.Errorf("header container holds no blocks")
	}
	blk, err := readBlock(newCursor(payload), cr.major)
	if err != nil {
		return nil, fmt.Errorf("failed to read header block: %w", err)
	}
	if blk.contentType != contentFileHeader {
		return nil, fmt.Errorf("first block has content type %d, want file header", blk.contentType)
	}
	text, err := headerText(blk.data)
	if err != nil {
		return nil, err
	}
	if cr.h, err = sam.NewHeader(text, nil); err != nil {
		return nil, fmt.Errorf("failed to parse SAM header: %w", err)
	}
	return cr, nil
}

func headerText(data []byte) ([]byte, error) {
	c := newCursor(data)
	n, err := c.uint32()
	if err != nil {
		return nil, fmt.Errorf("header text length: %w", err)
	}
	text, err := c.next(int(n))
	if err != nil {
		return nil, fmt.Errorf("header text: %w", err)
	}
	return bytes.TrimRight(text, "\x00"), nil
}

// Header returns the SAM header.
func (r *Reader) Header() *sam.Header { return r.h }

// Version returns the major and minor format version.
func (r *Reader) Version() (major, minor int) { return int(r.major), int(r.minor) }

// Read returns the next record, or io.EOF after the last container.
func (r *Reader) Read() (*sam.Record, error) {
	for len(r.pending) == 0 {
		ch, payload, err := r.readContainer()
		if err != nil {
			return nil, err
		}
		if ch.nRecords == 0 {
			continue
		}
		if r.pending, err = r.decodeContainer(payload); err != nil {
			return nil, err
		}
	}
	rec := r.pending[0]
	r.pending = r.pending[1:]
	return rec, nil
}

// readContainer reads a container header and its payload. io.EOF is only
// returned when the stream ends cleanly between containers.
func (r *Reader) readContainer() (*containerHeader, []byte, error) {
	var lb [4]byte
	n, err := io.ReadFull(r.br, lb[:])
	if n == 0 && err == io.EOF {
		return nil, nil, io.EOF
	}
	if err != nil {
		return nil, nil, fmt.Errorf("container length: %w", noEOF(err))
	}
	ch := &containerHeader{length: int32(binary.LittleEndian.Uint32(lb[:]))}
	for _, p := range []*int32{&ch.refID, &ch.start, &ch.span, &ch.nRecords} {
		if *p, err = readITF8(r.br); err != nil {
			return nil, nil, fmt.Errorf("container header: %w", noEOF(err))
		}
	}
	if r.major >= 3 {
		ch.recordCounter, err = readLTF8(r.br)
	} else {
		var rc int32
		rc, err = readITF8(r.br)
		ch.recordCounter = int64(rc)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("container record counter: %w", noEOF(err))
	}
	if ch.bases, err = readLTF8(r.br); err != nil {
		return nil, nil, fmt.Errorf("container bases: %w", noEOF(err))
	}
	if ch.nBlocks, err = readITF8(r.br); err != nil {
		return nil, nil, fmt.Errorf("container blocks: %w", noEOF(err))
	}
	nLandmarks, err := readITF8(r.br)
	if err != nil {
		return nil, nil, fmt.Errorf("container landmarks: %w", noEOF(err))
	}
	for i := int32(0); i < nLandmarks; i++ {
		lm, err := readITF8(r.br)
		if err != nil {
			return nil, nil, fmt.Errorf("container landmark: %w", noEOF(err))
		}
		ch.landmarks = append(ch.landmarks, lm)
	}
	if r.major >= 3 {
		var crc [4]byte
		if _, err := io.ReadFull(r.br, crc[:]); err != nil {
			return nil, nil, fmt.Errorf("container crc32: %w", noEOF(err))
		}
	}
	if ch.length < 0 {
		return nil, nil, fmt.Errorf("negative container length %d", ch.length)
	}
	payload := make([]byte, ch.length)
	if _, err := io.ReadFull(r.br, payload); err != nil {
		return nil, nil, fmt.Errorf("container payload: %w", noEOF(err))
	}
	return ch, payload, nil
}

func (r *Reader) decodeContainer(payload []byte) ([]*sam.Record, error) {
	c := newCursor(payload)
	blk, err := readBlock(c, r.major)
	if err != nil {
		return nil, fmt.Errorf("compression header block: %w", err)
	}
	if blk.contentType != contentCompressionHeader {
		return nil, fmt.Errorf("container starts with content type %d, want compression header", blk.contentType)
	}
	ch, err := parseCompressionHeader(blk.data)
	if err != nil {
		return nil, fmt.Errorf("compression header: %w", err)
	}
	dec, err := newDecoders(ch)
	if err != nil {
		return nil, err
	}

	var out []*sam.Record
	for c.len() > 0 {
		blk, err := readBlock(c, r.major)
		if err != nil {
			return nil, fmt.Errorf("slice header block: %w", err)
		}
		if blk.contentType != contentSliceHeader {
			continue
		}
		sh, err := parseSliceHeader(blk.data, r.major)
		if err != nil {
			return nil, fmt.Errorf("slice header: %w", err)
		}
		recs, err := r.decodeSlice(c, sh, dec)
		if err != nil {
			return nil, err
		}
		out = append(out, recs...)
	}
	return out, nil
}

func (r *Reader) decodeSlice(c *cursor, sh *sliceHeader, dec *decoders) ([]*sam.Record, error) {
	blocks := &sliceBlocks{external: make(map[int32]*cursor)}
	for i := int32(0); i < sh.nBlocks; i++ {
		blk, err := readBlock(c, r.major)
		if err != nil {
			return nil, fmt.Errorf("slice block %d: %w", i, err)
		}
		switch blk.contentType {
		case contentCore:
			blocks.core = &bitReader{b: blk.data}
		case contentExternal:
			blocks.external[blk.contentID] = newCursor(blk.data)
		}
	}
	if blocks.core == nil {
		blocks.core = &bitReader{}
	}

	var ref reference
	if sh.embeddedRef >= 0 {
		if b, ok := blocks.external[sh.embeddedRef]; ok {
			ref = reference{start: sh.start, bases: b.b}
		}
	}

	recs := make([]*record, 0, sh.nRecords)
	prevPos := sh.start
	for i := int32(0); i < sh.nRecords; i++ {
		rec, err := dec.decodeRecord(sh, blocks, &prevPos)
		if err != nil {
			return nil, fmt.Errorf("slice record %d: %w", i, err)
		}
		recs = append(recs, rec)
	}
	return toSAM(recs, r.h.Refs(), ref, dec.ch, sh.recordCounter), nil
}
