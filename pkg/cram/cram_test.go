package cram

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/biogo/hts/sam"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encITF8(v int32) []byte {
	u := uint32(v)
	switch {
	case u < 0x80:
		return []byte{byte(u)}
	case u < 0x4000:
		return []byte{0x80 | byte(u>>8), byte(u)}
	case u < 0x200000:
		return []byte{0xc0 | byte(u>>16), byte(u >> 8), byte(u)}
	case u < 0x10000000:
		return []byte{0xe0 | byte(u>>24), byte(u >> 16), byte(u >> 8), byte(u)}
	}
	return []byte{0xf0 | byte(u>>28)&0x0f, byte(u >> 20), byte(u >> 12), byte(u >> 4), byte(u) & 0x0f}
}

func encLTF8(v int64) []byte {
	if v < 0x80 {
		return []byte{byte(v)}
	}
	return []byte{0xff, byte(v >> 56), byte(v >> 48), byte(v >> 40), byte(v >> 32), byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

func cat(parts ...[]byte) []byte {
	return bytes.Join(parts, nil)
}

func rawBlock(contentType byte, id int32, data []byte) []byte {
	return cat([]byte{methodRaw, contentType}, encITF8(id), encITF8(int32(len(data))), encITF8(int32(len(data))), data, make([]byte, 4))
}

func container(refID, nRecords int32, blocks ...[]byte) []byte {
	payload := cat(blocks...)
	var length [4]byte
	binary.LittleEndian.PutUint32(length[:], uint32(len(payload)))
	hdr := cat(length[:], encITF8(refID), encITF8(0), encITF8(0), encITF8(nRecords), encLTF8(0), encLTF8(0),
		encITF8(int32(len(blocks))), encITF8(0), make([]byte, 4))
	return cat(hdr, payload)
}

func byteArray(b []byte) []byte { return cat(encITF8(int32(len(b))), b) }

func external(id int32) []byte { return cat(encITF8(encExternal), byteArray(encITF8(id))) }

func stopAt0(id int32) []byte {
	return cat(encITF8(encByteArrayStop), byteArray(cat([]byte{0}, encITF8(id))))
}

// series collects the external block contents of one slice.
type series map[int32]*bytes.Buffer

func (s series) put(id int32, b ...byte) {
	if s[id] == nil {
		s[id] = &bytes.Buffer{}
	}
	s[id].Write(b)
}

func (s series) int(id, v int32) { s.put(id, encITF8(v)...) }

const (
	idBF, idCF, idRL, idAP, idRG, idRN, idMF, idNS, idNP, idTS = 1, 2, 3, 4, 5, 6, 7, 8, 9, 10
	idNF, idTL, idFN, idFC, idFP, idBA, idQS, idBS, idMQ, idIN = 11, 12, 13, 14, 15, 16, 17, 18, 19, 20
	idRI, idXS                                                 = 21, 30
)

func buildCRAM(t *testing.T) []byte {
	t.Helper()
	text := []byte("@HD\tVN:1.6\tSO:unsorted\n@SQ\tSN:chr1\tLN:1000\n")
	var hl [4]byte
	binary.LittleEndian.PutUint32(hl[:], uint32(len(text)))
	headerContainer := container(0, 0, rawBlock(contentFileHeader, 0, cat(hl[:], text)))

	td := []byte("\x00XSZ\x00")
	pm := cat(encITF8(4), []byte("RN\x01AP\x00RR\x00TD"), byteArray(td))
	ds := [][]byte{}
	for key, id := range map[string]int32{
		"BF": idBF, "CF": idCF, "RL": idRL, "AP": idAP, "RG": idRG, "MF": idMF, "NS": idNS,
		"NP": idNP, "TS": idTS, "NF": idNF, "TL": idTL, "FN": idFN, "FC": idFC, "FP": idFP,
		"BA": idBA, "QS": idQS, "BS": idBS, "MQ": idMQ, "RI": idRI,
	} {
		ds = append(ds, cat([]byte(key), external(id)))
	}
	ds = append(ds, cat([]byte("RN"), stopAt0(idRN)), cat([]byte("IN"), stopAt0(idIN)))
	dsMap := cat(encITF8(int32(len(ds))), cat(ds...))
	tagMap := cat(encITF8(1), encITF8('X'<<16|'S'<<8|'Z'), stopAt0(idXS))
	compression := rawBlock(contentCompressionHeader, 0, cat(byteArray(pm), byteArray(dsMap), byteArray(tagMap)))

	s := series{}
	// Read 1: mapped, mate stored next, one substitution and one insertion.
	s.int(idBF, 0x43)
	s.int(idCF, cfQualityArray|cfMateDown)
	s.int(idRI, 0)
	s.int(idRL, 6)
	s.int(idAP, 100)
	s.int(idRG, -1)
	s.put(idRN, []byte("r1\x00")...)
	s.int(idNF, 0)
	s.int(idTL, 1)
	s.put(idXS, []byte("abc\x00")...)
	s.int(idFN, 2)
	s.put(idFC, 'X')
	s.int(idFP, 3)
	s.put(idBS, 0)
	s.put(idFC, 'I')
	s.int(idFP, 2)
	s.put(idIN, []byte("GG\x00")...)
	s.int(idMQ, 30)
	s.put(idQS, 30, 31, 32, 33, 34, 35)

	// Read 2: its reverse strand mate, no stored qualities.
	s.int(idBF, 0x93)
	s.int(idCF, 0)
	s.int(idRI, 0)
	s.int(idRL, 4)
	s.int(idAP, 150)
	s.int(idRG, -1)
	s.put(idRN, []byte("r1\x00")...)
	s.int(idTL, 0)
	s.int(idFN, 0)
	s.int(idMQ, 20)

	// Read 3: unmapped, mate details stored with it.
	s.int(idBF, 0x4)
	s.int(idCF, cfQualityArray|cfDetached)
	s.int(idRI, -1)
	s.int(idRL, 3)
	s.int(idAP, 0)
	s.int(idRG, -1)
	s.put(idRN, []byte("u1\x00")...)
	s.int(idMF, mfMateUnmapped)
	s.int(idNS, -1)
	s.int(idNP, 0)
	s.int(idTS, 0)
	s.int(idTL, 0)
	s.put(idBA, 'A', 'C', 'G')
	s.put(idQS, 10, 10, 10)

	var ids []int32
	var ext [][]byte
	for id, buf := range s {
		ids = append(ids, id)
		ext = append(ext, rawBlock(contentExternal, id, buf.Bytes()))
	}
	idList := cat(encITF8(int32(len(ids))))
	for _, id := range ids {
		idList = cat(idList, encITF8(id))
	}
	sliceHeader := rawBlock(contentSliceHeader, 0, cat(
		encITF8(multiRef), encITF8(0), encITF8(0), encITF8(3), encLTF8(0),
		encITF8(int32(len(ext)+1)), idList, encITF8(-1), make([]byte, 16)))
	core := rawBlock(contentCore, 0, nil)

	blocks := append([][]byte{compression, sliceHeader, core}, ext...)
	data := container(multiRef, 3, blocks...)
	eof := container(-1, 0, rawBlock(contentCompressionHeader, 0, nil))

	return cat([]byte("CRAM\x03\x00"), make([]byte, 20), headerContainer, data, eof)
}

func TestReadRecords(t *testing.T) {
	r, err := NewReader(bytes.NewReader(buildCRAM(t)))
	require.NoError(t, err)

	major, _ := r.Version()
	assert.Equal(t, 3, major)
	refs := r.Header().Refs()
	require.Len(t, refs, 1)
	assert.Equal(t, "chr1", refs[0].Name())

	var recs []*sam.Record
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		recs = append(recs, rec)
	}
	require.Len(t, recs, 3)

	a, b, u := recs[0], recs[1], recs[2]
	assert.Equal(t, "r1", a.Name)
	assert.Equal(t, 99, a.Pos)
	assert.Equal(t, "4M2I", a.Cigar.String())
	assert.Equal(t, "NNANGG", string(a.Seq.Expand()))
	assert.Equal(t, []byte{30, 31, 32, 33, 34, 35}, a.Qual)
	assert.Equal(t, byte(30), a.MapQ)
	require.Len(t, a.AuxFields, 1)
	assert.Equal(t, "XS:Z:abc", a.AuxFields[0].String())
	assert.NotZero(t, a.Flags&sam.MateReverse)
	assert.Equal(t, 149, a.MatePos)
	assert.Equal(t, refs[0], a.MateRef)
	assert.Equal(t, 54, a.TempLen)

	assert.Equal(t, "r1", b.Name)
	assert.Equal(t, "4M", b.Cigar.String())
	assert.Equal(t, "NNNN", string(b.Seq.Expand()))
	assert.Equal(t, 99, b.MatePos)
	assert.Equal(t, -54, b.TempLen)

	assert.Equal(t, "u1", u.Name)
	assert.Nil(t, u.Ref)
	assert.Equal(t, "ACG", string(u.Seq.Expand()))
	assert.NotZero(t, u.Flags&sam.Unmapped)
	assert.NotZero(t, u.Flags&sam.MateUnmapped)
	assert.Equal(t, []byte{10, 10, 10}, u.Qual)
}

func TestNotCRAM(t *testing.T) {
	_, err := NewReader(bytes.NewReader(append([]byte("BAM\x01"), make([]byte, 30)...)))
	assert.ErrorIs(t, err, ErrNotCRAM)

	_, err = NewReader(bytes.NewReader([]byte("CRAM\x03\x00")))
	assert.Error(t, err)
}

func TestVariableLengthIntegers(t *testing.T) {
	for _, v := range []int32{0, 1, 127, 128, 16383, 16384, 2097151, 2097152, 268435455, 268435456, -1, -2} {
		got, err := readITF8(bytes.NewReader(encITF8(v)))
		require.NoError(t, err, "%d", v)
		assert.Equal(t, v, got)
	}
	for _, v := range []int64{0, 5, 127, 128, 1 << 40} {
		got, err := readLTF8(bytes.NewReader(encLTF8(v)))
		require.NoError(t, err, "%d", v)
		assert.Equal(t, v, got)
	}
	got, err := readLTF8(bytes.NewReader([]byte{0x81, 0x00}))
	require.NoError(t, err)
	assert.Equal(t, int64(0x100), got)

	c := newCursor(cat(encITF8(300), encLTF8(1<<40), encITF8(-1)))
	v32, err := c.itf8()
	require.NoError(t, err)
	assert.Equal(t, int32(300), v32)
	v64, err := c.ltf8()
	require.NoError(t, err)
	assert.Equal(t, int64(1<<40), v64)
	v32, err = c.itf8()
	require.NoError(t, err)
	assert.Equal(t, int32(-1), v32)
	assert.Equal(t, 0, c.len())
}

func TestTruncatedVariableLengthIntegers(t *testing.T) {
	_, err := readITF8(bytes.NewReader([]byte{0xc0, 0x01}))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	_, err = readLTF8(bytes.NewReader([]byte{0xff, 0x00}))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	_, err = newCursor([]byte{0xe0, 0x01}).itf8()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	_, err = newCursor(nil).ltf8()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestRANSOrder0SingleSymbol(t *testing.T) {
	// A single symbol with the full frequency leaves the states unchanged.
	freqs := []byte{'A', 0x90, 0x00, 0x00}
	state := []byte{0x00, 0x00, 0x80, 0x00}
	body := cat(freqs, state, state, state, state)
	in := cat([]byte{0}, le32(uint32(len(body))), le32(6), body)

	out, err := unRANS(in)
	require.NoError(t, err)
	assert.Equal(t, "AAAAAA", string(out))

	_, err = unRANS(in[:5])
	assert.Error(t, err)
}

func le32(v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return b[:]
}

func TestHuffman(t *testing.T) {
	// Lengths 1, 2, 2 give canonical codes 0, 10, 11.
	params := cat(encITF8(3), encITF8(5), encITF8(7), encITF8(9), encITF8(3), encITF8(1), encITF8(2), encITF8(2))
	h, err := newHuffman(newCursor(params))
	require.NoError(t, err)

	s := &sliceBlocks{core: &bitReader{b: []byte{0b0_10_11_0_00}}}
	var got []int32
	for i := 0; i < 4; i++ {
		v, err := h.decodeInt(s)
		require.NoError(t, err)
		got = append(got, v)
	}
	assert.Equal(t, []int32{5, 7, 9, 5}, got)

	single, err := newHuffman(newCursor(cat(encITF8(1), encITF8(42), encITF8(1), encITF8(0))))
	require.NoError(t, err)
	v, err := single.decodeInt(&sliceBlocks{core: &bitReader{}})
	require.NoError(t, err)
	assert.Equal(t, int32(42), v)
}

func TestSubstitutionMatrix(t *testing.T) {
	ch := &compressionHeader{}
	ch.setSubstitution([5]byte{0x1b, 0x1b, 0x1b, 0x1b, 0x1b})
	assert.Equal(t, byte('C'), ch.substitute('A', 0))
	assert.Equal(t, byte('T'), ch.substitute('A', 2))
	assert.Equal(t, byte('A'), ch.substitute('N', 0))
	assert.Equal(t, byte('T'), ch.substitute('G', 2))
}
