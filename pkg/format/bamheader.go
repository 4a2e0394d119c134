package format

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/biogo/hts/bgzf"
)

var bamMagic = [4]byte{'B', 'A', 'M', 1}

// bamReference is one entry of the binary reference dictionary.
type bamReference struct {
	name   []byte // NUL terminated
	length int32
}

// withReferenceText returns a BAM stream whose header text names every
// binary reference. sam.Header only accepts binary references that an @SQ
// line has already claimed, so a BAM with no @SQ text (often an empty text
// block) gets @SQ lines built from the dictionary and is re-compressed.
// Any other stream, including one that is not BAM at all, is returned
// unchanged for bam.NewReader to judge.
func withReferenceText(r io.Reader) (io.Reader, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read BAM data: %w", err)
	}
	fixed, ok := rewriteReferenceText(raw)
	if !ok {
		return bytes.NewReader(raw), nil
	}
	return bytes.NewReader(fixed), nil
}

func rewriteReferenceText(raw []byte) ([]byte, bool) {
	zr, err := bgzf.NewReader(bytes.NewReader(raw), 1)
	if err != nil {
		return nil, false
	}
	defer zr.Close()
	le := binary.LittleEndian

	var magic [4]byte
	if _, err := io.ReadFull(zr, magic[:]); err != nil || magic != bamMagic {
		return nil, false
	}
	var lText int32
	if err := binary.Read(zr, le, &lText); err != nil || lText < 0 {
		return nil, false
	}
	text := make([]byte, lText)
	if _, err := io.ReadFull(zr, text); err != nil {
		return nil, false
	}
	text = bytes.TrimRight(text, "\x00")
	if hasReferenceLines(text) {
		return nil, false
	}

	var nRef int32
	if err := binary.Read(zr, le, &nRef); err != nil || nRef <= 0 {
		return nil, false
	}
	refs := make([]bamReference, 0, nRef)
	for i := int32(0); i < nRef; i++ {
		var lName int32
		if err := binary.Read(zr, le, &lName); err != nil || lName < 1 {
			return nil, false
		}
		ref := bamReference{name: make([]byte, lName)}
		if _, err := io.ReadFull(zr, ref.name); err != nil {
			return nil, false
		}
		if err := binary.Read(zr, le, &ref.length); err != nil {
			return nil, false
		}
		refs = append(refs, ref)
	}
	records, err := io.ReadAll(zr)
	if err != nil {
		return nil, false
	}

	if len(text) > 0 && text[len(text)-1] != '\n' {
		text = append(text, '\n')
	}
	for _, ref := range refs {
		text = fmt.Appendf(text, "@SQ\tSN:%s\tLN:%d\n", bytes.TrimRight(ref.name, "\x00"), ref.length)
	}

	var head bytes.Buffer
	head.Write(bamMagic[:])
	binary.Write(&head, le, int32(len(text)))
	head.Write(text)
	binary.Write(&head, le, nRef)
	for _, ref := range refs {
		binary.Write(&head, le, int32(len(ref.name)))
		head.Write(ref.name)
		binary.Write(&head, le, ref.length)
	}

	var out bytes.Buffer
	w := bgzf.NewWriter(&out, 1)
	if _, err := w.Write(head.Bytes()); err != nil {
		return nil, false
	}
	if _, err := w.Write(records); err != nil {
		return nil, false
	}
	if err := w.Close(); err != nil {
		return nil, false
	}
	return out.Bytes(), true
}

func hasReferenceLines(text []byte) bool {
	for _, line := range bytes.Split(text, []byte{'\n'}) {
		if bytes.HasPrefix(line, []byte("@SQ")) {
			return true
		}
	}
	return false
}
