package cram

import (
	"fmt"
)

var substitutionBases = [5]byte{'A', 'C', 'G', 'T', 'N'}

// tagKey is one entry of a tag dictionary line.
type tagKey struct {
	tag [2]byte
	typ byte
}

func (k tagKey) id() int32 {
	return int32(k.tag[0])<<16 | int32(k.tag[1])<<8 | int32(k.typ)
}

// compressionHeader holds the per-container decoding parameters.
type compressionHeader struct {
	readNames    bool
	apDelta      bool
	refRequired  bool
	substitution [5][4]byte
	tagDict      [][]tagKey
	series       map[string]encoding
	tags         map[int32]encoding
}

func parseCompressionHeader(data []byte) (*compressionHeader, error) {
	c := newCursor(data)
	ch := &compressionHeader{
		readNames:   true,
		apDelta:     true,
		refRequired: true,
		series:      make(map[string]encoding),
		tags:        make(map[int32]encoding),
	}
	ch.setSubstitution([5]byte{0x1b, 0x1b, 0x1b, 0x1b, 0x1b})

	pm, err := c.byteArray()
	if err != nil {
		return nil, fmt.Errorf("preservation map: %w", err)
	}
	if err := ch.parsePreservation(newCursor(pm)); err != nil {
		return nil, fmt.Errorf("preservation map: %w", err)
	}

	ds, err := c.byteArray()
	if err != nil {
		return nil, fmt.Errorf("data series map: %w", err)
	}
	dc := newCursor(ds)
	n, err := dc.itf8()
	if err != nil {
		return nil, fmt.Errorf("data series map: %w", err)
	}
	for i := int32(0); i < n; i++ {
		key, err := dc.next(2)
		if err != nil {
			return nil, fmt.Errorf("data series key: %w", err)
		}
		e, err := readEncoding(dc)
		if err != nil {
			return nil, fmt.Errorf("data series %s: %w", key, err)
		}
		ch.series[string(key)] = e
	}

	tm, err := c.byteArray()
	if err != nil {
		return nil, fmt.Errorf("tag encoding map: %w", err)
	}
	tc := newCursor(tm)
	if n, err = tc.itf8(); err != nil {
		return nil, fmt.Errorf("tag encoding map: %w", err)
	}
	for i := int32(0); i < n; i++ {
		key, err := tc.itf8()
		if err != nil {
			return nil, fmt.Errorf("tag key: %w", err)
		}
		e, err := readEncoding(tc)
		if err != nil {
			return nil, fmt.Errorf("tag %06x: %w", key, err)
		}
		ch.tags[key] = e
	}
	return ch, nil
}

func (ch *compressionHeader) parsePreservation(c *cursor) error {
	n, err := c.itf8()
	if err != nil {
		return err
	}
	for i := int32(0); i < n; i++ {
		key, err := c.next(2)
		if err != nil {
			return err
		}
		switch string(key) {
		case "RN", "AP", "RR":
			b, err := c.ReadByte()
			if err != nil {
				return noEOF(err)
			}
			switch key[0] {
			case 'R':
				if key[1] == 'N' {
					ch.readNames = b != 0
				} else {
					ch.refRequired = b != 0
				}
			case 'A':
				ch.apDelta = b != 0
			}
		case "SM":
			sm, err := c.next(5)
			if err != nil {
				return err
			}
			var m [5]byte
			copy(m[:], sm)
			ch.setSubstitution(m)
		case "TD":
			td, err := c.byteArray()
			if err != nil {
				return err
			}
			ch.tagDict, err = parseTagDictionary(td)
			if err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown preservation key %q", key)
		}
	}
	return nil
}

// setSubstitution decodes the substitution matrix. Each byte holds the
// 2-bit codes of the four alternative bases of one reference base.
func (ch *compressionHeader) setSubstitution(m [5]byte) {
	for i, ref := range substitutionBases {
		j := 0
		for _, alt := range substitutionBases {
			if alt == ref {
				continue
			}
			code := (m[i] >> uint(6-2*j)) & 3
			ch.substitution[i][code] = alt
			j++
		}
	}
}

// substitute returns the read base for substitution code on ref.
func (ch *compressionHeader) substitute(ref byte, code byte) byte {
	i := 4
	switch ref {
	case 'A', 'a':
		i = 0
	case 'C', 'c':
		i = 1
	case 'G', 'g':
		i = 2
	case 'T', 't':
		i = 3
	}
	return ch.substitution[i][code&3]
}

func parseTagDictionary(td []byte) ([][]tagKey, error) {
	var lines [][]tagKey
	line := []tagKey{}
	for i := 0; i < len(td); {
		if td[i] == 0 {
			lines = append(lines, line)
			line = []tagKey{}
			i++
			continue
		}
		if i+3 > len(td) {
			return nil, fmt.Errorf("truncated tag dictionary")
		}
		line = append(line, tagKey{tag: [2]byte{td[i], td[i+1]}, typ: td[i+2]})
		i += 3
	}
	if len(line) > 0 {
		lines = append(lines, line)
	}
	return lines, nil
}
