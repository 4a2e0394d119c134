package cram

import (
	"fmt"

	"github.com/biogo/hts/sam"
)

// Compression bit flags (CF).
const (
	cfQualityArray = 0x1
	cfDetached     = 0x2
	cfMateDown     = 0x4
	cfNoSequence   = 0x8
)

// Mate flags (MF).
const (
	mfMateReverse  = 0x1
	mfMateUnmapped = 0x2
)

const multiRef = -2

type sliceHeader struct {
	refID         int32
	start         int32
	span          int32
	nRecords      int32
	recordCounter int64
	nBlocks       int32
	contentIDs    []int32
	embeddedRef   int32
}

func parseSliceHeader(data []byte, major byte) (*sliceHeader, error) {
	c := newCursor(data)
	sh := &sliceHeader{}
	var err error
	for _, p := range []*int32{&sh.refID, &sh.start, &sh.span, &sh.nRecords} {
		if *p, err = c.itf8(); err != nil {
			return nil, err
		}
	}
	if major >= 3 {
		sh.recordCounter, err = c.ltf8()
	} else {
		var rc int32
		rc, err = c.itf8()
		sh.recordCounter = int64(rc)
	}
	if err != nil {
		return nil, err
	}
	if sh.nBlocks, err = c.itf8(); err != nil {
		return nil, err
	}
	if sh.contentIDs, err = c.itf8s(); err != nil {
		return nil, err
	}
	if sh.embeddedRef, err = c.itf8(); err != nil {
		return nil, err
	}
	return sh, nil
}

// feature is one read feature of a mapped record.
type feature struct {
	code   byte
	pos    int32
	base   byte
	qual   byte
	bases  []byte
	length int32
}

// record is a CRAM record before reference reconstruction.
type record struct {
	flags     int32
	cf        int32
	refID     int32
	readLen   int32
	pos       int32
	name      []byte
	mateFlags int32
	mateRef   int32
	matePos   int32
	tlen      int32
	nextFrag  int32
	aux       []sam.Aux
	features  []feature
	mapq      int32
	bases     []byte
	quals     []byte
}

// decoders holds one decoder per data series present in the container.
type decoders struct {
	ch                                                         *compressionHeader
	bf, cf, ri, rl, ap, rg, mf, ns, np, ts, nf, tl, fn, fp, mq intDecoder
	dl, rs, pd, hc                                             intDecoder
	fc, ba, qs, bs                                             byteDecoder
	rn, bb, qq, in, sc                                         bytesDecoder
	tags                                                       map[int32]bytesDecoder
}

func newDecoders(ch *compressionHeader) (*decoders, error) {
	d := &decoders{ch: ch, tags: make(map[int32]bytesDecoder)}
	ints := map[string]*intDecoder{
		"BF": &d.bf, "CF": &d.cf, "RI": &d.ri, "RL": &d.rl, "AP": &d.ap, "RG": &d.rg,
		"MF": &d.mf, "NS": &d.ns, "NP": &d.np, "TS": &d.ts, "NF": &d.nf, "TL": &d.tl,
		"FN": &d.fn, "FP": &d.fp, "MQ": &d.mq, "DL": &d.dl, "RS": &d.rs, "PD": &d.pd, "HC": &d.hc,
	}
	for key, dst := range ints {
		e, ok := ch.series[key]
		if !ok {
			continue
		}
		dec, err := newIntDecoder(e)
		if err != nil {
			return nil, fmt.Errorf("data series %s: %w", key, err)
		}
		*dst = dec
	}
	bytes := map[string]*byteDecoder{"FC": &d.fc, "BA": &d.ba, "QS": &d.qs, "BS": &d.bs}
	for key, dst := range bytes {
		e, ok := ch.series[key]
		if !ok {
			continue
		}
		dec, err := newByteDecoder(e)
		if err != nil {
			return nil, fmt.Errorf("data series %s: %w", key, err)
		}
		*dst = dec
	}
	arrays := map[string]*bytesDecoder{"RN": &d.rn, "BB": &d.bb, "QQ": &d.qq, "IN": &d.in, "SC": &d.sc}
	for key, dst := range arrays {
		e, ok := ch.series[key]
		if !ok {
			continue
		}
		dec, err := newBytesDecoder(e)
		if err != nil {
			return nil, fmt.Errorf("data series %s: %w", key, err)
		}
		*dst = dec
	}
	for key, e := range ch.tags {
		dec, err := newBytesDecoder(e)
		if err != nil {
			return nil, fmt.Errorf("tag %06x: %w", key, err)
		}
		d.tags[key] = dec
	}
	return d, nil
}

func readInt(d intDecoder, name string, s *sliceBlocks) (int32, error) {
	if d == nil {
		return 0, fmt.Errorf("data series %s has no encoding", name)
	}
	v, err := d.decodeInt(s)
	if err != nil {
		return 0, fmt.Errorf("data series %s: %w", name, err)
	}
	return v, nil
}

func readByte(d byteDecoder, name string, s *sliceBlocks) (byte, error) {
	if d == nil {
		return 0, fmt.Errorf("data series %s has no encoding", name)
	}
	v, err := d.decodeByte(s)
	if err != nil {
		return 0, fmt.Errorf("data series %s: %w", name, err)
	}
	return v, nil
}

func readBytes(d bytesDecoder, name string, s *sliceBlocks) ([]byte, error) {
	if d == nil {
		return nil, fmt.Errorf("data series %s has no encoding", name)
	}
	v, err := d.decodeBytes(s)
	if err != nil {
		return nil, fmt.Errorf("data series %s: %w", name, err)
	}
	return v, nil
}

// decodeRecord reads one record. prevPos carries the previous alignment
// start for delta coded positions.
func (d *decoders) decodeRecord(sh *sliceHeader, s *sliceBlocks, prevPos *int32) (*record, error) {
	r := &record{nextFrag: -1, refID: sh.refID, mateRef: -1}
	var err error
	if r.flags, err = readInt(d.bf, "BF", s); err != nil {
		return nil, err
	}
	if r.cf, err = readInt(d.cf, "CF", s); err != nil {
		return nil, err
	}
	if sh.refID == multiRef {
		if r.refID, err = readInt(d.ri, "RI", s); err != nil {
			return nil, err
		}
	}
	if r.readLen, err = readInt(d.rl, "RL", s); err != nil {
		return nil, err
	}
	ap, err := readInt(d.ap, "AP", s)
	if err != nil {
		return nil, err
	}
	if d.ch.apDelta {
		r.pos = *prevPos + ap
		*prevPos = r.pos
	} else {
		r.pos = ap
	}
	if _, err = readInt(d.rg, "RG", s); err != nil {
		return nil, err
	}
	if d.ch.readNames {
		if r.name, err = readBytes(d.rn, "RN", s); err != nil {
			return nil, err
		}
	}

	switch {
	case r.cf&cfDetached != 0:
		if r.mateFlags, err = readInt(d.mf, "MF", s); err != nil {
			return nil, err
		}
		if !d.ch.readNames {
			if r.name, err = readBytes(d.rn, "RN", s); err != nil {
				return nil, err
			}
		}
		if r.mateRef, err = readInt(d.ns, "NS", s); err != nil {
			return nil, err
		}
		if r.matePos, err = readInt(d.np, "NP", s); err != nil {
			return nil, err
		}
		if r.tlen, err = readInt(d.ts, "TS", s); err != nil {
			return nil, err
		}
	case r.cf&cfMateDown != 0:
		if r.nextFrag, err = readInt(d.nf, "NF", s); err != nil {
			return nil, err
		}
	}

	tl, err := readInt(d.tl, "TL", s)
	if err != nil {
		return nil, err
	}
	if tl < 0 || int(tl) >= len(d.ch.tagDict) {
		if tl != 0 || len(d.ch.tagDict) != 0 {
			return nil, fmt.Errorf("tag line %d not in dictionary of %d lines", tl, len(d.ch.tagDict))
		}
	} else {
		for _, k := range d.ch.tagDict[tl] {
			dec, ok := d.tags[k.id()]
			if !ok {
				return nil, fmt.Errorf("tag %c%c:%c has no encoding", k.tag[0], k.tag[1], k.typ)
			}
			v, err := dec.decodeBytes(s)
			if err != nil {
				return nil, fmt.Errorf("tag %c%c: %w", k.tag[0], k.tag[1], err)
			}
			r.aux = append(r.aux, makeAux(k, v))
		}
	}

	if r.flags&int32(sam.Unmapped) == 0 {
		if err := d.decodeFeatures(r, s); err != nil {
			return nil, err
		}
		if r.mapq, err = readInt(d.mq, "MQ", s); err != nil {
			return nil, err
		}
		if r.cf&cfQualityArray != 0 {
			if r.quals, err = d.readQuals(r.readLen, s); err != nil {
				return nil, err
			}
		}
		return r, nil
	}

	if r.cf&cfNoSequence == 0 {
		r.bases = make([]byte, r.readLen)
		for i := range r.bases {
			if r.bases[i], err = readByte(d.ba, "BA", s); err != nil {
				return nil, err
			}
		}
	}
	if r.cf&cfQualityArray != 0 {
		if r.quals, err = d.readQuals(r.readLen, s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (d *decoders) readQuals(n int32, s *sliceBlocks) ([]byte, error) {
	q := make([]byte, n)
	var err error
	for i := range q {
		if q[i], err = readByte(d.qs, "QS", s); err != nil {
			return nil, err
		}
	}
	return q, nil
}

func (d *decoders) decodeFeatures(r *record, s *sliceBlocks) error {
	n, err := readInt(d.fn, "FN", s)
	if err != nil {
		return err
	}
	var pos int32
	for i := int32(0); i < n; i++ {
		f := feature{}
		if f.code, err = readByte(d.fc, "FC", s); err != nil {
			return err
		}
		delta, err := readInt(d.fp, "FP", s)
		if err != nil {
			return err
		}
		pos += delta
		f.pos = pos
		switch f.code {
		case 'B':
			if f.base, err = readByte(d.ba, "BA", s); err == nil {
				f.qual, err = readByte(d.qs, "QS", s)
			}
		case 'X':
			f.base, err = readByte(d.bs, "BS", s)
		case 'I':
			f.bases, err = readBytes(d.in, "IN", s)
		case 'i':
			f.base, err = readByte(d.ba, "BA", s)
		case 'S':
			f.bases, err = readBytes(d.sc, "SC", s)
		case 'b':
			f.bases, err = readBytes(d.bb, "BB", s)
		case 'q':
			f.bases, err = readBytes(d.qq, "QQ", s)
		case 'Q':
			f.qual, err = readByte(d.qs, "QS", s)
		case 'H':
			f.length, err = readInt(d.hc, "HC", s)
		case 'P':
			f.length, err = readInt(d.pd, "PD", s)
		case 'D':
			f.length, err = readInt(d.dl, "DL", s)
		case 'N':
			f.length, err = readInt(d.rs, "RS", s)
		default:
			return fmt.Errorf("unknown read feature code %q", f.code)
		}
		if err != nil {
			return fmt.Errorf("read feature %c: %w", f.code, err)
		}
		r.features = append(r.features, f)
	}
	return nil
}

func makeAux(k tagKey, v []byte) sam.Aux {
	a := make([]byte, 0, 3+len(v)+1)
	a = append(a, k.tag[0], k.tag[1], k.typ)
	a = append(a, v...)
	if (k.typ == 'Z' || k.typ == 'H') && (len(v) == 0 || v[len(v)-1] != 0) {
		a = append(a, 0)
	}
	return sam.Aux(a)
}
