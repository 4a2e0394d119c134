package cram

import (
	"strconv"

	"github.com/biogo/hts/sam"
)

// reference serves reference bases for one slice. Without an embedded
// reference every base is N.
type reference struct {
	start int32
	bases []byte
}

func (r reference) at(pos int32) byte {
	i := pos - r.start
	if r.bases == nil || i < 0 || int(i) >= len(r.bases) {
		return 'N'
	}
	return r.bases[i]
}

type cigarBuilder struct {
	ops sam.Cigar
}

func (c *cigarBuilder) add(t sam.CigarOpType, n int) {
	if n <= 0 {
		return
	}
	if last := len(c.ops) - 1; last >= 0 && c.ops[last].Type() == t {
		c.ops[last] = sam.NewCigarOp(t, c.ops[last].Len()+n)
		return
	}
	c.ops = append(c.ops, sam.NewCigarOp(t, n))
}

// restore rebuilds sequence, qualities and CIGAR of a mapped record from
// its read features.
func restore(r *record, ref reference, ch *compressionHeader) ([]byte, []byte, sam.Cigar) {
	n := int(r.readLen)
	seq := make([]byte, 0, n)
	quals := r.quals
	if quals == nil {
		quals = make([]byte, n)
		for i := range quals {
			quals[i] = 0xff
		}
	}
	setQual := func(pos int32, q byte) {
		if i := int(pos) - 1; i >= 0 && i < len(quals) {
			quals[i] = q
		}
	}

	var cig cigarBuilder
	readPos := int32(1)
	refPos := r.pos
	match := func(k int32) {
		for i := int32(0); i < k; i++ {
			seq = append(seq, ref.at(refPos+i))
		}
		cig.add(sam.CigarMatch, int(k))
		readPos += k
		refPos += k
	}

	for _, f := range r.features {
		if f.pos > readPos {
			match(f.pos - readPos)
		}
		switch f.code {
		case 'X':
			seq = append(seq, ch.substitute(ref.at(refPos), f.base))
			cig.add(sam.CigarMatch, 1)
			readPos++
			refPos++
		case 'B':
			seq = append(seq, f.base)
			setQual(f.pos, f.qual)
			cig.add(sam.CigarMatch, 1)
			readPos++
			refPos++
		case 'b':
			seq = append(seq, f.bases...)
			cig.add(sam.CigarMatch, len(f.bases))
			readPos += int32(len(f.bases))
			refPos += int32(len(f.bases))
		case 'q':
			for i, q := range f.bases {
				setQual(f.pos+int32(i), q)
			}
		case 'Q':
			setQual(f.pos, f.qual)
		case 'I':
			seq = append(seq, f.bases...)
			cig.add(sam.CigarInsertion, len(f.bases))
			readPos += int32(len(f.bases))
		case 'i':
			seq = append(seq, f.base)
			cig.add(sam.CigarInsertion, 1)
			readPos++
		case 'S':
			seq = append(seq, f.bases...)
			cig.add(sam.CigarSoftClipped, len(f.bases))
			readPos += int32(len(f.bases))
		case 'D':
			cig.add(sam.CigarDeletion, int(f.length))
			refPos += f.length
		case 'N':
			cig.add(sam.CigarSkipped, int(f.length))
			refPos += f.length
		case 'H':
			cig.add(sam.CigarHardClipped, int(f.length))
		case 'P':
			cig.add(sam.CigarPadded, int(f.length))
		}
	}
	if readPos <= r.readLen {
		match(r.readLen - readPos + 1)
	}
	return seq, quals, cig.ops
}

// toSAM converts the decoded records of one slice, linking mates that are
// stored together.
func toSAM(recs []*record, refs []*sam.Reference, ref reference, ch *compressionHeader, counter int64) []*sam.Record {
	refAt := func(id int32) *sam.Reference {
		if id < 0 || int(id) >= len(refs) {
			return nil
		}
		return refs[id]
	}

	out := make([]*sam.Record, len(recs))
	for i, r := range recs {
		rec := &sam.Record{
			Name:    string(r.name),
			Ref:     refAt(r.refID),
			Pos:     int(r.pos) - 1,
			MapQ:    byte(r.mapq),
			Flags:   sam.Flags(r.flags),
			MateRef: refAt(r.mateRef),
			MatePos: int(r.matePos) - 1,
			TempLen: int(r.tlen),
		}
		if rec.Name == "" {
			rec.Name = strconv.FormatInt(counter+int64(i)+1, 10)
		}
		if r.cf&cfDetached != 0 {
			if r.mateFlags&mfMateReverse != 0 {
				rec.Flags |= sam.MateReverse
			}
			if r.mateFlags&mfMateUnmapped != 0 {
				rec.Flags |= sam.MateUnmapped
			}
		}

		var seq, quals []byte
		if r.flags&int32(sam.Unmapped) == 0 {
			seq, quals, rec.Cigar = restore(r, ref, ch)
		} else {
			seq, quals = r.bases, r.quals
		}
		if r.cf&cfNoSequence != 0 {
			seq = nil
		}
		if len(seq) > 0 && quals == nil {
			quals = make([]byte, len(seq))
			for j := range quals {
				quals[j] = 0xff
			}
		}
		rec.Seq = sam.NewSeq(seq)
		if len(seq) > 0 {
			rec.Qual = quals
		}
		rec.AuxFields = r.aux
		out[i] = rec
	}

	linkMates(recs, out)
	return out
}

// linkMates resolves records whose mate is stored later in the same slice.
// Each fragment points to the next; the last points back to the first.
func linkMates(recs []*record, out []*sam.Record) {
	linked := make([]bool, len(recs))
	for i := range recs {
		if linked[i] || recs[i].cf&cfMateDown == 0 {
			continue
		}
		chain := []int{i}
		for j := i; recs[j].cf&cfMateDown != 0; {
			next := j + int(recs[j].nextFrag) + 1
			if next <= j || next >= len(recs) || linked[next] {
				break
			}
			chain = append(chain, next)
			j = next
		}
		if len(chain) < 2 {
			continue
		}
		for k, idx := range chain {
			linked[idx] = true
			mate := out[chain[(k+1)%len(chain)]]
			rec := out[idx]
			rec.MateRef = mate.Ref
			rec.MatePos = mate.Pos
			if mate.Flags&sam.Unmapped != 0 {
				rec.Flags |= sam.MateUnmapped
			}
			if mate.Flags&sam.Reverse != 0 {
				rec.Flags |= sam.MateReverse
			}
			if k > 0 {
				rec.Name = out[chain[0]].Name
			}
		}
		setTemplateLength(chain, out)
	}
}

func setTemplateLength(chain []int, out []*sam.Record) {
	first := out[chain[0]]
	left, right := -1, -1
	for _, idx := range chain {
		rec := out[idx]
		if rec.Ref != first.Ref || rec.Flags&sam.Unmapped != 0 || rec.Ref == nil {
			return
		}
		if left < 0 || rec.Pos < left {
			left = rec.Pos
		}
		if end := rec.End(); end > right {
			right = end
		}
	}
	tlen := right - left
	positive := false
	for _, idx := range chain {
		rec := out[idx]
		if rec.Pos == left && !positive {
			rec.TempLen = tlen
			positive = true
			continue
		}
		rec.TempLen = -tlen
	}
}
