package vcf

import (
	"fmt"
	"strconv"
	"strings"
)

// Missing is the VCF missing value marker.
const Missing = "."

// InfoField is one INFO entry. Flags have no value.
type InfoField struct {
	Key   string
	Value string
	Flag  bool
}

func (f InfoField) String() string {
	if f.Flag {
		return f.Key
	}
	return f.Key + "=" + f.Value
}

// Record is one data line. Values are held in their canonical text form so
// that records decoded from VCF and BCF compare equal.
type Record struct {
	Chrom string
	// Pos is 1-based.
	Pos  int64
	IDs  []string
	Ref  string
	Alts []string
	// Qual is "" when missing.
	Qual string
	// Filters is nil when missing.
	Filters []string
	Info    []InfoField
	Format  []string
	Samples [][]string
}

// IDText renders the ID column.
func (r *Record) IDText() string {
	if len(r.IDs) == 0 {
		return Missing
	}
	return strings.Join(r.IDs, ";")
}

// AltText renders the ALT column.
func (r *Record) AltText() string {
	if len(r.Alts) == 0 {
		return Missing
	}
	return strings.Join(r.Alts, ",")
}

// FilterText renders the FILTER column, or "" when missing.
func (r *Record) FilterText() string {
	if r.Filters == nil {
		return ""
	}
	return strings.Join(r.Filters, ";")
}

// InfoText renders the INFO column.
func (r *Record) InfoText() string {
	if len(r.Info) == 0 {
		return Missing
	}
	parts := make([]string, len(r.Info))
	for i, f := range r.Info {
		parts[i] = f.String()
	}
	return strings.Join(parts, ";")
}

// GenotypesText renders FORMAT and the sample columns tab separated, or ""
// when the record carries no genotype data.
func (r *Record) GenotypesText() string {
	if len(r.Format) == 0 {
		return ""
	}
	cols := make([]string, 0, len(r.Samples)+1)
	cols = append(cols, strings.Join(r.Format, ":"))
	for _, s := range r.Samples {
		cols = append(cols, strings.Join(s, ":"))
	}
	return strings.Join(cols, "\t")
}

// FormatFloat renders a float the way VCF values are canonicalized: the
// shortest decimal that round-trips through float32.
func FormatFloat(f float32) string {
	return strconv.FormatFloat(float64(f), 'f', -1, 32)
}

// ParseRecord parses one tab-separated data line. Integer and Float values
// declared in h are rewritten to canonical text.
func ParseRecord(line string, h *Header) (*Record, error) {
	cols := strings.Split(line, "\t")
	if len(cols) < 8 {
		return nil, fmt.Errorf("expected at least 8 columns, got %d", len(cols))
	}
	r := &Record{Chrom: cols[0], Ref: cols[3]}

	pos, err := strconv.ParseInt(cols[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid POS %q: %w", cols[1], err)
	}
	r.Pos = pos

	if cols[2] != Missing {
		r.IDs = strings.Split(cols[2], ";")
	}
	if cols[4] != Missing {
		r.Alts = strings.Split(cols[4], ",")
	}
	if cols[5] != Missing {
		q, err := strconv.ParseFloat(cols[5], 32)
		if err != nil {
			return nil, fmt.Errorf("invalid QUAL %q: %w", cols[5], err)
		}
		r.Qual = FormatFloat(float32(q))
	}
	if cols[6] != Missing {
		r.Filters = strings.Split(cols[6], ";")
	}
	if cols[7] != Missing {
		for _, kv := range strings.Split(cols[7], ";") {
			if kv == "" {
				continue
			}
			key, val, hasVal := strings.Cut(kv, "=")
			f := InfoField{Key: key, Flag: !hasVal}
			if hasVal {
				f.Value = canonical(val, infoType(h, key))
			}
			r.Info = append(r.Info, f)
		}
	}
	if len(cols) > 8 {
		r.Format = strings.Split(cols[8], ":")
		for _, s := range cols[9:] {
			vals := strings.Split(s, ":")
			for i := range vals {
				if i < len(r.Format) {
					vals[i] = canonical(vals[i], formatType(h, r.Format[i]))
				}
			}
			r.Samples = append(r.Samples, vals)
		}
	}
	return r, nil
}

func infoType(h *Header, key string) string {
	if h == nil {
		return ""
	}
	d, _ := h.Info(key)
	return d.Type
}

func formatType(h *Header, key string) string {
	if h == nil {
		return ""
	}
	d, _ := h.Format(key)
	return d.Type
}

// canonical rewrites each comma separated element of a numeric value.
// Elements that do not parse are left as they are.
func canonical(val, typ string) string {
	if typ != "Integer" && typ != "Float" {
		return val
	}
	parts := strings.Split(val, ",")
	for i, p := range parts {
		if p == Missing {
			continue
		}
		switch typ {
		case "Integer":
			if n, err := strconv.ParseInt(p, 10, 32); err == nil {
				parts[i] = strconv.FormatInt(n, 10)
			}
		case "Float":
			if f, err := strconv.ParseFloat(p, 32); err == nil {
				parts[i] = FormatFloat(float32(f))
			}
		}
	}
	return strings.Join(parts, ",")
}
