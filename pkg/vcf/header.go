// Package vcf reads the VCF text format: the meta-information header, the
// column header line and data lines. BCF shares its header and record model.
package vcf

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
)

// Field is one key=value attribute of a structured header line.
type Field struct {
	Key   string
	Value string
}

// Definition describes an INFO or FORMAT key.
type Definition struct {
	ID          string
	Number      string
	Type        string
	Description string
	// IDX is the explicit BCF dictionary index, or -1.
	IDX   int
	Other []Field
}

// Filter describes a FILTER key.
type Filter struct {
	ID          string
	Description string
	IDX         int
	Other       []Field
}

// AltAllele describes a symbolic ALT allele.
type AltAllele struct {
	ID          string
	Description string
}

// Contig describes a reference sequence.
type Contig struct {
	ID string
	// Length is 0 when the header does not declare one.
	Length int64
	IDX    int
	Other  []Field
}

// Meta describes a META line.
type Meta struct {
	ID     string
	Type   string
	Number string
	Values []string
}

// Header is a parsed VCF header.
type Header struct {
	FileFormat string
	Infos      []Definition
	Filters    []Filter
	Formats    []Definition
	AltAlleles []AltAllele
	Assembly   string
	Contigs    []Contig
	Meta       []Meta
	PedigreeDB string
	Samples    []string
	// Other holds unstructured lines in file order.
	Other []Field
	// Declared lists FILTER, INFO and FORMAT IDs in file order.
	Declared []Declaration
}

// Declaration records where a FILTER, INFO or FORMAT ID appeared.
type Declaration struct {
	Section string
	ID      string
	IDX     int
}

// Info returns the INFO definition with the given ID.
func (h *Header) Info(id string) (Definition, bool) {
	return findDefinition(h.Infos, id)
}

// Format returns the FORMAT definition with the given ID.
func (h *Header) Format(id string) (Definition, bool) {
	return findDefinition(h.Formats, id)
}

func findDefinition(defs []Definition, id string) (Definition, bool) {
	for _, d := range defs {
		if d.ID == id {
			return d, true
		}
	}
	return Definition{}, false
}

// ParseHeader parses header text: "##" meta lines followed by the "#CHROM"
// column line.
func ParseHeader(text string) (*Header, error) {
	h := &Header{}
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	n := 0
	columns := false
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r\x00")
		if line == "" {
			continue
		}
		n++
		if strings.HasPrefix(line, "##") {
			if columns {
				return nil, fmt.Errorf("line %d: meta line after column header", n)
			}
			if err := h.addMeta(line[2:], n == 1); err != nil {
				return nil, fmt.Errorf("line %d: %w", n, err)
			}
			continue
		}
		if strings.HasPrefix(line, "#CHROM") {
			if n == 1 {
				return nil, fmt.Errorf("missing ##fileformat line")
			}
			h.setColumns(line)
			columns = true
			continue
		}
		return nil, fmt.Errorf("line %d: unexpected header line %q", n, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan header: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("empty header")
	}
	if !columns {
		return nil, fmt.Errorf("missing #CHROM column header line")
	}
	return h, nil
}

func (h *Header) setColumns(line string) {
	cols := strings.Split(line, "\t")
	if len(cols) > 9 {
		h.Samples = append([]string{}, cols[9:]...)
	}
}

func (h *Header) addMeta(line string, first bool) error {
	key, val, ok := strings.Cut(line, "=")
	if !ok {
		return fmt.Errorf("malformed meta line %q", line)
	}
	if first != (key == "fileformat") {
		if first {
			return fmt.Errorf("first line must be ##fileformat, got ##%s", key)
		}
		return fmt.Errorf("duplicate ##fileformat line")
	}
	if !strings.HasPrefix(val, "<") || !strings.HasSuffix(val, ">") {
		switch key {
		case "fileformat":
			h.FileFormat = val
		case "assembly":
			h.Assembly = val
		case "pedigreeDB":
			h.PedigreeDB = val
		default:
			h.Other = append(h.Other, Field{Key: key, Value: val})
		}
		return nil
	}

	fields, err := parseStructured(val[1 : len(val)-1])
	if err != nil {
		return fmt.Errorf("##%s: %w", key, err)
	}
	id := fieldValue(fields, "ID")
	if id == "" && key != "PEDIGREE" {
		return fmt.Errorf("##%s: missing ID", key)
	}
	idx, err := fieldIDX(fields)
	if err != nil {
		return fmt.Errorf("##%s=<ID=%s>: %w", key, id, err)
	}

	switch key {
	case "INFO", "FORMAT", "FILTER":
		h.Declared = append(h.Declared, Declaration{Section: key, ID: id, IDX: idx})
	}

	switch key {
	case "INFO", "FORMAT":
		d := Definition{
			ID:          id,
			Number:      fieldValue(fields, "Number"),
			Type:        fieldValue(fields, "Type"),
			Description: fieldValue(fields, "Description"),
			IDX:         idx,
			Other:       otherFields(fields, "ID", "Number", "Type", "Description", "IDX"),
		}
		if key == "INFO" {
			h.Infos = append(h.Infos, d)
		} else {
			h.Formats = append(h.Formats, d)
		}
	case "FILTER":
		h.Filters = append(h.Filters, Filter{
			ID:          id,
			Description: fieldValue(fields, "Description"),
			IDX:         idx,
			Other:       otherFields(fields, "ID", "Description", "IDX"),
		})
	case "ALT":
		h.AltAlleles = append(h.AltAlleles, AltAllele{ID: id, Description: fieldValue(fields, "Description")})
	case "contig":
		c := Contig{ID: id, IDX: idx, Other: otherFields(fields, "ID", "length", "IDX")}
		if l := fieldValue(fields, "length"); l != "" {
			c.Length, err = strconv.ParseInt(l, 10, 64)
			if err != nil {
				return fmt.Errorf("##contig=<ID=%s>: invalid length %q", id, l)
			}
		}
		h.Contigs = append(h.Contigs, c)
	case "META":
		h.Meta = append(h.Meta, Meta{
			ID:     id,
			Type:   fieldValue(fields, "Type"),
			Number: fieldValue(fields, "Number"),
			Values: splitList(fieldValue(fields, "Values")),
		})
	default:
		h.Other = append(h.Other, Field{Key: key, Value: val})
	}
	return nil
}

// parseStructured splits the body of a <...> meta value into key=value
// fields. Values may be double-quoted (with backslash escapes) or bracketed.
func parseStructured(s string) ([]Field, error) {
	var fields []Field
	for i := 0; i < len(s); {
		eq := strings.IndexByte(s[i:], '=')
		if eq < 0 {
			return nil, fmt.Errorf("field without value at %q", s[i:])
		}
		key := strings.TrimSpace(s[i : i+eq])
		i += eq + 1

		var val strings.Builder
		switch {
		case i < len(s) && s[i] == '"':
			i++
			closed := false
			for i < len(s) {
				c := s[i]
				if c == '\\' && i+1 < len(s) {
					val.WriteByte(s[i+1])
					i += 2
					continue
				}
				i++
				if c == '"' {
					closed = true
					break
				}
				val.WriteByte(c)
			}
			if !closed {
				return nil, fmt.Errorf("unterminated quoted value for %s", key)
			}
		case i < len(s) && s[i] == '[':
			end := strings.IndexByte(s[i:], ']')
			if end < 0 {
				return nil, fmt.Errorf("unterminated list value for %s", key)
			}
			val.WriteString(s[i : i+end+1])
			i += end + 1
		default:
			end := strings.IndexByte(s[i:], ',')
			if end < 0 {
				end = len(s) - i
			}
			val.WriteString(s[i : i+end])
			i += end
		}
		fields = append(fields, Field{Key: key, Value: val.String()})

		if i < len(s) {
			if s[i] != ',' {
				return nil, fmt.Errorf("expected ',' after %s", key)
			}
			i++
		}
	}
	return fields, nil
}

func fieldValue(fields []Field, key string) string {
	for _, f := range fields {
		if f.Key == key {
			return f.Value
		}
	}
	return ""
}

func fieldIDX(fields []Field) (int, error) {
	v := fieldValue(fields, "IDX")
	if v == "" {
		return -1, nil
	}
	idx, err := strconv.Atoi(v)
	if err != nil || idx < 0 {
		return -1, fmt.Errorf("invalid IDX %q", v)
	}
	return idx, nil
}

func otherFields(fields []Field, known ...string) []Field {
	var out []Field
outer:
	for _, f := range fields {
		for _, k := range known {
			if f.Key == k {
				continue outer
			}
		}
		out = append(out, f)
	}
	return out
}

func splitList(v string) []string {
	v = strings.TrimSuffix(strings.TrimPrefix(v, "["), "]")
	if strings.TrimSpace(v) == "" {
		return []string{}
	}
	parts := strings.Split(v, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
