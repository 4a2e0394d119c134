// Package value defines the uniform structured value every decoder produces.
package value

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindString Kind = iota
	KindInt
	KindList
	KindRecord
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindList:
		return "list"
	case KindRecord:
		return "record"
	default:
		return "unknown"
	}
}

// Value is a tagged variant: a string, a signed integer, an ordered list of
// values, or an ordered record.
type Value struct {
	Kind   Kind
	Str    string
	Int    int64
	List   []Value
	Record *Record
}

// String returns a string value.
func String(s string) Value {
	return Value{Kind: KindString, Str: s}
}

// Int returns an integer value.
func Int(i int64) Value {
	return Value{Kind: KindInt, Int: i}
}

// List returns a list value. A nil slice yields an empty list.
func List(vs ...Value) Value {
	if vs == nil {
		vs = []Value{}
	}
	return Value{Kind: KindList, List: vs}
}

// Strings returns a list of string values.
func Strings(ss []string) Value {
	vs := make([]Value, len(ss))
	for i, s := range ss {
		vs[i] = String(s)
	}
	return List(vs...)
}

// FromRecord wraps a record. A nil record yields an empty record.
func FromRecord(r *Record) Value {
	if r == nil {
		r = NewRecord()
	}
	return Value{Kind: KindRecord, Record: r}
}

// AsString returns the string payload and whether v is a string.
func (v Value) AsString() (string, bool) {
	return v.Str, v.Kind == KindString
}

// AsInt returns the integer payload and whether v is an integer.
func (v Value) AsInt() (int64, bool) {
	return v.Int, v.Kind == KindInt
}

// Text renders v for display. Strings are returned unquoted, lists and
// records in their JSON form.
func (v Value) Text() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	default:
		b, err := v.MarshalJSON()
		if err != nil {
			return fmt.Sprintf("<%s>", v.Kind)
		}
		return string(b)
	}
}

// Equal reports whether a and b hold the same variant and payload. Record
// equality is order sensitive.
func Equal(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindString:
		return a.Str == b.Str
	case KindInt:
		return a.Int == b.Int
	case KindList:
		if len(a.List) != len(b.List) {
			return false
		}
		for i := range a.List {
			if !Equal(a.List[i], b.List[i]) {
				return false
			}
		}
		return true
	case KindRecord:
		return a.Record.Equal(b.Record)
	}
	return false
}

// Record is an ordered mapping from column names to values.
type Record struct {
	Cols []string
	Vals []Value
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{Cols: []string{}, Vals: []Value{}}
}

// Zip builds a record from parallel column and value slices. It panics when
// the lengths differ: callers derive both from the same schema.
func Zip(cols []string, vals []Value) *Record {
	if len(cols) != len(vals) {
		panic(fmt.Sprintf("value: %d columns for %d values (%s)", len(cols), len(vals), strings.Join(cols, ",")))
	}
	r := &Record{Cols: make([]string, len(cols)), Vals: make([]Value, len(vals))}
	copy(r.Cols, cols)
	copy(r.Vals, vals)
	return r
}

// Push appends a column. Column names are not deduplicated.
func (r *Record) Push(col string, v Value) *Record {
	r.Cols = append(r.Cols, col)
	r.Vals = append(r.Vals, v)
	return r
}

// Len returns the number of columns.
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Cols)
}

// Get returns the value of the first column named col.
func (r *Record) Get(col string) (Value, bool) {
	if r == nil {
		return Value{}, false
	}
	for i, c := range r.Cols {
		if c == col {
			return r.Vals[i], true
		}
	}
	return Value{}, false
}

// GetString returns the string value of col, or "" with false when the
// column is missing or not a string.
func (r *Record) GetString(col string) (string, bool) {
	v, ok := r.Get(col)
	if !ok || v.Kind != KindString {
		return "", false
	}
	return v.Str, true
}

// Equal reports whether r and o have the same columns, in the same order,
// with equal values.
func (r *Record) Equal(o *Record) bool {
	if r.Len() != o.Len() {
		return false
	}
	for i := 0; i < r.Len(); i++ {
		if r.Cols[i] != o.Cols[i] || !Equal(r.Vals[i], o.Vals[i]) {
			return false
		}
	}
	return true
}
