package value

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// MarshalJSON encodes strings and integers as JSON scalars, lists as arrays
// and records as objects whose keys keep their column order.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) writeJSON(buf *bytes.Buffer) error {
	switch v.Kind {
	case KindString:
		b, err := json.Marshal(v.Str)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindInt:
		buf.WriteString(strconv.FormatInt(v.Int, 10))
	case KindList:
		buf.WriteByte('[')
		for i, e := range v.List {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := e.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindRecord:
		return v.Record.writeJSON(buf)
	default:
		return fmt.Errorf("value: cannot marshal kind %d", v.Kind)
	}
	return nil
}

// MarshalJSON encodes the record as an ordered JSON object.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := r.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *Record) writeJSON(buf *bytes.Buffer) error {
	buf.WriteByte('{')
	for i := 0; i < r.Len(); i++ {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(r.Cols[i])
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		if err := r.Vals[i].writeJSON(buf); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

// ErrUnsupportedJSON is returned when JSON input holds a literal with no
// Value counterpart (booleans, null, fractional numbers).
var ErrUnsupportedJSON = errors.New("value: unsupported JSON literal")

// UnmarshalJSON decodes JSON into a Value, keeping object key order.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	out, err := decodeJSON(dec)
	if err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("value: trailing data after JSON value")
	}
	*v = out
	return nil
}

func decodeJSON(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	switch t := tok.(type) {
	case string:
		return String(t), nil
	case json.Number:
		i, err := t.Int64()
		if err != nil {
			return Value{}, fmt.Errorf("%w: number %s", ErrUnsupportedJSON, t)
		}
		return Int(i), nil
	case json.Delim:
		switch t {
		case '[':
			vs := []Value{}
			for dec.More() {
				e, err := decodeJSON(dec)
				if err != nil {
					return Value{}, err
				}
				vs = append(vs, e)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return List(vs...), nil
		case '{':
			r := NewRecord()
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := kt.(string)
				if !ok {
					return Value{}, fmt.Errorf("value: object key %v is not a string", kt)
				}
				e, err := decodeJSON(dec)
				if err != nil {
					return Value{}, err
				}
				r.Push(key, e)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return FromRecord(r), nil
		}
	}
	return Value{}, fmt.Errorf("%w: %v", ErrUnsupportedJSON, tok)
}
