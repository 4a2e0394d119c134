package encode

import (
	"errors"
	"fmt"

	"github.com/scttfrdmn/bioconv-go/pkg/bioerr"
	"github.com/scttfrdmn/bioconv-go/pkg/value"
)

// Records extracts encoder input from JSON. It accepts a list of records or
// a decoded document, whose body table is used.
func Records(format string, data []byte) ([]*value.Record, error) {
	var v value.Value
	if err := v.UnmarshalJSON(data); err != nil {
		return nil, bioerr.InputType(format, err)
	}
	if v.Kind == value.KindRecord {
		body, ok := v.Record.Get("body")
		if !ok {
			return nil, bioerr.InputType(format, errors.New("document has no body table"))
		}
		v = body
	}
	if v.Kind != value.KindList {
		return nil, bioerr.InputType(format, fmt.Errorf("expected a list of records, got %s", v.Kind))
	}

	records := make([]*value.Record, len(v.List))
	for i, e := range v.List {
		if e.Kind != value.KindRecord {
			err := bioerr.InputType(format, fmt.Errorf("element is %s, not a record", e.Kind))
			err.Index = i
			return nil, err
		}
		records[i] = e.Record
	}
	return records, nil
}
