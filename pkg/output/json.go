// Package output renders decoded documents as JSON, NDJSON or text tables.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/scttfrdmn/bioconv-go/pkg/value"
)

// JSON marshals v, indented with two spaces when indent is set. The result
// ends with a newline.
func JSON(v value.Value, indent bool) ([]byte, error) {
	raw, err := v.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}
	if !indent {
		return append(raw, '\n'), nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return nil, fmt.Errorf("failed to indent document: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// NDJSON writes one {path, document} object per line.
type NDJSON struct {
	w io.Writer
}

func NewNDJSON(w io.Writer) *NDJSON {
	return &NDJSON{w: w}
}

// Write emits the document decoded from path.
func (n *NDJSON) Write(path string, doc value.Value) error {
	line, err := JSON(value.FromRecord(value.NewRecord().
		Push("path", value.String(path)).
		Push("document", doc)), false)
	if err != nil {
		return err
	}
	_, err = n.w.Write(line)
	return err
}
