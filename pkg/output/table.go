package output

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/scttfrdmn/bioconv-go/pkg/value"
)

// maxCell caps rendered cell width; sequences and quality strings are long.
const maxCell = 60

// Table renders rows under header. limit > 0 keeps only the first limit rows
// and adds a footer counting the rest.
func Table(w io.Writer, header []string, rows []*value.Record, limit int) error {
	headers := make(table.Row, len(header))
	for i, h := range header {
		headers[i] = h
	}

	shown := rows
	if limit > 0 && len(rows) > limit {
		shown = rows[:limit]
	}
	tableRows := make([]table.Row, 0, len(shown))
	for _, r := range shown {
		cells := make(table.Row, len(header))
		for i, col := range header {
			v, ok := r.Get(col)
			if !ok {
				continue
			}
			cells[i] = clip(v.Text())
		}
		tableRows = append(tableRows, cells)
	}

	t := table.NewWriter()
	t.AppendHeader(headers)
	t.AppendRows(tableRows)
	if hidden := len(rows) - len(shown); hidden > 0 {
		t.AppendFooter(table.Row{fmt.Sprintf("... %d more rows", hidden)})
	}
	t.SetStyle(table.StyleLight)
	t.Style().Format = table.FormatOptions{
		Footer: text.FormatDefault,
		Header: text.FormatDefault,
		Row:    text.FormatDefault,
	}
	t.Style().Options.DrawBorder = false

	_, err := io.WriteString(w, t.Render()+"\n")
	return err
}

func clip(s string) string {
	r := []rune(s)
	if len(r) <= maxCell {
		return s
	}
	return string(r[:maxCell-3]) + "..."
}
