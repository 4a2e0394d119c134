// Package format turns the bytes of one genomics document into a uniform
// {header, tables} value. Each file format is an Adapter; the Pipeline owns
// everything the formats have in common: source construction, error
// labeling, schema zipping and document assembly.
package format

import (
	"github.com/scttfrdmn/bioconv-go/pkg/source"
	"github.com/scttfrdmn/bioconv-go/pkg/value"
)

// BodyTable is the table name used by single-table formats.
const BodyTable = "body"

// DecodeOptions selects optional columns. Formats without the column
// ignore the flag.
type DecodeOptions struct {
	Description   bool
	QualityScores bool
}

// Schema is the ordered column list of a table.
type Schema []string

// Table names a table and its schema.
type Table struct {
	Name   string
	Schema Schema
}

// Row is one projected record. Fields line up with the schema of Table.
type Row struct {
	Table  string
	Fields []value.Value
}

// Adapter decodes one file format.
type Adapter interface {
	// Name is the canonical lower-case format name.
	Name() string
	// Text reports whether raw input must be valid UTF-8.
	Text() bool
	// Tables returns the tables rows are emitted into, in output order.
	Tables(opts DecodeOptions) []Table
	// Open reads the document header from r.
	Open(r source.Reader, opts DecodeOptions) (Decoder, error)
}

// Decoder iterates the records of one open document.
type Decoder interface {
	// Header returns the normalized header. It is called once, after the
	// last row.
	Header() value.Value
	// Next returns the next row, or io.EOF after the last one.
	Next() (Row, error)
}

func single(schema Schema) []Table {
	return []Table{{Name: BodyTable, Schema: schema}}
}

// emptyHeader is the header of formats that carry none.
func emptyHeader() value.Value {
	return value.FromRecord(value.NewRecord())
}

// orSentinel returns s, or sentinel when s is empty.
func orSentinel(s, sentinel string) value.Value {
	if s == "" {
		return value.String(sentinel)
	}
	return value.String(s)
}
