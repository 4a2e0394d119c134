package format

import (
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/scttfrdmn/bioconv-go/pkg/bioerr"
	"github.com/scttfrdmn/bioconv-go/pkg/encode"
	"github.com/scttfrdmn/bioconv-go/pkg/source"
	"github.com/scttfrdmn/bioconv-go/pkg/value"
)

// Document is a fully decoded file.
type Document struct {
	Format string
	Header value.Value
	Tables []Table
	rows   map[string][]*value.Record
}

// Rows returns the records of table.
func (d *Document) Rows(table string) []*value.Record {
	return d.rows[table]
}

// Body returns the records of a single-table document.
func (d *Document) Body() []*value.Record {
	return d.rows[BodyTable]
}

// Count returns the total number of records across all tables.
func (d *Document) Count() int {
	n := 0
	for _, rs := range d.rows {
		n += len(rs)
	}
	return n
}

// Value returns the document as {header, <tables>...}.
func (d *Document) Value() value.Value {
	out := value.NewRecord().Push("header", d.Header)
	for _, t := range d.Tables {
		rows := d.rows[t.Name]
		vals := make([]value.Value, len(rows))
		for i, r := range rows {
			vals[i] = value.FromRecord(r)
		}
		out.Push(t.Name, value.List(vals...))
	}
	return value.FromRecord(out)
}

// Option configures a Pipeline.
type Option interface {
	apply(*Pipeline)
}

type optionFunc func(*Pipeline)

var _ Option = optionFunc(nil)

func (f optionFunc) apply(p *Pipeline) { f(p) }

// WithLogger sets the logger.
// If not set, a no-op logger is used.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(p *Pipeline) {
		p.logger = l
	})
}

// Pipeline decodes and encodes documents. It holds no per-document state
// and may be shared between goroutines.
type Pipeline struct {
	registry *Registry
	logger   *zap.Logger
}

// NewPipeline returns a pipeline with the given options applied.
func NewPipeline(opts ...Option) *Pipeline {
	p := &Pipeline{registry: DefaultRegistry(), logger: zap.NewNop()}
	for _, o := range opts {
		o.apply(p)
	}
	return p
}

// Registry returns the registry used for lookups.
func (p *Pipeline) Registry() *Registry { return p.registry }

// Decode decodes data as format name. The whole document is materialized;
// the first failing record aborts it.
func (p *Pipeline) Decode(name string, data []byte, mode source.Mode, opts DecodeOptions) (*Document, error) {
	a, err := p.registry.Lookup(name, mode)
	if err != nil {
		return nil, err
	}
	name = a.Name()
	log := p.logger.With(zap.String("format", name), zap.Stringer("mode", mode))

	if mode == source.Raw && a.Text() && !utf8.Valid(data) {
		return nil, bioerr.InputType(name, errors.New("input is not valid UTF-8 text"))
	}

	src, err := source.New(data, mode)
	if err != nil {
		return nil, bioerr.InputType(name, err)
	}
	defer src.Close()

	dec, err := a.Open(src, opts)
	if err != nil {
		var be *bioerr.Error
		if errors.As(err, &be) {
			return nil, err
		}
		return nil, bioerr.Header(name, err)
	}

	doc := &Document{
		Format: name,
		Tables: a.Tables(opts),
		rows:   make(map[string][]*value.Record),
	}
	schemas := make(map[string]Schema, len(doc.Tables))
	for _, t := range doc.Tables {
		schemas[t.Name] = t.Schema
	}

	for i := 0; ; i++ {
		row, err := dec.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Debug("record decode failed", zap.Int("index", i), zap.Error(err))
			return nil, bioerr.Record(name, i, err)
		}
		schema, ok := schemas[row.Table]
		if !ok {
			panic(fmt.Sprintf("format: %s emitted row for unknown table %q", name, row.Table))
		}
		doc.rows[row.Table] = append(doc.rows[row.Table], value.Zip(schema, row.Fields))
	}
	// Some formats allow header directives between records.
	doc.Header = dec.Header()

	log.Debug("decoded document", zap.Int("records", doc.Count()), zap.Int("bytes", len(data)))
	return doc, nil
}

// Encode renders records as text in format name. Only FASTA and FASTQ
// can be encoded.
func (p *Pipeline) Encode(name string, records []*value.Record) ([]byte, error) {
	c := p.registry.Canonical(name)
	var (
		out []byte
		err error
	)
	switch c {
	case "fasta":
		out, err = encode.FASTA(records)
	case "fastq":
		out, err = encode.FASTQ(records)
	default:
		return nil, bioerr.NotFound(c, fmt.Errorf("no encoder for %s", c))
	}
	if err != nil {
		return nil, err
	}
	p.logger.Debug("encoded records", zap.String("format", c), zap.Int("records", len(records)), zap.Int("bytes", len(out)))
	return out, nil
}

var defaultPipeline = NewPipeline()

// Decode decodes data with the default pipeline.
func Decode(name string, data []byte, mode source.Mode, opts DecodeOptions) (*Document, error) {
	return defaultPipeline.Decode(name, data, mode, opts)
}

// Encode encodes records with the default pipeline.
func Encode(name string, records []*value.Record) ([]byte, error) {
	return defaultPipeline.Encode(name, records)
}
