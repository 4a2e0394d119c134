// Package bioerr defines the labeled errors returned at the decode and
// encode boundaries.
package bioerr

import (
	"errors"
	"fmt"
)

// Kind classifies which stage of a conversion failed.
type Kind int

const (
	// KindInputType means the caller supplied the wrong kind of input.
	KindInputType Kind = iota + 1
	// KindHeaderDecode means the document header could not be read.
	KindHeaderDecode
	// KindRecordDecode means a record could not be read; Index is set.
	KindRecordDecode
	// KindFormatIntegrity means a record referenced a dictionary entry that
	// does not exist.
	KindFormatIntegrity
	// KindEncodeLayout means records could not be laid out as text.
	KindEncodeLayout
	// KindNotFound means no adapter is registered for a format and mode.
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindInputType:
		return "input type"
	case KindHeaderDecode:
		return "header decode"
	case KindRecordDecode:
		return "record decode"
	case KindFormatIntegrity:
		return "format integrity"
	case KindEncodeLayout:
		return "encode layout"
	case KindNotFound:
		return "not found"
	default:
		return "unknown"
	}
}

// Error is a labeled error. Label is a short human readable description of
// the failing stage; Err carries the underlying cause.
type Error struct {
	Kind   Kind
	Label  string
	Format string
	// Index is the 0-based record index, or -1 when the failure is not tied
	// to a record.
	Index int
	Err   error
}

func (e *Error) Error() string {
	prefix := e.Label
	if e.Format != "" {
		prefix = e.Format + ": " + prefix
	}
	if e.Index >= 0 {
		prefix = fmt.Sprintf("%s (record %d)", prefix, e.Index)
	}
	if e.Err == nil {
		return prefix
	}
	return prefix + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// InputType reports input of the wrong kind.
func InputType(format string, err error) *Error {
	return &Error{Kind: KindInputType, Label: "Input type not supported.", Format: format, Index: -1, Err: err}
}

// Header reports a failure reading a document header.
func Header(format string, err error) *Error {
	return &Error{Kind: KindHeaderDecode, Label: "Could not read header.", Format: format, Index: -1, Err: err}
}

// Record reports a failure decoding record index. Integrity errors keep
// their kind and gain the index.
func Record(format string, index int, err error) *Error {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindFormatIntegrity {
		out := *e
		out.Index = index
		if out.Format == "" {
			out.Format = format
		}
		return &out
	}
	return &Error{Kind: KindRecordDecode, Label: "Record reading failed.", Format: format, Index: index, Err: err}
}

// Integrity reports a dangling dictionary reference.
func Integrity(format string, err error) *Error {
	return &Error{Kind: KindFormatIntegrity, Label: "Dictionary lookup failed.", Format: format, Index: -1, Err: err}
}

// Layout reports records that cannot be laid out as text.
func Layout(format string, err error) *Error {
	return &Error{Kind: KindEncodeLayout, Label: "Could not lay out records.", Format: format, Index: -1, Err: err}
}

// NotFound reports an unregistered format and mode pair.
func NotFound(format string, err error) *Error {
	return &Error{Kind: KindNotFound, Label: "Format not supported.", Format: format, Index: -1, Err: err}
}

// Is reports whether err, or any error it wraps, is an *Error of kind k.
func Is(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

// IndexOf returns the record index carried by err, or -1.
func IndexOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Index
	}
	return -1
}
