// Package crnerr defines the structured error kinds shared by every CRN
// decode stage, so callers can recover a stable machine-checkable failure
// mode from a wrapped error chain instead of matching on message text.
package crnerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies a decode failure. The core is all-or-nothing per level:
// every failure surfaces as exactly one of these kinds, annotated with the
// name of the sub-stream being decoded when it occurred.
type Kind int

const (
	ReadPastEnd Kind = iota + 1
	MetaCountExceedsShuffle
	IncompleteHuffmanTree
	HuffmanNoMatch
	RunLengthBeforeAnyDepth
	PaletteTrailingBytes
	TableTrailingBytes
	LevelTrailingBytes
	EmptyPaletteAccess
	UnsupportedFormat
	LevelOutOfRange
)

func (k Kind) String() string {
	switch k {
	case ReadPastEnd:
		return "ReadPastEnd"
	case MetaCountExceedsShuffle:
		return "MetaCountExceedsShuffle"
	case IncompleteHuffmanTree:
		return "IncompleteHuffmanTree"
	case HuffmanNoMatch:
		return "HuffmanNoMatch"
	case RunLengthBeforeAnyDepth:
		return "RunLengthBeforeAnyDepth"
	case PaletteTrailingBytes:
		return "PaletteTrailingBytes"
	case TableTrailingBytes:
		return "TableTrailingBytes"
	case LevelTrailingBytes:
		return "LevelTrailingBytes"
	case EmptyPaletteAccess:
		return "EmptyPaletteAccess"
	case UnsupportedFormat:
		return "UnsupportedFormat"
	case LevelOutOfRange:
		return "LevelOutOfRange"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is a structured decode failure: a Kind plus the pkg/errors context
// chain built up as the failure propagated out of nested sub-streams.
type Error struct {
	Kind Kind
	err  error
}

func (e *Error) Error() string { return e.err.Error() }
func (e *Error) Unwrap() error { return e.err }

// New creates a new Error of the given kind with a message.
func New(kind Kind, message string) error {
	return &Error{Kind: kind, err: errors.New(message)}
}

// Newf is New with fmt-style formatting.
func Newf(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, err: errors.Errorf(format, args...)}
}

// Wrap annotates err with a sub-stream context message, preserving err's
// Kind if it already carries one (the wrapped error keeps classifying as
// the same Kind all the way out to the public API).
func Wrap(err error, context string) error {
	if err == nil {
		return nil
	}
	kind := KindOf(err)
	return &Error{Kind: kind, err: errors.Wrap(err, context)}
}

// Wrapf is Wrap with fmt-style formatting of the context message.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	kind := KindOf(err)
	return &Error{Kind: kind, err: errors.Wrapf(err, format, args...)}
}

// KindOf extracts the Kind from err's chain, or 0 if none is present.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// Is reports whether err's chain carries the given Kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
