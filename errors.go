package bif

import (
	"context"
	"errors"
	"io"

	"github.com/meigma/bif/internal/biftype"
)

// Sentinel errors. Errors returned by this package match them with errors.Is.
var (
	// ErrUnsupportedFormat is returned when an archive signature is not recognized.
	ErrUnsupportedFormat = biftype.ErrUnsupportedFormat

	// ErrCorrupt is returned when an archive is truncated or a record is malformed.
	ErrCorrupt = biftype.ErrCorrupt

	// ErrDecompression is returned when a zlib stream cannot be inflated.
	ErrDecompression = biftype.ErrDecompression

	// ErrInvalidLocator is returned for locators that have no table slot.
	ErrInvalidLocator = biftype.ErrInvalidLocator

	// ErrSizeOverflow is returned when a resource is too large to materialize.
	ErrSizeOverflow = biftype.ErrSizeOverflow

	// ErrClosed is returned when an archive is used after Close.
	ErrClosed = errors.New("bif: archive closed")
)

// ErrorKind classifies archive errors.
type ErrorKind uint8

// Error kinds.
const (
	// KindIO covers failures of the underlying file system.
	KindIO ErrorKind = iota

	// KindUnsupportedFormat means the file is not a BIFF, BIF or BIFC archive.
	KindUnsupportedFormat

	// KindCorrupt means the archive ended early or a record points outside it.
	KindCorrupt

	// KindDecompression means a zlib stream or block could not be inflated.
	KindDecompression
)

// String returns the string representation of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindUnsupportedFormat:
		return "unsupported format"
	case KindCorrupt:
		return "corrupt"
	case KindDecompression:
		return "decompression"
	default:
		return "unknown"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindUnsupportedFormat:
		return ErrUnsupportedFormat
	case KindCorrupt:
		return ErrCorrupt
	case KindDecompression:
		return ErrDecompression
	default:
		return nil
	}
}

// Error records a failed archive operation.
type Error struct {
	Kind ErrorKind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	return e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel of the error's kind, so a short read reported by
// the file system still satisfies errors.Is(err, ErrCorrupt).
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// KindOf returns the kind of err. Errors not produced by this package are
// reported as KindIO.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return classify(err)
}

func classify(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrUnsupportedFormat):
		return KindUnsupportedFormat
	case errors.Is(err, ErrDecompression):
		return KindDecompression
	case errors.Is(err, ErrCorrupt), errors.Is(err, ErrInvalidLocator),
		errors.Is(err, ErrSizeOverflow),
		errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF):
		return KindCorrupt
	default:
		return KindIO
	}
}

// wrapErr attaches the operation and archive path to err.
// Context errors are returned unchanged.
func wrapErr(op, path string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: classify(err), Op: op, Path: path, Err: err}
}
