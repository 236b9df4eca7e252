package bif

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// ResourceReader streams the payload of one resource.
//
// It reads exactly the resource's size and then returns io.EOF. It is not
// seekable and is not safe for concurrent use. Close must be called to
// release the underlying handle.
type ResourceReader struct {
	archive   *Archive
	desc      Descriptor
	r         io.Reader
	size      int64
	remaining int64
	closer    io.Closer
	onClose   func()
	closed    bool
}

// newBytesReader serves an already materialized payload.
func newBytesReader(a *Archive, data []byte) *ResourceReader {
	return &ResourceReader{
		archive:   a,
		r:         bytes.NewReader(data),
		size:      int64(len(data)),
		remaining: int64(len(data)),
	}
}

// Read implements io.Reader.
func (r *ResourceReader) Read(p []byte) (int, error) {
	if r.closed {
		return 0, wrapErr("read", r.archive.path, errors.New("bif: read on closed resource reader"))
	}
	if r.remaining == 0 {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}
	if int64(len(p)) > r.remaining {
		p = p[:r.remaining]
	}
	n, err := r.r.Read(p)
	r.remaining -= int64(n)
	switch {
	case err == nil:
		return n, nil
	case errors.Is(err, io.EOF):
		if r.remaining > 0 {
			return n, wrapErr("read", r.archive.path,
				fmt.Errorf("%w: resource ended %d bytes short", ErrCorrupt, r.remaining))
		}
		return n, nil
	default:
		return n, wrapErr("read", r.archive.path, err)
	}
}

// ReadByte returns the next payload byte, or io.EOF once the resource is exhausted.
func (r *ResourceReader) ReadByte() (byte, error) {
	var b [1]byte
	for {
		n, err := r.Read(b[:])
		if n == 1 {
			return b[0], nil
		}
		if err != nil {
			return 0, err
		}
	}
}

// Available returns the number of payload bytes not yet read.
func (r *ResourceReader) Available() int64 {
	return r.remaining
}

// Size returns the total payload size.
func (r *ResourceReader) Size() int64 {
	return r.size
}

// Descriptor returns the resource's table record. It is the zero value for
// payloads served from a cache.
func (r *ResourceReader) Descriptor() Descriptor {
	return r.desc
}

// Close releases the reader. It is safe to call more than once.
func (r *ResourceReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.remaining = 0
	if r.onClose != nil {
		r.onClose()
	}
	if r.closer != nil {
		return wrapErr("close", r.archive.path, r.closer.Close())
	}
	return nil
}
