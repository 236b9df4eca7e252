// Package inflate pools zlib readers and classifies their failures.
package inflate

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zlib"

	"github.com/meigma/bif/internal/biftype"
)

// Pool manages reusable zlib readers to reduce allocation overhead.
// A nil *Pool is valid and creates a one-off reader per call.
type Pool struct {
	pool sync.Pool
}

// NewPool creates an empty reader pool.
func NewPool() *Pool {
	return &Pool{}
}

// Get returns a zlib reader positioned at the start of the stream in r.
// The caller must call the returned release function when done.
// If an error is returned, no release function needs to be called.
func (p *Pool) Get(r io.Reader) (io.ReadCloser, func(), error) {
	if p == nil {
		zr, err := zlib.NewReader(r)
		if err != nil {
			return nil, nil, Classify(err)
		}
		return zr, func() { _ = zr.Close() }, nil //nolint:errcheck // close only checks the trailer
	}

	if value := p.pool.Get(); value != nil {
		zr, ok := value.(io.ReadCloser)
		resetter, canReset := value.(zlib.Resetter)
		if ok && canReset {
			if err := resetter.Reset(r, nil); err != nil {
				return nil, nil, Classify(err)
			}
			return zr, func() { p.pool.Put(zr) }, nil
		}
	}

	zr, err := zlib.NewReader(r)
	if err != nil {
		return nil, nil, Classify(err)
	}
	return zr, func() { p.pool.Put(zr) }, nil
}

// Inflate decompresses src, which must inflate to at least size bytes.
// Only the first size bytes are returned.
func (p *Pool) Inflate(src []byte, size int64) ([]byte, error) {
	if size == 0 && len(src) == 0 {
		return []byte{}, nil
	}
	zr, release, err := p.Get(bytes.NewReader(src))
	if err != nil {
		return nil, err
	}
	defer release()

	var out bytes.Buffer
	out.Grow(int(min(size, int64(len(src))*4+512)))
	n, err := io.CopyN(&out, zr, size)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: inflated %d bytes, want %d", biftype.ErrDecompression, n, size)
		}
		return nil, Classify(err)
	}
	return out.Bytes(), nil
}

// Classify maps an error from a zlib reader onto the archive error taxonomy.
// A stream that ends early means the archive is truncated; any other
// failure is a decompression error.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, biftype.ErrCorrupt), errors.Is(err, biftype.ErrDecompression):
		return err
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return fmt.Errorf("%w: compressed stream ended early", biftype.ErrCorrupt)
	default:
		return fmt.Errorf("%w: %v", biftype.ErrDecompression, err)
	}
}
