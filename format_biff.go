package bif

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/exp/mmap"

	"github.com/meigma/bif/internal/biftype"
)

// biffFormat reads an uncompressed archive through one shared handle.
type biffFormat struct {
	ra     io.ReaderAt
	size   int64
	closer io.Closer
}

// newBIFFFormat takes ownership of f.
func newBIFFFormat(path string, f *os.File, useMmap bool) (*biffFormat, error) {
	if useMmap {
		if err := f.Close(); err != nil {
			return nil, err
		}
		m, err := mmap.Open(path)
		if err != nil {
			return nil, err
		}
		return &biffFormat{ra: m, size: int64(m.Len()), closer: m}, nil
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close() //nolint:errcheck // stat error takes precedence
		return nil, err
	}
	return &biffFormat{ra: f, size: info.Size(), closer: f}, nil
}

func (b *biffFormat) open(context.Context) (cursor, error) {
	return &biffCursor{ra: b.ra, size: b.size}, nil
}

func (b *biffFormat) seekable() bool { return true }

func (b *biffFormat) close() error { return b.closer.Close() }

// biffCursor reads with ReadAt, so any number of cursors may share a handle.
type biffCursor struct {
	ra   io.ReaderAt
	off  int64
	size int64
}

func (c *biffCursor) Read(p []byte) (int, error) {
	if c.off >= c.size {
		return 0, io.EOF
	}
	if rest := c.size - c.off; int64(len(p)) > rest {
		p = p[:rest]
	}
	n, err := c.ra.ReadAt(p, c.off)
	c.off += int64(n)
	if n > 0 && errors.Is(err, io.EOF) {
		err = nil
	}
	return n, err
}

func (c *biffCursor) pos() int64 { return c.off }

func (c *biffCursor) seek(_ context.Context, off int64) error {
	if off < 0 {
		return fmt.Errorf("%w: negative offset %d", biftype.ErrCorrupt, off)
	}
	c.off = off
	return nil
}

func (c *biffCursor) stream(size int64) io.Reader {
	return bufio.NewReader(io.LimitReader(c, size))
}

func (c *biffCursor) Close() error { return nil }
