package bif

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/meigma/bif/internal/bifc"
	"github.com/meigma/bif/internal/biftype"
	"github.com/meigma/bif/internal/inflate"
)

// bifFormat reads an archive holding one zlib stream. Every cursor opens
// its own handle and inflates from the start of the stream.
type bifFormat struct {
	path   string
	offset int64
	pool   *inflate.Pool
}

// readBIFHeader parses the outer BIF header and returns the offset of the
// compressed stream.
func readBIFHeader(f *os.File, size int64, h *Header) (int64, error) {
	var fixed [12]byte
	if _, err := f.ReadAt(fixed[:], 0); err != nil {
		return 0, fmt.Errorf("%w: BIF header: %v", biftype.ErrCorrupt, err)
	}
	h.Version = string(fixed[4:8])
	nameLen := int64(binary.LittleEndian.Uint32(fixed[8:12]))
	offset := int64(len(fixed)) + nameLen + 8
	if offset > size {
		return 0, fmt.Errorf("%w: BIF name length %d exceeds file size %d", biftype.ErrCorrupt, nameLen, size)
	}

	rest := make([]byte, nameLen+8)
	if _, err := f.ReadAt(rest, int64(len(fixed))); err != nil {
		return 0, fmt.Errorf("%w: BIF header: %v", biftype.ErrCorrupt, err)
	}
	h.Name = strings.TrimRight(string(rest[:nameLen]), "\x00")
	h.UncompressedLength = int64(binary.LittleEndian.Uint32(rest[nameLen : nameLen+4]))
	h.CompressedStreamOffset = offset
	return offset, nil
}

func (b *bifFormat) open(context.Context) (cursor, error) {
	f, err := os.Open(b.path)
	if err != nil {
		return nil, err
	}
	if _, err := f.Seek(b.offset, io.SeekStart); err != nil {
		_ = f.Close() //nolint:errcheck // seek error takes precedence
		return nil, err
	}
	zr, release, err := b.pool.Get(bufio.NewReader(f))
	if err != nil {
		_ = f.Close() //nolint:errcheck // inflate error takes precedence
		return nil, err
	}
	return &bifCursor{f: f, zr: zr, release: release}, nil
}

func (b *bifFormat) seekable() bool { return false }

func (b *bifFormat) close() error { return nil }

// bifCursor inflates a BIF stream forward from its start.
type bifCursor struct {
	f       *os.File
	zr      io.Reader
	release func()
	n       int64
	closed  bool
}

func (c *bifCursor) Read(p []byte) (int, error) {
	n, err := c.zr.Read(p)
	c.n += int64(n)
	if err != nil && !errors.Is(err, io.EOF) {
		err = inflate.Classify(err)
	}
	return n, err
}

func (c *bifCursor) pos() int64 { return c.n }

func (c *bifCursor) seek(ctx context.Context, off int64) error {
	if off < c.n {
		return fmt.Errorf("%w: at %d, want %d", bifc.ErrBackwardSeek, c.n, off)
	}
	return skip(ctx, c, off-c.n)
}

func (c *bifCursor) stream(size int64) io.Reader {
	return io.LimitReader(c, size)
}

func (c *bifCursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.release()
	return c.f.Close()
}
