package bif

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/meigma/bif/internal/bifc"
	"github.com/meigma/bif/internal/biftype"
	"github.com/meigma/bif/internal/inflate"
)

// bifcHeaderSize is the size of the BIFC header preceding the first block.
const bifcHeaderSize = 12

// bifcFormat reads a block-compressed archive. Every cursor opens its own
// handle and walks the block chain from the first block.
type bifcFormat struct {
	path string
	pool *inflate.Pool
}

// readBIFCHeader parses the outer BIFC header.
func readBIFCHeader(f *os.File, h *Header) error {
	var hdr [bifcHeaderSize]byte
	if _, err := f.ReadAt(hdr[:], 0); err != nil {
		return fmt.Errorf("%w: BIFC header: %v", biftype.ErrCorrupt, err)
	}
	h.Version = string(hdr[4:8])
	h.UncompressedLength = int64(binary.LittleEndian.Uint32(hdr[8:12]))
	h.CompressedStreamOffset = bifcHeaderSize
	return nil
}

func (b *bifcFormat) open(context.Context) (cursor, error) {
	f, err := os.Open(b.path)
	if err != nil {
		return nil, err
	}
	if _, err := f.Seek(bifcHeaderSize, io.SeekStart); err != nil {
		_ = f.Close() //nolint:errcheck // seek error takes precedence
		return nil, err
	}
	return &bifcCursor{f: f, chain: bifc.NewChain(f, b.pool)}, nil
}

func (b *bifcFormat) seekable() bool { return false }

func (b *bifcFormat) close() error { return nil }

// bifcCursor walks the block chain of one handle.
type bifcCursor struct {
	f      *os.File
	chain  *bifc.Chain
	closed bool
}

func (c *bifcCursor) Read(p []byte) (int, error) { return c.chain.Read(p) }

func (c *bifcCursor) pos() int64 { return c.chain.Pos() }

func (c *bifcCursor) seek(ctx context.Context, off int64) error {
	return c.chain.Seek(ctx, off)
}

func (c *bifcCursor) stream(size int64) io.Reader {
	return bifc.NewStream(c.chain, size, nil)
}

func (c *bifcCursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.f.Close()
}
