package bifc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/meigma/bif/internal/biftype"
	"github.com/meigma/bif/internal/inflate"
)

// ErrBackwardSeek is returned when a chain is asked to move before its
// current position. Callers recover by reopening the archive.
var ErrBackwardSeek = errors.New("bifc: backward seek on forward-only chain")

// Chain is a forward-only cursor over the logical bytes of a block chain.
//
// Invariant: while the current block is pending, the source is positioned at
// its first compressed byte; once it is resolved, the source is positioned
// at the next block header.
type Chain struct {
	src   *bufio.Reader
	pool  *inflate.Pool
	cur   *Block
	start int64 // logical offset of cur
	idx   int64 // read position inside cur
}

// NewChain returns a chain reading block headers from r, which must be
// positioned at the first block.
func NewChain(r io.Reader, pool *inflate.Pool) *Chain {
	return &Chain{
		src:  bufio.NewReader(r),
		pool: pool,
	}
}

// Pos returns the logical offset of the next byte to be read.
func (c *Chain) Pos() int64 {
	return c.start + c.idx
}

// Block returns the current block and the read position inside it.
// It returns nil before the first block is loaded.
func (c *Chain) Block() (*Block, int64) {
	return c.cur, c.idx
}

// advance discards the current block and loads the next header.
// A pending block is skipped without being inflated.
func (c *Chain) advance() error {
	if c.cur != nil {
		if !c.cur.Resolved() {
			if err := c.cur.Skip(c.src); err != nil {
				return err
			}
		}
		c.start += c.cur.Len()
		c.idx = 0
		c.cur = nil
	}
	sizes, err := ReadSizes(c.src)
	if err != nil {
		return err
	}
	c.cur = NewBlock(sizes)
	return nil
}

// Seek moves the chain forward to the logical offset off.
//
// Blocks that end before off are skipped without inflating them. The block
// containing off is left pending until a read touches it. Seeking to the
// exact end of the chain succeeds; a later read then reports io.EOF.
func (c *Chain) Seek(ctx context.Context, off int64) error {
	if off < c.Pos() {
		return fmt.Errorf("%w: at %d, want %d", ErrBackwardSeek, c.Pos(), off)
	}
	for off != c.Pos() {
		if c.cur != nil && off < c.start+c.cur.Len() {
			c.idx = off - c.start
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.advance(); err != nil {
			if errors.Is(err, io.EOF) {
				if off == c.Pos() {
					return nil
				}
				return fmt.Errorf("%w: offset %d past end of stream at %d", biftype.ErrCorrupt, off, c.Pos())
			}
			return err
		}
	}
	return nil
}

// Read implements io.Reader. A single call copies from at most one block.
// It returns io.EOF once the last block is exhausted.
func (c *Chain) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for c.cur == nil || c.idx >= c.cur.Len() {
		if err := c.advance(); err != nil {
			return 0, err
		}
	}
	if !c.cur.Resolved() {
		if err := c.cur.Resolve(c.src, c.pool); err != nil {
			return 0, err
		}
	}
	chunk, err := c.cur.Bytes(c.idx, int64(len(p)))
	if err != nil {
		return 0, err
	}
	n := copy(p, chunk)
	c.idx += int64(n)
	return n, nil
}

// ReadFull fills p, assembling bytes across as many blocks as needed.
// Running out of blocks before p is full is reported as ErrCorrupt.
func (c *Chain) ReadFull(ctx context.Context, p []byte) error {
	for filled := 0; filled < len(p); {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := c.Read(p[filled:])
		filled += n
		if err != nil {
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("%w: stream ended %d bytes short", biftype.ErrCorrupt, len(p)-filled)
			}
			return err
		}
	}
	return nil
}
