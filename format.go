package bif

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/meigma/bif/internal/bifc"
	"github.com/meigma/bif/internal/biftype"
)

// format is the per-variant access strategy selected when an archive is opened.
type format interface {
	// open returns a cursor at offset 0 of the BIFF stream.
	open(ctx context.Context) (cursor, error)

	// seekable reports whether cursors can move backwards and whether
	// separate cursors may be used concurrently without reopening the file.
	seekable() bool

	close() error
}

// cursor is a position in the logical BIFF stream.
//
// Read advances the position. seek on a compressed cursor returns
// bifc.ErrBackwardSeek for offsets before the current position.
type cursor interface {
	io.Reader
	pos() int64
	seek(ctx context.Context, off int64) error

	// stream returns a reader over the next size bytes. The cursor must not
	// be used directly while the reader is live.
	stream(size int64) io.Reader

	Close() error
}

// readChunk bounds each read so long copies notice context cancellation.
const readChunk = 1 << 20

// readFull fills p from c, checking ctx between chunks.
func readFull(ctx context.Context, c io.Reader, p []byte) error {
	for len(p) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := min(len(p), readChunk)
		got, err := io.ReadFull(c, p[:n])
		p = p[got:]
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return fmt.Errorf("%w: stream ended %d bytes short", biftype.ErrCorrupt, len(p))
			}
			return err
		}
	}
	return nil
}

// readGrowing reads n bytes from c into a buffer that grows as data arrives.
// Sizes taken from a compressed stream are unverified until read, so a
// forged size fails on the short read rather than on allocation.
func readGrowing(ctx context.Context, c io.Reader, n int64) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(int(min(n, readChunk)))
	for n > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		got, err := io.CopyN(&buf, c, min(n, readChunk))
		n -= got
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, fmt.Errorf("%w: stream ended %d bytes short", biftype.ErrCorrupt, n)
			}
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// skip discards n bytes from r, checking ctx between chunks.
func skip(ctx context.Context, r io.Reader, n int64) error {
	for n > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		step := min(n, readChunk)
		got, err := io.CopyN(io.Discard, r, step)
		n -= got
		if err != nil {
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("%w: stream ended %d bytes before target", biftype.ErrCorrupt, n)
			}
			return err
		}
	}
	return nil
}

// ctxReader fails reads once its context is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r ctxReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

// isBackwardSeek reports whether err asks for the stream to be replayed.
func isBackwardSeek(err error) bool {
	return errors.Is(err, bifc.ErrBackwardSeek)
}
