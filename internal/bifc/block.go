// Package bifc walks the block chain of a BIFC archive.
//
// A BIFC archive stores a BIFF stream as a sequence of independently
// zlib-compressed blocks. Each block is preceded by an 8-byte header
// carrying its decompressed and compressed sizes. Blocks are visited in
// file order only; a block is inflated at most once and only when a read
// actually touches it.
package bifc

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/meigma/bif/internal/biftype"
	"github.com/meigma/bif/internal/inflate"
)

// BlockHeaderSize is the size of the sizes header preceding every block.
const BlockHeaderSize = 8

// errUnresolved is returned when payload bytes are requested from a pending block.
var errUnresolved = errors.New("bifc: block payload not resolved")

// Sizes holds the header fields of a compressed block.
type Sizes struct {
	Decompressed uint32
	Compressed   uint32
}

// ReadSizes reads a block header. It returns io.EOF if r is exhausted before
// the first byte and a wrapped ErrCorrupt for a partial header.
func ReadSizes(r io.Reader) (Sizes, error) {
	var hdr [BlockHeaderSize]byte
	n, err := io.ReadFull(r, hdr[:])
	switch {
	case err == nil:
	case errors.Is(err, io.EOF) && n == 0:
		return Sizes{}, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		return Sizes{}, fmt.Errorf("%w: block header is %d bytes", biftype.ErrCorrupt, n)
	default:
		return Sizes{}, err
	}
	return Sizes{
		Decompressed: binary.LittleEndian.Uint32(hdr[0:4]),
		Compressed:   binary.LittleEndian.Uint32(hdr[4:8]),
	}, nil
}

// blockState tracks whether a block's payload has been inflated.
type blockState uint8

const (
	statePending blockState = iota
	stateResolved
)

// Block is one compressed block of a BIFC chain.
//
// A block starts Pending: only its sizes are known and its compressed bytes
// are still unread in the source. Resolve reads and inflates them exactly
// once, moving the block to Resolved.
type Block struct {
	sizes   Sizes
	state   blockState
	payload []byte
}

// NewBlock returns a pending block with the given sizes.
func NewBlock(s Sizes) *Block {
	return &Block{sizes: s}
}

// Sizes returns the block header fields.
func (b *Block) Sizes() Sizes { return b.sizes }

// Len returns the decompressed length of the block.
func (b *Block) Len() int64 { return int64(b.sizes.Decompressed) }

// Resolved reports whether the payload has been inflated.
func (b *Block) Resolved() bool { return b.state == stateResolved }

// Resolve reads the compressed payload from src and inflates it.
// src must be positioned at the first compressed byte of the block.
// Resolving an already resolved block is a no-op and does not touch src.
func (b *Block) Resolve(src io.Reader, pool *inflate.Pool) error {
	if b.state == stateResolved {
		return nil
	}
	// Buffer growth follows the bytes actually present, so a corrupt size
	// field cannot force a huge allocation up front.
	var compressed bytes.Buffer
	if n, err := io.CopyN(&compressed, src, int64(b.sizes.Compressed)); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: block payload is %d of %d bytes", biftype.ErrCorrupt, n, b.sizes.Compressed)
		}
		return err
	}
	payload, err := pool.Inflate(compressed.Bytes(), int64(b.sizes.Decompressed))
	if err != nil {
		return err
	}
	b.payload = payload
	b.state = stateResolved
	return nil
}

// Skip discards the compressed payload of a pending block from src without
// inflating it.
func (b *Block) Skip(src io.Reader) error {
	if b.state == stateResolved {
		return nil
	}
	n, err := io.CopyN(io.Discard, src, int64(b.sizes.Compressed))
	if err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: block payload is %d of %d bytes", biftype.ErrCorrupt, n, b.sizes.Compressed)
		}
		return err
	}
	return nil
}

// Bytes returns up to n payload bytes starting at off.
// The returned slice aliases the block's buffer and must not be modified.
func (b *Block) Bytes(off, n int64) ([]byte, error) {
	if b.state != stateResolved {
		return nil, errUnresolved
	}
	if off < 0 || off > int64(len(b.payload)) {
		return nil, fmt.Errorf("bifc: offset %d outside block of %d bytes", off, len(b.payload))
	}
	end := min(off+n, int64(len(b.payload)))
	return b.payload[off:end], nil
}
