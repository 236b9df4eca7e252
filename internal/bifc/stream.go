package bifc

import (
	"errors"
	"fmt"
	"io"

	"github.com/meigma/bif/internal/biftype"
)

// Stream reads a bounded run of logical bytes from a chain, starting at the
// chain's current position. It is not seekable.
type Stream struct {
	chain     *Chain
	remaining int64
	closer    io.Closer
	closed    bool
}

// NewStream returns a stream of size bytes read from c. closer, if non-nil,
// is closed with the stream and should release the chain's source.
func NewStream(c *Chain, size int64, closer io.Closer) *Stream {
	return &Stream{
		chain:     c,
		remaining: size,
		closer:    closer,
	}
}

// Read copies up to len(p) bytes, crossing block boundaries as needed.
// It returns io.EOF once the stream's size has been consumed.
func (s *Stream) Read(p []byte) (int, error) {
	if s.closed {
		return 0, errors.New("bifc: read on closed stream")
	}
	if s.remaining == 0 {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}
	if int64(len(p)) > s.remaining {
		p = p[:s.remaining]
	}
	filled := 0
	for filled < len(p) {
		n, err := s.chain.Read(p[filled:])
		filled += n
		if err != nil {
			s.remaining -= int64(filled)
			if errors.Is(err, io.EOF) {
				return filled, fmt.Errorf("%w: stream ended %d bytes short", biftype.ErrCorrupt, s.remaining)
			}
			return filled, err
		}
	}
	s.remaining -= int64(filled)
	return filled, nil
}

// ReadByte returns the next byte, or io.EOF when the stream is exhausted.
func (s *Stream) ReadByte() (byte, error) {
	var b [1]byte
	if _, err := s.Read(b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// Available returns the number of bytes not yet read.
func (s *Stream) Available() int64 {
	return s.remaining
}

// Close releases the stream's source. It is safe to call more than once.
func (s *Stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.remaining = 0
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
