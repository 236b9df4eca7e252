package inflate

import (
	"bytes"
	"io"
	"math/rand/v2"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/bif/internal/biftype"
)

func randomBytes(n int, seed uint64) []byte {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(r.Uint32())
	}
	return out
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", []byte{}},
		{"one byte", []byte{0x7f}},
		{"text", bytes.Repeat([]byte("BIFFV1  "), 512)},
		// Random data larger than a deflate window forces several deflate blocks.
		{"multi block", randomBytes(200_000, 1)},
	}

	pool := NewPool()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			compressed, err := DeflateBytes(tt.data, zlib.DefaultCompression)
			require.NoError(t, err)

			out, err := pool.Inflate(compressed, int64(len(tt.data)))
			require.NoError(t, err)
			assert.Equal(t, tt.data, out)
		})
	}
}

func TestInflateSizeMismatch(t *testing.T) {
	t.Parallel()

	compressed, err := DeflateBytes([]byte("short"), zlib.BestSpeed)
	require.NoError(t, err)

	_, err = NewPool().Inflate(compressed, 10)
	require.ErrorIs(t, err, biftype.ErrDecompression)
}

func TestInflateGarbage(t *testing.T) {
	t.Parallel()

	_, err := NewPool().Inflate([]byte("definitely not zlib"), 4)
	require.ErrorIs(t, err, biftype.ErrDecompression)
}

func TestGetReusesReaders(t *testing.T) {
	t.Parallel()

	pool := NewPool()
	for i := range 4 {
		data := randomBytes(1000+i, uint64(i))
		compressed, err := DeflateBytes(data, zlib.BestCompression)
		require.NoError(t, err)

		zr, release, err := pool.Get(bytes.NewReader(compressed))
		require.NoError(t, err)
		got, err := io.ReadAll(zr)
		release()
		require.NoError(t, err)
		assert.Equal(t, data, got)
	}
}

func TestNilPool(t *testing.T) {
	t.Parallel()

	var pool *Pool
	compressed, err := DeflateBytes([]byte("nil pool"), zlib.DefaultCompression)
	require.NoError(t, err)

	out, err := pool.Inflate(compressed, 8)
	require.NoError(t, err)
	assert.Equal(t, []byte("nil pool"), out)
}

func TestClassify(t *testing.T) {
	t.Parallel()

	require.NoError(t, Classify(nil))
	require.ErrorIs(t, Classify(io.ErrUnexpectedEOF), biftype.ErrCorrupt)
	require.ErrorIs(t, Classify(zlib.ErrChecksum), biftype.ErrDecompression)
	require.ErrorIs(t, Classify(zlib.ErrHeader), biftype.ErrDecompression)
}
