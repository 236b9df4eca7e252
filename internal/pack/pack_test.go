package pack

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/bif/internal/biftype"
	"github.com/meigma/bif/internal/inflate"
)

func TestBuildBIFFLayout(t *testing.T) {
	t.Parallel()

	biff, err := BuildBIFF(
		[]Resource{
			{Type: 0x3ed, Data: []byte("first")},
			{Type: 0x3f2, Data: []byte("second!")},
		},
		[]Tileset{
			{Type: 0x3eb, TileSize: 4, Data: []byte("abcdefgh")},
		},
	)
	require.NoError(t, err)

	assert.Equal(t, biftype.MagicBIFF, string(biff[0:4]))
	assert.Equal(t, biftype.VersionBIFF, string(biff[4:8]))
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(biff[8:12]))
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(biff[12:16]))
	assert.Equal(t, uint32(biftype.HeaderSize), binary.LittleEndian.Uint32(biff[16:20]))

	table := biff[biftype.HeaderSize:]
	d0, err := biftype.DecodeDescriptor(table[0:16], false)
	require.NoError(t, err)
	d1, err := biftype.DecodeDescriptor(table[16:32], false)
	require.NoError(t, err)
	ts, err := biftype.DecodeDescriptor(table[32:52], true)
	require.NoError(t, err)

	assert.Equal(t, uint32(0), d0.Key)
	assert.Equal(t, uint32(1), d1.Key)
	assert.Equal(t, uint32(1)<<TilesetShift, ts.Key)

	assert.Equal(t, []byte("first"), biff[d0.Offset:d0.Offset+d0.Size])
	assert.Equal(t, []byte("second!"), biff[d1.Offset:d1.Offset+d1.Size])
	assert.Equal(t, uint32(2), ts.TileCount)
	assert.Equal(t, uint32(4), ts.TileSize)
	assert.Equal(t, int64(8), ts.DataSize())
	assert.Equal(t, []byte("abcdefgh"), biff[ts.Offset:int64(ts.Offset)+ts.DataSize()])
	assert.Equal(t, uint16(0x3eb), ts.Type)
}

func TestBuildBIFFRejectsRaggedTileset(t *testing.T) {
	t.Parallel()

	_, err := BuildBIFF(nil, []Tileset{{TileSize: 3, Data: []byte("abcd")}})
	require.Error(t, err)

	_, err = BuildBIFF(nil, []Tileset{{TileSize: 0, Data: []byte("a")}})
	require.Error(t, err)
}

func TestBuildBIFFKeyLimits(t *testing.T) {
	t.Parallel()

	resources := make([]Resource, 1<<TilesetShift-1)
	out, err := BuildBIFF(resources, nil)
	require.NoError(t, err)
	last := biftype.HeaderSize + (len(resources)-1)*biftype.ResourceRecordSize
	require.Equal(t, uint32(len(resources)-1), binary.LittleEndian.Uint32(out[last:]))

	_, err = BuildBIFF(append(resources, Resource{}), nil)
	require.Error(t, err)

	_, err = BuildBIFF(nil, make([]Tileset, 1<<6))
	require.Error(t, err)
}

func TestWriteBIFHeader(t *testing.T) {
	t.Parallel()

	biff := bytes.Repeat([]byte("x"), 100)
	var buf bytes.Buffer
	require.NoError(t, WriteBIF(&buf, "AREA.BIF", biff, zlib.BestCompression))

	out := buf.Bytes()
	assert.Equal(t, biftype.MagicBIF, string(out[0:4]))
	assert.Equal(t, biftype.VersionCompressed, string(out[4:8]))
	nameLen := binary.LittleEndian.Uint32(out[8:12])
	assert.Equal(t, uint32(9), nameLen)
	assert.Equal(t, "AREA.BIF\x00", string(out[12:21]))
	assert.Equal(t, uint32(100), binary.LittleEndian.Uint32(out[21:25]))
	compLen := binary.LittleEndian.Uint32(out[25:29])
	assert.Len(t, out[29:], int(compLen))

	got, err := inflate.NewPool().Inflate(out[29:], 100)
	require.NoError(t, err)
	assert.Equal(t, biff, got)
}

func TestWriteBIFCBlocks(t *testing.T) {
	t.Parallel()

	biff := bytes.Repeat([]byte("0123456789"), 5)
	var buf bytes.Buffer
	require.NoError(t, WriteBIFC(&buf, biff, 16, zlib.DefaultCompression))

	out := buf.Bytes()
	assert.Equal(t, biftype.MagicBIFC, string(out[0:4]))
	assert.Equal(t, uint32(len(biff)), binary.LittleEndian.Uint32(out[8:12]))

	var got []byte
	rest := out[BIFCHeaderSize:]
	for len(rest) > 0 {
		dec := binary.LittleEndian.Uint32(rest[0:4])
		comp := binary.LittleEndian.Uint32(rest[4:8])
		assert.LessOrEqual(t, dec, uint32(16))
		block, err := inflate.NewPool().Inflate(rest[8:8+comp], int64(dec))
		require.NoError(t, err)
		got = append(got, block...)
		rest = rest[8+comp:]
	}
	assert.Equal(t, biff, got)
}

func TestAppendBlocksSizeMismatch(t *testing.T) {
	t.Parallel()

	_, err := AppendBlocks(nil, []byte("abc"), []int{1, 1}, zlib.BestSpeed)
	require.Error(t, err)

	_, err = AppendBlocks(nil, []byte("abc"), []int{4, -1}, zlib.BestSpeed)
	require.Error(t, err)
}

func TestSplitSizes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []int{4, 4, 2}, SplitSizes(10, 4))
	assert.Equal(t, []int{10}, SplitSizes(10, 100))
	assert.Nil(t, SplitSizes(0, 4))
}
