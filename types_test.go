package bif

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResourceTypeExtension(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "itm", TypeITM.Extension())
	assert.Equal(t, "ITM", TypeITM.String())
	assert.Equal(t, "2da", Type2DA.Extension())
	assert.Equal(t, "beef", ResourceType(0xbeef).Extension())
	assert.Equal(t, "0xbeef", ResourceType(0xbeef).String())
}

func TestTypeForExtension(t *testing.T) {
	t.Parallel()

	for _, ext := range []string{"tis", ".TIS", "Tis"} {
		got, ok := TypeForExtension(ext)
		require.True(t, ok, ext)
		assert.Equal(t, TypeTIS, got, ext)
	}
	_, ok := TypeForExtension("exe")
	assert.False(t, ok)
	_, ok = TypeForExtension("")
	assert.False(t, ok)
}

func TestSignatureCompressed(t *testing.T) {
	t.Parallel()

	assert.False(t, SignatureBIFF.Compressed())
	assert.True(t, SignatureBIF.Compressed())
	assert.True(t, SignatureBIFC.Compressed())
}

func TestParseBIFFHeader(t *testing.T) {
	t.Parallel()

	b := []byte("BIFFV1  \x02\x00\x00\x00\x01\x00\x00\x00\x18\x00\x00\x00")
	h := Header{Signature: SignatureBIFF}
	require.NoError(t, parseBIFFHeader(&h, b))
	assert.Equal(t, uint32(2), h.ResourceCount)
	assert.Equal(t, uint32(1), h.TilesetCount)
	assert.Equal(t, uint32(24), h.EntryTableOffset)
	assert.Equal(t, "V1  ", h.Version)

	compressed := Header{Signature: SignatureBIFC, Version: "V1.0"}
	require.NoError(t, parseBIFFHeader(&compressed, b))
	assert.Equal(t, "V1.0", compressed.Version)

	require.ErrorIs(t, parseBIFFHeader(&h, b[:12]), ErrCorrupt)
	require.ErrorIs(t, parseBIFFHeader(&h, []byte("KEY V1  \x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00")), ErrCorrupt)
}
