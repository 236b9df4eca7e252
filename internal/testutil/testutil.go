// Package testutil builds archive fixtures for tests.
package testutil

import (
	"bytes"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zlib"

	"github.com/meigma/bif/internal/pack"
)

// Bytes returns n deterministic pseudo-random bytes.
func Bytes(n int, seed uint64) []byte {
	r := rand.New(rand.NewPCG(seed, seed*31+7))
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(r.Uint32())
	}
	return out
}

// BuildBIFF lays out a BIFF stream, failing the test on error.
func BuildBIFF(tb testing.TB, resources []pack.Resource, tilesets []pack.Tileset) []byte {
	tb.Helper()
	biff, err := pack.BuildBIFF(resources, tilesets)
	if err != nil {
		tb.Fatalf("build BIFF: %v", err)
	}
	return biff
}

// WriteFile writes data to name inside a fresh temp directory and returns its path.
func WriteFile(tb testing.TB, name string, data []byte) string {
	tb.Helper()
	path := filepath.Join(tb.TempDir(), name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		tb.Fatalf("write %s: %v", path, err)
	}
	return path
}

// WriteBIFF writes biff unchanged and returns its path.
func WriteBIFF(tb testing.TB, biff []byte) string {
	tb.Helper()
	return WriteFile(tb, "plain.bif", biff)
}

// WriteBIF writes biff as a BIF archive and returns its path.
func WriteBIF(tb testing.TB, biff []byte) string {
	tb.Helper()
	var buf bytes.Buffer
	if err := pack.WriteBIF(&buf, "data\\TEST.bif", biff, zlib.DefaultCompression); err != nil {
		tb.Fatalf("write BIF: %v", err)
	}
	return WriteFile(tb, "single.bif", buf.Bytes())
}

// WriteBIFC writes biff as a BIFC archive with blocks of blockSize bytes
// and returns its path.
func WriteBIFC(tb testing.TB, biff []byte, blockSize int) string {
	tb.Helper()
	return WriteBIFCBlocks(tb, biff, pack.SplitSizes(len(biff), blockSize))
}

// WriteBIFCBlocks writes biff as a BIFC archive split at the given block
// sizes and returns its path.
func WriteBIFCBlocks(tb testing.TB, biff []byte, sizes []int) string {
	tb.Helper()
	var buf bytes.Buffer
	if err := pack.WriteBIFCBlocks(&buf, biff, sizes, zlib.DefaultCompression); err != nil {
		tb.Fatalf("write BIFC: %v", err)
	}
	return WriteFile(tb, "blocks.cbf", buf.Bytes())
}

// SampleResources returns a small mixed set of resources and tilesets.
func SampleResources() ([]pack.Resource, []pack.Tileset) {
	resources := []pack.Resource{
		{Type: 0x03ed, Data: []byte("ITM V1  sword")},
		{Type: 0x03f2, Data: Bytes(5000, 1)},
		{Type: 0x0001, Data: []byte{}},
		{Type: 0x03f4, Data: []byte("2DA V1.0\n0\n")},
		{Type: 0x03f1, Data: Bytes(70_000, 2)},
	}
	tilesets := []pack.Tileset{
		{Type: 0x03eb, TileSize: 64, Data: Bytes(64*3, 3)},
		{Type: 0x03eb, TileSize: 16, Data: Bytes(16*10, 4)},
	}
	return resources, tilesets
}
