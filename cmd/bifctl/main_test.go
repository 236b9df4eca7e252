package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/bif"
	"github.com/meigma/bif/internal/pack"
	"github.com/meigma/bif/internal/testutil"
	"github.com/meigma/bif/key"
)

// run executes bifctl with args and returns its standard output. Commands
// share package-level flag variables, so tests in this package do not run
// in parallel.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	verbose = false
	listDigest = false
	catTile, catOutput = false, ""
	*extractOpts = extractOptions{output: "."}
	compressFormat, compressBlockSize, compressName = "bifc", bif.DefaultBlockSize, ""
	keyBif, keyBifs = -1, false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func fixture(t *testing.T) (string, []pack.Resource, []pack.Tileset) {
	t.Helper()
	resources, tilesets := testutil.SampleResources()
	biff := testutil.BuildBIFF(t, resources, tilesets)
	return testutil.WriteBIFC(t, biff, 1024), resources, tilesets
}

func TestInfo(t *testing.T) {
	path, _, _ := fixture(t)
	out, err := run(t, "info", path)
	require.NoError(t, err)
	assert.Contains(t, out, "BIFC")
	assert.Contains(t, out, "Resources:          5")
	assert.Contains(t, out, "Tilesets:           2")
}

func TestList(t *testing.T) {
	path, resources, _ := fixture(t)
	out, err := run(t, "list", "--digest", path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 8)
	assert.Contains(t, lines[0], "DIGEST")
	assert.Contains(t, lines[2], "resource 1")
	assert.Contains(t, lines[2], digest.FromBytes(resources[1].Data).String())
	assert.Contains(t, lines[6], "tileset 1")
	assert.Contains(t, lines[6], "3x64")
}

func TestCat(t *testing.T) {
	path, resources, tilesets := fixture(t)
	out, err := run(t, "cat", path, "3")
	require.NoError(t, err)
	assert.Equal(t, string(resources[3].Data), out)

	dest := filepath.Join(t.TempDir(), "tiles.tis")
	_, err = run(t, "cat", "--tile", "-o", dest, path, "2")
	require.NoError(t, err)
	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, tilesets[1].Data, got)

	_, err = run(t, "cat", "--tile", path, "0")
	require.ErrorIs(t, err, bif.ErrInvalidLocator)
	_, err = run(t, "cat", path, "x")
	require.Error(t, err)
}

func TestCompressDecompress(t *testing.T) {
	resources, tilesets := testutil.SampleResources()
	biff := testutil.BuildBIFF(t, resources, tilesets)
	src := testutil.WriteBIFF(t, biff)
	dir := t.TempDir()

	for _, format := range []string{"bif", "bifc"} {
		packed := filepath.Join(dir, "out."+format)
		_, err := run(t, "compress", "--format", format, "--block-size", "500", src, packed)
		require.NoError(t, err)

		a, err := bif.Open(packed)
		require.NoError(t, err)
		assert.True(t, a.Signature().Compressed())
		require.NoError(t, a.Close())

		plain := filepath.Join(dir, "plain-"+format+".bif")
		_, err = run(t, "decompress", packed, plain)
		require.NoError(t, err)
		got, err := os.ReadFile(plain)
		require.NoError(t, err)
		assert.Equal(t, biff, got)
	}

	_, err := run(t, "compress", "--format", "zip", src, filepath.Join(dir, "x"))
	require.Error(t, err)
}

func TestExtractWithKey(t *testing.T) {
	root := t.TempDir()
	resources, tilesets := testutil.SampleResources()
	biff := testutil.BuildBIFF(t, resources, tilesets)
	archive := filepath.Join(root, "AREA.cbf")
	var buf bytes.Buffer
	require.NoError(t, bif.CompressBIFC(&buf, biff, 0))
	require.NoError(t, os.WriteFile(archive, buf.Bytes(), 0o600))

	k := key.New()
	k.AddBif("data/OTHER.bif", 0, key.LocationData)
	idx := k.AddBif(`data\AREA.bif`, uint32(len(biff)), key.LocationData)
	raw, ok := key.JoinLocator(idx, bif.ResourceAt(1))
	require.True(t, ok)
	k.Add(key.Resource{Name: "AR0101", Type: bif.TypeARE, Locator: raw})
	raw, ok = key.JoinLocator(idx, bif.TilesetAt(1))
	require.True(t, ok)
	k.Add(key.Resource{Name: "AR0101", Type: bif.TypeTIS, Locator: raw})
	keyPath := filepath.Join(root, "chitin.key")
	buf.Reset()
	require.NoError(t, k.Encode(&buf))
	require.NoError(t, os.WriteFile(keyPath, buf.Bytes(), 0o600))

	dest := filepath.Join(root, "out")
	out, err := run(t, "extract", "--key", keyPath, "--manifest", "-o", dest, archive)
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(dest, "ar0101.are"))
	require.NoError(t, err)
	assert.Equal(t, resources[1].Data, got)
	got, err = os.ReadFile(filepath.Join(dest, "ar0101.tis"))
	require.NoError(t, err)
	assert.Equal(t, tilesets[0].Data, got)
	_, err = os.Stat(filepath.Join(dest, "00000.itm"))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, len(resources)+len(tilesets))
	assert.Contains(t, out, digest.FromBytes(resources[1].Data).Encoded()+"  ar0101.are")

	keyOut, err := run(t, "key", keyPath)
	require.NoError(t, err)
	assert.Contains(t, keyOut, "ar0101.tis")
	assert.Contains(t, keyOut, "tileset 1")

	bifsOut, err := run(t, "key", "--bifs", keyPath)
	require.NoError(t, err)
	assert.Contains(t, bifsOut, "data/AREA.bif")
}

func TestGetEnvInt64(t *testing.T) {
	t.Setenv(envLargeThreshold, "4096")
	assert.Equal(t, int64(4096), getEnvInt64(envLargeThreshold, 1))
	t.Setenv(envLargeThreshold, "lots")
	assert.Equal(t, int64(1), getEnvInt64(envLargeThreshold, 1))
	t.Setenv(envCacheDir, "")
	assert.Equal(t, "fallback", getEnvString(envCacheDir, "fallback"))
}

func TestNewCacheFromEnv(t *testing.T) {
	t.Setenv(envCacheDir, "")
	t.Setenv(envCacheEntries, "")
	c, err := newCache()
	require.NoError(t, err)
	assert.Nil(t, c)

	t.Setenv(envCacheEntries, "8")
	c, err = newCache()
	require.NoError(t, err)
	assert.NotNil(t, c)

	t.Setenv(envCacheDir, t.TempDir())
	c, err = newCache()
	require.NoError(t, err)
	assert.NotNil(t, c)
}
