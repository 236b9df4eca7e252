package bif

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/bif/cache/disk"
	"github.com/meigma/bif/cache/memory"
	"github.com/meigma/bif/internal/testutil"
)

func TestFetchCached(t *testing.T) {
	t.Parallel()

	biff, resources, _ := sampleBIFF(t)
	path := testutil.WriteBIFC(t, biff, 512)
	mem, err := memory.New(16)
	require.NoError(t, err)
	a := openArchive(t, path, WithCache(mem))

	got, err := a.Fetch(context.Background(), ResourceAt(1))
	require.NoError(t, err)
	assert.Equal(t, resources[1].Data, got)
	assert.Equal(t, 1, mem.Len())

	// Later reads of the cached resource no longer touch the file.
	require.NoError(t, os.Remove(path))

	got[0] ^= 0xff
	again, err := a.Fetch(context.Background(), ResourceAt(1))
	require.NoError(t, err)
	assert.Equal(t, resources[1].Data, again, "cached data must not alias returned slices")

	r, err := a.FetchStream(context.Background(), ResourceAt(1))
	require.NoError(t, err)
	assert.Equal(t, int64(len(resources[1].Data)), r.Size())
	require.NoError(t, r.Close())

	_, err = a.Fetch(context.Background(), ResourceAt(0))
	require.Error(t, err)
	assert.Equal(t, KindIO, KindOf(err))
}

func TestFetchCachedConcurrent(t *testing.T) {
	t.Parallel()

	biff, resources, _ := sampleBIFF(t)
	mem, err := memory.New(16)
	require.NoError(t, err)
	a := openArchive(t, testutil.WriteBIF(t, biff), WithCache(mem))

	var wg sync.WaitGroup
	results := make([][]byte, 8)
	errs := make([]error, 8)
	for i := range results {
		wg.Go(func() {
			results[i], errs[i] = a.Fetch(context.Background(), ResourceAt(4))
		})
	}
	wg.Wait()
	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, resources[4].Data, results[i])
	}
	assert.Equal(t, 1, mem.Len())
}

func TestFetchCachedSharedFillIgnoresCanceledCaller(t *testing.T) {
	t.Parallel()

	biff, resources, _ := sampleBIFF(t)
	mem, err := memory.New(16)
	require.NoError(t, err)
	a := openArchive(t, testutil.WriteBIFC(t, biff, 512), WithCache(mem), WithLargeResourceThreshold(1000))

	var (
		wg       sync.WaitGroup
		once     sync.Once
		follower []byte
		errF     error
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = ContextWithProgress(ctx, func(ev ProgressEvent) {
		if ev.Stage != StageBusy {
			return
		}
		once.Do(func() {
			wg.Go(func() {
				follower, errF = a.Fetch(context.Background(), ResourceAt(1))
			})
			cancel()
		})
	})

	leader, err := a.Fetch(ctx, ResourceAt(1))
	if err != nil {
		require.ErrorIs(t, err, context.Canceled)
	} else {
		assert.Equal(t, resources[1].Data, leader)
	}

	wg.Wait()
	require.NoError(t, errF)
	assert.Equal(t, resources[1].Data, follower)
	assert.Equal(t, 1, mem.Len())
}

func TestFetchCachedOnDisk(t *testing.T) {
	t.Parallel()

	biff, _, tilesets := sampleBIFF(t)
	dc, err := disk.New(t.TempDir())
	require.NoError(t, err)

	path := testutil.WriteBIF(t, biff)
	a := openArchive(t, path, WithCache(dc))
	got, err := a.Fetch(context.Background(), TilesetAt(2))
	require.NoError(t, err)
	assert.Equal(t, tilesets[1].Data, got)
	assert.Equal(t, int64(len(tilesets[1].Data)), dc.SizeBytes())

	// A second archive over the same file shares the disk entries.
	b := openArchive(t, path, WithCache(dc))
	require.NoError(t, os.Remove(path))
	got, err = b.Fetch(context.Background(), TilesetAt(2))
	require.NoError(t, err)
	assert.Equal(t, tilesets[1].Data, got)
}

func TestCacheKeyDistinguishesLocators(t *testing.T) {
	t.Parallel()

	biff, _, _ := sampleBIFF(t)
	a := openArchive(t, testutil.WriteBIFF(t, biff))
	assert.NotEqual(t, a.cacheKey(ResourceAt(1)), a.cacheKey(TilesetAt(1)))
	assert.NotEqual(t, a.cacheKey(ResourceAt(1)), a.cacheKey(ResourceAt(2)))
	assert.Equal(t, a.cacheKey(TilesetAt(1)), a.cacheKey(TilesetAt(1)))
}
