package batch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memorySource(contents map[string][]byte) Source {
	return func(_ context.Context, item *Item) (io.Reader, func(), error) {
		data, ok := contents[item.Name]
		if !ok {
			return nil, nil, fs.ErrNotExist
		}
		return bytes.NewReader(data), func() {}, nil
	}
}

func testItems(contents map[string][]byte) []*Item {
	items := make([]*Item, 0, len(contents))
	for name, data := range contents {
		items = append(items, &Item{Name: name, Size: int64(len(data))})
	}
	return items
}

func TestProcessWritesFiles(t *testing.T) {
	t.Parallel()

	for _, workers := range []int{1, 4} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			t.Parallel()

			contents := map[string][]byte{
				"a.itm":       []byte("alpha"),
				"b.are":       bytes.Repeat([]byte("b"), 1000),
				"tiles/c.tis": {},
			}
			dest := t.TempDir()
			var calls atomic.Int32
			p := NewProcessor(NewFileSink(dest),
				WithWorkers(workers),
				WithOnItem(func(*Item, int, int) { calls.Add(1) }))

			items := testItems(contents)
			stats, err := p.Process(context.Background(), items, memorySource(contents))
			require.NoError(t, err)
			assert.Equal(t, 3, stats.Processed)
			assert.Equal(t, uint64(1005), stats.TotalBytes)
			assert.Equal(t, int32(3), calls.Load())

			for _, item := range items {
				got, err := os.ReadFile(filepath.Join(dest, filepath.FromSlash(item.Name)))
				require.NoError(t, err)
				assert.Equal(t, contents[item.Name], got)
				assert.Equal(t, digest.FromBytes(contents[item.Name]), item.Digest)
			}
		})
	}
}

func TestProcessSkipsExisting(t *testing.T) {
	t.Parallel()

	dest := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dest, "a.itm"), []byte("existing"), 0o600))

	contents := map[string][]byte{"a.itm": []byte("new"), "b.itm": []byte("bbb")}
	stats, err := NewProcessor(NewFileSink(dest)).Process(context.Background(), testItems(contents), memorySource(contents))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Processed)
	assert.Equal(t, 1, stats.Skipped)

	got, err := os.ReadFile(filepath.Join(dest, "a.itm"))
	require.NoError(t, err)
	assert.Equal(t, []byte("existing"), got)
}

func TestProcessOverwrite(t *testing.T) {
	t.Parallel()

	dest := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dest, "a.itm"), []byte("existing"), 0o600))

	contents := map[string][]byte{"a.itm": []byte("new")}
	sink := NewFileSink(dest, WithOverwrite(true), WithDirectWrites(true))
	stats, err := NewProcessor(sink).Process(context.Background(), testItems(contents), memorySource(contents))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Processed)

	got, err := os.ReadFile(filepath.Join(dest, "a.itm"))
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), got)
}

func TestProcessRejectsTraversal(t *testing.T) {
	t.Parallel()

	contents := map[string][]byte{"../escape.itm": []byte("x")}
	_, err := NewProcessor(NewFileSink(t.TempDir())).Process(context.Background(), testItems(contents), memorySource(contents))
	var pathErr *fs.PathError
	require.ErrorAs(t, err, &pathErr)
	require.ErrorIs(t, pathErr.Err, fs.ErrInvalid)
}

func TestProcessShortSourceDiscards(t *testing.T) {
	t.Parallel()

	dest := t.TempDir()
	items := []*Item{{Name: "short.itm", Size: 10}}
	src := func(context.Context, *Item) (io.Reader, func(), error) {
		return bytes.NewReader([]byte("abc")), func() {}, nil
	}
	_, err := NewProcessor(NewFileSink(dest)).Process(context.Background(), items, src)
	require.Error(t, err)

	entries, err := os.ReadDir(dest)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestProcessSourceError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	items := []*Item{{Name: "a.itm", Size: 1}}
	src := func(context.Context, *Item) (io.Reader, func(), error) {
		return nil, nil, boom
	}
	_, err := NewProcessor(NewFileSink(t.TempDir()), WithWorkers(2)).Process(context.Background(), items, src)
	require.ErrorIs(t, err, boom)
}

func TestProcessCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	contents := map[string][]byte{"a.itm": []byte("a")}
	_, err := NewProcessor(NewFileSink(t.TempDir())).Process(ctx, testItems(contents), memorySource(contents))
	require.ErrorIs(t, err, context.Canceled)
}
