package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/meigma/bif"
	"github.com/meigma/bif/cache"
	"github.com/meigma/bif/cache/disk"
	"github.com/meigma/bif/cache/memory"
)

// openArchive opens path with the options taken from the environment.
func openArchive(path string) (*bif.Archive, error) {
	opts := []bif.Option{
		bif.WithLargeResourceThreshold(getEnvInt64(envLargeThreshold, bif.DefaultLargeResourceThreshold)),
		bif.WithProgress(logProgress),
		bif.WithMmap(true),
	}
	if verbose {
		opts = append(opts, bif.WithLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))))
	}
	c, err := newCache()
	if err != nil {
		return nil, err
	}
	if c != nil {
		opts = append(opts, bif.WithCache(c))
	}
	return bif.Open(path, opts...)
}

// newCache returns the cache configured by the environment, or nil.
// A cache directory takes precedence over an entry count.
func newCache() (cache.Cache, error) {
	if dir := getEnvString(envCacheDir, ""); dir != "" {
		c, err := disk.New(dir)
		if err != nil {
			return nil, fmt.Errorf("disk cache %s: %w", dir, err)
		}
		log.Debug().Str("dir", dir).Msg("using disk cache")
		return c, nil
	}
	if n := getEnvInt64(envCacheEntries, 0); n > 0 {
		c, err := memory.New(int(n))
		if err != nil {
			return nil, err
		}
		log.Debug().Int64("entries", n).Msg("using memory cache")
		return c, nil
	}
	return nil, nil
}

func logProgress(ev bif.ProgressEvent) {
	switch ev.Stage {
	case bif.StageBusy:
		log.Info().Str("archive", ev.Path).Stringer("resource", ev.Locator).Int64("bytes", ev.BytesTotal).Msg("reading large resource")
	case bif.StageIdle:
		log.Debug().Str("archive", ev.Path).Stringer("resource", ev.Locator).Msg("done")
	case bif.StageExtracting:
		log.Debug().Int("done", ev.FilesDone).Int("total", ev.FilesTotal).Msg("extracted")
	}
}

// parseLocator parses a resource index, or a tileset index when tile is set.
func parseLocator(s string, tile bool) (bif.Locator, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 0, 32)
	if err != nil {
		return bif.Locator{}, fmt.Errorf("invalid index %q: %w", s, err)
	}
	if tile {
		return bif.TilesetAt(uint32(n)), nil
	}
	return bif.ResourceAt(uint32(n)), nil
}

// locatorAt returns the locator of entry i of a table returned by
// Archive.Table.
func locatorAt(h bif.Header, i int) bif.Locator {
	if i < int(h.ResourceCount) {
		return bif.ResourceAt(uint32(i)) //nolint:gosec // bounded by the table
	}
	return bif.TilesetAt(uint32(i) - h.ResourceCount + 1) //nolint:gosec // bounded by the table
}

// locatorOf derives a locator from the key stored in d, the form KEY files
// use to refer to it.
func locatorOf(d bif.Descriptor) bif.Locator {
	if d.Tile {
		return bif.TilesetAt((d.Key >> 14) & 0x3f)
	}
	return bif.ResourceAt(d.Key & 0x3fff)
}
