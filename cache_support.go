package bif

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"
)

// cacheKey identifies a resource of this archive file. The file size and
// modification time are part of the key so a rewritten archive misses.
func (a *Archive) cacheKey(loc Locator) string {
	kind := "r"
	if loc.Tile {
		kind = "t"
	}
	return fmt.Sprintf("%s|%d|%d|%s%d", a.path, a.size, a.modTime.UnixNano(), kind, loc.Index)
}

// fetchCached serves Fetch through the configured cache. Concurrent misses
// for the same resource share one read of the archive. The shared read is
// not bound to any caller's context; each caller stops waiting when its own
// context is done.
func (a *Archive) fetchCached(ctx context.Context, loc Locator) ([]byte, error) {
	key := a.cacheKey(loc)
	if data, ok := a.cache.Get(key); ok {
		a.log().Debug("cache hit", slog.String("path", a.path), slog.String("locator", loc.String()))
		return bytes.Clone(data), nil
	}

	fillCtx := context.WithoutCancel(ctx)
	ch := a.cacheGroup.DoChan(key, func() (any, error) {
		if data, ok := a.cache.Get(key); ok {
			return data, nil
		}
		data, err := a.fetch(fillCtx, loc)
		if err != nil {
			return nil, err
		}
		if err := a.cache.Put(key, data); err != nil {
			a.log().Warn("cache put failed",
				slog.String("path", a.path),
				slog.String("locator", loc.String()),
				slog.Any("error", err))
		}
		return data, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, wrapErr("fetch", a.path, res.Err)
	}
	if res.Shared {
		a.log().Debug("shared cache fill", slog.String("path", a.path), slog.String("locator", loc.String()))
	}
	data, _ := res.Val.([]byte) //nolint:errcheck // the group only stores []byte
	return bytes.Clone(data), nil
}
