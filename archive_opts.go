package bif

import (
	"log/slog"

	"github.com/meigma/bif/cache"
)

// DefaultLargeResourceThreshold is the resource size above which progress
// functions receive StageBusy and StageIdle events.
const DefaultLargeResourceThreshold = 1 << 20

// Option configures an Archive.
type Option func(*Archive)

// WithLogger sets the logger for archive operations.
// If not set, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Archive) {
		a.logger = logger
	}
}

// WithLargeResourceThreshold sets the size above which fetches are reported
// to the progress function. Values < 0 are treated as 0.
func WithLargeResourceThreshold(n int64) Option {
	return func(a *Archive) {
		if n < 0 {
			n = 0
		}
		a.largeThreshold = n
	}
}

// WithProgress sets the function that receives progress events.
// ContextWithProgress overrides it for a single call.
func WithProgress(fn ProgressFunc) Option {
	return func(a *Archive) {
		a.progress = fn
	}
}

// WithCache enables caching of materialized resources.
//
// Fetch results are cached after the first read and served from the cache on
// later calls. Concurrent fetches of the same resource are deduplicated.
// Streams are never cached.
func WithCache(c cache.Cache) Option {
	return func(a *Archive) {
		a.cache = c
	}
}

// WithMmap maps BIFF archives into memory instead of reading them through a
// file handle. It has no effect on compressed archives.
func WithMmap(enabled bool) Option {
	return func(a *Archive) {
		a.mmap = enabled
	}
}
