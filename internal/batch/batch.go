// Package batch copies many resources from an archive into a sink.
package batch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/opencontainers/go-digest"
	"golang.org/x/sync/errgroup"
)

// Item is one resource to be copied.
type Item struct {
	// Name is the slash-separated destination path.
	Name string

	// Size is the number of bytes the source yields for the item.
	Size int64

	// Index is the caller's reference for the item.
	Index int

	// Digest is set once the item has been committed.
	Digest digest.Digest
}

// Source opens the content of an item. The returned release function is
// called once the content has been copied or the copy failed.
type Source func(ctx context.Context, item *Item) (io.Reader, func(), error)

// Processor copies items from a Source into a Sink.
type Processor struct {
	sink    Sink
	workers int
	onItem  func(item *Item, done, total int)
	logger  *slog.Logger
}

// log returns the logger, falling back to a discard logger if nil.
func (p *Processor) log() *slog.Logger {
	if p.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return p.logger
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithWorkers sets the number of items copied concurrently.
// Values < 2 copy items one at a time, in order.
func WithWorkers(n int) ProcessorOption {
	return func(p *Processor) {
		p.workers = n
	}
}

// WithOnItem sets a function called after each item is committed.
// It may be called concurrently when more than one worker is used.
func WithOnItem(fn func(item *Item, done, total int)) ProcessorOption {
	return func(p *Processor) {
		p.onItem = fn
	}
}

// WithLogger sets the logger for batch operations.
func WithLogger(logger *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		p.logger = logger
	}
}

// NewProcessor creates a processor writing to sink.
func NewProcessor(sink Sink, opts ...ProcessorOption) *Processor {
	p := &Processor{sink: sink}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process copies every item. With a single worker items are copied in slice
// order, which lets a forward-only source serve them from one stream.
func (p *Processor) Process(ctx context.Context, items []*Item, src Source) (ProcessStats, error) {
	var (
		mu    sync.Mutex
		stats ProcessStats
	)
	record := func(item *Item, delta ProcessStats) {
		mu.Lock()
		stats.add(delta)
		done := stats.Processed + stats.Skipped
		mu.Unlock()
		if p.onItem != nil && delta.Processed > 0 {
			p.onItem(item, done, len(items))
		}
	}

	if p.workers < 2 {
		for _, item := range items {
			delta, err := p.processItem(ctx, item, src)
			if err != nil {
				return stats, err
			}
			record(item, delta)
		}
		return stats, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for _, item := range items {
		g.Go(func() error {
			delta, err := p.processItem(gctx, item, src)
			if err != nil {
				return err
			}
			record(item, delta)
			return nil
		})
	}
	err := g.Wait()
	return stats, err
}

func (p *Processor) processItem(ctx context.Context, item *Item, src Source) (ProcessStats, error) {
	if err := ctx.Err(); err != nil {
		return ProcessStats{}, err
	}
	if !p.sink.ShouldProcess(item) {
		p.log().Debug("skipping existing item", slog.String("name", item.Name))
		return ProcessStats{Skipped: 1}, nil
	}

	r, release, err := src(ctx, item)
	if err != nil {
		return ProcessStats{}, fmt.Errorf("open %s: %w", item.Name, err)
	}
	defer release()

	w, err := p.sink.Writer(item)
	if err != nil {
		return ProcessStats{}, err
	}
	digester := digest.Canonical.Digester()
	n, err := io.Copy(io.MultiWriter(w, digester.Hash()), r)
	if err == nil && n != item.Size {
		err = fmt.Errorf("copied %d bytes, want %d", n, item.Size)
	}
	if err != nil {
		_ = w.Discard() //nolint:errcheck // copy error takes precedence
		return ProcessStats{}, fmt.Errorf("write %s: %w", item.Name, err)
	}
	if err := w.Commit(); err != nil {
		return ProcessStats{}, err
	}
	item.Digest = digester.Digest()
	return ProcessStats{Processed: 1, TotalBytes: uint64(n)}, nil //nolint:gosec // n is non-negative
}
