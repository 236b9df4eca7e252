package bif

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"slices"

	"github.com/opencontainers/go-digest"

	"github.com/meigma/bif/internal/batch"
)

// ExtractStats contains statistics from Extract.
type ExtractStats = batch.ProcessStats

// ExtractedResource describes one resource written by Extract.
type ExtractedResource struct {
	// Name is the slash-separated path below the destination directory.
	Name string

	// Descriptor is the resource's table record.
	Descriptor Descriptor

	// Digest is the SHA-256 digest of the payload.
	Digest digest.Digest
}

// Namer maps a table record to a slash-separated destination path.
type Namer func(Descriptor) string

// ExtractOption configures Extract.
type ExtractOption func(*extractConfig)

type extractConfig struct {
	workers   int
	overwrite bool
	namer     Namer
	filter    func(Descriptor) bool
	manifest  func(ExtractedResource)
}

// ExtractWithWorkers sets the number of resources written concurrently for
// BIFF archives. Compressed archives are always extracted in one forward
// pass. Values < 1 use GOMAXPROCS.
func ExtractWithWorkers(n int) ExtractOption {
	return func(c *extractConfig) {
		c.workers = n
	}
}

// ExtractWithOverwrite allows overwriting existing files.
// By default, existing files are skipped.
func ExtractWithOverwrite(overwrite bool) ExtractOption {
	return func(c *extractConfig) {
		c.overwrite = overwrite
	}
}

// ExtractWithNamer sets the function naming extracted files.
// The default is DefaultName.
func ExtractWithNamer(fn Namer) ExtractOption {
	return func(c *extractConfig) {
		c.namer = fn
	}
}

// ExtractWithFilter limits extraction to records for which fn returns true.
func ExtractWithFilter(fn func(Descriptor) bool) ExtractOption {
	return func(c *extractConfig) {
		c.filter = fn
	}
}

// ExtractWithManifest sets a function called after each resource is written.
// It may be called concurrently.
func ExtractWithManifest(fn func(ExtractedResource)) ExtractOption {
	return func(c *extractConfig) {
		c.manifest = fn
	}
}

// DefaultName names a resource by its index and type, for example
// "00012.itm" or "tileset01.tis".
func DefaultName(d Descriptor) string {
	ext := ResourceType(d.Type).Extension()
	if d.Tile {
		return fmt.Sprintf("tileset%02d.%s", (d.Key>>14)&0x3f, ext)
	}
	return fmt.Sprintf("%05d.%s", d.Key&0x3fff, ext)
}

// Extract writes every resource of the archive below destDir.
//
// BIFF archives are extracted concurrently. BIF and BIFC archives are read
// in a single forward pass over the compressed stream, in payload order.
func (a *Archive) Extract(ctx context.Context, destDir string, opts ...ExtractOption) (ExtractStats, error) {
	cfg := extractConfig{namer: DefaultName}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.workers < 1 {
		cfg.workers = runtime.GOMAXPROCS(0)
	}

	table, err := a.Table(ctx)
	if err != nil {
		return ExtractStats{}, err
	}
	if cfg.filter != nil {
		table = slices.DeleteFunc(table, func(d Descriptor) bool { return !cfg.filter(d) })
	}
	items := make([]*batch.Item, len(table))
	for i, d := range table {
		if _, err := a.checkPayload(d); err != nil {
			return ExtractStats{}, wrapErr("extract", a.path, err)
		}
		items[i] = &batch.Item{Name: cfg.namer(d), Size: d.DataSize(), Index: i}
	}

	progress := a.progressFor(ctx)
	onItem := func(item *batch.Item, done, total int) {
		if cfg.manifest != nil {
			cfg.manifest(ExtractedResource{Name: item.Name, Descriptor: table[item.Index], Digest: item.Digest})
		}
		if progress != nil {
			progress(ProgressEvent{
				Stage:      StageExtracting,
				Path:       a.path,
				BytesTotal: item.Size,
				FilesDone:  done,
				FilesTotal: total,
			})
		}
	}

	workers := cfg.workers
	var src batch.Source
	if a.format.seekable() {
		src = a.randomSource(table)
	} else {
		// One cursor serves every item, so items must arrive in payload order.
		workers = 1
		slices.SortStableFunc(items, func(x, y *batch.Item) int {
			return cmp.Compare(table[x.Index].Offset, table[y.Index].Offset)
		})
		var release func()
		src, release = a.sequentialSource(table)
		defer release()
	}

	p := batch.NewProcessor(
		batch.NewFileSink(destDir, batch.WithOverwrite(cfg.overwrite)),
		batch.WithWorkers(workers),
		batch.WithOnItem(onItem),
		batch.WithLogger(a.log()),
	)
	stats, err := p.Process(ctx, items, src)
	a.log().Debug("extracted archive",
		slog.String("path", a.path),
		slog.Int("processed", stats.Processed),
		slog.Int("skipped", stats.Skipped))
	return stats, wrapErr("extract", a.path, err)
}

// randomSource opens a fresh cursor per item.
func (a *Archive) randomSource(table []Descriptor) batch.Source {
	return func(ctx context.Context, item *batch.Item) (io.Reader, func(), error) {
		d := table[item.Index]
		c, err := a.format.open(ctx)
		if err != nil {
			return nil, nil, err
		}
		if err := c.seek(ctx, int64(d.Offset)); err != nil {
			_ = c.Close() //nolint:errcheck // read-only handle
			return nil, nil, err
		}
		return ctxReader{ctx: ctx, r: c.stream(item.Size)}, func() { _ = c.Close() }, nil //nolint:errcheck // read-only handle
	}
}

// sequentialSource shares one cursor between items served in payload order.
// Overlapping payloads make the cursor replay from the start.
func (a *Archive) sequentialSource(table []Descriptor) (batch.Source, func()) {
	var c cursor
	src := func(ctx context.Context, item *batch.Item) (io.Reader, func(), error) {
		var err error
		if c == nil {
			if c, err = a.format.open(ctx); err != nil {
				return nil, nil, err
			}
		}
		if c, err = a.seek(ctx, c, int64(table[item.Index].Offset)); err != nil {
			return nil, nil, err
		}
		return ctxReader{ctx: ctx, r: c.stream(item.Size)}, func() {}, nil
	}
	release := func() {
		if c != nil {
			_ = c.Close() //nolint:errcheck // read-only handle
		}
	}
	return src, release
}
