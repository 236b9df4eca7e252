package bif

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/meigma/bif/cache"
	"github.com/meigma/bif/internal/biftype"
	"github.com/meigma/bif/internal/inflate"
	"github.com/meigma/bif/internal/sizing"
)

// Archive provides access to the resources of a BIFF, BIF or BIFC archive.
//
// An Archive is safe for concurrent use. BIFF archives share one handle;
// every fetch from a compressed archive opens its own.
type Archive struct {
	path    string
	header  Header
	format  format
	size    int64
	modTime time.Time
	closed  atomic.Bool

	largeThreshold int64
	progress       ProgressFunc
	cache          cache.Cache        // nil = no caching
	cacheGroup     singleflight.Group // zero value is valid
	mmap           bool
	logger         *slog.Logger
}

// log returns the logger, falling back to a discard logger if nil.
func (a *Archive) log() *slog.Logger {
	if a.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return a.logger
}

// Open opens the archive at path, selecting the BIFF, BIF or BIFC decoder
// from the file's four-byte signature.
//
// An unrecognized signature fails with ErrUnsupportedFormat. For compressed
// archives the embedded BIFF header is inflated and checked before Open
// returns.
func Open(path string, opts ...Option) (*Archive, error) {
	a := &Archive{
		path:           path,
		largeThreshold: DefaultLargeResourceThreshold,
	}
	for _, opt := range opts {
		opt(a)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, wrapErr("open", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close() //nolint:errcheck // stat error takes precedence
		return nil, wrapErr("open", path, err)
	}
	a.size = info.Size()
	a.modTime = info.ModTime()

	var sig [4]byte
	if _, err := io.ReadFull(f, sig[:]); err != nil {
		_ = f.Close() //nolint:errcheck // read error takes precedence
		return nil, wrapErr("open", path, fmt.Errorf("%w: file is %d bytes", ErrUnsupportedFormat, a.size))
	}
	a.header.Signature = Signature(sig[:])

	if err := a.selectFormat(f); err != nil {
		return nil, wrapErr("open", path, err)
	}
	if err := a.readBIFFHeader(); err != nil {
		_ = a.format.close() //nolint:errcheck // header error takes precedence
		return nil, wrapErr("open", path, err)
	}

	a.log().Debug("opened archive",
		slog.String("path", path),
		slog.String("format", string(a.header.Signature)),
		slog.Uint64("resources", uint64(a.header.ResourceCount)),
		slog.Uint64("tilesets", uint64(a.header.TilesetCount)))
	return a, nil
}

// selectFormat builds the strategy for the archive's signature. It takes
// ownership of f.
func (a *Archive) selectFormat(f *os.File) error {
	switch a.header.Signature {
	case SignatureBIFF:
		a.header.UncompressedLength = a.size
		bf, err := newBIFFFormat(a.path, f, a.mmap)
		if err != nil {
			return err
		}
		a.format = bf
		return nil
	case SignatureBIF:
		defer f.Close()
		offset, err := readBIFHeader(f, a.size, &a.header)
		if err != nil {
			return err
		}
		a.format = &bifFormat{path: a.path, offset: offset, pool: inflate.NewPool()}
		return nil
	case SignatureBIFC:
		defer f.Close()
		if err := readBIFCHeader(f, &a.header); err != nil {
			return err
		}
		a.format = &bifcFormat{path: a.path, pool: inflate.NewPool()}
		return nil
	default:
		_ = f.Close() //nolint:errcheck // format error takes precedence
		return fmt.Errorf("%w: signature %q", ErrUnsupportedFormat, string(a.header.Signature))
	}
}

// readBIFFHeader reads the header at the start of the BIFF stream.
func (a *Archive) readBIFFHeader() error {
	ctx := context.Background()
	c, err := a.format.open(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	buf := make([]byte, biftype.HeaderSize)
	if err := readFull(ctx, c, buf); err != nil {
		return err
	}
	return parseBIFFHeader(&a.header, buf)
}

// Path returns the path the archive was opened from.
func (a *Archive) Path() string { return a.path }

// Signature returns the container variant.
func (a *Archive) Signature() Signature { return a.header.Signature }

// Header returns the parsed archive header.
func (a *Archive) Header() Header { return a.header }

// Close releases the archive's shared handle, if any.
func (a *Archive) Close() error {
	if a.closed.Swap(true) {
		return nil
	}
	return wrapErr("close", a.path, a.format.close())
}

// Fetch returns the payload of the resource at loc.
func (a *Archive) Fetch(ctx context.Context, loc Locator) ([]byte, error) {
	if a.closed.Load() {
		return nil, wrapErr("fetch", a.path, ErrClosed)
	}
	if a.cache != nil {
		return a.fetchCached(ctx, loc)
	}
	data, err := a.fetch(ctx, loc)
	return data, wrapErr("fetch", a.path, err)
}

func (a *Archive) fetch(ctx context.Context, loc Locator) (data []byte, err error) {
	c, err := a.format.open(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if c != nil {
			_ = c.Close() //nolint:errcheck // read-only handle
		}
	}()

	var d Descriptor
	c, d, err = a.locate(ctx, c, loc, true)
	if err != nil {
		return nil, err
	}
	size, err := a.checkPayload(d)
	if err != nil {
		return nil, err
	}
	n, err := sizing.ToInt(size, ErrSizeOverflow)
	if err != nil {
		return nil, err
	}

	done := a.busy(ctx, loc, size)
	defer done()

	if !a.format.seekable() {
		return readGrowing(ctx, c, size)
	}
	data = make([]byte, n)
	if err := readFull(ctx, c, data); err != nil {
		return nil, err
	}
	return data, nil
}

// FetchStream returns a reader over the payload of the resource at loc.
// The caller must close the reader.
func (a *Archive) FetchStream(ctx context.Context, loc Locator) (*ResourceReader, error) {
	if a.closed.Load() {
		return nil, wrapErr("fetch", a.path, ErrClosed)
	}
	if a.cache != nil {
		if data, ok := a.cache.Get(a.cacheKey(loc)); ok {
			a.log().Debug("cache hit", slog.String("path", a.path), slog.String("locator", loc.String()))
			return newBytesReader(a, data), nil
		}
	}

	c, err := a.format.open(ctx)
	if err != nil {
		return nil, wrapErr("fetch", a.path, err)
	}
	c, d, err := a.locate(ctx, c, loc, true)
	if err == nil {
		_, err = a.checkPayload(d)
	}
	if err != nil {
		if c != nil {
			_ = c.Close() //nolint:errcheck // read-only handle
		}
		return nil, wrapErr("fetch", a.path, err)
	}

	size := d.DataSize()
	done := a.busy(ctx, loc, size)
	return &ResourceReader{
		archive:   a,
		desc:      d,
		r:         c.stream(size),
		size:      size,
		remaining: size,
		closer:    c,
		onClose:   done,
	}, nil
}

// FetchInfo returns the table record of the resource at loc without reading
// its payload.
func (a *Archive) FetchInfo(ctx context.Context, loc Locator) (Descriptor, error) {
	if a.closed.Load() {
		return Descriptor{}, wrapErr("info", a.path, ErrClosed)
	}
	c, err := a.format.open(ctx)
	if err != nil {
		return Descriptor{}, wrapErr("info", a.path, err)
	}
	c, d, err := a.locate(ctx, c, loc, false)
	if c != nil {
		_ = c.Close() //nolint:errcheck // read-only handle
	}
	return d, wrapErr("info", a.path, err)
}

// Table returns every record of the resource table: resources first, then
// tilesets.
func (a *Archive) Table(ctx context.Context) ([]Descriptor, error) {
	if a.closed.Load() {
		return nil, wrapErr("table", a.path, ErrClosed)
	}
	table, err := a.table(ctx)
	return table, wrapErr("table", a.path, err)
}

func (a *Archive) table(ctx context.Context) ([]Descriptor, error) {
	h := a.header
	tableSize := int64(h.ResourceCount)*biftype.ResourceRecordSize +
		int64(h.TilesetCount)*biftype.TilesetRecordSize
	if end := int64(h.EntryTableOffset) + tableSize; h.UncompressedLength > 0 && end > h.UncompressedLength {
		return nil, fmt.Errorf("%w: table ends at %d, stream is %d bytes", ErrCorrupt, end, h.UncompressedLength)
	}

	c, err := a.format.open(ctx)
	if err != nil {
		return nil, err
	}
	defer c.Close()
	if err := c.seek(ctx, int64(h.EntryTableOffset)); err != nil {
		return nil, err
	}

	var raw []byte
	if a.format.seekable() {
		raw = make([]byte, tableSize)
		err = readFull(ctx, c, raw)
	} else {
		raw, err = readGrowing(ctx, c, tableSize)
	}
	if err != nil {
		return nil, err
	}
	table := make([]Descriptor, 0, int64(h.ResourceCount)+int64(h.TilesetCount))
	for i := range h.ResourceCount {
		rec := raw[int64(i)*biftype.ResourceRecordSize:]
		d, err := biftype.DecodeDescriptor(rec, false)
		if err != nil {
			return nil, err
		}
		table = append(table, d)
	}
	tiles := raw[int64(h.ResourceCount)*biftype.ResourceRecordSize:]
	for i := range h.TilesetCount {
		d, err := biftype.DecodeDescriptor(tiles[int64(i)*biftype.TilesetRecordSize:], true)
		if err != nil {
			return nil, err
		}
		table = append(table, d)
	}
	return table, nil
}

// Decompress writes the archive's complete BIFF stream to w.
func (a *Archive) Decompress(ctx context.Context, w io.Writer) (int64, error) {
	if a.closed.Load() {
		return 0, wrapErr("decompress", a.path, ErrClosed)
	}
	c, err := a.format.open(ctx)
	if err != nil {
		return 0, wrapErr("decompress", a.path, err)
	}
	defer c.Close()

	n, err := io.Copy(w, ctxReader{ctx: ctx, r: c})
	if err == nil && a.header.Signature.Compressed() && a.header.UncompressedLength > 0 && n != a.header.UncompressedLength {
		a.log().Warn("decompressed length differs from header",
			slog.String("path", a.path),
			slog.Int64("header", a.header.UncompressedLength),
			slog.Int64("actual", n))
	}
	return n, wrapErr("decompress", a.path, err)
}

// locate reads the table record of loc and, if toData is set, moves the
// cursor to the start of the payload. The returned cursor replaces c; it is
// nil only if reopening the archive failed, in which case c is already closed.
func (a *Archive) locate(ctx context.Context, c cursor, loc Locator, toData bool) (cursor, Descriptor, error) {
	rel, err := loc.TableOffset(a.header.ResourceCount)
	if err != nil {
		return c, Descriptor{}, err
	}
	c, err = a.seek(ctx, c, int64(a.header.EntryTableOffset)+rel)
	if err != nil {
		return c, Descriptor{}, err
	}

	rec := make([]byte, loc.RecordSize())
	if err := readFull(ctx, c, rec); err != nil {
		return c, Descriptor{}, fmt.Errorf("read %s record: %w", loc, err)
	}
	d, err := biftype.DecodeDescriptor(rec, loc.Tile)
	if err != nil || !toData {
		return c, d, err
	}

	c, err = a.seek(ctx, c, int64(d.Offset))
	return c, d, err
}

// seek moves c to off. Compressed cursors cannot move backwards, so the
// archive is reopened and the stream replayed from the start.
func (a *Archive) seek(ctx context.Context, c cursor, off int64) (cursor, error) {
	err := c.seek(ctx, off)
	if !isBackwardSeek(err) {
		return c, err
	}
	a.log().Debug("replaying compressed stream",
		slog.String("path", a.path),
		slog.Int64("from", c.pos()),
		slog.Int64("to", off))
	_ = c.Close() //nolint:errcheck // read-only handle
	c, err = a.format.open(ctx)
	if err != nil {
		return nil, err
	}
	return c, c.seek(ctx, off)
}

// checkPayload rejects descriptors whose payload lies outside the stream.
func (a *Archive) checkPayload(d Descriptor) (int64, error) {
	size := d.DataSize()
	limit := a.header.UncompressedLength
	if limit <= 0 {
		return size, nil
	}
	end, ok := sizing.AddInt64(int64(d.Offset), size)
	if !ok || end > limit {
		return 0, fmt.Errorf("%w: payload at %d of %d bytes ends past stream of %d bytes",
			ErrCorrupt, d.Offset, size, limit)
	}
	return size, nil
}
