package bif

import (
	"fmt"

	"github.com/meigma/bif/internal/biftype"
)

// Locator addresses a resource within an archive.
//
// Index is the file index for ordinary resources and the 1-based tileset
// index for tilesets.
type Locator struct {
	Index uint32
	Tile  bool
}

// ResourceAt returns the locator of the non-tile resource at index i.
func ResourceAt(i uint32) Locator {
	return Locator{Index: i}
}

// TilesetAt returns the locator of tileset i. Tileset indices start at 1.
func TilesetAt(i uint32) Locator {
	return Locator{Index: i, Tile: true}
}

// String returns a human readable form such as "resource 3" or "tileset 1".
func (l Locator) String() string {
	if l.Tile {
		return fmt.Sprintf("tileset %d", l.Index)
	}
	return fmt.Sprintf("resource %d", l.Index)
}

// RecordSize returns the size of the table record the locator refers to.
func (l Locator) RecordSize() int {
	return biftype.RecordSize(l.Tile)
}

// TableOffset returns the position of the locator's record relative to the
// start of the resource table.
//
// Resource records come first, 16 bytes each; tileset records follow,
// 20 bytes each. Tileset index 0 has no record and is rejected. Other
// indices are not range checked; an index past the table surfaces as a
// read failure.
func (l Locator) TableOffset(resourceCount uint32) (int64, error) {
	if !l.Tile {
		return int64(l.Index) * biftype.ResourceRecordSize, nil
	}
	if l.Index == 0 {
		return 0, fmt.Errorf("%w: tileset index 0", ErrInvalidLocator)
	}
	return int64(resourceCount)*biftype.ResourceRecordSize +
		int64(l.Index-1)*biftype.TilesetRecordSize, nil
}
