// Package pack builds BIFF, BIF and BIFC archives.
package pack

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/meigma/bif/internal/biftype"
	"github.com/meigma/bif/internal/sizing"
)

// TilesetShift is the bit position of the tileset index in a resource key.
const TilesetShift = 14

// Resource is a non-tile resource to be stored in a BIFF archive.
type Resource struct {
	Type uint16
	Data []byte
}

// Tileset is a run of equally sized tiles stored under one tileset record.
// len(Data) must be a multiple of TileSize.
type Tileset struct {
	Type     uint16
	TileSize uint32
	Data     []byte
}

// TileCount returns the number of tiles in the tileset.
func (t Tileset) TileCount() uint32 {
	if t.TileSize == 0 {
		return 0
	}
	return uint32(len(t.Data) / int(t.TileSize)) //nolint:gosec // validated by BuildBIFF
}

// BuildBIFF lays out a BIFF archive: header, resource records, tileset
// records, then payloads in table order.
//
// Resource i is stored under key i; tileset j under key (j+1)<<14.
func BuildBIFF(resources []Resource, tilesets []Tileset) ([]byte, error) {
	tableSize := len(resources)*biftype.ResourceRecordSize + len(tilesets)*biftype.TilesetRecordSize
	dataOffset := biftype.HeaderSize + tableSize
	total := dataOffset
	for _, r := range resources {
		total += len(r.Data)
	}
	for i, ts := range tilesets {
		if ts.TileSize == 0 && len(ts.Data) > 0 {
			return nil, fmt.Errorf("tileset %d: tile size is zero", i)
		}
		if ts.TileSize != 0 && len(ts.Data)%int(ts.TileSize) != 0 {
			return nil, fmt.Errorf("tileset %d: %d bytes is not a multiple of tile size %d", i, len(ts.Data), ts.TileSize)
		}
		total += len(ts.Data)
	}
	if !sizing.FitsUint32(total) {
		return nil, fmt.Errorf("%w: archive of %d bytes", biftype.ErrSizeOverflow, total)
	}
	if len(tilesets) >= 1<<6 {
		return nil, errors.New("at most 63 tilesets fit in a resource key")
	}
	if len(resources) >= 1<<TilesetShift {
		return nil, fmt.Errorf("at most %d resources fit in a resource key", 1<<TilesetShift-1)
	}

	out := make([]byte, 0, total)
	out = append(out, biftype.MagicBIFF...)
	out = append(out, biftype.VersionBIFF...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(resources)))     //nolint:gosec // bounded by total
	out = binary.LittleEndian.AppendUint32(out, uint32(len(tilesets)))      //nolint:gosec // checked above
	out = binary.LittleEndian.AppendUint32(out, uint32(biftype.HeaderSize)) //nolint:gosec // constant

	off := uint32(dataOffset) //nolint:gosec // bounded by total
	for i, r := range resources {
		out = biftype.AppendDescriptor(out, biftype.Descriptor{
			Key:    uint32(i), //nolint:gosec // bounded by total
			Offset: off,
			Size:   uint32(len(r.Data)), //nolint:gosec // bounded by total
			Type:   r.Type,
		})
		off += uint32(len(r.Data)) //nolint:gosec // bounded by total
	}
	for j, ts := range tilesets {
		out = biftype.AppendDescriptor(out, biftype.Descriptor{
			Key:       uint32(j+1) << TilesetShift, //nolint:gosec // checked above
			Offset:    off,
			TileCount: ts.TileCount(),
			TileSize:  ts.TileSize,
			Type:      ts.Type,
			Tile:      true,
		})
		off += uint32(len(ts.Data)) //nolint:gosec // bounded by total
	}
	for _, r := range resources {
		out = append(out, r.Data...)
	}
	for _, ts := range tilesets {
		out = append(out, ts.Data...)
	}
	return out, nil
}
