package biftype

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/meigma/bif/internal/sizing"
)

// Fixed record sizes of the BIFF container.
const (
	// HeaderSize is the size of the BIFF header.
	HeaderSize = 20

	// ResourceRecordSize is the size of a non-tile table record.
	ResourceRecordSize = 16

	// TilesetRecordSize is the size of a tileset table record.
	TilesetRecordSize = 20
)

// Container signatures and the versions written by this package.
const (
	MagicBIFF = "BIFF"
	MagicBIF  = "BIF "
	MagicBIFC = "BIFC"

	VersionBIFF       = "V1  "
	VersionCompressed = "V1.0"
)

// Descriptor is a decoded resource table record.
//
// Non-tile records carry Size; tileset records carry TileCount and TileSize
// and leave Size zero.
type Descriptor struct {
	// Key is the resource's own locator as stored in the record.
	Key uint32

	// Offset is the position of the payload within the BIFF stream.
	Offset uint32

	// Size is the payload length of a non-tile resource.
	Size uint32

	// TileCount is the number of tiles in a tileset.
	TileCount uint32

	// TileSize is the length of a single tile.
	TileSize uint32

	// Type is the resource type code.
	Type uint16

	// Tile reports whether the record came from the tileset table.
	Tile bool
}

// DataSize returns the payload length in bytes. Tileset sizes that do not
// fit in an int64 saturate at math.MaxInt64.
func (d Descriptor) DataSize() int64 {
	if !d.Tile {
		return int64(d.Size)
	}
	n, ok := sizing.MulUint32(d.TileCount, d.TileSize)
	if !ok {
		return math.MaxInt64
	}
	return n
}

// RecordSize returns the on-disk size of a table record.
func RecordSize(tile bool) int {
	if tile {
		return TilesetRecordSize
	}
	return ResourceRecordSize
}

// DecodeDescriptor parses a table record.
func DecodeDescriptor(b []byte, tile bool) (Descriptor, error) {
	if len(b) < RecordSize(tile) {
		return Descriptor{}, fmt.Errorf("%w: table record is %d bytes", ErrCorrupt, len(b))
	}
	d := Descriptor{
		Key:    binary.LittleEndian.Uint32(b[0:4]),
		Offset: binary.LittleEndian.Uint32(b[4:8]),
		Tile:   tile,
	}
	if tile {
		d.TileCount = binary.LittleEndian.Uint32(b[8:12])
		d.TileSize = binary.LittleEndian.Uint32(b[12:16])
		d.Type = binary.LittleEndian.Uint16(b[16:18])
		return d, nil
	}
	d.Size = binary.LittleEndian.Uint32(b[8:12])
	d.Type = binary.LittleEndian.Uint16(b[12:14])
	return d, nil
}

// AppendDescriptor appends the on-disk form of d to dst.
func AppendDescriptor(dst []byte, d Descriptor) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, d.Key)
	dst = binary.LittleEndian.AppendUint32(dst, d.Offset)
	if d.Tile {
		dst = binary.LittleEndian.AppendUint32(dst, d.TileCount)
		dst = binary.LittleEndian.AppendUint32(dst, d.TileSize)
	} else {
		dst = binary.LittleEndian.AppendUint32(dst, d.Size)
	}
	dst = binary.LittleEndian.AppendUint16(dst, d.Type)
	return binary.LittleEndian.AppendUint16(dst, 0)
}
