package key

import "github.com/meigma/bif"

// Bit layout of a resource locator.
const (
	fileBits    = 14
	tilesetBits = 6
	bifShift    = fileBits + tilesetBits

	fileMask    = 1<<fileBits - 1
	tilesetMask = 1<<tilesetBits - 1
	maxBifIndex = 1<<(32-bifShift) - 1
)

// SplitLocator splits a raw KEY locator into the index of the archive in
// the KEY file and the locator of the resource within that archive.
// Bits 31-20 hold the archive index, bits 19-14 the tileset index and
// bits 13-0 the file index. A non-zero tileset index addresses a tileset.
func SplitLocator(raw uint32) (int, bif.Locator) {
	bifIndex := int(raw >> bifShift)
	if tile := (raw >> fileBits) & tilesetMask; tile != 0 {
		return bifIndex, bif.TilesetAt(tile)
	}
	return bifIndex, bif.ResourceAt(raw & fileMask)
}

// JoinLocator is the inverse of SplitLocator. It reports false if an index
// does not fit its bit field.
func JoinLocator(bifIndex int, loc bif.Locator) (uint32, bool) {
	if bifIndex < 0 || bifIndex > maxBifIndex {
		return 0, false
	}
	raw := uint32(bifIndex) << bifShift //nolint:gosec // range checked above
	if loc.Tile {
		if loc.Index == 0 || loc.Index > tilesetMask {
			return 0, false
		}
		return raw | loc.Index<<fileBits, true
	}
	if loc.Index > fileMask {
		return 0, false
	}
	return raw | loc.Index, true
}
