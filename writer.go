package bif

import (
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/meigma/bif/internal/pack"
)

// Resource is a non-tile resource to be written by WriteBIFF.
type Resource = pack.Resource

// Tileset is a run of equally sized tiles to be written by WriteBIFF.
type Tileset = pack.Tileset

// DefaultBlockSize is the decompressed size of blocks written by CompressBIFC.
const DefaultBlockSize = pack.DefaultBlockSize

// WriteBIFF writes an uncompressed archive holding resources and tilesets.
// Resource i is addressed by ResourceAt(i) and tileset j by TilesetAt(j+1).
// At most 16383 resources and 63 tilesets fit in the key space.
func WriteBIFF(w io.Writer, resources []Resource, tilesets []Tileset) error {
	biff, err := pack.BuildBIFF(resources, tilesets)
	if err != nil {
		return err
	}
	_, err = w.Write(biff)
	return err
}

// CompressBIF writes the BIFF stream biff as a BIF archive named name.
func CompressBIF(w io.Writer, name string, biff []byte) error {
	return pack.WriteBIF(w, name, biff, zlib.DefaultCompression)
}

// CompressBIFC writes the BIFF stream biff as a BIFC archive with blocks of
// blockSize decompressed bytes. A blockSize <= 0 selects DefaultBlockSize.
func CompressBIFC(w io.Writer, biff []byte, blockSize int) error {
	return pack.WriteBIFC(w, biff, blockSize, zlib.DefaultCompression)
}

// CompressBIFCBlocks writes biff as a BIFC archive whose blocks hold exactly
// the given decompressed sizes, which must add up to len(biff).
func CompressBIFCBlocks(w io.Writer, biff []byte, sizes []int) error {
	return pack.WriteBIFCBlocks(w, biff, sizes, zlib.DefaultCompression)
}
