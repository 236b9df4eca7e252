// Package bif reads and writes the resource archives used by Infinity
// Engine games.
//
// Three container variants share one logical layout, the BIFF stream:
//   - BIFF: the stream stored as-is, read with random access
//   - BIF: the stream behind a single zlib stream
//   - BIFC: the stream split into independently zlib-compressed blocks
//
// [Open] detects the variant from the file signature. Resources are
// addressed by [Locator], the file or tileset index taken from the game's
// KEY file (see the key subpackage).
//
// # Quick Start
//
//	archive, err := bif.Open("data/AREA000A.bif")
//	if err != nil {
//	    return err
//	}
//	defer archive.Close()
//
//	data, err := archive.Fetch(ctx, bif.ResourceAt(3))
//
// Large resources can be read incrementally:
//
//	r, err := archive.FetchStream(ctx, bif.TilesetAt(1))
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//	_, err = io.Copy(dst, r)
//
// # Compressed archives
//
// Compressed variants are read strictly forward. Each fetch opens its own
// handle and replays the compressed stream up to the requested resource, so
// fetching from a BIF or BIFC costs time proportional to the resource's
// position. Use [WithCache] when the same resources are read repeatedly, or
// [Archive.Extract] to unpack everything in one pass.
package bif
