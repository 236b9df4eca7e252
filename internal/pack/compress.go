package pack

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/meigma/bif/internal/biftype"
	"github.com/meigma/bif/internal/inflate"
	"github.com/meigma/bif/internal/sizing"
)

// BIFCHeaderSize is the size of the BIFC header preceding the first block.
const BIFCHeaderSize = 12

// DefaultBlockSize is the decompressed size of BIFC blocks written by WriteBIFC.
const DefaultBlockSize = 8192

// WriteBIF writes biff as a BIF archive: one zlib stream behind a header
// naming the archive.
func WriteBIF(w io.Writer, name string, biff []byte, level int) error {
	compressed, err := inflate.DeflateBytes(biff, level)
	if err != nil {
		return err
	}
	nameLen := len(name) + 1
	if !sizing.FitsUint32(nameLen) || !sizing.FitsUint32(len(biff)) || !sizing.FitsUint32(len(compressed)) {
		return fmt.Errorf("%w: BIF fields exceed 32 bits", biftype.ErrSizeOverflow)
	}

	hdr := make([]byte, 0, 20+nameLen)
	hdr = append(hdr, biftype.MagicBIF...)
	hdr = append(hdr, biftype.VersionCompressed...)
	hdr = binary.LittleEndian.AppendUint32(hdr, uint32(nameLen)) //nolint:gosec // checked above
	hdr = append(hdr, name...)
	hdr = append(hdr, 0)
	hdr = binary.LittleEndian.AppendUint32(hdr, uint32(len(biff)))       //nolint:gosec // checked above
	hdr = binary.LittleEndian.AppendUint32(hdr, uint32(len(compressed))) //nolint:gosec // checked above
	if _, err := w.Write(hdr); err != nil {
		return err
	}
	_, err = w.Write(compressed)
	return err
}

// WriteBIFC writes biff as a BIFC archive split into blocks of blockSize
// decompressed bytes. A blockSize <= 0 selects DefaultBlockSize.
func WriteBIFC(w io.Writer, biff []byte, blockSize, level int) error {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	return WriteBIFCBlocks(w, biff, SplitSizes(len(biff), blockSize), level)
}

// WriteBIFCBlocks writes biff as a BIFC archive whose blocks hold exactly the
// given decompressed sizes. The sizes must add up to len(biff).
func WriteBIFCBlocks(w io.Writer, biff []byte, sizes []int, level int) error {
	if !sizing.FitsUint32(len(biff)) {
		return fmt.Errorf("%w: BIFF stream of %d bytes", biftype.ErrSizeOverflow, len(biff))
	}
	hdr := make([]byte, 0, BIFCHeaderSize)
	hdr = append(hdr, biftype.MagicBIFC...)
	hdr = append(hdr, biftype.VersionCompressed...)
	hdr = binary.LittleEndian.AppendUint32(hdr, uint32(len(biff))) //nolint:gosec // checked above
	if _, err := w.Write(hdr); err != nil {
		return err
	}
	blocks, err := AppendBlocks(nil, biff, sizes, level)
	if err != nil {
		return err
	}
	_, err = w.Write(blocks)
	return err
}

// AppendBlocks appends a block chain holding data, split at the given
// decompressed sizes, to dst.
func AppendBlocks(dst, data []byte, sizes []int, level int) ([]byte, error) {
	sum := 0
	for _, n := range sizes {
		if n < 0 {
			return nil, fmt.Errorf("negative block size %d", n)
		}
		sum += n
	}
	if sum != len(data) {
		return nil, fmt.Errorf("block sizes add up to %d, want %d", sum, len(data))
	}

	var buf bytes.Buffer
	for _, n := range sizes {
		buf.Reset()
		if err := inflate.Deflate(&buf, data[:n], level); err != nil {
			return nil, err
		}
		dst = binary.LittleEndian.AppendUint32(dst, uint32(n))         //nolint:gosec // bounded by len(data)
		dst = binary.LittleEndian.AppendUint32(dst, uint32(buf.Len())) //nolint:gosec // deflate output of a bounded block
		dst = append(dst, buf.Bytes()...)
		data = data[n:]
	}
	return dst, nil
}

// SplitSizes splits total bytes into blocks of at most blockSize.
func SplitSizes(total, blockSize int) []int {
	if total <= 0 || blockSize <= 0 {
		return nil
	}
	sizes := make([]int, 0, (total+blockSize-1)/blockSize)
	for total > 0 {
		n := min(total, blockSize)
		sizes = append(sizes, n)
		total -= n
	}
	return sizes
}
