package key

import (
	"encoding/binary"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Location bits of a BifEntry. The CD bits name the install medium that
// holds the archive; a game installed to disk keeps those folders below
// its root.
const (
	LocationData  uint16 = 0x0001
	LocationCache uint16 = 0x0002
	LocationCD1   uint16 = 0x0004
	LocationCD2   uint16 = 0x0008
	LocationCD3   uint16 = 0x0010
	LocationCD4   uint16 = 0x0020
	LocationCD5   uint16 = 0x0040
	LocationCD6   uint16 = 0x0080
)

// bifRecordSize is the size of a serialized BifEntry, excluding its name.
const bifRecordSize = 12

var filenameReplacer = strings.NewReplacer(`\`, "/", ":", "/")

// NormalizeFilename converts a filename from a KEY file into a
// slash-separated relative path. Backslashes and colons become slashes
// and leading slashes are removed.
func NormalizeFilename(name string) string {
	return strings.TrimLeft(filenameReplacer.Replace(name), "/")
}

// BifEntry describes one archive listed in a KEY file.
type BifEntry struct {
	// Filename is the archive path relative to the game root, normalized
	// with NormalizeFilename.
	Filename string

	// Location holds the Location* bits.
	Location uint16

	// Index is the entry's position in the KEY file's archive table.
	Index int

	// FileLength is the archive size recorded in the KEY file.
	FileLength uint32

	// StringOffset is the position of the name in the KEY file.
	StringOffset uint32

	// StringLength is the name length including its NUL terminator.
	StringLength uint16
}

// UpdateOffset records that the entry's name is stored at off and
// recomputes StringLength from Filename.
func (e *BifEntry) UpdateOffset(off uint32) {
	e.StringOffset = off
	e.StringLength = uint16(len(e.Filename) + 1) //nolint:gosec // names are checked by Encode
}

// AppendRecord appends the 12-byte table record of e to dst.
func (e *BifEntry) AppendRecord(dst []byte) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, e.FileLength)
	dst = binary.LittleEndian.AppendUint32(dst, e.StringOffset)
	dst = binary.LittleEndian.AppendUint16(dst, e.StringLength)
	return binary.LittleEndian.AppendUint16(dst, e.Location)
}

// AppendName appends the NUL-terminated, backslash-separated name of e to dst.
func (e *BifEntry) AppendName(dst []byte) []byte {
	dst = append(dst, strings.ReplaceAll(e.Filename, "/", `\`)...)
	return append(dst, 0)
}

// File returns the path of the archive below the game root.
//
// The root is searched first, then the CD folders named by the location
// bits. In each directory the stored name is tried as is, with the
// alternate extension (.bif for .cbf and the reverse), and lower-cased.
func (e *BifEntry) File(root string) (string, error) {
	rel := filepath.FromSlash(e.Filename)
	stored := []string{rel}
	if alt := alternateExt(rel); alt != "" {
		stored = append(stored, alt)
	}
	names := slices.Clone(stored)
	for _, name := range stored {
		if lower := strings.ToLower(name); lower != name {
			names = append(names, lower)
		}
	}

	dirs := []string{root}
	for i := range 6 {
		if e.Location&(LocationCD1<<i) != 0 {
			dirs = append(dirs, filepath.Join(root, fmt.Sprintf("CD%d", i+1)))
		}
	}

	for _, dir := range dirs {
		for _, name := range names {
			path := filepath.Join(dir, name)
			if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
				return path, nil
			}
		}
	}
	return "", fmt.Errorf("locate %s below %s: %w", e.Filename, root, fs.ErrNotExist)
}

func alternateExt(name string) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	switch strings.ToLower(ext) {
	case ".bif":
		return base + ".cbf"
	case ".cbf":
		return base + ".bif"
	default:
		return ""
	}
}
