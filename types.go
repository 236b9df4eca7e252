package bif

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/meigma/bif/internal/biftype"
)

// Descriptor is a decoded resource table record.
type Descriptor = biftype.Descriptor

// Signature is the four-byte tag identifying an archive variant.
type Signature string

// Archive signatures.
const (
	SignatureBIFF Signature = biftype.MagicBIFF
	SignatureBIF  Signature = biftype.MagicBIF
	SignatureBIFC Signature = biftype.MagicBIFC
)

// Compressed reports whether the variant stores its BIFF stream compressed.
func (s Signature) Compressed() bool {
	return s == SignatureBIF || s == SignatureBIFC
}

// Header describes an open archive.
type Header struct {
	// Signature is the container variant.
	Signature Signature

	// Version is the version tag of the outer container.
	Version string

	// ResourceCount is the number of non-tile resources.
	ResourceCount uint32

	// TilesetCount is the number of tilesets.
	TilesetCount uint32

	// EntryTableOffset is the position of the resource table in the BIFF stream.
	EntryTableOffset uint32

	// CompressedStreamOffset is the file position where compressed data
	// begins. It is zero for BIFF archives.
	CompressedStreamOffset int64

	// UncompressedLength is the length of the BIFF stream as recorded by a
	// compressed container, or the file size of a BIFF archive.
	UncompressedLength int64

	// Name is the archive name stored in a BIF header.
	Name string
}

// parseBIFFHeader fills the BIFF fields of h from the first bytes of a BIFF stream.
func parseBIFFHeader(h *Header, b []byte) error {
	if len(b) < biftype.HeaderSize {
		return fmt.Errorf("%w: BIFF header is %d bytes", ErrCorrupt, len(b))
	}
	if string(b[0:4]) != biftype.MagicBIFF {
		return fmt.Errorf("%w: inner stream signature %q", ErrCorrupt, b[0:4])
	}
	if h.Signature == SignatureBIFF {
		h.Version = string(b[4:8])
	}
	h.ResourceCount = binary.LittleEndian.Uint32(b[8:12])
	h.TilesetCount = binary.LittleEndian.Uint32(b[12:16])
	h.EntryTableOffset = binary.LittleEndian.Uint32(b[16:20])
	return nil
}

// ResourceType is the numeric type code of a resource.
type ResourceType uint16

// Well-known resource types.
const (
	TypeBMP  ResourceType = 0x0001
	TypeMVE  ResourceType = 0x0002
	TypeWAV  ResourceType = 0x0004
	TypeWFX  ResourceType = 0x0005
	TypePLT  ResourceType = 0x0006
	TypeBAM  ResourceType = 0x03e8
	TypeWED  ResourceType = 0x03e9
	TypeCHU  ResourceType = 0x03ea
	TypeTIS  ResourceType = 0x03eb
	TypeMOS  ResourceType = 0x03ec
	TypeITM  ResourceType = 0x03ed
	TypeSPL  ResourceType = 0x03ee
	TypeBCS  ResourceType = 0x03ef
	TypeIDS  ResourceType = 0x03f0
	TypeCRE  ResourceType = 0x03f1
	TypeARE  ResourceType = 0x03f2
	TypeDLG  ResourceType = 0x03f3
	Type2DA  ResourceType = 0x03f4
	TypeGAM  ResourceType = 0x03f5
	TypeSTO  ResourceType = 0x03f6
	TypeWMP  ResourceType = 0x03f7
	TypeEFF  ResourceType = 0x03f8
	TypeBS   ResourceType = 0x03f9
	TypeCHR  ResourceType = 0x03fa
	TypeVVC  ResourceType = 0x03fb
	TypeVEF  ResourceType = 0x03fc
	TypePRO  ResourceType = 0x03fd
	TypeBIO  ResourceType = 0x03fe
	TypeWBM  ResourceType = 0x03ff
	TypeFNT  ResourceType = 0x0400
	TypeGUI  ResourceType = 0x0402
	TypeSQL  ResourceType = 0x0403
	TypePVRZ ResourceType = 0x0404
	TypeGLSL ResourceType = 0x0405
	TypeMENU ResourceType = 0x0408
	TypeLUA  ResourceType = 0x0409
	TypeTTF  ResourceType = 0x040a
	TypePNG  ResourceType = 0x040b
	TypeBAH  ResourceType = 0x044c
	TypeINI  ResourceType = 0x0802
	TypeSRC  ResourceType = 0x0803
)

var typeExtensions = map[ResourceType]string{
	TypeBMP: "bmp", TypeMVE: "mve", TypeWAV: "wav", TypeWFX: "wfx", TypePLT: "plt",
	TypeBAM: "bam", TypeWED: "wed", TypeCHU: "chu", TypeTIS: "tis", TypeMOS: "mos",
	TypeITM: "itm", TypeSPL: "spl", TypeBCS: "bcs", TypeIDS: "ids", TypeCRE: "cre",
	TypeARE: "are", TypeDLG: "dlg", Type2DA: "2da", TypeGAM: "gam", TypeSTO: "sto",
	TypeWMP: "wmp", TypeEFF: "eff", TypeBS: "bs", TypeCHR: "chr", TypeVVC: "vvc",
	TypeVEF: "vef", TypePRO: "pro", TypeBIO: "bio", TypeWBM: "wbm", TypeFNT: "fnt",
	TypeGUI: "gui", TypeSQL: "sql", TypePVRZ: "pvrz", TypeGLSL: "glsl", TypeMENU: "menu",
	TypeLUA: "lua", TypeTTF: "ttf", TypePNG: "png", TypeBAH: "bah", TypeINI: "ini",
	TypeSRC: "src",
}

var extensionTypes = func() map[string]ResourceType {
	m := make(map[string]ResourceType, len(typeExtensions))
	for t, ext := range typeExtensions {
		m[ext] = t
	}
	return m
}()

// Extension returns the file extension for t without the leading dot.
// Unknown types map to their hexadecimal code.
func (t ResourceType) Extension() string {
	if ext, ok := typeExtensions[t]; ok {
		return ext
	}
	return fmt.Sprintf("%04x", uint16(t))
}

// String returns the upper-case extension of t.
func (t ResourceType) String() string {
	if ext, ok := typeExtensions[t]; ok {
		return strings.ToUpper(ext)
	}
	return fmt.Sprintf("0x%04x", uint16(t))
}

// TypeForExtension returns the resource type for a file extension,
// with or without the leading dot. Matching is case-insensitive.
func TypeForExtension(ext string) (ResourceType, bool) {
	if len(ext) > 0 && ext[0] == '.' {
		ext = ext[1:]
	}
	t, ok := extensionTypes[strings.ToLower(ext)]
	return t, ok
}
