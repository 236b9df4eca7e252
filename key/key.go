// Package key reads and writes KEY files, the master index that maps
// resource names to the archives holding them.
//
// A KEY file lists the game's archives as BifEntry records and every
// resource as a name, a type and a locator. SplitLocator turns a locator
// into the archive index and the bif.Locator passed to bif.Archive.Fetch.
package key

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/tidwall/btree"

	"github.com/meigma/bif"
)

// Signature and version of the supported KEY format.
const (
	Magic   = "KEY "
	Version = "V1  "
)

const (
	headerSize         = 24
	resourceRecordSize = 14
	resrefLen          = 8
)

type rawHeader struct {
	Magic          [4]byte
	Version        [4]byte
	BifCount       uint32
	ResourceCount  uint32
	BifOffset      uint32
	ResourceOffset uint32
}

type rawBif struct {
	FileLength   uint32
	StringOffset uint32
	StringLength uint16
	Location     uint16
}

type rawResource struct {
	Name    [resrefLen]byte
	Type    uint16
	Locator uint32
}

// Resource is one entry of the resource table.
type Resource struct {
	// Name is the upper-case resource name, at most eight bytes.
	Name string

	Type bif.ResourceType

	// Locator is the raw locator; see SplitLocator.
	Locator uint32
}

// Filename returns the conventional file name of r, such as "ar0101.are".
func (r Resource) Filename() string {
	return strings.ToLower(r.Name) + "." + r.Type.Extension()
}

// Split returns the archive index and archive locator of r.
func (r Resource) Split() (int, bif.Locator) {
	return SplitLocator(r.Locator)
}

func resourceLess(a, b Resource) bool {
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return a.Type < b.Type
}

// Key is a parsed KEY file. Resources are kept ordered by name and type.
//
// A Key is safe for concurrent reads. Adding entries while reading is not
// supported.
type Key struct {
	Version string
	Bifs    []*BifEntry

	index *btree.BTreeG[Resource]
}

// New returns an empty Key.
func New() *Key {
	return &Key{
		Version: Version,
		index:   btree.NewBTreeGOptions(resourceLess, btree.Options{NoLocks: true}),
	}
}

// Load reads the KEY file at path.
func Load(path string) (*Key, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	k, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return k, nil
}

// Parse decodes a KEY file. Malformed tables fail with an error matching
// bif.ErrCorrupt; a foreign signature fails with bif.ErrUnsupportedFormat.
// The version tag is recorded but not checked.
func Parse(data []byte) (*Key, error) {
	if len(data) < headerSize {
		if len(data) >= len(Magic) && string(data[:len(Magic)]) == Magic {
			return nil, fmt.Errorf("%w: KEY header is %d bytes", bif.ErrCorrupt, len(data))
		}
		return nil, fmt.Errorf("%w: file is %d bytes", bif.ErrUnsupportedFormat, len(data))
	}

	var h rawHeader
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("%w: KEY header: %v", bif.ErrCorrupt, err)
	}
	if string(h.Magic[:]) != Magic {
		return nil, fmt.Errorf("%w: signature %q", bif.ErrUnsupportedFormat, h.Magic[:])
	}

	k := New()
	k.Version = string(h.Version[:])

	bifTable, err := table(data, h.BifOffset, h.BifCount, bifRecordSize)
	if err != nil {
		return nil, fmt.Errorf("archive table: %w", err)
	}
	raws := make([]rawBif, h.BifCount)
	if err := binary.Read(bytes.NewReader(bifTable), binary.LittleEndian, raws); err != nil {
		return nil, fmt.Errorf("%w: archive table: %v", bif.ErrCorrupt, err)
	}
	k.Bifs = make([]*BifEntry, len(raws))
	for i, rb := range raws {
		name, err := table(data, rb.StringOffset, uint32(rb.StringLength), 1)
		if err != nil {
			return nil, fmt.Errorf("archive %d name: %w", i, err)
		}
		if n := bytes.IndexByte(name, 0); n >= 0 {
			name = name[:n]
		}
		k.Bifs[i] = &BifEntry{
			Filename:     NormalizeFilename(string(name)),
			Location:     rb.Location,
			Index:        i,
			FileLength:   rb.FileLength,
			StringOffset: rb.StringOffset,
			StringLength: rb.StringLength,
		}
	}

	resTable, err := table(data, h.ResourceOffset, h.ResourceCount, resourceRecordSize)
	if err != nil {
		return nil, fmt.Errorf("resource table: %w", err)
	}
	r := bytes.NewReader(resTable)
	for range h.ResourceCount {
		var rr rawResource
		if err := binary.Read(r, binary.LittleEndian, &rr); err != nil {
			return nil, fmt.Errorf("%w: resource table: %v", bif.ErrCorrupt, err)
		}
		k.Add(Resource{
			Name:    resref(rr.Name[:]),
			Type:    bif.ResourceType(rr.Type),
			Locator: rr.Locator,
		})
	}
	return k, nil
}

// table returns count records of size bytes starting at off.
func table(data []byte, off, count uint32, size int) ([]byte, error) {
	end := uint64(off) + uint64(count)*uint64(size)
	if end > uint64(len(data)) {
		return nil, fmt.Errorf("%w: %d records at %d end past file of %d bytes", bif.ErrCorrupt, count, off, len(data))
	}
	return data[off:end], nil
}

func resref(b []byte) string {
	if n := bytes.IndexByte(b, 0); n >= 0 {
		b = b[:n]
	}
	return strings.ToUpper(string(b))
}

// Add inserts r, replacing any resource with the same name and type.
// Names are stored upper-case.
func (k *Key) Add(r Resource) {
	r.Name = strings.ToUpper(r.Name)
	k.index.Set(r)
}

// AddBif appends an archive entry and returns its index.
func (k *Key) AddBif(filename string, length uint32, location uint16) int {
	e := &BifEntry{
		Filename:   NormalizeFilename(filename),
		Location:   location,
		Index:      len(k.Bifs),
		FileLength: length,
	}
	k.Bifs = append(k.Bifs, e)
	return e.Index
}

// Len returns the number of resources.
func (k *Key) Len() int {
	return k.index.Len()
}

// Lookup returns the resource with the given name and type. Names are
// matched case-insensitively.
func (k *Key) Lookup(name string, t bif.ResourceType) (Resource, bool) {
	return k.index.Get(Resource{Name: strings.ToUpper(name), Type: t})
}

// Resources returns every resource ordered by name and type.
func (k *Key) Resources() []Resource {
	return k.index.Items()
}

// ResourcesIn returns the resources stored in the archive with the given
// index, ordered by name and type.
func (k *Key) ResourcesIn(bifIndex int) []Resource {
	var out []Resource
	k.index.Scan(func(r Resource) bool {
		if i, _ := r.Split(); i == bifIndex {
			out = append(out, r)
		}
		return true
	})
	return out
}

// Bif returns the archive entry a resource is stored in.
func (k *Key) Bif(r Resource) (*BifEntry, error) {
	i, _ := r.Split()
	if i >= len(k.Bifs) {
		return nil, fmt.Errorf("%w: %s refers to archive %d of %d", bif.ErrCorrupt, r.Filename(), i, len(k.Bifs))
	}
	return k.Bifs[i], nil
}

// Encode writes k as a KEY file: header, archive table, archive names and
// resource table, in that order. The name offsets of every BifEntry are
// updated to match the written layout.
func (k *Key) Encode(w io.Writer) error {
	if uint64(len(k.Bifs)) > math.MaxUint32 || uint64(k.Len()) > math.MaxUint32 {
		return fmt.Errorf("%w: too many entries", bif.ErrSizeOverflow)
	}
	bifOffset := uint64(headerSize)
	nameOffset := bifOffset + uint64(len(k.Bifs))*bifRecordSize
	next := nameOffset
	for _, e := range k.Bifs {
		if len(e.Filename)+1 > math.MaxUint16 {
			return fmt.Errorf("%w: archive name %q", bif.ErrSizeOverflow, e.Filename)
		}
		if next > math.MaxUint32 {
			return fmt.Errorf("%w: names end past 4 GiB", bif.ErrSizeOverflow)
		}
		e.UpdateOffset(uint32(next))
		next += uint64(e.StringLength)
	}
	resourceOffset := next
	if resourceOffset+uint64(k.Len())*resourceRecordSize > math.MaxUint32 {
		return fmt.Errorf("%w: resource table ends past 4 GiB", bif.ErrSizeOverflow)
	}

	buf := make([]byte, 0, resourceOffset+uint64(k.Len())*resourceRecordSize)
	buf = append(buf, Magic...)
	buf = append(buf, k.version()...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(k.Bifs)))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(k.Len()))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(bifOffset))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(resourceOffset))
	for _, e := range k.Bifs {
		buf = e.AppendRecord(buf)
	}
	for _, e := range k.Bifs {
		buf = e.AppendName(buf)
	}

	var encodeErr error
	k.index.Scan(func(r Resource) bool {
		if len(r.Name) > resrefLen {
			encodeErr = fmt.Errorf("resource name %q is longer than %d bytes", r.Name, resrefLen)
			return false
		}
		var name [resrefLen]byte
		copy(name[:], r.Name)
		buf = append(buf, name[:]...)
		buf = binary.LittleEndian.AppendUint16(buf, uint16(r.Type))
		buf = binary.LittleEndian.AppendUint32(buf, r.Locator)
		return true
	})
	if encodeErr != nil {
		return encodeErr
	}
	_, err := w.Write(buf)
	return err
}

func (k *Key) version() string {
	if len(k.Version) != 4 {
		return Version
	}
	return k.Version
}
