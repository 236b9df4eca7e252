package biftype

import "errors"

// Sentinel errors for archive operations.
var (
	// ErrUnsupportedFormat is returned when an archive signature is not recognized.
	ErrUnsupportedFormat = errors.New("bif: unsupported format")

	// ErrCorrupt is returned when an archive is truncated or a record is malformed.
	ErrCorrupt = errors.New("bif: truncated or corrupt archive")

	// ErrDecompression is returned when a zlib stream cannot be inflated.
	ErrDecompression = errors.New("bif: decompression failed")

	// ErrInvalidLocator is returned for locators that have no table slot.
	ErrInvalidLocator = errors.New("bif: invalid locator")

	// ErrSizeOverflow is returned when byte counts exceed supported limits.
	ErrSizeOverflow = errors.New("bif: size overflow")
)
