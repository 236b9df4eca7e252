package inflate

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zlib"
)

// Deflate compresses src into a complete zlib stream written to w.
func Deflate(w io.Writer, src []byte, level int) error {
	zw, err := zlib.NewWriterLevel(w, level)
	if err != nil {
		return err
	}
	if _, err := zw.Write(src); err != nil {
		_ = zw.Close() //nolint:errcheck // write error takes precedence
		return err
	}
	return zw.Close()
}

// DeflateBytes returns src compressed into a zlib stream.
func DeflateBytes(src []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	if err := Deflate(&buf, src, level); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
