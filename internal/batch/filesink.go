package batch

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileSink writes items below a destination directory.
//
// By default, files are written to a temporary file in the same directory
// and renamed to the final path on Commit, so partially written files are
// never visible at the final path.
type FileSink struct {
	destDir     string
	overwrite   bool
	directWrite bool
}

// FileSinkOption configures a FileSink.
type FileSinkOption func(*FileSink)

// WithOverwrite allows overwriting existing files.
// By default, existing files are skipped.
func WithOverwrite(overwrite bool) FileSinkOption {
	return func(s *FileSink) {
		s.overwrite = overwrite
	}
}

// WithDirectWrites disables temp files and writes directly to the final path.
func WithDirectWrites(enabled bool) FileSinkOption {
	return func(s *FileSink) {
		s.directWrite = enabled
	}
}

// NewFileSink creates a FileSink that writes to destDir.
// Parent directories are created automatically as needed.
func NewFileSink(destDir string, opts ...FileSinkOption) *FileSink {
	s := &FileSink{destDir: destDir}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ShouldProcess returns false if the file already exists and overwrite is disabled.
func (s *FileSink) ShouldProcess(item *Item) bool {
	if s.overwrite {
		return true
	}
	if !fs.ValidPath(item.Name) {
		// Let Writer report the invalid name.
		return true
	}
	_, err := os.Stat(filepath.Join(s.destDir, filepath.FromSlash(item.Name)))
	return errors.Is(err, fs.ErrNotExist)
}

// Writer returns a Committer for the item's destination file.
func (s *FileSink) Writer(item *Item) (Committer, error) {
	if !fs.ValidPath(item.Name) || item.Name == "." {
		return nil, &fs.PathError{Op: "extract", Path: item.Name, Err: fs.ErrInvalid}
	}
	destRel := filepath.FromSlash(item.Name)
	destPath := filepath.Join(s.destDir, destRel)

	root, err := os.OpenRoot(s.destDir)
	if err != nil {
		return nil, fmt.Errorf("open destination root %s: %w", s.destDir, err)
	}
	if err := root.MkdirAll(filepath.Dir(destRel), 0o750); err != nil {
		_ = root.Close() //nolint:errcheck // best-effort cleanup
		return nil, fmt.Errorf("create directory for %s: %w", destPath, err)
	}

	if s.directWrite {
		file, err := root.OpenFile(destRel, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
		if err != nil {
			_ = root.Close() //nolint:errcheck // best-effort cleanup
			return nil, fmt.Errorf("create file %s: %w", destPath, err)
		}
		return &fileCommitter{root: root, file: file, fileRel: destRel, destPath: destPath}, nil
	}

	tempFile, tempRel, err := createTempFile(root, filepath.Dir(destRel), ".bif-")
	if err != nil {
		_ = root.Close() //nolint:errcheck // best-effort cleanup
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	return &fileCommitter{
		root:     root,
		file:     tempFile,
		fileRel:  tempRel,
		destRel:  destRel,
		destPath: destPath,
	}, nil
}

// fileCommitter writes to fileRel and, when destRel is set, renames it
// there on Commit.
type fileCommitter struct {
	root     *os.Root
	file     *os.File
	fileRel  string
	destRel  string
	destPath string
}

// Write implements io.Writer.
func (c *fileCommitter) Write(p []byte) (int, error) {
	return c.file.Write(p)
}

// Commit closes the file and moves it into place.
func (c *fileCommitter) Commit() error {
	if err := c.file.Close(); err != nil {
		_ = c.root.Remove(c.fileRel) //nolint:errcheck // best-effort cleanup
		_ = c.root.Close()           //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("close %s: %w", c.destPath, err)
	}
	if c.destRel != "" {
		if err := c.root.Rename(c.fileRel, c.destRel); err != nil {
			_ = c.root.Remove(c.fileRel) //nolint:errcheck // best-effort cleanup
			_ = c.root.Close()           //nolint:errcheck // best-effort cleanup
			return fmt.Errorf("rename to %s: %w", c.destPath, err)
		}
	}
	return c.root.Close()
}

// Discard closes and removes the file.
func (c *fileCommitter) Discard() error {
	_ = c.file.Close() //nolint:errcheck // we're cleaning up
	if err := c.root.Remove(c.fileRel); err != nil {
		_ = c.root.Close() //nolint:errcheck // best-effort cleanup
		return err
	}
	return c.root.Close()
}

func createTempFile(root *os.Root, dir, prefix string) (*os.File, string, error) {
	const attempts = 10
	for range attempts {
		name, err := randomSuffix()
		if err != nil {
			return nil, "", err
		}
		relPath := filepath.Join(dir, prefix+name)
		f, err := root.OpenFile(relPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			return f, relPath, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", err
		}
	}
	return nil, "", errors.New("create temp file: exhausted retries")
}

func randomSuffix() (string, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}
