package batch

import "io"

// Sink receives resource payloads during batch extraction.
//
// Implementations determine where content is written and can filter which
// items to process.
type Sink interface {
	// ShouldProcess returns false if this item should be skipped.
	// This allows implementations to skip files that already exist.
	ShouldProcess(item *Item) bool

	// Writer returns a writer for the item's content.
	// The returned Committer must have Commit() called after a complete
	// write, or Discard() called on any error.
	Writer(item *Item) (Committer, error)
}

// Committer is a writer that can be committed or discarded.
//
// Implementations should stage writes until Commit is called. For example,
// a file-based implementation might write to a temp file and rename it on
// Commit, or delete it on Discard.
type Committer interface {
	io.Writer

	// Commit finalizes the write, making content available.
	Commit() error

	// Discard aborts the write and cleans up any temporary resources.
	Discard() error
}
