// Package storage persists setup-key artifacts. The canonical location of an
// artifact is only ever updated through an atomic publish: an observer sees
// the previous content or the complete new content, never a partial write.
package storage

import (
	"io"
)

// PublishingWriter stages bytes privately. Close durably publishes them at
// the canonical location; Abort discards the staging area and leaves the
// canonical location untouched. A writer that is neither closed nor aborted
// (e.g. a crash) behaves like Abort as far as observers are concerned.
type PublishingWriter interface {
	io.Writer
	Abort() error
	Close() error
}

type Storage interface {
	Reader(key string) (io.ReadCloser, error)
	Writer(key string) (PublishingWriter, error)
	Remove(key string) error
}
