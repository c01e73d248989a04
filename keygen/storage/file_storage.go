package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FileStorage keeps artifacts in a local directory. Writers stage to a
// hidden temp file in the same directory and publish with fsync + rename, so
// the canonical name never holds a partial artifact.
type FileStorage struct {
	path string
}

func NewFileStorage(path string) (*FileStorage, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("creating artifact directory: %w", err)
	}
	return &FileStorage{path: path}, nil
}

func (f *FileStorage) Reader(key string) (io.ReadCloser, error) {
	return os.Open(f.filename(key))
}

func (f *FileStorage) Writer(key string) (PublishingWriter, error) {
	final := f.filename(key)
	tmp, err := os.CreateTemp(f.path, "."+key+".stage-*")
	if err != nil {
		return nil, fmt.Errorf("staging %s: %w", key, err)
	}
	return &fileWriter{file: tmp, final: final}, nil
}

func (f *FileStorage) Remove(key string) error {
	return os.Remove(f.filename(key))
}

func (f *FileStorage) filename(key string) string {
	return filepath.Join(f.path, key)
}

type fileWriter struct {
	file  *os.File
	final string
	done  bool
}

func (w *fileWriter) Write(b []byte) (int, error) {
	return w.file.Write(b)
}

// Close publishes: flush the staged bytes to stable storage, rename onto the
// canonical name, then sync the directory so the rename itself is durable. A
// crash before the rename leaves only the hidden staging file behind.
func (w *fileWriter) Close() error {
	if w.done {
		return nil
	}
	w.done = true
	if err := w.file.Sync(); err != nil {
		w.discard()
		return fmt.Errorf("syncing staged artifact: %w", err)
	}
	if err := w.file.Close(); err != nil {
		_ = os.Remove(w.file.Name())
		return fmt.Errorf("closing staged artifact: %w", err)
	}
	if err := os.Rename(w.file.Name(), w.final); err != nil {
		_ = os.Remove(w.file.Name())
		return fmt.Errorf("publishing artifact: %w", err)
	}
	return syncDir(filepath.Dir(w.final))
}

func (w *fileWriter) Abort() error {
	if w.done {
		return nil
	}
	w.done = true
	w.discard()
	return nil
}

func (w *fileWriter) discard() {
	_ = w.file.Close()
	_ = os.Remove(w.file.Name())
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}
