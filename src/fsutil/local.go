package fsutil

import (
	"io"
	"os"
)

// LocalFileStore implements FileStore using the local filesystem
type LocalFileStore struct {
	// No fields needed as we're using the standard library directly
}

// NewLocalFileStore creates a new LocalFileStore
func NewLocalFileStore() FileStore {
	return &LocalFileStore{}
}

func (fs *LocalFileStore) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (fs *LocalFileStore) ReadFileAsStream(path string) (io.ReadCloser, error) {
	return os.Open(path)
}
