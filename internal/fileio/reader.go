package fileio

import (
	"errors"
	"io/fs"
	"os"
	"path"
)

// Reader is a struct for reading files from the device
type Reader struct {
	// rootDir is the root directory for the device reader useful for testing
	rootDir string
}

// NewReader creates a new reader
func NewReader() *Reader {
	return &Reader{}
}

// SetRootdir sets the root directory for the reader, useful for testing
func (r *Reader) SetRootdir(path string) {
	r.rootDir = path
}

// PathFor returns the full path for the provided file
func (r *Reader) PathFor(filePath string) string {
	return path.Join(r.rootDir, filePath)
}

// ReadFile reads the file at the provided path
func (r *Reader) ReadFile(filePath string) ([]byte, error) {
	return os.ReadFile(r.PathFor(filePath))
}

// ReadDir returns the entries of the directory at the provided path. A
// directory that does not exist yields an empty list.
func (r *Reader) ReadDir(dirPath string) ([]fs.DirEntry, error) {
	entries, err := os.ReadDir(r.PathFor(dirPath))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []fs.DirEntry{}, nil
		}
		return nil, err
	}
	return entries, nil
}

// PathExists checks whether the provided path exists
func (r *Reader) PathExists(filePath string) (bool, error) {
	_, err := os.Stat(r.PathFor(filePath))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}
