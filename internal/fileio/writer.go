package fileio

import (
	"errors"
	"io/fs"
	"os"
	"path"
)

// Writer is a struct for writing files to the device
type Writer struct {
	// rootDir is the root directory for the device writer useful for testing
	rootDir string
}

// NewWriter creates a new writer
func NewWriter() *Writer {
	return &Writer{}
}

// SetRootdir sets the root directory for the writer, useful for testing
func (r *Writer) SetRootdir(path string) {
	r.rootDir = path
}

// PathFor returns the full path for the provided file, useful for using functions
// and libraries that don't work with the fileio.Writer
func (r *Writer) PathFor(filePath string) string {
	return path.Join(r.rootDir, filePath)
}

// WriteFile writes the file at the provided path, creating parent
// directories as needed
func (r *Writer) WriteFile(filePath string, data []byte) error {
	fullPath := r.PathFor(filePath)
	if err := os.MkdirAll(path.Dir(fullPath), 0755); err != nil {
		return err
	}
	return os.WriteFile(fullPath, data, 0644)
}

// RemoveFile removes the file at the provided path. Removing a file that
// does not exist is not an error.
func (r *Writer) RemoveFile(filePath string) error {
	err := os.Remove(r.PathFor(filePath))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
