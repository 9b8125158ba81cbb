package kvstore

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var _ Store = (*FileStore)(nil)

// FileStore persists each key as a file under dir. Writes go to a temp
// file first and are renamed into place so a crash never leaves a key
// half written.
type FileStore struct {
	dir string
}

// NewFileStore creates a file backed store rooted at dir
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) GetItem(key string) ([]byte, bool, error) {
	data, err := os.ReadFile(s.pathFor(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

func (s *FileStore) SetItem(key string, value []byte) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, ".kv-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.pathFor(key))
}

func (s *FileStore) pathFor(key string) string {
	name := strings.ReplaceAll(key, string(os.PathSeparator), "_")
	return filepath.Join(s.dir, name+".json")
}
