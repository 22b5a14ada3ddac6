package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore is a RecordStore persisted as a single JSON file on disk
type FileStore struct {
	*MemoryStore
	path string
}

// NewFileStore opens (or creates on first write) a JSON record file
func NewFileStore(path string) (*FileStore, error) {
	fs := &FileStore{MemoryStore: NewMemoryStore(), path: path}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("failed to read record file: %w", err)
	default:
		if err := json.Unmarshal(data, &fs.tables); err != nil {
			return nil, fmt.Errorf("failed to parse record file: %w", err)
		}
		if fs.tables == nil {
			fs.tables = make(map[string]map[string]Record)
		}
	}

	fs.onChange = fs.persist
	return fs, nil
}

// Path returns the backing file path
func (fs *FileStore) Path() string {
	return fs.path
}

func (fs *FileStore) persist(tables map[string]map[string]Record) error {
	if err := os.MkdirAll(filepath.Dir(fs.path), 0700); err != nil {
		return fmt.Errorf("failed to create record directory: %w", err)
	}

	data, err := json.Marshal(tables)
	if err != nil {
		return fmt.Errorf("failed to serialize records: %w", err)
	}

	tmp := fs.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write record file: %w", err)
	}
	if err := os.Rename(tmp, fs.path); err != nil {
		return fmt.Errorf("failed to replace record file: %w", err)
	}
	return nil
}
