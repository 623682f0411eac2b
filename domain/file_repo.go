package domain

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStorage keeps the watchlist document in a single JSON file.
type FileStorage struct {
	path string
	mu   sync.Mutex
}

func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

// Get reads the whole file; a missing file means nothing was persisted yet.
func (r *FileStorage) Get(ctx context.Context) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read watchlist file %s: %w", r.path, err)
	}
	return b, nil
}

// Set overwrites the file through a temp file and rename, so readers never see a partial document.
func (r *FileStorage) Set(ctx context.Context, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create watchlist dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp watchlist file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write watchlist file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync watchlist file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close watchlist file: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("replace watchlist file %s: %w", r.path, err)
	}
	return nil
}

// MemoryStorage keeps the document in process memory.
type MemoryStorage struct {
	mu   sync.Mutex
	data []byte
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (m *MemoryStorage) Get(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil, nil
	}
	return append([]byte(nil), m.data...), nil
}

func (m *MemoryStorage) Set(ctx context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), data...)
	return nil
}
