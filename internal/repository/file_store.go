package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/natefinch/atomic"

	"streak-keeper/internal/model"
)

// FileStore keeps the collection as a single JSON blob on disk.
type FileStore struct {
	path string
	log  *slog.Logger
	mu   sync.Mutex
}

func NewFileStore(path string, log *slog.Logger) *FileStore {
	if log == nil {
		log = slog.Default()
	}
	return &FileStore{path: path, log: log}
}

// Load returns the stored categories or an empty slice when the file does not exist yet.
func (s *FileStore) Load(ctx context.Context) ([]model.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []model.Category{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	return DecodeSnapshot(f, s.log)
}

// Save atomically replaces the file with categories.
func (s *FileStore) Save(ctx context.Context, categories []model.Category) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var buf bytes.Buffer
	if err := EncodeSnapshot(&buf, categories, FormatJSON); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create snapshot dir %q: %w", dir, err)
		}
	}
	if err := atomic.WriteFile(s.path, &buf); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// Seeded reports whether the snapshot file exists. A missing file is the first run.
func (s *FileStore) Seeded(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := os.Stat(s.path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("stat snapshot: %w", err)
	}
}

// MarkSeeded is a no-op: the first Save creates the file.
func (s *FileStore) MarkSeeded(context.Context) error {
	return nil
}
