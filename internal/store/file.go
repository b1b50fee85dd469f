package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/google/renameio/v2"
)

// FileStore keeps the pointer as a plain-text integer in a single file.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Load(_ context.Context) (int, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("read %s: %w", s.path, err)
	}

	value, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || value < 0 {
		return 0, fmt.Errorf("%w: %s: %q", ErrCorrupt, s.path, strings.TrimSpace(string(data)))
	}

	return value, nil
}

// Save replaces the file atomically: a crash mid-write leaves either the
// old or the new value on disk.
func (s *FileStore) Save(_ context.Context, value int) error {
	if value < 0 {
		return ErrNegative
	}

	if err := renameio.WriteFile(s.path, []byte(strconv.Itoa(value)), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}

	return nil
}

func (s *FileStore) Close() error {
	return nil
}
