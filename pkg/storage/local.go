package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/kerbaras/anonclone/pkg/data"
)

// LocalStore writes each task to its LocalPath.
type LocalStore struct {
	root string
}

func NewLocalStore(root string) *LocalStore {
	return &LocalStore{root: root}
}

func (s *LocalStore) Location() string {
	return s.root
}

func (s *LocalStore) FirstLine(_ context.Context, task data.DownloadTask) (string, bool, error) {
	f, err := os.Open(task.LocalPath)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", true, err
	}
	defer f.Close()

	line, err := readFirstLine(f)
	if err != nil {
		return "", true, fmt.Errorf("read %s: %w", task.LocalPath, err)
	}
	return line, true, nil
}

// Prepare creates the parent directory; an existing directory is success.
func (s *LocalStore) Prepare(_ context.Context, task data.DownloadTask) error {
	dir := filepath.Dir(task.LocalPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	return nil
}

func (s *LocalStore) Save(_ context.Context, task data.DownloadTask, body []byte) error {
	if err := os.WriteFile(task.LocalPath, body, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", task.LocalPath, err)
	}
	return nil
}
