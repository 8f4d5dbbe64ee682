package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// LocalStore writes images below a base directory.
type LocalStore struct {
	base string
	now  func() time.Time
}

func NewLocalStore(base string) (*LocalStore, error) {
	if base == "" {
		base = "uploads"
	}
	if err := os.MkdirAll(base, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}
	return &LocalStore{base: base, now: time.Now}, nil
}

// Put returns the path relative to the base directory.
func (l *LocalStore) Put(ctx context.Context, owner string, r io.Reader, _ int64, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	rel := ObjectName(owner, l.now(), contentType)
	full := filepath.Join(l.base, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return "", fmt.Errorf("creating storage directory: %w", err)
	}
	f, err := os.Create(full)
	if err != nil {
		return "", fmt.Errorf("writing file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(full)
		return "", fmt.Errorf("writing file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("writing file: %w", err)
	}
	return rel, nil
}

func (l *LocalStore) Delete(_ context.Context, ref string) error {
	if err := os.Remove(l.Path(ref)); err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}
	return nil
}

// Path resolves a reference returned by Put to a filesystem path.
func (l *LocalStore) Path(ref string) string {
	return filepath.Join(l.base, filepath.FromSlash(filepath.Clean("/"+ref)))
}
