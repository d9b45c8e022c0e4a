package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

var _ Bucket = (*LocalBucket)(nil)

// LocalBucket stores objects as files below a directory.
type LocalBucket struct {
	dir     string
	baseURL string
}

// NewLocalBucket creates dir if needed and returns a bucket rooted there.
func NewLocalBucket(dir, baseURL string) (*LocalBucket, error) {
	if dir == "" {
		return nil, fmt.Errorf("storage: local directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create %s: %w", dir, err)
	}
	return &LocalBucket{dir: dir, baseURL: baseURL}, nil
}

// Dir is the root directory of the bucket.
func (b *LocalBucket) Dir() string {
	return b.dir
}

func (b *LocalBucket) path(key string) (string, error) {
	cleaned, err := CleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(b.dir, filepath.FromSlash(cleaned)), nil
}

func (b *LocalBucket) Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	target, err := b.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("storage: create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return fmt.Errorf("storage: create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := io.Copy(tmp, body); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("storage: write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("storage: move %s: %w", key, err)
	}
	return nil
}

func (b *LocalBucket) Delete(ctx context.Context, key string) error {
	target, err := b.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: delete %s: %w", key, err)
	}
	return nil
}

func (b *LocalBucket) PublicURL(key string) string {
	return joinURL(b.baseURL, key)
}
