// Package storage stores public files such as avatars in a bucket.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"homedeck/internal/config"
)

// Bucket is an object store whose objects are publicly readable.
type Bucket interface {
	// Upload writes body under key, replacing any existing object.
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// PublicURL returns the URL the object under key is served from.
	PublicURL(key string) string
}

// New builds the bucket selected by cfg.
func New(ctx context.Context, cfg config.StorageConfig) (Bucket, error) {
	switch cfg.Backend {
	case "", "local":
		return NewLocalBucket(cfg.LocalDir, cfg.PublicBaseURL)
	case "s3":
		return NewS3Bucket(ctx, cfg.S3, cfg.PublicBaseURL)
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", cfg.Backend)
	}
}

// CleanKey normalises an object key and rejects keys that escape the bucket.
func CleanKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("storage: empty key")
	}
	cleaned := path.Clean("/" + key)[1:]
	if cleaned == "" || cleaned != strings.TrimPrefix(key, "/") || strings.HasPrefix(cleaned, "..") {
		return "", fmt.Errorf("storage: invalid key %q", key)
	}
	return cleaned, nil
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
