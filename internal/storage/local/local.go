// Package local implements a filesystem-backed storage backend for development
// and testing. Buckets are directories under the configured base path and
// "presigned" URLs are plain unsigned links under the configured base URL with
// an advisory expiry — do not use this backend in production.
package local

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/orbit-cloud/orbit-backend/internal/config"
	"github.com/orbit-cloud/orbit-backend/internal/storage"
)

func init() {
	// Register local storage backend
	storage.Register("local", func(cfg *config.Config) (storage.Storage, error) {
		return New(&cfg.Storage.Local)
	})
}

// LocalStorage implements the Storage interface on the local filesystem
type LocalStorage struct {
	basePath string
	baseURL  string
}

// New creates a new local filesystem storage backend
func New(cfg *config.LocalStorageConfig) (*LocalStorage, error) {
	if cfg.BasePath == "" {
		return nil, fmt.Errorf("local storage base path is required")
	}

	absPath, err := filepath.Abs(cfg.BasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base path: %w", err)
	}

	if err := os.MkdirAll(absPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &LocalStorage{
		basePath: absPath,
		baseURL:  cfg.BaseURL,
	}, nil
}

// EnsureBucket creates the bucket directory if it doesn't exist
func (s *LocalStorage) EnsureBucket(ctx context.Context, bucket string) error {
	if err := os.MkdirAll(filepath.Join(s.basePath, bucket), 0o755); err != nil {
		return fmt.Errorf("failed to create bucket directory: %w", err)
	}
	return nil
}

// objectURL builds the URL for an object with an advisory expiry parameter.
// Keys may contain slashes, so each path segment is escaped separately.
func (s *LocalStorage) objectURL(bucket, key string, ttl time.Duration) string {
	u := s.baseURL + "/" + url.PathEscape(bucket)
	for _, segment := range strings.Split(key, "/") {
		u += "/" + url.PathEscape(segment)
	}
	expires := strconv.FormatInt(time.Now().Add(ttl).Unix(), 10)
	return u + "?expires=" + expires
}

// PresignUpload returns an unsigned PUT URL under the configured base URL
func (s *LocalStorage) PresignUpload(ctx context.Context, bucket, key, contentType string, ttl time.Duration) (string, error) {
	return s.objectURL(bucket, key, ttl), nil
}

// PresignDownload returns an unsigned GET URL under the configured base URL
func (s *LocalStorage) PresignDownload(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	return s.objectURL(bucket, key, ttl), nil
}
