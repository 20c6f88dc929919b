// Package storage defines the Storage interface and factory for presigned-URL
// backends. Object bytes never pass through the API: clients upload and
// download directly against the bucket using short-lived URLs minted here.
//
// New backends are added by implementing the Storage interface and registering
// with the factory via an init() function in the backend's own package:
//
//	func init() {
//	    storage.Register("mybackend", func(cfg *config.Config) (Storage, error) {
//	        return NewMyBackend(cfg)
//	    })
//	}
//
// The main package imports each backend with a blank import to trigger init().
// This means adding a new backend requires no changes to the factory or main
// package — only a blank import in cmd/server/main.go.
package storage

import (
	"context"
	"time"
)

// Storage mints presigned URLs against a bucket. Implementations do not check
// whether the key exists; a download URL for a missing object simply 404s at
// the bucket when dereferenced.
type Storage interface {
	// EnsureBucket creates the bucket if it does not already exist
	EnsureBucket(ctx context.Context, bucket string) error

	// PresignUpload returns a URL that accepts a single PUT of the object.
	// The upload must carry the given Content-Type where the backend enforces it.
	PresignUpload(ctx context.Context, bucket, key, contentType string, ttl time.Duration) (string, error)

	// PresignDownload returns a URL that serves a GET of the object
	PresignDownload(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}
