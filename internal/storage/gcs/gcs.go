// Package gcs implements the Google Cloud Storage presigning backend. Uploads
// and downloads use time-limited V4 signed URLs generated via the GCS signing
// API; object bytes never pass through the API process. Supports Application
// Default Credentials and service account JSON keys; an explicit signing
// identity can be configured for environments where ADC cannot provide one.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	appconfig "github.com/orbit-cloud/orbit-backend/internal/config"
	appstorage "github.com/orbit-cloud/orbit-backend/internal/storage"
)

func init() {
	// Register GCS storage backend
	appstorage.Register("gcs", func(cfg *appconfig.Config) (appstorage.Storage, error) {
		return New(&cfg.Storage.GCS)
	})
}

// GCSStorage implements the Storage interface for Google Cloud Storage
type GCSStorage struct {
	client         *storage.Client
	projectID      string
	googleAccessID string
	privateKey     []byte
}

// New creates a new Google Cloud Storage presigning backend.
//
// Credentials come from the service account key file when configured, or
// Application Default Credentials otherwise (GOOGLE_APPLICATION_CREDENTIALS,
// GCE/GKE metadata service, gcloud auth application-default login).
func New(cfg *appconfig.GCSStorageConfig) (*GCSStorage, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("gcs project_id is required")
	}

	ctx := context.Background()
	var opts []option.ClientOption

	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return &GCSStorage{
		client:         client,
		projectID:      cfg.ProjectID,
		googleAccessID: cfg.GoogleAccessID,
		privateKey:     []byte(cfg.PrivateKey),
	}, nil
}

// Close closes the GCS client
func (s *GCSStorage) Close() error {
	return s.client.Close()
}

// EnsureBucket creates the bucket if it doesn't exist
func (s *GCSStorage) EnsureBucket(ctx context.Context, bucket string) error {
	_, err := s.client.Bucket(bucket).Attrs(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrBucketNotExist) {
		return fmt.Errorf("failed to check bucket: %w", err)
	}

	if err := s.client.Bucket(bucket).Create(ctx, s.projectID, nil); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}

	return nil
}

// signedURLOptions builds V4 signing options, using the explicit signing
// identity when configured and the client's own credentials otherwise.
func (s *GCSStorage) signedURLOptions(method, contentType string, ttl time.Duration) *storage.SignedURLOptions {
	opts := &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  method,
		Expires: time.Now().Add(ttl),
	}
	if contentType != "" {
		opts.ContentType = contentType
	}
	if s.googleAccessID != "" {
		opts.GoogleAccessID = s.googleAccessID
		opts.PrivateKey = s.privateKey
	}
	return opts
}

// PresignUpload returns a signed PUT URL for the object
func (s *GCSStorage) PresignUpload(ctx context.Context, bucket, key, contentType string, ttl time.Duration) (string, error) {
	url, err := s.client.Bucket(bucket).SignedURL(key, s.signedURLOptions("PUT", contentType, ttl))
	if err != nil {
		return "", fmt.Errorf("failed to presign upload: %w", err)
	}
	return url, nil
}

// PresignDownload returns a signed GET URL for the object
func (s *GCSStorage) PresignDownload(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	url, err := s.client.Bucket(bucket).SignedURL(key, s.signedURLOptions("GET", "", ttl))
	if err != nil {
		return "", fmt.Errorf("failed to presign download: %w", err)
	}
	return url, nil
}
