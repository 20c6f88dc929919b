// Package azure implements the Azure Blob Storage presigning backend. Uploads
// and downloads are served via time-limited SAS (Shared Access Signature) URLs
// generated on demand rather than proxied through the API — object bytes never
// touch the service's network path.
package azure

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/sas"

	"github.com/orbit-cloud/orbit-backend/internal/config"
	"github.com/orbit-cloud/orbit-backend/internal/storage"
)

func init() {
	// Register Azure storage backend
	storage.Register("azure", func(cfg *config.Config) (storage.Storage, error) {
		return New(&cfg.Storage.Azure)
	})
}

// AzureStorage implements the Storage interface for Azure Blob Storage.
// Buckets map to containers; keys map to blob names.
type AzureStorage struct {
	client      *azblob.Client
	credential  *azblob.SharedKeyCredential
	accountName string
}

// New creates a new Azure Blob Storage presigning backend
func New(cfg *config.AzureStorageConfig) (*AzureStorage, error) {
	if cfg.AccountName == "" {
		return nil, fmt.Errorf("azure storage account name is required")
	}
	if cfg.AccountKey == "" {
		return nil, fmt.Errorf("azure storage account key is required")
	}

	credential, err := azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}

	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", cfg.AccountName)

	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure Blob client: %w", err)
	}

	return &AzureStorage{
		client:      client,
		credential:  credential,
		accountName: cfg.AccountName,
	}, nil
}

// EnsureBucket creates the container if it doesn't exist
func (s *AzureStorage) EnsureBucket(ctx context.Context, bucket string) error {
	_, err := s.client.CreateContainer(ctx, bucket, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
			return nil
		}
		return fmt.Errorf("failed to create container: %w", err)
	}
	return nil
}

// presign builds a SAS URL for the blob with the given permissions
func (s *AzureStorage) presign(bucket, key string, permissions sas.BlobPermissions, ttl time.Duration) (string, error) {
	startTime := time.Now().UTC().Add(-5 * time.Minute) // Allow for clock skew
	expiryTime := time.Now().UTC().Add(ttl)

	sasQueryParams, err := sas.BlobSignatureValues{
		Protocol:      sas.ProtocolHTTPS,
		StartTime:     startTime,
		ExpiryTime:    expiryTime,
		Permissions:   permissions.String(),
		ContainerName: bucket,
		BlobName:      key,
	}.SignWithSharedKey(s.credential)
	if err != nil {
		return "", fmt.Errorf("failed to generate SAS token: %w", err)
	}

	blobURL := fmt.Sprintf("https://%s.blob.core.windows.net/%s/%s",
		s.accountName, bucket, url.PathEscape(key))

	return fmt.Sprintf("%s?%s", blobURL, sasQueryParams.Encode()), nil
}

// PresignUpload returns a SAS URL that accepts a PUT of the blob. Azure does
// not bind the signature to a Content-Type, so the parameter is unused here.
func (s *AzureStorage) PresignUpload(ctx context.Context, bucket, key, contentType string, ttl time.Duration) (string, error) {
	return s.presign(bucket, key, sas.BlobPermissions{Create: true, Write: true}, ttl)
}

// PresignDownload returns a SAS URL that serves a GET of the blob
func (s *AzureStorage) PresignDownload(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	return s.presign(bucket, key, sas.BlobPermissions{Read: true}, ttl)
}
