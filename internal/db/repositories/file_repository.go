// file_repository.go implements FileRepository for object metadata records.
// The repository stores metadata only; object bytes live in the configured
// storage backend and move via presigned URLs.
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/orbit-cloud/orbit-backend/internal/db/models"
)

// FileRepository handles database operations for file metadata
type FileRepository struct {
	db *sqlx.DB
}

// NewFileRepository creates a new file repository
func NewFileRepository(db *sqlx.DB) *FileRepository {
	return &FileRepository{db: db}
}

// Create inserts a file metadata record, generating its prefixed ID
func (r *FileRepository) Create(ctx context.Context, file *models.File) error {
	file.ID = models.NewFileID()

	query := `
		INSERT INTO files (id, filename, filetype, bucket, location)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query,
		file.ID,
		file.Filename,
		file.Filetype,
		file.Bucket,
		file.Location,
	)
	if err != nil {
		return fmt.Errorf("failed to create file record: %w", err)
	}

	return nil
}

// GetByID retrieves a file record by ID. Returns (nil, nil) when not found.
func (r *FileRepository) GetByID(ctx context.Context, fileID string) (*models.File, error) {
	query := `
		SELECT id, filename, filetype, bucket, location
		FROM files
		WHERE id = $1
	`

	file := &models.File{}
	err := r.db.GetContext(ctx, file, query, fileID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file: %w", err)
	}

	return file, nil
}

// List retrieves a paginated list of file records
func (r *FileRepository) List(ctx context.Context, limit, offset int) ([]*models.File, error) {
	query := `
		SELECT id, filename, filetype, bucket, location
		FROM files
		ORDER BY id
		LIMIT $1 OFFSET $2
	`

	files := make([]*models.File, 0)
	if err := r.db.SelectContext(ctx, &files, query, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	return files, nil
}

// Count returns the total number of file records
func (r *FileRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM files`); err != nil {
		return 0, fmt.Errorf("failed to count files: %w", err)
	}
	return count, nil
}

// DeleteUnreferencedInBucket deletes file records in the given bucket whose ID
// does not appear in any user's profile_image_url. Used by the orphaned file
// reaper to clean up records left behind by abandoned profile image uploads.
func (r *FileRepository) DeleteUnreferencedInBucket(ctx context.Context, bucket string) (int64, error) {
	query := `
		DELETE FROM files f
		WHERE f.bucket = $1
		  AND NOT EXISTS (
			SELECT 1 FROM users u
			WHERE u.profile_image_url IS NOT NULL
			  AND u.profile_image_url LIKE '%' || f.id || '%'
		  )
	`

	res, err := r.db.ExecContext(ctx, query, bucket)
	if err != nil {
		return 0, fmt.Errorf("failed to delete unreferenced files: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted files: %w", err)
	}
	return deleted, nil
}

// Update rewrites a file record's mutable metadata. The ID is immutable.
func (r *FileRepository) Update(ctx context.Context, file *models.File) error {
	query := `
		UPDATE files
		SET filename = $2, filetype = $3, bucket = $4, location = $5
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query,
		file.ID,
		file.Filename,
		file.Filetype,
		file.Bucket,
		file.Location,
	)
	if err != nil {
		return fmt.Errorf("failed to update file: %w", err)
	}

	return nil
}

// Delete removes a file metadata record. The stored object is not touched;
// object lifecycle is the bucket's concern.
func (r *FileRepository) Delete(ctx context.Context, fileID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE id = $1`, fileID); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
