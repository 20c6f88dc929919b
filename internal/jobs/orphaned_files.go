// Package jobs contains periodic background maintenance tasks.
//
// orphaned_files.go implements the OrphanedFileReaper, which cleans up profile
// image file records whose upload was started but never became the user's
// current profile image (the client abandoned the upload, or the image was
// replaced by a newer one).
package jobs

import (
	"context"
	"log"
	"time"

	"github.com/orbit-cloud/orbit-backend/internal/db/repositories"
)

// OrphanedFileReaper periodically deletes unreferenced profile image records
type OrphanedFileReaper struct {
	fileRepo *repositories.FileRepository
	bucket   string
	interval time.Duration
	stopChan chan struct{}
}

// NewOrphanedFileReaper creates a new reaper for the given bucket. A
// non-positive interval falls back to hourly sweeps.
func NewOrphanedFileReaper(fileRepo *repositories.FileRepository, bucket string, interval time.Duration) *OrphanedFileReaper {
	if interval <= 0 {
		interval = time.Hour
	}

	return &OrphanedFileReaper{
		fileRepo: fileRepo,
		bucket:   bucket,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start begins the reaper loop. It blocks until Stop is called or the context
// is cancelled, so it should run in its own goroutine.
func (j *OrphanedFileReaper) Start(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	log.Printf("Orphaned file reaper started with interval: %v", j.interval)

	// Run immediately on start
	j.runSweep(ctx)

	for {
		select {
		case <-ticker.C:
			j.runSweep(ctx)
		case <-j.stopChan:
			log.Println("Orphaned file reaper stopped")
			return
		case <-ctx.Done():
			log.Println("Orphaned file reaper context cancelled")
			return
		}
	}
}

// Stop stops the reaper loop
func (j *OrphanedFileReaper) Stop() {
	close(j.stopChan)
}

// runSweep performs one cleanup pass
func (j *OrphanedFileReaper) runSweep(ctx context.Context) {
	deleted, err := j.fileRepo.DeleteUnreferencedInBucket(ctx, j.bucket)
	if err != nil {
		log.Printf("Orphaned file sweep failed: %v", err)
		return
	}

	if deleted > 0 {
		log.Printf("Orphaned file sweep completed: deleted %d records", deleted)
	}
}
