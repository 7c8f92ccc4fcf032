package interfaces

import (
	"context"
	"time"

	"github.com/amitsh06/leadgen/internal/models"
)

// ArchivedJob is the durable record written for a finished job. Archived
// jobs are read-only history: they are never re-dispatched and serve
// downloads after the in-memory registry has been pruned.
type ArchivedJob struct {
	ID          string `badgerhold:"key"`
	Query       string
	Location    string
	Status      models.JobStatus
	Message     string
	Progress    float64
	Warnings    int
	Incomplete  bool
	CreatedAt   time.Time
	CompletedAt time.Time
	Businesses  []models.Business
}

// JobArchive persists terminal jobs and their results.
type JobArchive interface {
	// Save stores or overwrites the archive record for a finished job
	Save(ctx context.Context, job *ArchivedJob) error

	// Get returns the archived job or a models.NotFoundError
	Get(ctx context.Context, id string) (*ArchivedJob, error)

	// List returns archived jobs ordered newest first
	List(ctx context.Context, limit int) ([]*ArchivedJob, error)

	// DeleteOlderThan prunes archive records finished before the cutoff
	// and returns the number deleted
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)

	// Close releases the underlying database
	Close() error
}
