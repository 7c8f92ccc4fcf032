package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/amitsh06/leadgen/internal/interfaces"
	"github.com/amitsh06/leadgen/internal/models"
)

// ArchiveStorage persists finished jobs in Badger. Implements
// interfaces.JobArchive. Archived records are write-once history used to
// serve downloads after the in-memory registry is pruned.
type ArchiveStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewArchiveStorage creates the archive on an open connection
func NewArchiveStorage(db *BadgerDB, logger arbor.ILogger) *ArchiveStorage {
	return &ArchiveStorage{
		db:     db,
		logger: logger,
	}
}

// Save stores or overwrites the archive record for a finished job
func (s *ArchiveStorage) Save(ctx context.Context, job *interfaces.ArchivedJob) error {
	if job.ID == "" {
		return fmt.Errorf("archived job requires an ID")
	}
	if !job.Status.IsTerminal() {
		return fmt.Errorf("job %s is not terminal (%s), refusing to archive", job.ID, job.Status)
	}

	if err := s.db.Store().Upsert(job.ID, job); err != nil {
		return fmt.Errorf("failed to archive job %s: %w", job.ID, err)
	}

	s.logger.Debug().
		Str("job_id", job.ID).
		Int("businesses", len(job.Businesses)).
		Bool("incomplete", job.Incomplete).
		Msg("Job archived")
	return nil
}

// Get returns the archived job or a models.NotFoundError
func (s *ArchiveStorage) Get(ctx context.Context, id string) (*interfaces.ArchivedJob, error) {
	var job interfaces.ArchivedJob
	if err := s.db.Store().Get(id, &job); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, &models.NotFoundError{ID: id}
		}
		return nil, fmt.Errorf("failed to read archived job %s: %w", id, err)
	}
	return &job, nil
}

// List returns archived jobs ordered newest first
func (s *ArchiveStorage) List(ctx context.Context, limit int) ([]*interfaces.ArchivedJob, error) {
	query := badgerhold.Where("ID").Ne("").SortBy("CompletedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var jobs []*interfaces.ArchivedJob
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to list archived jobs: %w", err)
	}
	return jobs, nil
}

// DeleteOlderThan prunes archive records finished before the cutoff
func (s *ArchiveStorage) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	query := badgerhold.Where("CompletedAt").Lt(cutoff)

	var stale []*interfaces.ArchivedJob
	if err := s.db.Store().Find(&stale, query); err != nil {
		return 0, fmt.Errorf("failed to find stale archive records: %w", err)
	}

	deleted := 0
	for _, job := range stale {
		if err := s.db.Store().Delete(job.ID, &interfaces.ArchivedJob{}); err != nil {
			s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to delete archive record")
			continue
		}
		deleted++
	}

	if deleted > 0 {
		s.logger.Info().Int("deleted", deleted).Msg("Pruned archive records")
	}
	return deleted, nil
}

// Close closes the underlying database
func (s *ArchiveStorage) Close() error {
	return s.db.Close()
}
