package badger

import (
	"context"
	"testing"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/amitsh06/leadgen/internal/common"
	"github.com/amitsh06/leadgen/internal/interfaces"
	"github.com/amitsh06/leadgen/internal/models"
)

func newTestArchive(t *testing.T) *ArchiveStorage {
	t.Helper()

	db, err := NewBadgerDB(arbor.NewLogger(), &common.BadgerConfig{
		Path: t.TempDir() + "/archive",
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return NewArchiveStorage(db, arbor.NewLogger())
}

func archivedJob(id string, completedAt time.Time) *interfaces.ArchivedJob {
	return &interfaces.ArchivedJob{
		ID:          id,
		Query:       "coffee shops",
		Location:    "Seattle",
		Status:      models.JobStatusCompleted,
		Message:     "Done",
		CreatedAt:   completedAt.Add(-time.Minute),
		CompletedAt: completedAt,
		Businesses: []models.Business{
			{Name: "Some Cafe", PrimaryEmail: "info@somecafe.test"},
		},
	}
}

func TestArchive_SaveAndGet(t *testing.T) {
	archive := newTestArchive(t)
	ctx := context.Background()

	job := archivedJob("job_1", time.Now())
	if err := archive.Save(ctx, job); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := archive.Get(ctx, "job_1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Query != "coffee shops" || len(got.Businesses) != 1 {
		t.Errorf("archived job = %+v", got)
	}
	if got.Businesses[0].PrimaryEmail != "info@somecafe.test" {
		t.Errorf("business fields lost: %+v", got.Businesses[0])
	}
}

func TestArchive_GetMissing(t *testing.T) {
	archive := newTestArchive(t)

	_, err := archive.Get(context.Background(), "job_nope")
	if !models.IsNotFound(err) {
		t.Errorf("err = %v, want NotFoundError", err)
	}
}

func TestArchive_RejectsNonTerminalJobs(t *testing.T) {
	archive := newTestArchive(t)

	job := archivedJob("job_2", time.Now())
	job.Status = models.JobStatusRunning
	if err := archive.Save(context.Background(), job); err == nil {
		t.Error("expected error archiving a running job")
	}
}

func TestArchive_ListNewestFirst(t *testing.T) {
	archive := newTestArchive(t)
	ctx := context.Background()

	now := time.Now()
	for i, id := range []string{"job_old", "job_mid", "job_new"} {
		if err := archive.Save(ctx, archivedJob(id, now.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	jobs, err := archive.List(ctx, 2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("jobs = %d, want limit 2", len(jobs))
	}
	if jobs[0].ID != "job_new" || jobs[1].ID != "job_mid" {
		t.Errorf("order = %s, %s", jobs[0].ID, jobs[1].ID)
	}
}

func TestArchive_DeleteOlderThan(t *testing.T) {
	archive := newTestArchive(t)
	ctx := context.Background()

	now := time.Now()
	if err := archive.Save(ctx, archivedJob("job_stale", now.Add(-48*time.Hour))); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := archive.Save(ctx, archivedJob("job_fresh", now)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	deleted, err := archive.DeleteOlderThan(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteOlderThan failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	if _, err := archive.Get(ctx, "job_stale"); !models.IsNotFound(err) {
		t.Error("stale record still present")
	}
	if _, err := archive.Get(ctx, "job_fresh"); err != nil {
		t.Errorf("fresh record lost: %v", err)
	}
}
