package jobs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/amitsh06/leadgen/internal/common"
	"github.com/amitsh06/leadgen/internal/models"
)

func newTestScheduler(t *testing.T, maxConcurrent int, scraper *stubScraper) (*Scheduler, *Registry) {
	t.Helper()

	config := common.NewDefaultConfig()
	config.Scheduler.MaxConcurrent = maxConcurrent
	config.Scheduler.MaxResults = 100

	registry := NewRegistry()
	runner := NewRunner(scraper, &stubEmailFinder{}, &stubTemplates{}, nil, arbor.NewLogger())
	scheduler := NewScheduler(registry, runner, config, arbor.NewLogger())
	t.Cleanup(scheduler.Stop)

	return scheduler, registry
}

func waitForStatus(t *testing.T, job *models.Job, want models.JobStatus) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if job.Status() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s stuck in %s, want %s", job.ID, job.Status(), want)
}

func TestScheduler_SubmitRejectsInvalidRequests(t *testing.T) {
	scheduler, registry := newTestScheduler(t, 2, &stubScraper{})

	tests := []struct {
		name string
		req  ScrapeRequest
	}{
		{"missing query", ScrapeRequest{Location: "Austin", MaxResults: 10}},
		{"missing location", ScrapeRequest{Query: "plumbers", MaxResults: 10}},
		{"whitespace query", ScrapeRequest{Query: "   ", Location: "Austin", MaxResults: 10}},
		{"negative max", ScrapeRequest{Query: "plumbers", Location: "Austin", MaxResults: -5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := scheduler.Submit(tt.req)
			require.Error(t, err)

			var verr *models.ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}

	// Invalid submissions never create jobs
	assert.Equal(t, 0, registry.Count())
}

func TestScheduler_MaxResultsCeiling(t *testing.T) {
	scheduler, _ := newTestScheduler(t, 2, &stubScraper{})

	_, err := scheduler.Submit(ScrapeRequest{Query: "plumbers", Location: "Austin", MaxResults: 500})
	require.Error(t, err)

	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "max_results", verr.Field)
}

func TestScheduler_SubmitReturnsImmediately(t *testing.T) {
	block := make(chan struct{})
	scraper := &stubScraper{businesses: testBusinesses(1), block: block}
	scheduler, registry := newTestScheduler(t, 1, scraper)

	start := time.Now()
	job, err := scheduler.Submit(ScrapeRequest{Query: "cafes", Location: "Portland", MaxResults: 5})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second, "Submit must not wait for the pipeline")

	// The job is visible in the registry right away
	got, err := registry.Get(job.ID)
	require.NoError(t, err)
	assert.Contains(t, []models.JobStatus{models.JobStatusQueued, models.JobStatusRunning}, got.Status())

	close(block)
	waitForStatus(t, job, models.JobStatusCompleted)
}

func TestScheduler_ConcurrencyBound(t *testing.T) {
	const workers = 2

	block := make(chan struct{})
	scraper := &stubScraper{businesses: testBusinesses(1), block: block}
	scheduler, _ := newTestScheduler(t, workers, scraper)

	var jobs []*models.Job
	for i := 0; i < workers+2; i++ {
		job, err := scheduler.Submit(ScrapeRequest{Query: "gyms", Location: "Miami", MaxResults: 5})
		require.NoError(t, err)
		jobs = append(jobs, job)
	}

	// Give dispatchers time to claim slots
	time.Sleep(100 * time.Millisecond)

	running, queued := 0, 0
	for _, job := range jobs {
		switch job.Status() {
		case models.JobStatusRunning:
			running++
		case models.JobStatusQueued:
			queued++
		}
	}
	assert.Equal(t, workers, running, "running jobs must match worker slots")
	assert.Equal(t, 2, queued, "excess jobs must stay queued")

	close(block)
	for _, job := range jobs {
		waitForStatus(t, job, models.JobStatusCompleted)
	}
}

func TestScheduler_CancelQueuedJob(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	scraper := &stubScraper{businesses: testBusinesses(1), block: block}
	scheduler, _ := newTestScheduler(t, 1, scraper)

	// First job holds the only slot; second stays queued
	first, err := scheduler.Submit(ScrapeRequest{Query: "bars", Location: "Denver", MaxResults: 5})
	require.NoError(t, err)
	second, err := scheduler.Submit(ScrapeRequest{Query: "bars", Location: "Denver", MaxResults: 5})
	require.NoError(t, err)

	waitForStatus(t, first, models.JobStatusRunning)

	require.NoError(t, scheduler.Cancel(second.ID))
	waitForStatus(t, second, models.JobStatusFailed)
	assert.Equal(t, "cancelled", second.Snapshot().Message)
}

func TestScheduler_CancelUnknownJob(t *testing.T) {
	scheduler, _ := newTestScheduler(t, 1, &stubScraper{})

	err := scheduler.Cancel("job_does_not_exist")
	assert.True(t, models.IsNotFound(err))
}

func TestRegistry_ListOrderAndPrune(t *testing.T) {
	registry := NewRegistry()

	a := models.NewJob("job-a", "q", "l", 5, models.JobOptions{})
	time.Sleep(2 * time.Millisecond)
	b := models.NewJob("job-b", "q", "l", 5, models.JobOptions{})
	registry.Add(b)
	registry.Add(a)

	views := registry.List()
	require.Len(t, views, 2)
	assert.Equal(t, "job-a", views[0].ID, "list must be ordered by creation time ascending")
	assert.Equal(t, "job-b", views[1].ID)

	// Only terminal jobs past the cutoff are pruned
	require.NoError(t, a.MarkRunning())
	a.MarkCompleted()
	time.Sleep(2 * time.Millisecond)

	removed := registry.PruneFinished(time.Now())
	assert.Equal(t, []string{"job-a"}, removed)
	assert.Equal(t, 1, registry.Count())

	removed = registry.PruneFinished(time.Now())
	assert.Empty(t, removed, "queued job must survive pruning")
}
