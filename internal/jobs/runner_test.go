package jobs

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/amitsh06/leadgen/internal/interfaces"
	"github.com/amitsh06/leadgen/internal/models"
	"github.com/ternarybob/arbor"
)

type stubScraper struct {
	businesses []models.Business
	err        error
	block      chan struct{} // when set, Scrape waits until closed
}

func (s *stubScraper) Scrape(ctx context.Context, query, location string, maxCount int, progress interfaces.ProgressFunc) ([]models.Business, error) {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	if progress != nil {
		progress(1, "Listings collected")
	}
	out := s.businesses
	if maxCount < len(out) {
		out = out[:maxCount]
	}
	return out, nil
}

type stubEmailFinder struct {
	// failFor names businesses whose lookup should error
	failFor map[string]bool
}

func (f *stubEmailFinder) FindEmails(ctx context.Context, b models.Business) ([]string, string, error) {
	if f.failFor[b.Name] {
		return nil, "", fmt.Errorf("connection refused")
	}
	email := "info@" + strings.ToLower(strings.ReplaceAll(b.Name, " ", "")) + ".com"
	return []string{email}, email, nil
}

type stubTemplates struct {
	err error
}

func (g *stubTemplates) Generate(ctx context.Context, b models.Business) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	return "Hi " + b.Name + ", quick question about your business.", nil
}

func testBusinesses(n int) []models.Business {
	out := make([]models.Business, n)
	for i := range out {
		out[i] = models.Business{
			Name:    fmt.Sprintf("Business %d", i+1),
			Website: fmt.Sprintf("https://business%d.example.com", i+1),
		}
	}
	return out
}

func newTestRunner(scraper interfaces.ListingScraper, emails interfaces.EmailFinder, templates interfaces.TemplateGenerator) *Runner {
	return NewRunner(scraper, emails, templates, nil, arbor.NewLogger())
}

func TestRunner_FullPipelineSuccess(t *testing.T) {
	scraper := &stubScraper{businesses: testBusinesses(5)}
	emails := &stubEmailFinder{failFor: map[string]bool{"Business 2": true, "Business 4": true}}
	runner := newTestRunner(scraper, emails, &stubTemplates{})

	job := models.NewJob("job-1", "coffee shops", "Seattle", 10, models.JobOptions{
		FindEmails:        true,
		GenerateTemplates: false,
	})
	runner.Run(context.Background(), job)

	view := job.Snapshot()
	if view.Status != models.JobStatusCompleted {
		t.Fatalf("status = %s (%s), want completed", view.Status, view.Message)
	}
	if view.Progress != 1 {
		t.Errorf("progress = %v, want 1", view.Progress)
	}
	if view.Message != "Done" {
		t.Errorf("message = %q, want Done", view.Message)
	}
	if view.Warnings != 2 {
		t.Errorf("warnings = %d, want 2 for the failed lookups", view.Warnings)
	}

	withEmail := 0
	for _, b := range job.Results().Snapshot() {
		if b.PrimaryEmail != "" {
			withEmail++
		}
	}
	if withEmail != 3 {
		t.Errorf("businesses with email = %d, want 3", withEmail)
	}
}

func TestRunner_EmptyResultsIsSuccess(t *testing.T) {
	runner := newTestRunner(&stubScraper{}, &stubEmailFinder{}, &stubTemplates{})

	job := models.NewJob("job-2", "submarine dealers", "Kansas", 20, models.JobOptions{
		FindEmails:        true,
		GenerateTemplates: true,
	})
	runner.Run(context.Background(), job)

	view := job.Snapshot()
	if view.Status != models.JobStatusCompleted {
		t.Fatalf("status = %s, want completed for empty results", view.Status)
	}
	if view.ResultCount != 0 {
		t.Errorf("result count = %d, want 0", view.ResultCount)
	}
	if view.Progress != 1 {
		t.Errorf("progress = %v, want 1", view.Progress)
	}
}

func TestRunner_ScrapeFailureIsFatal(t *testing.T) {
	scraper := &stubScraper{err: fmt.Errorf("navigation blocked by challenge page")}
	runner := newTestRunner(scraper, &stubEmailFinder{}, &stubTemplates{})

	job := models.NewJob("job-3", "plumbers", "Boston", 10, models.JobOptions{FindEmails: true})
	runner.Run(context.Background(), job)

	view := job.Snapshot()
	if view.Status != models.JobStatusFailed {
		t.Fatalf("status = %s, want failed", view.Status)
	}
	if !strings.Contains(view.Message, "scrape stage failed") {
		t.Errorf("message = %q, want scrape stage failure", view.Message)
	}
}

func TestRunner_TemplatesForEveryBusiness(t *testing.T) {
	// Businesses without a discovered email still get an outreach template
	scraper := &stubScraper{businesses: testBusinesses(3)}
	emails := &stubEmailFinder{failFor: map[string]bool{
		"Business 1": true,
		"Business 2": true,
		"Business 3": true,
	}}
	runner := newTestRunner(scraper, emails, &stubTemplates{})

	job := models.NewJob("job-4", "bakeries", "Chicago", 10, models.JobOptions{
		FindEmails:        true,
		GenerateTemplates: true,
	})
	runner.Run(context.Background(), job)

	if got := job.Status(); got != models.JobStatusCompleted {
		t.Fatalf("status = %s, want completed", got)
	}
	for _, b := range job.Results().Snapshot() {
		if b.EmailTemplate == "" {
			t.Errorf("business %q has no template despite missing email", b.Name)
		}
	}
}

func TestRunner_ProgressNeverRegresses(t *testing.T) {
	scraper := &stubScraper{businesses: testBusinesses(4)}
	runner := newTestRunner(scraper, &stubEmailFinder{}, &stubTemplates{})

	job := models.NewJob("job-5", "gyms", "Miami", 10, models.JobOptions{
		FindEmails:        true,
		GenerateTemplates: true,
	})

	var observed []float64
	done := make(chan struct{})
	go func() {
		defer close(done)
		runner.Run(context.Background(), job)
	}()

	sampling := true
	for sampling {
		observed = append(observed, job.Snapshot().Progress)
		select {
		case <-done:
			observed = append(observed, job.Snapshot().Progress)
			sampling = false
		case <-time.After(time.Millisecond):
		}
	}

	for i := 1; i < len(observed); i++ {
		if observed[i] < observed[i-1] {
			t.Fatalf("progress regressed: %v -> %v at sample %d", observed[i-1], observed[i], i)
		}
	}
	if final := observed[len(observed)-1]; final != 1 {
		t.Errorf("final progress = %v, want 1", final)
	}
}

func TestRunner_CancellationStopsPipeline(t *testing.T) {
	scraper := &stubScraper{businesses: testBusinesses(3)}
	runner := newTestRunner(scraper, &stubEmailFinder{}, &stubTemplates{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	job := models.NewJob("job-6", "florists", "Phoenix", 10, models.JobOptions{FindEmails: true})
	runner.Run(ctx, job)

	view := job.Snapshot()
	if view.Status != models.JobStatusFailed {
		t.Fatalf("status = %s, want failed after cancellation", view.Status)
	}
	if view.Message != "cancelled" {
		t.Errorf("message = %q, want cancelled", view.Message)
	}
}

type memoryArchive struct {
	mu    sync.Mutex
	saved map[string]*interfaces.ArchivedJob
}

func newMemoryArchive() *memoryArchive {
	return &memoryArchive{saved: make(map[string]*interfaces.ArchivedJob)}
}

func (a *memoryArchive) Save(ctx context.Context, job *interfaces.ArchivedJob) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.saved[job.ID] = job
	return nil
}

func (a *memoryArchive) Get(ctx context.Context, id string) (*interfaces.ArchivedJob, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if job, ok := a.saved[id]; ok {
		return job, nil
	}
	return nil, &models.NotFoundError{ID: id}
}

func (a *memoryArchive) List(ctx context.Context, limit int) ([]*interfaces.ArchivedJob, error) {
	return nil, nil
}

func (a *memoryArchive) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	return 0, nil
}

func (a *memoryArchive) Close() error { return nil }

func TestRunner_ArchivesTerminalJobs(t *testing.T) {
	archive := newMemoryArchive()
	scraper := &stubScraper{businesses: testBusinesses(2)}
	runner := NewRunner(scraper, &stubEmailFinder{}, &stubTemplates{}, archive, arbor.NewLogger())

	job := models.NewJob("job-7", "barbers", "Dallas", 10, models.JobOptions{})
	runner.Run(context.Background(), job)

	record, err := archive.Get(context.Background(), "job-7")
	if err != nil {
		t.Fatalf("archived job not found: %v", err)
	}
	if record.Incomplete {
		t.Error("completed job archived as incomplete")
	}
	if len(record.Businesses) != 2 {
		t.Errorf("archived %d businesses, want 2", len(record.Businesses))
	}

	// Failed jobs archive too, flagged incomplete
	failing := NewRunner(&stubScraper{err: fmt.Errorf("timeout")}, &stubEmailFinder{}, &stubTemplates{}, archive, arbor.NewLogger())
	failedJob := models.NewJob("job-8", "barbers", "Dallas", 10, models.JobOptions{})
	failing.Run(context.Background(), failedJob)

	record, err = archive.Get(context.Background(), "job-8")
	if err != nil {
		t.Fatalf("failed job not archived: %v", err)
	}
	if !record.Incomplete {
		t.Error("failed job not flagged incomplete")
	}
}
