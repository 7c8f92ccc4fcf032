package jobs

import (
	"sort"
	"sync"
	"time"

	"github.com/amitsh06/leadgen/internal/models"
)

// Registry is the in-memory catalog of scrape jobs. Job records live here
// from submission until retention pruning; lookups after that fall through
// to the archive.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*models.Job
}

// NewRegistry creates an empty job registry
func NewRegistry() *Registry {
	return &Registry{
		jobs: make(map[string]*models.Job),
	}
}

// Add registers a job under its ID
func (r *Registry) Add(job *models.Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = job
}

// Get returns the job for id or a NotFoundError
func (r *Registry) Get(id string) (*models.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, &models.NotFoundError{ID: id}
	}
	return job, nil
}

// List returns snapshots of all jobs ordered by creation time ascending.
// Ties are broken by ID so the order is stable.
func (r *Registry) List() []models.JobView {
	r.mu.RLock()
	views := make([]models.JobView, 0, len(r.jobs))
	for _, job := range r.jobs {
		views = append(views, job.Snapshot())
	}
	r.mu.RUnlock()

	sort.Slice(views, func(i, j int) bool {
		if views[i].CreatedAt.Equal(views[j].CreatedAt) {
			return views[i].ID < views[j].ID
		}
		return views[i].CreatedAt.Before(views[j].CreatedAt)
	})
	return views
}

// Count returns the number of registered jobs
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// PruneFinished removes terminal jobs that completed before the cutoff.
// Running and queued jobs are never pruned. Returns the removed IDs.
func (r *Registry) PruneFinished(cutoff time.Time) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []string
	for id, job := range r.jobs {
		view := job.Snapshot()
		if !view.Status.IsTerminal() {
			continue
		}
		if view.CompletedAt != nil && view.CompletedAt.Before(cutoff) {
			delete(r.jobs, id)
			removed = append(removed, id)
		}
	}
	return removed
}
