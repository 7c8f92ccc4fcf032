package models

import (
	"fmt"
	"sync"
	"time"
)

// JobStatus represents the lifecycle state of a scrape job
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// IsTerminal returns true for states a job can never leave
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// rank orders statuses so transitions can only move forward
func (s JobStatus) rank() int {
	switch s {
	case JobStatusQueued:
		return 0
	case JobStatusRunning:
		return 1
	case JobStatusCompleted, JobStatusFailed:
		return 2
	}
	return -1
}

// JobOptions are the per-request pipeline switches
type JobOptions struct {
	FindEmails        bool `json:"find_emails"`
	GenerateTemplates bool `json:"generate_templates"`
}

// Job tracks one asynchronous scrape request. All mutation goes through
// the synchronized methods; direct field writes after construction are
// not allowed. Progress never decreases and terminal states are final.
type Job struct {
	mu sync.RWMutex

	ID        string
	Query     string
	Location  string
	MaxCount  int
	Options   JobOptions
	CreatedAt time.Time

	status      JobStatus
	progress    float64
	message     string
	warnings    int
	startedAt   time.Time
	completedAt time.Time

	results *ResultStore
}

// NewJob constructs a queued job with an empty result store
func NewJob(id, query, location string, maxCount int, opts JobOptions) *Job {
	return &Job{
		ID:        id,
		Query:     query,
		Location:  location,
		MaxCount:  maxCount,
		Options:   opts,
		CreatedAt: time.Now(),
		status:    JobStatusQueued,
		message:   "Queued",
		results:   NewResultStore(),
	}
}

// Results returns the job's result store
func (j *Job) Results() *ResultStore {
	return j.results
}

// Status returns the current lifecycle state
func (j *Job) Status() JobStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.status
}

// MarkRunning transitions queued -> running. Returns an error if the job
// already left the queued state.
func (j *Job) MarkRunning() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.status != JobStatusQueued {
		return fmt.Errorf("job %s cannot start from state %s", j.ID, j.status)
	}
	j.status = JobStatusRunning
	j.startedAt = time.Now()
	j.message = "Starting"
	return nil
}

// SetProgress updates the completion fraction and status message.
// Progress is clamped to [0,1] and never moves backwards; updates after
// a terminal state are ignored.
func (j *Job) SetProgress(progress float64, message string) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.status.IsTerminal() {
		return
	}
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	if progress > j.progress {
		j.progress = progress
	}
	if message != "" {
		j.message = message
	}
}

// AddWarning counts a non-fatal per-item failure
func (j *Job) AddWarning() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.warnings++
}

// MarkCompleted transitions to the completed terminal state with full progress
func (j *Job) MarkCompleted() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.status.IsTerminal() {
		return
	}
	j.status = JobStatusCompleted
	j.progress = 1
	j.message = "Done"
	j.completedAt = time.Now()
}

// MarkFailed transitions to the failed terminal state, keeping whatever
// progress and results had accumulated.
func (j *Job) MarkFailed(message string) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.status.IsTerminal() {
		return
	}
	j.status = JobStatusFailed
	if message != "" {
		j.message = message
	}
	j.completedAt = time.Now()
}

// JobView is an immutable snapshot of a job for API responses
type JobView struct {
	ID          string     `json:"job_id"`
	Query       string     `json:"query"`
	Location    string     `json:"location"`
	MaxCount    int        `json:"max_results"`
	Options     JobOptions `json:"options"`
	Status      JobStatus  `json:"status"`
	Progress    float64    `json:"progress"`
	Message     string     `json:"message"`
	Warnings    int        `json:"warnings,omitempty"`
	ResultCount int        `json:"result_count"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Snapshot returns a consistent point-in-time view of the job
func (j *Job) Snapshot() JobView {
	j.mu.RLock()
	defer j.mu.RUnlock()

	view := JobView{
		ID:          j.ID,
		Query:       j.Query,
		Location:    j.Location,
		MaxCount:    j.MaxCount,
		Options:     j.Options,
		Status:      j.status,
		Progress:    j.progress,
		Message:     j.message,
		Warnings:    j.warnings,
		ResultCount: j.results.Len(),
		CreatedAt:   j.CreatedAt,
	}
	if !j.startedAt.IsZero() {
		t := j.startedAt
		view.StartedAt = &t
	}
	if !j.completedAt.IsZero() {
		t := j.completedAt
		view.CompletedAt = &t
	}
	return view
}
