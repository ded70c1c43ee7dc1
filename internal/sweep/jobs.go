package sweep

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

// ErrSweepRunning is returned when a sweep is requested while one is already
// in flight. The caller gets the active job instead of a second sweep.
var ErrSweepRunning = eris.New("sweep: already running")

// JobStatus is the lifecycle state of a sweep job.
type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobCanceled  JobStatus = "canceled"
)

// Job is a point-in-time snapshot of one sweep's progress.
type Job struct {
	ID             string    `json:"id"`
	Status         JobStatus `json:"status"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at,omitzero"`
	Total          int       `json:"total_diseases"`
	Processed      int       `json:"processed"`
	Succeeded      int       `json:"succeeded"`
	Failed         int       `json:"failed"`
	CurrentDisease string    `json:"current_disease,omitempty"`
	Error          string    `json:"error,omitempty"`
}

// registry tracks sweep jobs and enforces the single-active-sweep rule.
type registry struct {
	mu     sync.Mutex
	jobs   map[string]*Job
	order  []string
	active string
	cancel func()
}

func newRegistry() *registry {
	return &registry{jobs: make(map[string]*Job)}
}

// begin registers a new running job, or fails with ErrSweepRunning and the
// active job's snapshot.
func (r *registry) begin(total int, cancel func()) (Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != "" {
		return *r.jobs[r.active], ErrSweepRunning
	}
	job := &Job{
		ID:        uuid.NewString(),
		Status:    JobRunning,
		StartedAt: time.Now(),
		Total:     total,
	}
	r.jobs[job.ID] = job
	r.order = append(r.order, job.ID)
	r.active = job.ID
	r.cancel = cancel
	return *job, nil
}

// progress records the outcome of one disease within the active job.
func (r *registry) progress(id, diseaseID string, failed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return
	}
	job.Processed++
	if failed {
		job.Failed++
	} else {
		job.Succeeded++
	}
	if job.CurrentDisease == diseaseID {
		job.CurrentDisease = ""
	}
}

// working marks the disease a worker has just started on.
func (r *registry) working(id, diseaseID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job, ok := r.jobs[id]; ok {
		job.CurrentDisease = diseaseID
	}
}

// finish closes the active job with the given terminal status.
func (r *registry) finish(id string, status JobStatus, errMsg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return
	}
	job.Status = status
	job.Error = errMsg
	job.FinishedAt = time.Now()
	job.CurrentDisease = ""
	if r.active == id {
		r.active = ""
		r.cancel = nil
	}
}

// cancelActive requests cancellation of the running sweep. Returns false when
// no sweep is active.
func (r *registry) cancelActive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == "" || r.cancel == nil {
		return false
	}
	r.cancel()
	return true
}

func (r *registry) job(id string) (Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

func (r *registry) activeJob() (Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == "" {
		return Job{}, false
	}
	return *r.jobs[r.active], true
}

func (r *registry) all() []Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Job, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.jobs[id])
	}
	return out
}
