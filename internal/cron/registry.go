package cron

import (
	"context"
	"fmt"
	"time"
)

// Job represents a scheduled task that runs inside the cron worker.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type scheduled struct {
	job     Job
	every   time.Duration
	lastRun time.Time
}

// Registry holds the worker's jobs and how often each one is due. A job with
// no cadence runs on every cycle. Cadence is tracked per worker process, so
// jobs that may run more often than their cadence after a failover must be
// idempotent (points expiry is, through its reference index).
type Registry struct {
	entries []*scheduled
	byName  map[string]*scheduled
}

// NewRegistry registers jobs that run on every cycle. Nil jobs are skipped.
func NewRegistry(jobs ...Job) *Registry {
	r := &Registry{byName: map[string]*scheduled{}}
	for _, job := range jobs {
		if job == nil {
			continue
		}
		_ = r.Register(job, 0)
	}
	return r
}

// Register adds a job that is due once every interval. Names must be unique.
func (r *Registry) Register(job Job, every time.Duration) error {
	if job == nil || job.Name() == "" {
		return fmt.Errorf("job with a name is required")
	}
	if _, exists := r.byName[job.Name()]; exists {
		return fmt.Errorf("job %q already registered", job.Name())
	}
	entry := &scheduled{job: job, every: every}
	r.entries = append(r.entries, entry)
	r.byName[job.Name()] = entry
	return nil
}

// Jobs returns the registered jobs in the order they were added.
func (r *Registry) Jobs() []Job {
	jobs := make([]Job, 0, len(r.entries))
	for _, entry := range r.entries {
		jobs = append(jobs, entry.job)
	}
	return jobs
}

// Due lists, in registration order, the jobs whose cadence has elapsed.
func (r *Registry) Due(now time.Time) []Job {
	var due []Job
	for _, entry := range r.entries {
		if entry.every <= 0 || entry.lastRun.IsZero() || !now.Before(entry.lastRun.Add(entry.every)) {
			due = append(due, entry.job)
		}
	}
	return due
}

// MarkRan starts the job's next interval. Failed runs are not marked so the
// job is retried on the next cycle.
func (r *Registry) MarkRan(name string, at time.Time) {
	if entry, ok := r.byName[name]; ok {
		entry.lastRun = at
	}
}
