package cron

import (
	"context"
	"time"
)

// Job is one unit of scheduled work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type entry struct {
	job   Job
	every time.Duration
}

// Registry keeps jobs in registration order with an optional cadence each.
// A zero cadence means every cycle.
type Registry struct {
	entries []entry
}

func NewRegistry(jobs ...Job) *Registry {
	registry := &Registry{}
	for _, job := range jobs {
		registry.Register(job)
	}
	return registry
}

// Register adds job to every cycle, ignoring nil.
func (r *Registry) Register(job Job) {
	r.RegisterEvery(job, 0)
}

// RegisterEvery adds job to run at most once per every.
func (r *Registry) RegisterEvery(job Job, every time.Duration) {
	if job == nil {
		return
	}
	r.entries = append(r.entries, entry{job: job, every: max(every, 0)})
}

func (r *Registry) Jobs() []Job {
	jobs := make([]Job, 0, len(r.entries))
	for _, e := range r.entries {
		jobs = append(jobs, e.job)
	}
	return jobs
}

// Lookup finds a job by name for one-off runs.
func (r *Registry) Lookup(name string) (Job, bool) {
	for _, e := range r.entries {
		if e.job.Name() == name {
			return e.job, true
		}
	}
	return nil, false
}

// Every returns the cadence job was registered with.
func (r *Registry) Every(name string) time.Duration {
	for _, e := range r.entries {
		if e.job.Name() == name {
			return e.every
		}
	}
	return 0
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		names = append(names, e.job.Name())
	}
	return names
}
