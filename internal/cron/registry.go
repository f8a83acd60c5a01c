package cron

import (
	"context"
	"fmt"
	"strings"
)

// Job represents a scheduled task that runs inside the cron worker.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds the worker's jobs in registration order, unique by name.
type Registry struct {
	jobs  []Job
	index map[string]int
}

func NewRegistry(jobs ...Job) (*Registry, error) {
	registry := &Registry{index: map[string]int{}}
	for _, job := range jobs {
		if err := registry.Register(job); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// Register adds a job. Nil jobs are ignored; duplicate names are rejected.
func (r *Registry) Register(job Job) error {
	if job == nil {
		return nil
	}
	name := strings.TrimSpace(job.Name())
	if name == "" {
		return fmt.Errorf("cron job name required")
	}
	if r.index == nil {
		r.index = map[string]int{}
	}
	if _, ok := r.index[name]; ok {
		return fmt.Errorf("cron job %q registered twice", name)
	}
	r.index[name] = len(r.jobs)
	r.jobs = append(r.jobs, job)
	return nil
}

// Jobs returns the registered jobs in the order they were added.
func (r *Registry) Jobs() []Job {
	jobs := make([]Job, len(r.jobs))
	copy(jobs, r.jobs)
	return jobs
}

// Names lists job names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.jobs))
	for _, job := range r.jobs {
		names = append(names, job.Name())
	}
	return names
}

// Select returns the named jobs in registration order, or every job when
// names is empty.
func (r *Registry) Select(names ...string) ([]Job, error) {
	if len(names) == 0 {
		return r.Jobs(), nil
	}
	wanted := make(map[string]struct{}, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := r.index[name]; !ok {
			return nil, fmt.Errorf("unknown cron job %q (have %s)", name, strings.Join(r.Names(), ", "))
		}
		wanted[name] = struct{}{}
	}
	selected := make([]Job, 0, len(wanted))
	for _, job := range r.jobs {
		if _, ok := wanted[job.Name()]; ok {
			selected = append(selected, job)
		}
	}
	return selected, nil
}
