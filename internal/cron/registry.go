package cron

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Job names, also used as the metrics "job" label.
const (
	JobCartExpiry      = "cart-expiry"
	JobOutboxRetention = "outbox-retention"
)

// Job is one unit of cron-worker work. Jobs of a cycle run one after another
// under the worker lock.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds jobs by unique name and remembers registration order, which
// is the order a cycle runs them in.
type Registry struct {
	order  []Job
	byName map[string]Job
}

// NewRegistry registers jobs in the given order.
func NewRegistry(jobs ...Job) (*Registry, error) {
	r := &Registry{byName: make(map[string]Job, len(jobs))}
	for _, job := range jobs {
		if err := r.Register(job); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register appends job. Names must be unique.
func (r *Registry) Register(job Job) error {
	if job == nil {
		return errors.New("cron job is nil")
	}
	name := strings.TrimSpace(job.Name())
	if name == "" {
		return errors.New("cron job name is required")
	}
	if _, dup := r.byName[name]; dup {
		return fmt.Errorf("cron job %q registered twice", name)
	}
	r.byName[name] = job
	r.order = append(r.order, job)
	return nil
}

func (r *Registry) Jobs() []Job {
	return slices.Clone(r.order)
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.order))
	for _, job := range r.order {
		names = append(names, job.Name())
	}
	return names
}

// Lookup finds a job by name.
func (r *Registry) Lookup(name string) (Job, bool) {
	job, ok := r.byName[strings.TrimSpace(name)]
	return job, ok
}
