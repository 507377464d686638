package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/groupcart-backend/pkg/logger"
	"github.com/angelmondragon/groupcart-backend/pkg/metrics"
	"go.uber.org/multierr"
)

const defaultInterval = time.Minute

// ErrLeaseLost aborts a cycle whose worker lock expired between jobs.
var ErrLeaseLost = errors.New("cron lock lease lost")

type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.CronJobMetrics
	Interval time.Duration
}

// Service runs the registered jobs once per interval, skipping cycles while
// another worker holds the lock.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	lock     Lock
	metrics  *metrics.CronJobMetrics
	interval time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	registry := params.Registry
	if registry == nil {
		registry, _ = NewRegistry()
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Service{
		logg:     params.Logger,
		registry: registry,
		lock:     params.Lock,
		metrics:  params.Metrics,
		interval: interval,
	}, nil
}

// Run ticks until ctx is canceled. The first cycle starts immediately.
func (s *Service) Run(ctx context.Context) error {
	ctx = s.logg.WithField(ctx, "jobs", s.registry.Names())
	s.cycle(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron.stopped")
			return ctx.Err()
		case <-ticker.C:
			s.cycle(ctx)
		}
	}
}

func (s *Service) cycle(ctx context.Context) {
	if err := s.RunOnce(ctx); err != nil {
		s.logg.Error(ctx, "cron.cycle.failed", err)
	}
}

// RunOnce runs every registered job in one locked cycle. Job failures are
// collected and do not stop later jobs; a lost lease does.
func (s *Service) RunOnce(ctx context.Context) error {
	return s.locked(ctx, s.registry.Jobs())
}

// RunJob runs a single job by name under the worker lock.
func (s *Service) RunJob(ctx context.Context, name string) error {
	job, ok := s.registry.Lookup(name)
	if !ok {
		return fmt.Errorf("unknown cron job %q (registered: %v)", name, s.registry.Names())
	}
	return s.locked(ctx, []Job{job})
}

func (s *Service) locked(ctx context.Context, jobs []Job) error {
	held, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !held {
		s.logg.Info(ctx, "cron.cycle.skipped")
		return nil
	}
	defer func() {
		if err := s.lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.logg.Error(ctx, "cron.lock.release_failed", err)
		}
	}()

	var errs error
	for i, job := range jobs {
		if i > 0 {
			if err := s.renew(ctx); err != nil {
				return multierr.Append(errs, err)
			}
		}
		if err := s.runJob(ctx, job); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", job.Name(), err))
		}
	}
	return errs
}

func (s *Service) renew(ctx context.Context) error {
	r, ok := s.lock.(renewer)
	if !ok {
		return nil
	}
	kept, err := r.Renew(ctx)
	if err != nil {
		return err
	}
	if !kept {
		return ErrLeaseLost
	}
	return nil
}

func (s *Service) runJob(ctx context.Context, job Job) error {
	name := job.Name()
	jobCtx := s.logg.WithField(ctx, "job", name)
	start := time.Now()
	err := job.Run(jobCtx)
	elapsed := time.Since(start)
	jobCtx = s.logg.WithField(jobCtx, "duration_ms", elapsed.Milliseconds())

	if s.metrics != nil {
		s.metrics.ObserveDuration(name, elapsed)
	}
	if err != nil {
		s.logg.Error(jobCtx, "cron.job.failed", err)
		if s.metrics != nil {
			s.metrics.IncFailure(name)
		}
		return err
	}
	s.logg.Info(jobCtx, "cron.job.completed")
	if s.metrics != nil {
		s.metrics.IncSuccess(name)
	}
	return nil
}
