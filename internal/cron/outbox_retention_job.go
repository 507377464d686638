package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/groupcart-backend/pkg/logger"
	"github.com/angelmondragon/groupcart-backend/pkg/outbox"
	"gorm.io/gorm"
)

const (
	defaultRetentionDays = 30
	// matches GROUPCART_OUTBOX_MAX_ATTEMPTS' default, the value the publisher parks rows at
	defaultParkedAttempts = 10
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPruner interface {
	Prune(ctx context.Context, tx *gorm.DB, cutoff time.Time, maxAttempts int) (outbox.PruneResult, error)
}

type OutboxRetentionJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository outboxPruner
	Retention  int
	// MaxAttempts is the publisher's parking value; rows at it with a
	// last_error are parked and age out like published rows.
	MaxAttempts int
}

// NewOutboxRetentionJob builds the job that trims published and parked
// shared-cart events. Parked rows younger than the retention window stay
// visible for inspection.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	days := params.Retention
	if days <= 0 {
		days = defaultRetentionDays
	}
	maxAttempts := params.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultParkedAttempts
	}
	return &outboxRetentionJob{
		logg:        params.Logger,
		db:          params.DB,
		repo:        params.Repository,
		window:      time.Duration(days) * 24 * time.Hour,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}, nil
}

type outboxRetentionJob struct {
	logg        *logger.Logger
	db          txRunner
	repo        outboxPruner
	window      time.Duration
	maxAttempts int
	now         func() time.Time
}

func (j *outboxRetentionJob) Name() string { return JobOutboxRetention }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.window)
	var result outbox.PruneResult
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		result, err = j.repo.Prune(ctx, tx, cutoff, j.maxAttempts)
		return err
	})
	if err != nil {
		return fmt.Errorf("outbox retention: %w", err)
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":           cutoff,
		"published_pruned": result.Published,
		"parked_pruned":    result.Parked,
		"parked_remaining": result.ParkedRemaining,
	})
	if result.ParkedRemaining > 0 {
		j.logg.Warn(logCtx, "outbox retention complete; parked events awaiting inspection")
		return nil
	}
	j.logg.Info(logCtx, "outbox retention complete")
	return nil
}
