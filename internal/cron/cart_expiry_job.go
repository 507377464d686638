package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/groupcart-backend/pkg/logger"
)

const (
	defaultExpiryBatch = 200
	// maxExpiryBatches bounds one run so a large backlog cannot starve other jobs.
	maxExpiryBatches = 50
)

type cartExpirer interface {
	ExpireDue(ctx context.Context, now time.Time, limit int) (int, error)
}

// CartExpiryJobParams configure the cart expiry job.
type CartExpiryJobParams struct {
	Logger    *logger.Logger
	Carts     cartExpirer
	BatchSize int
}

// NewCartExpiryJob builds the job that moves overdue active carts to expired.
func NewCartExpiryJob(params CartExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart service required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultExpiryBatch
	}
	return &cartExpiryJob{
		logg:  params.Logger,
		carts: params.Carts,
		batch: batch,
		now:   time.Now,
	}, nil
}

type cartExpiryJob struct {
	logg  *logger.Logger
	carts cartExpirer
	batch int
	now   func() time.Time
}

func (j *cartExpiryJob) Name() string { return JobCartExpiry }

// Run drains overdue carts in batches. Each batch commits on its own.
func (j *cartExpiryJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	total := 0
	for i := 0; i < maxExpiryBatches; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := j.carts.ExpireDue(ctx, now, j.batch)
		if err != nil {
			return fmt.Errorf("cart expiry: %w", err)
		}
		total += n
		if n < j.batch {
			break
		}
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":        now,
		"carts_expired": total,
	})
	j.logg.Info(logCtx, "cart expiry sweep complete")
	return nil
}
