package outbox

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/groupcart-backend/pkg/db/models"
)

const maxLastErrorLen = 1024

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Insert(tx *gorm.DB, event models.OutboxEvent) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	return tx.Create(&event).Error
}

// FetchUnpublishedForPublish locks a batch of pending rows, skipping rows
// already claimed by another publisher instance.
func (r *Repository) FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	if tx == nil {
		return nil, errors.New("transaction required")
	}
	var rows []models.OutboxEvent
	q := tx.Where("published_at IS NULL")
	if maxAttempts > 0 {
		q = q.Where("attempt_count < ?", maxAttempts)
	}
	err := q.
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Order("created_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *Repository) MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error {
	return tx.Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"published_at": time.Now().UTC(),
			"last_error":   nil,
		}).Error
}

func (r *Repository) MarkFailedTx(tx *gorm.DB, id uuid.UUID, cause error) error {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	if len(msg) > maxLastErrorLen {
		msg = msg[:maxLastErrorLen]
	}
	return tx.Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_error":    msg,
			"attempt_count": gorm.Expr("attempt_count + 1"),
		}).Error
}

// MarkTerminalTx parks a row so it is never fetched again.
func (r *Repository) MarkTerminalTx(tx *gorm.DB, id uuid.UUID, cause error, terminalAttempts int) error {
	msg := "terminal failure"
	if cause != nil {
		msg = cause.Error()
	}
	if len(msg) > maxLastErrorLen {
		msg = msg[:maxLastErrorLen]
	}
	return tx.Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_error":    msg,
			"attempt_count": terminalAttempts,
		}).Error
}

// PruneResult reports one retention pass.
type PruneResult struct {
	Published       int64
	Parked          int64
	ParkedRemaining int64
}

// Prune deletes rows published before cutoff and parked rows (attempt_count
// at maxAttempts with a recorded last_error) created before cutoff. Rows
// still eligible for retry are never touched.
func (r *Repository) Prune(ctx context.Context, tx *gorm.DB, cutoff time.Time, maxAttempts int) (PruneResult, error) {
	var out PruneResult
	if tx == nil {
		return out, errors.New("transaction required")
	}
	tx = tx.WithContext(ctx)

	res := tx.Where("published_at IS NOT NULL AND published_at < ?", cutoff).Delete(&models.OutboxEvent{})
	if res.Error != nil {
		return out, res.Error
	}
	out.Published = res.RowsAffected

	parked := func(db *gorm.DB) *gorm.DB {
		return db.Where("published_at IS NULL AND attempt_count >= ? AND last_error IS NOT NULL", maxAttempts)
	}
	res = tx.Scopes(parked).Where("created_at < ?", cutoff).Delete(&models.OutboxEvent{})
	if res.Error != nil {
		return out, res.Error
	}
	out.Parked = res.RowsAffected

	if err := tx.Model(&models.OutboxEvent{}).Scopes(parked).Count(&out.ParkedRemaining).Error; err != nil {
		return out, err
	}
	return out, nil
}
