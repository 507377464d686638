package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/angelmondragon/groupcart-backend/pkg/db/models"
	"github.com/angelmondragon/groupcart-backend/pkg/metrics"
	"github.com/angelmondragon/groupcart-backend/pkg/outbox/registry"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// disposition records what a relay pass did with one outbox row.
type disposition int

const (
	dispositionPublished disposition = iota + 1
	dispositionRetry
	dispositionParked
	dispositionHeld
)

func (d disposition) outcome() string {
	switch d {
	case dispositionPublished:
		return metrics.OutboxOutcomePublished
	case dispositionRetry:
		return metrics.OutboxOutcomeRetry
	case dispositionParked:
		return metrics.OutboxOutcomeTerminal
	default:
		return metrics.OutboxOutcomeHeld
	}
}

// parkReason is logged with every row the relay gives up on.
type parkReason string

const (
	parkUnroutable parkReason = "unroutable"
	parkRejected   parkReason = "rejected"
	parkExhausted  parkReason = "max_attempts"
)

type batchReport struct {
	fetched int
	counts  map[disposition]int
}

// progressed is true when at least one row left the unpublished queue.
func (r batchReport) progressed() bool {
	return r.counts[dispositionPublished]+r.counts[dispositionParked] > 0
}

// relayBatch publishes one locked batch in commit order. Once a cart has a
// row that stays unpublished, its later rows in the batch are held so
// subscribers never see a reopen before the completion it undoes.
func (s *Service) relayBatch(ctx context.Context) (batchReport, error) {
	report := batchReport{counts: make(map[disposition]int)}
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return fmt.Errorf("fetch outbox batch: %w", err)
		}
		report.fetched = len(events)

		stalled := make(map[uuid.UUID]bool)
		for _, event := range events {
			d, err := s.relay(ctx, tx, event, stalled[event.AggregateID])
			if err != nil {
				return err
			}
			if d == dispositionRetry || d == dispositionHeld {
				stalled[event.AggregateID] = true
			}
			report.counts[d]++
			s.metrics.Observe(string(event.EventType), d.outcome())
		}
		return nil
	})
	return report, err
}

func (s *Service) relay(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, held bool) (disposition, error) {
	ctx = s.logg.WithFields(s.logg.WithCartID(ctx, event.AggregateID.String()), map[string]any{
		"outbox_id":     event.ID.String(),
		"event_type":    event.EventType,
		"attempt_count": event.AttemptCount,
	})
	if held {
		s.logg.Debug(ctx, "outbox event held behind earlier cart event")
		return dispositionHeld, nil
	}

	resolved, err := s.registry.Resolve(event)
	if err != nil {
		return s.park(ctx, tx, event, parkUnroutable, err)
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"topic":    resolved.Descriptor.Topic,
		"event_id": resolved.Envelope.EventID,
	})

	err = s.publish(ctx, event, resolved)
	var rejected registry.NonRetryableError
	switch {
	case err == nil:
		if err := s.repo.MarkPublishedTx(tx, event.ID); err != nil {
			return 0, fmt.Errorf("mark published %s: %w", event.ID, err)
		}
		s.logg.Info(ctx, "outbox event published")
		return dispositionPublished, nil
	case errors.As(err, &rejected):
		return s.park(ctx, tx, event, parkRejected, err)
	case event.AttemptCount+1 >= s.maxAttempts:
		return s.park(ctx, tx, event, parkExhausted, fmt.Errorf("max publish attempts reached: %w", err))
	}

	s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "outbox publish failed; will retry")
	if markErr := s.repo.MarkFailedTx(tx, event.ID, err); markErr != nil {
		return 0, fmt.Errorf("mark failure %s: %w", event.ID, markErr)
	}
	return dispositionRetry, nil
}

// park leaves the row in the table with attempt_count at the ceiling so the
// fetch query skips it; retention deletes it once it ages out.
func (s *Service) park(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, reason parkReason, cause error) (disposition, error) {
	ctx = s.logg.WithFields(ctx, map[string]any{
		"park_reason": string(reason),
		"error":       cause.Error(),
	})
	s.logg.Warn(ctx, "outbox event parked")
	if err := s.repo.MarkTerminalTx(tx, event.ID, cause, s.maxAttempts); err != nil {
		return 0, fmt.Errorf("mark terminal %s: %w", event.ID, err)
	}
	return dispositionParked, nil
}

func (s *Service) publish(ctx context.Context, event models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	topic := resolved.Descriptor.Topic
	pub := s.topics.get(topic)
	if pub == nil {
		return registry.NewNonRetryableError(fmt.Errorf("no publisher for topic %s", topic))
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	result := pub.Publish(publishCtx, cartMessage(event, resolved.Envelope.EventID))
	if result == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher returned no result for topic %s", topic))
	}
	_, err := result.Get(publishCtx)
	return err
}

// cartMessage keys the message by cart id so one cart's transitions reach
// subscribers in the order they were committed.
func cartMessage(event models.OutboxEvent, eventID string) *gcppubsub.Message {
	cartID := event.AggregateID.String()
	return &gcppubsub.Message{
		Data:        event.Payload,
		OrderingKey: cartID,
		Attributes: map[string]string{
			"event_id":       eventID,
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"cart_id":        cartID,
			"created_at":     event.CreatedAt.Format(time.RFC3339Nano),
		},
	}
}
