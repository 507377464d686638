package payloads

import (
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/groupcart-backend/pkg/enums"
	"github.com/google/uuid"
)

// CartEvent is implemented by every shared-cart payload. Check reports
// whether the payload is consistent with the event type it was stored under.
type CartEvent interface {
	Cart() uuid.UUID
	Check(eventType enums.OutboxEventType) error
}

// SharedCartStatusChangedEvent is emitted whenever a cart moves between
// active and completed.
type SharedCartStatusChangedEvent struct {
	CartID          uuid.UUID              `json:"cart_id"`
	ProductID       int64                  `json:"product_id"`
	PreviousStatus  enums.SharedCartStatus `json:"previous_status"`
	Status          enums.SharedCartStatus `json:"status"`
	CurrentQuantity int                    `json:"current_quantity"`
	TargetQuantity  int                    `json:"target_quantity"`
	ParticipantIDs  []uuid.UUID            `json:"participant_user_ids,omitempty"`
}

func (e SharedCartStatusChangedEvent) Cart() uuid.UUID { return e.CartID }

func (e SharedCartStatusChangedEvent) Check(eventType enums.OutboxEventType) error {
	if e.TargetQuantity <= 0 {
		return errors.New("target quantity must be positive")
	}
	switch eventType {
	case enums.EventSharedCartCompleted:
		if e.PreviousStatus != enums.SharedCartStatusActive || e.Status != enums.SharedCartStatusCompleted {
			return fmt.Errorf("completion must move active to completed, got %s to %s", e.PreviousStatus, e.Status)
		}
		if e.CurrentQuantity < e.TargetQuantity {
			return fmt.Errorf("completed below target (%d/%d)", e.CurrentQuantity, e.TargetQuantity)
		}
	case enums.EventSharedCartReopened:
		if e.PreviousStatus != enums.SharedCartStatusCompleted || e.Status != enums.SharedCartStatusActive {
			return fmt.Errorf("reopen must move completed to active, got %s to %s", e.PreviousStatus, e.Status)
		}
		if e.CurrentQuantity >= e.TargetQuantity {
			return fmt.Errorf("reopened at or above target (%d/%d)", e.CurrentQuantity, e.TargetQuantity)
		}
	default:
		return fmt.Errorf("status change payload cannot carry %s", eventType)
	}
	return nil
}

// SharedCartClosedEvent is emitted when the last participant leaves and the
// cart row is deleted.
type SharedCartClosedEvent struct {
	CartID    uuid.UUID `json:"cart_id"`
	ProductID int64     `json:"product_id"`
	ClosedBy  uuid.UUID `json:"closed_by"`
}

func (e SharedCartClosedEvent) Cart() uuid.UUID { return e.CartID }

func (e SharedCartClosedEvent) Check(eventType enums.OutboxEventType) error {
	if eventType != enums.EventSharedCartClosed {
		return fmt.Errorf("closed payload cannot carry %s", eventType)
	}
	if e.ClosedBy == uuid.Nil {
		return errors.New("closed_by is required")
	}
	return nil
}

// SharedCartExpiredEvent is emitted by the expiry job.
type SharedCartExpiredEvent struct {
	CartID          uuid.UUID `json:"cart_id"`
	ProductID       int64     `json:"product_id"`
	CurrentQuantity int       `json:"current_quantity"`
	TargetQuantity  int       `json:"target_quantity"`
	ExpiresAt       time.Time `json:"expires_at"`
}

func (e SharedCartExpiredEvent) Cart() uuid.UUID { return e.CartID }

// Check rejects an expiry for a cart that had reached its target; completed
// carts never expire.
func (e SharedCartExpiredEvent) Check(eventType enums.OutboxEventType) error {
	if eventType != enums.EventSharedCartExpired {
		return fmt.Errorf("expired payload cannot carry %s", eventType)
	}
	if e.CurrentQuantity >= e.TargetQuantity {
		return fmt.Errorf("expired at or above target (%d/%d)", e.CurrentQuantity, e.TargetQuantity)
	}
	if e.ExpiresAt.IsZero() {
		return errors.New("expires_at is required")
	}
	return nil
}
