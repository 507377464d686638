package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/groupcart-backend/pkg/db"
	"github.com/angelmondragon/groupcart-backend/pkg/db/models"
	"github.com/angelmondragon/groupcart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/groupcart-backend/pkg/errors"
	"github.com/angelmondragon/groupcart-backend/pkg/logger"
	"github.com/angelmondragon/groupcart-backend/pkg/outbox"
	"github.com/angelmondragon/groupcart-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultCartTTL = 7 * 24 * time.Hour

	msgParticipantNotFound = "participant not found in cart"
	statusDeleted          = "deleted"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type transitionRecorder interface {
	ObserveTransition(from, to string)
	ObserveContribution(quantity int)
}

type noopRecorder struct{}

func (noopRecorder) ObserveTransition(string, string) {}
func (noopRecorder) ObserveContribution(int)          {}

// Service exposes the shared cart lifecycle.
type Service interface {
	Add(ctx context.Context, userID uuid.UUID, productID int64, quantity int) (*AddResult, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]UserCartSummary, error)
	GetDetails(ctx context.Context, cartID uuid.UUID) (*CartDetails, error)
	Remove(ctx context.Context, userID, cartID uuid.UUID) error
	ExpireDue(ctx context.Context, now time.Time, limit int) (int, error)
}

// ServiceParams wires the cart service.
type ServiceParams struct {
	Repository CartRepository
	Tx         txRunner
	Events     outbox.Emitter
	Metrics    transitionRecorder
	Logger     *logger.Logger
	TTL        time.Duration
	Now        func() time.Time
}

type service struct {
	repo    CartRepository
	tx      txRunner
	events  outbox.Emitter
	metrics transitionRecorder
	logg    *logger.Logger
	ttl     time.Duration
	now     func() time.Time
}

// NewService builds a cart service backed by the provided stack.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Events == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = DefaultCartTTL
	}
	recorder := params.Metrics
	if recorder == nil {
		recorder = noopRecorder{}
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:    params.Repository,
		tx:      params.Tx,
		events:  params.Events,
		metrics: recorder,
		logg:    params.Logger,
		ttl:     ttl,
		now:     now,
	}, nil
}

// Add commits quantity units of productID on behalf of userID, creating the
// product's active cart on first use.
func (s *service) Add(ctx context.Context, userID uuid.UUID, productID int64, quantity int) (*AddResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user id is required")
	}
	if productID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id must be a positive integer")
	}
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be a positive integer")
	}

	var result AddResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		product, err := repo.LockProduct(ctx, productID)
		if err != nil {
			return notFoundOrDependency(err, "product not found", "load product")
		}

		cart, err := s.findOrCreateActive(ctx, repo, product)
		if err != nil {
			return err
		}

		participantID, err := s.upsertParticipant(ctx, repo, cart.ID, userID, quantity)
		if err != nil {
			return err
		}

		if _, err := s.settle(ctx, tx, repo, cart, userID); err != nil {
			return err
		}

		result = AddResult{
			CartID:          cart.ID,
			ParticipantID:   participantID,
			Status:          cart.Status,
			CurrentQuantity: cart.CurrentQuantity,
			TargetQuantity:  cart.TargetQuantity,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveContribution(quantity)
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"cart_id":    result.CartID.String(),
			"product_id": productID,
			"quantity":   quantity,
			"status":     result.Status,
		})
		s.logg.Info(logCtx, "shared cart contribution recorded")
	}
	return &result, nil
}

func (s *service) findOrCreateActive(ctx context.Context, repo CartRepository, product *models.Product) (*models.SharedCart, error) {
	cart, err := repo.FindActiveByProduct(ctx, product.ID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active cart")
	}

	now := s.now()
	cart = &models.SharedCart{
		ProductID:       product.ID,
		CurrentQuantity: 0,
		TargetQuantity:  product.MinimumOrderQuantity,
		Status:          enums.SharedCartStatusActive,
		ExpiresAt:       now.Add(s.ttl),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := repo.CreateCart(ctx, cart); err != nil {
		if db.IsUniqueViolation(err, activeCartIndex) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "an active cart for this product was created concurrently")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create shared cart")
	}
	return cart, nil
}

func (s *service) upsertParticipant(ctx context.Context, repo CartRepository, cartID, userID uuid.UUID, quantity int) (uuid.UUID, error) {
	existing, err := repo.FindParticipant(ctx, cartID, userID)
	switch {
	case err == nil:
		if err := repo.IncrementParticipant(ctx, existing.ID, quantity); err != nil {
			return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment participant")
		}
		return existing.ID, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load participant")
	}

	now := s.now()
	participant := &models.CartParticipant{
		CartID:    cartID,
		UserID:    userID,
		Quantity:  quantity,
		AddedAt:   now,
		UpdatedAt: now,
	}
	if err := repo.CreateParticipant(ctx, participant); err != nil {
		if db.IsUniqueViolation(err, participantCartIndex) {
			return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "participant was added concurrently")
		}
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create participant")
	}
	return participant.ID, nil
}

// settle recomputes the cart aggregate after a participant change and applies
// NextStatus. It reports false when the cart was deleted.
func (s *service) settle(ctx context.Context, tx *gorm.DB, repo CartRepository, cart *models.SharedCart, actor uuid.UUID) (bool, error) {
	count, sum, err := repo.Aggregate(ctx, cart.ID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate participants")
	}

	previous := cart.Status
	next, keep := NextStatus(sum, cart.TargetQuantity, count, previous)
	if !keep {
		if err := repo.DeleteCart(ctx, cart.ID); err != nil {
			return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete empty cart")
		}
		err := s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSharedCartClosed,
			AggregateType: enums.AggregateSharedCart,
			AggregateID:   cart.ID,
			Actor:         &outbox.ActorRef{UserID: actor},
			Data: payloads.SharedCartClosedEvent{
				CartID:    cart.ID,
				ProductID: cart.ProductID,
				ClosedBy:  actor,
			},
			OccurredAt: s.now(),
		})
		if err != nil {
			return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit cart closed")
		}
		s.metrics.ObserveTransition(previous.String(), statusDeleted)
		return false, nil
	}

	if previous == enums.SharedCartStatusCompleted && next == enums.SharedCartStatusActive {
		if err := s.ensureReopenable(ctx, repo, cart); err != nil {
			return false, err
		}
	}

	if sum != cart.CurrentQuantity || next != previous {
		if err := repo.UpdateTotals(ctx, cart.ID, sum, next); err != nil {
			if db.IsUniqueViolation(err, activeCartIndex) {
				return false, pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "another active cart exists for this product")
			}
			return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart totals")
		}
	}
	cart.CurrentQuantity = sum
	cart.Status = next

	if next == previous {
		return true, nil
	}

	eventType := enums.EventSharedCartCompleted
	if next == enums.SharedCartStatusActive {
		eventType = enums.EventSharedCartReopened
	}
	participants, err := repo.ParticipantUserIDs(ctx, cart.ID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list participants")
	}
	err = s.events.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateSharedCart,
		AggregateID:   cart.ID,
		Actor:         &outbox.ActorRef{UserID: actor},
		Data: payloads.SharedCartStatusChangedEvent{
			CartID:          cart.ID,
			ProductID:       cart.ProductID,
			PreviousStatus:  previous,
			Status:          next,
			CurrentQuantity: sum,
			TargetQuantity:  cart.TargetQuantity,
			ParticipantIDs:  participants,
		},
		OccurredAt: s.now(),
	})
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit cart status change")
	}
	s.metrics.ObserveTransition(previous.String(), next.String())
	return true, nil
}

// ensureReopenable rejects reopening a completed cart while a newer active
// cart exists for the same product.
func (s *service) ensureReopenable(ctx context.Context, repo CartRepository, cart *models.SharedCart) error {
	other, err := repo.FindActiveByProduct(ctx, cart.ProductID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil
	case err != nil:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active cart")
	case other.ID != cart.ID:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "cart cannot drop below its target while a newer cart for this product is open").
			WithDetails(map[string]any{"active_cart_id": other.ID})
	}
	return nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID) ([]UserCartSummary, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user id is required")
	}
	rows, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list user carts")
	}
	out := make([]UserCartSummary, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toSummary())
	}
	return out, nil
}

func (s *service) GetDetails(ctx context.Context, cartID uuid.UUID) (*CartDetails, error) {
	if cartID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart id is required")
	}
	cart, err := s.repo.FindDetails(ctx, cartID)
	if err != nil {
		return nil, notFoundOrDependency(err, "cart not found", "load cart details")
	}
	return detailsFromModel(cart), nil
}

// Remove deletes the caller's participation. The product row is locked before
// the cart row, matching the lock order taken by Add.
func (s *service) Remove(ctx context.Context, userID, cartID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user id is required")
	}
	if cartID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart id is required")
	}

	deleted := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		snapshot, err := repo.FindCart(ctx, cartID)
		if err != nil {
			return notFoundOrDependency(err, msgParticipantNotFound, "load cart")
		}
		if _, err := repo.LockProduct(ctx, snapshot.ProductID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock product")
		}
		cart, err := repo.LockCart(ctx, cartID)
		if err != nil {
			return notFoundOrDependency(err, msgParticipantNotFound, "lock cart")
		}

		participant, err := repo.FindParticipant(ctx, cartID, userID)
		if err != nil {
			return notFoundOrDependency(err, msgParticipantNotFound, "load participant")
		}
		if err := repo.DeleteParticipant(ctx, participant.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete participant")
		}

		kept, err := s.settle(ctx, tx, repo, cart, userID)
		if err != nil {
			return err
		}
		deleted = !kept
		return nil
	})
	if err != nil {
		return err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"cart_id":      cartID.String(),
			"cart_deleted": deleted,
		})
		s.logg.Info(logCtx, "shared cart participant removed")
	}
	return nil
}

// ExpireDue flips active carts past their expiry to expired and queues one
// event per cart. It returns the number of carts expired.
func (s *service) ExpireDue(ctx context.Context, now time.Time, limit int) (int, error) {
	if now.IsZero() {
		now = s.now()
	}
	expired := 0
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		carts, err := repo.LockExpirable(ctx, now, limit)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load expirable carts")
		}
		for i := range carts {
			cart := carts[i]
			if err := repo.UpdateTotals(ctx, cart.ID, cart.CurrentQuantity, enums.SharedCartStatusExpired); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire cart")
			}
			err := s.events.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventSharedCartExpired,
				AggregateType: enums.AggregateSharedCart,
				AggregateID:   cart.ID,
				Data: payloads.SharedCartExpiredEvent{
					CartID:          cart.ID,
					ProductID:       cart.ProductID,
					CurrentQuantity: cart.CurrentQuantity,
					TargetQuantity:  cart.TargetQuantity,
					ExpiresAt:       cart.ExpiresAt,
				},
				OccurredAt: now,
			})
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit cart expired")
			}
			expired++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	for i := 0; i < expired; i++ {
		s.metrics.ObserveTransition(enums.SharedCartStatusActive.String(), enums.SharedCartStatusExpired.String())
	}
	return expired, nil
}

func notFoundOrDependency(err error, notFoundMsg, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFoundMsg)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}
