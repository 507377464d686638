package cart

import (
	"context"
	"time"

	"github.com/angelmondragon/groupcart-backend/pkg/db/models"
	"github.com/angelmondragon/groupcart-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CartRepository defines the persistence surface required by the cart service.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository

	LockProduct(ctx context.Context, productID int64) (*models.Product, error)
	FindCart(ctx context.Context, cartID uuid.UUID) (*models.SharedCart, error)
	LockCart(ctx context.Context, cartID uuid.UUID) (*models.SharedCart, error)
	FindActiveByProduct(ctx context.Context, productID int64) (*models.SharedCart, error)
	CreateCart(ctx context.Context, cart *models.SharedCart) error
	UpdateTotals(ctx context.Context, cartID uuid.UUID, current int, status enums.SharedCartStatus) error
	DeleteCart(ctx context.Context, cartID uuid.UUID) error

	FindParticipant(ctx context.Context, cartID, userID uuid.UUID) (*models.CartParticipant, error)
	CreateParticipant(ctx context.Context, participant *models.CartParticipant) error
	IncrementParticipant(ctx context.Context, participantID uuid.UUID, quantity int) error
	DeleteParticipant(ctx context.Context, participantID uuid.UUID) error
	Aggregate(ctx context.Context, cartID uuid.UUID) (participants int, quantity int, err error)
	ParticipantUserIDs(ctx context.Context, cartID uuid.UUID) ([]uuid.UUID, error)

	ListForUser(ctx context.Context, userID uuid.UUID) ([]UserCartRow, error)
	FindDetails(ctx context.Context, cartID uuid.UUID) (*models.SharedCart, error)
	LockExpirable(ctx context.Context, now time.Time, limit int) ([]models.SharedCart, error)
}
