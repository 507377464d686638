package cart

import (
	"context"
	"time"

	"github.com/angelmondragon/groupcart-backend/pkg/db"
	"github.com/angelmondragon/groupcart-backend/pkg/db/models"
	"github.com/angelmondragon/groupcart-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Unique indexes referenced when translating constraint violations.
var (
	activeCartIndex      = db.UniqueIndex{Name: "ux_shared_carts_active_product", Columns: "shared_carts.product_id"}
	participantCartIndex = db.UniqueIndex{Name: "ux_cart_participants_cart_user", Columns: "cart_participants.cart_id, cart_participants.user_id"}
)

var lockForUpdate = clause.Locking{Strength: "UPDATE"}

// Repository exposes persistence operations for shared carts and participants.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// LockProduct loads the product row with FOR UPDATE. Concurrent adds for the
// same product queue here, so only one of them can observe "no active cart".
func (r *Repository) LockProduct(ctx context.Context, productID int64) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Clauses(lockForUpdate).
		Where("id = ?", productID).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *Repository) FindCart(ctx context.Context, cartID uuid.UUID) (*models.SharedCart, error) {
	var cart models.SharedCart
	if err := r.db.WithContext(ctx).Where("id = ?", cartID).First(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *Repository) LockCart(ctx context.Context, cartID uuid.UUID) (*models.SharedCart, error) {
	var cart models.SharedCart
	err := r.db.WithContext(ctx).
		Clauses(lockForUpdate).
		Where("id = ?", cartID).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *Repository) FindActiveByProduct(ctx context.Context, productID int64) (*models.SharedCart, error) {
	var cart models.SharedCart
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND status = ?", productID, enums.SharedCartStatusActive).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *Repository) CreateCart(ctx context.Context, cart *models.SharedCart) error {
	if cart.Status == "" {
		cart.Status = enums.SharedCartStatusActive
	}
	return r.db.WithContext(ctx).Create(cart).Error
}

// UpdateTotals writes the recomputed aggregate and status together.
func (r *Repository) UpdateTotals(ctx context.Context, cartID uuid.UUID, current int, status enums.SharedCartStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.SharedCart{}).
		Where("id = ?", cartID).
		Updates(map[string]any{
			"current_quantity": current,
			"status":           status,
			"updated_at":       time.Now().UTC(),
		}).Error
}

// DeleteCart removes the cart and any participant rows still attached.
func (r *Repository) DeleteCart(ctx context.Context, cartID uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("cart_id = ?", cartID).Delete(&models.CartParticipant{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", cartID).Delete(&models.SharedCart{}).Error
}

func (r *Repository) FindParticipant(ctx context.Context, cartID, userID uuid.UUID) (*models.CartParticipant, error) {
	var participant models.CartParticipant
	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND user_id = ?", cartID, userID).
		First(&participant).Error
	if err != nil {
		return nil, err
	}
	return &participant, nil
}

func (r *Repository) CreateParticipant(ctx context.Context, participant *models.CartParticipant) error {
	return r.db.WithContext(ctx).Create(participant).Error
}

// IncrementParticipant adds quantity in SQL so the row never loses a
// concurrent increment.
func (r *Repository) IncrementParticipant(ctx context.Context, participantID uuid.UUID, quantity int) error {
	return r.db.WithContext(ctx).
		Model(&models.CartParticipant{}).
		Where("id = ?", participantID).
		Updates(map[string]any{
			"quantity":   gorm.Expr("quantity + ?", quantity),
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *Repository) DeleteParticipant(ctx context.Context, participantID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", participantID).
		Delete(&models.CartParticipant{}).Error
}

// Aggregate returns the participant count and the summed quantity for a cart.
func (r *Repository) Aggregate(ctx context.Context, cartID uuid.UUID) (int, int, error) {
	var agg struct {
		Participants int
		Quantity     int
	}
	err := r.db.WithContext(ctx).
		Model(&models.CartParticipant{}).
		Select("COUNT(*) AS participants, COALESCE(SUM(quantity), 0) AS quantity").
		Where("cart_id = ?", cartID).
		Scan(&agg).Error
	if err != nil {
		return 0, 0, err
	}
	return agg.Participants, agg.Quantity, nil
}

func (r *Repository) ParticipantUserIDs(ctx context.Context, cartID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.CartParticipant{}).
		Where("cart_id = ?", cartID).
		Order("added_at ASC").
		Pluck("user_id", &ids).Error
	return ids, err
}

// ListForUser returns every cart the user participates in, newest join first.
func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID) ([]UserCartRow, error) {
	var rows []UserCartRow
	err := r.db.WithContext(ctx).
		Table("shared_carts AS sc").
		Select(`sc.id, sc.product_id, sc.current_quantity, sc.target_quantity, sc.status,
			sc.expires_at, sc.created_at,
			p.name AS product_name, p.image_url, p.regular_price, p.wholesale_price,
			cp.quantity AS user_quantity, cp.added_at AS joined_at`).
		Joins("JOIN cart_participants cp ON cp.cart_id = sc.id").
		Joins("JOIN products p ON p.id = sc.product_id").
		Where("cp.user_id = ?", userID).
		Order("cp.added_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// FindDetails loads a cart with its product and participants ordered by join time.
func (r *Repository) FindDetails(ctx context.Context, cartID uuid.UUID) (*models.SharedCart, error) {
	var cart models.SharedCart
	err := r.db.WithContext(ctx).
		Preload("Product").
		Preload("Participants", func(db *gorm.DB) *gorm.DB {
			return db.Order("added_at ASC").Order("id ASC")
		}).
		Preload("Participants.User").
		Where("id = ?", cartID).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// LockExpirable claims active carts whose expiry has passed. Rows locked by
// another worker are skipped.
func (r *Repository) LockExpirable(ctx context.Context, now time.Time, limit int) ([]models.SharedCart, error) {
	var carts []models.SharedCart
	q := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("status = ? AND expires_at <= ?", enums.SharedCartStatusActive, now).
		Order("expires_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&carts).Error; err != nil {
		return nil, err
	}
	return carts, nil
}
