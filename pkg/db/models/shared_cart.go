package models

import (
	"time"

	"github.com/angelmondragon/groupcart-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SharedCart pools participant quantities for a single product.
// CurrentQuantity mirrors SUM(cart_participants.quantity) and is rewritten by
// the lifecycle service inside the same transaction as every participant change.
type SharedCart struct {
	ID              uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID       int64                  `gorm:"column:product_id;not null"`
	Product         *Product               `gorm:"foreignKey:ProductID"`
	CurrentQuantity int                    `gorm:"column:current_quantity;not null;default:0"`
	TargetQuantity  int                    `gorm:"column:target_quantity;not null"`
	Status          enums.SharedCartStatus `gorm:"column:status;type:text;not null;default:'active'"`
	ExpiresAt       time.Time              `gorm:"column:expires_at;not null"`
	CreatedAt       time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time              `gorm:"column:updated_at;autoUpdateTime"`
	Participants    []CartParticipant      `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
}

func (SharedCart) TableName() string { return "shared_carts" }

func (c *SharedCart) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
