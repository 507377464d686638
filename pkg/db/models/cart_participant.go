package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CartParticipant is one user's accumulated commitment to a shared cart.
type CartParticipant struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID    uuid.UUID `gorm:"column:cart_id;type:uuid;not null"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null"`
	User      *User     `gorm:"foreignKey:UserID"`
	Quantity  int       `gorm:"column:quantity;not null"`
	AddedAt   time.Time `gorm:"column:added_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *CartParticipant) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
