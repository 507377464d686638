package cart

import (
	"time"

	"github.com/angelmondragon/groupcart-backend/pkg/db/models"
	"github.com/angelmondragon/groupcart-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AddResult identifies the cart and participant row touched by Add.
type AddResult struct {
	CartID          uuid.UUID              `json:"cart_id"`
	ParticipantID   uuid.UUID              `json:"participant_id"`
	Status          enums.SharedCartStatus `json:"status"`
	CurrentQuantity int                    `json:"current_quantity"`
	TargetQuantity  int                    `json:"target_quantity"`
}

// UserCartSummary is one row of a user's cart list.
type UserCartSummary struct {
	ID              uuid.UUID              `json:"id"`
	ProductID       int64                  `json:"product_id"`
	ProductName     string                 `json:"product_name"`
	ImageURL        *string                `json:"image_url,omitempty"`
	RegularPrice    decimal.Decimal        `json:"regular_price"`
	WholesalePrice  decimal.Decimal        `json:"wholesale_price"`
	CurrentQuantity int                    `json:"current_quantity"`
	TargetQuantity  int                    `json:"target_quantity"`
	Status          enums.SharedCartStatus `json:"status"`
	ExpiresAt       time.Time              `json:"expires_at"`
	CreatedAt       time.Time              `json:"created_at"`
	UserQuantity    int                    `json:"user_quantity"`
	JoinedAt        time.Time              `json:"joined_at"`
	Progress        float64                `json:"progress"`
}

// ProductSummary is the product slice embedded in cart details.
type ProductSummary struct {
	ID                   int64           `json:"id"`
	Name                 string          `json:"name"`
	Description          *string         `json:"description,omitempty"`
	ImageURL             *string         `json:"image_url,omitempty"`
	RegularPrice         decimal.Decimal `json:"regular_price"`
	WholesalePrice       decimal.Decimal `json:"wholesale_price"`
	MinimumOrderQuantity int             `json:"minimum_order_quantity"`
}

// Participant is a participant row joined with the user's public identity.
type Participant struct {
	UserID    uuid.UUID `json:"user_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"added_at"`
}

// CartDetails is the public view of a single shared cart.
type CartDetails struct {
	ID               uuid.UUID              `json:"id"`
	ProductID        int64                  `json:"product_id"`
	CurrentQuantity  int                    `json:"current_quantity"`
	TargetQuantity   int                    `json:"target_quantity"`
	Status           enums.SharedCartStatus `json:"status"`
	ExpiresAt        time.Time              `json:"expires_at"`
	CreatedAt        time.Time              `json:"created_at"`
	Progress         float64                `json:"progress"`
	Product          ProductSummary         `json:"product"`
	Participants     []Participant          `json:"participants"`
	ParticipantCount int                    `json:"participant_count"`
}

// UserCartRow is the flat projection scanned by Repository.ListForUser.
type UserCartRow struct {
	ID              uuid.UUID              `gorm:"column:id"`
	ProductID       int64                  `gorm:"column:product_id"`
	ProductName     string                 `gorm:"column:product_name"`
	ImageURL        *string                `gorm:"column:image_url"`
	RegularPrice    decimal.Decimal        `gorm:"column:regular_price"`
	WholesalePrice  decimal.Decimal        `gorm:"column:wholesale_price"`
	CurrentQuantity int                    `gorm:"column:current_quantity"`
	TargetQuantity  int                    `gorm:"column:target_quantity"`
	Status          enums.SharedCartStatus `gorm:"column:status"`
	ExpiresAt       time.Time              `gorm:"column:expires_at"`
	CreatedAt       time.Time              `gorm:"column:created_at"`
	UserQuantity    int                    `gorm:"column:user_quantity"`
	JoinedAt        time.Time              `gorm:"column:joined_at"`
}

func (r UserCartRow) toSummary() UserCartSummary {
	return UserCartSummary{
		ID:              r.ID,
		ProductID:       r.ProductID,
		ProductName:     r.ProductName,
		ImageURL:        r.ImageURL,
		RegularPrice:    r.RegularPrice,
		WholesalePrice:  r.WholesalePrice,
		CurrentQuantity: r.CurrentQuantity,
		TargetQuantity:  r.TargetQuantity,
		Status:          r.Status,
		ExpiresAt:       r.ExpiresAt,
		CreatedAt:       r.CreatedAt,
		UserQuantity:    r.UserQuantity,
		JoinedAt:        r.JoinedAt,
		Progress:        Progress(r.CurrentQuantity, r.TargetQuantity).InexactFloat64(),
	}
}

func detailsFromModel(cart *models.SharedCart) *CartDetails {
	details := &CartDetails{
		ID:              cart.ID,
		ProductID:       cart.ProductID,
		CurrentQuantity: cart.CurrentQuantity,
		TargetQuantity:  cart.TargetQuantity,
		Status:          cart.Status,
		ExpiresAt:       cart.ExpiresAt,
		CreatedAt:       cart.CreatedAt,
		Progress:        Progress(cart.CurrentQuantity, cart.TargetQuantity).InexactFloat64(),
		Participants:    make([]Participant, 0, len(cart.Participants)),
	}
	if p := cart.Product; p != nil {
		details.Product = ProductSummary{
			ID:                   p.ID,
			Name:                 p.Name,
			Description:          p.Description,
			ImageURL:             p.ImageURL,
			RegularPrice:         p.RegularPrice,
			WholesalePrice:       p.WholesalePrice,
			MinimumOrderQuantity: p.MinimumOrderQuantity,
		}
	}
	for _, row := range cart.Participants {
		participant := Participant{
			UserID:   row.UserID,
			Quantity: row.Quantity,
			AddedAt:  row.AddedAt,
		}
		if row.User != nil {
			participant.FirstName = row.User.FirstName
			participant.LastName = row.User.LastName
		}
		details.Participants = append(details.Participants, participant)
	}
	details.ParticipantCount = len(details.Participants)
	return details
}
