package product

import (
	"time"

	"github.com/angelmondragon/groupcart-backend/internal/cart"
	"github.com/angelmondragon/groupcart-backend/pkg/enums"
	"github.com/angelmondragon/groupcart-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductDTO is the catalog view of a product.
type ProductDTO struct {
	ID                   int64           `json:"id"`
	Name                 string          `json:"name"`
	Description          *string         `json:"description,omitempty"`
	CategoryID           *int64          `json:"category_id,omitempty"`
	CategoryName         *string         `json:"category_name,omitempty"`
	RegularPrice         decimal.Decimal `json:"regular_price"`
	WholesalePrice       decimal.Decimal `json:"wholesale_price"`
	MinimumOrderQuantity int             `json:"minimum_order_quantity"`
	StockQuantity        int             `json:"stock_quantity"`
	ImageURL             *string         `json:"image_url,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// CategoryDTO is a catalog category.
type CategoryDTO struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	Description      *string   `json:"description,omitempty"`
	ParentCategoryID *int64    `json:"parent_category_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// ActiveCartSummary describes the open shared cart attached to a product.
type ActiveCartSummary struct {
	ID              uuid.UUID              `json:"id"`
	CurrentQuantity int                    `json:"current_quantity"`
	TargetQuantity  int                    `json:"target_quantity"`
	Status          enums.SharedCartStatus `json:"status"`
	ExpiresAt       time.Time              `json:"expires_at"`
	Progress        float64                `json:"progress"`
}

// ProductWithCart pairs a product with its currently active shared cart.
type ProductWithCart struct {
	ProductDTO
	ActiveCart ActiveCartSummary `json:"active_cart"`
}

// ListFilters are the browse filters accepted by the catalog.
type ListFilters struct {
	CategoryID *int64
	Search     string
}

// ListInput captures filters and keyset pagination for ListProducts.
type ListInput struct {
	Filters    ListFilters
	Pagination pagination.Params
}

// ListResult is one page of products.
type ListResult struct {
	Products   []ProductDTO `json:"products"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

type productRecord struct {
	ID                   int64           `gorm:"column:id"`
	Name                 string          `gorm:"column:name"`
	Description          *string         `gorm:"column:description"`
	CategoryID           *int64          `gorm:"column:category_id"`
	CategoryName         *string         `gorm:"column:category_name"`
	RegularPrice         decimal.Decimal `gorm:"column:regular_price"`
	WholesalePrice       decimal.Decimal `gorm:"column:wholesale_price"`
	MinimumOrderQuantity int             `gorm:"column:minimum_order_quantity"`
	StockQuantity        int             `gorm:"column:stock_quantity"`
	ImageURL             *string         `gorm:"column:image_url"`
	CreatedAt            time.Time       `gorm:"column:created_at"`
	UpdatedAt            time.Time       `gorm:"column:updated_at"`
}

func (r productRecord) toDTO() ProductDTO {
	return ProductDTO{
		ID:                   r.ID,
		Name:                 r.Name,
		Description:          r.Description,
		CategoryID:           r.CategoryID,
		CategoryName:         r.CategoryName,
		RegularPrice:         r.RegularPrice,
		WholesalePrice:       r.WholesalePrice,
		MinimumOrderQuantity: r.MinimumOrderQuantity,
		StockQuantity:        r.StockQuantity,
		ImageURL:             r.ImageURL,
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}
}

type productCartRecord struct {
	Product         productRecord          `gorm:"embedded"`
	CartID          uuid.UUID              `gorm:"column:cart_id"`
	CurrentQuantity int                    `gorm:"column:current_quantity"`
	TargetQuantity  int                    `gorm:"column:target_quantity"`
	CartStatus      enums.SharedCartStatus `gorm:"column:cart_status"`
	ExpiresAt       time.Time              `gorm:"column:expires_at"`
}

func (r productCartRecord) toDTO() ProductWithCart {
	return ProductWithCart{
		ProductDTO: r.Product.toDTO(),
		ActiveCart: ActiveCartSummary{
			ID:              r.CartID,
			CurrentQuantity: r.CurrentQuantity,
			TargetQuantity:  r.TargetQuantity,
			Status:          r.CartStatus,
			ExpiresAt:       r.ExpiresAt,
			Progress:        cart.Progress(r.CurrentQuantity, r.TargetQuantity).InexactFloat64(),
		},
	}
}
