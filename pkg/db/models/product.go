package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog listing that shared carts pool quantity against.
// Rows are read-only from the cart lifecycle's point of view.
type Product struct {
	ID                   int64           `gorm:"column:id;primaryKey;autoIncrement"`
	Name                 string          `gorm:"column:name;not null"`
	Description          *string         `gorm:"column:description"`
	CategoryID           *int64          `gorm:"column:category_id"`
	Category             *Category       `gorm:"foreignKey:CategoryID"`
	RegularPrice         decimal.Decimal `gorm:"column:regular_price;type:numeric(10,2);not null"`
	WholesalePrice       decimal.Decimal `gorm:"column:wholesale_price;type:numeric(10,2);not null"`
	MinimumOrderQuantity int             `gorm:"column:minimum_order_quantity;not null"`
	StockQuantity        int             `gorm:"column:stock_quantity;not null;default:0"`
	ImageURL             *string         `gorm:"column:image_url"`
	CreatedAt            time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
