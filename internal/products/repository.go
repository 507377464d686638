package product

import (
	"context"
	"strings"

	"github.com/angelmondragon/groupcart-backend/pkg/db/models"
	"github.com/angelmondragon/groupcart-backend/pkg/enums"
	"github.com/angelmondragon/groupcart-backend/pkg/pagination"
	"gorm.io/gorm"
)

var productColumns = []string{
	"p.id",
	"p.name",
	"p.description",
	"p.category_id",
	"c.name AS category_name",
	"p.regular_price",
	"p.wholesale_price",
	"p.minimum_order_quantity",
	"p.stock_quantity",
	"p.image_url",
	"p.created_at",
	"p.updated_at",
}

// Repository reads the product catalog.
type Repository struct {
	db *gorm.DB
}

// likeEscaper makes %, _ and \ in a search term match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListProducts returns one page of products, newest first.
func (r *Repository) ListProducts(ctx context.Context, input ListInput) (*ListResult, error) {
	pageSize := pagination.NormalizeLimit(input.Pagination.Limit)
	cursor, err := pagination.ParseCursor(input.Pagination.Cursor)
	if err != nil {
		return nil, err
	}

	qb := r.db.WithContext(ctx).
		Table("products p").
		Select(strings.Join(productColumns, ", ")).
		Joins("LEFT JOIN categories c ON c.id = p.category_id")

	if input.Filters.CategoryID != nil {
		qb = qb.Where("p.category_id = ?", *input.Filters.CategoryID)
	}
	if search := strings.TrimSpace(input.Filters.Search); search != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(search)) + "%"
		qb = qb.Where(`(LOWER(p.name) LIKE ? ESCAPE '\' OR LOWER(COALESCE(p.description, '')) LIKE ? ESCAPE '\')`, pattern, pattern)
	}
	if cursor != nil {
		qb = qb.Where("(p.created_at < ?) OR (p.created_at = ? AND p.id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var records []productRecord
	err = qb.Order("p.created_at DESC").
		Order("p.id DESC").
		Limit(pagination.LimitWithBuffer(input.Pagination.Limit)).
		Scan(&records).Error
	if err != nil {
		return nil, err
	}

	rows := records
	next := ""
	if len(records) > pageSize {
		rows = records[:pageSize]
		last := rows[len(rows)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	out := make([]ProductDTO, 0, len(rows))
	for _, record := range rows {
		out = append(out, record.toDTO())
	}
	return &ListResult{Products: out, NextCursor: next}, nil
}

// GetProduct loads a single product with its category name.
func (r *Repository) GetProduct(ctx context.Context, id int64) (*ProductDTO, error) {
	var record productRecord
	err := r.db.WithContext(ctx).
		Table("products p").
		Select(strings.Join(productColumns, ", ")).
		Joins("LEFT JOIN categories c ON c.id = p.category_id").
		Where("p.id = ?", id).
		Take(&record).Error
	if err != nil {
		return nil, err
	}
	dto := record.toDTO()
	return &dto, nil
}

// ListCategories returns every category ordered by name.
func (r *Repository) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := r.db.WithContext(ctx).Order("name ASC").Order("id ASC").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// ListWithActiveCarts returns products that currently have an active shared
// cart, most recently opened cart first.
func (r *Repository) ListWithActiveCarts(ctx context.Context) ([]productCartRecord, error) {
	columns := append(append([]string{}, productColumns...),
		"sc.id AS cart_id",
		"sc.current_quantity",
		"sc.target_quantity",
		"sc.status AS cart_status",
		"sc.expires_at",
	)
	var records []productCartRecord
	err := r.db.WithContext(ctx).
		Table("products p").
		Select(strings.Join(columns, ", ")).
		Joins("JOIN shared_carts sc ON sc.product_id = p.id").
		Joins("LEFT JOIN categories c ON c.id = p.category_id").
		Where("sc.status = ?", enums.SharedCartStatusActive).
		Order("sc.created_at DESC").
		Scan(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
