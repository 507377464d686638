package product

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/groupcart-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/groupcart-backend/pkg/errors"
	"github.com/angelmondragon/groupcart-backend/pkg/pagination"
	"gorm.io/gorm"
)

// Service exposes the read-only product catalog.
type Service interface {
	ListProducts(ctx context.Context, input ListInput) (*ListResult, error)
	GetProduct(ctx context.Context, id int64) (*ProductDTO, error)
	ListCategories(ctx context.Context) ([]CategoryDTO, error)
	ListWithActiveCarts(ctx context.Context) ([]ProductWithCart, error)
}

type catalogRepository interface {
	ListProducts(ctx context.Context, input ListInput) (*ListResult, error)
	GetProduct(ctx context.Context, id int64) (*ProductDTO, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	ListWithActiveCarts(ctx context.Context) ([]productCartRecord, error)
}

type service struct {
	repo catalogRepository
}

// NewService builds the catalog service.
func NewService(repo catalogRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListProducts(ctx context.Context, input ListInput) (*ListResult, error) {
	if input.Filters.CategoryID != nil && *input.Filters.CategoryID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category_id must be a positive integer")
	}
	result, err := s.repo.ListProducts(ctx, input)
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidCursor) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return result, nil
}

func (s *service) GetProduct(ctx context.Context, id int64) (*ProductDTO, error) {
	if id <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id must be a positive integer")
	}
	dto, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return dto, nil
}

func (s *service) ListCategories(ctx context.Context) ([]CategoryDTO, error) {
	rows, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	out := make([]CategoryDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, CategoryDTO{
			ID:               row.ID,
			Name:             row.Name,
			Description:      row.Description,
			ParentCategoryID: row.ParentCategoryID,
			CreatedAt:        row.CreatedAt,
		})
	}
	return out, nil
}

func (s *service) ListWithActiveCarts(ctx context.Context) ([]ProductWithCart, error) {
	rows, err := s.repo.ListWithActiveCarts(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products with active carts")
	}
	out := make([]ProductWithCart, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDTO())
	}
	return out, nil
}
