package controllers

import (
	"net/http"

	"github.com/angelmondragon/groupcart-backend/api/responses"
	"github.com/angelmondragon/groupcart-backend/api/validators"
	productsvc "github.com/angelmondragon/groupcart-backend/internal/products"
	pkgerrors "github.com/angelmondragon/groupcart-backend/pkg/errors"
	"github.com/angelmondragon/groupcart-backend/pkg/logger"
	"github.com/angelmondragon/groupcart-backend/pkg/pagination"
)

const maxSearchLength = 100

// ProductList browses the catalog with optional category and text filters.
func ProductList(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		categoryID, err := validators.ParseOptionalQueryInt64(r, "category_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		query := r.URL.Query()
		result, err := svc.ListProducts(r.Context(), productsvc.ListInput{
			Filters: productsvc.ListFilters{
				CategoryID: categoryID,
				Search:     validators.SanitizeSearch(query.Get("search"), maxSearchLength),
			},
			Pagination: pagination.Params{
				Limit:  limit,
				Cursor: query.Get("cursor"),
			},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// ProductDetail returns one product with its category name.
func ProductDetail(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		productID, err := validators.ParseInt64Param(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.GetProduct(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}

// ProductsWithActiveCarts lists products that currently have an open shared cart.
func ProductsWithActiveCarts(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		rows, err := svc.ListWithActiveCarts(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if rows == nil {
			rows = []productsvc.ProductWithCart{}
		}

		responses.WriteSuccess(w, rows)
	}
}

func CategoryList(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		categories, err := svc.ListCategories(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if categories == nil {
			categories = []productsvc.CategoryDTO{}
		}

		responses.WriteSuccess(w, categories)
	}
}
