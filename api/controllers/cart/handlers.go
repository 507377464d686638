package cart

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/groupcart-backend/api/middleware"
	"github.com/angelmondragon/groupcart-backend/api/responses"
	"github.com/angelmondragon/groupcart-backend/api/validators"
	cartsvc "github.com/angelmondragon/groupcart-backend/internal/cart"
	pkgerrors "github.com/angelmondragon/groupcart-backend/pkg/errors"
	"github.com/angelmondragon/groupcart-backend/pkg/logger"
)

// CartAdd joins the caller to the active shared cart of a product.
func CartAdd(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		userID, err := userIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload AddToCartRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Add(r.Context(), userID, payload.ProductID, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, addToCartResponse{
			CartID:        result.CartID.String(),
			ParticipantID: result.ParticipantID.String(),
			Status:        string(result.Status),
		})
	}
}

// CartListMine lists every shared cart the caller participates in.
func CartListMine(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		userID, err := userIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		carts, err := svc.ListForUser(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if carts == nil {
			carts = []cartsvc.UserCartSummary{}
		}

		responses.WriteSuccess(w, carts)
	}
}

// CartDetails returns a cart with its product and participants. Public.
func CartDetails(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		cartID, err := validators.ParseUUIDParam(r, "cartId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		details, err := svc.GetDetails(r.Context(), cartID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, details)
	}
}

// CartRemove withdraws the caller's participation from a cart.
// Leaving a completed cart that would fall below target is refused with
// STATE_CONFLICT (422) while a newer active cart exists for the product,
// since reopening it would leave two active carts.
func CartRemove(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		userID, err := userIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cartID, err := validators.ParseUUIDParam(r, "cartId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Remove(r.Context(), userID, cartID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, removeFromCartResponse{Removed: true})
	}
}

func userIDFromContext(r *http.Request) (uuid.UUID, error) {
	userID, ok := middleware.UserUUIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return userID, nil
}
