package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/deshikart/deshikart-backend/api/middleware"
	"github.com/deshikart/deshikart-backend/api/responses"
	"github.com/deshikart/deshikart-backend/api/validators"
	cartsvc "github.com/deshikart/deshikart-backend/internal/cart"
	pkgerrors "github.com/deshikart/deshikart-backend/pkg/errors"
	"github.com/deshikart/deshikart-backend/pkg/logger"
	"github.com/deshikart/deshikart-backend/pkg/metaconv"
)

type addCartItemRequest struct {
	ProductID string  `json:"product_id" validate:"required,uuid"`
	Quantity  int     `json:"quantity" validate:"required,min=1"`
	Size      *string `json:"size,omitempty" validate:"omitempty,max=32"`
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

// GetCart returns the session's cart, creating an empty view when the
// session has never added anything.
func GetCart(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		sessionKey := middleware.SessionKeyFromContext(r.Context())
		cart, err := svc.GetCart(r.Context(), sessionKey)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cart)
	}
}

// AddCartItem adds a product to the session's cart, merging quantity when
// the product is already present. Pixels is optional; when configured an
// AddToCart event is reported after the write, never failing the request.
func AddCartItem(svc cartsvc.Service, pixels *metaconv.Client, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		var payload addCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := uuid.Parse(payload.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		sessionKey := middleware.SessionKeyFromContext(r.Context())
		cart, err := svc.AddItem(r.Context(), sessionKey, cartsvc.AddItemInput{
			ProductID: productID,
			Quantity:  payload.Quantity,
			Size:      payload.Size,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if pixels != nil && pixels.Enabled() {
			go reportAddToCart(pixels, logg, productID, clientInfoFromRequest(r))
		}
		responses.WriteSuccess(w, cart)
	}
}

// UpdateCartItem replaces the quantity of a cart line.
func UpdateCartItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cart item id"))
			return
		}

		var payload updateCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sessionKey := middleware.SessionKeyFromContext(r.Context())
		cart, err := svc.UpdateItemQuantity(r.Context(), sessionKey, itemID, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cart)
	}
}

// RemoveCartItem deletes a cart line. Removing a line that is already gone
// succeeds.
func RemoveCartItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cart item id"))
			return
		}

		sessionKey := middleware.SessionKeyFromContext(r.Context())
		cart, err := svc.RemoveItem(r.Context(), sessionKey, itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cart)
	}
}

// ClearCart empties the session's cart.
func ClearCart(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		sessionKey := middleware.SessionKeyFromContext(r.Context())
		if err := svc.Clear(r.Context(), sessionKey); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "cleared"})
	}
}

func reportAddToCart(pixels *metaconv.Client, logg *logger.Logger, productID uuid.UUID, client metaconv.ClientInfo) {
	ctx, cancel := context.WithTimeout(context.Background(), postCommitTimeout)
	defer cancel()

	ev := metaconv.AddToCartEvent{ProductID: productID.String(), Client: client}
	if err := pixels.SendAddToCart(ctx, ev); err != nil {
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "cart.pixel.add_to_cart_failed")
	}
}
