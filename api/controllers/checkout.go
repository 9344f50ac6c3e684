package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/deshikart/deshikart-backend/api/middleware"
	"github.com/deshikart/deshikart-backend/api/responses"
	"github.com/deshikart/deshikart-backend/api/validators"
	"github.com/deshikart/deshikart-backend/internal/fulfillment"
	"github.com/deshikart/deshikart-backend/internal/orders"
	"github.com/deshikart/deshikart-backend/pkg/config"
	"github.com/deshikart/deshikart-backend/pkg/db/models"
	"github.com/deshikart/deshikart-backend/pkg/enums"
	pkgerrors "github.com/deshikart/deshikart-backend/pkg/errors"
	"github.com/deshikart/deshikart-backend/pkg/logger"
	"github.com/deshikart/deshikart-backend/pkg/metaconv"
	"github.com/google/uuid"
)

const postCommitTimeout = 10 * time.Second

type checkoutItemRequest struct {
	ProductID string  `json:"product_id" validate:"required,uuid"`
	Quantity  int     `json:"quantity" validate:"required,min=1"`
	UnitPrice *string `json:"unit_price,omitempty"`
	Size      *string `json:"size,omitempty" validate:"omitempty,max=32"`
}

type checkoutRequest struct {
	CustomerName  string                `json:"customer_name" validate:"required,min=2,max=120"`
	CustomerPhone string                `json:"customer_phone" validate:"required,min=6,max=20"`
	CustomerEmail *string               `json:"customer_email,omitempty" validate:"omitempty,email"`
	Address       string                `json:"address" validate:"required,min=5,max=500"`
	City          *string               `json:"city,omitempty" validate:"omitempty,max=120"`
	Notes         *string               `json:"notes,omitempty" validate:"omitempty,max=1000"`
	DeliveryType  int                   `json:"delivery_type" validate:"min=0,max=1"`
	Total         *string               `json:"total,omitempty"`
	Items         []checkoutItemRequest `json:"items,omitempty" validate:"omitempty,min=1,dive"`
}

func (p *checkoutRequest) toPlaceOrderInput(sessionKey string) (orders.PlaceOrderInput, error) {
	input := orders.PlaceOrderInput{
		SessionKey: sessionKey,
		Customer: orders.CustomerInfo{
			Name:    validators.SanitizeString(p.CustomerName, 120),
			Phone:   validators.SanitizeString(p.CustomerPhone, 20),
			Email:   p.CustomerEmail,
			Address: validators.SanitizeString(p.Address, 500),
			City:    p.City,
			Notes:   p.Notes,
		},
		DeliveryType: enums.DeliveryType(p.DeliveryType),
	}

	if p.Total != nil {
		total, err := decimal.NewFromString(*p.Total)
		if err != nil {
			return input, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid total")
		}
		input.Total = &total
	}

	for _, item := range p.Items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			return input, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id")
		}
		line := orders.OrderLineInput{
			ProductID: productID,
			Quantity:  item.Quantity,
			Size:      item.Size,
		}
		if item.UnitPrice != nil {
			price, err := decimal.NewFromString(*item.UnitPrice)
			if err != nil {
				return input, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid unit price")
			}
			line.UnitPrice = &price
		}
		input.Items = append(input.Items, line)
	}

	return input, nil
}

// CheckoutDeps bundles everything checkout touches beyond order placement.
// Dispatcher and Pixels are optional; nil disables the post-commit step.
type CheckoutDeps struct {
	Orders     orders.Service
	Dispatcher fulfillment.Service
	Pixels     *metaconv.Client
	Flags      config.FeatureFlagsConfig
}

// Checkout places a cash-on-delivery order. When the payload carries no
// items the lines are built server-side from the session's cart. Stock is
// committed before the response is written; courier dispatch and pixel
// reporting run after the commit and never fail the request.
func Checkout(deps CheckoutDeps, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Orders == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sessionKey := middleware.SessionKeyFromContext(r.Context())
		input, err := payload.toPlaceOrderInput(sessionKey)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := deps.Orders.PlaceOrder(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if deps.Flags.DispatchOnCreate && deps.Dispatcher != nil {
			ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), postCommitTimeout)
			defer cancel()
			if updated, dispatchErr := deps.Dispatcher.Dispatch(ctx, order.ID); dispatchErr != nil {
				logg.Warn(logg.WithField(r.Context(), "error", dispatchErr.Error()), "checkout.dispatch.deferred")
			} else {
				order = updated
			}
		}

		if deps.Pixels != nil && deps.Pixels.Enabled() {
			go reportPurchase(deps.Pixels, logg, order, clientInfoFromRequest(r))
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

func clientInfoFromRequest(r *http.Request) metaconv.ClientInfo {
	info := metaconv.ClientInfo{
		IPAddress: r.RemoteAddr,
		UserAgent: r.UserAgent(),
		SourceURL: r.Referer(),
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		info.IPAddress = forwarded
	}
	return info
}

func reportPurchase(pixels *metaconv.Client, logg *logger.Logger, order *models.Order, client metaconv.ClientInfo) {
	ctx, cancel := context.WithTimeout(context.Background(), postCommitTimeout)
	defer cancel()

	ev := metaconv.PurchaseEvent{
		OrderID:       order.Invoice(),
		Value:         order.Total,
		Currency:      "BDT",
		CustomerName:  order.CustomerName,
		CustomerPhone: order.CustomerPhone,
		NumItems:      len(order.Items),
		Client:        client,
	}
	if order.CustomerEmail != nil {
		ev.CustomerEmail = *order.CustomerEmail
	}
	for i := range order.Items {
		ev.ContentIDs = append(ev.ContentIDs, order.Items[i].ProductID.String())
	}

	if err := pixels.SendPurchase(ctx, ev); err != nil {
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "checkout.pixel.purchase_failed")
	}
}
