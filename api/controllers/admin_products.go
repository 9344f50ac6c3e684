package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/deshikart/deshikart-backend/api/responses"
	"github.com/deshikart/deshikart-backend/api/validators"
	"github.com/deshikart/deshikart-backend/internal/catalog"
	"github.com/deshikart/deshikart-backend/pkg/enums"
	pkgerrors "github.com/deshikart/deshikart-backend/pkg/errors"
	"github.com/deshikart/deshikart-backend/pkg/logger"
)

type createProductRequest struct {
	Name         string   `json:"name" validate:"required,min=2,max=200"`
	Description  string   `json:"description" validate:"max=5000"`
	Category     string   `json:"category" validate:"required"`
	RegularPrice string   `json:"regular_price" validate:"required"`
	OfferPrice   *string  `json:"offer_price,omitempty"`
	ImageURL     *string  `json:"image_url,omitempty" validate:"omitempty,max=2000"`
	Sizes        []string `json:"sizes,omitempty" validate:"omitempty,dive,max=32"`
	Stock        int      `json:"stock" validate:"min=0"`
	IsActive     *bool    `json:"is_active,omitempty"`
}

func (p *createProductRequest) toCreateInput() (catalog.CreateProductInput, error) {
	input := catalog.CreateProductInput{
		Name:        validators.SanitizeString(p.Name, 200),
		Description: validators.SanitizeString(p.Description, 5000),
		Category:    enums.ProductCategory(p.Category),
		ImageURL:    p.ImageURL,
		Sizes:       p.Sizes,
		Stock:       p.Stock,
		IsActive:    p.IsActive,
	}

	regular, err := decimal.NewFromString(p.RegularPrice)
	if err != nil {
		return input, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid regular price")
	}
	input.RegularPrice = regular

	if p.OfferPrice != nil {
		offer, err := decimal.NewFromString(*p.OfferPrice)
		if err != nil {
			return input, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid offer price")
		}
		input.OfferPrice = &offer
	}

	return input, nil
}

type updateProductRequest struct {
	Name         *string  `json:"name,omitempty" validate:"omitempty,min=2,max=200"`
	Description  *string  `json:"description,omitempty" validate:"omitempty,max=5000"`
	Category     *string  `json:"category,omitempty"`
	RegularPrice *string  `json:"regular_price,omitempty"`
	OfferPrice   *string  `json:"offer_price,omitempty"`
	ClearOffer   bool     `json:"clear_offer,omitempty"`
	ImageURL     *string  `json:"image_url,omitempty" validate:"omitempty,max=2000"`
	Sizes        []string `json:"sizes,omitempty" validate:"omitempty,dive,max=32"`
	Stock        *int     `json:"stock,omitempty" validate:"omitempty,min=0"`
	IsActive     *bool    `json:"is_active,omitempty"`
}

func (p *updateProductRequest) toUpdateInput() (catalog.UpdateProductInput, error) {
	input := catalog.UpdateProductInput{
		Name:        p.Name,
		Description: p.Description,
		ClearOffer:  p.ClearOffer,
		ImageURL:    p.ImageURL,
		Sizes:       p.Sizes,
		Stock:       p.Stock,
		IsActive:    p.IsActive,
	}

	if p.Category != nil {
		category := enums.ProductCategory(*p.Category)
		input.Category = &category
	}
	if p.RegularPrice != nil {
		regular, err := decimal.NewFromString(*p.RegularPrice)
		if err != nil {
			return input, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid regular price")
		}
		input.RegularPrice = &regular
	}
	if p.OfferPrice != nil {
		offer, err := decimal.NewFromString(*p.OfferPrice)
		if err != nil {
			return input, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid offer price")
		}
		input.OfferPrice = &offer
	}

	return input, nil
}

type setBestSellingRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Position  int    `json:"position" validate:"min=0"`
}

type createNotificationRequest struct {
	Message  string `json:"message" validate:"required,min=1,max=500"`
	Activate bool   `json:"activate,omitempty"`
}

// AdminListProducts returns the full catalog including inactive products.
func AdminListProducts(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		filters := catalog.ProductFilters{}
		if raw := r.URL.Query().Get("category"); raw != "" {
			category := enums.ProductCategory(raw)
			filters.Category = &category
		}

		products, err := svc.ListProducts(r.Context(), filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, products)
	}
}

// AdminGetProduct returns a product by id regardless of active state.
func AdminGetProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		product, err := svc.GetProduct(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// AdminCreateProduct adds a catalog entry.
func AdminCreateProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toCreateInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.CreateProduct(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

// AdminUpdateProduct applies a sparse update to a product.
func AdminUpdateProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toUpdateInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.UpdateProduct(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// AdminDeleteProduct removes a product from the catalog.
func AdminDeleteProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		if err := svc.DeleteProduct(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// AdminSetBestSelling pins a product into the best-selling rail.
func AdminSetBestSelling(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		var payload setBestSellingRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := uuid.Parse(payload.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		entry, err := svc.SetBestSelling(r.Context(), productID, payload.Position)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, entry)
	}
}

// AdminRemoveBestSelling drops a product from the best-selling rail.
func AdminRemoveBestSelling(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		productID, err := uuid.Parse(chi.URLParam(r, "productID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		if err := svc.RemoveBestSelling(r.Context(), productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "removed"})
	}
}

// AdminListNotifications returns every storefront banner, active or not.
func AdminListNotifications(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		notifications, err := svc.ListNotifications(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, notifications)
	}
}

// AdminCreateNotification adds a banner, optionally activating it.
func AdminCreateNotification(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		var payload createNotificationRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		notification, err := svc.CreateNotification(r.Context(), payload.Message, payload.Activate)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, notification)
	}
}

// AdminActivateNotification makes a banner the single active one.
func AdminActivateNotification(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid notification id"))
			return
		}

		if err := svc.ActivateNotification(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "activated"})
	}
}

// AdminDeleteNotification removes a banner.
func AdminDeleteNotification(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid notification id"))
			return
		}

		if err := svc.DeleteNotification(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
