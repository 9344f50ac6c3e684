package controllers

import (
	"net/http"

	"github.com/deshikart/deshikart-backend/api/responses"
	"github.com/deshikart/deshikart-backend/api/validators"
	authsvc "github.com/deshikart/deshikart-backend/internal/auth"
	pkgerrors "github.com/deshikart/deshikart-backend/pkg/errors"
	"github.com/deshikart/deshikart-backend/pkg/logger"
)

type loginRequest struct {
	Username string `json:"username" validate:"required,min=1,max=120"`
	Password string `json:"password" validate:"required,min=1,max=256"`
}

// AdminLogin exchanges operator credentials for a bearer token.
func AdminLogin(svc authsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var payload loginRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Login(r.Context(), payload.Username, payload.Password)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
