package controllers

import (
	"net/http"

	"github.com/grmc/storefront-backend/api/responses"
	"github.com/grmc/storefront-backend/api/validators"
	checkoutsvc "github.com/grmc/storefront-backend/internal/checkout"
	"github.com/grmc/storefront-backend/pkg/logger"
)

// Checkout turns the caller's cart into an order and answers with the invoice redirect.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := ownerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload checkoutsvc.Request
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Submit(r.Context(), owner, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
