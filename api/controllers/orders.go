package controllers

import (
	"context"
	"net/http"

	"github.com/grmc/storefront-backend/api/middleware"
	"github.com/grmc/storefront-backend/api/responses"
	"github.com/grmc/storefront-backend/api/validators"
	"github.com/grmc/storefront-backend/internal/access"
	orderssvc "github.com/grmc/storefront-backend/internal/orders"
	"github.com/grmc/storefront-backend/pkg/enums"
	"github.com/grmc/storefront-backend/pkg/logger"
)

func OrderHistory(svc orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := ownerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, err := svc.ListForUser(r.Context(), owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if items == nil {
			items = []orderssvc.OrderDTO{}
		}
		responses.WriteSuccess(w, items)
	}
}

// OrderInvoice serves an order to its owner, or to any admin.
func OrderInvoice(svc orderssvc.Service, roles access.RoleLookup, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := ownerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		viewer := orderssvc.Viewer{UserID: owner, Role: viewerRole(r.Context(), owner, roles, logg)}
		order, err := svc.Invoice(r.Context(), orderID, viewer)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// viewerRole asks the profile store, which owns the role. Without a lookup it
// falls back to the role carried by the request; failures degrade to a plain user.
func viewerRole(ctx context.Context, userID string, roles access.RoleLookup, logg *logger.Logger) enums.Role {
	if roles == nil {
		if role := enums.Role(middleware.RoleFromContext(ctx)); role.IsValid() {
			return role
		}
		return enums.RoleUser
	}
	role, err := roles.RoleOf(ctx, userID)
	if err != nil {
		if logg != nil {
			logg.WarnErr(ctx, "orders.viewer_role_lookup_failed", err)
		}
		return enums.RoleUser
	}
	if !role.IsValid() {
		return enums.RoleUser
	}
	return role
}
