package controllers

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/grmc/storefront-backend/api/middleware"
	"github.com/grmc/storefront-backend/api/responses"
	"github.com/grmc/storefront-backend/api/validators"
	"github.com/grmc/storefront-backend/internal/access"
	orderssvc "github.com/grmc/storefront-backend/internal/orders"
	"github.com/grmc/storefront-backend/pkg/logger"
)

//go:embed templates/*.html
var templateFS embed.FS

var (
	shellTemplate   = template.Must(template.ParseFS(templateFS, "templates/shell.html"))
	invoiceTemplate = template.Must(template.Must(shellTemplate.Clone()).ParseFS(templateFS, "templates/invoice.html"))
)

type pageData struct {
	Title string
	Page  string
}

type invoicePageData struct {
	pageData
	Order    *orderssvc.OrderDTO
	Currency string
}

// Page serves the RTL shell for a client-rendered page. Access has already
// been decided by the page gate.
func Page(name, title string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		renderHTML(w, r, shellTemplate, pageData{Title: title, Page: name}, logg)
	}
}

// InvoicePage renders an order server-side for its owner or an admin.
// Anonymous visitors are sent to the login page.
func InvoicePage(svc orderssvc.Service, roles access.RoleLookup, currency string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())
		if userID == "" {
			http.Redirect(w, r, access.LoginPath, http.StatusFound)
			return
		}
		orderID, err := validators.ParseIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		viewer := orderssvc.Viewer{UserID: userID, Role: viewerRole(r.Context(), userID, roles, logg)}
		order, err := svc.Invoice(r.Context(), orderID, viewer)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		data := invoicePageData{
			pageData: pageData{Title: "فاتورة", Page: "invoice"},
			Order:    order,
			Currency: currency,
		}
		renderHTML(w, r, invoiceTemplate, data, logg)
	}
}

func renderHTML(w http.ResponseWriter, r *http.Request, tmpl *template.Template, data any, logg *logger.Logger) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "shell", data); err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
