package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/grmc/storefront-backend/api/responses"
	"github.com/grmc/storefront-backend/api/validators"
	productsvc "github.com/grmc/storefront-backend/internal/products"
	"github.com/grmc/storefront-backend/pkg/enums"
	pkgerrors "github.com/grmc/storefront-backend/pkg/errors"
	"github.com/grmc/storefront-backend/pkg/logger"
	"github.com/grmc/storefront-backend/pkg/pagination"
)

// ProductList serves the public catalog with search, category, price and sort filters.
func ProductList(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		sort, err := enums.ParseProductSort(strings.TrimSpace(q.Get("sort")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid sort"))
			return
		}
		minPrice, err := validators.ParseQueryDecimal(r, "min_price")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		maxPrice, err := validators.ParseQueryDecimal(r, "max_price")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter := productsvc.Filter{
			Query:    strings.TrimSpace(q.Get("q")),
			Category: strings.TrimSpace(q.Get("category")),
			MinPrice: minPrice,
			MaxPrice: maxPrice,
			Sort:     sort,
		}
		result, err := svc.List(r.Context(), filter, pagination.FromQuery(q))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func ProductCategories(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categories, err := svc.Categories(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, categories)
	}
}

// ProductDetail accepts a numeric id or, for legacy links, a product name.
func ProductDetail(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			product *productsvc.ProductDTO
			err     error
		)
		if id, parseErr := validators.ParseIDParam(r, "productId"); parseErr == nil {
			product, err = svc.Get(r.Context(), id)
		} else {
			product, err = svc.GetByName(r.Context(), chi.URLParam(r, "productId"))
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func ProductRelated(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", productsvc.DefaultRelatedLimit, 1, 20)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		related, err := svc.Related(r.Context(), id, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, related)
	}
}

type productRequest struct {
	Code     string  `json:"code" validate:"required,max=64"`
	Name     string  `json:"name" validate:"required,max=200"`
	Details  string  `json:"details"`
	Price    string  `json:"price" validate:"required,money"`
	Liters   *string `json:"liters" validate:"omitempty,money"`
	Stock    int     `json:"stock" validate:"min=0"`
	Category string  `json:"category" validate:"max=100"`
	Image    string  `json:"image"`
}

func (p productRequest) toInput() (productsvc.ProductInput, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(p.Price))
	if err != nil {
		return productsvc.ProductInput{}, pkgerrors.New(pkgerrors.CodeValidation, "price must be a number").WithDetails(map[string]any{"field": "price"})
	}
	input := productsvc.ProductInput{
		Code:     p.Code,
		Name:     p.Name,
		Details:  p.Details,
		Price:    price,
		Stock:    p.Stock,
		Category: p.Category,
		Image:    p.Image,
	}
	if p.Liters != nil && strings.TrimSpace(*p.Liters) != "" {
		liters, err := decimal.NewFromString(strings.TrimSpace(*p.Liters))
		if err != nil {
			return productsvc.ProductInput{}, pkgerrors.New(pkgerrors.CodeValidation, "liters must be a number").WithDetails(map[string]any{"field": "liters"})
		}
		input.Liters = &liters
	}
	return input, nil
}

func AdminProductList(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		result, err := svc.AdminList(r.Context(), strings.TrimSpace(q.Get("q")), pagination.FromQuery(q))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func AdminProductCreate(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload productRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

func AdminProductUpdate(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload productRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.Update(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func AdminProductDelete(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"deleted": id})
	}
}

// AdminProductImage accepts a multipart "image" field and stores it in the products bucket.
func AdminProductImage(svc productsvc.Service, maxBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := validators.ParseMultipart(w, r, maxBytes); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		file, err := validators.OptionalFile(r, "image")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if file == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "image file is required"))
			return
		}
		defer file.Close()

		product, err := svc.UploadImage(r.Context(), id, productsvc.ImageUpload{
			Filename:    file.Filename,
			ContentType: file.ContentType,
			Body:        file.File,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}
