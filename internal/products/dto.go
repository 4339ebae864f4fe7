package products

import (
	"time"

	"github.com/grmc/storefront-backend/pkg/db/models"
	"github.com/grmc/storefront-backend/pkg/images"
	"github.com/grmc/storefront-backend/pkg/types"
)

// ProductDTO is the catalog payload returned to clients.
type ProductDTO struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Details   string    `json:"details"`
	Price     string    `json:"price"`
	Liters    *string   `json:"liters,omitempty"`
	Image     string    `json:"image"`
	ImageURL  string    `json:"image_url"`
	Category  string    `json:"category"`
	Stock     int       `json:"stock"`
	InStock   bool      `json:"in_stock"`
	CreatedAt time.Time `json:"created_at"`
}

// ListResult is one page of products.
type ListResult struct {
	Items []ProductDTO   `json:"items"`
	Meta  types.PageMeta `json:"meta"`
}

func toDTO(p models.Product, resolver images.Resolver) ProductDTO {
	dto := ProductDTO{
		ID:        p.ID,
		Code:      p.Code,
		Name:      p.Name,
		Details:   p.Details,
		Price:     p.Price.StringFixed(3),
		Image:     p.Image,
		ImageURL:  resolver.Resolve(p.Image),
		Category:  p.Category,
		Stock:     p.Stock,
		InStock:   p.Stock > 0,
		CreatedAt: p.CreatedAt,
	}
	if p.Liters != nil {
		liters := p.Liters.StringFixed(3)
		dto.Liters = &liters
	}
	return dto
}

func toDTOs(rows []models.Product, resolver images.Resolver) []ProductDTO {
	out := make([]ProductDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDTO(row, resolver))
	}
	return out
}
