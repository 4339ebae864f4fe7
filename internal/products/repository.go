package products

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/grmc/storefront-backend/internal/repo"
	"github.com/grmc/storefront-backend/pkg/db/models"
	"github.com/grmc/storefront-backend/pkg/enums"
	"github.com/grmc/storefront-backend/pkg/pagination"
)

// Filter narrows the public catalog listing.
type Filter struct {
	Query    string
	Category string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Sort     enums.ProductSort
}

// Repository persists catalog products.
type Repository struct {
	repo.Base
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Bind(tx)}
}

func (r *Repository) FindByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	if err := r.DB(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *Repository) FindByName(ctx context.Context, name string) (*models.Product, error) {
	var product models.Product
	if err := r.DB(ctx).Where("name = ?", name).Order("id DESC").First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// List returns one page of the public catalog and the total match count.
func (r *Repository) List(ctx context.Context, filter Filter, page pagination.Params) ([]models.Product, int64, error) {
	query := r.DB(ctx).Model(&models.Product{})
	if q := strings.TrimSpace(filter.Query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(code) LIKE ? OR LOWER(details) LIKE ?", like, like, like)
	}
	if c := strings.TrimSpace(filter.Category); c != "" {
		query = query.Where("category = ?", c)
	}
	if filter.MinPrice != nil {
		query = query.Where("price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		query = query.Where("price <= ?", *filter.MaxPrice)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Product
	err := query.Order(sortClause(filter.Sort)).Scopes(page.Scope()).Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// AdminList searches name and code, newest id first.
func (r *Repository) AdminList(ctx context.Context, search string, page pagination.Params) ([]models.Product, int64, error) {
	query := r.DB(ctx).Model(&models.Product{})
	if q := strings.TrimSpace(search); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(code) LIKE ?", like, like)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.Product
	if err := query.Order("id DESC").Scopes(page.Scope()).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// Related returns other products from the same category.
func (r *Repository) Related(ctx context.Context, product *models.Product, limit int) ([]models.Product, error) {
	var rows []models.Product
	query := r.DB(ctx).Where("id <> ?", product.ID)
	if product.Category != "" {
		query = query.Where("category = ?", product.Category)
	}
	if err := query.Order("id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	err := r.DB(ctx).Model(&models.Product{}).
		Where("category <> ''").
		Distinct("category").
		Order("category ASC").
		Pluck("category", &categories).Error
	return categories, err
}

func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	return r.DB(ctx).Create(product).Error
}

// Update writes the editable columns of product.
func (r *Repository) Update(ctx context.Context, product *models.Product) error {
	res := r.DB(ctx).Model(&models.Product{}).Where("id = ?", product.ID).Updates(map[string]any{
		"code":       product.Code,
		"name":       product.Name,
		"details":    product.Details,
		"price":      product.Price,
		"liters":     product.Liters,
		"image":      product.Image,
		"category":   product.Category,
		"stock":      product.Stock,
		"updated_at": product.UpdatedAt,
	})
	return repo.Affected(res)
}

func (r *Repository) UpdateImage(ctx context.Context, id int64, image string) error {
	res := r.DB(ctx).Model(&models.Product{}).Where("id = ?", id).Update("image", image)
	return repo.Affected(res)
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	res := r.DB(ctx).Where("id = ?", id).Delete(&models.Product{})
	return repo.Affected(res)
}

// DecrementStock lowers stock by qty. On Postgres it goes through the
// decrement_stock function installed by migration.
func (r *Repository) DecrementStock(ctx context.Context, id int64, qty int) error {
	db := r.DB(ctx)
	if db.Dialector != nil && db.Dialector.Name() == "postgres" {
		return db.Exec("SELECT decrement_stock(?, ?)", id, qty).Error
	}
	return db.Exec("UPDATE products SET stock = stock - ? WHERE id = ?", qty, id).Error
}

func sortClause(sort enums.ProductSort) string {
	switch sort {
	case enums.ProductSortPriceAsc:
		return "price ASC, id DESC"
	case enums.ProductSortPriceDesc:
		return "price DESC, id DESC"
	default:
		return "id DESC"
	}
}
