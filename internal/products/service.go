package products

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/grmc/storefront-backend/pkg/db"
	"github.com/grmc/storefront-backend/pkg/db/models"
	"github.com/grmc/storefront-backend/pkg/enums"
	pkgerrors "github.com/grmc/storefront-backend/pkg/errors"
	"github.com/grmc/storefront-backend/pkg/images"
	"github.com/grmc/storefront-backend/pkg/pagination"
	"github.com/grmc/storefront-backend/pkg/storage"
	"github.com/grmc/storefront-backend/pkg/types"
)

const (
	DefaultRelatedLimit = 4
	imageObjectPrefix   = "catalog"
)

// Service exposes the public catalog and its admin management.
type Service interface {
	List(ctx context.Context, filter Filter, page pagination.Params) (*ListResult, error)
	Get(ctx context.Context, id int64) (*ProductDTO, error)
	GetByName(ctx context.Context, name string) (*ProductDTO, error)
	Related(ctx context.Context, id int64, limit int) ([]ProductDTO, error)
	Categories(ctx context.Context) ([]string, error)

	AdminList(ctx context.Context, search string, page pagination.Params) (*ListResult, error)
	Create(ctx context.Context, input ProductInput) (*ProductDTO, error)
	Update(ctx context.Context, id int64, input ProductInput) (*ProductDTO, error)
	Delete(ctx context.Context, id int64) error
	UploadImage(ctx context.Context, id int64, upload ImageUpload) (*ProductDTO, error)

	FindByID(ctx context.Context, id int64) (*models.Product, error)
	DecrementStock(ctx context.Context, id int64, qty int) error
}

// ProductInput is the admin create/update payload.
type ProductInput struct {
	Code     string
	Name     string
	Details  string
	Price    decimal.Decimal
	Liters   *decimal.Decimal
	Stock    int
	Category string
	Image    string
}

// ImageUpload is a product photo received from the admin form.
type ImageUpload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

type repository interface {
	FindByID(ctx context.Context, id int64) (*models.Product, error)
	FindByName(ctx context.Context, name string) (*models.Product, error)
	List(ctx context.Context, filter Filter, page pagination.Params) ([]models.Product, int64, error)
	AdminList(ctx context.Context, search string, page pagination.Params) ([]models.Product, int64, error)
	Related(ctx context.Context, product *models.Product, limit int) ([]models.Product, error)
	Categories(ctx context.Context) ([]string, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	UpdateImage(ctx context.Context, id int64, image string) error
	Delete(ctx context.Context, id int64) error
	DecrementStock(ctx context.Context, id int64, qty int) error
}

type uploader interface {
	Upload(ctx context.Context, bucket, object, contentType string, body io.Reader) (string, error)
}

// ServiceParams groups dependencies for the product service.
type ServiceParams struct {
	Repo     repository
	Resolver images.Resolver
	// Uploader and Bucket are optional; without them image upload is rejected.
	Uploader uploader
	Bucket   string
	Now      func() time.Time
}

type service struct {
	repo     repository
	resolver images.Resolver
	uploader uploader
	bucket   string
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product repo is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:     params.Repo,
		resolver: params.Resolver,
		uploader: params.Uploader,
		bucket:   params.Bucket,
		now:      now,
	}, nil
}

func (s *service) List(ctx context.Context, filter Filter, page pagination.Params) (*ListResult, error) {
	if filter.MinPrice != nil && filter.MaxPrice != nil && filter.MinPrice.GreaterThan(*filter.MaxPrice) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "min_price must not exceed max_price")
	}
	page = page.Normalize()
	rows, total, err := s.repo.List(ctx, filter, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return s.page(rows, total, page), nil
}

func (s *service) Get(ctx context.Context, id int64) (*ProductDTO, error) {
	product, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := toDTO(*product, s.resolver)
	return &dto, nil
}

func (s *service) GetByName(ctx context.Context, name string) (*ProductDTO, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	}
	product, err := s.repo.FindByName(ctx, name)
	if err != nil {
		return nil, notFoundOr(err, "product not found", "load product")
	}
	dto := toDTO(*product, s.resolver)
	return &dto, nil
}

func (s *service) Related(ctx context.Context, id int64, limit int) ([]ProductDTO, error) {
	if limit <= 0 {
		limit = DefaultRelatedLimit
	}
	product, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.Related(ctx, product, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list related products")
	}
	return toDTOs(rows, s.resolver), nil
}

func (s *service) Categories(ctx context.Context) ([]string, error) {
	categories, err := s.repo.Categories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	if categories == nil {
		categories = []string{}
	}
	return categories, nil
}

func (s *service) AdminList(ctx context.Context, search string, page pagination.Params) (*ListResult, error) {
	page = page.Normalize()
	rows, total, err := s.repo.AdminList(ctx, search, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return s.page(rows, total, page), nil
}

func (s *service) Create(ctx context.Context, input ProductInput) (*ProductDTO, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	product := &models.Product{CreatedAt: now}
	applyInput(product, input, now)
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	dto := toDTO(*product, s.resolver)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, id int64, input ProductInput) (*ProductDTO, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	product, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	applyInput(product, input, s.now().UTC())
	if err := s.repo.Update(ctx, product); err != nil {
		return nil, notFoundOr(err, "product not found", "update product")
	}
	dto := toDTO(*product, s.resolver)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFoundOr(err, "product not found", "delete product")
	}
	return nil
}

func (s *service) UploadImage(ctx context.Context, id int64, upload ImageUpload) (*ProductDTO, error) {
	if s.uploader == nil || s.bucket == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "image uploads are not configured")
	}
	if upload.Body == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "image file is required")
	}
	product, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	object, err := storage.ObjectName(imageObjectPrefix, upload.Filename, s.now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "name image object")
	}
	if _, err := s.uploader.Upload(ctx, s.bucket, object, upload.ContentType, upload.Body); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upload product image")
	}
	if err := s.repo.UpdateImage(ctx, id, object); err != nil {
		return nil, notFoundOr(err, "product not found", "save product image")
	}
	product.Image = object
	dto := toDTO(*product, s.resolver)
	return &dto, nil
}

func (s *service) FindByID(ctx context.Context, id int64) (*models.Product, error) {
	if id <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "product not found", "load product")
	}
	return product, nil
}

func (s *service) DecrementStock(ctx context.Context, id int64, qty int) error {
	if id <= 0 || qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id and positive quantity are required")
	}
	if err := s.repo.DecrementStock(ctx, id, qty); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement stock")
	}
	return nil
}

func (s *service) page(rows []models.Product, total int64, page pagination.Params) *ListResult {
	return &ListResult{
		Items: toDTOs(rows, s.resolver),
		Meta:  types.PageMeta{Page: page.Page, Limit: page.Limit, Total: total},
	}
}

func validateInput(input ProductInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	}
	if input.Price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	if input.Liters != nil && input.Liters.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "liters must not be negative")
	}
	if input.Stock < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "stock must not be negative")
	}
	return nil
}

func applyInput(product *models.Product, input ProductInput, now time.Time) {
	product.Code = strings.TrimSpace(input.Code)
	product.Name = strings.TrimSpace(input.Name)
	product.Details = strings.TrimSpace(input.Details)
	product.Price = input.Price.Round(3)
	product.Liters = input.Liters
	product.Stock = input.Stock
	product.Category = strings.TrimSpace(input.Category)
	product.Image = strings.TrimSpace(input.Image)
	product.UpdatedAt = now
}

func notFoundOr(err error, notFound, dependency string) error {
	if db.IsNotFound(err) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, notFound)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, dependency)
}

// ParseSort is a convenience for controllers reading ?sort=.
func ParseSort(raw string) (enums.ProductSort, error) {
	sort, err := enums.ParseProductSort(strings.TrimSpace(raw))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid sort")
	}
	return sort, nil
}
