package products

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/grmc/storefront-backend/pkg/db/dbtest"
	"github.com/grmc/storefront-backend/pkg/db/models"
	"github.com/grmc/storefront-backend/pkg/enums"
	pkgerrors "github.com/grmc/storefront-backend/pkg/errors"
	"github.com/grmc/storefront-backend/pkg/images"
	"github.com/grmc/storefront-backend/pkg/pagination"
)

var fixedNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, up uploader) (Service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t, dbtest.Products)
	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(conn),
		Resolver: images.Resolver{StorageBaseURL: "https://s.example"},
		Uploader: up,
		Bucket:   "products",
		Now:      func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	return svc, conn
}

func seedProduct(t *testing.T, conn *gorm.DB, name, category, price string, stock int) *models.Product {
	t.Helper()
	p := &models.Product{
		Code:      "C-" + name,
		Name:      name,
		Details:   name + " details",
		Price:     decimal.RequireFromString(price),
		Category:  category,
		Stock:     stock,
		CreatedAt: fixedNow,
		UpdatedAt: fixedNow,
	}
	require.NoError(t, conn.Create(p).Error)
	return p
}

func TestListFiltersAndSorts(t *testing.T) {
	svc, conn := newTestService(t, nil)
	ctx := context.Background()
	seedProduct(t, conn, "White Tile", "tiles", "5.500", 10)
	seedProduct(t, conn, "Grey Tile", "tiles", "3.250", 0)
	seedProduct(t, conn, "Marble Powder", "powder", "12.000", 4)

	res, err := svc.List(ctx, Filter{}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, res.Items, 3)
	assert.Equal(t, "Marble Powder", res.Items[0].Name, "default sort is newest id first")
	assert.Equal(t, int64(3), res.Meta.Total)

	res, err = svc.List(ctx, Filter{Category: "tiles", Sort: enums.ProductSortPriceAsc}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "Grey Tile", res.Items[0].Name)
	assert.Equal(t, "3.250", res.Items[0].Price)
	assert.False(t, res.Items[0].InStock)

	min := decimal.RequireFromString("4")
	res, err = svc.List(ctx, Filter{MinPrice: &min, Sort: enums.ProductSortPriceDesc}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "Marble Powder", res.Items[0].Name)

	res, err = svc.List(ctx, Filter{Query: "powder"}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)

	res, err = svc.List(ctx, Filter{}, pagination.Params{Page: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, 2, res.Meta.Page)

	max := decimal.RequireFromString("1")
	_, err = svc.List(ctx, Filter{MinPrice: &min, MaxPrice: &max}, pagination.Params{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestGetRelatedAndCategories(t *testing.T) {
	svc, conn := newTestService(t, nil)
	ctx := context.Background()
	a := seedProduct(t, conn, "A", "tiles", "1", 1)
	seedProduct(t, conn, "B", "tiles", "1", 1)
	seedProduct(t, conn, "C", "powder", "1", 1)
	seedProduct(t, conn, "D", "", "1", 1)

	dto, err := svc.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", dto.Name)
	assert.Equal(t, "/images/placeholder-product.png", dto.ImageURL)

	byName, err := svc.GetByName(ctx, "B")
	require.NoError(t, err)
	assert.Equal(t, "tiles", byName.Category)

	related, err := svc.Related(ctx, a.ID, 0)
	require.NoError(t, err)
	require.Len(t, related, 1)
	assert.Equal(t, "B", related[0].Name)

	categories, err := svc.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"powder", "tiles"}, categories)

	_, err = svc.Get(ctx, 9999)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestAdminCreateUpdateDelete(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	liters := decimal.RequireFromString("2.5")
	created, err := svc.Create(ctx, ProductInput{
		Code:     " GR-1 ",
		Name:     "Garden Rocks",
		Price:    decimal.RequireFromString("7.1234"),
		Liters:   &liters,
		Stock:    12,
		Category: "garden",
		Image:    "garden/rocks.png",
	})
	require.NoError(t, err)
	assert.Equal(t, "GR-1", created.Code)
	assert.Equal(t, "7.123", created.Price)
	require.NotNil(t, created.Liters)
	assert.Equal(t, "2.500", *created.Liters)
	assert.Equal(t, "https://s.example/storage/v1/object/public/products/garden/rocks.png", created.ImageURL)

	updated, err := svc.Update(ctx, created.ID, ProductInput{Name: "Garden Rocks XL", Price: decimal.NewFromInt(9), Stock: 3})
	require.NoError(t, err)
	assert.Equal(t, "Garden Rocks XL", updated.Name)
	assert.Nil(t, updated.Liters)

	list, err := svc.AdminList(ctx, "xl", pagination.Params{})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)

	require.NoError(t, svc.Delete(ctx, created.ID))
	err = svc.Delete(ctx, created.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, ProductInput{Name: " ", Price: decimal.NewFromInt(1)})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = svc.Create(ctx, ProductInput{Name: "x", Price: decimal.NewFromInt(-1)})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = svc.Create(ctx, ProductInput{Name: "x", Price: decimal.NewFromInt(1), Stock: -2})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestDecrementStock(t *testing.T) {
	svc, conn := newTestService(t, nil)
	ctx := context.Background()
	p := seedProduct(t, conn, "Tile", "tiles", "1", 5)

	require.NoError(t, svc.DecrementStock(ctx, p.ID, 2))
	var stock int
	require.NoError(t, conn.Raw("SELECT stock FROM products WHERE id = ?", p.ID).Scan(&stock).Error)
	assert.Equal(t, 3, stock)

	require.Error(t, svc.DecrementStock(ctx, p.ID, 0))
}

type fakeUploader struct {
	bucket, object, contentType string
	body                        []byte
}

func (f *fakeUploader) Upload(ctx context.Context, bucket, object, contentType string, body io.Reader) (string, error) {
	f.bucket, f.object, f.contentType = bucket, object, contentType
	f.body, _ = io.ReadAll(body)
	return "https://cdn.example/" + bucket + "/" + object, nil
}

func TestUploadImage(t *testing.T) {
	up := &fakeUploader{}
	svc, conn := newTestService(t, up)
	p := seedProduct(t, conn, "Tile", "tiles", "1", 5)

	dto, err := svc.UploadImage(context.Background(), p.ID, ImageUpload{
		Filename:    "Photo.PNG",
		ContentType: "image/png",
		Body:        bytes.NewReader([]byte("png")),
	})
	require.NoError(t, err)
	assert.Equal(t, "products", up.bucket)
	assert.Regexp(t, `^catalog/\d+_[a-z0-9]{6}\.png$`, up.object)
	assert.Equal(t, up.object, dto.Image)
	assert.Equal(t, []byte("png"), up.body)

	noUploads, _ := newTestService(t, nil)
	_, err = noUploads.UploadImage(context.Background(), p.ID, ImageUpload{Body: bytes.NewReader(nil)})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}
