package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/grmc/storefront-backend/internal/cart"
	"github.com/grmc/storefront-backend/internal/orders"
	"github.com/grmc/storefront-backend/internal/products"
	"github.com/grmc/storefront-backend/internal/state"
	"github.com/grmc/storefront-backend/pkg/db/dbtest"
	"github.com/grmc/storefront-backend/pkg/db/models"
	pkgerrors "github.com/grmc/storefront-backend/pkg/errors"
)

var fixedNow = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

type memoryState struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func (m *memoryState) key(kind state.Kind, owner string) string { return string(kind) + ":" + owner }

func (m *memoryState) Load(ctx context.Context, kind state.Kind, owner string, dst any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.blobs[m.key(kind, owner)]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (m *memoryState) Save(ctx context.Context, kind state.Kind, owner string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.blobs == nil {
		m.blobs = map[string][]byte{}
	}
	m.blobs[m.key(kind, owner)] = raw
	return nil
}

func (m *memoryState) Clear(ctx context.Context, owner string, kinds ...state.Kind) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, kind := range kinds {
		delete(m.blobs, m.key(kind, owner))
	}
	return nil
}

func (m *memoryState) Mutate(ctx context.Context, kind state.Kind, owner string, v any, fn func() error) error {
	if _, err := m.Load(ctx, kind, owner, v); err != nil {
		return err
	}
	if err := fn(); err != nil {
		return err
	}
	return m.Save(ctx, kind, owner, v)
}

type countingMetrics struct {
	mu           sync.Mutex
	placed       []string
	stockFailed  int
	legacyRetrys int
}

func (c *countingMetrics) OrderPlaced(pm string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.placed = append(c.placed, pm)
}

func (c *countingMetrics) StockDecrementFailed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stockFailed++
}

func (c *countingMetrics) LegacyColumnRetry() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.legacyRetrys++
}

type failingStock struct{}

func (failingStock) DecrementStock(ctx context.Context, productID int64, qty int) error {
	return errors.New("stock service down")
}

type failingOrders struct{ calls int }

func (f *failingOrders) Insert(ctx context.Context, record orders.OrderRecord, includeLegacyTotal bool) (int64, error) {
	f.calls++
	return 0, errors.New("connection reset")
}

type fixture struct {
	conn     *gorm.DB
	cart     cart.Service
	products *products.Repository
	orders   orders.Repository
	metrics  *countingMetrics
}

func newFixture(t *testing.T, ordersDDL string) *fixture {
	t.Helper()
	conn := dbtest.Open(t, dbtest.Products, ordersDDL)
	productRepo := products.NewRepository(conn)
	cartSvc, err := cart.NewService(cart.ServiceParams{State: &memoryState{}, Products: productRepo})
	require.NoError(t, err)
	return &fixture{
		conn:     conn,
		cart:     cartSvc,
		products: productRepo,
		orders:   orders.NewRepository(conn),
		metrics:  &countingMetrics{},
	}
}

func (f *fixture) service(t *testing.T, writer orderWriter, stock stockDecrementer) Service {
	t.Helper()
	if writer == nil {
		writer = f.orders
	}
	if stock == nil {
		stock = f.products
	}
	svc, err := NewService(ServiceParams{
		Cart:              f.cart,
		Orders:            writer,
		Stock:             stock,
		Metrics:           f.metrics,
		LegacyTotalColumn: true,
		Now:               func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	return svc
}

func (f *fixture) seedProduct(t *testing.T, name, price string, stock int) *models.Product {
	t.Helper()
	p := &models.Product{Name: name, Price: decimal.RequireFromString(price), Stock: stock, CreatedAt: fixedNow, UpdatedAt: fixedNow}
	require.NoError(t, f.conn.Create(p).Error)
	return p
}

func (f *fixture) orderCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.conn.Table("orders").Count(&n).Error)
	return n
}

func validRequest() Request {
	return Request{
		FullName:      "Yusuf",
		Phone:         "99887766",
		Email:         "yusuf@example.com",
		Address:       "Sohar",
		PaymentMethod: "cash",
	}
}

func TestSubmitPlacesOrder(t *testing.T) {
	f := newFixture(t, dbtest.Orders)
	svc := f.service(t, nil, nil)
	ctx := context.Background()
	tile := f.seedProduct(t, "Tile", "4.750", 10)
	powder := f.seedProduct(t, "Powder", "0.500", 5)

	_, err := f.cart.AddItem(ctx, "u1", tile.ID, 3)
	require.NoError(t, err)
	_, err = f.cart.AddItem(ctx, "u1", powder.ID, 2)
	require.NoError(t, err)

	res, err := svc.Submit(ctx, "u1", validRequest())
	require.NoError(t, err)
	assert.Equal(t, "15.250", res.Total)
	assert.Equal(t, "/invoice/1", res.Redirect)

	order, err := f.orders.FindByID(ctx, res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, "15.250", order.Total.StringFixed(3))
	assert.Equal(t, "15.250", order.TotalPrice.StringFixed(3))
	require.Len(t, order.LineItems, 2)

	reloaded, err := f.products.FindByID(ctx, tile.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, reloaded.Stock)

	view, err := f.cart.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, view.Items, "cart is cleared after a successful checkout")
	assert.Equal(t, []string{"cash"}, f.metrics.placed)
}

func TestSubmitEmptyCartWritesNothing(t *testing.T) {
	f := newFixture(t, dbtest.Orders)
	svc := f.service(t, nil, nil)

	_, err := svc.Submit(context.Background(), "u1", validRequest())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Zero(t, f.orderCount(t))
}

func TestSubmitValidatesForm(t *testing.T) {
	f := newFixture(t, dbtest.Orders)
	svc := f.service(t, nil, nil)
	ctx := context.Background()
	p := f.seedProduct(t, "Tile", "1", 1)
	_, err := f.cart.AddItem(ctx, "u1", p.ID, 1)
	require.NoError(t, err)

	req := validRequest()
	req.Address = "  "
	_, err = svc.Submit(ctx, "u1", req)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.Equal(t, map[string]any{"fields": []string{"address"}}, typed.Details())

	req = validRequest()
	req.PaymentMethod = "card"
	_, err = svc.Submit(ctx, "u1", req)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Submit(ctx, "", validRequest())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	assert.Zero(t, f.orderCount(t))
	view, err := f.cart.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, view.Items, 1)
}

func TestSubmitRetriesWithoutLegacyColumn(t *testing.T) {
	f := newFixture(t, dbtest.OrdersWithoutLegacyTotal)
	svc := f.service(t, nil, nil)
	ctx := context.Background()
	p := f.seedProduct(t, "Tile", "2.000", 4)
	_, err := f.cart.AddItem(ctx, "u1", p.ID, 2)
	require.NoError(t, err)

	res, err := svc.Submit(ctx, "u1", validRequest())
	require.NoError(t, err)
	assert.Equal(t, "4.000", res.Total)
	assert.Equal(t, 1, f.metrics.legacyRetrys)
	assert.Equal(t, int64(1), f.orderCount(t))
}

func TestSubmitInsertFailureKeepsCart(t *testing.T) {
	f := newFixture(t, dbtest.Orders)
	writer := &failingOrders{}
	svc := f.service(t, writer, nil)
	ctx := context.Background()
	p := f.seedProduct(t, "Tile", "1", 1)
	_, err := f.cart.AddItem(ctx, "u1", p.ID, 1)
	require.NoError(t, err)

	_, err = svc.Submit(ctx, "u1", validRequest())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	assert.Equal(t, 1, writer.calls, "only schema mismatches are retried")

	view, err := f.cart.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, view.Items, 1)
}

func TestSubmitStockFailuresAreNotFatal(t *testing.T) {
	f := newFixture(t, dbtest.Orders)
	svc := f.service(t, nil, failingStock{})
	ctx := context.Background()
	a := f.seedProduct(t, "A", "1", 1)
	b := f.seedProduct(t, "B", "1", 1)
	_, err := f.cart.AddItem(ctx, "u1", a.ID, 1)
	require.NoError(t, err)
	_, err = f.cart.AddItem(ctx, "u1", b.ID, 1)
	require.NoError(t, err)

	res, err := svc.Submit(ctx, "u1", validRequest())
	require.NoError(t, err)
	assert.Positive(t, res.OrderID)
	assert.Equal(t, 2, f.metrics.stockFailed)
}

func TestSnapshotIsFrozenAgainstCatalogEdits(t *testing.T) {
	f := newFixture(t, dbtest.Orders)
	svc := f.service(t, nil, nil)
	ctx := context.Background()
	p := f.seedProduct(t, "Tile", "3.000", 5)
	_, err := f.cart.AddItem(ctx, "u1", p.ID, 1)
	require.NoError(t, err)

	res, err := svc.Submit(ctx, "u1", validRequest())
	require.NoError(t, err)

	require.NoError(t, f.conn.Model(&models.Product{}).Where("id = ?", p.ID).Update("price", decimal.RequireFromString("9.000")).Error)

	order, err := f.orders.FindByID(ctx, res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, "3.000", order.LineItems[0].UnitPrice.StringFixed(3))
}
