package checkout

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/grmc/storefront-backend/internal/cart"
	"github.com/grmc/storefront-backend/internal/orders"
	"github.com/grmc/storefront-backend/pkg/db"
	"github.com/grmc/storefront-backend/pkg/enums"
	pkgerrors "github.com/grmc/storefront-backend/pkg/errors"
	"github.com/grmc/storefront-backend/pkg/logger"
	"github.com/grmc/storefront-backend/pkg/metrics"
)

const (
	defaultStockTimeout = 10 * time.Second
	stockFanOut         = 4
)

// Request is the shipping and payment form submitted at checkout.
type Request struct {
	FullName      string `json:"full_name" validate:"required"`
	Phone         string `json:"phone" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	Address       string `json:"address" validate:"required"`
	PaymentMethod string `json:"payment_method" validate:"required"`
}

type Result struct {
	OrderID  int64  `json:"order_id"`
	Total    string `json:"total"`
	Redirect string `json:"redirect"`
}

// Service turns an owner's cart into an order.
type Service interface {
	Submit(ctx context.Context, userID string, req Request) (*Result, error)
}

type cartStore interface {
	Load(ctx context.Context, owner string) (*cart.Cart, error)
	Clear(ctx context.Context, owner string) error
}

type orderWriter interface {
	Insert(ctx context.Context, record orders.OrderRecord, includeLegacyTotal bool) (int64, error)
}

type stockDecrementer interface {
	DecrementStock(ctx context.Context, productID int64, qty int) error
}

type checkoutMetrics interface {
	OrderPlaced(paymentMethod string)
	StockDecrementFailed()
	LegacyColumnRetry()
}

// ServiceParams bundles the dependencies of the checkout flow.
type ServiceParams struct {
	Cart    cartStore
	Orders  orderWriter
	Stock   stockDecrementer
	Metrics checkoutMetrics
	Logger  *logger.Logger
	// LegacyTotalColumn also writes total_price next to total.
	LegacyTotalColumn bool
	StockTimeout      time.Duration
	Now               func() time.Time
}

type service struct {
	cart         cartStore
	orders       orderWriter
	stock        stockDecrementer
	metrics      checkoutMetrics
	logg         *logger.Logger
	legacyTotal  bool
	stockTimeout time.Duration
	now          func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Cart == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart store is required")
	}
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order writer is required")
	}
	if params.Stock == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock decrementer is required")
	}
	m := params.Metrics
	if m == nil {
		m = (*metrics.StoreMetrics)(nil)
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	timeout := params.StockTimeout
	if timeout <= 0 {
		timeout = defaultStockTimeout
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		cart:         params.Cart,
		orders:       params.Orders,
		stock:        params.Stock,
		metrics:      m,
		logg:         logg,
		legacyTotal:  params.LegacyTotalColumn,
		stockTimeout: timeout,
		now:          now,
	}, nil
}

// Submit places the order. Nothing is written and the cart is left alone when
// a precondition fails or the insert fails. Stock decrements and the cart
// clear happen after the order exists and only log on failure.
func (s *service) Submit(ctx context.Context, userID string, req Request) (*Result, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "login required")
	}
	method, err := validate(&req)
	if err != nil {
		return nil, err
	}

	c, err := s.cart.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c.IsEmpty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	total := c.Total()
	record := orders.OrderRecord{
		UserID:        userID,
		FullName:      req.FullName,
		Phone:         req.Phone,
		Email:         req.Email,
		Address:       req.Address,
		PaymentMethod: method,
		LineItems:     c.Snapshot(),
		Total:         total,
		Status:        enums.OrderStatusPending,
		CreatedAt:     s.now().UTC(),
	}

	ctx = s.logg.WithUserID(ctx, userID)
	orderID, err := s.insert(ctx, record)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}
	s.metrics.OrderPlaced(method.String())
	ctx = s.logg.WithField(ctx, "order_id", orderID)

	if err := s.decrementStock(ctx, record); err != nil {
		s.logg.WarnErr(ctx, "checkout.stock_decrement_failed", err)
	}
	if err := s.cart.Clear(ctx, userID); err != nil {
		s.logg.WarnErr(ctx, "checkout.cart_clear_failed", err)
	}

	return &Result{
		OrderID:  orderID,
		Total:    total.StringFixed(3),
		Redirect: "/invoice/" + strconv.FormatInt(orderID, 10),
	}, nil
}

// insert retries exactly once without total_price when the schema lacks it.
func (s *service) insert(ctx context.Context, record orders.OrderRecord) (int64, error) {
	id, err := s.orders.Insert(ctx, record, s.legacyTotal)
	if err == nil || !s.legacyTotal || !db.IsUndefinedColumn(err) {
		return id, err
	}
	s.metrics.LegacyColumnRetry()
	s.logg.WarnErr(ctx, "checkout.legacy_total_column_missing", err)
	return s.orders.Insert(ctx, record, false)
}

func (s *service) decrementStock(ctx context.Context, record orders.OrderRecord) error {
	ctx, cancel := context.WithTimeout(ctx, s.stockTimeout)
	defer cancel()

	var (
		mu       sync.Mutex
		combined error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(stockFanOut)
	for _, line := range record.LineItems {
		g.Go(func() error {
			if err := s.stock.DecrementStock(gctx, line.ProductID, line.Quantity); err != nil {
				s.metrics.StockDecrementFailed()
				mu.Lock()
				combined = multierr.Append(combined, fmt.Errorf("product %d: %w", line.ProductID, err))
				mu.Unlock()
			}
			// One failed product must not cancel the others.
			return nil
		})
	}
	_ = g.Wait()
	return combined
}

func validate(req *Request) (enums.PaymentMethod, error) {
	req.FullName = strings.TrimSpace(req.FullName)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Email = strings.TrimSpace(req.Email)
	req.Address = strings.TrimSpace(req.Address)

	fields := []struct {
		name  string
		value string
	}{
		{"full_name", req.FullName},
		{"phone", req.Phone},
		{"email", req.Email},
		{"address", req.Address},
	}
	missing := []string{}
	for _, f := range fields {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "missing required fields").
			WithDetails(map[string]any{"fields": missing})
	}

	method, err := enums.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "payment method must be cash or bank")
	}
	return method, nil
}
