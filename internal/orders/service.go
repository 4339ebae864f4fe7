package orders

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/grmc/storefront-backend/pkg/db"
	"github.com/grmc/storefront-backend/pkg/enums"
	pkgerrors "github.com/grmc/storefront-backend/pkg/errors"
	"github.com/grmc/storefront-backend/pkg/images"
	"github.com/grmc/storefront-backend/pkg/pagination"
	"github.com/grmc/storefront-backend/pkg/types"
)

const topProductsLimit = 3

// Service exposes order history, invoices and the back-office order book.
type Service interface {
	ListForUser(ctx context.Context, userID string) ([]OrderDTO, error)
	// Invoice returns the order to its owner or to an admin.
	Invoice(ctx context.Context, id int64, viewer Viewer) (*OrderDTO, error)

	AdminList(ctx context.Context, filter AdminFilter, params pagination.Params) (*ListResult, error)
	UpdateStatus(ctx context.Context, id int64, status string) (*OrderDTO, error)
	Delete(ctx context.Context, id int64) error
	Summary(ctx context.Context) (*Summary, error)
}

type ServiceParams struct {
	Repo     Repository
	Resolver images.Resolver
	Now      func() time.Time
}

type service struct {
	repo     Repository
	resolver images.Resolver
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "orders repo is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{repo: params.Repo, resolver: params.Resolver, now: now}, nil
}

func (s *service) ListForUser(ctx context.Context, userID string) ([]OrderDTO, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "login required")
	}
	rows, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return toDTOs(rows, s.resolver), nil
}

// Invoice hides orders the viewer may not see behind the same not-found answer
// as a missing id.
func (s *service) Invoice(ctx context.Context, id int64, viewer Viewer) (*OrderDTO, error) {
	if strings.TrimSpace(viewer.UserID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "login required")
	}
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "load order")
	}
	if order.UserID != viewer.UserID && viewer.Role != enums.RoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	dto := toDTO(*order, s.resolver)
	return &dto, nil
}

func (s *service) AdminList(ctx context.Context, filter AdminFilter, params pagination.Params) (*ListResult, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status")
	}
	params = params.Normalize()
	rows, total, err := s.repo.List(ctx, filter, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return &ListResult{
		Items: toDTOs(rows, s.resolver),
		Meta:  types.PageMeta{Page: params.Page, Limit: params.Limit, Total: total},
	}, nil
}

func (s *service) UpdateStatus(ctx context.Context, id int64, status string) (*OrderDTO, error) {
	parsed, err := enums.ParseOrderStatus(strings.TrimSpace(status))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown order status")
	}
	if err := s.repo.UpdateStatus(ctx, id, parsed, s.now().UTC()); err != nil {
		return nil, notFoundOr(err, "update order status")
	}
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "load order")
	}
	dto := toDTO(*order, s.resolver)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFoundOr(err, "delete order")
	}
	return nil
}

// Summary counts orders per status, sums realised revenue and ranks products
// by quantity across every order that was not cancelled.
func (s *service) Summary(ctx context.Context) (*Summary, error) {
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load orders")
	}

	revenue := decimal.Zero
	byStatus := map[string]int{}
	quantities := map[int64]*TopProduct{}
	summary := &Summary{TotalOrders: len(rows)}

	for _, order := range rows {
		byStatus[string(order.Status)]++
		switch {
		case order.Status == enums.OrderStatusPending:
			summary.PendingOrders++
		case order.Status.CountsAsRevenue():
			summary.CompletedOrders++
			revenue = revenue.Add(order.DisplayTotal())
		}
		if order.Status == enums.OrderStatusCancelled {
			continue
		}
		for _, line := range order.LineItems {
			entry, ok := quantities[line.ProductID]
			if !ok {
				entry = &TopProduct{ProductID: line.ProductID, Name: line.Name}
				quantities[line.ProductID] = entry
			}
			entry.Quantity += line.Quantity
		}
	}

	top := make([]TopProduct, 0, len(quantities))
	for _, entry := range quantities {
		top = append(top, *entry)
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Quantity != top[j].Quantity {
			return top[i].Quantity > top[j].Quantity
		}
		return top[i].ProductID < top[j].ProductID
	})
	if len(top) > topProductsLimit {
		top = top[:topProductsLimit]
	}

	summary.Revenue = revenue.StringFixed(3)
	summary.ByStatus = byStatus
	summary.TopProducts = top
	return summary, nil
}

func notFoundOr(err error, action string) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}
