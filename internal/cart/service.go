package cart

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/grmc/storefront-backend/internal/state"
	"github.com/grmc/storefront-backend/pkg/db/models"
	pkgerrors "github.com/grmc/storefront-backend/pkg/errors"
	"github.com/grmc/storefront-backend/pkg/images"
)

// Service applies cart operations to an owner's persisted cart.
type Service interface {
	Get(ctx context.Context, owner string) (View, error)
	Load(ctx context.Context, owner string) (*Cart, error)
	AddItem(ctx context.Context, owner string, productID int64, quantity int) (View, error)
	AddLine(ctx context.Context, owner string, item LineItem) (View, error)
	RemoveItem(ctx context.Context, owner string, productID int64) (View, error)
	UpdateQuantity(ctx context.Context, owner string, productID int64, quantity int) (View, error)
	Clear(ctx context.Context, owner string) error
}

// View is the cart as returned to clients.
type View struct {
	Items []ItemView `json:"items"`
	Total string     `json:"total"`
	Count int        `json:"count"`
}

type ItemView struct {
	ProductID      int64   `json:"id"`
	Name           string  `json:"name"`
	UnitPrice      string  `json:"price"`
	Quantity       int     `json:"quantity"`
	Subtotal       string  `json:"subtotal"`
	ImageRef       string  `json:"image,omitempty"`
	ImageURL       string  `json:"image_url"`
	RecycledLiters *string `json:"liters,omitempty"`
}

type stateStore interface {
	Load(ctx context.Context, kind state.Kind, owner string, dst any) (bool, error)
	Save(ctx context.Context, kind state.Kind, owner string, v any) error
	Clear(ctx context.Context, owner string, kinds ...state.Kind) error
	Mutate(ctx context.Context, kind state.Kind, owner string, v any, fn func() error) error
}

type productLookup interface {
	FindByID(ctx context.Context, id int64) (*models.Product, error)
}

// ServiceParams groups dependencies for the cart service.
type ServiceParams struct {
	State    stateStore
	Products productLookup
	Resolver images.Resolver
}

type service struct {
	state    stateStore
	products productLookup
	resolver images.Resolver
}

func NewService(params ServiceParams) (Service, error) {
	if params.State == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "state store is required")
	}
	if params.Products == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product lookup is required")
	}
	return &service{
		state:    params.State,
		products: params.Products,
		resolver: params.Resolver,
	}, nil
}

func (s *service) Get(ctx context.Context, owner string) (View, error) {
	c, err := s.Load(ctx, owner)
	if err != nil {
		return View{}, err
	}
	return s.view(c), nil
}

func (s *service) Load(ctx context.Context, owner string) (*Cart, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	var c Cart
	if _, err := s.state.Load(ctx, state.KindCart, owner, &c); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return &c, nil
}

// AddItem copies name, price, image and liters from the catalog so clients
// only send the product id.
func (s *service) AddItem(ctx context.Context, owner string, productID int64, quantity int) (View, error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return View{}, err
	}
	return s.AddLine(ctx, owner, LineItem{
		ProductID:      product.ID,
		Name:           product.Name,
		UnitPrice:      product.Price,
		Quantity:       quantity,
		ImageRef:       product.Image,
		RecycledLiters: product.Liters,
	})
}

func (s *service) AddLine(ctx context.Context, owner string, item LineItem) (View, error) {
	if item.ProductID <= 0 {
		return View{}, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	return s.mutate(ctx, owner, func(c *Cart) error {
		c.AddItem(item)
		return nil
	})
}

func (s *service) RemoveItem(ctx context.Context, owner string, productID int64) (View, error) {
	return s.mutate(ctx, owner, func(c *Cart) error {
		c.RemoveItem(productID)
		return nil
	})
}

func (s *service) UpdateQuantity(ctx context.Context, owner string, productID int64, quantity int) (View, error) {
	return s.mutate(ctx, owner, func(c *Cart) error {
		c.UpdateQuantity(productID, quantity)
		return nil
	})
}

func (s *service) Clear(ctx context.Context, owner string) error {
	if err := requireOwner(owner); err != nil {
		return err
	}
	if err := s.state.Clear(ctx, owner, state.KindCart); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

func (s *service) mutate(ctx context.Context, owner string, fn func(*Cart) error) (View, error) {
	if err := requireOwner(owner); err != nil {
		return View{}, err
	}
	var c Cart
	err := s.state.Mutate(ctx, state.KindCart, owner, &c, func() error { return fn(&c) })
	if err != nil {
		if pkgerrors.As(err) != nil {
			return View{}, err
		}
		return View{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart")
	}
	return s.view(&c), nil
}

func (s *service) view(c *Cart) View {
	items := make([]ItemView, 0, len(c.Lines))
	for _, line := range c.Lines {
		items = append(items, ItemView{
			ProductID:      line.ProductID,
			Name:           line.Name,
			UnitPrice:      line.UnitPrice.StringFixed(3),
			Quantity:       line.Quantity,
			Subtotal:       line.Subtotal().StringFixed(3),
			ImageRef:       line.ImageRef,
			ImageURL:       s.resolver.Resolve(line.ImageRef),
			RecycledLiters: litersString(line.RecycledLiters),
		})
	}
	return View{Items: items, Total: c.Total().StringFixed(3), Count: c.Count()}
}

func litersString(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	v := d.StringFixed(3)
	return &v
}

func requireOwner(owner string) error {
	if strings.TrimSpace(owner) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "login required")
	}
	return nil
}
