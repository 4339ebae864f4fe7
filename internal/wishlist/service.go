package wishlist

import (
	"context"
	"strings"

	"github.com/grmc/storefront-backend/internal/cart"
	"github.com/grmc/storefront-backend/internal/state"
	"github.com/grmc/storefront-backend/pkg/db/models"
	pkgerrors "github.com/grmc/storefront-backend/pkg/errors"
	"github.com/grmc/storefront-backend/pkg/images"
)

// Service manages an owner's persisted wishlist.
type Service interface {
	Get(ctx context.Context, owner string) (View, error)
	Contains(ctx context.Context, owner string, productID int64) (bool, error)
	AddItem(ctx context.Context, owner string, productID int64) (View, error)
	RemoveItem(ctx context.Context, owner string, productID int64) (View, error)
	Clear(ctx context.Context, owner string) error
	MoveToCart(ctx context.Context, owner string, productID int64) (MoveResult, error)
}

type View struct {
	Items []EntryView `json:"items"`
	Count int         `json:"count"`
}

type EntryView struct {
	ProductID int64  `json:"id"`
	Name      string `json:"name"`
	UnitPrice string `json:"price"`
	ImageRef  string `json:"image,omitempty"`
	ImageURL  string `json:"image_url"`
}

// MoveResult carries both stores after a move.
type MoveResult struct {
	Wishlist View      `json:"wishlist"`
	Cart     cart.View `json:"cart"`
}

type stateStore interface {
	Load(ctx context.Context, kind state.Kind, owner string, dst any) (bool, error)
	Clear(ctx context.Context, owner string, kinds ...state.Kind) error
	Mutate(ctx context.Context, kind state.Kind, owner string, v any, fn func() error) error
}

type productLookup interface {
	FindByID(ctx context.Context, id int64) (*models.Product, error)
}

type cartAdder interface {
	AddLine(ctx context.Context, owner string, item cart.LineItem) (cart.View, error)
}

// ServiceParams groups dependencies for the wishlist service.
type ServiceParams struct {
	State    stateStore
	Products productLookup
	Cart     cartAdder
	Resolver images.Resolver
}

type service struct {
	state    stateStore
	products productLookup
	cart     cartAdder
	resolver images.Resolver
}

func NewService(params ServiceParams) (Service, error) {
	if params.State == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "state store is required")
	}
	if params.Products == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product lookup is required")
	}
	if params.Cart == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart service is required")
	}
	return &service{
		state:    params.State,
		products: params.Products,
		cart:     params.Cart,
		resolver: params.Resolver,
	}, nil
}

func (s *service) Get(ctx context.Context, owner string) (View, error) {
	w, err := s.load(ctx, owner)
	if err != nil {
		return View{}, err
	}
	return s.view(w), nil
}

func (s *service) Contains(ctx context.Context, owner string, productID int64) (bool, error) {
	w, err := s.load(ctx, owner)
	if err != nil {
		return false, err
	}
	return w.Contains(productID), nil
}

func (s *service) AddItem(ctx context.Context, owner string, productID int64) (View, error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return View{}, err
	}
	return s.mutate(ctx, owner, func(w *Wishlist) {
		w.AddItem(Entry{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.Price,
			ImageRef:  product.Image,
		})
	})
}

func (s *service) RemoveItem(ctx context.Context, owner string, productID int64) (View, error) {
	return s.mutate(ctx, owner, func(w *Wishlist) {
		w.RemoveItem(productID)
	})
}

func (s *service) Clear(ctx context.Context, owner string) error {
	if err := requireOwner(owner); err != nil {
		return err
	}
	if err := s.state.Clear(ctx, owner, state.KindWishlist); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear wishlist")
	}
	return nil
}

// MoveToCart adds the saved product to the cart with quantity 1 and then drops
// it from the wishlist. The two writes are not atomic: if the removal fails the
// product stays in both.
func (s *service) MoveToCart(ctx context.Context, owner string, productID int64) (MoveResult, error) {
	w, err := s.load(ctx, owner)
	if err != nil {
		return MoveResult{}, err
	}
	entry, ok := w.Find(productID)
	if !ok {
		return MoveResult{}, pkgerrors.New(pkgerrors.CodeNotFound, "product is not in the wishlist")
	}

	cartView, err := s.cart.AddLine(ctx, owner, cart.LineItem{
		ProductID: entry.ProductID,
		Name:      entry.Name,
		UnitPrice: entry.UnitPrice,
		Quantity:  1,
		ImageRef:  entry.ImageRef,
	})
	if err != nil {
		return MoveResult{}, err
	}

	wishlistView, err := s.RemoveItem(ctx, owner, productID)
	if err != nil {
		return MoveResult{}, err
	}
	return MoveResult{Wishlist: wishlistView, Cart: cartView}, nil
}

func (s *service) load(ctx context.Context, owner string) (*Wishlist, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	var w Wishlist
	if _, err := s.state.Load(ctx, state.KindWishlist, owner, &w); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wishlist")
	}
	return &w, nil
}

func (s *service) mutate(ctx context.Context, owner string, fn func(*Wishlist)) (View, error) {
	if err := requireOwner(owner); err != nil {
		return View{}, err
	}
	var w Wishlist
	err := s.state.Mutate(ctx, state.KindWishlist, owner, &w, func() error {
		fn(&w)
		return nil
	})
	if err != nil {
		return View{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save wishlist")
	}
	return s.view(&w), nil
}

func (s *service) view(w *Wishlist) View {
	items := make([]EntryView, 0, len(w.Entries))
	for _, e := range w.Entries {
		items = append(items, EntryView{
			ProductID: e.ProductID,
			Name:      e.Name,
			UnitPrice: e.UnitPrice.StringFixed(3),
			ImageRef:  e.ImageRef,
			ImageURL:  s.resolver.Resolve(e.ImageRef),
		})
	}
	return View{Items: items, Count: w.Count()}
}

func requireOwner(owner string) error {
	if strings.TrimSpace(owner) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "login required")
	}
	return nil
}
