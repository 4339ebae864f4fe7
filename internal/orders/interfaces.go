package orders

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/grmc/storefront-backend/pkg/db/models"
	"github.com/grmc/storefront-backend/pkg/enums"
	"github.com/grmc/storefront-backend/pkg/pagination"
	"github.com/grmc/storefront-backend/pkg/types"
)

// Repository defines persistence operations for the orders table.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// Insert writes one order and returns its id. includeLegacyTotal also fills
	// the total_price column kept for older schemas.
	Insert(ctx context.Context, record OrderRecord, includeLegacyTotal bool) (int64, error)
	FindByID(ctx context.Context, id int64) (*models.Order, error)
	ListForUser(ctx context.Context, userID string) ([]models.Order, error)
	List(ctx context.Context, filter AdminFilter, params pagination.Params) ([]models.Order, int64, error)
	ListAll(ctx context.Context) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id int64, status enums.OrderStatus, at time.Time) error
	Delete(ctx context.Context, id int64) error
}

// OrderRecord is everything checkout knows when it writes an order.
type OrderRecord struct {
	UserID        string
	FullName      string
	Phone         string
	Email         string
	Address       string
	PaymentMethod enums.PaymentMethod
	LineItems     types.LineItemSnapshots
	Total         decimal.Decimal
	Status        enums.OrderStatus
	CreatedAt     time.Time
}

// AdminFilter narrows the back-office order list. An empty Status means every tab.
type AdminFilter struct {
	Status enums.OrderStatus
	Search string
}

// Viewer identifies who is asking for an order.
type Viewer struct {
	UserID string
	Role   enums.Role
}
