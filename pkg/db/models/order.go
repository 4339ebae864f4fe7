package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/grmc/storefront-backend/pkg/enums"
	"github.com/grmc/storefront-backend/pkg/types"
)

// Order is written once per checkout. LineItems is a frozen copy of the cart
// and never follows later catalog edits.
type Order struct {
	ID            int64                   `gorm:"column:id;primaryKey;autoIncrement"`
	UserID        string                  `gorm:"column:user_id;type:uuid;not null"`
	FullName      string                  `gorm:"column:full_name;not null"`
	Phone         string                  `gorm:"column:phone;not null"`
	Email         string                  `gorm:"column:email;not null"`
	Address       string                  `gorm:"column:address;not null"`
	PaymentMethod enums.PaymentMethod     `gorm:"column:payment_method;not null;default:'cash'"`
	LineItems     types.LineItemSnapshots `gorm:"column:line_items;type:jsonb;serializer:json"`
	Total         *decimal.Decimal        `gorm:"column:total;type:numeric(12,3)"`
	TotalPrice    *decimal.Decimal        `gorm:"column:total_price;type:numeric(12,3)"`
	Status        enums.OrderStatus       `gorm:"column:status;not null;default:'pending'"`
	CreatedAt     time.Time               `gorm:"column:created_at"`
	UpdatedAt     time.Time               `gorm:"column:updated_at"`
}

func (Order) TableName() string { return "orders" }

// DisplayTotal prefers the canonical total and falls back to the legacy column.
func (o Order) DisplayTotal() decimal.Decimal {
	switch {
	case o.Total != nil:
		return *o.Total
	case o.TotalPrice != nil:
		return *o.TotalPrice
	default:
		return decimal.Zero
	}
}
