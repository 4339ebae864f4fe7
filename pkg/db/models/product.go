package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry of recycled marble goods.
type Product struct {
	ID        int64            `gorm:"column:id;primaryKey;autoIncrement"`
	Code      string           `gorm:"column:code"`
	Name      string           `gorm:"column:name;not null"`
	Details   string           `gorm:"column:details"`
	Price     decimal.Decimal  `gorm:"column:price;type:numeric(12,3);not null"`
	Liters    *decimal.Decimal `gorm:"column:liters;type:numeric(12,3)"`
	Image     string           `gorm:"column:image"`
	Category  string           `gorm:"column:category"`
	Stock     int              `gorm:"column:stock;not null;default:0"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (Product) TableName() string { return "products" }
