package models

import (
	"time"

	"github.com/grmc/storefront-backend/pkg/enums"
)

// Profile is the public user record. Its role is authoritative for access checks.
type Profile struct {
	ID        string     `gorm:"column:id;type:uuid;primaryKey"`
	FullName  string     `gorm:"column:full_name"`
	Email     string     `gorm:"column:email;not null"`
	Role      enums.Role `gorm:"column:role;not null;default:'user'"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Profile) TableName() string { return "profiles" }
