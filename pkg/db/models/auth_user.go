package models

import "time"

// AuthUser is the credential record behind a session. FullName and Role are
// the metadata captured at sign-up; Profile holds the authoritative values.
type AuthUser struct {
	ID               string     `gorm:"column:id;type:uuid;primaryKey"`
	Email            string     `gorm:"column:email;not null;uniqueIndex"`
	PasswordHash     string     `gorm:"column:password_hash;not null"`
	FullName         string     `gorm:"column:full_name"`
	Role             string     `gorm:"column:role"`
	EmailConfirmedAt *time.Time `gorm:"column:email_confirmed_at"`
	LastLoginAt      *time.Time `gorm:"column:last_login_at"`
	CreatedAt        time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (AuthUser) TableName() string { return "auth_users" }
