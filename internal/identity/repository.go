package identity

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/grmc/storefront-backend/internal/repo"
	"github.com/grmc/storefront-backend/pkg/db/models"
)

// Repository persists credential records.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Bind(tx)}
}

func (r *Repository) Create(ctx context.Context, user *models.AuthUser) error {
	return r.DB(ctx).Create(user).Error
}

func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.AuthUser, error) {
	var user models.AuthUser
	if err := r.DB(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *Repository) FindByID(ctx context.Context, id string) (*models.AuthUser, error) {
	var user models.AuthUser
	if err := r.DB(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *Repository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.DB(ctx).
		Model(&models.AuthUser{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

// Update writes the supplied columns and bumps updated_at.
func (r *Repository) Update(ctx context.Context, id string, fields map[string]any, at time.Time) error {
	if len(fields) == 0 {
		return nil
	}
	fields["updated_at"] = at
	res := r.DB(ctx).Model(&models.AuthUser{}).Where("id = ?", id).Updates(fields)
	return repo.Affected(res)
}
