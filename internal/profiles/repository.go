package profiles

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/grmc/storefront-backend/internal/repo"
	"github.com/grmc/storefront-backend/pkg/db/models"
	"github.com/grmc/storefront-backend/pkg/enums"
	"github.com/grmc/storefront-backend/pkg/pagination"
)

// Repository persists user profiles.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Bind(tx)}
}

func (r *Repository) FindByID(ctx context.Context, id string) (*models.Profile, error) {
	var profile models.Profile
	if err := r.DB(ctx).Where("id = ?", id).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.Profile, error) {
	var profile models.Profile
	if err := r.DB(ctx).Where("LOWER(email) = ?", strings.ToLower(email)).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *Repository) Create(ctx context.Context, profile *models.Profile) error {
	return r.DB(ctx).Create(profile).Error
}

func (r *Repository) UpdateName(ctx context.Context, id, fullName string, at time.Time) error {
	return r.update(ctx, id, map[string]any{"full_name": fullName, "updated_at": at})
}

func (r *Repository) UpdateRole(ctx context.Context, id string, role enums.Role, at time.Time) error {
	return r.update(ctx, id, map[string]any{"role": role, "updated_at": at})
}

// List searches name and email, newest first.
func (r *Repository) List(ctx context.Context, search string, page pagination.Params) ([]models.Profile, int64, error) {
	query := r.DB(ctx).Model(&models.Profile{})
	if q := strings.TrimSpace(search); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(full_name) LIKE ? OR LOWER(email) LIKE ?", like, like)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.Profile
	if err := query.Order("created_at DESC").Scopes(page.Scope()).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *Repository) ListByRole(ctx context.Context, role enums.Role) ([]models.Profile, error) {
	var rows []models.Profile
	if err := r.DB(ctx).Where("role = ?", role).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	res := r.DB(ctx).Where("id = ?", id).Delete(&models.Profile{})
	return repo.Affected(res)
}

func (r *Repository) update(ctx context.Context, id string, fields map[string]any) error {
	res := r.DB(ctx).Model(&models.Profile{}).Where("id = ?", id).Updates(fields)
	return repo.Affected(res)
}
