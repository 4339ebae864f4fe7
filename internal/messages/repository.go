package messages

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/grmc/storefront-backend/internal/repo"
	"github.com/grmc/storefront-backend/pkg/db/models"
	"github.com/grmc/storefront-backend/pkg/pagination"
)

type Filter struct {
	Search     string
	UnreadOnly bool
}

// Repository persists contact form messages.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) Create(ctx context.Context, msg *models.ContactMessage) error {
	return r.DB(ctx).Create(msg).Error
}

func (r *Repository) FindByID(ctx context.Context, id int64) (*models.ContactMessage, error) {
	var msg models.ContactMessage
	if err := r.DB(ctx).Where("id = ?", id).First(&msg).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *Repository) List(ctx context.Context, filter Filter, page pagination.Params) ([]models.ContactMessage, int64, error) {
	query := r.DB(ctx).Model(&models.ContactMessage{})
	if filter.UnreadOnly {
		query = query.Where("read = ?", false)
	}
	if q := strings.TrimSpace(filter.Search); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(message) LIKE ?", like, like, like)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.ContactMessage
	if err := query.Order("created_at DESC, id DESC").Scopes(page.Scope()).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *Repository) CountUnread(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB(ctx).Model(&models.ContactMessage{}).Where("read = ?", false).Count(&n).Error
	return n, err
}

func (r *Repository) SetRead(ctx context.Context, id int64, read bool) error {
	res := r.DB(ctx).Model(&models.ContactMessage{}).Where("id = ?", id).Update("read", read)
	return repo.Affected(res)
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	res := r.DB(ctx).Where("id = ?", id).Delete(&models.ContactMessage{})
	return repo.Affected(res)
}
