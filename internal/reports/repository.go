package reports

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/grmc/storefront-backend/internal/repo"
	"github.com/grmc/storefront-backend/pkg/db/models"
	"github.com/grmc/storefront-backend/pkg/enums"
	"github.com/grmc/storefront-backend/pkg/pagination"
)

// Filter narrows the admin report list. Empty fields match everything.
type Filter struct {
	Status enums.ReportStatus
	Search string
}

// Repository persists marble waste reports.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Bind(tx)}
}

func (r *Repository) Create(ctx context.Context, report *models.MarbleReport) error {
	return r.DB(ctx).Create(report).Error
}

func (r *Repository) FindByID(ctx context.Context, id int64) (*models.MarbleReport, error) {
	var report models.MarbleReport
	if err := r.DB(ctx).Where("id = ?", id).First(&report).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

// List returns urgent reports first, then newest.
func (r *Repository) List(ctx context.Context, filter Filter, page pagination.Params) ([]models.MarbleReport, int64, error) {
	query := r.DB(ctx).Model(&models.MarbleReport{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if q := strings.TrimSpace(filter.Search); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(location) LIKE ? OR LOWER(description) LIKE ?", like, like, like)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.MarbleReport
	err := query.Order("is_urgent DESC, created_at DESC, id DESC").Scopes(page.Scope()).Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

type statusCount struct {
	Status enums.ReportStatus
	Count  int64
}

// CountByStatus returns per-status counts plus the number of urgent reports.
func (r *Repository) CountByStatus(ctx context.Context) (map[enums.ReportStatus]int64, int64, error) {
	var rows []statusCount
	err := r.DB(ctx).Model(&models.MarbleReport{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	counts := make(map[enums.ReportStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	var urgent int64
	if err := r.DB(ctx).Model(&models.MarbleReport{}).Where("is_urgent = ?", true).Count(&urgent).Error; err != nil {
		return nil, 0, err
	}
	return counts, urgent, nil
}

func (r *Repository) Update(ctx context.Context, id int64, fields map[string]any) error {
	res := r.DB(ctx).Model(&models.MarbleReport{}).Where("id = ?", id).Updates(fields)
	return repo.Affected(res)
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	res := r.DB(ctx).Where("id = ?", id).Delete(&models.MarbleReport{})
	return repo.Affected(res)
}
