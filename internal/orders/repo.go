package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/grmc/storefront-backend/internal/repo"
	"github.com/grmc/storefront-backend/pkg/db/models"
	"github.com/grmc/storefront-backend/pkg/enums"
	"github.com/grmc/storefront-backend/pkg/pagination"
)

type repository struct {
	repo.Base
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Bind(tx)}
}

// Insert uses an explicit column list so the legacy total_price column can be
// left out when the schema does not have it.
func (r *repository) Insert(ctx context.Context, record OrderRecord, includeLegacyTotal bool) (int64, error) {
	lines, err := json.Marshal(record.LineItems.Clone())
	if err != nil {
		return 0, fmt.Errorf("encode line items: %w", err)
	}
	if record.LineItems == nil {
		lines = []byte("[]")
	}

	columns := []string{
		"user_id", "full_name", "phone", "email", "address",
		"payment_method", "line_items", "total", "status", "created_at", "updated_at",
	}
	args := []any{
		record.UserID, record.FullName, record.Phone, record.Email, record.Address,
		string(record.PaymentMethod), string(lines), record.Total, string(record.Status), record.CreatedAt, record.CreatedAt,
	}
	if includeLegacyTotal {
		columns = append(columns, "total_price")
		args = append(args, record.Total)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	stmt := fmt.Sprintf("INSERT INTO orders (%s) VALUES (%s) RETURNING id", strings.Join(columns, ", "), placeholders)

	var id int64
	if err := r.DB(ctx).Raw(stmt, args...).Scan(&id).Error; err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repository) FindByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	if err := r.DB(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListForUser(ctx context.Context, userID string) ([]models.Order, error) {
	var rows []models.Order
	err := r.DB(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) List(ctx context.Context, filter AdminFilter, params pagination.Params) ([]models.Order, int64, error) {
	query := r.DB(ctx).Model(&models.Order{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if q := strings.TrimSpace(filter.Search); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(full_name) LIKE ? OR phone LIKE ? OR CAST(id AS TEXT) = ?", like, "%"+q+"%", q)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.Order
	if err := query.Order("created_at DESC, id DESC").Scopes(params.Scope()).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *repository) ListAll(ctx context.Context) ([]models.Order, error) {
	var rows []models.Order
	err := r.DB(ctx).Order("id ASC").Find(&rows).Error
	return rows, err
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, status enums.OrderStatus, at time.Time) error {
	res := r.DB(ctx).Model(&models.Order{}).Where("id = ?", id).Updates(map[string]any{
		"status":     status,
		"updated_at": at,
	})
	return repo.Affected(res)
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	return repo.Affected(r.DB(ctx).Where("id = ?", id).Delete(&models.Order{}))
}
