package messages

import (
	"context"
	"strings"
	"time"

	"github.com/grmc/storefront-backend/pkg/db"
	"github.com/grmc/storefront-backend/pkg/db/models"
	pkgerrors "github.com/grmc/storefront-backend/pkg/errors"
	"github.com/grmc/storefront-backend/pkg/pagination"
	"github.com/grmc/storefront-backend/pkg/types"
)

type SubmitInput struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone" validate:"omitempty,max=40"`
	Message string `json:"message" validate:"required,max=5000"`
}

type MessageDTO struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

type ListResult struct {
	Items  []MessageDTO   `json:"items"`
	Unread int64          `json:"unread"`
	Meta   types.PageMeta `json:"meta"`
}

type Service interface {
	Submit(ctx context.Context, input SubmitInput) (*MessageDTO, error)
	List(ctx context.Context, filter Filter, page pagination.Params) (*ListResult, error)
	ToggleRead(ctx context.Context, id int64) (*MessageDTO, error)
	Delete(ctx context.Context, id int64) error
}

type repository interface {
	Create(ctx context.Context, msg *models.ContactMessage) error
	FindByID(ctx context.Context, id int64) (*models.ContactMessage, error)
	List(ctx context.Context, filter Filter, page pagination.Params) ([]models.ContactMessage, int64, error)
	CountUnread(ctx context.Context) (int64, error)
	SetRead(ctx context.Context, id int64, read bool) error
	Delete(ctx context.Context, id int64) error
}

type ServiceParams struct {
	Repo repository
	Now  func() time.Time
}

type service struct {
	repo repository
	now  func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message repo is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{repo: params.Repo, now: now}, nil
}

func (s *service) Submit(ctx context.Context, input SubmitInput) (*MessageDTO, error) {
	msg := models.ContactMessage{
		Name:      strings.TrimSpace(input.Name),
		Email:     strings.ToLower(strings.TrimSpace(input.Email)),
		Phone:     strings.TrimSpace(input.Phone),
		Message:   strings.TrimSpace(input.Message),
		CreatedAt: s.now().UTC(),
	}
	var missing []string
	if msg.Name == "" {
		missing = append(missing, "name")
	}
	if msg.Email == "" {
		missing = append(missing, "email")
	}
	if msg.Message == "" {
		missing = append(missing, "message")
	}
	if len(missing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "required fields are missing").
			WithDetails(map[string]any{"fields": missing})
	}
	if err := s.repo.Create(ctx, &msg); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store message")
	}
	dto := toDTO(msg)
	return &dto, nil
}

func (s *service) List(ctx context.Context, filter Filter, page pagination.Params) (*ListResult, error) {
	page = page.Normalize()
	rows, total, err := s.repo.List(ctx, filter, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list messages")
	}
	unread, err := s.repo.CountUnread(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unread messages")
	}
	items := make([]MessageDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, toDTO(row))
	}
	return &ListResult{
		Items:  items,
		Unread: unread,
		Meta:   types.PageMeta{Page: page.Page, Limit: page.Limit, Total: total},
	}, nil
}

func (s *service) ToggleRead(ctx context.Context, id int64) (*MessageDTO, error) {
	msg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "load message")
	}
	msg.Read = !msg.Read
	if err := s.repo.SetRead(ctx, id, msg.Read); err != nil {
		return nil, notFoundOr(err, "update message")
	}
	dto := toDTO(*msg)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFoundOr(err, "delete message")
	}
	return nil
}

func toDTO(m models.ContactMessage) MessageDTO {
	return MessageDTO{
		ID:        m.ID,
		Name:      m.Name,
		Email:     m.Email,
		Phone:     m.Phone,
		Message:   m.Message,
		Read:      m.Read,
		CreatedAt: m.CreatedAt,
	}
}

func notFoundOr(err error, action string) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "message not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}
