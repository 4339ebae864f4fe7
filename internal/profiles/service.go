package profiles

import (
	"context"
	"strings"
	"time"

	"github.com/grmc/storefront-backend/pkg/db"
	"github.com/grmc/storefront-backend/pkg/db/models"
	"github.com/grmc/storefront-backend/pkg/enums"
	pkgerrors "github.com/grmc/storefront-backend/pkg/errors"
	"github.com/grmc/storefront-backend/pkg/pagination"
	"github.com/grmc/storefront-backend/pkg/types"
)

// ProfileDTO is the admin-facing view of a profile.
type ProfileDTO struct {
	ID        string     `json:"id"`
	FullName  string     `json:"full_name"`
	Email     string     `json:"email"`
	Role      enums.Role `json:"role"`
	CreatedAt time.Time  `json:"created_at"`
}

type ListResult struct {
	Items []ProfileDTO   `json:"items"`
	Meta  types.PageMeta `json:"meta"`
}

// Service manages profile rows, which carry the authoritative role.
type Service interface {
	Get(ctx context.Context, id string) (*models.Profile, error)
	Create(ctx context.Context, profile models.Profile) (*models.Profile, error)
	UpdateName(ctx context.Context, id, fullName string) error
	RoleOf(ctx context.Context, id string) (enums.Role, error)

	List(ctx context.Context, search string, page pagination.Params) (*ListResult, error)
	Delete(ctx context.Context, actorID, id string) error
	ListAdmins(ctx context.Context) ([]ProfileDTO, error)
	PromoteByEmail(ctx context.Context, email string) (*ProfileDTO, error)
	Demote(ctx context.Context, actorID, id string) error
}

type repository interface {
	FindByID(ctx context.Context, id string) (*models.Profile, error)
	FindByEmail(ctx context.Context, email string) (*models.Profile, error)
	Create(ctx context.Context, profile *models.Profile) error
	UpdateName(ctx context.Context, id, fullName string, at time.Time) error
	UpdateRole(ctx context.Context, id string, role enums.Role, at time.Time) error
	List(ctx context.Context, search string, page pagination.Params) ([]models.Profile, int64, error)
	ListByRole(ctx context.Context, role enums.Role) ([]models.Profile, error)
	Delete(ctx context.Context, id string) error
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
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "profile repo is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{repo: params.Repo, now: now}, nil
}

func (s *service) Get(ctx context.Context, id string) (*models.Profile, error) {
	profile, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "load profile")
	}
	return profile, nil
}

func (s *service) Create(ctx context.Context, profile models.Profile) (*models.Profile, error) {
	if strings.TrimSpace(profile.ID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "profile id is required")
	}
	if !profile.Role.IsValid() {
		profile.Role = enums.RoleUser
	}
	now := s.now().UTC()
	profile.FullName = strings.TrimSpace(profile.FullName)
	profile.Email = strings.ToLower(strings.TrimSpace(profile.Email))
	profile.CreatedAt = now
	profile.UpdatedAt = now
	if err := s.repo.Create(ctx, &profile); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "profile already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create profile")
	}
	return &profile, nil
}

func (s *service) UpdateName(ctx context.Context, id, fullName string) error {
	if err := s.repo.UpdateName(ctx, id, strings.TrimSpace(fullName), s.now().UTC()); err != nil {
		return notFoundOr(err, "update profile")
	}
	return nil
}

// RoleOf returns the stored role, or an empty role when the profile is missing
// or carries an unknown value.
func (s *service) RoleOf(ctx context.Context, id string) (enums.Role, error) {
	profile, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return "", nil
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile role")
	}
	if !profile.Role.IsValid() {
		return "", nil
	}
	return profile.Role, nil
}

func (s *service) List(ctx context.Context, search string, page pagination.Params) (*ListResult, error) {
	page = page.Normalize()
	rows, total, err := s.repo.List(ctx, search, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list profiles")
	}
	return &ListResult{
		Items: toDTOs(rows),
		Meta:  types.PageMeta{Page: page.Page, Limit: page.Limit, Total: total},
	}, nil
}

func (s *service) Delete(ctx context.Context, actorID, id string) error {
	if actorID == id {
		return pkgerrors.New(pkgerrors.CodeForbidden, "you cannot delete your own account")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFoundOr(err, "delete profile")
	}
	return nil
}

func (s *service) ListAdmins(ctx context.Context) ([]ProfileDTO, error) {
	rows, err := s.repo.ListByRole(ctx, enums.RoleAdmin)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list admins")
	}
	return toDTOs(rows), nil
}

func (s *service) PromoteByEmail(ctx context.Context, email string) (*ProfileDTO, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	profile, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no user registered with this email")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup profile")
	}
	if profile.Role == enums.RoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "user is already an admin")
	}
	if err := s.repo.UpdateRole(ctx, profile.ID, enums.RoleAdmin, s.now().UTC()); err != nil {
		return nil, notFoundOr(err, "promote profile")
	}
	profile.Role = enums.RoleAdmin
	dto := toDTO(*profile)
	return &dto, nil
}

func (s *service) Demote(ctx context.Context, actorID, id string) error {
	if actorID == id {
		return pkgerrors.New(pkgerrors.CodeForbidden, "you cannot remove your own admin role")
	}
	if err := s.repo.UpdateRole(ctx, id, enums.RoleUser, s.now().UTC()); err != nil {
		return notFoundOr(err, "demote profile")
	}
	return nil
}

func toDTO(p models.Profile) ProfileDTO {
	return ProfileDTO{
		ID:        p.ID,
		FullName:  p.FullName,
		Email:     p.Email,
		Role:      p.Role,
		CreatedAt: p.CreatedAt,
	}
}

func toDTOs(rows []models.Profile) []ProfileDTO {
	out := make([]ProfileDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDTO(row))
	}
	return out
}

func notFoundOr(err error, action string) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}
