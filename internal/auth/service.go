package auth

import (
	"context"
	"strings"

	"github.com/grmc/storefront-backend/internal/identity"
	"github.com/grmc/storefront-backend/internal/state"
	"github.com/grmc/storefront-backend/pkg/db/models"
	"github.com/grmc/storefront-backend/pkg/enums"
	pkgerrors "github.com/grmc/storefront-backend/pkg/errors"
	"github.com/grmc/storefront-backend/pkg/logger"
	"github.com/grmc/storefront-backend/pkg/security"
)

const (
	LogoutRedirect     = "/login"
	defaultDisplayName = "User"
)

// Service is the storefront's view of authentication: it signs users in and
// out through the identity backend and keeps the per-owner auth mirror in sync.
type Service interface {
	Login(ctx context.Context, req LoginRequest) (*Result, error)
	Register(ctx context.Context, req RegisterRequest) (*Result, error)
	Logout(ctx context.Context, accessToken string) (*LogoutResult, error)
	// CheckSession never fails: any problem resolves to a nil user.
	CheckSession(ctx context.Context, accessToken string) *AuthenticatedUser
	UpdateProfile(ctx context.Context, user AuthenticatedUser, req ProfileUpdateRequest) (*AuthenticatedUser, error)
	Refresh(ctx context.Context, req RefreshRequest) (*Result, error)
}

type identityProvider interface {
	SignIn(ctx context.Context, email, password string) (*identity.User, *identity.Session, error)
	SignUp(ctx context.Context, input identity.SignUpInput) (*identity.User, *identity.Session, error)
	SignOut(ctx context.Context, accessToken string) error
	GetUser(ctx context.Context, accessToken string) (*identity.User, error)
	Refresh(ctx context.Context, accessToken, refreshToken string) (*identity.User, *identity.Session, error)
	UpdateUser(ctx context.Context, userID string, update identity.UserUpdate) (*identity.User, error)
	TokenSubject(accessToken string) (string, bool)
}

type profileStore interface {
	Get(ctx context.Context, id string) (*models.Profile, error)
	Create(ctx context.Context, profile models.Profile) (*models.Profile, error)
	UpdateName(ctx context.Context, id, fullName string) error
}

type stateStore interface {
	Save(ctx context.Context, kind state.Kind, owner string, v any) error
	Clear(ctx context.Context, owner string, kinds ...state.Kind) error
}

// ServiceParams bundles the dependencies of the auth service.
type ServiceParams struct {
	Identity          identityProvider
	Profiles          profileStore
	State             stateStore
	Logger            *logger.Logger
	MinPasswordLength int
}

type service struct {
	identity  identityProvider
	profiles  profileStore
	state     stateStore
	logg      *logger.Logger
	minLength int
}

func NewService(params ServiceParams) (Service, error) {
	if params.Identity == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "identity provider is required")
	}
	if params.Profiles == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "profile store is required")
	}
	if params.State == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "state store is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		identity:  params.Identity,
		profiles:  params.Profiles,
		state:     params.State,
		logg:      logg,
		minLength: params.MinPasswordLength,
	}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*Result, error) {
	user, sess, err := s.identity.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	resolved := s.resolve(ctx, user)
	s.mirror(ctx, resolved)
	return &Result{User: resolved, Session: sess}, nil
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*Result, error) {
	fullName := strings.TrimSpace(req.FullName)
	if fullName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "full name is required")
	}
	if err := security.ValidatePassword(req.Password, s.minLength); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}

	user, sess, err := s.identity.SignUp(ctx, identity.SignUpInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: fullName,
		Role:     enums.RoleUser,
	})
	if err != nil {
		return nil, err
	}

	// The profile row is the role source of truth; without it the metadata role applies.
	if _, err := s.profiles.Create(ctx, models.Profile{
		ID:       user.ID,
		FullName: fullName,
		Email:    user.Email,
		Role:     enums.RoleUser,
	}); err != nil {
		s.logg.WarnErr(s.logg.WithUserID(ctx, user.ID), "auth.profile_create_failed", err)
	}

	if sess == nil {
		return &Result{ConfirmationRequired: true}, nil
	}
	resolved := s.resolve(ctx, user)
	s.mirror(ctx, resolved)
	return &Result{User: resolved, Session: sess}, nil
}

// Logout revokes the remote session and wipes every persisted blob of the
// owner. A failed revoke is logged; the local state is cleared regardless.
func (s *service) Logout(ctx context.Context, accessToken string) (*LogoutResult, error) {
	owner, ok := s.identity.TokenSubject(accessToken)
	if err := s.identity.SignOut(ctx, accessToken); err != nil {
		s.logg.WarnErr(ctx, "auth.sign_out_failed", err)
	}
	if ok {
		if err := s.state.Clear(ctx, owner, state.AllKinds...); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear local state")
		}
	}
	return &LogoutResult{Redirect: LogoutRedirect}, nil
}

func (s *service) CheckSession(ctx context.Context, accessToken string) *AuthenticatedUser {
	if strings.TrimSpace(accessToken) == "" {
		return nil
	}
	user, err := s.identity.GetUser(ctx, accessToken)
	if err != nil {
		s.logg.Debug(ctx, "auth.session_invalid")
		if owner, ok := s.identity.TokenSubject(accessToken); ok {
			if err := s.state.Clear(ctx, owner, state.KindAuth); err != nil {
				s.logg.WarnErr(ctx, "auth.mirror_clear_failed", err)
			}
		}
		return nil
	}
	resolved := s.resolve(ctx, user)
	s.mirror(ctx, resolved)
	return resolved
}

func (s *service) UpdateProfile(ctx context.Context, current AuthenticatedUser, req ProfileUpdateRequest) (*AuthenticatedUser, error) {
	if strings.TrimSpace(current.ID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "login required")
	}
	update := identity.UserUpdate{}
	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "full name cannot be empty")
		}
		update.FullName = &name
	}
	if req.Password != nil && *req.Password != "" {
		if err := security.ValidatePassword(*req.Password, s.minLength); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
		}
		update.Password = req.Password
	}

	user, err := s.identity.UpdateUser(ctx, current.ID, update)
	if err != nil {
		return nil, err
	}
	if update.FullName != nil {
		if err := s.profiles.UpdateName(ctx, current.ID, *update.FullName); err != nil {
			s.logg.WarnErr(s.logg.WithUserID(ctx, current.ID), "auth.profile_sync_failed", err)
		}
	}
	resolved := s.resolve(ctx, user)
	s.mirror(ctx, resolved)
	return resolved, nil
}

func (s *service) Refresh(ctx context.Context, req RefreshRequest) (*Result, error) {
	user, sess, err := s.identity.Refresh(ctx, req.AccessToken, req.RefreshToken)
	if err != nil {
		return nil, err
	}
	resolved := s.resolve(ctx, user)
	s.mirror(ctx, resolved)
	return &Result{User: resolved, Session: sess}, nil
}

func (s *service) resolve(ctx context.Context, user *identity.User) *AuthenticatedUser {
	profile, err := s.profiles.Get(ctx, user.ID)
	if err != nil {
		if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			s.logg.WarnErr(s.logg.WithUserID(ctx, user.ID), "auth.profile_lookup_failed", err)
		}
		profile = nil
	}
	return &AuthenticatedUser{
		ID:          user.ID,
		DisplayName: ResolveDisplayName(profile, user),
		Email:       user.Email,
		Role:        ResolveRole(profile, user),
	}
}

func (s *service) mirror(ctx context.Context, user *AuthenticatedUser) {
	if err := s.state.Save(ctx, state.KindAuth, user.ID, user); err != nil {
		s.logg.WarnErr(s.logg.WithUserID(ctx, user.ID), "auth.mirror_save_failed", err)
	}
}

// ResolveRole picks the profile role, then the sign-up metadata role, then user.
func ResolveRole(profile *models.Profile, user *identity.User) enums.Role {
	if profile != nil && profile.Role.IsValid() {
		return profile.Role
	}
	if user != nil {
		if role, err := enums.ParseRole(user.Role); err == nil {
			return role
		}
	}
	return enums.RoleUser
}

func ResolveDisplayName(profile *models.Profile, user *identity.User) string {
	if profile != nil {
		if name := strings.TrimSpace(profile.FullName); name != "" {
			return name
		}
	}
	if user == nil {
		return defaultDisplayName
	}
	if name := strings.TrimSpace(user.FullName); name != "" {
		return name
	}
	if at := strings.Index(user.Email, "@"); at > 0 {
		return user.Email[:at]
	}
	return defaultDisplayName
}
