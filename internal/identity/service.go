package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	pkgauth "github.com/grmc/storefront-backend/pkg/auth"
	"github.com/grmc/storefront-backend/pkg/auth/session"
	"github.com/grmc/storefront-backend/pkg/config"
	"github.com/grmc/storefront-backend/pkg/db"
	"github.com/grmc/storefront-backend/pkg/db/models"
	"github.com/grmc/storefront-backend/pkg/enums"
	pkgerrors "github.com/grmc/storefront-backend/pkg/errors"
)

const (
	invalidCredentialsMessage = "invalid login credentials"
	invalidSessionMessage     = "session is invalid or expired"
)

// User is the credential-side view of an account. FullName and Role are the
// metadata captured at sign-up.
type User struct {
	ID             string     `json:"id"`
	Email          string     `json:"email"`
	FullName       string     `json:"full_name"`
	Role           string     `json:"role"`
	EmailConfirmed bool       `json:"email_confirmed"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`
}

// Session is the token pair handed to a signed-in client.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type SignUpInput struct {
	Email    string
	Password string
	FullName string
	Role     enums.Role
}

// UserUpdate changes metadata or credentials. Nil fields are left alone.
type UserUpdate struct {
	FullName *string
	Password *string
}

// Service is the credential backend: it owns passwords, access tokens and
// refresh sessions.
type Service interface {
	SignIn(ctx context.Context, email, password string) (*User, *Session, error)
	// SignUp returns a nil session when the account still needs email confirmation.
	SignUp(ctx context.Context, input SignUpInput) (*User, *Session, error)
	SignOut(ctx context.Context, accessToken string) error
	GetUser(ctx context.Context, accessToken string) (*User, error)
	Refresh(ctx context.Context, accessToken, refreshToken string) (*User, *Session, error)
	UpdateUser(ctx context.Context, userID string, update UserUpdate) (*User, error)
	// TokenSubject returns the user id a signed token was issued to, ignoring expiry.
	TokenSubject(accessToken string) (string, bool)
}

type repository interface {
	Create(ctx context.Context, user *models.AuthUser) error
	FindByEmail(ctx context.Context, email string) (*models.AuthUser, error)
	FindByID(ctx context.Context, id string) (*models.AuthUser, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	Update(ctx context.Context, id string, fields map[string]any, at time.Time) error
}

type sessionManager interface {
	Generate(ctx context.Context, userID, accessID string) (string, error)
	Rotate(ctx context.Context, userID, oldAccessID, refreshToken string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
	HasSession(ctx context.Context, accessID string) (bool, error)
}

type passwordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) (bool, error)
}

// rehasher is implemented by hashers that can tell when a stored hash uses
// outdated costs.
type rehasher interface {
	NeedsRehash(encoded string) bool
}

// ServiceParams bundles the dependencies of the identity service.
type ServiceParams struct {
	Repo                     repository
	Sessions                 sessionManager
	Hasher                   passwordHasher
	JWTConfig                config.JWTConfig
	RequireEmailConfirmation bool
	Now                      func() time.Time
}

type service struct {
	repo         repository
	sessions     sessionManager
	hasher       passwordHasher
	jwtCfg       config.JWTConfig
	requireEmail bool
	now          func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "identity repo is required")
	}
	if params.Sessions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session manager is required")
	}
	if params.Hasher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password hasher is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:         params.Repo,
		sessions:     params.Sessions,
		hasher:       params.Hasher,
		jwtCfg:       params.JWTConfig,
		requireEmail: params.RequireEmailConfirmation,
		now:          now,
	}, nil
}

func (s *service) SignIn(ctx context.Context, email, password string) (*User, *Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	record, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}
	valid, err := s.hasher.Verify(password, record.PasswordHash)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return nil, nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	if s.requireEmail && record.EmailConfirmedAt == nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "email not confirmed")
	}

	now := s.now().UTC()
	s.upgradeHash(ctx, record.ID, password, record.PasswordHash, now)
	if err := s.repo.UpdateLastLogin(ctx, record.ID, now); err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update last login")
	}
	record.LastLoginAt = &now

	sess, err := s.openSession(ctx, record, now)
	if err != nil {
		return nil, nil, err
	}
	return toUser(record), sess, nil
}

// upgradeHash re-encodes the password after a successful sign in when the
// configured costs have grown. A failure leaves the old hash in place and the
// next sign in tries again.
func (s *service) upgradeHash(ctx context.Context, userID, password, encoded string, now time.Time) {
	r, ok := s.hasher.(rehasher)
	if !ok || !r.NeedsRehash(encoded) {
		return
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return
	}
	_ = s.repo.Update(ctx, userID, map[string]any{"password_hash": hash}, now)
}

func (s *service) SignUp(ctx context.Context, input SignUpInput) (*User, *Session, error) {
	email := normalizeEmail(input.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "a valid email is required")
	}
	if input.Password == "" {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "password is required")
	}
	role := input.Role
	if !role.IsValid() {
		role = enums.RoleUser
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeConflict, "user already registered")
	} else if !db.IsNotFound(err) {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check user email")
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	now := s.now().UTC()
	record := &models.AuthUser{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(input.FullName),
		Role:         role.String(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if !s.requireEmail {
		record.EmailConfirmedAt = &now
	}
	if err := s.repo.Create(ctx, record); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, nil, pkgerrors.New(pkgerrors.CodeConflict, "user already registered")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
	}

	if s.requireEmail {
		return toUser(record), nil, nil
	}
	sess, err := s.openSession(ctx, record, now)
	if err != nil {
		return nil, nil, err
	}
	return toUser(record), sess, nil
}

// SignOut revokes the refresh session bound to the token. Expired tokens can
// still be signed out.
func (s *service) SignOut(ctx context.Context, accessToken string) error {
	claims, err := pkgauth.ParseAccessTokenAllowExpired(s.jwtCfg, strings.TrimSpace(accessToken))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, invalidSessionMessage)
	}
	if claims.ID == "" {
		return nil
	}
	if err := s.sessions.Revoke(ctx, claims.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}

func (s *service) GetUser(ctx context.Context, accessToken string) (*User, error) {
	claims, err := pkgauth.ParseAccessToken(s.jwtCfg, strings.TrimSpace(accessToken))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, invalidSessionMessage)
	}
	if claims.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidSessionMessage)
	}
	active, err := s.sessions.HasSession(ctx, claims.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check session")
	}
	if !active {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidSessionMessage)
	}
	return s.loadUser(ctx, claims.UserID.String())
}

func (s *service) Refresh(ctx context.Context, accessToken, refreshToken string) (*User, *Session, error) {
	claims, err := pkgauth.ParseAccessTokenAllowExpired(s.jwtCfg, strings.TrimSpace(accessToken))
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, invalidSessionMessage)
	}
	userID := claims.UserID.String()
	newAccessID, newRefresh, err := s.sessions.Rotate(ctx, userID, claims.ID, strings.TrimSpace(refreshToken))
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidSessionMessage)
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate session")
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	now := s.now().UTC()
	token, err := s.mint(user.ID, user.Email, user.Role, newAccessID, now)
	if err != nil {
		return nil, nil, err
	}
	return user, &Session{
		AccessToken:  token,
		RefreshToken: newRefresh,
		ExpiresAt:    now.Add(s.jwtCfg.AccessTokenTTL()),
	}, nil
}

func (s *service) UpdateUser(ctx context.Context, userID string, update UserUpdate) (*User, error) {
	fields := map[string]any{}
	if update.FullName != nil {
		fields["full_name"] = strings.TrimSpace(*update.FullName)
	}
	if update.Password != nil && *update.Password != "" {
		hash, err := s.hasher.Hash(*update.Password)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
		}
		fields["password_hash"] = hash
	}
	if err := s.repo.Update(ctx, userID, fields, s.now().UTC()); err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update user")
	}
	return s.loadUser(ctx, userID)
}

func (s *service) TokenSubject(accessToken string) (string, bool) {
	claims, err := pkgauth.ParseAccessTokenAllowExpired(s.jwtCfg, strings.TrimSpace(accessToken))
	if err != nil || claims.UserID == uuid.Nil {
		return "", false
	}
	return claims.UserID.String(), true
}

func (s *service) openSession(ctx context.Context, record *models.AuthUser, now time.Time) (*Session, error) {
	accessID := session.NewAccessID()
	token, err := s.mint(record.ID, record.Email, record.Role, accessID, now)
	if err != nil {
		return nil, err
	}
	refresh, err := s.sessions.Generate(ctx, record.ID, accessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store refresh token")
	}
	return &Session{
		AccessToken:  token,
		RefreshToken: refresh,
		ExpiresAt:    now.Add(s.jwtCfg.AccessTokenTTL()),
	}, nil
}

func (s *service) mint(userID, email, role, accessID string, now time.Time) (string, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "parse user id")
	}
	parsedRole, err := enums.ParseRole(role)
	if err != nil {
		parsedRole = enums.RoleUser
	}
	token, err := pkgauth.MintAccessToken(s.jwtCfg, now, pkgauth.AccessTokenPayload{
		UserID: id,
		Email:  email,
		Role:   parsedRole,
		JTI:    accessID,
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return token, nil
}

func (s *service) loadUser(ctx context.Context, id string) (*User, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidSessionMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return toUser(record), nil
}

func toUser(record *models.AuthUser) *User {
	return &User{
		ID:             record.ID,
		Email:          record.Email,
		FullName:       record.FullName,
		Role:           record.Role,
		EmailConfirmed: record.EmailConfirmedAt != nil,
		LastLoginAt:    record.LastLoginAt,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
