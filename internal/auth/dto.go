package auth

import (
	"github.com/grmc/storefront-backend/internal/identity"
	"github.com/grmc/storefront-backend/pkg/enums"
)

// AuthenticatedUser is the signed-in user as the storefront sees it. Role and
// DisplayName are resolved from the profile first and the sign-up metadata second.
type AuthenticatedUser struct {
	ID          string     `json:"id"`
	DisplayName string     `json:"display_name"`
	Email       string     `json:"email"`
	Role        enums.Role `json:"role"`
}

func (u AuthenticatedUser) IsAdmin() bool {
	return u.Role == enums.RoleAdmin
}

// LoginRequest captures the credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	FullName string `json:"full_name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ProfileUpdateRequest changes the display name, the password, or both.
type ProfileUpdateRequest struct {
	FullName *string `json:"full_name,omitempty"`
	Password *string `json:"password,omitempty"`
}

type RefreshRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// Result is returned by login, register and refresh. Session is nil and
// ConfirmationRequired set when a new account must confirm its email first.
type Result struct {
	User                 *AuthenticatedUser `json:"user"`
	Session              *identity.Session  `json:"session,omitempty"`
	ConfirmationRequired bool               `json:"confirmation_required"`
}

type LogoutResult struct {
	Redirect string `json:"redirect"`
}
