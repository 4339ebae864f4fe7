// Package access decides, per page request, whether to render or redirect.
package access

import (
	"context"
	"strings"

	"github.com/grmc/storefront-backend/pkg/enums"
)

const (
	HomePath  = "/"
	LoginPath = "/login"

	adminPrefix = "/admin"
)

var authPages = []string{"/login", "/register"}

var userPrefixes = []string{"/profile", "/orders", "/cart", "/checkout", "/wishlist"}

// RoleLookup resolves the stored role of a user. It is consulted at most once
// per admin request and never cached.
type RoleLookup interface {
	RoleOf(ctx context.Context, userID string) (enums.Role, error)
}

type RoleLookupFunc func(ctx context.Context, userID string) (enums.Role, error)

func (f RoleLookupFunc) RoleOf(ctx context.Context, userID string) (enums.Role, error) {
	return f(ctx, userID)
}

// Decision is the outcome of Evaluate. A zero Redirect means proceed.
type Decision struct {
	Redirect string
	Reason   string
}

func (d Decision) Proceed() bool { return d.Redirect == "" }

func proceed() Decision { return Decision{} }

func redirect(to, reason string) Decision {
	return Decision{Redirect: to, Reason: reason}
}

// Evaluate applies the page gate. userID is empty when the request carries no
// valid session.
func Evaluate(ctx context.Context, path, userID string, roles RoleLookup) Decision {
	path = normalize(path)
	hasSession := userID != ""

	switch {
	case matchesAny(path, authPages):
		if hasSession {
			return redirect(HomePath, "already_authenticated")
		}
		return proceed()
	case hasPrefix(path, adminPrefix):
		if !hasSession {
			return redirect(LoginPath, "login_required")
		}
		if roles == nil {
			return redirect(HomePath, "not_admin")
		}
		role, err := roles.RoleOf(ctx, userID)
		if err != nil || role != enums.RoleAdmin {
			return redirect(HomePath, "not_admin")
		}
		return proceed()
	case matchesAny(path, userPrefixes):
		if !hasSession {
			return redirect(LoginPath, "login_required")
		}
		return proceed()
	}
	return proceed()
}

func normalize(path string) string {
	if path == "" {
		return "/"
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	return strings.ToLower(path)
}

// hasPrefix matches whole path segments, so "/administrator" is not "/admin".
func hasPrefix(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func matchesAny(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if hasPrefix(path, p) {
			return true
		}
	}
	return false
}
