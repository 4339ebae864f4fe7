package validators

import (
	"net/http"
	"strings"
)

// AccessToken returns the bearer token from the Authorization header, falling
// back to the session cookie used by page requests. Empty means anonymous.
func AccessToken(r *http.Request, cookieName string) string {
	if r == nil {
		return ""
	}
	if raw := strings.TrimSpace(r.Header.Get("Authorization")); raw != "" {
		token := raw
		if strings.HasPrefix(strings.ToLower(token), "bearer ") {
			token = strings.TrimSpace(token[7:])
		}
		return token
	}
	if cookieName == "" {
		return ""
	}
	if c, err := r.Cookie(cookieName); err == nil {
		return strings.TrimSpace(c.Value)
	}
	return ""
}
