package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/grmc/storefront-backend/api/controllers"
	"github.com/grmc/storefront-backend/internal/cart"
	"github.com/grmc/storefront-backend/internal/products"
	"github.com/grmc/storefront-backend/internal/profiles"
	pkgAuth "github.com/grmc/storefront-backend/pkg/auth"
	"github.com/grmc/storefront-backend/pkg/auth/session"
	"github.com/grmc/storefront-backend/pkg/config"
	"github.com/grmc/storefront-backend/pkg/enums"
	"github.com/grmc/storefront-backend/pkg/logger"
	"github.com/grmc/storefront-backend/pkg/metrics"
	"github.com/grmc/storefront-backend/pkg/pagination"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubSessions struct{}

func (stubSessions) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

type stubProfiles struct {
	profiles.Service
	roles   map[string]enums.Role
	lookups int
}

func (s *stubProfiles) RoleOf(ctx context.Context, id string) (enums.Role, error) {
	s.lookups++
	return s.roles[id], nil
}

func (s *stubProfiles) ListAdmins(ctx context.Context) ([]profiles.ProfileDTO, error) {
	return []profiles.ProfileDTO{}, nil
}

type stubProducts struct {
	products.Service
}

func (stubProducts) List(ctx context.Context, filter products.Filter, page pagination.Params) (*products.ListResult, error) {
	return &products.ListResult{Items: []products.ProductDTO{}}, nil
}

type stubCart struct {
	cart.Service
}

func (stubCart) Get(ctx context.Context, owner string) (cart.View, error) {
	return cart.View{Items: []cart.ItemView{}, Total: "0.000"}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App:  config.AppConfig{Env: "dev"},
		JWT:  config.JWTConfig{Secret: "secret", Issuer: "grmc", ExpirationMinutes: 60},
		Auth: config.AuthConfig{SessionCookieName: "grmc_access_token"},
		CORS: config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
	}
}

func mintToken(t *testing.T, cfg *config.Config, role enums.Role) (string, string) {
	t.Helper()
	userID := uuid.New()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: userID,
		Email:  "user@example.com",
		Role:   role,
		JTI:    session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token, userID.String()
}

func newTestRouter(cfg *config.Config, prof *stubProfiles) http.Handler {
	reg := prometheus.NewRegistry()
	return NewRouter(Deps{
		Config:   cfg,
		Logger:   logger.Nop(),
		Pingers:  map[string]controllers.Pinger{"db": stubPinger{}},
		Sessions: stubSessions{},
		Gatherer: reg,
		HTTP:     metrics.NewHTTPMetrics(reg),
		Profiles: prof,
		Products: stubProducts{},
		Cart:     stubCart{},
	})
}

func serve(h http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func TestHealthAndMetricsRoutes(t *testing.T) {
	router := newTestRouter(testConfig(), &stubProfiles{})

	if resp := serve(router, http.MethodGet, "/health/live", ""); resp.Code != http.StatusOK {
		t.Fatalf("live: expected 200 got %d", resp.Code)
	}
	if resp := serve(router, http.MethodGet, "/health/ready", ""); resp.Code != http.StatusOK {
		t.Fatalf("ready: expected 200 got %d", resp.Code)
	}
	resp := serve(router, http.MethodGet, "/metrics", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("metrics: expected 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "http_requests_total") {
		t.Fatalf("expected request counter in metrics output")
	}
}

func TestPublicCatalogNeedsNoToken(t *testing.T) {
	router := newTestRouter(testConfig(), &stubProfiles{})
	if resp := serve(router, http.MethodGet, "/api/v1/products", ""); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestCartRequiresSession(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, &stubProfiles{})

	if resp := serve(router, http.MethodGet, "/api/v1/cart", ""); resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}

	token, _ := mintToken(t, cfg, enums.RoleUser)
	if resp := serve(router, http.MethodGet, "/api/v1/cart", token); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestAdminAPIChecksStoredRole(t *testing.T) {
	cfg := testConfig()
	token, userID := mintToken(t, cfg, enums.RoleAdmin)
	prof := &stubProfiles{roles: map[string]enums.Role{userID: enums.RoleUser}}
	router := newTestRouter(cfg, prof)

	if resp := serve(router, http.MethodGet, "/api/admin/v1/admins", token); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for demoted user got %d", resp.Code)
	}

	prof.roles[userID] = enums.RoleAdmin
	if resp := serve(router, http.MethodGet, "/api/admin/v1/admins", token); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin got %d", resp.Code)
	}
}

func TestPageGateRedirects(t *testing.T) {
	cfg := testConfig()
	userToken, userID := mintToken(t, cfg, enums.RoleUser)
	prof := &stubProfiles{roles: map[string]enums.Role{userID: enums.RoleUser}}
	router := newTestRouter(cfg, prof)

	cases := []struct {
		path     string
		token    string
		status   int
		location string
	}{
		{"/cart", "", http.StatusFound, "/login"},
		{"/admin/orders", "", http.StatusFound, "/login"},
		{"/login", "", http.StatusOK, ""},
		{"/login", userToken, http.StatusFound, "/"},
		{"/admin", userToken, http.StatusFound, "/"},
		{"/wishlist", userToken, http.StatusOK, ""},
	}
	for _, tc := range cases {
		resp := serve(router, http.MethodGet, tc.path, tc.token)
		if resp.Code != tc.status {
			t.Fatalf("%s: expected %d got %d", tc.path, tc.status, resp.Code)
		}
		if tc.location != "" && resp.Header().Get("Location") != tc.location {
			t.Fatalf("%s: expected redirect to %s got %q", tc.path, tc.location, resp.Header().Get("Location"))
		}
	}
	if prof.lookups != 1 {
		t.Fatalf("expected a single role lookup for the admin page, got %d", prof.lookups)
	}
}
