package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/grmc/storefront-backend/api/controllers"
	"github.com/grmc/storefront-backend/api/middleware"
	"github.com/grmc/storefront-backend/internal/auth"
	"github.com/grmc/storefront-backend/internal/cart"
	checkoutsvc "github.com/grmc/storefront-backend/internal/checkout"
	"github.com/grmc/storefront-backend/internal/messages"
	"github.com/grmc/storefront-backend/internal/orders"
	"github.com/grmc/storefront-backend/internal/products"
	"github.com/grmc/storefront-backend/internal/profiles"
	"github.com/grmc/storefront-backend/internal/reports"
	"github.com/grmc/storefront-backend/internal/wishlist"
	"github.com/grmc/storefront-backend/pkg/auth/session"
	"github.com/grmc/storefront-backend/pkg/config"
	"github.com/grmc/storefront-backend/pkg/logger"
	"github.com/grmc/storefront-backend/pkg/metrics"
	pkgredis "github.com/grmc/storefront-backend/pkg/redis"
)

// RedisStore is the slice of the redis client the router middleware uses.
type RedisStore interface {
	pkgredis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Deps carries everything the router wires into handlers. Pingers that are nil
// show up as disabled in the readiness probe.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	Pingers  map[string]controllers.Pinger
	Redis    RedisStore
	Sessions session.AccessSessionChecker
	Gatherer prometheus.Gatherer
	HTTP     *metrics.HTTPMetrics

	Auth     auth.Service
	Profiles profiles.Service
	Products products.Service
	Cart     cart.Service
	Wishlist wishlist.Service
	Checkout checkoutsvc.Service
	Orders   orders.Service
	Messages messages.Service
	Reports  reports.Service
}

var pages = []struct {
	path, name, title string
}{
	{"/login", "login", "تسجيل الدخول"},
	{"/register", "register", "إنشاء حساب"},
	{"/profile", "profile", "الملف الشخصي"},
	{"/orders", "orders", "طلباتي"},
	{"/cart", "cart", "سلة التسوق"},
	{"/checkout", "checkout", "إتمام الطلب"},
	{"/wishlist", "wishlist", "المفضلة"},
	{"/admin", "admin", "لوحة التحكم"},
	{"/admin/*", "admin", "لوحة التحكم"},
}

func NewRouter(d Deps) http.Handler {
	cfg, logg := d.Config, d.Logger
	cookieName := cfg.Auth.SessionCookieName
	cookie := controllers.SessionCookie{Name: cookieName, Secure: cfg.App.IsProd()}
	maxUpload := cfg.GCS.MaxUploadBytes()

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)
	if d.HTTP != nil {
		r.Use(middleware.Metrics(d.HTTP))
	}

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.Pingers))
	})
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(loginPolicy, d.Redis, logg)).Post("/login", controllers.AuthLogin(d.Auth, cookie, logg))
			r.With(middleware.AuthRateLimit(registerPolicy, d.Redis, logg)).Post("/register", controllers.AuthRegister(d.Auth, cookie, logg))
			r.Post("/logout", controllers.AuthLogout(d.Auth, cookie, logg))
			r.Post("/refresh", controllers.AuthRefresh(d.Auth, cookie, logg))
			r.Get("/session", controllers.AuthSession(d.Auth, cookie))
		})

		r.Get("/products", controllers.ProductList(d.Products, logg))
		r.Get("/products/categories", controllers.ProductCategories(d.Products, logg))
		r.Get("/products/{productId}", controllers.ProductDetail(d.Products, logg))
		r.Get("/products/{productId}/related", controllers.ProductRelated(d.Products, logg))

		r.Post("/messages", controllers.MessageSubmit(d.Messages, logg))
		r.Post("/reports", controllers.ReportSubmit(d.Reports, reports.EntryForm, maxUpload, logg))
		r.Post("/reports/map", controllers.ReportSubmit(d.Reports, reports.EntryMap, maxUpload, logg))
		r.Get("/geocode/reverse", controllers.GeocodeReverse(d.Reports, logg))
		r.Get("/geocode/search", controllers.GeocodeSearch(d.Reports, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, cookieName, d.Sessions, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartFetch(d.Cart, logg))
				r.Delete("/", controllers.CartClear(d.Cart, logg))
				r.Post("/items", controllers.CartAddItem(d.Cart, logg))
				r.Patch("/items/{productId}", controllers.CartUpdateItem(d.Cart, logg))
				r.Delete("/items/{productId}", controllers.CartRemoveItem(d.Cart, logg))
			})

			r.Route("/wishlist", func(r chi.Router) {
				r.Get("/", controllers.WishlistFetch(d.Wishlist, logg))
				r.Delete("/", controllers.WishlistClear(d.Wishlist, logg))
				r.Post("/items", controllers.WishlistAddItem(d.Wishlist, logg))
				r.Get("/items/{productId}", controllers.WishlistContains(d.Wishlist, logg))
				r.Delete("/items/{productId}", controllers.WishlistRemoveItem(d.Wishlist, logg))
				r.Post("/items/{productId}/move-to-cart", controllers.WishlistMoveToCart(d.Wishlist, logg))
			})

			r.With(middleware.Idempotency(d.Redis, cfg.Checkout.IdempotencyTTL, logg)).
				Post("/checkout", controllers.Checkout(d.Checkout, logg))

			r.Get("/orders", controllers.OrderHistory(d.Orders, logg))
			r.Get("/orders/{orderId}", controllers.OrderInvoice(d.Orders, d.Profiles, logg))

			r.Get("/profile", controllers.ProfileGet(d.Auth, logg))
			r.Patch("/profile", controllers.ProfileUpdate(d.Auth, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, cookieName, d.Sessions, logg))
		r.Use(middleware.RequireAdmin(d.Profiles, logg))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.AdminProductList(d.Products, logg))
			r.Post("/", controllers.AdminProductCreate(d.Products, logg))
			r.Put("/{productId}", controllers.AdminProductUpdate(d.Products, logg))
			r.Delete("/{productId}", controllers.AdminProductDelete(d.Products, logg))
			r.Post("/{productId}/image", controllers.AdminProductImage(d.Products, maxUpload, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.AdminOrderList(d.Orders, logg))
			r.Get("/summary", controllers.AdminOrderSummary(d.Orders, logg))
			r.Patch("/{orderId}/status", controllers.AdminOrderUpdateStatus(d.Orders, logg))
			r.Delete("/{orderId}", controllers.AdminOrderDelete(d.Orders, logg))
		})

		r.Get("/users", controllers.AdminUserList(d.Profiles, logg))
		r.Delete("/users/{userId}", controllers.AdminUserDelete(d.Profiles, logg))
		r.Get("/admins", controllers.AdminAdminList(d.Profiles, logg))
		r.Post("/admins", controllers.AdminAdminPromote(d.Profiles, logg))
		r.Delete("/admins/{userId}", controllers.AdminAdminDemote(d.Profiles, logg))

		r.Route("/messages", func(r chi.Router) {
			r.Get("/", controllers.AdminMessageList(d.Messages, logg))
			r.Patch("/{messageId}/read", controllers.AdminMessageToggleRead(d.Messages, logg))
			r.Delete("/{messageId}", controllers.AdminMessageDelete(d.Messages, logg))
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/", controllers.AdminReportList(d.Reports, logg))
			r.Get("/stats", controllers.AdminReportStats(d.Reports, logg))
			r.Get("/{reportId}", controllers.AdminReportDetail(d.Reports, logg))
			r.Patch("/{reportId}", controllers.AdminReportUpdate(d.Reports, logg))
			r.Delete("/{reportId}", controllers.AdminReportDelete(d.Reports, logg))
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.PageGate(cfg.JWT, cookieName, d.Sessions, d.Profiles, logg))
		for _, p := range pages {
			r.Get(p.path, controllers.Page(p.name, p.title, logg))
		}
		r.Get("/invoice/{orderId}", controllers.InvoicePage(d.Orders, d.Profiles, cfg.Storefront.CurrencyLabel, logg))
	})

	return r
}
