package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/marketplace-backend/api/controllers"
	ordercontrollers "github.com/angelmondragon/marketplace-backend/api/controllers/orders"
	"github.com/angelmondragon/marketplace-backend/api/middleware"
	"github.com/angelmondragon/marketplace-backend/internal/auth"
	"github.com/angelmondragon/marketplace-backend/internal/authz"
	"github.com/angelmondragon/marketplace-backend/internal/checkout"
	"github.com/angelmondragon/marketplace-backend/internal/orders"
	"github.com/angelmondragon/marketplace-backend/internal/products"
	"github.com/angelmondragon/marketplace-backend/internal/stores"
	"github.com/angelmondragon/marketplace-backend/pkg/config"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
	"github.com/angelmondragon/marketplace-backend/pkg/metrics"
	"github.com/angelmondragon/marketplace-backend/pkg/redis"
	"github.com/angelmondragon/marketplace-backend/pkg/telemetry"
)

// Params carries everything the router hands to controllers and middleware.
type Params struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          controllers.Pinger
	Redis       controllers.Pinger
	Idempotency redis.IdempotencyStore
	RateLimiter redis.RateCounter
	Gatherer    prometheus.Gatherer
	HTTPMetrics *metrics.HTTPMetrics

	Auth     auth.Service
	Register auth.RegisterService
	Stores   stores.Service
	Products products.Service
	Checkout checkout.Service
	Orders   orders.Service
}

func NewRouter(p Params) http.Handler {
	cfg, logg := p.Config, p.Logger
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.CORS(cfg.App.CORSOrigins),
		telemetry.RouteTagger,
		middleware.Metrics(p.HTTPMetrics),
		middleware.Logging(logg),
	)

	loginLimit := middleware.AuthRateLimit(middleware.LoginRateLimitPolicy(cfg.AuthRateLimit), p.RateLimiter, logg)
	registerLimit := middleware.AuthRateLimit(middleware.RegisterRateLimitPolicy(cfg.AuthRateLimit), p.RateLimiter, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DB, p.Redis))
	})
	if p.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/stores/{slug}/products", controllers.PublicStoreProducts(p.Products, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(registerLimit).Post("/register", controllers.AuthRegister(p.Register, p.Auth, logg))
		r.With(loginLimit).Post("/login", controllers.AuthLogin(p.Auth, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		idempotent := middleware.Idempotency(p.Idempotency, logg)
		can := func(c authz.Capability) func(http.Handler) http.Handler {
			return middleware.RequireCapability(c, logg)
		}

		r.Route("/stores", func(r chi.Router) {
			r.With(can(authz.CapCreateStore), idempotent).Post("/", controllers.StoreCreate(p.Stores, logg))
			r.With(can(authz.CapManageStore)).Get("/", controllers.StoreList(p.Stores, logg))
			r.With(can(authz.CapManageStore)).Patch("/{storeId}", controllers.StoreUpdate(p.Stores, logg))
		})

		r.Route("/products", func(r chi.Router) {
			r.With(can(authz.CapCreateProduct), idempotent).Post("/", controllers.ProductCreate(p.Products, logg))
			r.With(can(authz.CapAdjustStock), idempotent).Patch("/{productId}", controllers.ProductAdjustStock(p.Products, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.With(can(authz.CapPlaceOrder), idempotent).Post("/", ordercontrollers.Place(p.Checkout, logg))
			r.With(can(authz.CapListOrders)).Get("/", ordercontrollers.List(p.Orders, logg))
			r.With(can(authz.CapViewOrder)).Get("/{orderId}", ordercontrollers.Detail(p.Orders, logg))
			// capability depends on the requested action and is checked by orders.Service
			r.With(idempotent).Patch("/{orderId}", ordercontrollers.Transition(p.Orders, logg))
		})
	})

	return r
}
