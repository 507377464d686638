package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/groupcart-backend/api/controllers"
	authcontrollers "github.com/angelmondragon/groupcart-backend/api/controllers/auth"
	cartcontrollers "github.com/angelmondragon/groupcart-backend/api/controllers/cart"
	"github.com/angelmondragon/groupcart-backend/api/middleware"
	"github.com/angelmondragon/groupcart-backend/internal/auth"
	"github.com/angelmondragon/groupcart-backend/internal/cart"
	products "github.com/angelmondragon/groupcart-backend/internal/products"
	"github.com/angelmondragon/groupcart-backend/pkg/auth/session"
	"github.com/angelmondragon/groupcart-backend/pkg/config"
	"github.com/angelmondragon/groupcart-backend/pkg/logger"
	"github.com/angelmondragon/groupcart-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/groupcart-backend/pkg/redis"
)

type rateLimiter interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	RateLimitKey(scope string) string
}

// cacheStore is the Redis surface used by idempotency and auth throttling.
type cacheStore interface {
	pkgredis.IdempotencyStore
	rateLimiter
}

// Params carries every dependency the HTTP surface needs.
type Params struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       controllers.Pinger
	Cache    cacheStore
	Sessions session.AccessSessionChecker
	Gatherer prometheus.Gatherer
	HTTP     *metrics.HTTPMetrics

	Auth     auth.Service
	Carts    cart.Service
	Products products.Service
}

func NewRouter(p Params) http.Handler {
	cfg, logg := p.Config, p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, p.HTTP),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	var limiter rateLimiter
	var idempotency pkgredis.IdempotencyStore
	readiness := map[string]controllers.Pinger{"db": p.DB}
	if p.Cache != nil {
		limiter = p.Cache
		if cfg.FeatureFlags.Idempotency {
			idempotency = p.Cache
		}
		if pinger, ok := p.Cache.(controllers.Pinger); ok {
			readiness["redis"] = pinger
		}
	}
	loginPolicy, registerPolicy := middleware.AuthRateLimitPolicies(cfg.AuthRateLimit)
	requireAuth := middleware.Auth(cfg.JWT, p.Sessions, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	if p.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(loginPolicy, limiter, logg)).Post("/login", authcontrollers.AuthLogin(p.Auth, logg))
			r.With(middleware.AuthRateLimit(registerPolicy, limiter, logg)).Post("/register", authcontrollers.AuthRegister(p.Auth, logg))
			r.Post("/refresh", authcontrollers.AuthRefresh(p.Auth, logg))
			r.With(requireAuth).Post("/logout", authcontrollers.AuthLogout(p.Auth, logg))
			r.With(requireAuth).Get("/me", authcontrollers.AuthMe(p.Auth, logg))
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(p.Products, logg))
			r.Get("/categories", controllers.CategoryList(p.Products, logg))
			r.Get("/with-active-carts", controllers.ProductsWithActiveCarts(p.Products, logg))
			r.Get("/{productId}", controllers.ProductDetail(p.Products, logg))
		})
		r.Get("/categories", controllers.CategoryList(p.Products, logg))

		r.Route("/carts", func(r chi.Router) {
			r.Get("/{cartId}", cartcontrollers.CartDetails(p.Carts, logg))

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.With(middleware.Idempotency(idempotency, cfg.Carts.IdempotencyTTL, logg)).Post("/", cartcontrollers.CartAdd(p.Carts, logg))
				r.Get("/mine", cartcontrollers.CartListMine(p.Carts, logg))
				r.Delete("/{cartId}", cartcontrollers.CartRemove(p.Carts, logg))
			})
		})
	})

	return r
}
