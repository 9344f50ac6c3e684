package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/deshikart/deshikart-backend/api/controllers"
	"github.com/deshikart/deshikart-backend/api/middleware"
	authsvc "github.com/deshikart/deshikart-backend/internal/auth"
	"github.com/deshikart/deshikart-backend/internal/cart"
	"github.com/deshikart/deshikart-backend/internal/catalog"
	"github.com/deshikart/deshikart-backend/internal/fulfillment"
	"github.com/deshikart/deshikart-backend/internal/orders"
	"github.com/deshikart/deshikart-backend/internal/tracking"
	"github.com/deshikart/deshikart-backend/pkg/config"
	"github.com/deshikart/deshikart-backend/pkg/db"
	"github.com/deshikart/deshikart-backend/pkg/logger"
	"github.com/deshikart/deshikart-backend/pkg/metaconv"
	pkgredis "github.com/deshikart/deshikart-backend/pkg/redis"
)

// Deps carries everything the HTTP surface needs. MetricsHandler is
// optional; when nil the /metrics route is not mounted.
type Deps struct {
	Config         *config.Config
	Logger         *logger.Logger
	Database       db.Pinger
	Redis          *pkgredis.Client
	Auth           authsvc.Service
	Catalog        catalog.Service
	Cart           cart.Service
	Orders         orders.Service
	Fulfillment    fulfillment.Service
	Tracking       tracking.Service
	Pixels         *metaconv.Client
	MetricsHandler http.Handler
}

// idempotencyStore keeps a nil client from becoming a non-nil interface.
func idempotencyStore(client *pkgredis.Client) pkgredis.IdempotencyStore {
	if client == nil {
		return nil
	}
	return client
}

func redisPinger(client *pkgredis.Client) db.Pinger {
	if client == nil {
		return nil
	}
	return client
}

func rateLimitStore(client *pkgredis.Client) pkgredis.RateLimiterStore {
	if client == nil {
		return nil
	}
	return client
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginUserLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Database, redisPinger(deps.Redis)))
	})

	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Session(logg, cfg.App.IsProd()))

		r.Get("/products", controllers.ListProducts(deps.Catalog, logg))
		r.Get("/products/best-selling", controllers.ListBestSelling(deps.Catalog, logg))
		r.Get("/products/{id}", controllers.GetProduct(deps.Catalog, logg))
		r.Get("/notifications/active", controllers.ActiveNotification(deps.Catalog, logg))
		r.Get("/tracking-codes", controllers.ListActiveTrackingCodes(deps.Tracking, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.GetCart(deps.Cart, logg))
			r.Delete("/", controllers.ClearCart(deps.Cart, logg))
			r.Post("/items", controllers.AddCartItem(deps.Cart, deps.Pixels, logg))
			r.Put("/items/{itemID}", controllers.UpdateCartItem(deps.Cart, logg))
			r.Delete("/items/{itemID}", controllers.RemoveCartItem(deps.Cart, logg))
		})

		checkout := controllers.Checkout(controllers.CheckoutDeps{
			Orders:     deps.Orders,
			Dispatcher: deps.Fulfillment,
			Pixels:     deps.Pixels,
			Flags:      cfg.FeatureFlags,
		}, logg)
		r.With(middleware.Idempotency(idempotencyStore(deps.Redis), logg)).Post("/checkout", checkout)

		r.Route("/admin", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(loginPolicy, rateLimitStore(deps.Redis), logg)).
				Post("/login", controllers.AdminLogin(deps.Auth, logg))

			r.Group(func(r chi.Router) {
				r.Use(
					middleware.Auth(cfg.JWT, logg),
					middleware.Idempotency(idempotencyStore(deps.Redis), logg),
				)
				adminRoutes(r, deps, logg)
			})
		})
	})

	return r
}

func adminRoutes(r chi.Router, deps Deps, logg *logger.Logger) {
	r.Route("/products", func(r chi.Router) {
		r.Get("/", controllers.AdminListProducts(deps.Catalog, logg))
		r.Post("/", controllers.AdminCreateProduct(deps.Catalog, logg))
		r.Get("/{id}", controllers.AdminGetProduct(deps.Catalog, logg))
		r.Put("/{id}", controllers.AdminUpdateProduct(deps.Catalog, logg))
		r.Delete("/{id}", controllers.AdminDeleteProduct(deps.Catalog, logg))
	})

	r.Route("/best-selling", func(r chi.Router) {
		r.Get("/", controllers.ListBestSelling(deps.Catalog, logg))
		r.Post("/", controllers.AdminSetBestSelling(deps.Catalog, logg))
		r.Delete("/{productID}", controllers.AdminRemoveBestSelling(deps.Catalog, logg))
	})

	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", controllers.AdminListNotifications(deps.Catalog, logg))
		r.Post("/", controllers.AdminCreateNotification(deps.Catalog, logg))
		r.Post("/{id}/activate", controllers.AdminActivateNotification(deps.Catalog, logg))
		r.Delete("/{id}", controllers.AdminDeleteNotification(deps.Catalog, logg))
	})

	r.Route("/orders", func(r chi.Router) {
		r.Get("/", controllers.AdminListOrders(deps.Orders, logg))
		r.Get("/{id}", controllers.AdminGetOrder(deps.Orders, logg))
		r.Patch("/{id}/status", controllers.AdminUpdateOrderStatus(deps.Orders, logg))
		r.Post("/{id}/cancel", controllers.AdminCancelOrder(deps.Orders, logg))
		r.Post("/{id}/dispatch", controllers.AdminDispatchOrder(deps.Fulfillment, logg))
		r.Post("/{id}/courier-status", controllers.AdminRefreshCourierStatus(deps.Fulfillment, logg))
	})

	r.Get("/courier/balance", controllers.AdminCourierBalance(deps.Fulfillment, logg))

	r.Route("/tracking-codes", func(r chi.Router) {
		r.Get("/", controllers.AdminListTrackingCodes(deps.Tracking, logg))
		r.Post("/", controllers.AdminCreateTrackingCode(deps.Tracking, logg))
		r.Post("/{id}/activate", controllers.AdminActivateTrackingCode(deps.Tracking, logg))
		r.Delete("/{id}", controllers.AdminDeleteTrackingCode(deps.Tracking, logg))
	})
}
