package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Vuongsinguyen/VyBrows-Store/internal/catalog"
	"github.com/Vuongsinguyen/VyBrows-Store/internal/repository/cookie"
	"github.com/Vuongsinguyen/VyBrows-Store/internal/service"
	"github.com/Vuongsinguyen/VyBrows-Store/pkg/health"
	"github.com/Vuongsinguyen/VyBrows-Store/pkg/middleware"
)

// serviceName labels metrics and spans.
const serviceName = "storefront"

// DefaultCatalogMaxAge is how long catalog reads may be cached.
const DefaultCatalogMaxAge = 5 * time.Minute

// Options tunes the cross-cutting middleware.
type Options struct {
	CORS          middleware.CORSConfig
	Session       middleware.SessionConfig
	CatalogMaxAge time.Duration

	// AdminCIDRs may reach the order log, revalidation and profiling.
	AdminCIDRs []string

	CheckoutRateLimit middleware.RateLimitConfig
}

// DefaultOptions returns development defaults.
func DefaultOptions() Options {
	return Options{
		CORS:          middleware.DefaultCORSConfig(),
		Session:       middleware.DefaultSessionConfig(),
		CatalogMaxAge: DefaultCatalogMaxAge,
		AdminCIDRs:    middleware.DefaultAdminCIDRs,

		CheckoutRateLimit: middleware.DefaultRateLimitConfig(),
	}
}

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(
	store *catalog.Store,
	cartService *service.CartService,
	checkoutService *service.CheckoutService,
	healthHandler *health.Handler,
	logger *slog.Logger,
	opts Options,
) http.Handler {
	if opts.CatalogMaxAge <= 0 {
		opts.CatalogMaxAge = DefaultCatalogMaxAge
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(opts.CORS))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	middleware.RegisterProfiling(r, opts.AdminCIDRs, logger)
	adminOnly := middleware.AdminOnly(opts.AdminCIDRs, logger)

	catalogHandler := NewCatalogHandler(store, logger)
	cartHandler := NewCartHandler(cartService, logger)
	checkoutHandler := NewCheckoutHandler(checkoutService, logger)
	orderHandler := NewOrderHandler(checkoutService, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		// Catalog reads are shared by every shopper and safe to cache.
		r.Group(func(r chi.Router) {
			r.Use(middleware.CacheControl(opts.CatalogMaxAge))

			r.Get("/products", catalogHandler.ListProducts)
			r.Get("/products/{handle}", catalogHandler.GetProduct)
			r.Get("/products/{handle}/recommendations", catalogHandler.Recommendations)
			r.Get("/collections", catalogHandler.ListCollections)
			r.Get("/collections/{tag}/products", catalogHandler.CollectionProducts)
		})
		r.With(adminOnly, middleware.NoStore).Post("/revalidate", catalogHandler.Revalidate)

		// Everything below is per shopper.
		r.Group(func(r chi.Router) {
			r.Use(middleware.NoStore)
			r.Use(middleware.Session(opts.Session))
			r.Use(cookie.Middleware)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartHandler.GetCart)
				r.Delete("/", cartHandler.ClearCart)

				r.Post("/items", cartHandler.AddItem)
				r.Patch("/items/{merchandiseId}", cartHandler.UpdateItem)
				r.Put("/items/{merchandiseId}", cartHandler.SetItemQuantity)
				r.Delete("/items/{merchandiseId}", cartHandler.RemoveItem)
			})

			r.Route("/checkout", func(r chi.Router) {
				r.Use(middleware.RateLimit(opts.CheckoutRateLimit, logger))

				r.Post("/orders", checkoutHandler.PlaceOrder)
				r.Post("/paypal/orders", checkoutHandler.CreatePaymentOrder)
				r.Post("/paypal/orders/{orderId}/capture", checkoutHandler.CapturePayment)
			})
		})

		r.Route("/orders", func(r chi.Router) {
			r.Use(adminOnly)
			r.Use(middleware.NoStore)

			r.Get("/", orderHandler.ListOrders)
			r.Get("/{orderId}", orderHandler.GetOrder)
			r.Patch("/{orderId}", orderHandler.UpdateStatus)
		})
	})

	return r
}
