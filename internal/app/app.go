package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/Vuongsinguyen/VyBrows-Store/internal/catalog"
	"github.com/Vuongsinguyen/VyBrows-Store/internal/config"
	"github.com/Vuongsinguyen/VyBrows-Store/internal/event"
	"github.com/Vuongsinguyen/VyBrows-Store/internal/gateway/ledger"
	"github.com/Vuongsinguyen/VyBrows-Store/internal/gateway/payment"
	"github.com/Vuongsinguyen/VyBrows-Store/internal/gateway/payment/mock"
	"github.com/Vuongsinguyen/VyBrows-Store/internal/gateway/payment/paypal"
	handler "github.com/Vuongsinguyen/VyBrows-Store/internal/handler/http"
	"github.com/Vuongsinguyen/VyBrows-Store/internal/repository"
	"github.com/Vuongsinguyen/VyBrows-Store/internal/repository/cookie"
	"github.com/Vuongsinguyen/VyBrows-Store/internal/repository/memory"
	"github.com/Vuongsinguyen/VyBrows-Store/internal/repository/postgres"
	redisrepo "github.com/Vuongsinguyen/VyBrows-Store/internal/repository/redis"
	"github.com/Vuongsinguyen/VyBrows-Store/internal/service"
	"github.com/Vuongsinguyen/VyBrows-Store/pkg/database"
	"github.com/Vuongsinguyen/VyBrows-Store/pkg/health"
	"github.com/Vuongsinguyen/VyBrows-Store/pkg/httpclient"
	pkgkafka "github.com/Vuongsinguyen/VyBrows-Store/pkg/kafka"
	"github.com/Vuongsinguyen/VyBrows-Store/pkg/tracing"
)

const serviceName = "storefront"

// App wires together all dependencies and runs the storefront.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	rdb            *redis.Client
	pool           *pgxpool.Pool
	producer       *pkgkafka.Producer
	tracerShutdown func(context.Context) error
	httpServer     *http.Server
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	if err := a.init(ctx); err != nil {
		a.closeResources()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg, logger := a.cfg, a.logger

	// Tracing.
	tracingCfg := tracing.DefaultConfig(serviceName)
	tracingCfg.Environment = cfg.Environment
	tracingCfg.Enabled = cfg.OTELEnabled
	tracingCfg.OTLPEndpoint = cfg.OTELEndpoint
	tracingCfg.SampleRate = cfg.OTELSampleRate
	shutdown, err := tracing.InitTracer(ctx, tracingCfg)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	a.tracerShutdown = shutdown

	// Catalog.
	store, err := catalog.NewStore(ctx, cfg.CatalogPath, logger)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	healthHandler := health.NewHandler()
	healthHandler.Register("catalog", func(context.Context) error {
		if store.Count() == 0 {
			return errors.New("catalog is empty")
		}
		return nil
	})

	// Cart persistence.
	cartTTL := time.Duration(cfg.CartTTL) * time.Hour
	var carts repository.CartRepository
	switch cfg.CartStore {
	case config.CartStoreRedis:
		rdb, err := database.NewRedisClient(ctx, database.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		a.rdb = rdb
		logger.Info("connected to Redis",
			slog.String("addr", cfg.RedisAddr),
			slog.Int("db", cfg.RedisDB),
		)
		healthHandler.Register("redis", func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
		carts = redisrepo.NewCartRepository(rdb, cartTTL, logger)
	default:
		carts = cookie.NewCartRepository(cookie.Config{
			MaxAge: cartTTL,
			Secure: cfg.IsProduction(),
		}, logger)
	}

	// Order log.
	var orders repository.OrderRepository
	if cfg.DatabaseURL != "" {
		pool, err := database.NewPostgresPool(ctx, database.DefaultPostgresConfig(cfg.DatabaseURL), logger)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		a.pool = pool

		if err := database.RunMigrations(ctx, pool, postgres.Migrations, postgres.MigrationsDir, logger); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		if err := database.RegisterPoolMetrics(pool, serviceName); err != nil {
			logger.Warn("failed to register pool metrics", slog.String("error", err.Error()))
		}
		healthHandler.Register("postgres", func(ctx context.Context) error {
			return pool.Ping(ctx)
		})
		orders = postgres.NewOrderRepository(pool)
	} else {
		logger.Warn("DATABASE_URL not set, keeping the order log in memory")
		orders = memory.NewOrderRepository()
	}

	// Events.
	var events event.Publisher = event.Noop{}
	if cfg.KafkaEnabled {
		producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		a.producer = producer
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
		// Events are best effort, so an unreachable broker degrades readiness
		// without failing it.
		healthHandler.RegisterOptional("kafka", producer.Ping)
		events = event.NewProducer(producer, logger)
	}

	// Checkout gateways.
	ledgerClient := httpclient.NewCircuitBreakerClient(
		httpclient.New(httpclient.DefaultConfig()),
		httpclient.DefaultCircuitBreakerConfig("ledger"),
		logger,
	)
	orderLedger := ledger.New(cfg.LedgerURL, ledgerClient, logger)
	if !orderLedger.Enabled() {
		logger.Warn("LEDGER_URL not set, orders go straight to the order log")
	}

	var provider payment.Provider
	switch cfg.PaymentProvider {
	case config.PaymentProviderPayPal:
		paypalClient := httpclient.NewCircuitBreakerClient(
			httpclient.New(httpclient.DefaultConfig()),
			httpclient.DefaultCircuitBreakerConfig("paypal"),
			logger,
		)
		provider = paypal.New(paypal.Config{
			ClientID:     cfg.PayPalClientID,
			ClientSecret: cfg.PayPalClientSecret,
			Environment:  cfg.PayPalEnvironment,
			SiteURL:      cfg.SiteURL,
		}, paypalClient, logger)
	default:
		provider = mock.New()
	}
	logger.Info("payment provider configured", slog.String("provider", provider.Name()))

	// Services.
	cartService := service.NewCartService(carts, store, events, logger)
	checkoutService := service.NewCheckoutService(cartService, orders, orderLedger, provider, events, logger)

	// HTTP router.
	opts := handler.DefaultOptions()
	opts.CORS.AllowedOrigins = cfg.CORSAllowedOrigins
	opts.Session.MaxAge = cartTTL
	opts.Session.Secure = cfg.IsProduction()
	opts.AdminCIDRs = cfg.AdminAllowedCIDRs
	opts.CheckoutRateLimit.RPS = cfg.CheckoutRateLimitRPS
	opts.CheckoutRateLimit.Burst = cfg.CheckoutRateLimitBurst
	router := handler.NewRouter(store, cartService, checkoutService, healthHandler, logger, opts)

	a.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		a.closeResources()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	// Graceful HTTP server shutdown with a 10-second deadline.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	a.closeResources()
	a.logger.Info("application shutdown complete")
	return nil
}

func (a *App) closeResources() {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.tracerShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.tracerShutdown(ctx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
		}
	}
}
