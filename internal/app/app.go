package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/agromarket-storefront/internal/backend"
	"github.com/utafrali/agromarket-storefront/internal/config"
	"github.com/utafrali/agromarket-storefront/internal/domain"
	"github.com/utafrali/agromarket-storefront/internal/event"
	handler "github.com/utafrali/agromarket-storefront/internal/handler/http"
	"github.com/utafrali/agromarket-storefront/internal/realtime"
	"github.com/utafrali/agromarket-storefront/internal/repository/memory"
	redisrepo "github.com/utafrali/agromarket-storefront/internal/repository/redis"
	"github.com/utafrali/agromarket-storefront/internal/service"
	"github.com/utafrali/agromarket-storefront/internal/session"
	"github.com/utafrali/agromarket-storefront/pkg/database"
	"github.com/utafrali/agromarket-storefront/pkg/health"
	"github.com/utafrali/agromarket-storefront/pkg/httpclient"
	pkgkafka "github.com/utafrali/agromarket-storefront/pkg/kafka"
	"github.com/utafrali/agromarket-storefront/pkg/middleware"
	"github.com/utafrali/agromarket-storefront/pkg/tracing"
)

const draftSweepInterval = time.Minute

// App holds all application dependencies and manages the lifecycle.
type App struct {
	cfg           *config.Config
	logger        *slog.Logger
	redis         *redis.Client
	producer      *pkgkafka.Producer
	dlq           *pkgkafka.DLQProducer
	consumers     []*pkgkafka.Consumer
	drafts        *memory.DraftStore
	hub           *realtime.Hub
	uploads       *service.UploadService
	traceShutdown func(context.Context) error
	stopLimiter   context.CancelFunc
	httpServer    *http.Server
}

// NewApp creates a new application instance, wiring all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}

	// --- Tracing ---
	traceCfg := tracing.DefaultConfig("storefront")
	traceCfg.Environment = cfg.Environment
	traceCfg.Enabled = cfg.OTELEnabled
	traceCfg.OTLPEndpoint = cfg.OTELEndpoint
	traceCfg.SampleRate = cfg.OTELSampleRate
	traceShutdown, err := tracing.InitTracer(ctx, traceCfg)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.traceShutdown = traceShutdown

	// --- Redis ---
	redisCfg := database.DefaultRedisConfig()
	redisCfg.Addr = cfg.RedisAddr
	redisCfg.Password = cfg.RedisPass
	redisCfg.DB = cfg.RedisDB
	rdb, err := database.NewRedisClient(ctx, redisCfg, prometheus.DefaultRegisterer, logger)
	if err != nil {
		_ = traceShutdown(context.Background())
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.redis = rdb
	logger.Info("connected to redis", slog.String("addr", cfg.RedisAddr))

	// --- Marketplace backend ---
	hc := httpclient.New(httpclient.Config{
		Timeout:         cfg.BackendTimeout,
		MaxRetries:      2,
		RetryWaitMin:    100 * time.Millisecond,
		RetryWaitMax:    2 * time.Second,
		MaxConnsPerHost: 100,
	})
	cb := httpclient.NewCircuitBreakerClient(hc, httpclient.DefaultCircuitBreakerConfig("marketplace"), logger).
		WithFallback(httpclient.CircuitOpenFallback)
	api := backend.NewClient(cb, cfg.BackendBaseURL, logger)

	// --- Kafka (optional) ---
	var publisher event.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		a.dlq = pkgkafka.NewDLQProducer(cfg.KafkaBrokers, logger)
		publisher = a.producer
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	} else {
		logger.Warn("KAFKA_BROKERS not set, events stay in-process")
	}
	events := event.NewProducer(publisher, logger)

	// --- Stores ---
	sessions := redisrepo.NewSessionRepository(rdb, cfg.SessionTTL())
	a.drafts = memory.NewDraftStore(logger)
	blobs := memory.NewBlobStore()
	tokens := session.NewTokenManager(cfg.SessionSecret, cfg.SessionTTL())

	// --- Realtime ---
	a.hub = realtime.NewHub(logger)
	fanout := event.NewTicketFanout(a.hub, events, logger)
	if events.Enabled() {
		instanceID := cfg.InstanceID
		if instanceID == "" {
			instanceID = uuid.NewString()
		}
		consumer := pkgkafka.NewConsumer(
			event.ConsumerConfig(cfg.KafkaBrokers, instanceID, a.dlq),
			fanout.Handler(),
			logger,
		)
		a.consumers = append(a.consumers, consumer)
	}

	// --- Services ---
	fees := domain.DeliveryFees{
		Standard: cfg.FeeStandard,
		Express:  cfg.FeeExpress,
		Currency: cfg.CurrencyUnit(),
	}
	a.uploads = service.NewUploadService(api, blobs, cfg.UploadConcurrency, logger)
	cartSvc := service.NewCartService(api, sessions, fees, logger)
	checkoutSvc := service.NewCheckoutService(api, sessions, a.drafts, cartSvc, events, fees, cfg.CheckoutDraftTTL, logger)
	authSvc := service.NewAuthService(api, sessions, tokens, cartSvc, logger, checkoutSvc, a.uploads)
	catalogSvc := service.NewCatalogService(api, api, sessions, logger)
	orderSvc := service.NewOrderService(api, sessions, logger)
	paymentSvc := service.NewPaymentService(api, sessions, logger)
	walletSvc := service.NewWalletService(api, sessions, events, logger)
	reviewSvc := service.NewReviewService(api, sessions, a.uploads, logger)
	ticketSvc := service.NewTicketService(api, sessions, fanout, logger)
	certificateSvc := service.NewCertificateService(sessions, logger)

	// --- Health ---
	healthHandler := health.NewHandler()
	healthHandler.Register("redis", func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	healthHandler.RegisterNonCritical("marketplace", api.Ping)
	healthHandler.RegisterNonCritical("marketplace_breaker", cb.Check)
	if a.producer != nil {
		healthHandler.RegisterNonCritical("kafka", a.producer.Ping)
	}

	// --- HTTP ---
	cookies := handler.CookieConfig{Secure: cfg.CookieSecure}
	handlers := handler.Handlers{
		Auth:     handler.NewAuthHandler(authSvc, cartSvc, cookies, logger),
		Catalog:  handler.NewCatalogHandler(catalogSvc, reviewSvc, logger),
		Cart:     handler.NewCartHandler(cartSvc, logger),
		Checkout: handler.NewCheckoutHandler(checkoutSvc, logger),
		Orders:   handler.NewOrderHandler(orderSvc, logger),
		Payments: handler.NewPaymentHandler(paymentSvc, logger),
		Reviews:  handler.NewReviewHandler(reviewSvc, a.uploads, logger),
		Farmer:   handler.NewFarmerHandler(walletSvc, certificateSvc, logger),
		Tickets:  handler.NewTicketHandler(ticketSvc, a.hub, socketOrigins(cfg.CORSOrigins), logger),
	}

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.CORSOrigins
	corsCfg.AllowCredentials = !slices.Contains(cfg.CORSOrigins, "*")

	limiterCtx, stopLimiter := context.WithCancel(context.Background())
	a.stopLimiter = stopLimiter
	router := handler.NewRouter(limiterCtx, handler.RouterConfig{
		CORS:             corsCfg,
		RateLimitRPS:     cfg.RateLimitRPS,
		RateLimitBurst:   cfg.RateLimitBurst,
		OpsAllowedCIDRs:  cfg.OpsAllowedCIDRs,
		PprofEnabled:     cfg.PprofEnabled,
		CatalogCacheSecs: cfg.CatalogCacheSecs,
	}, handlers, tokens.Validate, healthHandler, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return a, nil
}

// socketOrigins returns the origins the ticket socket accepts. nil accepts
// every origin, which is what a wildcard CORS setting asks for.
func socketOrigins(origins []string) []string {
	if slices.Contains(origins, "*") {
		return nil
	}
	return origins
}

// Run starts the HTTP server, the draft sweeper and any Kafka consumers. It
// blocks until ctx is cancelled or the server fails.
func (a *App) Run(ctx context.Context) error {
	go a.drafts.Run(ctx, draftSweepInterval)

	for _, c := range a.consumers {
		go func(c *pkgkafka.Consumer) {
			if err := c.Start(ctx); err != nil {
				a.logger.Error("kafka consumer stopped", slog.String("error", err.Error()))
			}
		}(c)
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		a.logger.Error("server error", slog.String("error", err.Error()))
		a.Shutdown()
		return err
	}

	a.Shutdown()
	return nil
}

// Shutdown gracefully stops the application.
func (a *App) Shutdown() {
	a.logger.Info("shutting down application...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if a.httpServer != nil {
		if err := a.httpServer.Shutdown(ctx); err != nil {
			a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		}
	}

	a.stopLimiter()

	// Sockets are hijacked and outlive http.Server.Shutdown.
	a.hub.Close()
	a.uploads.Close()

	for _, c := range a.consumers {
		if err := c.Close(); err != nil {
			a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
		}
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}
	if a.dlq != nil {
		if err := a.dlq.Close(); err != nil {
			a.logger.Error("kafka dlq close error", slog.String("error", err.Error()))
		}
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
		}
	}

	if a.traceShutdown != nil {
		if err := a.traceShutdown(ctx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
		}
	}

	a.logger.Info("application shutdown complete")
}
