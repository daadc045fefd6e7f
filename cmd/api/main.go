package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/shopease/storefront/internal/auth"
	"github.com/shopease/storefront/internal/cart"
	"github.com/shopease/storefront/internal/catalog"
	"github.com/shopease/storefront/internal/checkout"
	"github.com/shopease/storefront/internal/common"
	"github.com/shopease/storefront/internal/config"
	"github.com/shopease/storefront/internal/events"
	"github.com/shopease/storefront/internal/health"
	"github.com/shopease/storefront/internal/notify"
	"github.com/shopease/storefront/internal/obs"
	"github.com/shopease/storefront/internal/order"
	"github.com/shopease/storefront/internal/pricing"
	"github.com/shopease/storefront/internal/queue"
	"github.com/shopease/storefront/internal/ratelimit"
	"github.com/shopease/storefront/internal/resilience"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "storefront")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		sampling := envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0)
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "storefront-api",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			Exporter:      envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio: sampling,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if tracingEnabled {
		if err := redisotel.InstrumentTracing(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis tracing")
		}
	}
	if metricsEnabled {
		if err := redisotel.InstrumentMetrics(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	rates := pricing.Rates{
		TaxBps:           cfg.TaxBps,
		FlatShippingFee:  cfg.FlatShippingFee,
		FreeShippingOver: cfg.FreeShippingOver,
		BulkDiscountBps:  cfg.BulkDiscountBps,
		BulkDiscountOver: cfg.BulkDiscountOver,
	}

	outbound := &resilience.HTTPClient{
		Client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		Breaker: resilience.NewBreaker(cfg.CircuitMinRequests, cfg.CircuitFailureRate, cfg.CircuitOpenFor).
			WithTarget("content-store").
			WithLogger(logger),
		BaseBackoff: cfg.RetryBase,
		MaxAttempts: cfg.RetryMaxAttempts,
		Jitter:      cfg.RetryJitterPercent,
		Timeout:     cfg.OutboundTimeout,
	}

	catalogClient := &catalog.Client{
		BaseURL: cfg.ContentStoreURL,
		Token:   cfg.ContentStoreToken,
		HTTP:    outbound,
		Cache:   catalog.NewCache(redisClient, cfg.CatalogCacheTTL),
		Log:     logger,
	}
	catalogHandler := &catalog.Handler{Source: catalogClient, Log: logger}

	cartSvc := cart.NewService(cart.RedisStorage{R: redisClient, TTL: cfg.CartTTL}, rates, logger)
	cartHandler := &cart.Handler{Svc: cartSvc, Catalog: catalogClient}

	enqueuer := queue.Enqueuer{
		R:           redisClient,
		Prefix:      cfg.QueueRedisPrefix,
		MaxAttempts: cfg.QueueMaxAttempts,
	}
	emailNotifier := &notify.EmailNotifier{
		Queue:   enqueuer,
		Enabled: cfg.EmailEnabled,
		Log:     logger,
	}
	bus := events.NewBus(logger, emailNotifier)

	orderStore := &order.ContentStore{
		BaseURL: cfg.ContentStoreURL,
		Token:   cfg.ContentStoreToken,
		HTTP:    outbound,
	}
	var orderMetrics *obs.OrderMetrics
	if metricsEnabled {
		orderMetrics = obs.NewOrderMetrics(metricsNamespace, nil)
	}
	submitter := &order.Submitter{
		Store:    orderStore,
		Bus:      bus,
		Metrics:  orderMetrics,
		Currency: cfg.Currency,
		Log:      logger,
	}
	orderHandler := &order.Handler{Store: orderStore, Log: logger}
	orderAdmin := &order.AdminHandler{Store: orderStore, Bus: bus, Log: logger}

	checkoutSvc := checkout.NewService(cartSvc, submitter, checkout.NewValidator(), logger)
	checkoutHandler := &checkout.Handler{Svc: checkoutSvc, CartKey: cart.Key}

	identity := auth.Identity{
		Secret:    []byte(cfg.JWTSecret),
		Issuer:    cfg.JWTIssuer,
		Audience:  cfg.JWTAudience,
		ClockSkew: 30 * time.Second,
		Log:       logger,
	}

	submitLimiter := ratelimit.Middleware{
		Limiter: ratelimit.Limiter{R: redisClient, Prefix: cfg.QueueRedisPrefix},
		Key: func(r *http.Request) string {
			if key := cart.Key(r); key != "" {
				return "submit:" + key
			}
			return "submit:ip:" + common.ClientIP(r)
		},
		Window: cfg.SubmitRateWindow,
		Max:    cfg.SubmitRateMax,
		Log:    logger,
	}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", cart.CartKeyHeader},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(identity.Middleware)

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	healthHandler := health.Handler{
		Checker: readinessChecker{
			redis:      redisClient,
			storeURL:   cfg.ContentStoreURL,
			storeToken: cfg.ContentStoreToken,
		},
		RedisTimeout:    envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
		UpstreamTimeout: envDurationMillis("HEALTH_READY_UPSTREAM_TIMEOUT_MS", 500),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Get("/products", catalogHandler.ListProducts)
		v.Get("/products/{slug}", catalogHandler.GetProduct)
		v.Get("/categories", catalogHandler.ListCategories)
		v.Get("/banners", catalogHandler.ListBanners)

		v.Route("/cart", func(c chi.Router) {
			c.Post("/", cartHandler.Create)
			c.Get("/", cartHandler.Get)
			c.Delete("/", cartHandler.Clear)
			c.Post("/items", cartHandler.AddItem)
			c.Patch("/items/{productId}", cartHandler.SetQuantity)
			c.Delete("/items/{productId}", cartHandler.RemoveItem)
		})

		v.Route("/checkout", func(c chi.Router) {
			c.Post("/", checkoutHandler.Start)
			c.Get("/", checkoutHandler.Current)
			c.Delete("/", checkoutHandler.Abandon)
			c.Put("/shipping", checkoutHandler.SubmitShipping)
			c.Put("/payment", checkoutHandler.SubmitPayment)
			c.With(submitLimiter.Wrap).Post("/confirm", checkoutHandler.Confirm)
		})

		v.Group(func(authed chi.Router) {
			authed.Use(auth.RequireUser)
			authed.Get("/orders", orderHandler.List)
		})
		v.Get("/orders/{orderId}", orderHandler.Get)

		v.Route("/admin", func(admin chi.Router) {
			admin.Use(auth.RequireUser)
			admin.Use(auth.RequireRole("admin"))
			admin.Patch("/orders/{orderId}/status", orderAdmin.UpdateStatus)
		})
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	case <-runCtx.Done():
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelShutdown()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown failed")
		}
		logger.Info().Msg("server stopped")
	}
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

type readinessChecker struct {
	redis      *redis.Client
	storeURL   string
	storeToken string
}

func (c readinessChecker) PingRedis(ctx context.Context, timeout time.Duration) error {
	if c.redis == nil {
		return errors.New("redis not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.redis.Ping(ctx).Err()
}

func (c readinessChecker) PingContentStore(ctx context.Context, timeout time.Duration) error {
	if c.storeURL == "" {
		return errors.New("content store not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.storeURL+"/v1/categories", nil)
	if err != nil {
		return err
	}
	if c.storeToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.storeToken)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 500 {
		return errors.New("content store unavailable: " + resp.Status)
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}
