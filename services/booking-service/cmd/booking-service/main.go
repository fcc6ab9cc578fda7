package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/md-rashed-zaman/slotbook/libs/config"
	"github.com/md-rashed-zaman/slotbook/libs/httpx"
	"github.com/md-rashed-zaman/slotbook/libs/kafkax"
	otelx "github.com/md-rashed-zaman/slotbook/libs/otel"
	"github.com/md-rashed-zaman/slotbook/libs/runtime"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/app"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/handlers"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/outbox"
)

func main() {
	config.LoadDotenv()
	service := config.String("SERVICE_NAME", "booking-service")
	logger := runtime.NewLogger(service, config.String("LOG_LEVEL", "info"))
	if err := run(logger, service); err != nil {
		logger.Error("booking service failed", "err", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, service string) error {
	port, err := config.Port("PORT", "8083")
	if err != nil {
		return err
	}

	ctx, stop := runtime.ShutdownContext(context.Background())
	defer stop()

	otelCfg, err := otelx.ConfigFromEnv(service)
	if err != nil {
		return err
	}
	otelShutdown, err := otelx.Setup(ctx, otelCfg)
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	storeCfg, err := app.StoreConfigFromEnv()
	if err != nil {
		return err
	}
	store, err := app.OpenStore(ctx, storeCfg)
	if err != nil {
		return err
	}
	defer store.Close()
	logger.Info("store opened", "driver", storeCfg.Driver)

	engineCfg, err := app.EngineConfigFromEnv()
	if err != nil {
		return err
	}
	notifier, err := app.NewNotifierFromEnv(logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := notifier.Close(closeCtx); err != nil {
			logger.Warn("email queue not drained", "err", err)
		}
	}()
	engine := booking.NewEngine(store, notifier, logger, engineCfg)

	brokers := config.String("KAFKA_BROKERS", "")
	if store.Pool != nil {
		publisher := outbox.NewPublisher(store.Pool, outbox.NewRepository(), logger, outbox.PublisherConfig{
			Brokers:   brokers,
			PollEvery: 2 * time.Second,
			BatchSize: 50,
		})
		go publisher.Run(ctx)
	}

	limiter, redisCheck, err := newLimiter(logger)
	if err != nil {
		return err
	}
	checks := []runtime.ReadyCheck{
		{Name: "db", Check: store.Ready},
		{Name: "redis", Check: redisCheck},
	}
	if brokers != "" && store.Pool != nil {
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(kafkax.SplitBrokers(brokers))})
	}
	mux := runtime.NewBaseMuxWithReady(checks...)

	clientKey, err := httpx.ForwardedKey(config.List("TRUSTED_PROXIES"))
	if err != nil {
		return err
	}
	handlers.NewBookingHandler(engine, logger).Register(mux, httpx.RateLimit(limiter, clientKey, logger, true))
	auth := handlers.NewAdminAuth(config.String("ADMIN_TOKEN_HASH", ""), config.String("ADMIN_TOKEN", ""))
	if !auth.Enabled() {
		logger.Warn("admin endpoints locked: neither ADMIN_TOKEN_HASH nor ADMIN_TOKEN is set")
	}
	handlers.NewAdminHandler(engine, logger).Register(mux, auth)

	httpHandler := httpx.Chain(mux,
		httpx.WithRecover(logger),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.DefaultCORSPolicy(config.List("CORS_ALLOWED_ORIGINS"))),
		httpx.WithBodyLimit(1<<20),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr, "tz_offset", engine.Location().String())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
	return nil
}

// newLimiter prefers a shared Redis window and falls back to per-process
// counting when REDIS_URL is unset.
func newLimiter(logger *slog.Logger) (httpx.Limiter, func(context.Context) error, error) {
	perMinute, err := config.Int("RATE_LIMIT_PER_MINUTE", 30)
	if err != nil {
		return nil, nil, err
	}
	redisURL := config.String("REDIS_URL", "")
	if redisURL == "" {
		logger.Info("rate limiter using process memory")
		return httpx.NewMemoryRateLimiter(perMinute, time.Minute), nil, nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, nil, err
	}
	rdb := redis.NewClient(opts)
	return httpx.NewRedisRateLimiter(rdb, perMinute, time.Minute, "slotbook:rl"), httpx.RedisReadyCheck(rdb), nil
}
