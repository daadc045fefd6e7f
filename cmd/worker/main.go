package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/shopease/storefront/internal/common"
	"github.com/shopease/storefront/internal/config"
	"github.com/shopease/storefront/internal/notify"
	"github.com/shopease/storefront/internal/obs"
	"github.com/shopease/storefront/internal/queue"
)

// The worker drains the email queue. It runs separately from the API so a
// slow mail provider never holds up request handling.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().
		Str("env", cfg.AppEnv).
		Str("component", "worker").
		Logger()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	var sender common.EmailSender = common.LogEmailSender{Log: logger}
	mailer := &notify.Mailer{
		Sender: sender,
		From:   cfg.EmailFrom,
		Log:    logger,
	}

	worker := queue.Worker{
		R:           redisClient,
		Prefix:      cfg.QueueRedisPrefix,
		Kind:        notify.JobKindEmail,
		Handler:     mailer.Deliver,
		RetryBase:   cfg.RetryBase,
		RetryJitter: cfg.RetryJitterPercent,
		Log:         logger,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().Str("kind", notify.JobKindEmail).Msg("worker starting")
	if err := worker.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("worker exited unexpectedly")
	}
	logger.Info().Msg("worker stopped")
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
