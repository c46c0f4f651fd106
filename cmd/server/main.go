// Command server starts the TubeFlow API HTTP service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"tubeflow/internal/api"
	"tubeflow/internal/assets"
	"tubeflow/internal/auth"
	"tubeflow/internal/observability/logging"
	"tubeflow/internal/observability/metrics"
	"tubeflow/internal/server"
	"tubeflow/internal/storage"
)

func main() {
	addr := flag.String("addr", "", "HTTP listen address")
	dataPath := flag.String("data", "", "path to JSON datastore")
	mediaRoot := flag.String("media-root", "", "directory holding uploaded media")
	mediaBaseURL := flag.String("media-base-url", "", "public base URL for uploaded media")
	tokenSecret := flag.String("token-secret", "", "HMAC secret for access tokens")
	accessTTL := flag.Duration("access-ttl", 0, "lifetime of issued access tokens")
	refreshTTL := flag.Duration("refresh-ttl", 0, "lifetime of issued refresh tokens")
	refreshStoreDriver := flag.String("refresh-store", "", "refresh token store driver (memory, postgres, or redis)")
	postgresDSN := flag.String("postgres-dsn", "", "Postgres DSN for the refresh token store")
	redisAddr := flag.String("redis-addr", "", "Redis address for the refresh token store")
	redisPassword := flag.String("redis-password", "", "Redis password for the refresh token store")
	tlsCert := flag.String("tls-cert", "", "path to TLS certificate file")
	tlsKey := flag.String("tls-key", "", "path to TLS private key file")
	logLevel := flag.String("log-level", "", "log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", "", "log format (json or text)")
	globalRPS := flag.Float64("rate-global-rps", 0, "global request rate limit in requests per second")
	globalBurst := flag.Int("rate-global-burst", 0, "global rate limit burst allowance")
	loginLimit := flag.Int("rate-login-limit", 0, "maximum login attempts per window for a single IP")
	loginWindow := flag.Duration("rate-login-window", 0, "window for counting login attempts")
	rateRedisAddr := flag.String("rate-redis-addr", "", "Redis address for distributed login throttling")
	rateRedisPassword := flag.String("rate-redis-password", "", "Redis password for distributed login throttling")
	rateRedisTimeout := flag.Duration("rate-redis-timeout", 0, "timeout for rate limiter Redis operations")
	corsOrigins := flag.String("cors-origins", "", "comma separated browser origins allowed to call the API")
	flag.Parse()

	logger := logging.Init(logging.Config{
		Level:  firstNonEmpty(*logLevel, os.Getenv("TUBEFLOW_LOG_LEVEL")),
		Format: firstNonEmpty(*logFormat, os.Getenv("TUBEFLOW_LOG_FORMAT")),
	})
	auditLogger := logging.WithComponent(logger, "audit")
	recorder := metrics.Default()

	secret := firstNonEmpty(*tokenSecret, os.Getenv("TUBEFLOW_TOKEN_SECRET"))
	if secret == "" {
		logger.Error("token secret is required: set --token-secret or TUBEFLOW_TOKEN_SECRET")
		os.Exit(1)
	}

	media, err := assets.NewLocalStore(
		firstNonEmpty(*mediaRoot, os.Getenv("TUBEFLOW_MEDIA_ROOT"), "data/media"),
		firstNonEmpty(*mediaBaseURL, os.Getenv("TUBEFLOW_MEDIA_BASE_URL"), "/media"),
	)
	if err != nil {
		logger.Error("failed to open media store", "error", err)
		os.Exit(1)
	}

	dataFile := firstNonEmpty(*dataPath, os.Getenv("TUBEFLOW_DATA"), "data/store.json")
	store, err := storage.NewStorage(dataFile, storage.WithAssetStore(media))
	if err != nil {
		logger.Error("failed to open datastore", "error", err)
		os.Exit(1)
	}

	refreshConfig, err := resolveRefreshStoreConfig(
		*refreshStoreDriver, os.Getenv("TUBEFLOW_REFRESH_STORE"),
		firstNonEmpty(*postgresDSN, os.Getenv("TUBEFLOW_POSTGRES_DSN"), os.Getenv("DATABASE_URL")),
		firstNonEmpty(*redisAddr, os.Getenv("TUBEFLOW_REDIS_ADDR")),
		firstNonEmpty(*redisPassword, os.Getenv("TUBEFLOW_REDIS_PASSWORD")),
	)
	if err != nil {
		logger.Error("failed to resolve refresh token store", "error", err)
		os.Exit(1)
	}

	var (
		refreshStore  auth.RefreshStore
		refreshCloser func(context.Context) error
	)
	switch refreshConfig.Driver {
	case "memory":
		refreshStore = auth.NewMemoryRefreshStore()
	case "postgres":
		pgStore, err := auth.NewPostgresRefreshStore(refreshConfig.PostgresDSN)
		if err != nil {
			logger.Error("failed to open refresh token store", "error", err)
			os.Exit(1)
		}
		refreshStore = pgStore
		refreshCloser = pgStore.Close
	case "redis":
		redisStore, err := auth.NewRedisRefreshStore(auth.RedisRefreshStoreConfig{
			Addr:     refreshConfig.RedisAddr,
			Password: refreshConfig.RedisPassword,
		})
		if err != nil {
			logger.Error("failed to open refresh token store", "error", err)
			os.Exit(1)
		}
		refreshStore = redisStore
		refreshCloser = func(context.Context) error { return redisStore.Close() }
	}

	tokenOptions := []auth.Option{auth.WithStore(refreshStore)}
	if ttl := resolveDuration(*accessTTL, "TUBEFLOW_ACCESS_TTL", 0); ttl > 0 {
		tokenOptions = append(tokenOptions, auth.WithAccessTTL(ttl))
	}
	if ttl := resolveDuration(*refreshTTL, "TUBEFLOW_REFRESH_TTL", 0); ttl > 0 {
		tokenOptions = append(tokenOptions, auth.WithRefreshTTL(ttl))
	}
	tokens, err := auth.NewTokenManager(secret, tokenOptions...)
	if err != nil {
		logger.Error("failed to configure token manager", "error", err)
		os.Exit(1)
	}

	handler := api.NewHandler(store, tokens, logging.WithComponent(logger, "api"))

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	tokenPurgeStop := startTokenPurgeWorker(workerCtx, logging.WithComponent(logger, "token-purger"), tokens, 15*time.Minute)
	defer tokenPurgeStop()

	listenAddr := firstNonEmpty(*addr, os.Getenv("TUBEFLOW_ADDR"), ":8080")
	srv, err := server.New(handler, server.Config{
		Addr: listenAddr,
		TLS: server.TLSConfig{
			CertFile: firstNonEmpty(*tlsCert, os.Getenv("TUBEFLOW_TLS_CERT")),
			KeyFile:  firstNonEmpty(*tlsKey, os.Getenv("TUBEFLOW_TLS_KEY")),
		},
		RateLimit: server.RateLimitConfig{
			GlobalRPS:     resolveFloat(*globalRPS, "TUBEFLOW_RATE_GLOBAL_RPS"),
			GlobalBurst:   resolveInt(*globalBurst, "TUBEFLOW_RATE_GLOBAL_BURST"),
			LoginLimit:    resolveInt(*loginLimit, "TUBEFLOW_RATE_LOGIN_LIMIT"),
			LoginWindow:   resolveDuration(*loginWindow, "TUBEFLOW_RATE_LOGIN_WINDOW", time.Minute),
			RedisAddr:     firstNonEmpty(*rateRedisAddr, os.Getenv("TUBEFLOW_RATE_REDIS_ADDR")),
			RedisPassword: firstNonEmpty(*rateRedisPassword, os.Getenv("TUBEFLOW_RATE_REDIS_PASSWORD")),
			RedisTimeout:  resolveDuration(*rateRedisTimeout, "TUBEFLOW_RATE_REDIS_TIMEOUT", 2*time.Second),
		},
		CORS: server.CORSConfig{
			AllowedOrigins: splitAndTrim(firstNonEmpty(*corsOrigins, os.Getenv("TUBEFLOW_CORS_ORIGINS"))),
		},
		Logger:      logger,
		AuditLogger: auditLogger,
		Metrics:     recorder,
	})
	if err != nil {
		logger.Error("failed to initialise server", "error", err)
		os.Exit(1)
	}

	errs := make(chan error, 1)
	go func() {
		logger.Info("TubeFlow API listening", "addr", listenAddr)
		logger.Info("metrics endpoint available", "path", "/metrics")
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", "signal", sig.String())
	case err := <-errs:
		logger.Error("server error", "error", err)
	}

	workerCancel()
	tokenPurgeStop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", "error", err)
	}

	if refreshCloser != nil {
		if err := refreshCloser(ctx); err != nil {
			logger.Warn("failed to close refresh token store", "error", err)
		}
	}

	logger.Info("server stopped")
}

type refreshStoreConfig struct {
	Driver        string
	PostgresDSN   string
	RedisAddr     string
	RedisPassword string
}

func resolveRefreshStoreConfig(flagDriver, envDriver, postgresDSN, redisAddr, redisPassword string) (refreshStoreConfig, error) {
	driver := strings.ToLower(strings.TrimSpace(firstNonEmpty(flagDriver, envDriver)))
	if driver == "" {
		switch {
		case postgresDSN != "":
			driver = "postgres"
		case redisAddr != "":
			driver = "redis"
		default:
			driver = "memory"
		}
	}

	switch driver {
	case "memory":
		return refreshStoreConfig{Driver: "memory"}, nil
	case "postgres":
		if postgresDSN == "" {
			return refreshStoreConfig{}, fmt.Errorf("postgres refresh store selected without DSN")
		}
		return refreshStoreConfig{Driver: "postgres", PostgresDSN: postgresDSN}, nil
	case "redis":
		if redisAddr == "" {
			return refreshStoreConfig{}, fmt.Errorf("redis refresh store selected without address")
		}
		return refreshStoreConfig{Driver: "redis", RedisAddr: redisAddr, RedisPassword: redisPassword}, nil
	default:
		return refreshStoreConfig{}, fmt.Errorf("unsupported refresh store driver %q", driver)
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func splitAndTrim(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func resolveFloat(flagValue float64, envKey string) float64 {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := strconv.ParseFloat(strings.TrimSpace(env), 64); err == nil {
			return value
		}
	}
	return 0
}

func resolveInt(flagValue int, envKey string) int {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := strconv.Atoi(strings.TrimSpace(env)); err == nil {
			return value
		}
	}
	return 0
}

func resolveDuration(flagValue time.Duration, envKey string, fallback time.Duration) time.Duration {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := time.ParseDuration(env); err == nil {
			return value
		}
	}
	return fallback
}
