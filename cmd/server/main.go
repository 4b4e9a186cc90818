package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	apihttp "torrentstream/queueservice/internal/api/http"
	"torrentstream/queueservice/internal/app"
	"torrentstream/queueservice/internal/metrics"
	"torrentstream/queueservice/internal/queue"
	mongorepo "torrentstream/queueservice/internal/repository/mongo"
	redisrepo "torrentstream/queueservice/internal/repository/redis"
	"torrentstream/queueservice/internal/telemetry"
)

func main() {
	cfg := app.LoadConfig()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracer, err := telemetry.Init(context.Background(), "queue-service", cfg.OTLPEndpoint)
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	logger.Info("configuration loaded",
		slog.String("service", "queue-service"),
		slog.String("httpAddr", cfg.HTTPAddr),
		slog.String("logLevel", cfg.LogLevel),
		slog.String("logFormat", cfg.LogFormat),
		slog.Duration("fetchTimeout", cfg.FetchTimeout),
		slog.String("sourceUrlTemplate", cfg.SourceURLTemplate),
		slog.String("queueConfigFile", cfg.QueueConfigFile),
		slog.Int("maxConcurrentSources", cfg.MaxConcurrentSources),
		slog.Bool("hasRedis", strings.TrimSpace(cfg.RedisURL) != ""),
		slog.Bool("hasMongo", strings.TrimSpace(cfg.MongoURI) != ""),
	)

	queueFile, err := app.LoadQueueFile(cfg.QueueConfigFile)
	if err != nil {
		logger.Error("queue file load failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	sourceClient := &http.Client{Timeout: cfg.FetchTimeout, Transport: otelhttp.NewTransport(http.DefaultTransport)}
	fetcher := queue.NewHTTPFetcher(cfg.SourceURLTemplate, cfg.UserAgent, sourceClient)
	service := queue.NewService(fetcher, cfg.FetchTimeout,
		queue.WithLogger(logger),
		queue.WithMaxConcurrentSources(cfg.MaxConcurrentSources),
	)

	registryOpts := []queue.RegistryOption{queue.WithRegistryLogger(logger)}
	store, closeStore := buildQueueConfigStore(cfg, logger)
	defer closeStore()
	if store != nil {
		registryOpts = append(registryOpts, queue.WithConfigStore(store))
	}
	registry := queue.NewRegistry(service, queueFile.Queue, queueFile.Queues, registryOpts...)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	created, err := registry.Reload(rootCtx)
	if err != nil {
		logger.Warn("queue registry loaded without stored configs", slog.String("error", err.Error()))
	}
	if len(created) == 0 {
		logger.Warn("no queues configured")
	}
	go registry.RefreshAll(rootCtx, created)

	handler := apihttp.NewServer(registry,
		apihttp.WithLogger(logger),
		apihttp.WithSourceDiagnostics(service),
		apihttp.WithRateLimit(float64(cfg.RateLimitRPS), cfg.RateLimitBurst),
	).Handler()
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.FetchTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	logger.Info("queue service started",
		slog.String("addr", cfg.HTTPAddr),
		slog.Int("queues", len(registry.Queues())),
	)

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", slog.String("error", err.Error()))
	}
	logger.Info("queue service stopped")
}

func newLogger(levelRaw, formatRaw string) *slog.Logger {
	level := parseLogLevel(levelRaw)
	handlerOpts := &slog.HandlerOptions{Level: level}
	format := strings.ToLower(strings.TrimSpace(formatRaw))
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, handlerOpts))
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// buildQueueConfigStore picks Redis when REDIS_URL is set, then MongoDB.
// An unreachable backend disables runtime queue settings.
func buildQueueConfigStore(cfg app.Config, logger *slog.Logger) (queue.ConfigStore, func()) {
	noop := func() {}
	if redisURL := strings.TrimSpace(cfg.RedisURL); redisURL != "" {
		redisOpts, err := redis.ParseURL(redisURL)
		if err != nil {
			logger.Warn("queue config store disabled: invalid redis url", slog.String("error", err.Error()))
			return nil, noop
		}
		client := redis.NewClient(redisOpts)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("queue config store disabled: redis unavailable", slog.String("error", err.Error()))
			_ = client.Close()
			return nil, noop
		}
		logger.Info("redis connected", slog.String("addr", redisOpts.Addr))
		return redisrepo.NewQueueConfigStore(client, cfg.RedisKey), func() { _ = client.Close() }
	}

	if mongoURI := strings.TrimSpace(cfg.MongoURI); mongoURI != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		client, err := mongorepo.Connect(ctx, mongoURI, options.Client().SetMonitor(otelmongo.NewMonitor()))
		if err != nil {
			logger.Warn("queue config store disabled: mongo connect failed", slog.String("error", err.Error()))
			return nil, noop
		}
		if err := client.Ping(ctx, readpref.Primary()); err != nil {
			logger.Warn("queue config store disabled: mongo unavailable", slog.String("error", err.Error()))
			_ = client.Disconnect(context.Background())
			return nil, noop
		}
		logger.Info("mongo connected", slog.String("database", cfg.MongoDatabase))
		return mongorepo.NewQueueConfigRepository(client, cfg.MongoDatabase, cfg.MongoCollection), func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(disconnectCtx)
		}
	}

	logger.Info("queue config store not configured, runtime settings disabled")
	return nil, noop
}
