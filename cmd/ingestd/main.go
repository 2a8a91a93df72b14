// Command ingestd starts the secure content-ingestion HTTP service.
//
// The service accepts signed content payloads via POST /api/v1/ingest,
// authenticates them with an API key plus timestamped HMAC signature,
// synchronizes the content into PostgreSQL transactionally, records every
// attempt as an ingest job, invalidates Redis-cached reader views, and emits
// audit events to Kafka. Public cached reads are served under
// GET /api/v1/topics.
//
// Usage:
//
//	go run ./cmd/ingestd [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/contenthub/content-sync-platform/internal/content/audit"
	"github.com/contenthub/content-sync-platform/internal/content/cache"
	"github.com/contenthub/content-sync-platform/internal/content/handler"
	"github.com/contenthub/content-sync-platform/internal/content/jobs"
	"github.com/contenthub/content-sync-platform/internal/content/pipeline"
	"github.com/contenthub/content-sync-platform/internal/content/store"
	contentsync "github.com/contenthub/content-sync-platform/internal/content/sync"
	"github.com/contenthub/content-sync-platform/internal/hmacauth"
	"github.com/contenthub/content-sync-platform/pkg/config"
	"github.com/contenthub/content-sync-platform/pkg/health"
	"github.com/contenthub/content-sync-platform/pkg/kafka"
	"github.com/contenthub/content-sync-platform/pkg/logger"
	"github.com/contenthub/content-sync-platform/pkg/metrics"
	"github.com/contenthub/content-sync-platform/pkg/postgres"
	"github.com/contenthub/content-sync-platform/pkg/redis"
	"github.com/contenthub/content-sync-platform/pkg/resilience"
)

// main loads configuration, connects to PostgreSQL, Redis, and Kafka, wires
// up the ingest pipeline and HTTP handler, and starts the server. Graceful
// shutdown is triggered by SIGINT/SIGTERM.
func main() {
	configPath := flag.String("config", "", "path to config file (defaults + env when empty)")
	flag.Parse()
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting content-sync service", "port", cfg.Server.Port)

	var db *postgres.Client
	err = resilience.Retry(context.Background(), "postgres-connect", resilience.RetryConfig{MaxAttempts: 5}, func() error {
		var connErr error
		db, connErr = postgres.New(cfg.Postgres)
		return connErr
	})
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("connected to postgres")

	rdb, err := redis.NewClient(cfg.Redis)
	if err != nil {
		slog.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()
	slog.Info("connected to redis")

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IngestAudit)
	defer producer.Close()
	slog.Info("kafka producer initialized", "topic", cfg.Kafka.Topics.IngestAudit)

	var m *metrics.Metrics
	var metricsShutdown func(context.Context) error
	if cfg.Metrics.Enabled {
		m = metrics.New()
		metricsShutdown = metrics.StartServer(cfg.Metrics.Port)
	}

	checker := health.NewChecker()
	checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
		if err := db.DB.PingContext(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})
	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if err := rdb.Ping(ctx); err != nil {
			// Cache outages degrade freshness, not correctness.
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	auth := hmacauth.New(cfg.Auth)
	synchronizer := contentsync.New(db)
	tracker := jobs.NewTracker(db)
	notifier := cache.NewNotifier(rdb, m)
	auditor := audit.NewRecorder(producer, m)
	pipe := pipeline.New(synchronizer, tracker, notifier, auditor, cfg.Sync.Timeout, m)

	contentStore := store.New(db)
	views := cache.NewViewCache(rdb, contentStore, cfg.Redis.CacheTTL, m)

	h := handler.New(auth, pipe, notifier, tracker, views, m)
	router := handler.NewRouter(h, checker, m)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
		if metricsShutdown != nil {
			if err := metricsShutdown(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown error", "error", err)
			}
		}
	}()
	slog.Info("content-sync service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("content-sync service stopped")
}
