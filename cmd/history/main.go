package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/example/transaction-history/internal/api"
	"github.com/example/transaction-history/internal/auth"
	"github.com/example/transaction-history/internal/config"
	"github.com/example/transaction-history/internal/feed"
	feedkafka "github.com/example/transaction-history/internal/feed/kafka"
	"github.com/example/transaction-history/internal/history"
	"github.com/example/transaction-history/internal/ledger"
	"github.com/example/transaction-history/internal/security"
	"github.com/example/transaction-history/internal/statement"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	policy, err := statement.ParsePolicy(cfg.ReconcilePolicy)
	if err != nil {
		logger.Error("invalid RECONCILE_POLICY", "error", err)
		os.Exit(1)
	}

	verifier, err := auth.NewVerifierFromFile(cfg.PubKeyPath)
	if err != nil {
		logger.Error("failed to load JWT public key", "error", err)
		os.Exit(1)
	}

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create postgres pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	store := ledger.NewPostgresStore(pool)
	cache := history.New(store, cfg.LocalRoutingNum, cfg.HistoryLimit, logger)
	engine := statement.NewEngine(store, cfg.LocalRoutingNum, policy, logger)
	logger.Info("statement engine ready", "policy", engine.Policy())

	var ledgerFeed feed.Feed
	switch cfg.FeedMode {
	case config.FeedModeKafka:
		ledgerFeed = feedkafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID, logger)
	default:
		ledgerFeed = feed.NewPoller(store, cfg.PollInterval, logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go ledgerFeed.Run(ctx)
	go cache.Run(ctx, ledgerFeed.Transactions())

	var limiter *security.FixedWindowLimiter
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
		limiter = &security.FixedWindowLimiter{
			Redis:  redisClient,
			Prefix: "txnhistory",
			Limit:  60,
			Window: time.Minute,
		}
	}

	router := api.NewRouter(api.Dependencies{
		Logger:       logger,
		Verifier:     verifier,
		History:      cache,
		Statements:   engine,
		FeedHealthy:  ledgerFeed.Healthy,
		CacheStats:   func() (uint64, uint64) { return cache.Hits(), cache.Misses() },
		Version:      cfg.Version,
		RateLimiter:  limiter,
		ExtraLatency: cfg.ExtraLatency,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("transaction history service listening",
		"port", cfg.Port,
		"feedMode", cfg.FeedMode,
		"historyLimit", cfg.HistoryLimit,
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
