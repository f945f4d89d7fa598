package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/creatorpulse/creatorpulse/cache"
	rediscache "github.com/creatorpulse/creatorpulse/cache/redis"
	"github.com/creatorpulse/creatorpulse/config"
	"github.com/creatorpulse/creatorpulse/domain"
	"github.com/creatorpulse/creatorpulse/internal/crypto"
	"github.com/creatorpulse/creatorpulse/internal/metrics"
	"github.com/creatorpulse/creatorpulse/internal/server"
	"github.com/creatorpulse/creatorpulse/mongodb"
	"github.com/creatorpulse/creatorpulse/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logLevel, parseErr := zerolog.ParseLevel(cfg.LogLevel)
	if parseErr != nil {
		logLevel = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stderr).Level(logLevel).With().Timestamp().Logger()
	if cfg.LogPretty {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	zlog.Logger = logger

	zlog.Info().
		Str("http_port", cfg.HTTPPort).
		Str("mongo_db", cfg.MongoDBName).
		Str("cleanup_schedule", cfg.CleanupSchedule).
		Msg("Starting creatorpulse server")

	metrics.Register(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mongoClient, db, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			zlog.Warn().Err(err).Msg("MongoDB disconnect failed")
		}
	}()

	secretBox, err := crypto.NewSecretBox(cfg.CredentialSecret)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize credential cipher")
	}

	credRepo, err := mongodb.NewCredentialRepository(ctx, db, secretBox)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize CredentialRepository")
	}
	historyRepo, err := mongodb.NewMetricHistoryRepository(ctx, db)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize MetricHistoryRepository")
	}

	// Providers are registered here at bootstrap; the platform client
	// implementations live outside this core.
	registry := domain.NewProviderRegistry()

	cacheTTL := time.Duration(cfg.StatsCacheTTLMin) * time.Minute
	var snapshotStore cache.SnapshotStore
	if cfg.RedisAddr != "" {
		redisClient := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			zlog.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		snapshotStore = rediscache.NewSnapshotStore(redisClient, cfg.RedisPrefix)
		zlog.Info().Str("addr", cfg.RedisAddr).Msg("Using Redis snapshot cache")
	} else {
		snapshotStore = cache.NewMemorySnapshotStore(cacheTTL)
	}

	credService := services.NewCredentialService(credRepo, registry)
	analyticsService := services.NewAnalyticsService(historyRepo, cfg.GrowthWindowDays, cfg.TrendMonths, nil)
	statsService := services.NewStatsService(registry, credService, snapshotStore, historyRepo, analyticsService, cacheTTL)

	retention := time.Duration(cfg.HistoryRetentionDays) * 24 * time.Hour
	cleanupService := services.NewCleanupService(credService, credRepo, historyRepo, cfg.CleanupSchedule, retention)
	if err := cleanupService.Start(); err != nil {
		zlog.Fatal().Err(err).Msg("Failed to schedule cleanup job")
	}
	defer cleanupService.Stop()

	api := server.NewAPI(statsService, analyticsService, credService, cleanupService)
	httpServer := server.NewHTTPServer(cfg, api)

	go func() {
		zlog.Info().Str("addr", httpServer.Addr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	zlog.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Err(err).Msg("HTTP server shutdown failed")
	}
}
