// Package main - точка входа для API-сервера движка прогрессии.
//
// Сервер выставляет REST API поверх движка: чтение прогрессии, начисление
// XP, стрик-фризы, покупки, дневные челленджи и лидерборды.
//
// Архитектура следует Clean Architecture и DDD:
// - Domain: чистая бизнес-логика без внешних зависимостей
// - Application: движок (фасад) и обработчики событий
// - Infrastructure: PostgreSQL, Redis, event bus
// - Interface: HTTP handlers
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/studyhub/progression-engine/config"
	"github.com/studyhub/progression-engine/internal/application/engine"
	"github.com/studyhub/progression-engine/internal/application/eventhandler"
	"github.com/studyhub/progression-engine/internal/domain/achievement"
	"github.com/studyhub/progression-engine/internal/domain/challenge"
	"github.com/studyhub/progression-engine/internal/domain/economy"
	"github.com/studyhub/progression-engine/internal/domain/leaderboard"
	"github.com/studyhub/progression-engine/internal/infrastructure/messaging"
	"github.com/studyhub/progression-engine/internal/infrastructure/persistence/postgres"
	redisinfra "github.com/studyhub/progression-engine/internal/infrastructure/persistence/redis"
	httpserver "github.com/studyhub/progression-engine/internal/interface/http"
	"github.com/studyhub/progression-engine/pkg/logger"
	"github.com/studyhub/progression-engine/pkg/timeutil"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. КОНФИГУРАЦИЯ И ЛОГИРОВАНИЕ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := setupLogger(cfg)
	log.Info("starting progression engine server",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.String("timezone", cfg.App.Timezone),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 2. ПОДКЛЮЧЕНИЕ К POSTGRESQL И МИГРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	conn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer conn.Close()

	if err := postgres.NewMigrator(conn).Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	store := postgres.NewProgressionRepository(conn)
	achievements := postgres.NewAchievementRepository(conn)
	challenges := postgres.NewChallengeRepository(conn)
	boards := postgres.NewLeaderboardRepository(conn)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. REDIS (ОПЦИОНАЛЬНЫЙ КЕШ ЛИДЕРБОРДА)
	// ─────────────────────────────────────────────────────────────────────────
	var boardCache leaderboard.Cache
	cacheEnabled := !cfg.Redis.Disabled && cfg.Features.IsEnabled(config.FeatureLeaderboardCache)
	if cacheEnabled {
		cache, err := redisinfra.NewCache(redisinfra.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			// Кеш необязателен: без Redis лидерборды читаются из Postgres.
			log.Warn("redis unavailable, leaderboard cache disabled", logger.Err(err))
		} else {
			defer cache.Close()
			boardCache = redisinfra.NewLeaderboardCache(cache)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. EVENT BUS И ОБРАБОТЧИКИ
	// ─────────────────────────────────────────────────────────────────────────
	clock := timeutil.SystemClock{}
	calendar := timeutil.NewCalendar(cfg.App.Location)

	bus := messaging.NewInMemoryEventBus(messaging.DefaultInMemoryEventBusConfig())
	defer bus.Close()

	if err := bus.Subscribe(eventhandler.NewAuditLogHandler(slog.Default())); err != nil {
		return fmt.Errorf("failed to subscribe audit handler: %w", err)
	}
	if boardCache != nil {
		handler := eventhandler.NewOnXPGainedHandler(boardCache, clock, calendar, slog.Default())
		if err := bus.Subscribe(handler); err != nil {
			return fmt.Errorf("failed to subscribe cache handler: %w", err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ДВИЖОК И HTTP-СЕРВЕР
	// ─────────────────────────────────────────────────────────────────────────
	eng := engine.New(engine.Config{
		Store:              store,
		Achievements:       achievements,
		Challenges:         challenges,
		Boards:             boards,
		BoardCache:         boardCache,
		AchievementCatalog: achievement.NewCatalog(),
		ItemCatalog:        economy.NewItemCatalog(),
		ChallengeCatalog:   challenge.NewRotatingCatalog(),
		Clock:              clock,
		Calendar:           calendar,
		Publisher:          bus,
		Logger:             log,
	})

	serverCfg := httpserver.DefaultConfig()
	serverCfg.Host = cfg.HTTP.Host
	serverCfg.Port = cfg.HTTP.Port
	serverCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	serverCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	serverCfg.IdleTimeout = cfg.HTTP.IdleTimeout
	serverCfg.RateLimitPerMinute = cfg.HTTP.RateLimitPerMinute
	serverCfg.APIKeyHashes = cfg.HTTP.APIKeyHashes

	server := httpserver.NewServer(serverCfg, eng, log)
	errCh := server.StartAsync()

	// ─────────────────────────────────────────────────────────────────────────
	// 6. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", logger.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}

	log.Info("server stopped")
	return nil
}

func setupLogger(cfg *config.Config) *logger.Logger {
	opts := logger.DefaultOptions()
	if cfg.App.Debug {
		opts.Level = logger.LevelDebug
	}
	return logger.New(opts)
}
