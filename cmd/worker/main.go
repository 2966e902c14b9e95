// Package main - точка входа для фоновых процессов движка прогрессии.
//
// Worker отвечает за периодические задачи:
// - Перестройка Redis-кеша лидерборда из авторитетных счётчиков
// - Аудит гем-леджера: сверка кешированных балансов с суммой дельт
//
// Worker не пишет в прогрессию пользователей: все его задачи либо
// read-only, либо трогают только кеш.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/studyhub/progression-engine/config"
	"github.com/studyhub/progression-engine/internal/infrastructure/persistence/postgres"
	redisinfra "github.com/studyhub/progression-engine/internal/infrastructure/persistence/redis"
	"github.com/studyhub/progression-engine/internal/infrastructure/scheduler"
	"github.com/studyhub/progression-engine/internal/infrastructure/scheduler/jobs"
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

	logLevel := slog.LevelInfo
	if cfg.App.Debug {
		logLevel = slog.LevelDebug
	}
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)

	log.Info("starting progression engine worker",
		"env", string(cfg.App.Environment),
		"timezone", cfg.App.Timezone,
	)

	if !cfg.Scheduler.Enabled {
		return fmt.Errorf("scheduler is disabled, nothing to do")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. ПОДКЛЮЧЕНИЯ: POSTGRESQL И REDIS
	// ─────────────────────────────────────────────────────────────────────────
	conn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer conn.Close()

	store := postgres.NewProgressionRepository(conn)
	boards := postgres.NewLeaderboardRepository(conn)
	ledger := postgres.NewLedgerRepository(conn)

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
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer cache.Close()

	// ─────────────────────────────────────────────────────────────────────────
	// 3. РЕГИСТРАЦИЯ ЗАДАЧ И ЗАПУСК ПЛАНИРОВЩИКА
	// ─────────────────────────────────────────────────────────────────────────
	clock := timeutil.SystemClock{}
	calendar := timeutil.NewCalendar(cfg.App.Location)
	boardCache := redisinfra.NewLeaderboardCache(cache)

	sched := scheduler.New(scheduler.Config{
		Logger:        log,
		Timezone:      cfg.App.Location,
		EnableMetrics: true,
	})

	rebuildJob := jobs.NewRebuildLeaderboardCacheJob(boards, boardCache, clock, calendar, log)
	if err := sched.Register(rebuildJob, scheduler.NewIntervalSchedule(cfg.Scheduler.RebuildInterval)); err != nil {
		return fmt.Errorf("failed to register rebuild job: %w", err)
	}

	auditJob := jobs.NewAuditGemLedgerJob(ledger, store, log)
	if err := sched.Register(auditJob, scheduler.NewIntervalSchedule(cfg.Scheduler.AuditInterval)); err != nil {
		return fmt.Errorf("failed to register audit job: %w", err)
	}

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	// Прогреваем кеш сразу, не дожидаясь первого тика.
	if _, err := sched.RunNow(ctx, rebuildJob.Name()); err != nil {
		log.Warn("initial cache rebuild failed", "error", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
	}

	if err := sched.Stop(); err != nil {
		return fmt.Errorf("failed to stop scheduler: %w", err)
	}

	log.Info("worker stopped")
	return nil
}
