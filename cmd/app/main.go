package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gitmon-arena/internal/config"
	gh "gitmon-arena/internal/infra/adapters/github"
	pg "gitmon-arena/internal/infra/db/postgres"
	"gitmon-arena/internal/infra/logging"
	"gitmon-arena/internal/infra/metrics"
	red "gitmon-arena/internal/infra/redis"
	"gitmon-arena/internal/infra/sched"
	"gitmon-arena/internal/infra/web"
	"gitmon-arena/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("developer mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	// ---- Redis (optional; locking and throttling degrade to none without it) ----
	var locker usecase.Locker
	var budget usecase.Budget
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer redisClient.Close()
		locker = red.NewLocker(redisClient)
		budget = red.NewRateBudget(redisClient, "api_budget")
	} else {
		logger.Warn().Msg("redis not configured, per-user sync locking and api throttling disabled")
	}

	// ---- Repositories ----
	userRepo := pg.NewUserRepo(pool)
	txManager := pg.NewTxManager(pool)

	// ---- GitHub adapter ----
	ghAdapter := gh.NewAdapter(cfg.GitHub, logger)
	if cfg.GitHub.Token == "" {
		logger.Warn().Msg("no app-level github token; unauthenticated calls run at lower rate limits")
	}

	// ---- Use cases ----
	userUC := usecase.NewUserUseCase(userRepo, txManager, logger)
	syncUC := usecase.NewSyncUseCase(userRepo, ghAdapter, locker, budget, cfg.Sync, logger)
	rankUC := usecase.NewRankingUseCase(userRepo, logger)

	// ---- Scheduled batch sync ----
	worker := sched.NewSyncWorker(cfg.Sync.Interval, cfg.Sync.FullTimeout, syncUC, rankUC, logger)
	go func() {
		if err := worker.Run(ctx); err != nil && err != context.Canceled {
			logger.Error().Err(err).Msg("sync worker stopped")
		}
	}()

	// ---- HTTP ----
	auth := web.NewAuthManager(cfg.Web.JWTSecret, 24*time.Hour)
	server := web.NewServer(userUC, syncUC, rankUC, auth, cfg.Sync.CronSecret, logger)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Web.Port),
		Handler: server.Router(),
	}

	go func() {
		logger.Info().Int("port", cfg.Web.Port).Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server failed")
			cancel()
		}
	}()

	// ---- Shutdown ----
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	logger.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown failed")
	}
	cancel()
}
