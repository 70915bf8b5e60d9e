package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"arkshop/internal/api"
	"arkshop/internal/catalog"
	"arkshop/internal/config"
	"arkshop/internal/credit"
	"arkshop/internal/db"
	"arkshop/internal/ledger"
	"arkshop/internal/players"
	"arkshop/internal/rcon"
	"arkshop/internal/retrylimit"
	"arkshop/internal/shop"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadAPIFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	pool, err := db.OpenAndMigrate(ctx, cfg.DatabaseURL, "arkshop-api")
	if err != nil {
		logger.Error("open database", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		logger.Error("load catalog", "path", cfg.CatalogPath, "err", err)
		os.Exit(1)
	}

	led := ledger.New(ledger.NewPGStore(pool), logger)
	playerStore := players.NewPGStore(pool)
	limiter := retrylimit.New(cfg.RetryCap, cfg.RetryWindow)
	intake := credit.NewIntake(led, playerStore, limiter, logger)

	sender := rcon.NewClient(cfg.RCONAddr, cfg.RCONPassword, logger)
	exec := shop.NewExecutor(sender, shop.NewPGQueueStore(pool), logger)
	sessions := shop.NewSessionStore(cfg.SessionTTL)
	shopSvc := shop.NewService(led, exec, sessions, logger)

	// Housekeeping: expired sessions and stale retry-limiter keys.
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				shopSvc.SweepSessions()
				limiter.GC()
			}
		}
	}()

	server := api.New(cfg, logger, intake, led, playerStore, shopSvc, cat)
	if err := server.Run(ctx); err != nil {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}
