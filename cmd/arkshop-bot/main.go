package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"arkshop/internal/bot"
	"arkshop/internal/catalog"
	"arkshop/internal/config"
	"arkshop/internal/db"
	"arkshop/internal/ledger"
	"arkshop/internal/players"
	"arkshop/internal/rcon"
	"arkshop/internal/shop"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadBotFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	pool, err := db.OpenAndMigrate(ctx, cfg.DatabaseURL, "arkshop-bot")
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
	sender := rcon.NewClient(cfg.RCONAddr, cfg.RCONPassword, logger)
	exec := shop.NewExecutor(sender, shop.NewPGQueueStore(pool), logger)
	sessions := shop.NewSessionStore(cfg.SessionTTL)
	shopSvc := shop.NewService(led, exec, sessions, logger)

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				shopSvc.SweepSessions()
			}
		}
	}()

	b, err := bot.New(cfg.DiscordToken, led, playerStore, shopSvc, cat, cfg.LogChannelID, logger)
	if err != nil {
		logger.Error("bot init failed", "err", err)
		os.Exit(1)
	}
	if err := b.Run(ctx); err != nil {
		logger.Error("bot failed", "err", err)
		os.Exit(1)
	}
}
