package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/robfig/cron/v3"

	"arkshop/internal/config"
	"arkshop/internal/db"
	"arkshop/internal/ledger"
	"arkshop/internal/players"
	"arkshop/internal/rcon"
	"arkshop/internal/reward"
	"arkshop/internal/shop"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadWorkerFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	pool, err := db.OpenAndMigrate(ctx, cfg.DatabaseURL, "arkshop-worker")
	if err != nil {
		logger.Error("open database", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	led := ledger.New(ledger.NewPGStore(pool), logger)
	playerStore := players.NewPGStore(pool)
	sender := rcon.NewClient(cfg.RCONAddr, cfg.RCONPassword, logger)
	sweeper := reward.NewSweeper(led, playerStore, sender, cfg.RewardPoints, logger)
	exec := shop.NewExecutor(sender, shop.NewPGQueueStore(pool), logger)

	runOnce := strings.EqualFold(strings.TrimSpace(os.Getenv("ARKSHOP_WORKER_RUN_ONCE")), "true")
	if runOnce {
		if _, err := sweeper.Sweep(ctx); err != nil {
			logger.Error("reward sweep failed", "err", err)
			os.Exit(1)
		}
		if _, err := exec.Flush(ctx); err != nil {
			logger.Error("flush failed", "err", err)
			os.Exit(1)
		}
		logger.Info("worker run-once completed")
		return
	}

	c := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))
	_, err = c.AddFunc(fmt.Sprintf("@every %s", cfg.RewardEvery), func() {
		if _, err := sweeper.Sweep(ctx); err != nil {
			logger.Error("reward sweep failed", "err", err)
		}
	})
	if err != nil {
		logger.Error("schedule reward sweep", "err", err)
		os.Exit(1)
	}
	// Pending deliveries are retried more aggressively than rewards are
	// granted; a down game server should not hold purchases for long.
	_, err = c.AddFunc("@every 1m", func() {
		if _, err := exec.Flush(ctx); err != nil {
			logger.Error("flush failed", "err", err)
		}
	})
	if err != nil {
		logger.Error("schedule flush", "err", err)
		os.Exit(1)
	}

	c.Start()
	logger.Info("worker started", "reward_every", cfg.RewardEvery.String(), "reward_points", cfg.RewardPoints)
	<-ctx.Done()
	<-c.Stop().Done()
	logger.Info("worker shutdown")
}
