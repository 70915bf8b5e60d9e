package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type APIConfig struct {
	Addr         string
	DatabaseURL  string
	AdminToken   string
	WebhookToken string
	RCONAddr     string
	RCONPassword string
	RetryCap     int
	RetryWindow  time.Duration
	SessionTTL   time.Duration
	CatalogPath  string
}

type BotConfig struct {
	DatabaseURL  string
	DiscordToken string
	RCONAddr     string
	RCONPassword string
	SessionTTL   time.Duration
	CatalogPath  string
	LogChannelID string
}

type WorkerConfig struct {
	DatabaseURL  string
	RCONAddr     string
	RCONPassword string
	RewardEvery  time.Duration
	RewardPoints int64
}

type CLIConfig struct {
	APIBaseURL string
	AdminToken string
}

func LoadAPIFromEnv() (APIConfig, error) {
	addr := os.Getenv("PORT")
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("ARKSHOP_API_ADDR", ":8080")
	}

	cfg := APIConfig{
		Addr:         addr,
		DatabaseURL:  strings.TrimSpace(os.Getenv("DATABASE_URL")),
		AdminToken:   strings.TrimSpace(os.Getenv("ARKSHOP_ADMIN_TOKEN")),
		WebhookToken: strings.TrimSpace(os.Getenv("ARKSHOP_WEBHOOK_TOKEN")),
		RCONAddr:     rconAddrFromEnv(),
		RCONPassword: envDefault("RCON_PASSWORD", "changeme"),
		RetryCap:     envIntDefault("ARKSHOP_RETRY_CAP", 2),
		RetryWindow:  envDurationDefault("ARKSHOP_RETRY_WINDOW", 3*time.Hour),
		SessionTTL:   envDurationDefault("ARKSHOP_SESSION_TTL", 30*time.Second),
		CatalogPath:  envDefault("ARKSHOP_CATALOG_PATH", "shop_items.json"),
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.AdminToken == "" {
		return cfg, fmt.Errorf("ARKSHOP_ADMIN_TOKEN is required")
	}
	if cfg.WebhookToken == "" {
		return cfg, fmt.Errorf("ARKSHOP_WEBHOOK_TOKEN is required")
	}
	return cfg, nil
}

func LoadBotFromEnv() (BotConfig, error) {
	cfg := BotConfig{
		DatabaseURL:  strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DiscordToken: strings.TrimSpace(os.Getenv("DISCORD_TOKEN")),
		RCONAddr:     rconAddrFromEnv(),
		RCONPassword: envDefault("RCON_PASSWORD", "changeme"),
		SessionTTL:   envDurationDefault("ARKSHOP_SESSION_TTL", 30*time.Second),
		CatalogPath:  envDefault("ARKSHOP_CATALOG_PATH", "shop_items.json"),
		LogChannelID: strings.TrimSpace(os.Getenv("SHOP_LOG_CHANNEL_ID")),
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.DiscordToken == "" {
		return cfg, fmt.Errorf("DISCORD_TOKEN is required")
	}
	return cfg, nil
}

func LoadWorkerFromEnv() (WorkerConfig, error) {
	cfg := WorkerConfig{
		DatabaseURL:  strings.TrimSpace(os.Getenv("DATABASE_URL")),
		RCONAddr:     rconAddrFromEnv(),
		RCONPassword: envDefault("RCON_PASSWORD", "changeme"),
		RewardEvery:  rewardIntervalFromEnv(),
		RewardPoints: int64(envIntDefault("REWARD_POINTS", 10)),
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.RewardPoints <= 0 {
		return cfg, fmt.Errorf("REWARD_POINTS must be > 0")
	}
	return cfg, nil
}

func LoadCLIFromEnv() CLIConfig {
	return CLIConfig{
		APIBaseURL: strings.TrimRight(envDefault("SHOPCTL_API_BASE_URL", "http://localhost:8080"), "/"),
		AdminToken: strings.TrimSpace(os.Getenv("ARKSHOP_ADMIN_TOKEN")),
	}
}

func rconAddrFromEnv() string {
	host := envDefault("RCON_HOST", "127.0.0.1")
	port := envIntDefault("RCON_PORT", 25575)
	return fmt.Sprintf("%s:%d", host, port)
}

// rewardIntervalFromEnv honors the legacy REWARD_INTERVAL_MINUTES variable
// alongside the duration-style ARKSHOP_REWARD_EVERY.
func rewardIntervalFromEnv() time.Duration {
	if v := strings.TrimSpace(os.Getenv("REWARD_INTERVAL_MINUTES")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Minute
		}
	}
	return envDurationDefault("ARKSHOP_REWARD_EVERY", 30*time.Minute)
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envIntDefault(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
