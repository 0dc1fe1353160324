package config

import (
	"strings"
)

// Environment variables that override the file. They carry secrets that should
// not live in a config file.
const (
	EnvTelegramToken = "TELEGRAM_BOT_TOKEN"
	EnvDatabaseURL   = "DATABASE_URL"
	EnvRedisURL      = "REDIS_URL"
)

// ApplyEnv overrides cfg from the environment. DATABASE_URL selects postgres
// when it looks like a postgres URL and is a sqlite path otherwise. REDIS_URL
// selects the redis state driver unless the file names another one.
func ApplyEnv(cfg *Config, getenv func(string) string) {
	if v := strings.TrimSpace(getenv(EnvTelegramToken)); v != "" {
		cfg.Telegram.Token = v
	}
	if v := strings.TrimSpace(getenv(EnvDatabaseURL)); v != "" {
		low := strings.ToLower(v)
		if strings.HasPrefix(low, "postgres://") || strings.HasPrefix(low, "postgresql://") {
			cfg.Storage.Driver = "postgres"
			cfg.Storage.DSN = v
		} else {
			cfg.Storage.Driver = "sqlite"
			cfg.Storage.Path = strings.TrimPrefix(v, "sqlite://")
		}
	}
	if v := strings.TrimSpace(getenv(EnvRedisURL)); v != "" {
		cfg.State.Redis.URL = v
		if strings.TrimSpace(cfg.State.Driver) == "" {
			cfg.State.Driver = "redis"
		}
	}
}
