package config

import (
	"fmt"

	"dario.cat/mergo"
)

// Default returns the built-in defaults. Sources are never defaulted.
func Default() Config {
	t := true
	return Config{
		Logging:   LoggingConfig{Level: "info", Console: &t, File: LoggingFileConfig{Path: "./healthwatch.log"}},
		Transport: TransportConfig{Driver: "telegram", ParseMode: "Markdown"},
		Telegram:  TelegramConfig{Timeout: "15s"},
		Storage:   StorageConfig{Driver: "sqlite", Path: "./data/healthwatch.db", BusyTimeout: "1s"},
		State: StateConfig{Driver: "sql", Redis: RedisConfig{
			PoolSize:     10,
			DialTimeout:  "5s",
			ReadTimeout:  "3s",
			WriteTimeout: "3s",
		}},
		Scheduler: SchedulerConfig{Schedule: "*/15 * * * *", Timezone: "UTC", RunTimeout: "10m"},
		Notify:    NotifyConfig{Pace: "1s", DisablePreview: &t},
		Scrape:    ScrapeConfig{Timeout: "30s", Concurrency: 2, UserAgent: "healthwatch/1.0"},
		Ops:       OpsConfig{Addr: "127.0.0.1:9090"},
	}
}

// Example is a complete starting configuration covering the three built-in adapters.
func Example() Config {
	c := Default()
	c.Sources = []SourceConfig{
		{Name: "NHC", Adapter: "nhc", URL: "http://en.nhc.gov.cn/news.html", RegionMatch: "province"},
		{Name: "MOH", Adapter: "moh", URL: "https://www.moh.gov.sg/2019-ncov-wuhan", Regions: []string{"Singapore"}},
		{Name: "BNO", Adapter: "bno", URL: "https://bnonews.com/index.php/2020/02/the-latest-coronavirus-cases/"},
	}
	return c
}

// applyDefaults fills every zero field of cfg from Default().
func applyDefaults(cfg *Config) error {
	def := Default()
	if err := mergo.Merge(cfg, def); err != nil {
		return fmt.Errorf("apply defaults: %w", err)
	}
	return nil
}
