package app

import (
	"strings"

	"healthwatch/internal/config"
	"healthwatch/internal/dispatch"
	"healthwatch/internal/opsserver"
	"healthwatch/internal/runner"
	"healthwatch/internal/scheduler"
	"healthwatch/internal/source"
	"healthwatch/internal/state"
	"healthwatch/internal/storage"
	"healthwatch/internal/transport/telegram"
	logx "healthwatch/pkg/logx"
)

// Mapping from the validated config to component configs. Resolve has
// already rejected invalid values, so these never fail.

func logConfig(rt *config.Runtime) logx.Config {
	c := rt.Raw.Logging
	return logx.Config{
		Level:   c.Level,
		Console: rt.LogConsole,
		File:    logx.FileConfig{Enabled: c.File.Enabled, Path: c.File.Path},
	}
}

func storageConfig(rt *config.Runtime) storage.Config {
	c := rt.Raw.Storage
	return storage.Config{
		Driver:      strings.ToLower(strings.TrimSpace(c.Driver)),
		Path:        strings.TrimSpace(c.Path),
		DSN:         strings.TrimSpace(c.DSN),
		BusyTimeout: rt.StorageBusy,
	}
}

func stateConfig(rt *config.Runtime) state.Config {
	c := rt.Raw.State
	return state.Config{
		Driver:    c.Driver,
		KeyPrefix: c.KeyPrefix,
		Redis: state.RedisConfig{
			URL:          c.Redis.URL,
			PoolSize:     c.Redis.PoolSize,
			DialTimeout:  rt.RedisDialTimeout,
			ReadTimeout:  rt.RedisReadTimeout,
			WriteTimeout: rt.RedisWriteTimeout,
		},
	}
}

func telegramConfig(rt *config.Runtime) telegram.Config {
	c := rt.Raw.Telegram
	return telegram.Config{Token: c.Token, APIURL: c.APIURL, Timeout: rt.TelegramTimeout}
}

func dispatchConfig(rt *config.Runtime) dispatch.Config {
	c := rt.Raw.Notify
	return dispatch.Config{
		Pace:             rt.Pace,
		RetryMax:         c.RetryMax,
		SuppressBaseline: c.SuppressBaseline,
		ParseMode:        rt.Raw.Transport.ParseMode,
		DisablePreview:   rt.DisablePreview,
	}
}

func httpConfig(rt *config.Runtime) source.HTTPConfig {
	c := rt.Raw.Scrape
	return source.HTTPConfig{Timeout: rt.ScrapeTimeout, UserAgent: c.UserAgent, Retries: c.Retries}
}

func runnerConfig(rt *config.Runtime) runner.Config {
	return runner.Config{Concurrency: rt.Raw.Scrape.Concurrency, RunTimeout: rt.RunTimeout}
}

func schedulerConfig(rt *config.Runtime) scheduler.Config {
	c := rt.Raw.Scheduler
	return scheduler.Config{Schedule: c.Schedule, Timezone: c.Timezone, RunTimeout: rt.RunTimeout}
}

func opsConfig(rt *config.Runtime) opsserver.Config {
	c := rt.Raw.Ops
	return opsserver.Config{Addr: c.Addr, Token: c.Token, Pprof: c.Pprof}
}
