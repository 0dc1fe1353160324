package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"healthwatch/internal/scheduler"
	"healthwatch/internal/source"
)

// ErrInvalid wraps every validation failure. It is the only fatal error class.
var ErrInvalid = errors.New("invalid configuration")

// Runtime is a validated Config with durations parsed.
type Runtime struct {
	Raw *Config

	TelegramTimeout   time.Duration
	StorageBusy       time.Duration
	RedisDialTimeout  time.Duration
	RedisReadTimeout  time.Duration
	RedisWriteTimeout time.Duration
	RunTimeout        time.Duration
	Pace              time.Duration
	ScrapeTimeout     time.Duration
	DisablePreview    bool
	LogConsole        bool
	Sources           []SourceRuntime
}

type SourceRuntime struct {
	SourceConfig
	Timeout time.Duration
}

// Resolve validates cfg and parses its durations.
func Resolve(cfg *Config) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: config is nil", ErrInvalid)
	}
	var errs []error
	dur := func(path, raw string) time.Duration {
		d, err := ParseDurationField(path, raw)
		if err != nil {
			errs = append(errs, err)
		}
		return d
	}

	rt := &Runtime{
		Raw:               cfg,
		TelegramTimeout:   dur("telegram.timeout", cfg.Telegram.Timeout),
		StorageBusy:       dur("storage.busy_timeout", cfg.Storage.BusyTimeout),
		RedisDialTimeout:  dur("state.redis.dial_timeout", cfg.State.Redis.DialTimeout),
		RedisReadTimeout:  dur("state.redis.read_timeout", cfg.State.Redis.ReadTimeout),
		RedisWriteTimeout: dur("state.redis.write_timeout", cfg.State.Redis.WriteTimeout),
		RunTimeout:        dur("scheduler.run_timeout", cfg.Scheduler.RunTimeout),
		Pace:              dur("notify.pace", cfg.Notify.Pace),
		ScrapeTimeout:     dur("scrape.timeout", cfg.Scrape.Timeout),
		DisablePreview:    boolOr(cfg.Notify.DisablePreview, true),
		LogConsole:        boolOr(cfg.Logging.Console, true),
	}

	if _, err := scheduler.ParseSchedule(cfg.Scheduler.Schedule); err != nil {
		errs = append(errs, fmt.Errorf("scheduler.schedule: %w", err))
	}
	if tz := strings.TrimSpace(cfg.Scheduler.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			errs = append(errs, fmt.Errorf("scheduler.timezone: %w", err))
		}
	}
	if cfg.Notify.RetryMax < 0 {
		errs = append(errs, errors.New("notify.retry_max: must be >= 0"))
	}
	if cfg.Scrape.Concurrency < 0 {
		errs = append(errs, errors.New("scrape.concurrency: must be >= 0"))
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Transport.Driver)) {
	case "telegram":
		if strings.TrimSpace(cfg.Telegram.Token) == "" {
			errs = append(errs, fmt.Errorf("telegram.token: required for the telegram transport (or set %s)", EnvTelegramToken))
		}
	case "console":
	default:
		errs = append(errs, fmt.Errorf("transport.driver: unknown %q", cfg.Transport.Driver))
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)) {
	case "sqlite":
		if strings.TrimSpace(cfg.Storage.Path) == "" {
			errs = append(errs, errors.New("storage.path: required for sqlite"))
		}
	case "postgres":
		if strings.TrimSpace(cfg.Storage.DSN) == "" {
			errs = append(errs, fmt.Errorf("storage.dsn: required for postgres (or set %s)", EnvDatabaseURL))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver: unknown %q", cfg.Storage.Driver))
	}

	switch strings.ToLower(strings.TrimSpace(cfg.State.Driver)) {
	case "sql", "memory":
	case "redis":
		if strings.TrimSpace(cfg.State.Redis.URL) == "" {
			errs = append(errs, fmt.Errorf("state.redis.url: required for redis (or set %s)", EnvRedisURL))
		}
	default:
		errs = append(errs, fmt.Errorf("state.driver: unknown %q", cfg.State.Driver))
	}

	if cfg.Ops.Enabled && strings.TrimSpace(cfg.Ops.Addr) == "" {
		errs = append(errs, errors.New("ops.addr: required when ops is enabled"))
	}

	if len(cfg.Sources) == 0 {
		errs = append(errs, errors.New("sources: at least one source is required"))
	}
	known := map[string]bool{}
	for _, a := range source.Adapters() {
		known[a] = true
	}
	seen := map[string]bool{}
	for i, s := range cfg.Sources {
		path := fmt.Sprintf("sources[%d]", i)
		name := strings.TrimSpace(s.Name)
		switch {
		case name == "":
			errs = append(errs, fmt.Errorf("%s.name: required", path))
		case seen[strings.ToUpper(name)]:
			errs = append(errs, fmt.Errorf("%s.name: duplicate %q", path, name))
		}
		seen[strings.ToUpper(name)] = true
		if !known[strings.ToLower(strings.TrimSpace(s.Adapter))] {
			errs = append(errs, fmt.Errorf("%s.adapter: unknown %q (known: %s)", path, s.Adapter, strings.Join(source.Adapters(), ", ")))
		}
		if strings.TrimSpace(s.URL) == "" {
			errs = append(errs, fmt.Errorf("%s.url: required", path))
		}
		to := dur(path+".timeout", s.Timeout)
		if to <= 0 {
			to = rt.ScrapeTimeout
		}
		rt.Sources = append(rt.Sources, SourceRuntime{SourceConfig: s, Timeout: to})
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return rt, nil
}
