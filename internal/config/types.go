package config

// Config is the on-disk configuration. Durations are Go duration strings.
type Config struct {
	Logging   LoggingConfig   `json:"logging"`
	Transport TransportConfig `json:"transport"`
	Telegram  TelegramConfig  `json:"telegram"`
	Storage   StorageConfig   `json:"storage"`
	State     StateConfig     `json:"state"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Notify    NotifyConfig    `json:"notify"`
	Scrape    ScrapeConfig    `json:"scrape"`
	Ops       OpsConfig       `json:"ops"`
	Sources   []SourceConfig  `json:"sources"`
}

type LoggingConfig struct {
	Level   string            `json:"level"`
	Console *bool             `json:"console,omitempty"`
	File    LoggingFileConfig `json:"file"`
}

type LoggingFileConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// TransportConfig selects the notification channel: "telegram" or "console".
type TransportConfig struct {
	Driver    string `json:"driver"`
	ParseMode string `json:"parse_mode"`
}

type TelegramConfig struct {
	Token   string `json:"token"`
	APIURL  string `json:"api_url,omitempty"`
	Timeout string `json:"timeout"`
}

// StorageConfig selects the relational store: "sqlite" (Path) or "postgres" (DSN).
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	DSN         string `json:"dsn"`
	BusyTimeout string `json:"busy_timeout"`
}

// StateConfig selects the watermark store: "redis", "sql" or "memory".
type StateConfig struct {
	Driver    string      `json:"driver"`
	KeyPrefix string      `json:"key_prefix"`
	Redis     RedisConfig `json:"redis"`
}

type RedisConfig struct {
	URL          string `json:"url"`
	PoolSize     int    `json:"pool_size"`
	DialTimeout  string `json:"dial_timeout"`
	ReadTimeout  string `json:"read_timeout"`
	WriteTimeout string `json:"write_timeout"`
}

type SchedulerConfig struct {
	Schedule   string `json:"schedule"`
	Timezone   string `json:"timezone"`
	RunTimeout string `json:"run_timeout"`
}

// NotifyConfig controls message pacing and delivery.
//
// pace is the minimum gap between two sends across all recipients.
// suppress_baseline skips announcing values that were never seen before.
type NotifyConfig struct {
	Pace             string `json:"pace"`
	RetryMax         int    `json:"retry_max"`
	SuppressBaseline bool   `json:"suppress_baseline"`
	DisablePreview   *bool  `json:"disable_preview,omitempty"`
}

type ScrapeConfig struct {
	Timeout     string `json:"timeout"`
	Concurrency int    `json:"concurrency"`
	UserAgent   string `json:"user_agent"`
	Retries     int    `json:"retries"`
}

// OpsConfig controls the operational HTTP endpoint (/healthz, /metrics, pprof).
type OpsConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr"`
	Token   string `json:"token"`
	Pprof   bool   `json:"pprof"`
}

// SourceConfig is one upstream page. Its audience is the union of Regions and
// every region whose name contains RegionMatch (case-insensitive).
type SourceConfig struct {
	Name        string   `json:"name"`
	Adapter     string   `json:"adapter"`
	URL         string   `json:"url"`
	Regions     []string `json:"regions,omitempty"`
	RegionMatch string   `json:"region_match,omitempty"`
	Timeout     string   `json:"timeout,omitempty"`
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
