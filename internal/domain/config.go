package domain

import (
	"path/filepath"
	"time"
)

// Config represents the application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Feed    FeedConfig    `mapstructure:"feed"`
	Fetch   FetchConfig   `mapstructure:"fetch"`
	Sync    SyncConfig    `mapstructure:"sync"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig contains status API configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// FeedConfig contains remote feed API configuration
type FeedConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Token     string        `mapstructure:"token"`
	TokenFile string        `mapstructure:"token_file"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// FetchConfig contains feed fetch / page cache configuration
type FetchConfig struct {
	OutDir        string        `mapstructure:"out_dir"`
	CacheDir      string        `mapstructure:"cache_dir"`
	PageSize      int           `mapstructure:"page_size"`
	HeadSyncPages int           `mapstructure:"head_sync_pages"`
	MaxPages      int           `mapstructure:"max_pages"`
	MaxRetries    int           `mapstructure:"max_retries"`
	Sleep         time.Duration `mapstructure:"sleep"`
	MaxBackoff    time.Duration `mapstructure:"max_backoff"`
	Jitter        time.Duration `mapstructure:"jitter"`
}

// SyncConfig contains drain/poll loop configuration
type SyncConfig struct {
	DatabasePath  string        `mapstructure:"database_path"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	MaxPerCycle   int           `mapstructure:"max_per_cycle"`
	MaxIdleCycles int           `mapstructure:"max_idle_cycles"`
	MaxRetries    int           `mapstructure:"max_retries"`
	Sleep         time.Duration `mapstructure:"sleep"`
	MaxBackoff    time.Duration `mapstructure:"max_backoff"`
	Jitter        time.Duration `mapstructure:"jitter"`
	ShowProgress  bool          `mapstructure:"show_progress"`
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
	LogsDir    string `mapstructure:"logs_dir"`    // when set, per-category daily log files
}

// ResolvedCacheDir returns the configured cache dir, defaulting to
// <out_dir>/api_cache when unset.
func (c FetchConfig) ResolvedCacheDir() string {
	if c.CacheDir != "" {
		return c.CacheDir
	}
	return filepath.Join(c.OutDir, "api_cache")
}

// ResolvedDatabasePath returns the configured ledger path, defaulting to
// <out_dir>/suno-sync.db when unset.
func (c SyncConfig) ResolvedDatabasePath(outDir string) string {
	if c.DatabasePath != "" {
		return c.DatabasePath
	}
	return filepath.Join(outDir, "suno-sync.db")
}

// FetchRetryPolicy builds the retry policy for page fetches.
func (c *Config) FetchRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: c.Fetch.MaxRetries,
		BaseDelay:  c.Fetch.Sleep,
		MaxBackoff: c.Fetch.MaxBackoff,
		Jitter:     c.Fetch.Jitter,
	}
}

// SyncRetryPolicy builds the retry policy for clip downloads.
func (c *Config) SyncRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: c.Sync.MaxRetries,
		BaseDelay:  c.Sync.Sleep,
		MaxBackoff: c.Sync.MaxBackoff,
		Jitter:     c.Sync.Jitter,
	}
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		Feed: FeedConfig{
			BaseURL:   "https://studio-api.prod.suno.com/api/feed/v2",
			TokenFile: "token.txt",
			Timeout:   20 * time.Second,
		},
		Fetch: FetchConfig{
			OutDir:        "out",
			PageSize:      20,
			HeadSyncPages: 5,
			MaxPages:      0,
			MaxRetries:    12,
			Sleep:         1 * time.Second,
			MaxBackoff:    120 * time.Second,
			Jitter:        500 * time.Millisecond,
		},
		Sync: SyncConfig{
			PollInterval:  5 * time.Second,
			MaxPerCycle:   0,
			MaxIdleCycles: 0,
			MaxRetries:    8,
			Sleep:         200 * time.Millisecond,
			MaxBackoff:    60 * time.Second,
			Jitter:        300 * time.Millisecond,
			ShowProgress:  false,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stdout",
		},
	}
}
