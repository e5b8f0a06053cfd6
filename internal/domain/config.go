package domain

import "time"

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Worker       WorkerConfig       `mapstructure:"worker"`
	Download     DownloadConfig     `mapstructure:"download"`
	Cache        CacheConfig        `mapstructure:"cache"`
	Notification NotificationConfig `mapstructure:"notification"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// WorkerConfig describes how the external extraction worker is launched.
// The mode token and positional arguments are appended after Args.
type WorkerConfig struct {
	Command     string        `mapstructure:"command"`
	Args        []string      `mapstructure:"args"`
	Dir         string        `mapstructure:"dir"`
	ListTimeout time.Duration `mapstructure:"list_timeout"`
}

// DownloadConfig contains download-related configuration
type DownloadConfig struct {
	ConcurrentLimit  int           `mapstructure:"concurrent_limit"`
	CloseGrace       time.Duration `mapstructure:"close_grace"`
	SessionRetention time.Duration `mapstructure:"session_retention"`
}

// CacheConfig controls the resolution listing cache
type CacheConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	DatabasePath string        `mapstructure:"database_path"`
	TTL          time.Duration `mapstructure:"ttl"`
}

// NotificationConfig contains notification-related configuration
type NotificationConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Method  string `mapstructure:"method"` // osascript, notify-send
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           3000,
			AllowedOrigins: []string{"*"},
		},
		Worker: WorkerConfig{
			Command:     "python3",
			Args:        []string{"-u", "yt_downloader.py"},
			ListTimeout: 60 * time.Second,
		},
		Download: DownloadConfig{
			ConcurrentLimit:  1,
			CloseGrace:       500 * time.Millisecond,
			SessionRetention: 5 * time.Minute,
		},
		Cache: CacheConfig{
			Enabled:      true,
			DatabasePath: "$HOME/.yt-download/cache.db",
			TTL:          10 * time.Minute,
		},
		Notification: NotificationConfig{
			Enabled: false,
			Method:  "notify-send",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stdout",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 14,
		},
	}
}
