package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/yourusername/yt-download-go/internal/domain"
)

// LoadConfig loads configuration from file and environment
func LoadConfig(configPath string) (*domain.Config, error) {
	// Start with default config
	config := domain.DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.yt-download")
		v.AddConfigPath("/etc/yt-download")
	}

	// YTDL_SERVER_PORT overrides server.port, and so on
	v.SetEnvPrefix("YTDL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config = expandPaths(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// bindEnvKeys makes every known key visible to Unmarshal even when no config
// file mentions it; AutomaticEnv alone only applies to keys viper already knows.
func bindEnvKeys(v *viper.Viper) {
	keys := []string{
		"server.host", "server.port", "server.allowed_origins",
		"worker.command", "worker.args", "worker.dir", "worker.list_timeout",
		"download.concurrent_limit", "download.close_grace", "download.session_retention",
		"cache.enabled", "cache.database_path", "cache.ttl",
		"notification.enabled", "notification.method",
		"logging.level", "logging.format", "logging.output_path",
		"logging.max_size_mb", "logging.max_backups", "logging.max_age_days",
	}
	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// expandPaths expands environment variables in path configurations
func expandPaths(config *domain.Config) *domain.Config {
	config.Worker.Dir = expandPath(config.Worker.Dir)
	config.Cache.DatabasePath = expandPath(config.Cache.DatabasePath)

	if config.Logging.OutputPath != "stdout" && config.Logging.OutputPath != "stderr" {
		config.Logging.OutputPath = expandPath(config.Logging.OutputPath)
	}

	return config
}

// expandPath expands environment variables and ~ in paths
func expandPath(path string) string {
	path = os.ExpandEnv(path)

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	return path
}

// validateConfig validates the configuration
func validateConfig(config *domain.Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Worker.Command == "" {
		return fmt.Errorf("worker command not configured")
	}

	if config.Worker.ListTimeout < 0 {
		return fmt.Errorf("worker list timeout cannot be negative")
	}

	if config.Download.ConcurrentLimit < 1 {
		return fmt.Errorf("concurrent limit must be at least 1")
	}

	if config.Download.CloseGrace < 0 {
		return fmt.Errorf("close grace cannot be negative")
	}

	if config.Cache.Enabled && config.Cache.DatabasePath == "" {
		return fmt.Errorf("cache database path not configured")
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}

	return nil
}

// SaveConfig saves configuration to file in the layout LoadConfig reads
func SaveConfig(config *domain.Config, path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	for key, value := range configValues(config) {
		v.Set(key, value)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// configValues flattens config into viper keys. Durations are written in
// their string form so the file stays readable.
func configValues(config *domain.Config) map[string]interface{} {
	return map[string]interface{}{
		"server.host":                config.Server.Host,
		"server.port":                config.Server.Port,
		"server.allowed_origins":     config.Server.AllowedOrigins,
		"worker.command":             config.Worker.Command,
		"worker.args":                config.Worker.Args,
		"worker.dir":                 config.Worker.Dir,
		"worker.list_timeout":        config.Worker.ListTimeout.String(),
		"download.concurrent_limit":  config.Download.ConcurrentLimit,
		"download.close_grace":       config.Download.CloseGrace.String(),
		"download.session_retention": config.Download.SessionRetention.String(),
		"cache.enabled":              config.Cache.Enabled,
		"cache.database_path":        config.Cache.DatabasePath,
		"cache.ttl":                  config.Cache.TTL.String(),
		"notification.enabled":       config.Notification.Enabled,
		"notification.method":        config.Notification.Method,
		"logging.level":              config.Logging.Level,
		"logging.format":             config.Logging.Format,
		"logging.output_path":        config.Logging.OutputPath,
		"logging.max_size_mb":        config.Logging.MaxSizeMB,
		"logging.max_backups":        config.Logging.MaxBackups,
		"logging.max_age_days":       config.Logging.MaxAgeDays,
	}
}
