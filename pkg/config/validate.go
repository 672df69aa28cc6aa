package config

import (
	"fmt"
	"regexp"
)

// Validate checks the configuration for internal consistency. It is called
// after defaults and environment overrides have been applied.
func Validate(cfg *Config) error {
	if cfg.Server.ListenAddress == "" {
		return fmt.Errorf("server.listen_address must not be empty")
	}
	if cfg.Git.Root == "" {
		return fmt.Errorf("git.root must not be empty")
	}
	if cfg.Git.DefaultMaxSizeKB < 0 {
		return fmt.Errorf("git.default_max_size_kb must not be negative: %d", cfg.Git.DefaultMaxSizeKB)
	}
	if cfg.Auth.AdminSecret == "" {
		return fmt.Errorf("auth.admin_secret must be configured")
	}
	if cfg.Auth.ManagerSecret == "" {
		return fmt.Errorf("auth.manager_secret must be configured")
	}
	for _, pattern := range cfg.Server.AllowedOrigins {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("server.allowed_origins pattern %q: %w", pattern, err)
		}
	}
	if cfg.Health.MemLimitBytes < 0 {
		return fmt.Errorf("health.mem_limit_bytes must not be negative: %d", cfg.Health.MemLimitBytes)
	}
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug/info/warn/error: %q", cfg.Logging.Level)
	}
	switch cfg.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format must be json or text: %q", cfg.Logging.Format)
	}
	return nil
}
