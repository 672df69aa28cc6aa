package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads configuration from a YAML file, applies defaults, applies
// GHSERV_* environment variable overrides and validates the result.
// Environment variables always win over file values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}
	return cfg, nil
}

// Parse parses raw YAML configuration, applying defaults, environment
// overrides and validation.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	ApplyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// applyEnvOverrides applies environment variable overrides using the
// GHSERV_SECTION_FIELD convention (e.g. GHSERV_GIT_ROOT).
func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("GHSERV_SERVER_LISTEN_ADDRESS"); val != "" {
		cfg.Server.ListenAddress = val
	}
	if val := os.Getenv("GHSERV_SERVER_ALLOWED_ORIGINS"); val != "" {
		cfg.Server.AllowedOrigins = strings.Split(val, ",")
	}
	if val := os.Getenv("GHSERV_GIT_ROOT"); val != "" {
		cfg.Git.Root = val
	}
	if val := os.Getenv("GHSERV_GIT_HOOK_PATH"); val != "" {
		cfg.Git.HookPath = val
	}
	if val := os.Getenv("GHSERV_GIT_BINARY"); val != "" {
		cfg.Git.Binary = val
	}
	if val := os.Getenv("GHSERV_GIT_DEFAULT_MAX_SIZE_KB"); val != "" {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.Git.DefaultMaxSizeKB = n
		}
	}
	if val := os.Getenv("GHSERV_AUTH_ADMIN_SECRET"); val != "" {
		cfg.Auth.AdminSecret = val
	}
	if val := os.Getenv("GHSERV_AUTH_MANAGER_SECRET"); val != "" {
		cfg.Auth.ManagerSecret = val
	}
	if val := os.Getenv("GHSERV_AUDIT_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Audit.Enabled = b
		}
	}
	if val := os.Getenv("GHSERV_AUDIT_PATH"); val != "" {
		cfg.Audit.Path = val
	}
	if val := os.Getenv("GHSERV_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Metrics.Enabled = b
		}
	}
	if val := os.Getenv("GHSERV_HEALTH_MEM_LIMIT_BYTES"); val != "" {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.Health.MemLimitBytes = n
		}
	}
	if val := os.Getenv("GHSERV_MAINTENANCE_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Maintenance.Enabled = b
		}
	}
	if val := os.Getenv("GHSERV_MAINTENANCE_SCHEDULE"); val != "" {
		cfg.Maintenance.Schedule = val
	}
	if val := os.Getenv("GHSERV_MAINTENANCE_MIN_AGE"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Maintenance.MinAge = d
		}
	}
	if val := os.Getenv("GHSERV_LOGGING_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := os.Getenv("GHSERV_LOGGING_FORMAT"); val != "" {
		cfg.Logging.Format = val
	}
}
