package config

import "time"

// Default values applied by ApplyDefaults.
const (
	DefaultListenAddress   = ":8174"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 5 * time.Minute
	DefaultIdleTimeout     = 2 * time.Minute
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1 << 20

	DefaultGitRoot   = "/var/lib/gh-serv/repos"
	DefaultGitBinary = "git"

	// DefaultMaxSizeKB is the repository size cap (20 MB) used when
	// neither the create request nor the config file names one. The hook
	// carries the same constant so that a missing max_size file on disk
	// resolves identically out of process.
	DefaultMaxSizeKB = 20480

	DefaultAuditPath        = "data/audit.db"
	DefaultAuditMaxConns    = 10
	DefaultAuditBusyTimeout = 5 * time.Second

	DefaultMetricsNamespace = "ghserv"

	// DefaultMemLimitBytes mirrors the 200 MB resident memory threshold
	// of the health check.
	DefaultMemLimitBytes = 200 << 20

	DefaultSweepSchedule = "@hourly"
	DefaultSweepMinAge   = time.Hour
)

// DefaultAllowedOrigins matches the origins the service trusts out of the
// box: localhost in any form, for local development.
var DefaultAllowedOrigins = []string{
	`^(.*/)?localhost$`,
	`^(.*/)?localhost:\d+$`,
	`^(.*/)?127\.0\.0\.1$`,
	`^(.*/)?127\.0\.0\.1:\d+$`,
}

// ApplyDefaults fills in zero-valued fields with defaults. Explicitly
// configured values are never overwritten.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = append([]string(nil), DefaultAllowedOrigins...)
	}

	if cfg.Git.Root == "" {
		cfg.Git.Root = DefaultGitRoot
	}
	if cfg.Git.Binary == "" {
		cfg.Git.Binary = DefaultGitBinary
	}
	if cfg.Git.DefaultMaxSizeKB == 0 {
		cfg.Git.DefaultMaxSizeKB = DefaultMaxSizeKB
	}

	if cfg.Audit.Path == "" {
		cfg.Audit.Path = DefaultAuditPath
	}
	if cfg.Audit.MaxOpenConns == 0 {
		cfg.Audit.MaxOpenConns = DefaultAuditMaxConns
	}
	if cfg.Audit.BusyTimeout == 0 {
		cfg.Audit.BusyTimeout = DefaultAuditBusyTimeout
	}

	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}

	if cfg.Health.MemLimitBytes == 0 {
		cfg.Health.MemLimitBytes = DefaultMemLimitBytes
	}

	if cfg.Maintenance.Schedule == "" {
		cfg.Maintenance.Schedule = DefaultSweepSchedule
	}
	if cfg.Maintenance.MinAge == 0 {
		cfg.Maintenance.MinAge = DefaultSweepMinAge
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}
