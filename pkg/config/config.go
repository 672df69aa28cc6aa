package config

import "time"

// Config is the root configuration for the git hosting service.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Git         GitConfig         `yaml:"git"`
	Auth        AuthConfig        `yaml:"auth"`
	Audit       AuditConfig       `yaml:"audit"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Health      HealthConfig      `yaml:"health"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	// ListenAddress is the host:port the server binds to.
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading a request.
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration for writing a response.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum keep-alive idle duration.
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits request header size.
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// AllowedOrigins is a list of regular expressions matched against the
	// Origin header. Requests from unmatched origins get no CORS headers
	// and their preflights are refused.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// GitConfig contains repository storage settings.
type GitConfig struct {
	// Root is the directory under which all repositories are sharded.
	Root string `yaml:"root"`

	// HookPath is the absolute path to the pre-receive hook binary that
	// gets linked into every provisioned repository.
	HookPath string `yaml:"hook_path"`

	// Binary is the git executable used for transport and maintenance
	// subprocesses.
	Binary string `yaml:"binary"`

	// DefaultMaxSizeKB is the repository size cap applied when a create
	// request does not specify one.
	DefaultMaxSizeKB int64 `yaml:"default_max_size_kb"`
}

// AuthConfig contains the two process-wide secrets.
type AuthConfig struct {
	// AdminSecret grants the admin role over every repository.
	AdminSecret string `yaml:"admin_secret"`

	// ManagerSecret is the HMAC key under which per-repository manager
	// keys are derived. Rotating it invalidates every manager key.
	ManagerSecret string `yaml:"manager_secret"`
}

// AuditConfig contains settings for the SQLite audit event store.
type AuditConfig struct {
	// Enabled controls whether lifecycle and transport events are recorded.
	Enabled bool `yaml:"enabled"`

	// Path is the SQLite database file path.
	Path string `yaml:"path"`

	// MaxOpenConns is the maximum number of open database connections.
	MaxOpenConns int `yaml:"max_open_conns"`

	// BusyTimeout is how long a writer waits on a locked database.
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	// Enabled controls whether /metrics is served.
	Enabled bool `yaml:"enabled"`

	// Namespace is the metric name prefix.
	Namespace string `yaml:"namespace"`
}

// HealthConfig contains health check thresholds.
type HealthConfig struct {
	// MemLimitBytes is the resident memory ceiling; the health check
	// reports 503 above it.
	MemLimitBytes int64 `yaml:"mem_limit_bytes"`
}

// MaintenanceConfig contains settings for the orphan sweeper.
type MaintenanceConfig struct {
	// Enabled controls whether the sweeper runs.
	Enabled bool `yaml:"enabled"`

	// Schedule is a cron expression for sweep runs.
	Schedule string `yaml:"schedule"`

	// MinAge is how old an orphaned directory must be before removal, so
	// that in-flight provisioning is never swept.
	MinAge time.Duration `yaml:"min_age"`
}

// LoggingConfig contains structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	Level string `yaml:"level"`

	// Format is the output format ("json" or "text").
	Format string `yaml:"format"`
}
