package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for the server configuration.
const (
	DefaultGRPCPort        = 50051
	DefaultHTTPPort        = 8080
	DefaultLogLevel        = "info"
	DefaultStoreDriver     = "fs"
	DefaultStoreDir        = "./tlb-data"
	DefaultSQLitePath      = "./tlb-data/tlb.db"
	DefaultFlushInterval   = 5 * time.Minute
	DefaultVersionLifeDays = 7
	DefaultPruneInterval   = time.Hour
	DefaultStatsInterval   = 5 * time.Second

	// MaxVersionLifeDays bounds retention.version_life_days (100 years).
	MaxVersionLifeDays = 36500
)

// Environment variables that override file settings.
const (
	EnvDataDir         = "TLB_DATA_DIR"
	EnvStoreDriver     = "TLB_STORE_DRIVER"
	EnvVersionLifeDays = "TLB_VERSION_LIFE_IN_DAYS"
)

// Config holds the server-side configuration parsed from the `server:` section
// of config.yaml.
type Config struct {
	Server ServerConfig `yaml:"server"`
}

// ServerConfig holds all server-side settings.
type ServerConfig struct {
	// GRPCPort is the port the gRPC health service listens on (default 50051).
	GRPCPort int `yaml:"grpc_port"`

	// HTTPPort is the port the admin API, /metrics and the WebSocket hub listen on (default 8080).
	HTTPPort int `yaml:"http_port"`

	// LogLevel is one of: debug | info | warn | error.
	LogLevel string `yaml:"log_level"`

	// Auth configures how the server authenticates mutating API and gRPC calls.
	Auth AuthConfig `yaml:"auth"`

	// Store selects where repository state is persisted.
	Store StoreConfig `yaml:"store"`

	// Flush controls the periodic write-back of dirty repositories.
	Flush FlushConfig `yaml:"flush"`

	// Retention controls age-based pruning of frozen versions.
	Retention RetentionConfig `yaml:"retention"`

	// Stats controls the WebSocket stats broadcast.
	Stats StatsConfig `yaml:"stats"`
}

// AuthConfig controls client authentication on the server side.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// KeyEnv is the name of the environment variable that holds the expected API key.
	// Used when Mode == "apikey".
	KeyEnv string `yaml:"key_env"`

	// Header is the gRPC metadata key (and HTTP header name) to read the key from.
	// Defaults to "x-api-key" if empty.
	Header string `yaml:"header"`
}

// Key returns the expected API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or the default "x-api-key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "x-api-key"
}

// StoreConfig selects and configures the persistence driver.
type StoreConfig struct {
	// Driver is one of: fs | memory | s3 | sqlite.
	Driver string `yaml:"driver"`

	// Dir is the flat directory the fs driver writes one file per identifier into.
	Dir string `yaml:"dir"`

	// SQLitePath is the database file used by the sqlite driver.
	SQLitePath string `yaml:"sqlite_path"`

	// S3 holds the bucket settings used by the s3 driver.
	S3 S3Config `yaml:"s3"`
}

// S3Config configures the S3 (or MinIO) driver. Credentials come from the
// default AWS chain.
type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	Prefix    string `yaml:"prefix"`
	PathStyle bool   `yaml:"path_style"`
}

// FlushConfig controls periodic persistence.
type FlushConfig struct {
	// Interval between two FlushAll runs. Default: 5m.
	Interval time.Duration `yaml:"interval"`
}

// RetentionConfig controls age-based pruning.
type RetentionConfig struct {
	// VersionLifeDays is the age in days after which frozen versions are purged.
	VersionLifeDays int `yaml:"version_life_days"`

	// PruneInterval is how often PurgeOlderThan runs. Default: 1h.
	PruneInterval time.Duration `yaml:"prune_interval"`
}

// StatsConfig controls the WebSocket stats stream.
type StatsConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// Load reads and parses the config file at path, returning the server configuration.
// Missing fields are filled with sensible defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("server config: read %q: %w", path, err)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("server config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides store and retention settings from the TLB_* environment
// variables, then re-validates.
func ApplyEnv(cfg *Config) error {
	if dir := os.Getenv(EnvDataDir); dir != "" {
		cfg.Server.Store.Dir = dir
	}
	if driver := os.Getenv(EnvStoreDriver); driver != "" {
		cfg.Server.Store.Driver = strings.ToLower(driver)
	}
	if days := os.Getenv(EnvVersionLifeDays); days != "" {
		n, err := strconv.Atoi(days)
		if err != nil {
			return fmt.Errorf("server config: %s=%q is not an integer", EnvVersionLifeDays, days)
		}
		cfg.Server.Retention.VersionLifeDays = n
	}
	if err := validate(cfg); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	return nil
}

// Defaults returns a Config pre-populated with default values.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			GRPCPort: DefaultGRPCPort,
			HTTPPort: DefaultHTTPPort,
			LogLevel: DefaultLogLevel,
			Store: StoreConfig{
				Driver:     DefaultStoreDriver,
				Dir:        DefaultStoreDir,
				SQLitePath: DefaultSQLitePath,
			},
			Flush: FlushConfig{
				Interval: DefaultFlushInterval,
			},
			Retention: RetentionConfig{
				VersionLifeDays: DefaultVersionLifeDays,
				PruneInterval:   DefaultPruneInterval,
			},
			Stats: StatsConfig{
				Interval: DefaultStatsInterval,
			},
		},
	}
}

// SlogLevel maps LogLevel to a slog.Level.
func (s ServerConfig) SlogLevel() slog.Level {
	switch s.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	s := cfg.Server
	if s.GRPCPort <= 0 || s.GRPCPort > 65535 {
		return fmt.Errorf("server.grpc_port %d is out of range [1, 65535]", s.GRPCPort)
	}
	if s.HTTPPort <= 0 || s.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", s.HTTPPort)
	}
	switch s.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("server.log_level %q unknown: want debug|info|warn|error", s.LogLevel)
	}
	switch s.Auth.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("server.auth.mode %q unknown: want apikey|none", s.Auth.Mode)
	}
	switch s.Store.Driver {
	case "fs":
		if s.Store.Dir == "" {
			return fmt.Errorf("server.store.dir is required for the fs driver")
		}
	case "sqlite":
		if s.Store.SQLitePath == "" {
			return fmt.Errorf("server.store.sqlite_path is required for the sqlite driver")
		}
	case "s3":
		if s.Store.S3.Bucket == "" {
			return fmt.Errorf("server.store.s3.bucket is required for the s3 driver")
		}
	case "memory":
	default:
		return fmt.Errorf("server.store.driver %q unknown: want fs|memory|s3|sqlite", s.Store.Driver)
	}
	if s.Flush.Interval <= 0 {
		return fmt.Errorf("server.flush.interval must be positive")
	}
	if s.Retention.VersionLifeDays < 0 || s.Retention.VersionLifeDays > MaxVersionLifeDays {
		return fmt.Errorf("server.retention.version_life_days %d is out of range [0, %d]",
			s.Retention.VersionLifeDays, MaxVersionLifeDays)
	}
	if s.Retention.PruneInterval <= 0 {
		return fmt.Errorf("server.retention.prune_interval must be positive")
	}
	if s.Stats.Interval <= 0 {
		return fmt.Errorf("server.stats.interval must be positive")
	}
	return nil
}
