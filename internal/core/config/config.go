package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "XKORIN_"

// Config represents the top-level application config.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Database   DatabaseConfig   `koanf:"database"`
	Events     EventsConfig     `koanf:"events"`
	DLQ        DLQConfig        `koanf:"dlq"`
	EventStore EventStoreConfig `koanf:"event_store"`
	Contracts  ContractsConfig  `koanf:"contracts"`
	Admin      AdminConfig      `koanf:"admin"`
}

type ServerConfig struct {
	Port int    `koanf:"port"`
	Host string `koanf:"host"`
	Mode string `koanf:"mode"` // debug | release
}

type DatabaseConfig struct {
	Type         string `koanf:"type"` // postgres | memory
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
	AutoMigrate  bool   `koanf:"auto_migrate"`
}

type EventsConfig struct {
	MaxRetries           int           `koanf:"max_retries"`
	RetryBaseDelay       time.Duration `koanf:"retry_base_delay"`
	RetryMaxDelay        time.Duration `koanf:"retry_max_delay"`
	ProcessingInterval   time.Duration `koanf:"processing_interval"`
	HandlerTimeout       time.Duration `koanf:"handler_timeout"`
	MaxPerTick           int           `koanf:"max_per_tick"`
	MaxChainDepth        int           `koanf:"max_chain_depth"`
	PublishingMode       string        `koanf:"publishing_mode"` // async | sync
	EventSourcingEnabled bool          `koanf:"event_sourcing_enabled"`
	VerboseLogging       bool          `koanf:"verbose_logging"`
}

type DLQConfig struct {
	Enabled        bool          `koanf:"enabled"`
	RetryInterval  time.Duration `koanf:"retry_interval"`
	AutoRetry      bool          `koanf:"auto_retry"`
	MaxAutoRetries int           `koanf:"max_auto_retries"`
}

type EventStoreConfig struct {
	TTLDays        int           `koanf:"ttl_days"`
	SweepInterval  time.Duration `koanf:"sweep_interval"`
	SweepBatchSize int           `koanf:"sweep_batch_size"`
}

type ContractsConfig struct {
	Enabled bool `koanf:"enabled"`
	// Path is a directory of <TYPE>/v<N>.yaml|.proto files. Empty uses the embedded set.
	Path string `koanf:"path"`
}

type AdminConfig struct {
	JWTSecret string `koanf:"jwt_secret"`
	Role      string `koanf:"role"`
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d (must be 1-65535)", c.Server.Port)
	}
	if strings.TrimSpace(c.Server.Host) == "" {
		return fmt.Errorf("server.host is required")
	}
	if c.Server.Mode != "debug" && c.Server.Mode != "release" {
		return fmt.Errorf("invalid server.mode %q (must be debug or release)", c.Server.Mode)
	}

	switch c.Database.Type {
	case "postgres":
		if strings.TrimSpace(c.Database.DSN) == "" {
			return fmt.Errorf("database.dsn is required")
		}
		if c.Database.MaxOpenConns <= 0 {
			return fmt.Errorf("database.max_open_conns must be > 0")
		}
		if c.Database.MaxIdleConns <= 0 {
			return fmt.Errorf("database.max_idle_conns must be > 0")
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported database.type %q", c.Database.Type)
	}

	if c.Events.MaxRetries < 1 {
		return fmt.Errorf("events.max_retries must be >= 1")
	}
	if c.Events.RetryBaseDelay <= 0 {
		return fmt.Errorf("events.retry_base_delay must be > 0")
	}
	if c.Events.RetryMaxDelay < c.Events.RetryBaseDelay {
		return fmt.Errorf("events.retry_max_delay must be >= events.retry_base_delay")
	}
	if c.Events.ProcessingInterval < 10*time.Millisecond {
		return fmt.Errorf("events.processing_interval must be >= 10ms, got %s", c.Events.ProcessingInterval)
	}
	if c.Events.HandlerTimeout <= 0 {
		return fmt.Errorf("events.handler_timeout must be > 0")
	}
	if c.Events.MaxPerTick <= 0 {
		return fmt.Errorf("events.max_per_tick must be > 0")
	}
	if c.Events.MaxChainDepth < 1 {
		return fmt.Errorf("events.max_chain_depth must be >= 1")
	}
	if c.Events.PublishingMode != "async" && c.Events.PublishingMode != "sync" {
		return fmt.Errorf("invalid events.publishing_mode %q (must be async or sync)", c.Events.PublishingMode)
	}

	if c.DLQ.RetryInterval < time.Second {
		return fmt.Errorf("dlq.retry_interval must be >= 1s, got %s", c.DLQ.RetryInterval)
	}
	if c.DLQ.MaxAutoRetries < 1 {
		return fmt.Errorf("dlq.max_auto_retries must be >= 1")
	}

	if c.EventStore.TTLDays < 1 {
		return fmt.Errorf("event_store.ttl_days must be >= 1")
	}
	if c.EventStore.SweepInterval <= 0 {
		return fmt.Errorf("event_store.sweep_interval must be > 0")
	}
	if c.EventStore.SweepBatchSize <= 0 {
		return fmt.Errorf("event_store.sweep_batch_size must be > 0")
	}

	if c.Contracts.Path != "" {
		if _, err := os.Stat(c.Contracts.Path); err != nil {
			return fmt.Errorf("contracts.path %q is not accessible: %w", c.Contracts.Path, err)
		}
	}

	if strings.TrimSpace(c.Admin.JWTSecret) == "" {
		return fmt.Errorf("admin.jwt_secret is required")
	}
	if strings.TrimSpace(c.Admin.Role) == "" {
		return fmt.Errorf("admin.role is required")
	}

	return nil
}

// Load parses config from defaults, an optional YAML file and XKORIN_ env vars,
// then validates it. Nested keys use "__" in env names: XKORIN_EVENTS__MAX_RETRIES.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.port":                   8080,
		"server.host":                   "0.0.0.0",
		"server.mode":                   "release",
		"database.type":                 "postgres",
		"database.dsn":                  "",
		"database.max_open_conns":       25,
		"database.max_idle_conns":       25,
		"database.auto_migrate":         true,
		"events.max_retries":            3,
		"events.retry_base_delay":       "1s",
		"events.retry_max_delay":        "5m",
		"events.processing_interval":    "100ms",
		"events.handler_timeout":        "30s",
		"events.max_per_tick":           1000,
		"events.max_chain_depth":        8,
		"events.publishing_mode":        "async",
		"events.event_sourcing_enabled": true,
		"events.verbose_logging":        false,
		"dlq.enabled":                   true,
		"dlq.retry_interval":            "5m",
		"dlq.auto_retry":                true,
		"dlq.max_auto_retries":          3,
		"event_store.ttl_days":          90,
		"event_store.sweep_interval":    "1h",
		"event_store.sweep_batch_size":  5000,
		"contracts.enabled":             true,
		"contracts.path":                "",
		"admin.jwt_secret":              "",
		"admin.role":                    "SCHOOL_ADMIN",
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Addr is host:port for the HTTP listener.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
