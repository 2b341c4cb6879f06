package config

import (
	"context"
	"time"

	"github.com/abit/pgconfd/pkg/config/definition"
)

// Config is the process-level configuration for the pgconfd daemon: where
// its configuration file and data directory live, how it logs, and how it
// discovers reloads. It is deliberately small and does not model the GUC
// domain itself — that lives in guc.Registry, which has its own typed,
// provenance-tracked semantics a generic key/value merger cannot express.
type Config struct {
	DataDirectory   string        `koanf:"data_directory"   validate:"required"        env:"PGCONFD_DATA_DIRECTORY"`
	ConfigFile      string        `koanf:"config_file"      validate:"required,relpath" env:"PGCONFD_CONFIG_FILE"`
	PIDFile         string        `koanf:"pid_file"         validate:"relpath"         env:"PGCONFD_PID_FILE"`
	MaxIncludeDepth int           `koanf:"max_include_depth" validate:"max=64"         env:"PGCONFD_MAX_INCLUDE_DEPTH"`
	Watch           bool          `koanf:"watch"                                       env:"PGCONFD_WATCH"`
	WatchDebounce   time.Duration `koanf:"watch_debounce"                              env:"PGCONFD_WATCH_DEBOUNCE"`
	Log             LogConfig     `koanf:"log"`
}

// LogConfig contains structured-logging configuration (pkg/logger).
type LogConfig struct {
	Level  string `koanf:"level"  validate:"oneof=debug info warn error disabled" env:"PGCONFD_LOG_LEVEL"`
	JSON   bool   `koanf:"json"                                                   env:"PGCONFD_LOG_JSON"`
	Source bool   `koanf:"source"                                                 env:"PGCONFD_LOG_SOURCE"`
}

// Service defines the configuration management service interface.
// It provides methods for loading, watching, and validating configuration.
type Service interface {
	// Load loads configuration from the specified sources with precedence order.
	Load(ctx context.Context, sources ...Source) (*Config, error)
	// Watch monitors configuration changes and invokes callback on updates.
	Watch(ctx context.Context, callback func(*Config)) error
	// Validate checks if the configuration meets all validation requirements.
	Validate(config *Config) error
	// GetSource returns the source type for a specific configuration key.
	// This tracks which source (env, CLI, YAML, default) provided each value,
	// enabling debugging and precedence verification.
	GetSource(key string) SourceType
}

// Source defines the interface for configuration sources.
type Source interface {
	// Load reads configuration from the source.
	Load() (map[string]any, error)
	// Watch monitors the source for changes.
	Watch(ctx context.Context, callback func()) error
	// Type returns the source type identifier.
	Type() SourceType
	// Close releases any resources held by the source.
	Close() error
}

// SourceType identifies the type of configuration source.
type SourceType string

const (
	SourceCLI     SourceType = "cli"
	SourceYAML    SourceType = "yaml"
	SourceEnv     SourceType = "env"
	SourceDefault SourceType = "default"
)

// Metadata contains metadata about configuration sources.
type Metadata struct {
	Sources  map[string]SourceType `json:"sources"`
	LoadedAt time.Time             `json:"loaded_at"`
}

// Load loads configuration using the default service.
// This is a convenience function for simple configuration loading.
func Load() (*Config, error) {
	service := NewService()
	return service.Load(context.Background())
}

// Default returns a Config with default values for a locally-run daemon.
func Default() *Config {
	registry := definition.CreateRegistry()
	return &Config{
		DataDirectory:   getString(registry, "data_directory"),
		ConfigFile:      getString(registry, "config_file"),
		PIDFile:         getString(registry, "pid_file"),
		MaxIncludeDepth: getInt(registry, "max_include_depth"),
		Watch:           getBool(registry, "watch"),
		WatchDebounce:   getDuration(registry, "watch_debounce"),
		Log: LogConfig{
			Level:  getString(registry, "log.level"),
			JSON:   getBool(registry, "log.json"),
			Source: getBool(registry, "log.source"),
		},
	}
}

func getString(registry *definition.Registry, path string) string {
	if val := registry.GetDefault(path); val != nil {
		if s, ok := val.(string); ok {
			return s
		}
	}
	return ""
}

func getInt(registry *definition.Registry, path string) int {
	if val := registry.GetDefault(path); val != nil {
		if i, ok := val.(int); ok {
			return i
		}
	}
	return 0
}

func getBool(registry *definition.Registry, path string) bool {
	if val := registry.GetDefault(path); val != nil {
		if b, ok := val.(bool); ok {
			return b
		}
	}
	return false
}

func getDuration(registry *definition.Registry, path string) time.Duration {
	if val := registry.GetDefault(path); val != nil {
		if d, ok := val.(time.Duration); ok {
			return d
		}
	}
	return 0
}
