package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Default(t *testing.T) {
	t.Run("Should return valid default configuration", func(t *testing.T) {
		cfg := Default()

		require.NotNil(t, cfg)
		assert.Equal(t, "pgconfig.conf", cfg.ConfigFile)
		assert.Equal(t, "pgconfd.pid", cfg.PIDFile)
		assert.Equal(t, 10, cfg.MaxIncludeDepth)
		assert.False(t, cfg.Watch)
		assert.Equal(t, 250*time.Millisecond, cfg.WatchDebounce)
		assert.Equal(t, "info", cfg.Log.Level)
		assert.False(t, cfg.Log.JSON)
		assert.False(t, cfg.Log.Source)
	})
}

func TestConfig_Validation(t *testing.T) {
	t.Run("Should validate max include depth", func(t *testing.T) {
		tests := []struct {
			name    string
			depth   int
			wantErr bool
		}{
			{"valid depth", 10, false},
			{"minimum depth", 1, false},
			{"zero depth", 0, true},
			{"negative depth", -1, true},
			{"too deep", 65, true},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				cfg := Default()
				cfg.DataDirectory = "/etc/pgconfd"
				cfg.MaxIncludeDepth = tt.depth

				svc := NewService()
				err := svc.Validate(cfg)

				if tt.wantErr {
					assert.Error(t, err)
				} else {
					assert.NoError(t, err)
				}
			})
		}
	})

	t.Run("Should validate log level", func(t *testing.T) {
		tests := []struct {
			name     string
			logLevel string
			wantErr  bool
		}{
			{"debug", "debug", false},
			{"info", "info", false},
			{"warn", "warn", false},
			{"error", "error", false},
			{"disabled", "disabled", false},
			{"invalid", "verbose", true},
			{"empty", "", true},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				cfg := Default()
				cfg.DataDirectory = "/etc/pgconfd"
				cfg.Log.Level = tt.logLevel

				svc := NewService()
				err := svc.Validate(cfg)

				if tt.wantErr {
					assert.Error(t, err)
				} else {
					assert.NoError(t, err)
				}
			})
		}
	})

	t.Run("Should reject empty required fields", func(t *testing.T) {
		cfg := Default()
		cfg.DataDirectory = ""

		svc := NewService()
		err := svc.Validate(cfg)
		assert.Error(t, err)
	})

	t.Run("Should reject path traversal in config_file", func(t *testing.T) {
		cfg := Default()
		cfg.DataDirectory = "/etc/pgconfd"
		cfg.ConfigFile = "../../etc/passwd"

		svc := NewService()
		err := svc.Validate(cfg)
		assert.Error(t, err)
	})

	t.Run("Should reject watch_debounce of zero when watch is enabled", func(t *testing.T) {
		cfg := Default()
		cfg.DataDirectory = "/etc/pgconfd"
		cfg.Watch = true
		cfg.WatchDebounce = 0

		svc := NewService()
		err := svc.Validate(cfg)
		assert.Error(t, err)
	})
}

func TestMetadata_SourceTracking(t *testing.T) {
	t.Run("Should track configuration sources", func(t *testing.T) {
		meta := Metadata{
			Sources: map[string]SourceType{
				"data_directory": SourceCLI,
				"config_file":    SourceEnv,
				"log.level":      SourceYAML,
				"watch":          SourceDefault,
			},
		}

		assert.Equal(t, SourceCLI, meta.Sources["data_directory"])
		assert.Equal(t, SourceEnv, meta.Sources["config_file"])
		assert.Equal(t, SourceYAML, meta.Sources["log.level"])
		assert.Equal(t, SourceDefault, meta.Sources["watch"])
	})
}
