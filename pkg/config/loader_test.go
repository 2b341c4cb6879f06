package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_Load(t *testing.T) {
	t.Run("Should load default configuration when no sources provided", func(t *testing.T) {
		ctx := context.Background()
		loader := NewService()

		cfg, err := loader.Load(ctx)

		// Default() leaves data_directory empty, so the bare defaults fail
		// struct-tag validation until a source supplies one.
		require.Error(t, err)
		assert.Nil(t, cfg)
	})

	t.Run("Should apply sources in precedence order", func(t *testing.T) {
		ctx := context.Background()
		loader := NewService()

		source1 := &mockSource{
			data: map[string]any{
				"data_directory": "/etc/pgconfd",
				"config_file":    "source1.conf",
			},
			sourceType: SourceYAML,
		}

		source2 := &mockSource{
			data: map[string]any{
				"config_file": "source2.conf",
				// data_directory not overridden, should keep source1 value
			},
			sourceType: SourceCLI,
		}

		cfg, err := loader.Load(ctx, source1, source2)

		require.NoError(t, err)
		require.NotNil(t, cfg)
		assert.Equal(t, "source2.conf", cfg.ConfigFile)
		assert.Equal(t, "/etc/pgconfd", cfg.DataDirectory)
	})

	t.Run("Should validate configuration after loading", func(t *testing.T) {
		ctx := context.Background()
		loader := NewService()

		source := &mockSource{
			data: map[string]any{
				"data_directory":    "/etc/pgconfd",
				"max_include_depth": 0, // invalid
			},
			sourceType: SourceYAML,
		}

		cfg, err := loader.Load(ctx, source)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "validation failed")
		assert.Nil(t, cfg)
	})

	t.Run("Should handle nil sources gracefully", func(t *testing.T) {
		ctx := context.Background()
		loader := NewService()

		validSource := &mockSource{
			data: map[string]any{
				"data_directory": "/etc/pgconfd",
			},
			sourceType: SourceCLI,
		}

		cfg, err := loader.Load(ctx, nil, validSource, nil)

		require.NoError(t, err)
		require.NotNil(t, cfg)
		assert.Equal(t, "/etc/pgconfd", cfg.DataDirectory)
	})

	t.Run("Should handle source loading errors", func(t *testing.T) {
		ctx := context.Background()
		loader := NewService()

		source := &mockSource{
			loadErr:    assert.AnError,
			sourceType: SourceCLI,
		}

		cfg, err := loader.Load(ctx, source)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load from source")
		assert.Nil(t, cfg)
	})
}

func TestLoader_Validate(t *testing.T) {
	t.Run("Should accept valid configuration", func(t *testing.T) {
		loader := NewService()
		cfg := Default()
		cfg.DataDirectory = "/etc/pgconfd"

		err := loader.Validate(cfg)

		assert.NoError(t, err)
	})

	t.Run("Should reject nil configuration", func(t *testing.T) {
		loader := NewService()

		err := loader.Validate(nil)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration cannot be nil")
	})

	t.Run("Should reject invalid struct tag validation", func(t *testing.T) {
		loader := NewService()
		cfg := Default()
		cfg.DataDirectory = "/etc/pgconfd"
		cfg.Log.Level = "verbose" // invalid

		err := loader.Validate(cfg)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "validation failed")
	})

	t.Run("Should reject invalid custom validation", func(t *testing.T) {
		loader := NewService()
		cfg := Default()
		cfg.DataDirectory = "/etc/pgconfd"
		cfg.MaxIncludeDepth = 0

		err := loader.Validate(cfg)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_include_depth must be at least 1")
	})
}

func TestLoader_GetSource(t *testing.T) {
	t.Run("Should attribute each key to the layer that set it", func(t *testing.T) {
		ctx := context.Background()
		loader := NewService()

		source := &mockSource{
			data: map[string]any{
				"data_directory": "/etc/pgconfd",
			},
			sourceType: SourceCLI,
		}

		_, err := loader.Load(ctx, source)
		require.NoError(t, err)

		assert.Equal(t, SourceCLI, loader.GetSource("data_directory"))
		assert.Equal(t, SourceDefault, loader.GetSource("config_file"))
		assert.Equal(t, SourceDefault, loader.GetSource("nonexistent"))
	})
}

func TestLoader_Watch(t *testing.T) {
	t.Run("Should accept watch callbacks", func(t *testing.T) {
		ctx := context.Background()
		loader := NewService()
		called := false
		callback := func(*Config) {
			called = true
		}

		err := loader.Watch(ctx, callback)

		assert.NoError(t, err)
		assert.False(t, called)
	})

	t.Run("Should reject nil callback", func(t *testing.T) {
		ctx := context.Background()
		loader := NewService()

		err := loader.Watch(ctx, nil)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "callback cannot be nil")
	})
}

// mockSource is a test implementation of the Source interface.
type mockSource struct {
	data       map[string]any
	sourceType SourceType
	loadErr    error
}

func (m *mockSource) Load() (map[string]any, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.data, nil
}

func (m *mockSource) Watch(_ context.Context, _ func()) error {
	return nil
}

func (m *mockSource) Type() SourceType {
	return m.sourceType
}

func (m *mockSource) Close() error {
	return nil
}

func TestLoader_Environment(t *testing.T) {
	t.Run("Should apply a mapped PGCONFD_ environment variable over other layers", func(t *testing.T) {
		t.Setenv("PGCONFD_CONFIG_FILE", "env.conf")
		loader := NewService()

		source := &mockSource{
			data: map[string]any{
				"data_directory": "/etc/pgconfd",
				"config_file":    "cli.conf",
			},
			sourceType: SourceCLI,
		}

		cfg, err := loader.Load(context.Background(), source)
		require.NoError(t, err)
		assert.Equal(t, "env.conf", cfg.ConfigFile)
		assert.Equal(t, SourceEnv, loader.GetSource("config_file"))
	})

	t.Run("Should decode a duration-valued environment variable", func(t *testing.T) {
		t.Setenv("PGCONFD_WATCH_DEBOUNCE", "750ms")
		t.Setenv("PGCONFD_DATA_DIRECTORY", "/etc/pgconfd")
		loader := NewService()

		cfg, err := loader.Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 750*time.Millisecond, cfg.WatchDebounce)
	})

	t.Run("Should ignore an unmapped PGCONFD_ variable", func(t *testing.T) {
		t.Setenv("PGCONFD_NO_SUCH_SETTING", "whatever")
		t.Setenv("PGCONFD_DATA_DIRECTORY", "/etc/pgconfd")
		loader := NewService()

		cfg, err := loader.Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "/etc/pgconfd", cfg.DataDirectory)
	})
}
