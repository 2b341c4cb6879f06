package guc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry() Registry {
	r := NewRegistry()
	r.Register(&Setting{
		Name:        "log_checkpoints",
		Kind:        KindBoolean,
		ChangeClass: RuntimeByAny,
		Value:       "off",
		BootDefault: "off",
		ResetValue:  "off",
	})
	r.Register(&Setting{
		Name:        "port",
		Kind:        KindInteger,
		ChangeClass: OnlyAtBoot,
		Value:       "5432",
		BootDefault: "5432",
		ResetValue:  "5432",
	})
	return r
}

func TestRegistry_Find(t *testing.T) {
	t.Run("Should find a registered setting case-insensitively", func(t *testing.T) {
		r := testRegistry()
		s, ok := r.Find("LOG_CHECKPOINTS", false)
		require.True(t, ok)
		assert.Equal(t, "log_checkpoints", s.Name)
	})

	t.Run("Should report false for an unregistered setting", func(t *testing.T) {
		r := testRegistry()
		_, ok := r.Find("nonexistent", false)
		assert.False(t, ok)
	})
}

func TestRegistry_SetConfigOption(t *testing.T) {
	t.Run("Should apply a legal value change", func(t *testing.T) {
		r := testRegistry()
		v := "on"
		err := r.SetConfigOption("log_checkpoints", &v, Reload, SourceFile, true)
		require.NoError(t, err)
		val, err := r.GetConfigOption("log_checkpoints", false)
		require.NoError(t, err)
		assert.Equal(t, "on", val)
	})

	t.Run("Should reject an unknown setting", func(t *testing.T) {
		r := testRegistry()
		v := "on"
		err := r.SetConfigOption("does_not_exist", &v, Reload, SourceFile, true)
		var unknown *UnknownSettingError
		require.ErrorAs(t, err, &unknown)
	})

	t.Run("Should reject an invalid value without applying it", func(t *testing.T) {
		r := testRegistry()
		v := "sideways"
		err := r.SetConfigOption("log_checkpoints", &v, Reload, SourceFile, true)
		require.Error(t, err)
		val, _ := r.GetConfigOption("log_checkpoints", false)
		assert.Equal(t, "off", val, "rejected value must not be applied")
	})

	t.Run("Should silently skip a boot-only change requested during reload", func(t *testing.T) {
		r := testRegistry()
		v := "5433"
		err := r.SetConfigOption("port", &v, Reload, SourceFile, true)
		require.NoError(t, err, "an illegal-for-context change is skipped, not an error")
		val, _ := r.GetConfigOption("port", false)
		assert.Equal(t, "5432", val)
	})

	t.Run("Should apply a boot-only change at boot", func(t *testing.T) {
		r := testRegistry()
		v := "5433"
		err := r.SetConfigOption("port", &v, Boot, SourceFile, true)
		require.NoError(t, err)
		val, _ := r.GetConfigOption("port", false)
		assert.Equal(t, "5433", val)
	})

	t.Run("Should not let a lower-trust source override a higher-trust one", func(t *testing.T) {
		r := testRegistry()
		v := "on"
		require.NoError(t, r.SetConfigOption("log_checkpoints", &v, Reload, SourceArgv, true))
		v2 := "off"
		require.NoError(t, r.SetConfigOption("log_checkpoints", &v2, Reload, SourceFile, true))
		val, _ := r.GetConfigOption("log_checkpoints", false)
		assert.Equal(t, "on", val, "argv-sourced value must survive a file-sourced attempt")
	})

	t.Run("Should validate without applying when apply is false", func(t *testing.T) {
		r := testRegistry()
		v := "on"
		err := r.SetConfigOption("log_checkpoints", &v, Reload, SourceFile, false)
		require.NoError(t, err)
		val, _ := r.GetConfigOption("log_checkpoints", false)
		assert.Equal(t, "off", val, "a dry-run validate call must never mutate the registry")
	})

	t.Run("Should reset to boot default when value is nil and apply is true", func(t *testing.T) {
		r := testRegistry()
		v := "on"
		require.NoError(t, r.SetConfigOption("log_checkpoints", &v, Reload, SourceFile, true))
		require.NoError(t, r.SetConfigOption("log_checkpoints", nil, Reload, SourceDefault, true))
		val, _ := r.GetConfigOption("log_checkpoints", false)
		assert.Equal(t, "off", val)
	})
}

func TestRegistry_ClearInFileFlags(t *testing.T) {
	t.Run("Should clear every InFile flag", func(t *testing.T) {
		r := testRegistry()
		v := "on"
		require.NoError(t, r.SetConfigOption("log_checkpoints", &v, Reload, SourceFile, false))
		s, _ := r.Find("log_checkpoints", false)
		require.True(t, s.InFile)
		r.ClearInFileFlags()
		assert.False(t, s.InFile)
	})
}

func TestRegistry_EnsurePlaceholder(t *testing.T) {
	t.Run("Should create a placeholder setting on first call", func(t *testing.T) {
		r := testRegistry()
		s := r.EnsurePlaceholder("plugin.timeout")
		assert.True(t, s.Placeholder)
		assert.Equal(t, "plugin.timeout", s.Name)
	})

	t.Run("Should return the same placeholder on repeat calls", func(t *testing.T) {
		r := testRegistry()
		first := r.EnsurePlaceholder("plugin.timeout")
		second := r.EnsurePlaceholder("plugin.timeout")
		assert.Same(t, first, second)
	})
}

func TestRegistry_CallStringCheckHook(t *testing.T) {
	t.Run("Should sort and dedup the whitelist via its check hook", func(t *testing.T) {
		r := NewRegistry()
		entry := &Setting{
			Name:      ClassWhitelistSetting,
			Kind:      KindString,
			CheckHook: classWhitelistCheckHook,
		}
		r.Register(entry)
		v := "b,a,a"
		err := r.CallStringCheckHook(entry, &v, SourceFile)
		require.NoError(t, err)
		assert.Equal(t, "a,b", v)
	})
}

func TestSplitContains(t *testing.T) {
	t.Run("Should find a prefix case-insensitively", func(t *testing.T) {
		assert.True(t, SplitContains("plugin,other", "PLUGIN"))
	})

	t.Run("Should not find an absent prefix", func(t *testing.T) {
		assert.False(t, SplitContains("plugin,other", "missing"))
	})
}
