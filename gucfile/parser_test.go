package gucfile

import (
	"fmt"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
}

func TestParse(t *testing.T) {
	t.Run("Should parse simple assignments in order", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		writeFile(t, fs, "/data/pg.conf", "port = 5432\nlog_checkpoints = on\n")

		list, err := Parse("/data/pg.conf", ParseOptions{Fs: fs, DataDir: "/data"})
		require.NoError(t, err)
		require.Equal(t, 2, list.Len())
		assert.Equal(t, "port", list.Items()[0].Name)
		assert.Equal(t, "5432", list.Items()[0].Value)
		assert.Equal(t, "log_checkpoints", list.Items()[1].Name)
	})

	t.Run("Should accept assignments without an equals sign", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		writeFile(t, fs, "/data/pg.conf", "port 5432\n")

		list, err := Parse("/data/pg.conf", ParseOptions{Fs: fs, DataDir: "/data"})
		require.NoError(t, err)
		require.Equal(t, 1, list.Len())
		assert.Equal(t, "5432", list.Items()[0].Value)
	})

	t.Run("Should decode a single-quoted string value", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		writeFile(t, fs, "/data/pg.conf", `search_path = 'a, b'`+"\n")

		list, err := Parse("/data/pg.conf", ParseOptions{Fs: fs, DataDir: "/data"})
		require.NoError(t, err)
		assert.Equal(t, "a, b", list.Items()[0].Value)
	})

	t.Run("Should follow an include directive", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		writeFile(t, fs, "/data/pg.conf", "include 'extra.conf'\nport = 5432\n")
		writeFile(t, fs, "/data/extra.conf", "log_checkpoints = on\n")

		list, err := Parse("/data/pg.conf", ParseOptions{Fs: fs, DataDir: "/data"})
		require.NoError(t, err)
		require.Equal(t, 2, list.Len())
		assert.Equal(t, "log_checkpoints", list.Items()[0].Name)
		assert.Equal(t, "/data/extra.conf", list.Items()[0].Filename)
		assert.Equal(t, "port", list.Items()[1].Name)
	})

	t.Run("Should place custom_variable_classes at the head regardless of position", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		writeFile(t, fs, "/data/pg.conf", "port = 5432\ncustom_variable_classes = 'plugin'\n")

		list, err := Parse("/data/pg.conf", ParseOptions{Fs: fs, DataDir: "/data"})
		require.NoError(t, err)
		require.Equal(t, 2, list.Len())
		assert.Equal(t, ClassWhitelistSetting, list.Items()[0].Name)
		assert.Equal(t, "port", list.Items()[1].Name)
	})

	t.Run("Should keep only the last of multiple custom_variable_classes lines, still at the head", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		writeFile(t, fs, "/data/pg.conf",
			"custom_variable_classes = 'a'\nport = 5432\ncustom_variable_classes = 'b'\n")

		list, err := Parse("/data/pg.conf", ParseOptions{Fs: fs, DataDir: "/data"})
		require.NoError(t, err)
		require.Equal(t, 2, list.Len())
		assert.Equal(t, "b", list.Items()[0].Value)
	})

	t.Run("Should fail once the include chain exceeds the configured depth", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		writeFile(t, fs, "/data/a.conf", "include 'b.conf'\n")
		writeFile(t, fs, "/data/b.conf", "include 'a.conf'\n")

		_, err := Parse("/data/a.conf", ParseOptions{Fs: fs, DataDir: "/data", MaxIncludeDepth: 3})
		require.Error(t, err)
		var depthErr *IncludeDepthError
		require.ErrorAs(t, err, &depthErr)
		assert.Equal(t, 3, depthErr.Limit)
	})

	t.Run("Should accept a chain exactly at the depth limit and reject one past it", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		for i := 1; i < 10; i++ {
			writeFile(t, fs, fmt.Sprintf("/data/c%d.conf", i), fmt.Sprintf("include 'c%d.conf'\n", i+1))
		}
		writeFile(t, fs, "/data/c10.conf", "port = 5432\n")

		list, err := Parse("/data/c1.conf", ParseOptions{Fs: fs, DataDir: "/data"})
		require.NoError(t, err)
		assert.Equal(t, 1, list.Len())

		writeFile(t, fs, "/data/c10.conf", "include 'c11.conf'\n")
		writeFile(t, fs, "/data/c11.conf", "port = 5432\n")

		_, err = Parse("/data/c1.conf", ParseOptions{Fs: fs, DataDir: "/data"})
		var depthErr *IncludeDepthError
		require.ErrorAs(t, err, &depthErr)
	})

	t.Run("Should default the include depth limit to 10", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		writeFile(t, fs, "/data/a.conf", "include 'a.conf'\n")

		_, err := Parse("/data/a.conf", ParseOptions{Fs: fs, DataDir: "/data"})
		require.Error(t, err)
		var depthErr *IncludeDepthError
		require.ErrorAs(t, err, &depthErr)
		assert.Equal(t, DefaultMaxIncludeDepth, depthErr.Limit)
	})

	t.Run("Should report a file-access error for a missing include", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		writeFile(t, fs, "/data/pg.conf", "include 'missing.conf'\n")

		_, err := Parse("/data/pg.conf", ParseOptions{Fs: fs, DataDir: "/data"})
		require.Error(t, err)
		var fileErr *FileAccessError
		require.ErrorAs(t, err, &fileErr)
	})

	t.Run("Should report a syntax error and stop at the first bad line", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		writeFile(t, fs, "/data/pg.conf", "port = 5432\n=\n")

		_, err := Parse("/data/pg.conf", ParseOptions{Fs: fs, DataDir: "/data"})
		require.Error(t, err)
		var syntaxErr *SyntaxError
		require.ErrorAs(t, err, &syntaxErr)
		assert.Equal(t, 2, syntaxErr.Line)
	})

	t.Run("Should preserve a qualified name for a placeholder-class setting", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		writeFile(t, fs, "/data/pg.conf", "plugin.timeout = 30\n")

		list, err := Parse("/data/pg.conf", ParseOptions{Fs: fs, DataDir: "/data"})
		require.NoError(t, err)
		assert.Equal(t, "plugin.timeout", list.Items()[0].Name)
	})
}
