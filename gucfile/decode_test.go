package gucfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeString(t *testing.T) {
	t.Run("Should strip surrounding quotes from a plain string", func(t *testing.T) {
		assert.Equal(t, "hello", DecodeString("'hello'"))
	})

	t.Run("Should collapse a doubled quote into one", func(t *testing.T) {
		assert.Equal(t, "it's fine", DecodeString("'it''s fine'"))
	})

	t.Run("Should expand backslash escapes", func(t *testing.T) {
		assert.Equal(t, "a\tb\nc", DecodeString(`'a\tb\nc'`))
	})

	t.Run("Should expand a one-digit octal escape", func(t *testing.T) {
		assert.Equal(t, "\x07", DecodeString(`'\7'`))
	})

	t.Run("Should expand a three-digit octal escape", func(t *testing.T) {
		assert.Equal(t, "A", DecodeString(`'\101'`))
	})

	t.Run("Should pass through an unrecognized escape literally", func(t *testing.T) {
		assert.Equal(t, "x", DecodeString(`'\x'`))
	})

	t.Run("Should handle an empty string", func(t *testing.T) {
		assert.Equal(t, "", DecodeString("''"))
	})
}

func TestEncodeString(t *testing.T) {
	t.Run("Should round-trip a plain value", func(t *testing.T) {
		original := "hello world"
		encoded := EncodeString([]byte(original))
		assert.Equal(t, original, DecodeString(encoded))
	})

	t.Run("Should round-trip a value containing a single quote", func(t *testing.T) {
		original := "it's fine"
		encoded := EncodeString([]byte(original))
		assert.Equal(t, original, DecodeString(encoded))
	})

	t.Run("Should round-trip a value containing a backslash", func(t *testing.T) {
		original := `C:\pgdata`
		encoded := EncodeString([]byte(original))
		assert.Equal(t, original, DecodeString(encoded))
	})

	t.Run("Should round-trip a value containing a newline", func(t *testing.T) {
		original := "line one\nline two"
		encoded := EncodeString([]byte(original))
		assert.Equal(t, original, DecodeString(encoded))
	})

	t.Run("Should produce a quoted string", func(t *testing.T) {
		encoded := EncodeString([]byte("abc"))
		assert.Equal(t, "'abc'", encoded)
	})

	t.Run("Should round-trip every non-NUL byte value", func(t *testing.T) {
		original := make([]byte, 0, 255)
		for b := 1; b <= 255; b++ {
			original = append(original, byte(b))
		}
		encoded := EncodeString(original)
		assert.Equal(t, string(original), DecodeString(encoded))
	})
}
