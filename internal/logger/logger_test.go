package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel(" warning "))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestForComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, slog.LevelInfo)

	ForComponent(l, "tracker").Info("loaded", "count", 3)
	ForComponent(l, "tracker").Debug("hidden")

	out := buf.String()
	assert.Contains(t, out, "component=tracker")
	assert.Contains(t, out, "count=3")
	assert.NotContains(t, out, "hidden")
}
