package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("loud"))
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "info", FormatJSON)

	log.Debug("hidden")
	log.Info("quiz: attempt finalized", "user_id", 7)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "quiz: attempt finalized", entry["msg"])
	assert.EqualValues(t, 7, entry["user_id"])
}

func TestPrettyHandler(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	log := New(&buf, "debug", FormatPretty).With("component", "bot").WithGroup("update")

	log.Debug("dispatched", "id", 42)

	out := buf.String()
	assert.Contains(t, out, "DEBUG:")
	assert.Contains(t, out, "dispatched")
	assert.Contains(t, out, "component=bot")
	assert.Contains(t, out, "update.id=42")
}

func TestPrettyHandlerEmptyGroupIsNoop(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	h := NewPrettyHandler(&buf, slog.LevelInfo)

	assert.Same(t, h, h.WithGroup(""))

	nested := h.WithGroup("update").WithGroup("")
	slog.New(nested).Info("dispatched", "id", 7)
	assert.Contains(t, buf.String(), "update.id=7")
	assert.NotContains(t, buf.String(), "update..id")
}

func TestPrettyHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "warn", "")

	log.Info("skipped")
	assert.Empty(t, buf.String())
}
