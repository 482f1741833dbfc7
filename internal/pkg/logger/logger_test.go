package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/cmlabs-hris/timesheet-backend-go/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}

func TestNew_JSONCarriesServiceAttributes(t *testing.T) {
	var buf bytes.Buffer
	log := newWithWriter(&buf, config.AppConfig{LogLevel: "info", LogFormat: "json", Env: "production", Version: "v1.2.3"})

	log.Debug("hidden")
	log.Info("zone cache warmed", slog.Int("zones", 3))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "timesheet-cmlabs", entry["app"])
	assert.Equal(t, "v1.2.3", entry["version"])
	assert.Equal(t, "production", entry["env"])
	assert.EqualValues(t, 3, entry["zones"])
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	log := newWithWriter(&buf, config.AppConfig{LogLevel: "debug", LogFormat: "text", Env: "development"})
	log.Debug("starting")
	assert.Contains(t, buf.String(), "msg=starting")
	assert.Contains(t, buf.String(), "env=development")
}
