package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"debug", zapcore.DebugLevel, false},
		{"", zapcore.InfoLevel, false},
		{"INFO", zapcore.InfoLevel, false},
		{"warning", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"verbose", zapcore.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter(&Config{Level: "info", Format: "json"}, &buf)
	assert.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("piece saved", zap.String("number", "AC240001"))
	assert.NoError(t, logger.Sync())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, 1, len(lines))

	var entry map[string]any
	assert.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "piece saved", entry["msg"])
	assert.Equal(t, "AC240001", entry["number"])
}

func TestConsoleOutput(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter(&Config{Level: "debug", Format: "console"}, &buf)
	assert.NoError(t, err)

	logger.Debug("lookup dispatched", zap.String("query", "40"))
	assert.Contains(t, buf.String(), "DEBUG")
	assert.Contains(t, buf.String(), "lookup dispatched")
}

func TestInvalidConfig(t *testing.T) {
	_, err := NewWithWriter(&Config{Format: "xml"}, &bytes.Buffer{})
	assert.Error(t, err)

	_, err = New(&Config{Level: "loud"})
	assert.Error(t, err)
}

func TestNewOutputs(t *testing.T) {
	logger, err := New(&Config{Output: "none"})
	assert.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.ErrorLevel))

	path := filepath.Join(t.TempDir(), "compta.log")
	logger, err = New(&Config{Level: "info", Format: "json", Output: path})
	assert.NoError(t, err)
	logger.Info("server started")
	assert.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	assert.NoError(t, err)
	assert.Contains(t, string(data), "server started")

	_, err = New(&Config{Output: filepath.Join(t.TempDir(), "missing", "compta.log")})
	assert.Error(t, err)
}

func TestContext(t *testing.T) {
	assert.NotZero(t, FromContext(context.Background()))

	logger := zap.NewExample()
	assert.True(t, FromContext(WithContext(context.Background(), logger)) == logger)
}
