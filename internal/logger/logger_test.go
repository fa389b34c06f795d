package logger

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPretty(buf *bytes.Buffer, level slog.Level) *Logger {
	return New(Config{Writer: buf, Format: "pretty", Level: level, NoColor: true})
}

func TestNew_DefaultWriter(t *testing.T) {
	logger := New(Config{Level: slog.LevelInfo, Format: "json"})
	assert.NotNil(t, logger)
	assert.NotNil(t, logger.Logger)
}

func TestNew_FormatAutoDetection(t *testing.T) {
	tests := []struct {
		environment string
		wantJSON    bool
	}{
		{"production", true},
		{"development", false},
		{"staging", false},
	}

	for _, tt := range tests {
		t.Run(tt.environment, func(t *testing.T) {
			var buf bytes.Buffer
			New(Config{Level: slog.LevelInfo, Environment: tt.environment, Writer: &buf}).Info("test")

			if tt.wantJSON {
				assert.Contains(t, buf.String(), `"msg":"test"`)
			} else {
				assert.Contains(t, buf.String(), colorBold+"test"+colorReset)
			}
		})
	}
}

func TestNew_ExplicitFormat(t *testing.T) {
	var buf bytes.Buffer
	New(Config{Level: slog.LevelInfo, Format: "json", Environment: "development", Writer: &buf}).Info("test")

	// JSON despite development environment.
	assert.Contains(t, buf.String(), `"msg":"test"`)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DeBuG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.input))
		})
	}
}

func TestPrettyHandler_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := newPretty(&buf, slog.LevelWarn)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	out := buf.String()
	assert.NotContains(t, out, "debug message")
	assert.NotContains(t, out, "info message")
	assert.Contains(t, out, "WRN warn message")
	assert.Contains(t, out, "ERR error message")
}

func TestPrettyHandler_LineLayout(t *testing.T) {
	var buf bytes.Buffer
	logger := newPretty(&buf, slog.LevelDebug)

	logger.Info("sync complete", "owner", "alice", "pulled", 3, "took", 1500*time.Millisecond)

	line := strings.TrimSuffix(buf.String(), "\n")
	parts := strings.SplitN(line, " ", 3)
	require.Len(t, parts, 3)
	_, err := time.Parse("15:04:05", parts[0])
	assert.NoError(t, err)
	assert.Equal(t, "INF", parts[1])
	assert.Equal(t, "sync complete owner=alice pulled=3 took=1.5s", parts[2])
	assert.NotContains(t, line, "\033[", "NoColor drops escapes")
}

func TestPrettyHandler_QuotesAwkwardStrings(t *testing.T) {
	var buf bytes.Buffer
	newPretty(&buf, slog.LevelInfo).Info("msg", "title", "The Godfather", "empty", "", "plain", "ok")

	assert.Contains(t, buf.String(), `title="The Godfather" empty="" plain=ok`)
}

func TestPrettyHandler_WithAttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	logger := newPretty(&buf, slog.LevelInfo)

	logger.With("component", "sync").
		WithGroup("push").
		With("batch", 2).
		Info("done", "accepted", 5, slog.Group("rejected", "count", 1))

	assert.Contains(t, buf.String(), "component=sync push.batch=2 push.accepted=5 push.rejected.count=1")
}

func TestPrettyHandler_WithSource(t *testing.T) {
	var buf bytes.Buffer
	New(Config{Writer: &buf, Format: "pretty", Level: slog.LevelInfo, AddSource: true, NoColor: true}).Info("here")

	assert.Contains(t, buf.String(), "logger_test.go:")
}

func TestPrettyHandler_Colors(t *testing.T) {
	var buf bytes.Buffer
	New(Config{Writer: &buf, Format: "pretty", Level: slog.LevelInfo}).Error("boom", "k", "v")

	out := buf.String()
	assert.Contains(t, out, colorRed+"ERR"+colorReset)
	assert.Contains(t, out, colorCyan+"k=v"+colorReset)
}

func TestFormatLevel(t *testing.T) {
	tests := []struct {
		level     slog.Level
		wantStr   string
		wantColor string
	}{
		{slog.LevelDebug, "DBG", colorMagenta},
		{slog.LevelInfo, "INF", colorGreen},
		{slog.LevelWarn, "WRN", colorYellow},
		{slog.LevelError, "ERR", colorRed},
		{slog.LevelError + 4, "ERROR+4", colorGray},
	}

	for _, tt := range tests {
		str, color := formatLevel(tt.level)
		assert.Equal(t, tt.wantStr, str)
		assert.Equal(t, tt.wantColor, color)
	}
}

func TestLogger_Helpers(t *testing.T) {
	var buf bytes.Buffer
	logger := newPretty(&buf, slog.LevelInfo)

	logger.WithError(errors.New("disk full")).
		WithField("owner", "alice").
		WithFields(map[string]any{"count": 2}).
		Info("push failed")

	out := buf.String()
	assert.Contains(t, out, `error="disk full"`)
	assert.Contains(t, out, "owner=alice")
	assert.Contains(t, out, "count=2")

	assert.Same(t, logger, logger.WithError(nil))
}

func TestNewFileWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "listo", "listo.log")

	w, err := NewFileWriter(FileConfig{Path: path})
	require.NoError(t, err)

	New(Config{Writer: w, Format: "json", Level: slog.LevelInfo}).Info("to file", "n", 1)
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"to file"`)

	_, err = NewFileWriter(FileConfig{})
	assert.Error(t, err)
}
