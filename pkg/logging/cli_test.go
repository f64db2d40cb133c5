package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCLILogger(t *testing.T) {
	tests := []struct {
		name  string
		level string
		want  slog.Level
	}{
		{"debug level", "debug", slog.LevelDebug},
		{"info level", "info", slog.LevelInfo},
		{"warn level", "warn", slog.LevelWarn},
		{"error level", "error", slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := NewCLILogger(tt.level)
			require.NotNil(t, logger)
			h, ok := logger.Handler().(*CLIHandler)
			require.True(t, ok)
			assert.Equal(t, tt.want, h.level)
		})
	}
}

func TestCLIHandler_InfoMessage(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewCLIHandler(&buf, slog.LevelInfo))

	logger.Info("dataset written", "path", "students.csv", "rows", 10000)

	output := buf.String()
	assert.Contains(t, output, colorGreen)
	assert.Contains(t, output, "dataset written: path=students.csv rows=10000")
	assert.NotContains(t, output, colorRed)
}

func TestCLIHandler_ErrorMessage(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewCLIHandler(&buf, slog.LevelInfo))

	logger.Error("prediction failed", "error", "inconsistent feature vector")

	output := buf.String()
	assert.Contains(t, output, "prediction failed: error=inconsistent feature vector")
	assert.Contains(t, output, colorRed)
	assert.Contains(t, output, colorReset)
}

func TestCLIHandler_LevelFiltering(t *testing.T) {
	tests := []struct {
		name         string
		handlerLevel slog.Level
		logFunc      func(*slog.Logger)
		shouldLog    bool
	}{
		{"info handler logs run stored", slog.LevelInfo, func(l *slog.Logger) { l.Info("run stored") }, true},
		{"info handler filters schema debug", slog.LevelInfo, func(l *slog.Logger) { l.Debug("ensuring db schema") }, false},
		{"debug handler logs schema debug", slog.LevelDebug, func(l *slog.Logger) { l.Debug("ensuring db schema") }, true},
		{"error handler logs shutdown error", slog.LevelError, func(l *slog.Logger) { l.Error("error shutting down server") }, true},
		{"error handler filters server started", slog.LevelError, func(l *slog.Logger) { l.Info("server started") }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(NewCLIHandler(&buf, tt.handlerLevel))

			tt.logFunc(logger)

			assert.Equal(t, tt.shouldLog, buf.Len() > 0)
		})
	}
}

func TestCLIHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	handler := NewCLIHandler(&buf, slog.LevelInfo)

	assert.Equal(t, handler, handler.WithAttrs(nil))

	logger := slog.New(handler).With("run", "abc")
	logger.Info("run stored", "rows", 10)

	assert.Contains(t, buf.String(), "run stored: run=abc rows=10")

	buf.Reset()
	slog.New(handler).Info("bundle written")
	assert.NotContains(t, buf.String(), "run=abc")
}

func TestCLIHandler_WarnColor(t *testing.T) {
	var buf bytes.Buffer
	slog.New(NewCLIHandler(&buf, slog.LevelInfo)).Warn("no model attached")
	assert.Contains(t, buf.String(), colorYellow)
}

func TestCLIHandler_WithoutColor(t *testing.T) {
	var buf bytes.Buffer
	handler := NewCLIHandler(&buf, slog.LevelInfo).WithoutColor()
	slog.New(handler).Error("refusing to start")

	assert.Equal(t, "refusing to start\n", buf.String())
}

func TestCLIHandler_WithGroup(t *testing.T) {
	var buf bytes.Buffer
	handler := NewCLIHandler(&buf, slog.LevelInfo)

	grouped := handler.WithGroup("generate")
	require.NotEqual(t, handler, grouped)

	slog.New(grouped).Info("dataset written", "rows", 200)

	assert.Contains(t, buf.String(), "[generate] dataset written: rows=200")
}

func TestCLIHandler_WithGroup_Nested(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewCLIHandler(&buf, slog.LevelInfo)).
		WithGroup("generate").
		WithGroup("store")

	logger.Info("run stored", "run", "abc")

	assert.Contains(t, buf.String(), "[generate.store] run stored: run=abc")
}

func TestCLIHandler_WithGroup_Empty(t *testing.T) {
	var buf bytes.Buffer
	handler := NewCLIHandler(&buf, slog.LevelInfo)

	assert.Same(t, handler, handler.WithGroup(""))

	grouped := handler.WithGroup("server")
	assert.Same(t, grouped, grouped.WithGroup(""))

	slog.New(grouped.WithGroup("")).Info("server started")
	assert.Contains(t, buf.String(), "[server] server started")
}

func TestSetDefaultCLILogger(t *testing.T) {
	originalLogger := slog.Default()
	defer slog.SetDefault(originalLogger)

	SetDefaultCLILogger("debug")

	assert.True(t, slog.Default().Enabled(t.Context(), slog.LevelDebug))
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"  debug  ", slog.LevelDebug},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLogLevel(tt.input))
		})
	}
}
