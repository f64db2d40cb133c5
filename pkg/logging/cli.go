// Package logging configures slog for the credpulse commands and server.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
)

const (
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
)

// CLIHandler is a slog.Handler that prints one colored line per record.
type CLIHandler struct {
	writer io.Writer
	level  slog.Level
	prefix string
	attrs  []slog.Attr
	color  bool
}

func NewCLIHandler(w io.Writer, level slog.Level) *CLIHandler {
	return &CLIHandler{
		writer: w,
		level:  level,
		color:  true,
	}
}

// WithoutColor returns a copy of the handler that writes plain text.
func (h *CLIHandler) WithoutColor() *CLIHandler {
	c := h.clone()
	c.color = false
	return c
}

func (h *CLIHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *CLIHandler) Handle(_ context.Context, r slog.Record) error {
	msg := r.Message
	if h.prefix != "" {
		msg = "[" + h.prefix + "] " + msg
	}

	attrs := make([]string, 0, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		attrs = append(attrs, formatAttr(a))
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, formatAttr(a))
		return true
	})
	if len(attrs) > 0 {
		msg = msg + ": " + strings.Join(attrs, " ")
	}

	if h.color {
		switch {
		case r.Level >= slog.LevelError:
			msg = colorRed + msg + colorReset
		case r.Level >= slog.LevelWarn:
			msg = colorYellow + msg + colorReset
		default:
			msg = colorGreen + msg + colorReset
		}
	}

	_, err := fmt.Fprintln(h.writer, msg)
	return err
}

func (h *CLIHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	c := h.clone()
	c.attrs = append(c.attrs, attrs...)
	return c
}

// WithGroup nests name under any existing prefix, joined with a dot.
func (h *CLIHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := h.clone()
	if c.prefix == "" {
		c.prefix = name
	} else {
		c.prefix = c.prefix + "." + name
	}
	return c
}

func (h *CLIHandler) clone() *CLIHandler {
	return &CLIHandler{
		writer: h.writer,
		level:  h.level,
		prefix: h.prefix,
		attrs:  slices.Clone(h.attrs),
		color:  h.color,
	}
}

func formatAttr(a slog.Attr) string {
	return fmt.Sprintf("%s=%v", a.Key, a.Value.Resolve())
}

func NewCLILogger(level string) *slog.Logger {
	lev := ParseLogLevel(level)
	handler := NewCLIHandler(os.Stderr, lev)
	return slog.New(handler)
}

func SetDefaultCLILogger(level string) {
	slog.SetDefault(NewCLILogger(level))
}

// ParseLogLevel converts a string log level to slog.Level.
// Defaults to slog.LevelInfo for unrecognized strings.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
