package logging

import (
	"io"
	"log/slog"
	"strings"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

// NewServerLogger returns a logger for long running processes. JSON output
// carries the service name on every record, text output uses the CLI handler.
func NewServerLogger(w io.Writer, level, format, service string) *slog.Logger {
	lev := ParseLogLevel(level)
	if strings.EqualFold(strings.TrimSpace(format), FormatJSON) {
		h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lev})
		return slog.New(h).With("service", service)
	}
	return slog.New(NewCLIHandler(w, lev).WithoutColor())
}
