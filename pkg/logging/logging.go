// Package logging configures the structured console logger shared by the
// step runner, the plugin manager client and the log watcher.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pterm/pterm"
)

// Format selects how log records are rendered.
type Format string

const (
	// FormatColorful renders human readable, colored records.
	FormatColorful Format = "colorful"
	// FormatJSON renders one JSON object per record.
	FormatJSON Format = "json"
)

// Options controls logger construction.
type Options struct {
	// Level is one of trace, debug, info, warn, error or disabled.
	Level string
	// Format is colorful (default) or json.
	Format Format
	// Writer receives log output. Defaults to os.Stderr.
	Writer io.Writer
}

// ParseLevel maps a level name to a pterm log level.
func ParseLevel(level string) (pterm.LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return pterm.LogLevelInfo, nil
	case "trace":
		return pterm.LogLevelTrace, nil
	case "debug":
		return pterm.LogLevelDebug, nil
	case "warn", "warning":
		return pterm.LogLevelWarn, nil
	case "error":
		return pterm.LogLevelError, nil
	case "disabled", "off", "none":
		return pterm.LogLevelDisabled, nil
	default:
		return pterm.LogLevelInfo, fmt.Errorf("unknown log level: %s", level)
	}
}

// New creates a logger from options.
func New(opts Options) (*pterm.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	writer := opts.Writer
	if writer == nil {
		writer = os.Stderr
	}

	logger := pterm.DefaultLogger.
		WithLevel(level).
		WithWriter(writer).
		WithTime(true)

	switch opts.Format {
	case "", FormatColorful:
		logger = logger.WithFormatter(pterm.LogFormatterColorful)
	case FormatJSON:
		logger = logger.WithFormatter(pterm.LogFormatterJSON)
	default:
		return nil, fmt.Errorf("unknown log format: %s", opts.Format)
	}

	return logger, nil
}

// Discard returns a logger that drops every record.
func Discard() *pterm.Logger {
	return pterm.DefaultLogger.
		WithLevel(pterm.LogLevelDisabled).
		WithWriter(io.Discard)
}

// OrDiscard returns logger, or a discarding logger when it is nil.
func OrDiscard(logger *pterm.Logger) *pterm.Logger {
	if logger == nil {
		return Discard()
	}
	return logger
}
