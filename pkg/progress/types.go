// Package progress shows progress for long-running harness operations such
// as waiting for plugin installs.
package progress

import (
	"io"
)

// Type defines the type of progress indicator.
type Type string

const (
	// TypeSpinner shows a spinner for single operations.
	TypeSpinner Type = "spinner"
	// TypeBar shows a progress bar for known item counts.
	TypeBar Type = "bar"
	// TypeNone disables progress indicators.
	TypeNone Type = "none"
)

// Progress is the interface for all progress indicators.
type Progress interface {
	// Start starts the progress indicator with a message.
	Start(message string) error

	// Update replaces the message.
	Update(message string) error

	// Increment marks one more item done.
	Increment() error

	// Success marks the progress as successful.
	Success(message string) error

	// Failure marks the progress as failed.
	Failure(message string) error

	// Stop stops the progress indicator.
	Stop() error

	// IsActive returns true if the progress indicator is active.
	IsActive() bool
}

// Config contains configuration for progress indicators.
type Config struct {
	// Type is the type of progress indicator to use. The zero value picks
	// a bar for several items and a spinner otherwise.
	Type Type

	// Enabled determines if progress indicators are shown.
	Enabled bool

	// Writer is where to write progress output. Defaults to stdout.
	Writer io.Writer
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled: true,
	}
}
