package steps

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyPluginName is returned for a blank plugin identifier.
	ErrEmptyPluginName = errors.New("plugin name is required")

	// ErrInstallNotConfirmed is returned when the installation confirmation
	// never shows up in the log.
	ErrInstallNotConfirmed = errors.New("installation was not confirmed in the log")

	// ErrStillNotInstalled is returned when the plugin manager does not
	// report the plugin installed after a confirmed installation.
	ErrStillNotInstalled = errors.New("plugin is still not installed")

	// ErrContentMissing is returned when the page lacks the expected text.
	ErrContentMissing = errors.New("page does not contain the expected content")
)

// StepError reports which step failed and for what.
type StepError struct {
	Step    string
	Subject string
	Err     error
}

// Error implements error.
func (e *StepError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Step, e.Subject, e.Err)
}

// Unwrap returns the underlying error.
func (e *StepError) Unwrap() error {
	return e.Err
}
