package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/CliForge/jenkins-acceptance/pkg/logging"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Validator handles configuration validation.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// Validate validates a complete configuration.
func (v *Validator) Validate(config *Config) error {
	v.errors = make(ValidationErrors, 0)

	v.validateJenkins(&config.Jenkins)
	v.validateInstall(&config.Install)
	v.validateLog(&config.Log)

	if len(v.errors) > 0 {
		return v.errors
	}

	return nil
}

// Validate validates config with a fresh Validator.
func Validate(config *Config) error {
	return NewValidator().Validate(config)
}

func (v *Validator) validateJenkins(jenkins *JenkinsConfig) {
	v.validateHTTPURL("jenkins.url", jenkins.URL, true)

	if jenkins.Token != "" && jenkins.User == "" {
		v.addError("jenkins.user", "is required when a token is set")
	}
}

func (v *Validator) validateInstall(install *InstallConfig) {
	if install.Timeout == "" {
		v.addError("install.timeout", "is required")
	} else if d, err := install.TimeoutDuration(); err != nil {
		v.addError("install.timeout", fmt.Sprintf("invalid duration format: %s", install.Timeout))
	} else if d <= 0 {
		v.addError("install.timeout", "must be positive")
	}

	if strings.TrimSpace(install.InstalledCondition) == "" {
		v.addError("install.installed_condition", "is required")
	}
}

func (v *Validator) validateLog(log *LogConfig) {
	switch log.Source {
	case SourceFile:
		if log.Path == "" {
			v.addError("log.path", "is required for the file source")
		}
	case SourceSSE:
		v.validateHTTPURL("log.url", log.URL, true)
	case SourceWebSocket:
		v.validateWebSocketURL("log.url", log.URL)
	case SourceStdin:
	default:
		v.addError("log.source", fmt.Sprintf("invalid source: %s (must be one of: file, sse, websocket, stdin)", log.Source))
	}

	if _, err := logging.ParseLevel(log.Level); err != nil {
		v.addError("log.level", err.Error())
	}

	switch logging.Format(log.Format) {
	case "", logging.FormatColorful, logging.FormatJSON:
	default:
		v.addError("log.format", fmt.Sprintf("invalid format: %s (must be colorful or json)", log.Format))
	}
}

func (v *Validator) validateHTTPURL(field, value string, required bool) {
	if value == "" {
		if required {
			v.addError(field, "is required")
		}
		return
	}

	u, err := url.Parse(value)
	if err != nil || u.Host == "" {
		v.addError(field, "must be a valid URL")
		return
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		v.addError(field, "must use http or https scheme")
	}
}

func (v *Validator) validateWebSocketURL(field, value string) {
	if value == "" {
		v.addError(field, "is required")
		return
	}

	u, err := url.Parse(value)
	if err != nil || u.Host == "" {
		v.addError(field, "must be a valid URL")
		return
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		v.addError(field, "must use ws or wss scheme")
	}
}

func (v *Validator) addError(field, message string) {
	v.errors = append(v.errors, ValidationError{
		Field:   field,
		Message: message,
	})
}
