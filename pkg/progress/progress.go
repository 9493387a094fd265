package progress

import (
	"fmt"
	"sync"

	"github.com/pterm/pterm"
)

// Spinner implements a spinner progress indicator.
type Spinner struct {
	spinner *pterm.SpinnerPrinter
	config  *Config
	active  bool
	mu      sync.Mutex
}

// NewSpinner creates a new spinner progress indicator.
func NewSpinner(config *Config) *Spinner {
	if config == nil {
		config = DefaultConfig()
	}

	return &Spinner{
		config: config,
	}
}

// Start starts the spinner with a message.
func (s *Spinner) Start(message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.config.Enabled {
		return nil
	}

	if s.active {
		return fmt.Errorf("spinner already active")
	}

	printer := pterm.DefaultSpinner
	if s.config.Writer != nil {
		printer = *printer.WithWriter(s.config.Writer)
	}

	var err error
	s.spinner, err = printer.Start(message)
	if err != nil {
		return fmt.Errorf("failed to start spinner: %w", err)
	}

	s.active = true
	return nil
}

// Update updates the spinner message.
func (s *Spinner) Update(message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.config.Enabled || !s.active || s.spinner == nil {
		return nil
	}

	s.spinner.UpdateText(message)
	return nil
}

// Increment does nothing; a spinner has no count.
func (s *Spinner) Increment() error { return nil }

// Success marks the spinner as successful.
func (s *Spinner) Success(message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.config.Enabled || !s.active || s.spinner == nil {
		return nil
	}

	s.spinner.Success(message)
	s.active = false
	return nil
}

// Failure marks the spinner as failed.
func (s *Spinner) Failure(message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.config.Enabled || !s.active || s.spinner == nil {
		return nil
	}

	s.spinner.Fail(message)
	s.active = false
	return nil
}

// Stop stops the spinner.
func (s *Spinner) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active || s.spinner == nil {
		return nil
	}

	_ = s.spinner.Stop()
	s.active = false
	return nil
}

// IsActive returns true if the spinner is active.
func (s *Spinner) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// ProgressBar implements a progress bar indicator.
type ProgressBar struct {
	bar    *pterm.ProgressbarPrinter
	config *Config
	active bool
	total  int
	mu     sync.Mutex
}

// NewProgressBar creates a new progress bar.
func NewProgressBar(config *Config, total int) *ProgressBar {
	if config == nil {
		config = DefaultConfig()
	}

	return &ProgressBar{
		config: config,
		total:  total,
	}
}

// Start starts the progress bar.
func (p *ProgressBar) Start(message string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.config.Enabled {
		return nil
	}

	if p.active {
		return fmt.Errorf("progress bar already active")
	}

	bar := pterm.DefaultProgressbar.
		WithTotal(p.total).
		WithTitle(message)

	if p.config.Writer != nil {
		bar = bar.WithWriter(p.config.Writer)
	}

	var err error
	p.bar, err = bar.Start()
	if err != nil {
		return fmt.Errorf("failed to start progress bar: %w", err)
	}

	p.active = true
	return nil
}

// Update updates the progress bar title.
func (p *ProgressBar) Update(message string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.config.Enabled || !p.active || p.bar == nil {
		return nil
	}

	p.bar.UpdateTitle(message)
	return nil
}

// Increment increments the progress bar by 1.
func (p *ProgressBar) Increment() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.config.Enabled || !p.active || p.bar == nil {
		return nil
	}

	p.bar.Increment()
	return nil
}

// Success marks the progress bar as complete.
func (p *ProgressBar) Success(message string) error {
	return p.finish(pterm.Success, message, true)
}

// Failure marks the progress bar as failed.
func (p *ProgressBar) Failure(message string) error {
	return p.finish(pterm.Error, message, false)
}

func (p *ProgressBar) finish(printer pterm.PrefixPrinter, message string, complete bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.config.Enabled || !p.active || p.bar == nil {
		return nil
	}

	if complete {
		p.bar.Current = p.total
	}
	_, _ = p.bar.Stop()

	if message != "" {
		if p.config.Writer != nil {
			printer = *printer.WithWriter(p.config.Writer)
		}
		printer.Println(message)
	}

	p.active = false
	return nil
}

// Stop stops the progress bar.
func (p *ProgressBar) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.active || p.bar == nil {
		return nil
	}

	_, _ = p.bar.Stop()
	p.active = false
	return nil
}

// IsActive returns true if the progress bar is active.
func (p *ProgressBar) IsActive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// NoopProgress is a progress indicator that does nothing.
type NoopProgress struct{}

// NewNoopProgress creates a new no-op progress indicator.
func NewNoopProgress() *NoopProgress {
	return &NoopProgress{}
}

// Start does nothing.
func (n *NoopProgress) Start(message string) error { return nil }

// Update does nothing.
func (n *NoopProgress) Update(message string) error { return nil }

// Increment does nothing.
func (n *NoopProgress) Increment() error { return nil }

// Success does nothing.
func (n *NoopProgress) Success(message string) error { return nil }

// Failure does nothing.
func (n *NoopProgress) Failure(message string) error { return nil }

// Stop does nothing.
func (n *NoopProgress) Stop() error { return nil }

// IsActive always returns false.
func (n *NoopProgress) IsActive() bool { return false }

// New creates a progress indicator for total items based on the config.
func New(config *Config, total int) Progress {
	if config == nil {
		config = DefaultConfig()
	}

	if !config.Enabled {
		return NewNoopProgress()
	}

	switch config.Type {
	case TypeSpinner:
		return NewSpinner(config)
	case TypeBar:
		return NewProgressBar(config, total)
	case TypeNone:
		return NewNoopProgress()
	default:
		if total > 1 {
			return NewProgressBar(config, total)
		}
		return NewSpinner(config)
	}
}
