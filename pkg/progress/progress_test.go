package progress

import (
	"bytes"
	"testing"

	"github.com/pterm/pterm"
)

func TestMain(m *testing.M) {
	pterm.DisableStyling()
	m.Run()
}

func TestNew(t *testing.T) {
	tests := []struct {
		name   string
		config *Config
		total  int
		want   string
	}{
		{"nil config single item", nil, 1, "*progress.Spinner"},
		{"nil config several items", nil, 3, "*progress.ProgressBar"},
		{"disabled", &Config{Enabled: false}, 3, "*progress.NoopProgress"},
		{"explicit spinner", &Config{Enabled: true, Type: TypeSpinner}, 3, "*progress.Spinner"},
		{"explicit bar", &Config{Enabled: true, Type: TypeBar}, 1, "*progress.ProgressBar"},
		{"none", &Config{Enabled: true, Type: TypeNone}, 1, "*progress.NoopProgress"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := typeName(New(tt.config, tt.total))
			if got != tt.want {
				t.Errorf("New() = %s, want %s", got, tt.want)
			}
		})
	}
}

func typeName(p Progress) string {
	switch p.(type) {
	case *Spinner:
		return "*progress.Spinner"
	case *ProgressBar:
		return "*progress.ProgressBar"
	case *NoopProgress:
		return "*progress.NoopProgress"
	default:
		return "unknown"
	}
}

func TestSpinner_Lifecycle(t *testing.T) {
	var buf bytes.Buffer
	spinner := NewSpinner(&Config{Enabled: true, Writer: &buf})

	if err := spinner.Start("Installing git"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !spinner.IsActive() {
		t.Error("Spinner should be active after Start()")
	}
	if err := spinner.Start("again"); err == nil {
		t.Error("Expected error when starting already active spinner")
	}

	if err := spinner.Update("Waiting for git"); err != nil {
		t.Errorf("Update() error = %v", err)
	}
	if err := spinner.Success("git installed"); err != nil {
		t.Errorf("Success() error = %v", err)
	}
	if spinner.IsActive() {
		t.Error("Spinner should not be active after Success()")
	}
	if err := spinner.Stop(); err != nil {
		t.Errorf("Stop() after Success() error = %v", err)
	}
}

func TestSpinner_Disabled(t *testing.T) {
	spinner := NewSpinner(&Config{Enabled: false})

	if err := spinner.Start("hidden"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if spinner.IsActive() {
		t.Error("disabled spinner should never be active")
	}
	if err := spinner.Failure("nope"); err != nil {
		t.Errorf("Failure() error = %v", err)
	}
}

func TestProgressBar_Lifecycle(t *testing.T) {
	var buf bytes.Buffer
	bar := NewProgressBar(&Config{Enabled: true, Writer: &buf}, 2)

	if err := bar.Start("Installing plugins"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := bar.Start("again"); err == nil {
		t.Error("Expected error when starting already active bar")
	}
	if err := bar.Increment(); err != nil {
		t.Errorf("Increment() error = %v", err)
	}
	if err := bar.Update("pmd"); err != nil {
		t.Errorf("Update() error = %v", err)
	}
	if err := bar.Failure("pmd was not confirmed"); err != nil {
		t.Errorf("Failure() error = %v", err)
	}
	if bar.IsActive() {
		t.Error("bar should not be active after Failure()")
	}
	if !bytes.Contains(buf.Bytes(), []byte("pmd was not confirmed")) {
		t.Errorf("output %q does not contain failure message", buf.String())
	}
}

func TestNoopProgress(t *testing.T) {
	var p Progress = NewNoopProgress()

	for _, err := range []error{p.Start("x"), p.Update("y"), p.Increment(), p.Success("z"), p.Failure("w"), p.Stop()} {
		if err != nil {
			t.Errorf("noop returned error %v", err)
		}
	}
	if p.IsActive() {
		t.Error("noop should never be active")
	}
}
