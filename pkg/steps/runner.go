// Package steps implements the plugin installation steps: make sure a plugin
// is installed, installing it from the update center when it is not, and
// check what the loaded page offers afterwards.
package steps

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/CliForge/jenkins-acceptance/pkg/logging"
	"github.com/CliForge/jenkins-acceptance/pkg/logwatch"
	"github.com/CliForge/jenkins-acceptance/pkg/pluginmanager"
	"github.com/pterm/pterm"
)

// PluginManager answers installed-state queries and starts installs.
type PluginManager interface {
	Installed(ctx context.Context, name string) (bool, error)
	InstallPlugin(ctx context.Context, name string) error
}

// LogWatcher waits for a log line matching a pattern.
type LogWatcher interface {
	WaitUntilLogged(ctx context.Context, pattern *regexp.Regexp, timeout time.Duration) (logwatch.Result, error)
}

// ContentChecker tests the currently loaded page.
type ContentChecker interface {
	HasContent(text string) bool
}

// DefaultInstallTimeout bounds the wait for install confirmation.
const DefaultInstallTimeout = 3 * time.Minute

// Runner executes the plugin steps against explicitly provided
// collaborators.
type Runner struct {
	plugins PluginManager
	logs    LogWatcher
	page    ContentChecker
	timeout time.Duration
	logger  *pterm.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithInstallTimeout bounds how long EnsureInstalled waits for the log
// confirmation.
func WithInstallTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *pterm.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a step runner.
func NewRunner(plugins PluginManager, logs LogWatcher, page ContentChecker, opts ...RunnerOption) *Runner {
	r := &Runner{
		plugins: plugins,
		logs:    logs,
		page:    page,
		timeout: DefaultInstallTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.OrDiscard(r.logger)

	return r
}

// EnsureInstalled makes sure the named plugin is installed.
//
// An installed plugin is left alone. Otherwise the plugin is installed once,
// the log is watched for the installation confirmation, and the plugin
// manager must then report the plugin installed. Nothing is retried.
func (r *Runner) EnsureInstalled(ctx context.Context, name string) error {
	return r.ensureInstalled(ctx, "ensure installed", name)
}

// HandleRequestToInstallPlugin is the "install from the update center"
// action.
func (r *Runner) HandleRequestToInstallPlugin(ctx context.Context, name string) error {
	return r.ensureInstalled(ctx, "install from update center", name)
}

// HandlePreconditionPluginInstalled is the "plugin is installed"
// precondition.
func (r *Runner) HandlePreconditionPluginInstalled(ctx context.Context, name string) error {
	return r.ensureInstalled(ctx, "plugin installed", name)
}

// EnsureAllInstalled runs EnsureInstalled for each name in order and stops
// at the first failure.
func (r *Runner) EnsureAllInstalled(ctx context.Context, names ...string) error {
	for _, name := range names {
		if err := r.EnsureInstalled(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// AssertSCMUsable checks that the loaded page offers the named SCM.
func (r *Runner) AssertSCMUsable(ctx context.Context, scm string) error {
	if r.page != nil && r.page.HasContent(scm) {
		return nil
	}
	return &StepError{Step: "scm usable", Subject: scm, Err: ErrContentMissing}
}

func (r *Runner) ensureInstalled(ctx context.Context, step, name string) error {
	fail := func(err error) error {
		return &StepError{Step: step, Subject: name, Err: err}
	}

	spec, err := pluginmanager.ParseSpec(name)
	if errors.Is(err, pluginmanager.ErrEmptyName) {
		return fail(ErrEmptyPluginName)
	}
	if err != nil {
		return fail(err)
	}

	installed, err := r.plugins.Installed(ctx, name)
	if err != nil {
		return fail(fmt.Errorf("failed to query plugin: %w", err))
	}
	if installed {
		r.logger.Debug("plugin already installed", r.logger.Args("plugin", name))
		return nil
	}

	r.logger.Info("installing plugin", r.logger.Args("plugin", name))
	if err := r.plugins.InstallPlugin(ctx, name); err != nil {
		return fail(fmt.Errorf("failed to install plugin: %w", err))
	}

	result, err := r.logs.WaitUntilLogged(ctx, InstallationPattern(spec.Name), r.timeout)
	if err != nil {
		return fail(fmt.Errorf("failed to watch log: %w", err))
	}
	if result != logwatch.Matched {
		return fail(ErrInstallNotConfirmed)
	}

	installed, err = r.plugins.Installed(ctx, name)
	if err != nil {
		return fail(fmt.Errorf("failed to query plugin: %w", err))
	}
	if !installed {
		return fail(ErrStillNotInstalled)
	}

	r.logger.Info("plugin installed", r.logger.Args("plugin", name))
	return nil
}
