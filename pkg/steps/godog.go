package steps

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cucumber/godog"
	"github.com/pterm/pterm"
)

// WithPluginsTag is the scenario tag prefix that installs plugins before the
// scenario runs, e.g. @with-plugins:git,pmd.
const WithPluginsTag = "@with-plugins:"

// Navigator loads pages and checks their content.
type Navigator interface {
	ContentChecker
	Visit(ctx context.Context, target string) error
}

// Env holds the collaborators shared by every scenario of a suite.
//
// Pages are not shared: NewPage is called once per scenario so a scenario
// only ever checks content it loaded itself.
type Env struct {
	Plugins        PluginManager
	Logs           LogWatcher
	NewPage        func() (Navigator, error)
	InstallTimeout time.Duration
	Logger         *pterm.Logger
}

// NewRunner creates a Runner without a page, for installs outside a
// scenario.
func (e *Env) NewRunner() *Runner {
	return e.newRunner(nil)
}

func (e *Env) newRunner(nav Navigator) *Runner {
	return NewRunner(e.Plugins, e.Logs, nav,
		WithInstallTimeout(e.InstallTimeout),
		WithLogger(e.Logger),
	)
}

// InitializeScenario is a godog ScenarioInitializer. godog calls it once per
// scenario, so each scenario gets its own Runner and page.
func (e *Env) InitializeScenario(sc *godog.ScenarioContext) {
	var nav Navigator
	if e.NewPage != nil {
		p, err := e.NewPage()
		if err != nil {
			sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
				return ctx, fmt.Errorf("failed to create page: %w", err)
			})
			return
		}
		nav = p
	}

	Register(sc, e.newRunner(nav), nav)
}

// Register binds the plugin step phrases to r. nav may be nil when no
// scenario loads pages.
func Register(sc *godog.ScenarioContext, r *Runner, nav Navigator) {
	sc.Before(func(ctx context.Context, scenario *godog.Scenario) (context.Context, error) {
		names := taggedPlugins(scenario)
		if len(names) == 0 {
			return ctx, nil
		}
		return ctx, r.EnsureAllInstalled(ctx, names...)
	})

	sc.Step(`^I install the "(.*?)" plugin from the update center$`, r.HandleRequestToInstallPlugin)
	sc.Step(`^I have installed the "(.*?)" plugin$`, r.HandlePreconditionPluginInstalled)
	sc.Step(`^the job should be able to use the "(.*?)" SCM$`, r.AssertSCMUsable)

	sc.Step(`^I have installed the following plugins:$`, func(ctx context.Context, table *godog.Table) error {
		names, err := tableColumn(table)
		if err != nil {
			return err
		}
		return r.EnsureAllInstalled(ctx, names...)
	})

	sc.Step(`^I am on the "(.*?)" page$`, func(ctx context.Context, target string) error {
		if nav == nil {
			return fmt.Errorf("no page loader configured")
		}
		return nav.Visit(ctx, target)
	})
}

func taggedPlugins(scenario *godog.Scenario) []string {
	var names []string
	for _, tag := range scenario.Tags {
		list, ok := strings.CutPrefix(tag.Name, WithPluginsTag)
		if !ok {
			continue
		}
		for _, name := range strings.Split(list, ",") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
	}
	return names
}

// tableColumn reads plugin names from a one-column table. A header row
// named "plugin" is skipped.
func tableColumn(table *godog.Table) ([]string, error) {
	if table == nil {
		return nil, fmt.Errorf("plugin table is required")
	}

	var names []string
	for i, row := range table.Rows {
		if len(row.Cells) != 1 {
			return nil, fmt.Errorf("plugin table row %d: expected 1 column, got %d", i+1, len(row.Cells))
		}
		value := strings.TrimSpace(row.Cells[0].Value)
		if i == 0 && strings.EqualFold(value, "plugin") {
			continue
		}
		names = append(names, value)
	}
	return names, nil
}
