package main

import (
	"fmt"

	"github.com/CliForge/jenkins-acceptance/pkg/progress"
	"github.com/CliForge/jenkins-acceptance/pkg/steps"
	"github.com/spf13/cobra"
)

func newEnsureCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "ensure <plugin[@version]>...",
		Short: "Install plugins that are not installed yet",
		Long: `Install each plugin that Jenkins does not report as installed.

Each install is confirmed through the Jenkins system log and then
checked against the plugin manager. The first failure stops the run.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}

			env, stop, err := a.newEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer stop()

			return ensurePlugins(cmd, env.NewRunner(), args, !quiet)
		},
	}

	cmd.Annotations = map[string]string{annotationTokenPrompt: "true"}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Hide the progress indicator")

	return cmd
}

func ensurePlugins(cmd *cobra.Command, runner *steps.Runner, names []string, showProgress bool) error {
	p := progress.New(&progress.Config{
		Enabled: showProgress,
		Writer:  cmd.ErrOrStderr(),
	}, len(names))

	if err := p.Start(fmt.Sprintf("Ensuring %d plugin(s)", len(names))); err != nil {
		return err
	}
	defer func() { _ = p.Stop() }()

	for _, name := range names {
		_ = p.Update(fmt.Sprintf("Ensuring %s", name))

		if err := runner.EnsureInstalled(cmd.Context(), name); err != nil {
			_ = p.Failure(err.Error())
			return err
		}
		_ = p.Increment()
	}

	_ = p.Success(fmt.Sprintf("%d plugin(s) installed", len(names)))
	return nil
}
