package main

import (
	"fmt"

	"github.com/cucumber/godog"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var (
		format      string
		tags        string
		concurrency int
		strict      bool
		noColors    bool
	)

	cmd := &cobra.Command{
		Use:   "run [paths...]",
		Short: "Run feature files against Jenkins",
		Long: `Run Gherkin feature files with the plugin installation steps.

Paths default to ./features. Available steps:
  When I install the "<plugin>" plugin from the update center
  Given I have installed the "<plugin>" plugin
  Given I have installed the following plugins:
  Given I am on the "<path>" page
  Then the job should be able to use the "<scm>" SCM

Scenarios tagged @with-plugins:<a>,<b> get those plugins installed first.`,
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

			paths := args
			if len(paths) == 0 {
				paths = []string{"features"}
			}

			status := godog.TestSuite{
				Name:                "jenkins-acceptance",
				ScenarioInitializer: env.InitializeScenario,
				Options: &godog.Options{
					Format:         format,
					Paths:          paths,
					Tags:           tags,
					Concurrency:    concurrency,
					Strict:         strict,
					NoColors:       noColors,
					DefaultContext: cmd.Context(),
					Output:         cmd.OutOrStdout(),
				},
			}.Run()

			if status != 0 {
				return fmt.Errorf("scenarios failed (exit status %d)", status)
			}
			return nil
		},
	}

	cmd.Annotations = map[string]string{annotationTokenPrompt: "true"}

	cmd.Flags().StringVarP(&format, "format", "f", "pretty", "Output format: pretty, progress, cucumber, junit")
	cmd.Flags().StringVarP(&tags, "tags", "t", "", "Tag expression selecting scenarios, e.g. \"@smoke && ~@slow\"")
	cmd.Flags().IntVar(&concurrency, "concurrency", 1, "Scenarios run in parallel")
	cmd.Flags().BoolVar(&strict, "strict", true, "Fail on undefined or pending steps")
	cmd.Flags().BoolVar(&noColors, "no-colors", false, "Disable ANSI colors in the report")

	return cmd
}
