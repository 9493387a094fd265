package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/CliForge/jenkins-acceptance/pkg/config"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigGetCmd())
	cmd.AddCommand(newConfigSetCmd())

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long: `Print the effective configuration after defaults, the config file,
environment variables and flags are applied. Tokens are masked.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}

			shown := *a.cfg
			if shown.Jenkins.Token != "" {
				shown.Jenkins.Token = "********"
			}

			data, err := yaml.Marshal(&shown)
			if err != nil {
				return err
			}
			if _, err := cmd.OutOrStdout().Write(data); err != nil {
				return err
			}

			defaults, err := config.Defaults()
			if err != nil {
				return err
			}
			overrides := config.Overrides(defaults, &shown)
			if len(overrides) == 0 {
				return nil
			}

			rows := pterm.TableData{{"KEY", "VALUE"}}
			for _, key := range config.Keys() {
				if value, ok := overrides[key]; ok {
					rows = append(rows, []string{key, value})
				}
			}

			pterm.Fprintln(cmd.OutOrStdout())
			pterm.Info.WithWriter(cmd.OutOrStdout()).Println("Overridden settings")
			return pterm.DefaultTable.
				WithHasHeader(true).
				WithWriter(cmd.OutOrStdout()).
				WithData(rows).
				Render()
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print one effective configuration value",
		Long: `Print one effective configuration value by dotted key.

Examples:
  acceptance config get jenkins.url
  acceptance config get install.timeout`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}

			value, err := a.cfg.Get(args[0])
			if err != nil {
				return err
			}
			if args[0] == "jenkins.token" && value != "" {
				value = "********"
			}

			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Write one value to the config file",
		Long: `Write one value to the config file by dotted key. Only the file's own
settings are rewritten; environment overrides are not persisted.

Examples:
  acceptance config set jenkins.url https://ci.example.com
  acceptance config set log.source sse`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]
			loader := newLoader(cmd)

			user, err := loader.LoadUserConfig()
			if errors.Is(err, fs.ErrNotExist) {
				user, err = &config.Config{}, nil
			}
			if err != nil {
				return err
			}

			if err := user.Set(key, value); err != nil {
				return err
			}

			defaults, err := config.Defaults()
			if err != nil {
				return err
			}
			if err := config.Validate(config.Merge(defaults, user)); err != nil {
				return err
			}

			if err := loader.Save(user); err != nil {
				return err
			}

			pterm.Success.WithWriter(cmd.OutOrStdout()).Printfln("Set %s in %s", key, loader.ConfigPath())
			return nil
		},
	}
}
