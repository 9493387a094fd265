package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/CliForge/jenkins-acceptance/pkg/pluginmanager"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newPluginsCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "List installed plugins",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}

			manager, err := a.newManager()
			if err != nil {
				return err
			}

			plugins, err := manager.List(cmd.Context())
			if err != nil {
				return err
			}
			sort.Slice(plugins, func(i, j int) bool {
				return plugins[i].ShortName < plugins[j].ShortName
			})

			switch output {
			case "table":
				return renderPluginTable(cmd, plugins)
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(plugins)
			default:
				return fmt.Errorf("unsupported output format: %s", output)
			}
		},
	}

	cmd.Annotations = map[string]string{annotationTokenPrompt: "true"}

	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table, json")

	return cmd
}

func renderPluginTable(cmd *cobra.Command, plugins []pluginmanager.Plugin) error {
	data := pterm.TableData{{"NAME", "VERSION", "ACTIVE", "ENABLED", "UPDATE"}}
	for _, p := range plugins {
		data = append(data, []string{
			p.ShortName,
			p.Version,
			strconv.FormatBool(p.Active),
			strconv.FormatBool(p.Enabled),
			strconv.FormatBool(p.HasUpdate),
		})
	}

	return pterm.DefaultTable.
		WithHasHeader(true).
		WithWriter(cmd.OutOrStdout()).
		WithData(data).
		Render()
}
