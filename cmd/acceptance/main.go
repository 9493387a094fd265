// Package main implements the acceptance CLI, which runs plugin installation
// scenarios against a Jenkins instance.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	// Version is set at build time
	version = "0.1.0"
	// BuildDate is set at build time
	buildDate = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "acceptance",
		Short: "Jenkins plugin acceptance harness",
		Long: `acceptance drives a Jenkins instance through behavioral scenarios.

It installs plugins from the update center on demand, confirms each
installation through the Jenkins system log and checks what the
configuration pages offer afterwards.`,
		Version:      fmt.Sprintf("%s (built %s)", version, buildDate),
		SilenceUsage: true,
	}

	// Add global flags
	cmd.PersistentFlags().String("config", "", "Path to config file (default $XDG_CONFIG_HOME/jenkins-acceptance/config.yaml)")
	cmd.PersistentFlags().String("url", "", "Jenkins URL, overrides jenkins.url")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug mode")

	// Add subcommands
	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newEnsureCmd())
	cmd.AddCommand(newPluginsCmd())
	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}
