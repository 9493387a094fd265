package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newLoginCmd() *cobra.Command {
	var (
		tokenStdin bool
		logout     bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store the Jenkins API token in the OS keyring",
		Long: `Store the API token for jenkins.user in the OS keyring.

The token is read from an interactive prompt, or from standard input
with --token-stdin. Later commands pick it up when no token is set in
the config file or the JENKINS_API_TOKEN environment variable.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}

			user := a.cfg.Jenkins.User
			if user == "" {
				return fmt.Errorf("jenkins.user is required to store a token")
			}

			store, err := a.keyring()
			if err != nil {
				return err
			}

			if logout {
				if err := store.DeleteToken(cmd.Context(), user); err != nil {
					return err
				}
				pterm.Success.WithWriter(cmd.OutOrStdout()).Printfln("Removed token for %s", user)
				return nil
			}

			var token string
			if tokenStdin {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("failed to read token: %w", err)
				}
				token = strings.TrimSpace(line)
			} else {
				token, err = promptToken(user)
				if err != nil {
					return fmt.Errorf("failed to read token: %w", err)
				}
			}

			if err := store.SaveToken(cmd.Context(), user, token); err != nil {
				return err
			}

			pterm.Success.WithWriter(cmd.OutOrStdout()).Printfln("Stored token for %s in keyring service %s", user, store.Service())
			return nil
		},
	}

	cmd.Flags().BoolVar(&tokenStdin, "token-stdin", false, "Read the token from standard input")
	cmd.Flags().BoolVar(&logout, "logout", false, "Remove the stored token instead")

	return cmd
}
