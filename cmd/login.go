package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/avelez/graphmail/internal/graph"
)

func newLoginCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with the Microsoft device-code flow",
		Long: `Authenticate against Microsoft Graph using the OAuth device-code
flow. The access token is cached locally, so subsequent commands run
without prompting until it expires.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			authenticator := newAuthenticator()

			if authenticator.IsAuthenticated() {
				if !force {
					if account := authenticator.AccountRecord(); account != nil {
						fmt.Fprintf(cmd.OutOrStdout(), "Already signed in as %s.\n", account.Username)
					} else {
						fmt.Fprintln(cmd.OutOrStdout(), "Already signed in.")
					}
					fmt.Fprint(cmd.OutOrStdout(), "Re-authenticate? [y/N]: ")

					reader := bufio.NewReader(cmd.InOrStdin())
					answer, _ := reader.ReadString('\n')
					if !strings.EqualFold(strings.TrimSpace(answer), "y") {
						fmt.Fprintln(cmd.OutOrStdout(), "Keeping the current session.")
						return nil
					}
				}
				// Drop the cached token and refresh token so Token cannot
				// short-circuit past the device flow.
				if err := authenticator.Reset(); err != nil {
					return err
				}
			}

			ctx := cmd.Context()
			token, err := authenticator.Token(ctx)
			if err != nil {
				return err
			}

			client := graph.NewClient(newOAuthHTTPClient(ctx, token), logger)
			user, err := client.Me(ctx)
			if err != nil {
				return fmt.Errorf("verifying signed-in account: %w", err)
			}

			authenticator.SaveAccountRecord(user.UserPrincipalName)
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s).\n", user.DisplayName, user.UserPrincipalName)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Re-authenticate even when a valid token exists")
	return cmd
}
