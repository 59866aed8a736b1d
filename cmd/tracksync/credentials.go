package main

import (
	"fmt"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"tracksync/internal/credentials"
	"tracksync/internal/store"
)

func newCredentialsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage tracker credentials",
		Long: `Manage the OAuth app credential and per-user token pairs.

The app credential (client id and secret) can come from three places,
in priority order:
  1. Environment variables (TRACKSYNC_<PROVIDER>_CLIENT_ID / _CLIENT_SECRET)
  2. System keyring
  3. Config file

Examples:
  # Store the app credential in the keyring (interactive secret prompt)
  tracksync credentials secret jira app-123 --prompt

  # Store a user's token pair obtained from the OAuth flow
  tracksync credentials set --user u-42 --access-token ... --refresh-token ... --expires-in 3600

  # Drop a user's connection
  tracksync credentials disconnect --user u-42`,
	}

	cmd.AddCommand(newCredentialsSecretCmd())
	cmd.AddCommand(newCredentialsSetCmd())
	cmd.AddCommand(newCredentialsDisconnectCmd())
	cmd.AddCommand(newCredentialsDeleteCmd())

	return cmd
}

func newCredentialsSecretCmd() *cobra.Command {
	var promptSecret bool

	cmd := &cobra.Command{
		Use:   "secret <provider> <client-id> [client-secret]",
		Short: "Store the OAuth app credential in the system keyring",
		Long: `Store the OAuth client id and secret securely in the system keyring.

If --prompt is specified, the secret is read interactively (recommended,
keeps it out of shell history).`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider := args[0]
			clientID := args[1]

			var clientSecret string
			if promptSecret {
				fmt.Printf("Enter client secret for %s: ", provider)
				secretBytes, err := term.ReadPassword(int(syscall.Stdin))
				fmt.Println()
				if err != nil {
					return fmt.Errorf("failed to read client secret: %w", err)
				}
				clientSecret = string(secretBytes)
				if clientSecret == "" {
					return fmt.Errorf("client secret cannot be empty")
				}
			} else if len(args) >= 3 {
				clientSecret = args[2]
			} else {
				return fmt.Errorf("client secret is required (use --prompt for interactive input)")
			}

			if err := credentials.SetAppCredentials(provider, clientID, clientSecret); err != nil {
				if !credentials.IsAvailable() {
					envName := strings.ToUpper(strings.ReplaceAll(provider, "-", "_"))
					return fmt.Errorf("system keyring is not available. Use environment variables instead:\n  export TRACKSYNC_%s_CLIENT_ID=%s\n  export TRACKSYNC_%s_CLIENT_SECRET=<secret>",
						envName, clientID, envName)
				}
				return err
			}

			fmt.Printf("App credential for %q stored in keyring.\n", provider)
			return nil
		},
	}

	cmd.Flags().BoolVar(&promptSecret, "prompt", false, "read the client secret interactively")
	return cmd
}

func newCredentialsSetCmd() *cobra.Command {
	var userID, accessToken, refreshToken, workspaceKey string
	var expiresIn int

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store a user's token pair",
		Long: `Store the access and refresh tokens a user obtained from the
tracker's OAuth authorization flow. One credential exists per
(user, provider) pair; storing again replaces the tokens.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" || accessToken == "" || refreshToken == "" {
				return fmt.Errorf("--user, --access-token, and --refresh-token are required")
			}

			app, err := NewApp()
			if err != nil {
				return err
			}
			defer app.Close()

			cred := &store.Credential{
				UserID:       userID,
				Provider:     app.config.Provider.Name,
				AccessToken:  accessToken,
				RefreshToken: refreshToken,
				ExpiresAt:    time.Now().Add(time.Duration(expiresIn) * time.Second),
				WorkspaceKey: workspaceKey,
			}
			if err := app.store.SaveCredential(cred); err != nil {
				return err
			}

			fmt.Printf("Credential stored for user %s (%s), expires %s.\n",
				userID, app.config.Provider.Name, cred.ExpiresAt.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "local user id the tokens belong to")
	cmd.Flags().StringVar(&accessToken, "access-token", "", "OAuth access token")
	cmd.Flags().StringVar(&refreshToken, "refresh-token", "", "OAuth refresh token")
	cmd.Flags().StringVar(&workspaceKey, "workspace", "", "tracker workspace or site key")
	cmd.Flags().IntVar(&expiresIn, "expires-in", 3600, "access token lifetime in seconds")
	return cmd
}

func newCredentialsDisconnectCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "disconnect",
		Short: "Remove a user's stored token pair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return fmt.Errorf("--user is required")
			}

			app, err := NewApp()
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.tokens.Disconnect(userID); err != nil {
				return err
			}
			fmt.Printf("Disconnected user %s from %s.\n", userID, app.config.Provider.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "local user id to disconnect")
	return cmd
}

func newCredentialsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <provider>",
		Short: "Remove the OAuth app credential from the keyring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := credentials.DeleteAppCredentials(args[0]); err != nil {
				return err
			}
			fmt.Printf("App credential for %q removed from keyring.\n", args[0])
			return nil
		},
	}
}
