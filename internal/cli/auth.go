package cli

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/commercekit-labs/merchantsync/internal/auth"
	"github.com/commercekit-labs/merchantsync/internal/storage/sqlite"
)

// revokeURL is Google's token revocation endpoint.
const revokeURL = "https://oauth2.googleapis.com/revoke"

var authManual bool

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage merchant centre authorization",
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authorize merchantsync against your Google account",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if cfg.CredentialsFile == "" {
			return fmt.Errorf("no credentials_file configured; set it in config.toml")
		}
		creds, err := auth.LoadCredentials(cfg.CredentialsFile)
		if err != nil {
			return err
		}
		if creds.ServiceAccount() {
			fmt.Println(successStyle.Render("✓") + " Service account credentials configured; no login needed.")
			return nil
		}

		flow := auth.NewFlow(creds)
		flow.Timeout = 5 * time.Minute

		token, err := runFlow(flow, cmd)
		if err != nil {
			return err
		}

		client, err := newAuthClient()
		if err != nil {
			return err
		}
		if err := client.SetToken(cmd.Context(), token); err != nil {
			return err
		}

		fmt.Println(successStyle.Render("✓") + " Authorized account " + cfg.Account)
		if token.RefreshToken == "" {
			fmt.Println(warnStyle.Render("!") + " No refresh token returned; you will need to log in again when the token expires.")
		}
		return nil
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show authorization status for the configured account",
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, err := newAuthClient()
		if err != nil {
			return err
		}

		tok, err := client.Token(cmd.Context())
		if errors.Is(err, auth.ErrNotServiceAccount) {
			fmt.Println(successStyle.Render("✓") + " Using service account credentials.")
			return nil
		}
		if errors.Is(err, sqlite.ErrTokenNotFound) || errors.Is(err, auth.ErrNoToken) {
			fmt.Println(errorStyle.Render("✗") + " Not authorized. Run 'merchantsync auth login'.")
			return nil
		}
		if err != nil {
			return err
		}

		fmt.Println(headerStyle.Render("Account ") + cfg.Account)
		if tok.Valid() {
			fmt.Println(successStyle.Render("✓") + " Access token valid until " + tok.Expiry.Local().Format(time.RFC1123))
		} else if tok.RefreshToken != "" {
			fmt.Println(warnStyle.Render("!") + " Access token expired; will refresh on next use.")
		} else {
			fmt.Println(errorStyle.Render("✗") + " Access token expired and no refresh token present. Run 'merchantsync auth login'.")
		}
		return nil
	},
}

var authRevokeCmd = &cobra.Command{
	Use:   "revoke",
	Short: "Revoke the stored token and forget it",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		client, err := newAuthClient()
		if err != nil {
			return err
		}

		tok, err := client.Token(ctx)
		if errors.Is(err, sqlite.ErrTokenNotFound) || errors.Is(err, auth.ErrNoToken) {
			fmt.Println(mutedStyle.Render("Nothing to revoke."))
			return nil
		}
		if err != nil {
			return err
		}

		// Best-effort server-side revocation; forgetting local state matters more.
		resp, err := client.Call(ctx, http.MethodPost, revokeURL,
			url.Values{"token": {tok.AccessToken}}, nil)
		if err != nil {
			fmt.Println(warnStyle.Render("!") + " Could not reach revocation endpoint: " + err.Error())
		} else if !resp.Success() {
			fmt.Printf("%s Revocation endpoint returned %d\n", warnStyle.Render("!"), resp.StatusCode)
		}

		if err := tokenStore.DeleteToken(ctx, cfg.Account); err != nil {
			return err
		}
		fmt.Println(successStyle.Render("✓") + " Token revoked and removed.")
		return nil
	},
}

// runFlow executes the loopback flow, or the manual paste flow with --manual.
func runFlow(flow *auth.Flow, cmd *cobra.Command) (*oauth2.Token, error) {
	if authManual {
		return flow.RunManual(cmd.Context())
	}
	return flow.Run(cmd.Context())
}

func init() {
	authLoginCmd.Flags().BoolVar(&authManual, "manual", false,
		"paste the authorization code instead of using a local redirect")
	authCmd.AddCommand(authLoginCmd, authStatusCmd, authRevokeCmd)
	rootCmd.AddCommand(authCmd)
}
