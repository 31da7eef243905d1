package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/commercekit-labs/merchantsync/internal/auth"
	"github.com/commercekit-labs/merchantsync/internal/config"
	"github.com/commercekit-labs/merchantsync/internal/content"
	"github.com/commercekit-labs/merchantsync/internal/logger"
	"github.com/commercekit-labs/merchantsync/internal/storage/sqlite"
)

var (
	// Version is set by goreleaser ldflags.
	version = "dev"

	// Verbose enables debug logging.
	verbose bool

	// Services injected by main.
	cfg        *config.Config
	tokenStore *sqlite.Store
)

// Services holds injected dependencies for CLI commands.
type Services struct {
	Config *config.Config
	Store  *sqlite.Store
}

// SetServices injects dependencies for CLI commands.
func SetServices(s *Services) {
	if s == nil {
		return
	}
	cfg = s.Config
	tokenStore = s.Store
}

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:   "merchantsync",
	Short: "Sync your shop's product catalogue to a merchant centre account",
	Long: `Merchantsync authenticates against Google OAuth2 and pushes product
feeds to a merchant centre account through the Content API.

Run 'merchantsync auth login' once, then push feeds with
'merchantsync products push feed.toml'.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with a context, so long-running
// commands stop on interrupt.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// SetVersion sets the version string for the CLI.
func SetVersion(v string) {
	version = v
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose debug output")

	// Use PersistentPreRunE to set verbose mode before any command executes
	rootCmd.PersistentPreRunE = func(_ *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)
		return nil
	}
}

// newAuthClient builds the auth adapter from the configured credentials,
// wired to the token store and logging callbacks.
func newAuthClient() (*auth.Client, error) {
	if cfg.CredentialsFile == "" {
		return nil, fmt.Errorf("no credentials_file configured; set it in config.toml")
	}

	creds, err := auth.LoadCredentials(cfg.CredentialsFile)
	if err != nil {
		return nil, err
	}

	opts := []auth.Option{
		auth.WithTokenStore(tokenStore, cfg.Account),
		auth.WithUserAgent(auth.UserAgent),
		auth.WithTokenCallback(func(tok *oauth2.Token) {
			logger.Debugf("access token refreshed, expires %s", tok.Expiry.Format("15:04:05"))
		}),
		auth.WithErrorCallback(func(err error) {
			logger.Warnf("token refresh failed: %v", err)
		}),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, auth.WithBaseURL(cfg.BaseURL))
	}

	return auth.NewClient(creds, opts...)
}

// newContentService authorizes and mounts a Content API service.
func newContentService(ctx context.Context) (*content.Service, error) {
	if cfg.MerchantID == 0 {
		return nil, fmt.Errorf("no merchant_id configured; set it in config.toml")
	}

	client, err := newAuthClient()
	if err != nil {
		return nil, err
	}

	hc, err := client.Authorize(ctx)
	if err != nil {
		return nil, err
	}

	return content.NewServiceWithRateLimit(ctx, cfg.MerchantID, hc, content.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		BurstSize:         cfg.RateLimit.Burst,
	})
}
