package auth

import (
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
)

// Google OAuth endpoint constants.
const (
	defaultAuthURL  = "https://accounts.google.com/o/oauth2/v2/auth"
	defaultTokenURL = "https://oauth2.googleapis.com/token" //nolint:gosec // G101: Not credentials, OAuth endpoint URL
)

// defaultScopes are the default OAuth scopes for the Content API.
var defaultScopes = []string{
	"https://www.googleapis.com/auth/content",
}

// Credentials holds parsed OAuth client credentials.
//
// Two shapes are supported, matching Google's credential JSON files:
// authorization-code credentials ("web" or "installed" keys) and service
// account keys ("type": "service_account"). Which shape was loaded drives the
// Authorize branch in Client.
type Credentials struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	RedirectURIs []string
	Scopes       []string

	// raw is the original JSON, retained for service account key parsing.
	raw            []byte
	serviceAccount bool
}

// credentialsFile mirrors the layout of a Google OAuth client JSON file.
type credentialsFile struct {
	Type      string            `json:"type"`
	Web       *clientSecretInfo `json:"web"`
	Installed *clientSecretInfo `json:"installed"`
}

type clientSecretInfo struct {
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	AuthURI      string   `json:"auth_uri"`
	TokenURI     string   `json:"token_uri"`
	RedirectURIs []string `json:"redirect_uris"`
}

// LoadCredentials reads and parses an OAuth client credentials file.
func LoadCredentials(path string) (*Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}
	return ParseCredentials(data)
}

// ParseCredentials parses OAuth client credentials from JSON.
func ParseCredentials(data []byte) (*Credentials, error) {
	var f credentialsFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}

	if f.Type == "service_account" {
		return &Credentials{
			Scopes:         defaultScopes,
			raw:            data,
			serviceAccount: true,
		}, nil
	}

	info := f.Web
	if info == nil {
		info = f.Installed
	}
	if info == nil || info.ClientID == "" {
		return nil, fmt.Errorf("%w: expected web, installed or service_account credentials", ErrNoCredentials)
	}

	creds := &Credentials{
		ClientID:     info.ClientID,
		ClientSecret: info.ClientSecret,
		AuthURL:      info.AuthURI,
		TokenURL:     info.TokenURI,
		RedirectURIs: info.RedirectURIs,
		Scopes:       defaultScopes,
	}
	if creds.AuthURL == "" {
		creds.AuthURL = defaultAuthURL
	}
	if creds.TokenURL == "" {
		creds.TokenURL = defaultTokenURL
	}
	return creds, nil
}

// ServiceAccount reports whether the credentials are a service account key.
// Service accounts authorize via signed JWTs and never hold refresh tokens.
func (c *Credentials) ServiceAccount() bool {
	return c.serviceAccount
}

// OAuthConfig returns the oauth2 configuration for authorization-code
// credentials.
func (c *Credentials) OAuthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  c.AuthURL,
			TokenURL: c.TokenURL,
		},
		Scopes: c.Scopes,
	}
}

// JWTConfig returns the service account JWT configuration.
// Returns ErrNotServiceAccount for authorization-code credentials.
func (c *Credentials) JWTConfig() (*jwt.Config, error) {
	if !c.serviceAccount {
		return nil, ErrNotServiceAccount
	}
	cfg, err := google.JWTConfigFromJSON(c.raw, c.Scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse service account key: %w", err)
	}
	return cfg, nil
}
