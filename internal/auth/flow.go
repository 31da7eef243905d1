package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/term"
)

// Flow runs the interactive authorization-code flow with PKCE.
// It spins up a loopback redirect listener, directs the user to the consent
// page and exchanges the returned code for tokens.
type Flow struct {
	creds *Credentials

	// OpenURL is invoked with the consent URL. Defaults to printing it for
	// the user to open manually.
	OpenURL func(url string)

	// Timeout bounds the wait for the redirect. Zero means no timeout.
	Timeout time.Duration
}

// NewFlow creates an authorization flow for the given credentials.
func NewFlow(creds *Credentials) *Flow {
	return &Flow{creds: creds}
}

// BuildAuthURL constructs the authorization URL.
// Includes access_type=offline and prompt=consent to ensure refresh tokens
// are returned.
func (f *Flow) BuildAuthURL(redirectURI, state, codeChallenge string) string {
	params := url.Values{
		"client_id":             {f.creds.ClientID},
		"redirect_uri":          {redirectURI},
		"response_type":         {"code"},
		"scope":                 {strings.Join(f.creds.Scopes, " ")},
		"state":                 {state},
		"code_challenge":        {codeChallenge},
		"code_challenge_method": {"S256"},
		// Google-specific: required for refresh tokens
		"access_type": {"offline"},
		"prompt":      {"consent"},
	}
	return f.creds.AuthURL + "?" + params.Encode()
}

// Run executes the full flow and returns the obtained token.
func (f *Flow) Run(ctx context.Context) (*oauth2.Token, error) {
	if f.creds.ServiceAccount() {
		return nil, fmt.Errorf("%w: service accounts do not use the authorization flow", ErrNotServiceAccount)
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("start redirect listener: %w", err)
	}
	defer listener.Close()

	redirectURI := fmt.Sprintf("http://%s/callback", listener.Addr().String())
	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()
	authURL := f.BuildAuthURL(redirectURI, state, oauth2.S256ChallengeFromVerifier(verifier))

	if f.OpenURL != nil {
		f.OpenURL(authURL)
	} else {
		fmt.Fprintf(os.Stderr, "Open this URL in your browser to authorize:\n\n  %s\n\n", authURL)
	}

	code, err := f.waitForCode(ctx, listener, state)
	if err != nil {
		return nil, err
	}

	cfg := f.creds.OAuthConfig()
	cfg.RedirectURL = redirectURI
	tok, err := cfg.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	return tok, nil
}

// callbackResult carries the redirect parameters off the HTTP handler.
type callbackResult struct {
	code string
	err  error
}

// waitForCode serves the loopback redirect endpoint until the authorization
// server delivers a code or an error.
func (f *Flow) waitForCode(ctx context.Context, listener net.Listener, state string) (string, error) {
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	results := make(chan callbackResult, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		result := callbackResult{code: q.Get("code")}

		switch {
		case q.Get("state") != state:
			result.err = ErrStateMismatch
		case q.Get("error") == "access_denied":
			result.err = ErrAuthDenied
		case q.Get("error") != "":
			result.err = fmt.Errorf("authorization failed: %s", q.Get("error"))
		case result.code == "":
			result.err = errors.New("authorization response missing code")
		}

		if result.err != nil {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintln(w, "Authorization failed. You can close this window.")
		} else {
			fmt.Fprintln(w, "Authorization complete. You can close this window.")
		}

		select {
		case results <- result:
		default:
		}
	})

	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		_ = server.Serve(listener)
	}()
	defer server.Close()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case result := <-results:
		if result.err != nil {
			return "", result.err
		}
		return result.code, nil
	}
}

// RunManual executes the flow without a loopback listener: the user opens the
// consent URL and pastes the authorization code back into the terminal. Used
// when the tool runs on a headless machine.
func (f *Flow) RunManual(ctx context.Context) (*oauth2.Token, error) {
	if f.creds.ServiceAccount() {
		return nil, fmt.Errorf("%w: service accounts do not use the authorization flow", ErrNotServiceAccount)
	}

	const redirectURI = "urn:ietf:wg:oauth:2.0:oob"
	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()
	authURL := f.BuildAuthURL(redirectURI, state, oauth2.S256ChallengeFromVerifier(verifier))

	if f.OpenURL != nil {
		f.OpenURL(authURL)
	} else {
		fmt.Fprintf(os.Stderr, "Open this URL in your browser to authorize:\n\n  %s\n\n", authURL)
	}

	code, err := readCode()
	if err != nil {
		return nil, err
	}

	cfg := f.creds.OAuthConfig()
	cfg.RedirectURL = redirectURI
	tok, err := cfg.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	return tok, nil
}

// readCode reads the pasted authorization code. Echo is disabled on real
// terminals since codes are bearer secrets until exchanged.
func readCode() (string, error) {
	fmt.Fprint(os.Stderr, "Paste the authorization code: ")
	fd := int(os.Stdin.Fd())

	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("read authorization code: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}

	var code string
	if _, err := fmt.Fscanln(os.Stdin, &code); err != nil {
		return "", fmt.Errorf("read authorization code: %w", err)
	}
	return strings.TrimSpace(code), nil
}
