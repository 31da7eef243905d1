package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlow_BuildAuthURL(t *testing.T) {
	flow := NewFlow(testCredentials("https://example.com/token"))

	authURL := flow.BuildAuthURL("http://127.0.0.1:1234/callback", "test-state", "test-challenge")

	assert.Contains(t, authURL, defaultAuthURL)
	assert.Contains(t, authURL, "client_id=test-client-id")
	assert.Contains(t, authURL, "redirect_uri=http")
	assert.Contains(t, authURL, "response_type=code")
	assert.Contains(t, authURL, "state=test-state")
	assert.Contains(t, authURL, "code_challenge=test-challenge")
	assert.Contains(t, authURL, "code_challenge_method=S256")
	// Google-specific parameters required for refresh tokens
	assert.Contains(t, authURL, "access_type=offline")
	assert.Contains(t, authURL, "prompt=consent")
}

func TestFlow_Run(t *testing.T) {
	var gotCode, gotGrantType, gotVerifier string
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		gotCode = r.Form.Get("code")
		gotGrantType = r.Form.Get("grant_type")
		gotVerifier = r.Form.Get("code_verifier")

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "flow-access-token",
			"refresh_token": "flow-refresh-token",
			"token_type":    "Bearer",
			"expires_in":    3600,
		})
	}))
	defer tokenServer.Close()

	flow := NewFlow(testCredentials(tokenServer.URL))
	flow.Timeout = 10 * time.Second

	// Simulate the user authorizing: parse the consent URL and hit the
	// loopback redirect with a code and the expected state.
	flow.OpenURL = func(authURL string) {
		go func() {
			parsed, err := url.Parse(authURL)
			if err != nil {
				return
			}
			q := parsed.Query()
			redirect := q.Get("redirect_uri") + "?" + url.Values{
				"code":  {"test-auth-code"},
				"state": {q.Get("state")},
			}.Encode()
			resp, err := http.Get(redirect)
			if err == nil {
				resp.Body.Close()
			}
		}()
	}

	tok, err := flow.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "flow-access-token", tok.AccessToken)
	assert.Equal(t, "flow-refresh-token", tok.RefreshToken)
	assert.True(t, tok.Valid())

	assert.Equal(t, "test-auth-code", gotCode)
	assert.Equal(t, "authorization_code", gotGrantType)
	assert.NotEmpty(t, gotVerifier, "PKCE verifier must be sent with the exchange")
}

func TestFlow_Run_StateMismatch(t *testing.T) {
	flow := NewFlow(testCredentials("http://unused/token"))
	flow.Timeout = 10 * time.Second

	flow.OpenURL = func(authURL string) {
		go func() {
			parsed, err := url.Parse(authURL)
			if err != nil {
				return
			}
			redirect := parsed.Query().Get("redirect_uri") + "?" + url.Values{
				"code":  {"test-auth-code"},
				"state": {"forged-state"},
			}.Encode()
			resp, err := http.Get(redirect)
			if err == nil {
				resp.Body.Close()
			}
		}()
	}

	_, err := flow.Run(context.Background())
	assert.ErrorIs(t, err, ErrStateMismatch)
}

func TestFlow_Run_AccessDenied(t *testing.T) {
	flow := NewFlow(testCredentials("http://unused/token"))
	flow.Timeout = 10 * time.Second

	flow.OpenURL = func(authURL string) {
		go func() {
			parsed, err := url.Parse(authURL)
			if err != nil {
				return
			}
			q := parsed.Query()
			redirect := q.Get("redirect_uri") + "?" + url.Values{
				"error": {"access_denied"},
				"state": {q.Get("state")},
			}.Encode()
			resp, err := http.Get(redirect)
			if err == nil {
				resp.Body.Close()
			}
		}()
	}

	_, err := flow.Run(context.Background())
	assert.ErrorIs(t, err, ErrAuthDenied)
}

func TestFlow_Run_Timeout(t *testing.T) {
	flow := NewFlow(testCredentials("http://unused/token"))
	flow.Timeout = 50 * time.Millisecond
	flow.OpenURL = func(string) {} // nobody authorizes

	_, err := flow.Run(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFlow_Run_ServiceAccount(t *testing.T) {
	creds, err := ParseCredentials(serviceAccountJSON(t))
	require.NoError(t, err)

	flow := NewFlow(creds)
	_, err = flow.Run(context.Background())
	assert.ErrorIs(t, err, ErrNotServiceAccount)
}

func TestFlow_StateIsUniquePerRun(t *testing.T) {
	flow := NewFlow(testCredentials("http://unused/token"))
	flow.Timeout = 50 * time.Millisecond

	states := make(chan string, 2)
	flow.OpenURL = func(authURL string) {
		parsed, err := url.Parse(authURL)
		if err != nil {
			return
		}
		states <- parsed.Query().Get("state")
	}

	_, _ = flow.Run(context.Background())
	_, _ = flow.Run(context.Background())

	first, second := <-states, <-states
	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}
