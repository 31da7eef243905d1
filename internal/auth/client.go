package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/commercekit-labs/merchantsync/internal/logger"
)

// UserAgent identifies merchantsync on every API request.
const UserAgent = "merchantsync/1.0"

// defaultBaseURL is the Content API endpoint requests are resolved against.
const defaultBaseURL = "https://shoppingcontent.googleapis.com/content/v2.1/"

// requestTimeout bounds individual API requests.
const requestTimeout = 30 * time.Second

// TokenStore persists OAuth tokens between runs.
type TokenStore interface {
	SaveToken(ctx context.Context, account string, tok *oauth2.Token) error
	LoadToken(ctx context.Context, account string) (*oauth2.Token, error)
	DeleteToken(ctx context.Context, account string) error
}

// Client is a thin adapter over the oauth2 library with three behaviour
// patches: an eager token refresh in Authorize with callback plumbing, HTTP
// defaults (base URL, fixed user agent, no error on non-2xx responses), and a
// deferred-request toggle.
type Client struct {
	creds     *Credentials
	store     TokenStore
	account   string
	baseURL   string
	userAgent string
	base      *http.Client

	onToken TokenCallback
	onError ErrorCallback

	mu       sync.Mutex
	token    *oauth2.Token
	deferred bool
}

// Option configures a Client.
type Option func(*Client)

// WithTokenCallback registers a callback invoked with the new token after
// every successful refresh.
func WithTokenCallback(cb TokenCallback) Option {
	return func(c *Client) { c.onToken = cb }
}

// WithErrorCallback registers a callback invoked with the error when a token
// refresh fails. The error is still returned to the caller afterwards.
func WithErrorCallback(cb ErrorCallback) Option {
	return func(c *Client) { c.onError = cb }
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithUserAgent overrides the user agent string.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithHTTPClient sets the underlying HTTP client used for token exchanges
// and API requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.base = hc }
}

// WithTokenStore attaches a persistent token store for the given account.
// Tokens are loaded on first use and saved after every refresh.
func WithTokenStore(store TokenStore, account string) Option {
	return func(c *Client) {
		c.store = store
		c.account = account
	}
}

// WithToken seeds the client with an in-memory token.
func WithToken(tok *oauth2.Token) Option {
	return func(c *Client) { c.token = tok }
}

// NewClient creates a client for the given credentials.
func NewClient(creds *Credentials, opts ...Option) (*Client, error) {
	if creds == nil {
		return nil, ErrNoCredentials
	}
	c := &Client{
		creds:     creds,
		baseURL:   defaultBaseURL,
		userAgent: UserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Authorize returns an HTTP client that attaches credentials to every
// request.
//
// For service account credentials the oauth2 library handles everything via
// signed JWTs. For authorization-code credentials, when the cached access
// token is expired and a refresh token is present, the token is refreshed
// eagerly: on failure the error callback fires before the error is returned,
// on success the token callback fires with the new token and the store is
// updated.
func (c *Client) Authorize(ctx context.Context) (*http.Client, error) {
	ctx = c.withBaseClient(ctx)

	if c.creds.ServiceAccount() {
		jcfg, err := c.creds.JWTConfig()
		if err != nil {
			return nil, fmt.Errorf("service account config: %w", err)
		}
		hc := jcfg.Client(ctx)
		hc.Timeout = requestTimeout
		return hc, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	tok, err := c.currentTokenLocked(ctx)
	if err != nil {
		return nil, err
	}

	if !tok.Valid() && tok.RefreshToken != "" {
		tok, err = c.refreshLocked(ctx, tok)
		if err != nil {
			return nil, err
		}
	}

	src := newNotifyingTokenSource(
		c.creds.OAuthConfig().TokenSource(ctx, tok),
		c.tokenRefreshed(ctx),
		c.onError,
	)
	hc := oauth2.NewClient(ctx, src)
	hc.Timeout = requestTimeout
	return hc, nil
}

// Token returns the current token, loading it from the store if necessary.
func (c *Client) Token(ctx context.Context) (*oauth2.Token, error) {
	if c.creds.ServiceAccount() {
		return nil, ErrNotServiceAccount
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentTokenLocked(ctx)
}

// SetToken replaces the current token and persists it when a store is
// attached. Used after the interactive authorization flow completes.
func (c *Client) SetToken(ctx context.Context, tok *oauth2.Token) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = tok
	if c.store != nil {
		if err := c.store.SaveToken(ctx, c.account, tok); err != nil {
			return fmt.Errorf("save token: %w", err)
		}
	}
	return nil
}

// SetDeferred toggles deferred mode and returns a closure restoring the
// previous mode. While deferred, Call builds and returns the prepared request
// without executing it.
func (c *Client) SetDeferred(deferred bool) (restore func()) {
	c.mu.Lock()
	prev := c.deferred
	c.deferred = deferred
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		c.deferred = prev
		c.mu.Unlock()
	}
}

// Deferred reports whether deferred mode is active.
func (c *Client) Deferred() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deferred
}

// APIResponse is the outcome of a Call. Non-2xx responses are not errors:
// the status code and body are handed back for the caller to inspect.
type APIResponse struct {
	// Request is the prepared request. The only populated field when the
	// call was deferred.
	Request *http.Request

	StatusCode int
	Header     http.Header
	Body       []byte

	// Deferred is true when the request was built but not executed.
	Deferred bool
}

// Success reports whether the response status is 2xx.
func (r *APIResponse) Success() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Call performs an API request against the configured base URL.
//
// The body may be nil, a string, []byte, url.Values, or any JSON-serialisable
// value. Errors are returned for request building and transport failures
// only; HTTP error statuses are reported through APIResponse.StatusCode.
// In deferred mode the prepared request is returned unexecuted.
func (c *Client) Call(
	ctx context.Context, method, path string, body any, headers map[string]string,
) (*APIResponse, error) {
	req, err := c.NewRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	if c.Deferred() {
		return &APIResponse{Request: req, Deferred: true}, nil
	}

	hc, err := c.Authorize(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return &APIResponse{
		Request:    req,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
	}, nil
}

// NewRequest builds a request resolved against the base URL, with the fixed
// user agent applied.
func (c *Client) NewRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var bodyReader io.Reader
	var contentType string

	switch v := body.(type) {
	case nil:
		// No body
	case string:
		bodyReader = strings.NewReader(v)
		contentType = "text/plain"
	case []byte:
		bodyReader = bytes.NewReader(v)
		contentType = "application/octet-stream"
	case url.Values:
		bodyReader = strings.NewReader(v.Encode())
		contentType = "application/x-www-form-urlencoded"
	default:
		jsonBody, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, method, c.resolveURL(path), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}

// resolveURL joins path with the base URL. Absolute URLs pass through.
func (c *Client) resolveURL(path string) string {
	if strings.Contains(path, "://") {
		return path
	}
	return strings.TrimSuffix(c.baseURL, "/") + "/" + strings.TrimPrefix(path, "/")
}

// currentTokenLocked returns the in-memory token, falling back to the store.
// Caller must hold c.mu.
func (c *Client) currentTokenLocked(ctx context.Context) (*oauth2.Token, error) {
	if c.token != nil {
		return c.token, nil
	}
	if c.store == nil {
		return nil, ErrNoToken
	}
	tok, err := c.store.LoadToken(ctx, c.account)
	if err != nil {
		return nil, fmt.Errorf("load token for account %s: %w", c.account, err)
	}
	c.token = tok
	return tok, nil
}

// refreshLocked exchanges the refresh token for a fresh access token.
// Caller must hold c.mu.
func (c *Client) refreshLocked(ctx context.Context, tok *oauth2.Token) (*oauth2.Token, error) {
	fresh, err := c.creds.OAuthConfig().TokenSource(ctx, tok).Token()
	if err != nil {
		if c.onError != nil {
			c.onError(err)
		}
		return nil, fmt.Errorf("refresh access token: %w", err)
	}

	// Google doesn't always return a new refresh token
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = tok.RefreshToken
	}

	c.token = fresh
	c.persistLocked(ctx, fresh)
	if c.onToken != nil {
		c.onToken(fresh)
	}
	return fresh, nil
}

// tokenRefreshed returns the callback fired by the notifying token source
// when the oauth2 transport mints a new token mid-flight.
func (c *Client) tokenRefreshed(ctx context.Context) TokenCallback {
	return func(tok *oauth2.Token) {
		c.mu.Lock()
		same := c.token != nil && c.token.AccessToken == tok.AccessToken
		if !same {
			c.token = tok
			c.persistLocked(ctx, tok)
		}
		c.mu.Unlock()

		if !same && c.onToken != nil {
			c.onToken(tok)
		}
	}
}

// persistLocked saves the token when a store is attached. Persist failures
// are logged, not returned: the refreshed token is still usable in memory.
// Caller must hold c.mu.
func (c *Client) persistLocked(ctx context.Context, tok *oauth2.Token) {
	if c.store == nil {
		return
	}
	if err := c.store.SaveToken(ctx, c.account, tok); err != nil {
		logger.Warnf("failed to persist refreshed token for account %s: %v", c.account, err)
	}
}

// withBaseClient threads the configured HTTP client into the oauth2 library
// so token exchanges share the same transport as API requests.
func (c *Client) withBaseClient(ctx context.Context) context.Context {
	if c.base == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, c.base)
}
