package auth

import (
	"sync"

	"golang.org/x/oauth2"
)

// TokenCallback is invoked with the new token after a successful refresh.
type TokenCallback func(*oauth2.Token)

// ErrorCallback is invoked with the error when a token refresh fails,
// before the error is propagated to the caller.
type ErrorCallback func(error)

// notifyingTokenSource wraps an oauth2.TokenSource and fires the client's
// callbacks when the underlying source mints a new token or fails. This keeps
// mid-flight refreshes performed by the oauth2 transport observable, not just
// the eager refresh done in Authorize.
type notifyingTokenSource struct {
	src     oauth2.TokenSource
	onToken TokenCallback
	onError ErrorCallback

	mu   sync.Mutex
	last string // last access token seen
}

var _ oauth2.TokenSource = (*notifyingTokenSource)(nil)

func newNotifyingTokenSource(src oauth2.TokenSource, onToken TokenCallback, onError ErrorCallback) *notifyingTokenSource {
	return &notifyingTokenSource{src: src, onToken: onToken, onError: onError}
}

// Token returns a valid token from the wrapped source, invoking the error
// callback on failure and the token callback whenever the access token
// changes.
func (s *notifyingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.src.Token()
	if err != nil {
		if s.onError != nil {
			s.onError(err)
		}
		return nil, err
	}

	s.mu.Lock()
	changed := tok.AccessToken != s.last
	s.last = tok.AccessToken
	s.mu.Unlock()

	if changed && s.onToken != nil {
		s.onToken(tok)
	}
	return tok, nil
}
