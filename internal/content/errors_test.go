package content

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"
)

func TestWrapStatus(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		expected   error
	}{
		{
			name:       "unauthorised",
			statusCode: http.StatusUnauthorized,
			expected:   ErrUnauthorised,
		},
		{
			name:       "forbidden",
			statusCode: http.StatusForbidden,
			expected:   ErrForbidden,
		},
		{
			name:       "not found",
			statusCode: http.StatusNotFound,
			expected:   ErrNotFound,
		},
		{
			name:       "rate limited",
			statusCode: http.StatusTooManyRequests,
			expected:   ErrRateLimited,
		},
		{
			name:       "bad request",
			statusCode: http.StatusBadRequest,
			expected:   ErrBadRequest,
		},
		{
			name:       "internal server error",
			statusCode: http.StatusInternalServerError,
			expected:   ErrServerError,
		},
		{
			name:       "service unavailable",
			statusCode: http.StatusServiceUnavailable,
			expected:   ErrServerError,
		},
		{
			name:       "success returns nil",
			statusCode: http.StatusOK,
			expected:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := WrapStatus(tt.statusCode)
			if tt.expected == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.expected)
			}
		})
	}
}

func TestWrapError(t *testing.T) {
	apiErr := &googleapi.Error{Code: http.StatusUnauthorized, Message: "invalid credentials"}

	wrapped := WrapError(apiErr)

	assert.ErrorIs(t, wrapped, ErrUnauthorised)
	assert.ErrorIs(t, wrapped, apiErr)
	assert.True(t, IsUnauthorised(wrapped))
}

func TestWrapError_NilAndPassthrough(t *testing.T) {
	assert.NoError(t, WrapError(nil))

	plain := errors.New("connection reset")
	assert.Equal(t, plain, WrapError(plain))
}

func TestIsRateLimited(t *testing.T) {
	err := WrapError(&googleapi.Error{Code: http.StatusTooManyRequests})
	assert.True(t, IsRateLimited(err))
	assert.False(t, IsRateLimited(errors.New("other")))
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "rate limited", err: &googleapi.Error{Code: http.StatusTooManyRequests}, expected: true},
		{name: "service unavailable", err: &googleapi.Error{Code: http.StatusServiceUnavailable}, expected: true},
		{name: "gateway timeout", err: &googleapi.Error{Code: http.StatusGatewayTimeout}, expected: true},
		{name: "bad request", err: &googleapi.Error{Code: http.StatusBadRequest}, expected: false},
		{name: "plain error", err: errors.New("nope"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsRetryable(tt.err))
		})
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	err := &googleapi.Error{
		Code:   http.StatusTooManyRequests,
		Header: http.Header{"Retry-After": []string{"30"}},
	}
	assert.Equal(t, 30, RetryAfterSeconds(err))

	assert.Equal(t, 0, RetryAfterSeconds(&googleapi.Error{Code: http.StatusTooManyRequests}))
	assert.Equal(t, 0, RetryAfterSeconds(errors.New("plain")))
}
