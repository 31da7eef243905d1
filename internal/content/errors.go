package content

import (
	"errors"
	"net/http"
	"strconv"

	"google.golang.org/api/googleapi"
)

// Error types for Content API responses.
var (
	// ErrUnauthorised indicates the access token is invalid or expired.
	ErrUnauthorised = errors.New("content: unauthorised")

	// ErrForbidden indicates the account lacks access to the merchant centre.
	ErrForbidden = errors.New("content: forbidden")

	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("content: not found")

	// ErrRateLimited indicates the request was throttled by the Content API.
	ErrRateLimited = errors.New("content: rate limited")

	// ErrBadRequest indicates the request was malformed or the product data
	// failed validation.
	ErrBadRequest = errors.New("content: bad request")

	// ErrServerError indicates a server-side error from the Content API.
	ErrServerError = errors.New("content: server error")
)

// WrapStatus converts an HTTP status code to an appropriate error.
func WrapStatus(statusCode int) error {
	switch statusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorised
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusBadRequest:
		return ErrBadRequest
	default:
		if statusCode >= 500 {
			return ErrServerError
		}
		return nil
	}
}

// WrapError maps a googleapi error to the package sentinels, preserving the
// original error for context. Non-API errors pass through unchanged.
func WrapError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if wrapped := WrapStatus(apiErr.Code); wrapped != nil {
			return errors.Join(wrapped, err)
		}
	}
	return err
}

// IsUnauthorised checks if the error indicates an authentication failure.
func IsUnauthorised(err error) bool {
	return errors.Is(err, ErrUnauthorised)
}

// IsRateLimited checks if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsRetryable checks if the error is potentially transient and can be
// retried.
func IsRetryable(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == http.StatusTooManyRequests ||
		apiErr.Code == http.StatusServiceUnavailable ||
		apiErr.Code == http.StatusGatewayTimeout
}

// RetryAfterSeconds extracts the Retry-After header from a googleapi error.
// Returns 0 when the header is absent or unparseable.
func RetryAfterSeconds(err error) int {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) || apiErr.Header == nil {
		return 0
	}
	for _, v := range apiErr.Header.Values("Retry-After") {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return 0
}
