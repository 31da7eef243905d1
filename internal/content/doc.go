// Package content wraps the Content API for Shopping used to manage a
// merchant's product data.
//
// This package provides:
//   - A service wrapper over google.golang.org/api/content/v2.1
//   - Rate limiting for Content API requests
//   - Error handling for Content API responses
//
// The service is mounted on an authorized HTTP client produced by the auth
// adapter, so token refresh and callback plumbing happen below this layer.
//
// # Rate Limits
//
// The Content API enforces per-merchant quotas on the order of a few
// thousand calls per day for product methods. This package implements
// conservative client-side rate limiting and honours Retry-After backoff on
// 429 responses to stay clear of quota errors.
package content
