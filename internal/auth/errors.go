package auth

import "errors"

// Error types for the auth adapter.
var (
	// ErrNoCredentials indicates no OAuth client credentials were configured.
	ErrNoCredentials = errors.New("auth: no credentials configured")

	// ErrNoToken indicates no stored token exists for the account.
	// Run the authorization flow to obtain one.
	ErrNoToken = errors.New("auth: no token for account, authorization required")

	// ErrNotServiceAccount indicates a service-account operation was requested
	// with authorization-code credentials.
	ErrNotServiceAccount = errors.New("auth: credentials are not a service account")

	// ErrStateMismatch indicates the OAuth state parameter returned by the
	// authorization server does not match the one sent.
	ErrStateMismatch = errors.New("auth: state parameter mismatch")

	// ErrAuthDenied indicates the user denied the authorization request.
	ErrAuthDenied = errors.New("auth: authorization denied")
)
