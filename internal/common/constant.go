// Package common contains shared constants and sentinel errors used across
// the Tables client and its tooling.
package common

const (
	// AuthorizationHeaderName carries the bearer access token on REST calls.
	AuthorizationHeaderName = "Authorization"

	// APIKeyHeaderName carries the project's public (anon) key.
	APIKeyHeaderName = "apikey"

	// AnonymousAuthor is used when neither a display name nor an email is known.
	AnonymousAuthor = "Anonymous"
)
