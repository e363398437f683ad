// Package google handles OAuth2 authentication against Google for the Gmail
// API. Tokens are stored per account as files under the user cache directory
// and refreshed through the standard oauth2 token source.
package google
