// Package gmail provides the Gmail API client and message decoding for cleany.
//
// The Client wraps the Gmail Users service with OAuth2 authentication from the
// google package and optional metrics recording. Searches return lightweight
// message stubs; full content is fetched per message and turned into a
// triage-ready Message by the Decoder.
//
// Decoding is deliberately forgiving. Real inbox mail contains malformed MIME
// trees, missing headers and bodies that are not valid base64, so the Decoder
// degrades to empty fields instead of returning errors.
package gmail
