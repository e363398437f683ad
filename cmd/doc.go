// Package cmd implements the command-line interface for cleany.
//
// This package provides the following commands:
//   - auth: Run the Google OAuth flow and store a per-account token
//   - unsubscribe: Locate (and optionally fire) the unsubscribe link for a sender
//   - cleanup: Bulk-delete inbox mail from a sender, optionally keeping the latest N
//   - suggest: Suggest triage actions from learned preferences and the classifier
//   - stats: Show weekly summaries, learned preferences and optional metrics
//   - version: Display version information
package cmd
