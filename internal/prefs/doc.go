// Package prefs learns per-sender triage preferences from user decisions.
//
// Preferences are keyed by sender domain and carry a confidence score that is
// reinforced by repeated decisions and eroded by contradictions; the stored
// action never flips, it only loses confidence. Activity is aggregated into
// Sunday-aligned weekly summaries. Everything persists in a local sqlite
// database; batch updates run in a single transaction so concurrent writers
// serialize instead of clobbering each other.
package prefs
