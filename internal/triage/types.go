package triage

// Method is how an unsubscribe candidate must be executed.
type Method string

const (
	MethodGet    Method = "GET"
	MethodPost   Method = "POST"
	MethodMailto Method = "MAILTO"
)

// Outcome classifies the result of an unsubscribe resolution.
type Outcome string

const (
	// OutcomeResolved means a usable unsubscribe candidate was found.
	OutcomeResolved Outcome = "resolved"

	// OutcomeSkippedSystem means the message came from a protected system
	// sender and was not inspected further.
	OutcomeSkippedSystem Outcome = "skipped_system"

	// OutcomeNotFound means no unsubscribe mechanism could be located.
	OutcomeNotFound Outcome = "not_found"
)

// UnsubscribeCandidate is a discovered unsubscribe mechanism.
// Mailto candidates are surfaced to the user but never executed automatically.
type UnsubscribeCandidate struct {
	URL    string
	Method Method
}

// Resolution is the outcome of resolving a message for an unsubscribe link.
// Candidate is nil unless Outcome is OutcomeResolved.
type Resolution struct {
	Outcome   Outcome
	Candidate *UnsubscribeCandidate
}

// ValidationResult reports whether a candidate URL survived validation.
// FinalURL may differ from the input when a redirect chain was confirmed.
type ValidationResult struct {
	OK       bool
	FinalURL string
}

// BulkResult summarizes a bulk operation against a single sender.
// DeletedCount reflects only trash calls confirmed by the API.
type BulkResult struct {
	TotalProcessed int
	DeletedCount   int
	KeptCount      int
	FailedCount    int
}
