package prefs

import (
	"strings"
	"time"
)

// Action is a user triage decision for a sender.
type Action string

const (
	ActionKeep        Action = "keep"
	ActionDelete      Action = "delete"
	ActionUnsubscribe Action = "unsubscribe"
)

// Confidence tuning. A first decision starts at 0.6; repeats reinforce up to
// 1.0 and contradictions weaken down to 0.3 without flipping the stored
// action.
const (
	InitialConfidence = 0.6
	ReinforceStep     = 0.1
	MaxConfidence     = 1.0
	WeakenStep        = 0.15
	FloorConfidence   = 0.3
)

// SenderPreference is a learned per-domain triage preference.
type SenderPreference struct {
	ID              int64     `db:"id"`
	SenderPattern   string    `db:"sender_pattern"`
	PreferredAction string    `db:"preferred_action"`
	Confidence      float64   `db:"confidence"`
	ActionCount     int64     `db:"action_count"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

// WeeklySummary aggregates triage activity for one Sunday-aligned week.
type WeeklySummary struct {
	ID                 int64     `db:"id"`
	WeekStart          string    `db:"week_start"`
	EmailsProcessed    int64     `db:"emails_processed"`
	EmailsKept         int64     `db:"emails_kept"`
	EmailsDeleted      int64     `db:"emails_deleted"`
	EmailsUnsubscribed int64     `db:"emails_unsubscribed"`
	AutoActionsApplied int64     `db:"auto_actions_applied"`
	CreatedAt          time.Time `db:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"`
}

// SenderAction is one observed user decision to learn from.
type SenderAction struct {
	Sender string
	Action Action

	// Auto marks actions that were applied automatically from a learned
	// preference rather than decided by the user in the moment.
	Auto bool
}

// Suggestion is a recommendation derived from a learned preference.
type Suggestion struct {
	Action     string
	Confidence float64
	Reason     string
}

// MessageSuggestion pairs a message with its (possibly absent) suggestion.
type MessageSuggestion struct {
	MessageID string
	Sender    string

	// Suggestion is nil when no sufficiently confident preference exists;
	// Reason then explains the absence.
	Suggestion *Suggestion
	Reason     string
}

// DomainPattern reduces a sender address to the learned pattern: the part
// after "@", lowercased. Senders without "@" are used whole.
func DomainPattern(sender string) string {
	sender = strings.ToLower(strings.TrimSpace(sender))
	if i := strings.LastIndex(sender, "@"); i >= 0 {
		return strings.TrimSuffix(sender[i+1:], ">")
	}
	return sender
}

// WeekStart returns the Sunday-aligned start date of the week containing t,
// formatted as a date-only string.
func WeekStart(t time.Time) string {
	t = t.AddDate(0, 0, -int(t.Weekday()))
	return t.Format("2006-01-02")
}
