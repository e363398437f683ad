package prefs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/cleanymail/cleany/internal/gmail"
	"github.com/cleanymail/cleany/internal/instrumentation"
)

// Learner updates preferences from observed user decisions and turns learned
// preferences back into suggestions.
type Learner struct {
	store   *Store
	metrics *instrumentation.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// LearnerOption configures a Learner.
type LearnerOption func(*Learner)

// WithLearnerMetrics attaches a metrics recorder counting preference writes.
func WithLearnerMetrics(m *instrumentation.Metrics) LearnerOption {
	return func(l *Learner) {
		l.metrics = m
	}
}

// WithLearnerClock overrides the clock. Used in tests.
func WithLearnerClock(now func() time.Time) LearnerOption {
	return func(l *Learner) {
		l.now = now
	}
}

// NewLearner creates a Learner over the given store.
func NewLearner(store *Store, opts ...LearnerOption) *Learner {
	l := &Learner{
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Learn records a batch of user decisions. The whole batch runs in one
// transaction: each sender preference is created or adjusted, and the weekly
// summary counters for the current week are bumped.
//
// A repeated action reinforces confidence by 0.1 up to 1.0. A contradicting
// action weakens confidence by 0.15 down to 0.3 but keeps the stored
// preferred action; only its confidence erodes.
func (l *Learner) Learn(ctx context.Context, actions []SenderAction) error {
	if len(actions) == 0 {
		return nil
	}

	ctx, span := instrumentation.StartOperationSpan(ctx, "learn")
	defer span.End()
	instrumentation.SetSpanMessageCount(span, len(actions))

	results := make([]string, 0, len(actions))

	err := l.store.WithTx(ctx, func(tx *sqlx.Tx) error {
		for _, a := range actions {
			result, err := applyAction(ctx, tx, a)
			if err != nil {
				return err
			}
			results = append(results, result)
		}
		return bumpWeeklySummary(ctx, tx, WeekStart(l.now()), actions)
	})
	instrumentation.RecordSpanError(span, err)
	if err != nil {
		return fmt.Errorf("failed to learn preferences: %w", err)
	}

	for _, r := range results {
		if l.metrics != nil {
			l.metrics.RecordPreferenceUpdate(ctx, r)
		}
	}

	l.logger.Debug("preferences learned", "actions", len(actions))
	return nil
}

// applyAction creates or adjusts the preference row for one decision and
// reports whether it was created, reinforced or weakened.
func applyAction(ctx context.Context, tx *sqlx.Tx, a SenderAction) (string, error) {
	pattern := DomainPattern(a.Sender)

	var pref SenderPreference
	err := tx.GetContext(ctx, &pref,
		`SELECT * FROM user_preferences WHERE sender_pattern = ?`, pattern)
	if errors.Is(err, sql.ErrNoRows) {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO user_preferences (sender_pattern, preferred_action, confidence, action_count)
			 VALUES (?, ?, ?, 1)`,
			pattern, string(a.Action), InitialConfidence)
		if err != nil {
			return "", fmt.Errorf("failed to create preference for %s: %w", pattern, err)
		}
		return "created", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read preference for %s: %w", pattern, err)
	}

	result := "reinforced"
	confidence := pref.Confidence
	if pref.PreferredAction == string(a.Action) {
		confidence += ReinforceStep
		if confidence > MaxConfidence {
			confidence = MaxConfidence
		}
	} else {
		result = "weakened"
		confidence -= WeakenStep
		if confidence < FloorConfidence {
			confidence = FloorConfidence
		}
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE user_preferences
		 SET confidence = ?, action_count = action_count + 1, updated_at = CURRENT_TIMESTAMP
		 WHERE sender_pattern = ?`,
		confidence, pattern)
	if err != nil {
		return "", fmt.Errorf("failed to update preference for %s: %w", pattern, err)
	}
	return result, nil
}

// bumpWeeklySummary increments the summary counters for the given week.
func bumpWeeklySummary(ctx context.Context, tx *sqlx.Tx, weekStart string, actions []SenderAction) error {
	var kept, deleted, unsubscribed, auto int64
	for _, a := range actions {
		switch a.Action {
		case ActionKeep:
			kept++
		case ActionDelete:
			deleted++
		case ActionUnsubscribe:
			unsubscribed++
		}
		if a.Auto {
			auto++
		}
	}

	_, err := tx.ExecContext(ctx,
		`INSERT INTO weekly_summaries
		   (week_start, emails_processed, emails_kept, emails_deleted, emails_unsubscribed, auto_actions_applied)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(week_start) DO UPDATE SET
		   emails_processed = emails_processed + excluded.emails_processed,
		   emails_kept = emails_kept + excluded.emails_kept,
		   emails_deleted = emails_deleted + excluded.emails_deleted,
		   emails_unsubscribed = emails_unsubscribed + excluded.emails_unsubscribed,
		   auto_actions_applied = auto_actions_applied + excluded.auto_actions_applied,
		   updated_at = CURRENT_TIMESTAMP`,
		weekStart, int64(len(actions)), kept, deleted, unsubscribed, auto)
	if err != nil {
		return fmt.Errorf("failed to update weekly summary: %w", err)
	}
	return nil
}

// ApplyPreferences matches messages against learned preferences at or above
// minConfidence. Every message gets an entry; those without a confident
// preference carry a nil Suggestion and an explanatory reason.
func (l *Learner) ApplyPreferences(ctx context.Context, msgs []*gmail.Message, minConfidence float64) ([]MessageSuggestion, error) {
	prefs, err := l.store.ListPreferences(ctx, minConfidence)
	if err != nil {
		return nil, err
	}

	byPattern := make(map[string]SenderPreference, len(prefs))
	for _, p := range prefs {
		byPattern[p.SenderPattern] = p
	}

	out := make([]MessageSuggestion, 0, len(msgs))
	for _, m := range msgs {
		ms := MessageSuggestion{
			MessageID: m.ID,
			Sender:    m.Sender,
		}

		if p, ok := byPattern[m.SenderDomain()]; ok {
			ms.Suggestion = &Suggestion{
				Action:     p.PreferredAction,
				Confidence: p.Confidence,
				Reason: fmt.Sprintf("Based on your past actions with %s (%.0f%% confidence)",
					p.SenderPattern, p.Confidence*100),
			}
		} else {
			ms.Reason = "No learned preference for this sender"
		}

		out = append(out, ms)
	}

	return out, nil
}
