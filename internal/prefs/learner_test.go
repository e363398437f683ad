package prefs

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleanymail/cleany/internal/gmail"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "prefs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func fixedClock() func() time.Time {
	// A Wednesday; its Sunday-aligned week starts 2026-03-01.
	return func() time.Time {
		return time.Date(2026, 3, 4, 15, 30, 0, 0, time.UTC)
	}
}

func TestLearn_CreatesPreference(t *testing.T) {
	store := newTestStore(t)
	l := NewLearner(store, WithLearnerClock(fixedClock()))
	ctx := context.Background()

	err := l.Learn(ctx, []SenderAction{
		{Sender: "News <news@letters.example>", Action: ActionDelete},
	})
	require.NoError(t, err)

	pref, err := store.GetPreference(ctx, "letters.example")
	require.NoError(t, err)
	assert.Equal(t, "delete", pref.PreferredAction)
	assert.InDelta(t, InitialConfidence, pref.Confidence, 1e-9)
	assert.Equal(t, int64(1), pref.ActionCount)
}

func TestLearn_ReinforcesMatchingAction(t *testing.T) {
	store := newTestStore(t)
	l := NewLearner(store, WithLearnerClock(fixedClock()))
	ctx := context.Background()

	action := SenderAction{Sender: "news@letters.example", Action: ActionDelete}
	require.NoError(t, l.Learn(ctx, []SenderAction{action}))
	require.NoError(t, l.Learn(ctx, []SenderAction{action}))

	pref, err := store.GetPreference(ctx, "letters.example")
	require.NoError(t, err)
	assert.InDelta(t, 0.7, pref.Confidence, 1e-9)
	assert.Equal(t, int64(2), pref.ActionCount)
}

func TestLearn_ConfidenceCapsAtOne(t *testing.T) {
	store := newTestStore(t)
	l := NewLearner(store, WithLearnerClock(fixedClock()))
	ctx := context.Background()

	action := SenderAction{Sender: "news@letters.example", Action: ActionDelete}
	for i := 0; i < 10; i++ {
		require.NoError(t, l.Learn(ctx, []SenderAction{action}))
	}

	pref, err := store.GetPreference(ctx, "letters.example")
	require.NoError(t, err)
	assert.InDelta(t, MaxConfidence, pref.Confidence, 1e-9)
	assert.Equal(t, int64(10), pref.ActionCount)
}

func TestLearn_ContradictionWeakensButKeepsAction(t *testing.T) {
	store := newTestStore(t)
	l := NewLearner(store, WithLearnerClock(fixedClock()))
	ctx := context.Background()

	require.NoError(t, l.Learn(ctx, []SenderAction{
		{Sender: "news@letters.example", Action: ActionDelete},
	}))
	require.NoError(t, l.Learn(ctx, []SenderAction{
		{Sender: "news@letters.example", Action: ActionKeep},
	}))

	pref, err := store.GetPreference(ctx, "letters.example")
	require.NoError(t, err)
	// The stored action survives the contradiction; only confidence erodes.
	assert.Equal(t, "delete", pref.PreferredAction)
	assert.InDelta(t, 0.45, pref.Confidence, 1e-9)
	assert.Equal(t, int64(2), pref.ActionCount)
}

func TestLearn_ConfidenceFloors(t *testing.T) {
	store := newTestStore(t)
	l := NewLearner(store, WithLearnerClock(fixedClock()))
	ctx := context.Background()

	require.NoError(t, l.Learn(ctx, []SenderAction{
		{Sender: "news@letters.example", Action: ActionDelete},
	}))
	for i := 0; i < 5; i++ {
		require.NoError(t, l.Learn(ctx, []SenderAction{
			{Sender: "news@letters.example", Action: ActionKeep},
		}))
	}

	pref, err := store.GetPreference(ctx, "letters.example")
	require.NoError(t, err)
	assert.Equal(t, "delete", pref.PreferredAction)
	assert.InDelta(t, FloorConfidence, pref.Confidence, 1e-9)
}

func TestLearn_BumpsWeeklySummary(t *testing.T) {
	store := newTestStore(t)
	l := NewLearner(store, WithLearnerClock(fixedClock()))
	ctx := context.Background()

	err := l.Learn(ctx, []SenderAction{
		{Sender: "a@x.example", Action: ActionDelete},
		{Sender: "b@y.example", Action: ActionKeep},
		{Sender: "c@z.example", Action: ActionUnsubscribe, Auto: true},
	})
	require.NoError(t, err)

	sum, err := store.GetWeeklySummary(ctx, "2026-03-01")
	require.NoError(t, err)
	assert.Equal(t, int64(3), sum.EmailsProcessed)
	assert.Equal(t, int64(1), sum.EmailsKept)
	assert.Equal(t, int64(1), sum.EmailsDeleted)
	assert.Equal(t, int64(1), sum.EmailsUnsubscribed)
	assert.Equal(t, int64(1), sum.AutoActionsApplied)

	// Second batch in the same week accumulates
	require.NoError(t, l.Learn(ctx, []SenderAction{
		{Sender: "a@x.example", Action: ActionDelete},
	}))
	sum, err = store.GetWeeklySummary(ctx, "2026-03-01")
	require.NoError(t, err)
	assert.Equal(t, int64(4), sum.EmailsProcessed)
	assert.Equal(t, int64(2), sum.EmailsDeleted)
}

func TestLearn_EmptyBatchIsNoOp(t *testing.T) {
	store := newTestStore(t)
	l := NewLearner(store, WithLearnerClock(fixedClock()))

	require.NoError(t, l.Learn(context.Background(), nil))

	_, err := store.GetWeeklySummary(context.Background(), "2026-03-01")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestApplyPreferences(t *testing.T) {
	store := newTestStore(t)
	l := NewLearner(store, WithLearnerClock(fixedClock()))
	ctx := context.Background()

	// Reinforce letters.example to 0.7, leave fresh.example at 0.6
	require.NoError(t, l.Learn(ctx, []SenderAction{
		{Sender: "news@letters.example", Action: ActionDelete},
		{Sender: "promo@fresh.example", Action: ActionKeep},
	}))
	require.NoError(t, l.Learn(ctx, []SenderAction{
		{Sender: "news@letters.example", Action: ActionDelete},
	}))

	msgs := []*gmail.Message{
		{ID: "m1", Sender: "News <news@letters.example>"},
		{ID: "m2", Sender: "promo@fresh.example"},
		{ID: "m3", Sender: "stranger@unknown.example"},
	}

	suggestions, err := l.ApplyPreferences(ctx, msgs, 0.7)
	require.NoError(t, err)
	require.Len(t, suggestions, 3)

	require.NotNil(t, suggestions[0].Suggestion)
	assert.Equal(t, "delete", suggestions[0].Suggestion.Action)
	assert.Contains(t, suggestions[0].Suggestion.Reason, "letters.example")
	assert.Contains(t, suggestions[0].Suggestion.Reason, "70% confidence")

	// fresh.example sits below the confidence threshold
	assert.Nil(t, suggestions[1].Suggestion)
	assert.Equal(t, "No learned preference for this sender", suggestions[1].Reason)

	assert.Nil(t, suggestions[2].Suggestion)
	assert.Equal(t, "No learned preference for this sender", suggestions[2].Reason)
}

func TestWeekStart(t *testing.T) {
	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"wednesday", time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC), "2026-03-01"},
		{"sunday maps to itself", time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC), "2026-03-01"},
		{"saturday", time.Date(2026, 3, 7, 0, 1, 0, 0, time.UTC), "2026-03-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WeekStart(tt.t))
		})
	}
}

func TestDomainPattern(t *testing.T) {
	tests := []struct {
		name   string
		sender string
		want   string
	}{
		{"bare address", "news@Example.COM", "example.com"},
		{"display name form", "News <news@letters.example>", "letters.example"},
		{"no at sign", "Some Sender", "some sender"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DomainPattern(tt.sender))
		})
	}
}
