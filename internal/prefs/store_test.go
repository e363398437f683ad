package prefs

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(sqlx.NewDb(db, "sqlite3")), mock
}

func prefColumns() []string {
	return []string{"id", "sender_pattern", "preferred_action", "confidence", "action_count", "created_at", "updated_at"}
}

func TestGetPreference_NotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT \\* FROM user_preferences").
		WithArgs("unknown.example").
		WillReturnRows(sqlmock.NewRows(prefColumns()))

	_, err := store.GetPreference(context.Background(), "unknown.example")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPreference_QueryError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT \\* FROM user_preferences").
		WithArgs("letters.example").
		WillReturnError(fmt.Errorf("disk I/O error"))

	_, err := store.GetPreference(context.Background(), "letters.example")
	assert.ErrorContains(t, err, "failed to get preference")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPreference_Found(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery("SELECT \\* FROM user_preferences").
		WithArgs("letters.example").
		WillReturnRows(sqlmock.NewRows(prefColumns()).
			AddRow(1, "letters.example", "delete", 0.7, 2, now, now))

	pref, err := store.GetPreference(context.Background(), "letters.example")
	require.NoError(t, err)
	assert.Equal(t, "delete", pref.PreferredAction)
	assert.Equal(t, 0.7, pref.Confidence)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPreferences_QueryError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT \\* FROM user_preferences WHERE confidence >=").
		WillReturnError(fmt.Errorf("database is locked"))

	_, err := store.ListPreferences(context.Background(), 0.7)
	assert.ErrorContains(t, err, "failed to list preferences")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetWeeklySummary_NotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT \\* FROM weekly_summaries").
		WithArgs("2026-03-01").
		WillReturnRows(sqlmock.NewRows([]string{"id", "week_start"}))

	_, err := store.GetWeeklySummary(context.Background(), "2026-03-01")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := store.WithTx(context.Background(), func(tx *sqlx.Tx) error {
		return fmt.Errorf("boom")
	})
	assert.ErrorContains(t, err, "boom")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectCommit()

	err := store.WithTx(context.Background(), func(tx *sqlx.Tx) error {
		return nil
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_BeginError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin().WillReturnError(fmt.Errorf("connection lost"))

	err := store.WithTx(context.Background(), func(tx *sqlx.Tx) error {
		t.Fatal("fn should not run when begin fails")
		return nil
	})
	assert.ErrorContains(t, err, "failed to begin transaction")
	assert.NoError(t, mock.ExpectationsWereMet())
}
