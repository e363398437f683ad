package cache

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleanymail/cleany/internal/gmail"
)

func testMessages() []*gmail.Message {
	return []*gmail.Message{
		{ID: "m1", Sender: "news@letters.example", Subject: "Issue 1"},
		{ID: "m2", Sender: "deals@shop.example", Subject: "Sale"},
	}
}

func TestStore_PutAndGet(t *testing.T) {
	s := NewStore(t.TempDir())

	require.NoError(t, s.Put("default", testMessages()))

	msgs, ok := s.Get("default")
	require.True(t, ok)
	require.Len(t, msgs, 2)
	assert.Equal(t, "m1", msgs[0].ID)
	assert.Equal(t, "Issue 1", msgs[0].Subject)
}

func TestStore_MissWhenAbsent(t *testing.T) {
	s := NewStore(t.TempDir())

	_, ok := s.Get("default")
	assert.False(t, ok)
}

func TestStore_MissWhenExpired(t *testing.T) {
	current := time.Now()
	s := NewStore(t.TempDir(), WithClock(func() time.Time { return current }))

	require.NoError(t, s.Put("default", testMessages()))

	current = current.Add(11 * time.Minute)
	_, ok := s.Get("default")
	assert.False(t, ok)
}

func TestStore_HitJustBeforeExpiry(t *testing.T) {
	current := time.Now()
	s := NewStore(t.TempDir(), WithClock(func() time.Time { return current }))

	require.NoError(t, s.Put("default", testMessages()))

	current = current.Add(9 * time.Minute)
	_, ok := s.Get("default")
	assert.True(t, ok)
}

func TestStore_MissWhenEmpty(t *testing.T) {
	s := NewStore(t.TempDir())

	require.NoError(t, s.Put("default", nil))

	_, ok := s.Get("default")
	assert.False(t, ok)
}

func TestStore_MissOnCorruptFile(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)

	require.NoError(t, s.Put("default", testMessages()))
	require.NoError(t, os.WriteFile(s.path("default"), []byte("{broken"), 0600))

	_, ok := s.Get("default")
	assert.False(t, ok)
}

func TestStore_Invalidate(t *testing.T) {
	s := NewStore(t.TempDir())

	require.NoError(t, s.Put("default", testMessages()))
	require.NoError(t, s.Invalidate("default"))

	_, ok := s.Get("default")
	assert.False(t, ok)

	// Invalidating an absent snapshot is fine
	require.NoError(t, s.Invalidate("default"))
}

func TestStore_AccountsAreIsolated(t *testing.T) {
	s := NewStore(t.TempDir())

	require.NoError(t, s.Put("work", testMessages()))

	_, ok := s.Get("personal")
	assert.False(t, ok)

	msgs, ok := s.Get("work")
	assert.True(t, ok)
	assert.Len(t, msgs, 2)
}

func TestStore_CustomTTL(t *testing.T) {
	current := time.Now()
	s := NewStore(t.TempDir(),
		WithTTL(time.Minute),
		WithClock(func() time.Time { return current }),
	)

	require.NoError(t, s.Put("default", testMessages()))

	current = current.Add(2 * time.Minute)
	_, ok := s.Get("default")
	assert.False(t, ok)
}
