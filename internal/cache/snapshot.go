// Package cache keeps a short-lived snapshot of the fetched inbox on disk so
// consecutive cleany invocations within a few minutes do not refetch the same
// messages. One snapshot per account; stale or empty snapshots are treated as
// misses.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cleanymail/cleany/internal/gmail"
)

// DefaultTTL is how long a snapshot stays valid.
const DefaultTTL = 10 * time.Minute

// Snapshot is a cached inbox fetch.
type Snapshot struct {
	FetchedAt time.Time        `json:"fetched_at"`
	Messages  []*gmail.Message `json:"messages"`
}

// Store reads and writes inbox snapshots under a cache directory.
type Store struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithTTL overrides the snapshot lifetime.
func WithTTL(ttl time.Duration) StoreOption {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithClock overrides the clock. Used in tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a snapshot store rooted at dir. An empty dir falls back to
// a "cleany" directory under the user cache directory.
func NewStore(dir string, opts ...StoreOption) *Store {
	if dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			base = filepath.Join(os.Getenv("HOME"), ".cache")
		}
		dir = filepath.Join(base, "cleany")
	}
	s := &Store{
		dir: dir,
		ttl: DefaultTTL,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) path(account string) string {
	return filepath.Join(s.dir, fmt.Sprintf("inbox-%s.json", account))
}

// Get returns the cached messages for the account, or ok=false when the
// snapshot is missing, unreadable, empty or expired.
func (s *Store) Get(account string) ([]*gmail.Message, bool) {
	data, err := os.ReadFile(s.path(account))
	if err != nil {
		return nil, false
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, false
	}

	if len(snap.Messages) == 0 {
		return nil, false
	}
	if s.now().Sub(snap.FetchedAt) > s.ttl {
		return nil, false
	}

	return snap.Messages, true
}

// Put stores a fresh snapshot for the account.
func (s *Store) Put(account string, msgs []*gmail.Message) error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	snap := Snapshot{
		FetchedAt: s.now(),
		Messages:  msgs,
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	if err := os.WriteFile(s.path(account), data, 0600); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// Invalidate removes the snapshot for the account, if any.
func (s *Store) Invalidate(account string) error {
	err := os.Remove(s.path(account))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove snapshot: %w", err)
	}
	return nil
}
