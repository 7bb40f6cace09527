// Package memory keeps short-term conversation history per (community, user).
// Nothing here survives a restart; that is deliberate.
package memory

import (
	"sync"
	"time"
)

// Turn is one message as seen by the model call.
type Turn struct {
	Role    string `json:"role"` // user or assistant
	Content string `json:"content"`
}

type entry struct {
	role    string
	content string
	ts      time.Time
}

// Store is a bounded rolling history. Each (community, user) bucket holds at
// most maxRounds request/response pairs, and entries older than ttl are
// dropped before every read.
type Store struct {
	mu      sync.Mutex
	buckets map[string]map[int64][]entry

	maxRounds int
	ttl       time.Duration
	now       func() time.Time
}

func New(maxRounds int, ttl time.Duration) *Store {
	if maxRounds <= 0 {
		maxRounds = 5
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Store{
		buckets:   make(map[string]map[int64][]entry),
		maxRounds: maxRounds,
		ttl:       ttl,
		now:       time.Now,
	}
}

func (s *Store) maxEntries() int {
	return s.maxRounds * 2
}

// Append records a turn and immediately caps the bucket, evicting oldest
// entries first.
func (s *Store) Append(community string, userID int64, role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, ok := s.buckets[community]
	if !ok {
		users = make(map[int64][]entry)
		s.buckets[community] = users
	}

	history := append(users[userID], entry{role: role, content: content, ts: s.now()})
	if len(history) > s.maxEntries() {
		history = history[len(history)-s.maxEntries():]
	}
	users[userID] = history
}

// History prunes expired entries, caps the bucket to the most recent rounds,
// writes the pruned list back, and returns the surviving turns oldest first.
func (s *Store) History(community string, userID int64) []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, ok := s.buckets[community]
	if !ok {
		return nil
	}

	now := s.now()
	history := users[userID]

	kept := history[:0]
	for _, e := range history {
		if now.Sub(e.ts) < s.ttl {
			kept = append(kept, e)
		}
	}
	if len(kept) > s.maxEntries() {
		kept = kept[len(kept)-s.maxEntries():]
	}
	users[userID] = kept

	turns := make([]Turn, len(kept))
	for i, e := range kept {
		turns[i] = Turn{Role: e.role, Content: e.content}
	}
	return turns
}

// Clear drops one user's history.
func (s *Store) Clear(community string, userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if users, ok := s.buckets[community]; ok {
		delete(users, userID)
	}
}
