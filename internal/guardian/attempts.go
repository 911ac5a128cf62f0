package guardian

import (
	"sync"
)

// AttemptStore tracks cumulative suspicious-message counts per
// (userID, avatar) pair. Counts only ever go up and are never reset; the
// store lives for the process, matching the original town behavior.
type AttemptStore struct {
	mu     sync.RWMutex
	counts map[string]int
}

// NewAttemptStore creates an empty store.
func NewAttemptStore() *AttemptStore {
	return &AttemptStore{counts: make(map[string]int)}
}

func attemptKey(userID, avatar string) string {
	return userID + "\x00" + avatar
}

// Record returns the count accumulated before this message and, when the
// message is suspicious, increments the counter. The pre-increment value is
// what drives the reveal decision: the Nth suspicious attempt is judged
// against the N-1 attempts that preceded it.
func (s *AttemptStore) Record(userID, avatar string, suspicious bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := attemptKey(userID, avatar)
	prior := s.counts[key]
	if suspicious {
		s.counts[key] = prior + 1
	}
	return prior
}

// Count returns the current attempt count for a (user, avatar) pair.
func (s *AttemptStore) Count(userID, avatar string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counts[attemptKey(userID, avatar)]
}

// Size returns the number of tracked (user, avatar) pairs.
func (s *AttemptStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.counts)
}
