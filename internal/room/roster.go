package room

import (
	"math/rand"
	"strings"
	"sync"

	"molttown/pkg/types"
)

// Roster is the insertion-ordered set of known avatars. The front end pushes
// full replacements; permanent records (the seeded guardians) survive each
// replace so they stay addressable even when a push omits them.
type Roster struct {
	mu    sync.RWMutex
	order []types.AgentRecord
	index map[string]int // lowercased name -> position in order
}

// NewRoster creates an empty roster.
func NewRoster() *Roster {
	return &Roster{index: make(map[string]int)}
}

// Seed inserts records before the room starts. Seeded records are marked
// permanent.
func (r *Roster) Seed(agents ...types.AgentRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range agents {
		a.Permanent = true
		r.insert(a)
	}
}

// insert appends or overwrites by name. Caller holds the lock.
func (r *Roster) insert(a types.AgentRecord) {
	key := strings.ToLower(a.Name)
	if pos, ok := r.index[key]; ok {
		r.order[pos] = a
		return
	}
	r.index[key] = len(r.order)
	r.order = append(r.order, a)
}

// Replace swaps the entire roster for the pushed set. Last write wins, no
// merging: the previous entries are cleared, then the push is inserted in
// its own order, then any previously known permanent record missing from the
// push is re-appended.
func (r *Roster) Replace(agents []types.AgentRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var permanent []types.AgentRecord
	for _, a := range r.order {
		if a.Permanent {
			permanent = append(permanent, a)
		}
	}

	r.order = r.order[:0]
	r.index = make(map[string]int, len(agents))
	for _, a := range agents {
		r.insert(a)
	}
	for _, a := range permanent {
		if _, ok := r.index[strings.ToLower(a.Name)]; !ok {
			r.insert(a)
		}
	}
}

// Get returns the record whose name matches exactly, case-insensitively.
func (r *Roster) Get(name string) (types.AgentRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if pos, ok := r.index[strings.ToLower(name)]; ok {
		return r.order[pos], true
	}
	return types.AgentRecord{}, false
}

// Len returns the roster size.
func (r *Roster) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// All returns a copy of the roster in insertion order.
func (r *Roster) All() []types.AgentRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.AgentRecord, len(r.order))
	copy(out, r.order)
	return out
}

// Random picks a uniformly random record whose lowercased name is not in
// exclude. Returns false when no candidate remains.
func (r *Roster) Random(rng *rand.Rand, exclude map[string]bool) (types.AgentRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	candidates := make([]types.AgentRecord, 0, len(r.order))
	for _, a := range r.order {
		if !exclude[strings.ToLower(a.Name)] {
			candidates = append(candidates, a)
		}
	}
	if len(candidates) == 0 {
		return types.AgentRecord{}, false
	}
	return candidates[rng.Intn(len(candidates))], true
}
