package room

import (
	"molttown/pkg/types"
)

// historyBuffer is the shared conversational context: a bounded FIFO of
// chat entries across all users and avatars. Oldest entries are evicted on
// overflow. Loop-owned, no locking.
type historyBuffer struct {
	entries  []types.ChatEntry
	capacity int
}

func newHistoryBuffer(capacity int) *historyBuffer {
	return &historyBuffer{capacity: capacity}
}

func (h *historyBuffer) Append(role, name, text string) {
	h.entries = append(h.entries, types.ChatEntry{Role: role, Name: name, Text: text})
	if len(h.entries) > h.capacity {
		h.entries = h.entries[len(h.entries)-h.capacity:]
	}
}

// Last returns a copy of the newest n entries, oldest first.
func (h *historyBuffer) Last(n int) []types.ChatEntry {
	if n > len(h.entries) {
		n = len(h.entries)
	}
	out := make([]types.ChatEntry, n)
	copy(out, h.entries[len(h.entries)-n:])
	return out
}

func (h *historyBuffer) Len() int {
	return len(h.entries)
}
