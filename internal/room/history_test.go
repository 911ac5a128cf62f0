package room

import (
	"fmt"
	"testing"

	"molttown/pkg/types"
)

func TestHistoryBuffer_EvictsOldest(t *testing.T) {
	h := newHistoryBuffer(15)

	for i := 0; i < 16; i++ {
		h.Append(types.RoleUser, "anon1", fmt.Sprintf("msg%d", i))
	}

	if h.Len() != 15 {
		t.Fatalf("Len = %d, want 15", h.Len())
	}

	all := h.Last(15)
	if all[0].Text != "msg1" {
		t.Errorf("Oldest surviving entry = %q, want msg1", all[0].Text)
	}
	if all[14].Text != "msg15" {
		t.Errorf("Newest entry = %q, want msg15", all[14].Text)
	}
}

func TestHistoryBuffer_LastReturnsNewestFirstInOrder(t *testing.T) {
	h := newHistoryBuffer(15)
	h.Append(types.RoleUser, "anon1", "one")
	h.Append(types.RoleAvatar, "KingMolt", "two")
	h.Append(types.RoleUser, "anon2", "three")

	last := h.Last(2)
	if len(last) != 2 {
		t.Fatalf("Last(2) returned %d entries", len(last))
	}
	if last[0].Text != "two" || last[1].Text != "three" {
		t.Errorf("Last(2) = %v, want [two three] oldest first", last)
	}

	// Asking for more than exists returns everything.
	if got := h.Last(10); len(got) != 3 {
		t.Errorf("Last(10) returned %d entries, want 3", len(got))
	}
}
