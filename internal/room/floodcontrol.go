package room

import (
	"math/rand"
	"strings"
	"time"
)

// floodTimerSlack is added to the remaining cooldown when scheduling a
// backlog timer, so the timer always fires on the far side of the window.
const floodTimerSlack = 100 * time.Millisecond

// pendingMessage is one addressed message waiting for a reply slot.
type pendingMessage struct {
	text   string
	userID string
	at     time.Time
}

// floodState is one avatar's cadence record. An avatar is either idle or
// has exactly one timer scheduled; it never double-schedules.
type floodState struct {
	lastReply time.Time
	backlog   []pendingMessage
	scheduled bool
}

// floodControl bounds each avatar's reply cadence. Messages arriving inside
// the cooldown pile into a backlog; when the timer fires, one backlog entry
// is chosen uniformly at random and the rest are discarded. The random pick
// is deliberate: under a flood the avatar "overhears" an arbitrary message
// instead of always answering the first.
//
// All state is owned by the room loop; no locking.
type floodControl struct {
	cooldown time.Duration
	states   map[string]*floodState
}

func newFloodControl(cooldown time.Duration) *floodControl {
	return &floodControl{
		cooldown: cooldown,
		states:   make(map[string]*floodState),
	}
}

func (f *floodControl) state(avatar string) *floodState {
	key := strings.ToLower(avatar)
	st, ok := f.states[key]
	if !ok {
		st = &floodState{}
		f.states[key] = st
	}
	return st
}

// Offer routes one addressed message. When the avatar is out of cooldown it
// stamps lastReply and reports fire=true: the caller replies immediately.
// Otherwise the message is queued, and schedule=true with the wait duration
// is reported only if no timer is pending for this avatar yet.
func (f *floodControl) Offer(avatar string, p pendingMessage) (fire bool, wait time.Duration, schedule bool) {
	st := f.state(avatar)

	if p.at.Sub(st.lastReply) >= f.cooldown {
		st.lastReply = p.at
		return true, 0, false
	}

	st.backlog = append(st.backlog, p)
	if !st.scheduled {
		st.scheduled = true
		remaining := f.cooldown - p.at.Sub(st.lastReply)
		return false, remaining + floodTimerSlack, true
	}
	return false, 0, false
}

// TakeOne handles a timer firing: picks one random backlog entry, discards
// the rest, stamps lastReply, and clears the scheduled flag. Returns false
// when the backlog is empty.
func (f *floodControl) TakeOne(avatar string, now time.Time, rng *rand.Rand) (pendingMessage, bool) {
	st := f.state(avatar)
	st.scheduled = false

	if len(st.backlog) == 0 {
		return pendingMessage{}, false
	}

	pick := st.backlog[rng.Intn(len(st.backlog))]
	st.backlog = nil
	st.lastReply = now
	return pick, true
}
