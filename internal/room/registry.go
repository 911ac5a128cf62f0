package room

import (
	"sync"
)

// Client is an open channel to one human visitor. The websocket layer
// provides the production implementation; tests provide fakes.
type Client interface {
	ID() string
	Send(v any) error
}

// registry tracks live connections. It has its own lock because the stats
// endpoint reads the count from outside the room loop.
type registry struct {
	mu      sync.RWMutex
	clients map[string]Client
}

func newRegistry() *registry {
	return &registry{clients: make(map[string]Client)}
}

func (r *registry) add(c Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c.ID()] = c
}

func (r *registry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, id)
}

func (r *registry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// each calls fn for every live connection. Delivery failures are the
// caller's concern; a dead connection is removed by its own read pump.
func (r *registry) each(fn func(Client)) {
	r.mu.RLock()
	snapshot := make([]Client, 0, len(r.clients))
	for _, c := range r.clients {
		snapshot = append(snapshot, c)
	}
	r.mu.RUnlock()

	for _, c := range snapshot {
		fn(c)
	}
}
