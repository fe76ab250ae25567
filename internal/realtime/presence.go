package realtime

import "sync"

// Registry tracks which authenticated identities currently hold live
// connections. It owns its lifecycle: connections are inserted on a
// successful handshake and removed on disconnect, and callers query it
// instead of touching shared state.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]map[*Client]struct{}
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]map[*Client]struct{})}
}

func (r *Registry) Add(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.conns[c.UserID]
	if !ok {
		set = make(map[*Client]struct{})
		r.conns[c.UserID] = set
	}
	set[c] = struct{}{}
}

func (r *Registry) Remove(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if set, ok := r.conns[c.UserID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(r.conns, c.UserID)
		}
	}
}

// Online reports whether the identity has at least one live connection.
func (r *Registry) Online(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns[userID]) > 0
}

// Clients returns the live connections for an identity.
func (r *Registry) Clients(userID string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Client, 0, len(r.conns[userID]))
	for c := range r.conns[userID] {
		out = append(out, c)
	}
	return out
}

// OnlineCount returns how many distinct identities are connected.
func (r *Registry) OnlineCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
