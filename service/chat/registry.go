package chat

import (
	"sync"
)

// Registry maps each identity to its single authoritative connection.
// Registering an identity again replaces the previous mapping (last setup
// wins); the superseded connection stays open but is no longer a delivery
// target. Process-local only.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]*Client // user -> authoritative conn
	byConn map[string]*Client // conn_id -> conn
}

func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[string]*Client),
		byConn: make(map[string]*Client),
	}
}

func (r *Registry) Register(identity string, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byUser[identity] = c
	r.byConn[c.ConnID] = c
}

// Unregister removes c's entries. The identity mapping is removed only when
// it still points at c, so a superseded connection disconnecting later cannot
// evict its replacement.
func (r *Registry) Unregister(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.UserID != "" && r.byUser[c.UserID] == c {
		delete(r.byUser, c.UserID)
	}
	delete(r.byConn, c.ConnID)
}

// Lookup returns the authoritative connection for identity, or nil.
func (r *Registry) Lookup(identity string) *Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byUser[identity]
}

func (r *Registry) GetByConnID(connID string) *Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byConn[connID]
}

// Size reports the number of identified connections.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}
