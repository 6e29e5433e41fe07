package chat

import (
	"sync"
)

// Rooms tracks which connections subscribed to which broadcast labels.
// Rooms have no stored membership of their own: one is created lazily on
// first join and forgotten when its last member leaves.
type Rooms struct {
	mu       sync.RWMutex
	byRoom   map[string]map[*Client]struct{}
	byClient map[*Client]map[string]struct{}
}

func NewRooms() *Rooms {
	return &Rooms{
		byRoom:   make(map[string]map[*Client]struct{}),
		byClient: make(map[*Client]map[string]struct{}),
	}
}

func (r *Rooms) Join(c *Client, room string) {
	if room == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	members := r.byRoom[room]
	if members == nil {
		members = make(map[*Client]struct{})
		r.byRoom[room] = members
	}
	members[c] = struct{}{}

	joined := r.byClient[c]
	if joined == nil {
		joined = make(map[string]struct{})
		r.byClient[c] = joined
	}
	joined[room] = struct{}{}
}

func (r *Rooms) Leave(c *Client, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(c, room)
}

// LeaveAll is the disconnect path: drop c from every room it joined.
func (r *Rooms) LeaveAll(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for room := range r.byClient[c] {
		r.leaveLocked(c, room)
	}
}

func (r *Rooms) leaveLocked(c *Client, room string) {
	if members := r.byRoom[room]; members != nil {
		delete(members, c)
		if len(members) == 0 {
			delete(r.byRoom, room)
		}
	}
	if joined := r.byClient[c]; joined != nil {
		delete(joined, room)
		if len(joined) == 0 {
			delete(r.byClient, c)
		}
	}
}

// Members returns a snapshot of the room's connections.
func (r *Rooms) Members(room string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := r.byRoom[room]
	if len(members) == 0 {
		return nil
	}
	out := make([]*Client, 0, len(members))
	for c := range members {
		out = append(out, c)
	}
	return out
}

// Contains reports whether c joined room.
func (r *Rooms) Contains(c *Client, room string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byClient[c][room]
	return ok
}
