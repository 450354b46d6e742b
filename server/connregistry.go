/******************************************************************************
 *
 *  Description :
 *
 *  Registry of live connections: the global live set plus per-user sets of
 *  authenticated connections.
 *
 *****************************************************************************/

package main

import (
	"sync"
)

// ConnectionRegistry tracks every open connection and, for authenticated
// connections, which user each one belongs to. A connection appears in a
// user's set iff it completed authentication as that user; it appears in the
// global set iff it is currently open.
type ConnectionRegistry struct {
	lock sync.Mutex

	// Authenticated connections indexed by user id.
	users map[int64]map[*Connection]struct{}

	// All live connections regardless of authentication state.
	live map[*Connection]struct{}
}

// NewConnectionRegistry initializes a connection registry.
func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{
		users: make(map[int64]map[*Connection]struct{}),
		live:  make(map[*Connection]struct{}),
	}
}

// Add records a freshly accepted, not yet authenticated connection.
func (r *ConnectionRegistry) Add(c *Connection) {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.live[c] = struct{}{}
}

// Register adds an authenticated connection to its user's set, creating the
// set on the user's first connection.
func (r *ConnectionRegistry) Register(userID int64, c *Connection) {
	r.lock.Lock()
	defer r.lock.Unlock()

	group := r.users[userID]
	if group == nil {
		group = make(map[*Connection]struct{})
		r.users[userID] = group
	}
	group[c] = struct{}{}
	// A connection registered without Add, e.g. in tests, still counts as live.
	r.live[c] = struct{}{}
}

// Remove drops a connection from the global set unconditionally and, when
// userID is non-zero, from that user's set, deleting the set once empty.
// Returns the number of connections the user still has.
func (r *ConnectionRegistry) Remove(userID int64, c *Connection) int {
	r.lock.Lock()
	defer r.lock.Unlock()

	delete(r.live, c)

	if userID == 0 {
		return 0
	}
	group := r.users[userID]
	if group == nil {
		return 0
	}
	delete(group, c)
	if len(group) == 0 {
		delete(r.users, userID)
		return 0
	}
	return len(group)
}

// ConnectionsOf returns a snapshot of the user's live connections. May be
// empty if the user is offline.
func (r *ConnectionRegistry) ConnectionsOf(userID int64) []*Connection {
	r.lock.Lock()
	defer r.lock.Unlock()

	group := r.users[userID]
	if len(group) == 0 {
		return nil
	}
	conns := make([]*Connection, 0, len(group))
	for c := range group {
		conns = append(conns, c)
	}
	return conns
}

// BroadcastSet returns a snapshot of all live connections.
func (r *ConnectionRegistry) BroadcastSet() []*Connection {
	r.lock.Lock()
	defer r.lock.Unlock()

	conns := make([]*Connection, 0, len(r.live))
	for c := range r.live {
		conns = append(conns, c)
	}
	return conns
}

// OnlineUserCount reports the number of distinct users with at least one
// authenticated connection.
func (r *ConnectionRegistry) OnlineUserCount() int {
	r.lock.Lock()
	defer r.lock.Unlock()

	return len(r.users)
}

// TotalConnectionCount reports the number of live connections.
func (r *ConnectionRegistry) TotalConnectionCount() int {
	r.lock.Lock()
	defer r.lock.Unlock()

	return len(r.live)
}
