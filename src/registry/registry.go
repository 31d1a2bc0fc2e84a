// Package registry holds the live connection set. It is the only shared
// mutable state besides the orchestrator's topic table cell; all reads
// return point-in-time copies so routing never iterates state under a
// writer.
package registry

import (
	"sync"

	"github.com/pulsegrid/realtime/src/connection"
	"github.com/pulsegrid/realtime/src/types"
)

type entry struct {
	conn      connection.Connection
	transport types.Transport
}

// Registry maps connection IDs to their connection record and transport.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register inserts the connection paired with its transport. Registration
// appears atomic to readers: a snapshot either contains the full entry or
// none of it.
func (r *Registry) Register(conn connection.Connection, transport types.Transport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[conn.ID] = entry{conn: conn, transport: transport}
}

// RegisterLimited inserts the pair only while fewer than limit entries
// exist; a limit of 0 means unlimited. The capacity check and the insert
// happen under one lock, so concurrent connects cannot overshoot the
// limit. Reports whether the entry was added.
func (r *Registry) RegisterLimited(conn connection.Connection, transport types.Transport, limit int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit > 0 && len(r.entries) >= limit {
		return false
	}
	r.entries[conn.ID] = entry{conn: conn, transport: transport}
	return true
}

// Unregister removes the entry for id and reports whether it was present.
// Removing an absent id is a no-op.
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[id]; !ok {
		return false
	}
	delete(r.entries, id)
	return true
}

// Find returns the connection record for id.
func (r *Registry) Find(id string) (connection.Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	return e.conn, ok
}

// Transport returns the transport handle for id.
func (r *Registry) Transport(id string) (types.Transport, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	return e.transport, ok
}

// Transports resolves ids to their transport handles, skipping ids no
// longer registered.
func (r *Registry) Transports(ids []string) []types.Transport {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.Transport, 0, len(ids))
	for _, id := range ids {
		if e, ok := r.entries[id]; ok {
			out = append(out, e.transport)
		}
	}
	return out
}

// FindByUser returns the transports of every connection owned by userID.
func (r *Registry) FindByUser(userID string) []types.Transport {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.Transport, 0)
	for _, e := range r.entries {
		if e.conn.UserID == userID {
			out = append(out, e.transport)
		}
	}
	return out
}

// FindByRole returns the transports of every connection holding role.
func (r *Registry) FindByRole(role string) []types.Transport {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.Transport, 0)
	for _, e := range r.entries {
		if e.conn.HasRole(role) {
			out = append(out, e.transport)
		}
	}
	return out
}

// All returns every registered transport.
func (r *Registry) All() []types.Transport {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.Transport, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.transport)
	}
	return out
}

// Snapshot returns a copy of every connection record, for routing.
func (r *Registry) Snapshot() []connection.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]connection.Connection, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.conn)
	}
	return out
}

// Count returns the number of registered connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
