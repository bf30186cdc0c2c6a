// Package registry holds the in-memory presence state: which drivers are
// online, their last-known location, and the live connection handle each
// one owns. It is the single shared mutable resource of the dispatch
// core and performs no I/O of its own.
package registry

import (
	"sync"
	"time"

	"github.com/example/ride-dispatch/internal/events"
	"github.com/example/ride-dispatch/internal/models"
)

// Conn is the connection handle stored per entry. Handles compare by
// identity, which is what disconnect reconciliation relies on.
type Conn interface {
	Send(env events.Envelope) error
}

type entry struct {
	conn     Conn
	presence models.DriverPresence
}

// Registry maps driver ids to live entries. All methods are safe for
// concurrent use; enumerations copy under the read lock so callers never
// observe a half-written entry and never hold the lock across sends.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

func New() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Register inserts or overwrites the entry for driverID. Overwriting is
// deliberate: a reconnecting driver replaces its stale handle.
func (r *Registry) Register(driverID string, conn Conn, loc models.Location) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[driverID] = &entry{
		conn: conn,
		presence: models.DriverPresence{
			DriverID: driverID,
			Location: loc,
			Online:   true,
			Updated:  time.Now(),
		},
	}
}

// Remove deletes the entry for driverID, returning the removed presence.
// Removing an absent id is a no-op.
func (r *Registry) Remove(driverID string) (models.DriverPresence, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[driverID]
	if !ok {
		return models.DriverPresence{}, false
	}
	delete(r.entries, driverID)
	return e.presence, true
}

// RemoveByConn deletes the entry owning the given handle, if any. This
// is the reconciliation path for abrupt disconnects: the transport only
// knows which connection died, not which driver owned it. The scan is
// linear in registry size; a reverse index would replace it at scale.
func (r *Registry) RemoveByConn(conn Conn) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, e := range r.entries {
		if e.conn == conn {
			delete(r.entries, id)
			return id, true
		}
	}
	return "", false
}

// Conn returns the live handle for driverID.
func (r *Registry) Conn(driverID string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[driverID]
	if !ok {
		return nil, false
	}
	return e.conn, true
}

// Get returns a copy of the presence entry for driverID.
func (r *Registry) Get(driverID string) (models.DriverPresence, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[driverID]
	if !ok {
		return models.DriverPresence{}, false
	}
	return e.presence, true
}

// SetLocation updates the stored location for driverID. Updating an
// absent id is a no-op and reports false.
func (r *Registry) SetLocation(driverID string, loc models.Location) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[driverID]
	if !ok {
		return false
	}
	e.presence.Location = loc
	e.presence.Updated = time.Now()
	return true
}

// OnlineDriverIDs returns the ids of all registered drivers.
func (r *Registry) OnlineDriverIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	return ids
}

// Snapshot returns a copy of every presence entry.
func (r *Registry) Snapshot() []models.DriverPresence {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.DriverPresence, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.presence)
	}
	return out
}

// Len returns the number of live entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
