package ws

import (
	"sync"

	"github.com/example/ride-dispatch/internal/events"
	"github.com/example/ride-dispatch/internal/observability"
)

// Hub tracks every open session, including ones that never announced
// presence, and fans events out to all of them. It is the Broadcaster
// behind the presence manager and the ride coordinator.
type Hub struct {
	mu       sync.RWMutex
	sessions map[*Session]struct{}
}

func NewHub() *Hub {
	return &Hub{sessions: make(map[*Session]struct{})}
}

func (h *Hub) add(s *Session) {
	h.mu.Lock()
	h.sessions[s] = struct{}{}
	h.mu.Unlock()
	observability.ConnectionsActive.Set(float64(h.Len()))
}

func (h *Hub) remove(s *Session) {
	h.mu.Lock()
	delete(h.sessions, s)
	h.mu.Unlock()
	observability.ConnectionsActive.Set(float64(h.Len()))
}

// Broadcast delivers env to every open session. The session set is
// snapshotted first so no lock is held across sends and new connections
// are never blocked from registering mid-broadcast.
func (h *Hub) Broadcast(env events.Envelope) {
	h.mu.RLock()
	targets := make([]*Session, 0, len(h.sessions))
	for s := range h.sessions {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	observability.BroadcastsTotal.Inc()
	for _, s := range targets {
		_ = s.Send(env)
	}
}

// Len returns the number of open sessions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}
