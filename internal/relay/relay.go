// Package relay delivers point-to-point messages between connected
// identities. Unlike presence and ride events this is always targeted,
// never broadcast, and there is no delivery guarantee: a receiver with
// no registry entry simply never sees the message.
package relay

import (
	"log/slog"
	"time"

	"github.com/example/ride-dispatch/internal/events"
	"github.com/example/ride-dispatch/internal/observability"
	"github.com/example/ride-dispatch/internal/registry"
)

// Lookup resolves an identity to its live connection handle.
type Lookup interface {
	Conn(id string) (registry.Conn, bool)
}

type Relay struct {
	reg    Lookup
	logger *slog.Logger
}

func New(reg Lookup, logger *slog.Logger) *Relay {
	return &Relay{reg: reg, logger: logger}
}

// Send delivers message to receiverID's connection. Absent receivers and
// failed writes are dropped silently; the sender is never told.
func (r *Relay) Send(senderID, receiverID, message string) {
	conn, ok := r.reg.Conn(receiverID)
	if !ok {
		observability.MessagesDroppedTotal.Inc()
		r.logger.Debug("message dropped, receiver offline", "sender_id", senderID, "receiver_id", receiverID)
		return
	}
	env := events.Wrap(events.ReceiveMessage, events.ReceiveMessagePayload{
		SenderID:  senderID,
		Message:   message,
		Timestamp: time.Now(),
	})
	if err := conn.Send(env); err != nil {
		observability.MessagesDroppedTotal.Inc()
		r.logger.Debug("message send failed", "receiver_id", receiverID, "error", err)
		return
	}
	observability.MessagesRelayedTotal.Inc()
}
