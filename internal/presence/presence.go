// Package presence owns the online/offline lifecycle of drivers and the
// notifications that go with it. Status and location changes are always
// broadcast process-wide; any passenger-facing surface may need the full
// roster, so delivery is not targeted.
package presence

import (
	"log/slog"
	"time"

	"github.com/example/ride-dispatch/internal/events"
	"github.com/example/ride-dispatch/internal/models"
	"github.com/example/ride-dispatch/internal/observability"
	"github.com/example/ride-dispatch/internal/registry"
)

// Broadcaster delivers an event to every open connection.
type Broadcaster interface {
	Broadcast(env events.Envelope)
}

// LocationPublisher feeds the downstream location pipeline. Optional;
// publish failures never affect presence state.
type LocationPublisher interface {
	PublishLocation(u models.DriverLocationUpdate) error
}

type Manager struct {
	reg    *registry.Registry
	bus    Broadcaster
	pub    LocationPublisher
	logger *slog.Logger
}

func NewManager(reg *registry.Registry, bus Broadcaster, pub LocationPublisher, logger *slog.Logger) *Manager {
	return &Manager{reg: reg, bus: bus, pub: pub, logger: logger}
}

// MarkOnline inserts or overwrites the presence entry for driverID and
// announces the status change. A reconnecting driver simply replaces its
// previous handle.
func (m *Manager) MarkOnline(driverID string, conn registry.Conn, loc models.Location) {
	m.reg.Register(driverID, conn, loc)
	observability.DriversOnline.Set(float64(m.reg.Len()))
	m.logger.Info("driver_online", "driver_id", driverID, "lat", loc.Latitude, "lng", loc.Longitude)
	m.bus.Broadcast(events.Wrap(events.DriverStatusUpdated, events.DriverStatusUpdatedPayload{
		DriverID: driverID,
		IsOnline: true,
	}))
	m.publish(driverID, loc, true)
}

// MarkOffline removes the presence entry, if any, and announces the
// status change. Removing an absent entry is a no-op, not an error; the
// announcement still goes out because the client asked to be offline.
func (m *Manager) MarkOffline(driverID string) {
	_, removed := m.reg.Remove(driverID)
	observability.DriversOnline.Set(float64(m.reg.Len()))
	m.logger.Info("driver_offline", "driver_id", driverID, "had_entry", removed)
	m.bus.Broadcast(events.Wrap(events.DriverStatusUpdated, events.DriverStatusUpdatedPayload{
		DriverID: driverID,
		IsOnline: false,
	}))
	m.publish(driverID, models.Location{}, false)
}

// UpdateLocation records a new location for driverID and announces it.
// Updates for drivers with no live entry are dropped silently.
func (m *Manager) UpdateLocation(driverID string, loc models.Location) {
	if !m.reg.SetLocation(driverID, loc) {
		return
	}
	m.bus.Broadcast(events.Wrap(events.DriverLocationUpdated, events.DriverLocationUpdatedPayload{
		DriverID: driverID,
		Location: loc,
	}))
	m.publish(driverID, loc, true)
}

// ReconcileDisconnect removes the presence entry owned by a connection
// that just closed. An abrupt network drop is the common case, not the
// exception; a client that vanishes must not stay "online" forever.
// When the connection never announced presence there is nothing to do
// and nothing is broadcast.
func (m *Manager) ReconcileDisconnect(conn registry.Conn) {
	driverID, ok := m.reg.RemoveByConn(conn)
	if !ok {
		return
	}
	observability.DriversOnline.Set(float64(m.reg.Len()))
	observability.DisconnectReconciles.Inc()
	m.logger.Info("driver_disconnected", "driver_id", driverID)
	m.bus.Broadcast(events.Wrap(events.DriverStatusUpdated, events.DriverStatusUpdatedPayload{
		DriverID: driverID,
		IsOnline: false,
	}))
	m.publish(driverID, models.Location{}, false)
}

func (m *Manager) publish(driverID string, loc models.Location, online bool) {
	if m.pub == nil {
		return
	}
	u := models.DriverLocationUpdate{DriverID: driverID, Loc: loc, Online: online, At: time.Now()}
	if err := m.pub.PublishLocation(u); err != nil {
		m.logger.Warn("location publish failed", "driver_id", driverID, "error", err)
	}
}
