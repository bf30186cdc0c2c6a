// Package ws owns the socket connection lifecycle: accept, read loop,
// event routing, and the disconnect reconciliation that keeps presence
// state consistent when clients vanish without saying goodbye.
package ws

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/example/ride-dispatch/internal/events"
	"github.com/example/ride-dispatch/internal/models"
	"github.com/example/ride-dispatch/internal/observability"
	"github.com/example/ride-dispatch/internal/presence"
	"github.com/example/ride-dispatch/internal/relay"
	"github.com/example/ride-dispatch/internal/rides"
)

type Supervisor struct {
	hub      *Hub
	presence *presence.Manager
	rides    *rides.Coordinator
	relay    *relay.Relay

	queueSize    int
	writeTimeout time.Duration
	logger       *slog.Logger
}

func NewSupervisor(hub *Hub, pm *presence.Manager, rc *rides.Coordinator, rl *relay.Relay, queueSize int, writeTimeout time.Duration, logger *slog.Logger) *Supervisor {
	return &Supervisor{
		hub:          hub,
		presence:     pm,
		rides:        rc,
		relay:        rl,
		queueSize:    queueSize,
		writeTimeout: writeTimeout,
		logger:       logger,
	}
}

// ServeConn runs the full lifecycle of one connection: register with the
// hub, pump the read loop, and on exit reconcile any presence entry the
// connection still owns. It returns when the connection closes.
func (sv *Supervisor) ServeConn(conn *websocket.Conn, subject string) {
	s := newSession(conn, sv.queueSize, sv.writeTimeout, sv.logger)
	sv.hub.add(s)
	go s.writePump()

	sv.logger.Info("connection open", "subject", subject, "remote", conn.RemoteAddr().String())

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}
		sv.dispatch(s, raw)
	}

	sv.hub.remove(s)
	s.close()
	sv.presence.ReconcileDisconnect(s)
	sv.logger.Info("connection closed", "subject", subject)
}

// dispatch routes one inbound frame. Malformed frames are dropped with a
// targeted error event; nothing on this path may take the loop down.
func (sv *Supervisor) dispatch(s *Session, raw []byte) {
	env, err := events.Decode(raw)
	if err != nil || env.Event == "" {
		sv.reject(s, "malformed event frame")
		return
	}

	switch env.Event {
	case events.DriverOnline:
		var p events.DriverOnlinePayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.DriverID == "" {
			sv.reject(s, "driver-online requires driverId")
			return
		}
		sv.presence.MarkOnline(p.DriverID, s, p.Location)

	case events.DriverOffline:
		var p events.DriverOfflinePayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.DriverID == "" {
			sv.reject(s, "driver-offline requires driverId")
			return
		}
		sv.presence.MarkOffline(p.DriverID)

	case events.UpdateLocation:
		var p events.UpdateLocationPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.DriverID == "" {
			sv.reject(s, "update-location requires driverId")
			return
		}
		sv.presence.UpdateLocation(p.DriverID, models.Location{Latitude: p.Latitude, Longitude: p.Longitude})

	case events.RideRequest:
		var p events.RideRequestPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.RideID == "" {
			sv.reject(s, "ride-request requires rideId")
			return
		}
		if err := sv.rides.Submit(p.RideID, "", p.PassengerLocation, p.Destination, p.Fare); err != nil {
			sv.reject(s, err.Error())
		}

	case events.RideAccepted:
		var p events.RideAcceptedPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.RideID == "" || p.DriverID == "" {
			sv.reject(s, "ride-accepted requires rideId and driverId")
			return
		}
		if sv.rides.Accept(p.RideID, p.DriverID, p.DriverLocation) == rides.AcceptLost {
			// only the late caller hears about this
			_ = s.Send(events.Wrap(events.RideUnavailable, events.RideUnavailablePayload{RideID: p.RideID}))
		}

	case events.RideRejected:
		var p events.RideRejectedPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.RideID == "" {
			sv.reject(s, "ride-rejected requires rideId")
			return
		}
		sv.rides.Reject(p.RideID, p.DriverID)

	case events.RideStarted:
		var p events.RideStartedPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.RideID == "" {
			sv.reject(s, "ride-started requires rideId")
			return
		}
		sv.rides.Start(p.RideID, p.DriverID)

	case events.RideCompleted:
		var p events.RideCompletedPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.RideID == "" {
			sv.reject(s, "ride-completed requires rideId")
			return
		}
		sv.rides.Complete(p.RideID, p.DriverID, p.Fare, p.Rating)

	case events.RideCancel:
		var p events.RideCancelPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.RideID == "" {
			sv.reject(s, "ride-cancel requires rideId")
			return
		}
		sv.rides.Cancel(p.RideID)

	case events.SendMessage:
		var p events.SendMessagePayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.ReceiverID == "" {
			sv.reject(s, "send-message requires receiverId")
			return
		}
		sv.relay.Send(p.SenderID, p.ReceiverID, p.Message)

	default:
		sv.reject(s, "unknown event: "+env.Event)
	}
}

func (sv *Supervisor) reject(s *Session, msg string) {
	observability.InvalidEventsTotal.Inc()
	sv.logger.Debug("event rejected", "reason", msg)
	_ = s.Send(events.Wrap(events.Error, events.ErrorPayload{Message: msg}))
}
