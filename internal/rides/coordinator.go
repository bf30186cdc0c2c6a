// Package rides implements the broadcast matching protocol: a submitted
// request fans out to every connection, competing accepts race, and the
// first one to remove the live record wins. Removal under the coordinator
// lock is the only serialization point, so two drivers can never both be
// told they won.
package rides

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/example/ride-dispatch/internal/events"
	"github.com/example/ride-dispatch/internal/models"
	"github.com/example/ride-dispatch/internal/observability"
	"github.com/example/ride-dispatch/internal/storage"
)

// ErrDuplicateRide reports a submit for a rideId that already has a live
// record. The existing record is left untouched.
var ErrDuplicateRide = errors.New("ride already requested")

// AcceptResult is the outcome of an accept attempt.
type AcceptResult int

const (
	// AcceptWon: this accept removed the record and was broadcast.
	AcceptWon AcceptResult = iota
	// AcceptLost: the record was already gone. Nothing is broadcast;
	// the caller alone should be told the ride is taken.
	AcceptLost
)

// Broadcaster delivers an event to every open connection.
type Broadcaster interface {
	Broadcast(env events.Envelope)
}

// Coordinator holds the live ride request records. There is no expiry:
// an unaccepted request stays live until the submitter cancels it.
type Coordinator struct {
	mu       sync.Mutex
	requests map[string]*models.RideRequestRecord

	bus    Broadcaster
	store  storage.RideStore
	logger *slog.Logger
}

func NewCoordinator(bus Broadcaster, store storage.RideStore, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		requests: make(map[string]*models.RideRequestRecord),
		bus:      bus,
		store:    store,
		logger:   logger,
	}
}

// Submit registers a new ride request and broadcasts it to all open
// connections. passengerID may be empty when the request arrives over
// the socket surface; it is only carried into the audit record.
func (c *Coordinator) Submit(rideID, passengerID string, pickup, dropoff models.Location, fare float64) error {
	rec := &models.RideRequestRecord{
		RideID:            rideID,
		PassengerLocation: pickup,
		Destination:       dropoff,
		Fare:              fare,
		CreatedAt:         time.Now(),
	}

	c.mu.Lock()
	if _, exists := c.requests[rideID]; exists {
		c.mu.Unlock()
		return ErrDuplicateRide
	}
	c.requests[rideID] = rec
	c.mu.Unlock()

	observability.RideRequestsTotal.Inc()
	c.logger.Info("ride_requested", "ride_id", rideID, "fare", fare)
	c.bus.Broadcast(events.Wrap(events.NewRideRequest, events.NewRideRequestPayload{
		RideID:            rideID,
		PassengerLocation: pickup,
		Destination:       dropoff,
		Fare:              fare,
		Timestamp:         rec.CreatedAt,
	}))

	if err := c.store.SaveRide(&models.Ride{
		ID:          rideID,
		PassengerID: passengerID,
		Pickup:      pickup,
		Dropoff:     dropoff,
		Fare:        fare,
		Status:      "requested",
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.CreatedAt,
	}); err != nil {
		c.logger.Warn("ride audit save failed", "ride_id", rideID, "error", err)
	}
	return nil
}

// Accept resolves the race for rideID. The check and the removal happen
// as one step under the lock; every later accept sees the record gone
// and returns AcceptLost without broadcasting anything.
func (c *Coordinator) Accept(rideID, driverID string, driverLoc models.Location) AcceptResult {
	c.mu.Lock()
	rec, ok := c.requests[rideID]
	if ok {
		delete(c.requests, rideID)
	}
	c.mu.Unlock()

	if !ok {
		observability.RideAcceptConflicts.Inc()
		c.logger.Debug("accept after resolution", "ride_id", rideID, "driver_id", driverID)
		return AcceptLost
	}

	observability.RideAcceptsTotal.Inc()
	c.logger.Info("ride_accepted", "ride_id", rideID, "driver_id", driverID,
		"waited_ms", time.Since(rec.CreatedAt).Milliseconds())
	c.bus.Broadcast(events.Wrap(events.RideAcceptedByDriver, events.RideAcceptedByDriverPayload{
		RideID:         rideID,
		DriverID:       driverID,
		DriverLocation: driverLoc,
		Timestamp:      time.Now(),
	}))

	if err := c.store.UpdateRide(&models.Ride{
		ID:        rideID,
		DriverID:  driverID,
		Fare:      rec.Fare,
		Status:    "accepted",
		UpdatedAt: time.Now(),
	}); err != nil {
		c.logger.Warn("ride audit update failed", "ride_id", rideID, "error", err)
	}
	return AcceptWon
}

// Reject is logged only. The record stays live for every other driver.
func (c *Coordinator) Reject(rideID, driverID string) {
	observability.RideRejectionsTotal.Inc()
	c.logger.Info("ride_rejected", "ride_id", rideID, "driver_id", driverID)
}

// Cancel withdraws an unresolved request. Cancelling a rideId with no
// live record is a no-op and reports false.
func (c *Coordinator) Cancel(rideID string) bool {
	c.mu.Lock()
	_, ok := c.requests[rideID]
	if ok {
		delete(c.requests, rideID)
	}
	c.mu.Unlock()
	if !ok {
		return false
	}

	c.logger.Info("ride_cancelled", "ride_id", rideID)
	c.bus.Broadcast(events.Wrap(events.RideCancelled, events.RideCancelledPayload{
		RideID:    rideID,
		Timestamp: time.Now(),
	}))
	if err := c.store.UpdateRide(&models.Ride{ID: rideID, Status: "cancelled", UpdatedAt: time.Now()}); err != nil {
		c.logger.Warn("ride audit update failed", "ride_id", rideID, "error", err)
	}
	return true
}

// Start rebroadcasts a driver's ride-started signal as ride-in-progress.
func (c *Coordinator) Start(rideID, driverID string) {
	c.logger.Info("ride_started", "ride_id", rideID, "driver_id", driverID)
	c.bus.Broadcast(events.Wrap(events.RideInProgress, events.RideInProgressPayload{
		RideID:    rideID,
		DriverID:  driverID,
		Timestamp: time.Now(),
	}))
	if err := c.store.UpdateRide(&models.Ride{ID: rideID, DriverID: driverID, Status: "ongoing", UpdatedAt: time.Now()}); err != nil {
		c.logger.Warn("ride audit update failed", "ride_id", rideID, "error", err)
	}
}

// Complete rebroadcasts a driver's ride-completed signal as ride-finished.
func (c *Coordinator) Complete(rideID, driverID string, fare, rating float64) {
	c.logger.Info("ride_completed", "ride_id", rideID, "driver_id", driverID, "fare", fare)
	c.bus.Broadcast(events.Wrap(events.RideFinished, events.RideFinishedPayload{
		RideID:    rideID,
		DriverID:  driverID,
		Fare:      fare,
		Rating:    rating,
		Timestamp: time.Now(),
	}))
	if err := c.store.UpdateRide(&models.Ride{ID: rideID, DriverID: driverID, Fare: fare, Rating: rating, Status: "completed", UpdatedAt: time.Now()}); err != nil {
		c.logger.Warn("ride audit update failed", "ride_id", rideID, "error", err)
	}
}

// Live reports whether rideID still has an unresolved record.
func (c *Coordinator) Live(rideID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.requests[rideID]
	return ok
}

// Pending returns the number of unresolved requests.
func (c *Coordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}
