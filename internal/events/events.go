// Package events defines the wire contract of the dispatch socket: the
// envelope framing and the payloads of every inbound and outbound event.
package events

import (
	"encoding/json"
	"time"

	"github.com/example/ride-dispatch/internal/models"
)

// Inbound event identifiers.
const (
	DriverOnline   = "driver-online"
	DriverOffline  = "driver-offline"
	UpdateLocation = "update-location"
	RideRequest    = "ride-request"
	RideAccepted   = "ride-accepted"
	RideRejected   = "ride-rejected"
	RideStarted    = "ride-started"
	RideCompleted  = "ride-completed"
	RideCancel     = "ride-cancel"
	SendMessage    = "send-message"
)

// Outbound event identifiers.
const (
	DriverStatusUpdated   = "driver-status-updated"
	DriverLocationUpdated = "driver-location-updated"
	NewRideRequest        = "new-ride-request"
	RideAcceptedByDriver  = "ride-accepted-by-driver"
	RideInProgress        = "ride-in-progress"
	RideFinished          = "ride-finished"
	RideCancelled         = "ride-cancelled"
	ReceiveMessage        = "receive-message"
	RideUnavailable       = "ride-unavailable"
	Error                 = "error"
)

// Envelope frames every message in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Decode parses a raw frame into an Envelope.
func Decode(raw []byte) (Envelope, error) {
	var env Envelope
	err := json.Unmarshal(raw, &env)
	return env, err
}

// Wrap builds an outbound envelope from an event name and payload.
// Marshal errors are impossible for our payload types, so the raw data
// is returned as-is.
func Wrap(event string, payload any) Envelope {
	b, _ := json.Marshal(payload)
	return Envelope{Event: event, Data: b}
}

// Inbound payloads.

type DriverOnlinePayload struct {
	DriverID string          `json:"driverId"`
	Location models.Location `json:"location"`
}

type DriverOfflinePayload struct {
	DriverID string `json:"driverId"`
}

type UpdateLocationPayload struct {
	DriverID  string  `json:"driverId"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type RideRequestPayload struct {
	RideID            string          `json:"rideId"`
	PassengerLocation models.Location `json:"passengerLocation"`
	Destination       models.Location `json:"destination"`
	Fare              float64         `json:"fare"`
}

type RideAcceptedPayload struct {
	RideID         string          `json:"rideId"`
	DriverID       string          `json:"driverId"`
	DriverLocation models.Location `json:"driverLocation"`
}

type RideRejectedPayload struct {
	RideID   string `json:"rideId"`
	DriverID string `json:"driverId"`
}

type RideStartedPayload struct {
	RideID   string `json:"rideId"`
	DriverID string `json:"driverId"`
}

type RideCompletedPayload struct {
	RideID   string  `json:"rideId"`
	DriverID string  `json:"driverId"`
	Fare     float64 `json:"fare"`
	Rating   float64 `json:"rating"`
}

type RideCancelPayload struct {
	RideID string `json:"rideId"`
}

type SendMessagePayload struct {
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	Message    string `json:"message"`
}

// Outbound payloads.

type DriverStatusUpdatedPayload struct {
	DriverID string `json:"driverId"`
	IsOnline bool   `json:"isOnline"`
}

type DriverLocationUpdatedPayload struct {
	DriverID string          `json:"driverId"`
	Location models.Location `json:"location"`
}

type NewRideRequestPayload struct {
	RideID            string          `json:"rideId"`
	PassengerLocation models.Location `json:"passengerLocation"`
	Destination       models.Location `json:"destination"`
	Fare              float64         `json:"fare"`
	Timestamp         time.Time       `json:"timestamp"`
}

type RideAcceptedByDriverPayload struct {
	RideID         string          `json:"rideId"`
	DriverID       string          `json:"driverId"`
	DriverLocation models.Location `json:"driverLocation"`
	Timestamp      time.Time       `json:"timestamp"`
}

type RideInProgressPayload struct {
	RideID    string    `json:"rideId"`
	DriverID  string    `json:"driverId"`
	Timestamp time.Time `json:"timestamp"`
}

type RideFinishedPayload struct {
	RideID    string    `json:"rideId"`
	DriverID  string    `json:"driverId"`
	Fare      float64   `json:"fare"`
	Rating    float64   `json:"rating"`
	Timestamp time.Time `json:"timestamp"`
}

type RideCancelledPayload struct {
	RideID    string    `json:"rideId"`
	Timestamp time.Time `json:"timestamp"`
}

type ReceiveMessagePayload struct {
	SenderID  string    `json:"senderId"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type RideUnavailablePayload struct {
	RideID string `json:"rideId"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
