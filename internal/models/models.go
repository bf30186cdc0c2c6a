package models

import "time"

// Location is a WGS84 point as carried on the wire.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// DriverPresence is the live registry entry for a connected driver.
// At most one entry exists per driver id; the connection handle itself
// is held by the registry alongside this record.
type DriverPresence struct {
	DriverID string    `json:"driverId"`
	Location Location  `json:"location"`
	Online   bool      `json:"isOnline"`
	Updated  time.Time `json:"updated"`
}

// RideRequestRecord is the unresolved state of a dispatch request. It
// exists from submission until the first accept (or an explicit cancel)
// removes it; removal is the serialization point for the accept race.
type RideRequestRecord struct {
	RideID            string
	PassengerLocation Location
	Destination       Location
	Fare              float64
	CreatedAt         time.Time
}

// FareBreakdown is the platform fare split: a distance-based total with
// the commission withheld from the driver's share.
type FareBreakdown struct {
	BaseAmount     float64 `json:"baseAmount"`
	Commission     float64 `json:"commission"`
	DriverEarnings float64 `json:"driverEarnings"`
	TotalAmount    float64 `json:"totalAmount"`
}

// Ride is the audit record written behind the coordinator. Dispatch
// correctness never depends on it; every write is best-effort.
type Ride struct {
	ID          string
	PassengerID string
	DriverID    string
	Pickup      Location
	Dropoff     Location
	Fare        float64
	Rating      float64
	Status      string // requested, accepted, ongoing, completed, cancelled
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DriverLocationUpdate is the message published to the location pipeline
// and consumed by the Redis mirror.
type DriverLocationUpdate struct {
	DriverID string    `json:"driverId"`
	Loc      Location  `json:"location"`
	Online   bool      `json:"online"`
	At       time.Time `json:"at"`
}
