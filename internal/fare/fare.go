// Package fare computes the platform fare split for a trip.
package fare

import (
	"math"

	"github.com/example/ride-dispatch/internal/geo"
	"github.com/example/ride-dispatch/internal/models"
)

const (
	// BaseRatePerKm is the flat distance rate charged to the passenger.
	BaseRatePerKm = 10.0
	// CommissionRate is the platform's cut of the base amount.
	CommissionRate = 0.20
)

// Calculate splits a distance-based fare between platform and driver.
// The commission is rounded to the nearest whole unit, matching how it
// is settled into the driver's wallet.
func Calculate(distanceKm float64) models.FareBreakdown {
	base := distanceKm * BaseRatePerKm
	commission := math.Round(base * CommissionRate)
	return models.FareBreakdown{
		BaseAmount:     base,
		Commission:     commission,
		DriverEarnings: base - commission,
		TotalAmount:    base,
	}
}

// ForTrip estimates the fare for a pickup/dropoff pair using the
// straight-line distance.
func ForTrip(pickup, dropoff models.Location) models.FareBreakdown {
	return Calculate(geo.DistanceKm(pickup, dropoff))
}
