package geo

import (
	"testing"

	"github.com/example/ride-dispatch/internal/models"
)

func TestHaversineZero(t *testing.T) {
	d := Haversine(0, 0, 0, 0)
	if d != 0 {
		t.Fatalf("expected 0, got %f", d)
	}
}

func TestDistanceKmEquator(t *testing.T) {
	// one degree of longitude at the equator is ~111.19 km
	d := DistanceKm(models.Location{}, models.Location{Longitude: 1})
	if d < 111 || d > 112 {
		t.Fatalf("expected ~111 km, got %f", d)
	}
}
