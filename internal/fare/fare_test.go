package fare

import (
	"testing"

	"github.com/example/ride-dispatch/internal/models"
)

func TestCalculateSplitsCommission(t *testing.T) {
	b := Calculate(15) // 15 km -> 150 total
	if b.TotalAmount != 150 || b.BaseAmount != 150 {
		t.Fatalf("unexpected total: %+v", b)
	}
	if b.Commission != 30 {
		t.Fatalf("expected 20%% commission of 30, got %f", b.Commission)
	}
	if b.DriverEarnings != 120 {
		t.Fatalf("expected driver earnings 120, got %f", b.DriverEarnings)
	}
}

func TestCommissionRoundsToWholeUnits(t *testing.T) {
	b := Calculate(1.23) // base 12.3, 20% = 2.46 -> rounds to 2
	if b.Commission != 2 {
		t.Fatalf("expected rounded commission 2, got %f", b.Commission)
	}
	if b.DriverEarnings != b.BaseAmount-b.Commission {
		t.Fatal("earnings must be base minus commission")
	}
}

func TestForTripZeroDistance(t *testing.T) {
	loc := models.Location{Latitude: 31.1, Longitude: 77.17}
	b := ForTrip(loc, loc)
	if b.TotalAmount != 0 {
		t.Fatalf("expected zero fare for zero distance, got %f", b.TotalAmount)
	}
}
