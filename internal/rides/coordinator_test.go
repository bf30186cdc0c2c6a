package rides

import (
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/example/ride-dispatch/internal/events"
	"github.com/example/ride-dispatch/internal/models"
	"github.com/example/ride-dispatch/internal/storage"
)

type fakeBus struct {
	mu   sync.Mutex
	sent []events.Envelope
}

func (f *fakeBus) Broadcast(env events.Envelope) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, env)
}

func (f *fakeBus) byEvent(name string) []events.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []events.Envelope
	for _, e := range f.sent {
		if e.Event == name {
			out = append(out, e)
		}
	}
	return out
}

func newTestCoordinator() (*Coordinator, *fakeBus) {
	bus := &fakeBus{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewCoordinator(bus, storage.NewMemoryStore(), logger), bus
}

func TestSubmitBroadcastsToAll(t *testing.T) {
	c, bus := newTestCoordinator()
	err := c.Submit("R1", "p1", models.Location{Latitude: 10, Longitude: 20}, models.Location{Latitude: 11}, 150)
	if err != nil {
		t.Fatal(err)
	}
	got := bus.byEvent(events.NewRideRequest)
	if len(got) != 1 {
		t.Fatalf("expected 1 broadcast, got %d", len(got))
	}
	var p events.NewRideRequestPayload
	if err := json.Unmarshal(got[0].Data, &p); err != nil {
		t.Fatal(err)
	}
	if p.RideID != "R1" || p.Fare != 150 || p.Timestamp.IsZero() {
		t.Fatalf("unexpected payload: %+v", p)
	}
}

func TestDuplicateSubmitRejectedWithoutMutation(t *testing.T) {
	c, bus := newTestCoordinator()
	if err := c.Submit("R2", "", models.Location{Latitude: 1}, models.Location{}, 100); err != nil {
		t.Fatal(err)
	}
	if err := c.Submit("R2", "", models.Location{Latitude: 9}, models.Location{}, 999); err != ErrDuplicateRide {
		t.Fatalf("expected ErrDuplicateRide, got %v", err)
	}
	if len(bus.byEvent(events.NewRideRequest)) != 1 {
		t.Fatal("duplicate submit must not broadcast")
	}
	// the original record resolves with its original fare
	if c.Accept("R2", "d1", models.Location{}) != AcceptWon {
		t.Fatal("original record should still be live")
	}
}

func TestConcurrentAcceptsSingleWinner(t *testing.T) {
	c, bus := newTestCoordinator()
	if err := c.Submit("R1", "", models.Location{Latitude: 10, Longitude: 20}, models.Location{}, 150); err != nil {
		t.Fatal(err)
	}

	const drivers = 20
	results := make([]AcceptResult, drivers)
	var wg sync.WaitGroup
	for i := 0; i < drivers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.Accept("R1", driverID(i), models.Location{Latitude: float64(i)})
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, r := range results {
		if r == AcceptWon {
			winners++
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}
	got := bus.byEvent(events.RideAcceptedByDriver)
	if len(got) != 1 {
		t.Fatalf("expected exactly one accepted broadcast, got %d", len(got))
	}

	// post-resolution accept is a silent no-op
	if c.Accept("R1", "late", models.Location{}) != AcceptLost {
		t.Fatal("expected AcceptLost after resolution")
	}
	if len(bus.byEvent(events.RideAcceptedByDriver)) != 1 {
		t.Fatal("late accept must not re-broadcast")
	}
}

func TestRejectKeepsRecordLive(t *testing.T) {
	c, _ := newTestCoordinator()
	if err := c.Submit("R1", "", models.Location{}, models.Location{}, 50); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		c.Reject("R1", driverID(i))
	}
	if !c.Live("R1") {
		t.Fatal("reject must never remove the record")
	}
	if c.Accept("R1", "d9", models.Location{}) != AcceptWon {
		t.Fatal("accept after rejections should win")
	}
}

func TestCancelRemovesAndBroadcasts(t *testing.T) {
	c, bus := newTestCoordinator()
	if err := c.Submit("R1", "", models.Location{}, models.Location{}, 50); err != nil {
		t.Fatal(err)
	}
	if !c.Cancel("R1") {
		t.Fatal("cancel should find the record")
	}
	if c.Live("R1") {
		t.Fatal("record should be gone")
	}
	if len(bus.byEvent(events.RideCancelled)) != 1 {
		t.Fatal("expected cancelled broadcast")
	}
	if c.Accept("R1", "d1", models.Location{}) != AcceptLost {
		t.Fatal("accept after cancel must lose")
	}
	if c.Cancel("R1") {
		t.Fatal("second cancel is a no-op")
	}
}

func TestStartAndCompleteRebroadcast(t *testing.T) {
	c, bus := newTestCoordinator()
	c.Start("R1", "d1")
	c.Complete("R1", "d1", 150, 4.5)

	if len(bus.byEvent(events.RideInProgress)) != 1 {
		t.Fatal("expected ride-in-progress broadcast")
	}
	got := bus.byEvent(events.RideFinished)
	if len(got) != 1 {
		t.Fatal("expected ride-finished broadcast")
	}
	var p events.RideFinishedPayload
	_ = json.Unmarshal(got[0].Data, &p)
	if p.Fare != 150 || p.Rating != 4.5 {
		t.Fatalf("unexpected payload: %+v", p)
	}
}

func TestAuditTrailRecordsLifecycle(t *testing.T) {
	bus := &fakeBus{}
	store := storage.NewMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := NewCoordinator(bus, store, logger)

	if err := c.Submit("R1", "p1", models.Location{Latitude: 1}, models.Location{Latitude: 2}, 80); err != nil {
		t.Fatal(err)
	}
	r, ok := store.Get("R1")
	if !ok || r.Status != "requested" || r.PassengerID != "p1" {
		t.Fatalf("unexpected audit record: %+v", r)
	}
	c.Accept("R1", "d1", models.Location{})
	r, _ = store.Get("R1")
	if r.Status != "accepted" || r.DriverID != "d1" {
		t.Fatalf("unexpected audit record after accept: %+v", r)
	}
}

func driverID(i int) string { return string(rune('A' + i)) }
