package presence

import (
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/example/ride-dispatch/internal/events"
	"github.com/example/ride-dispatch/internal/models"
	"github.com/example/ride-dispatch/internal/registry"
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

type fakeConn struct{ id string }

func (f *fakeConn) Send(env events.Envelope) error { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestManager() (*Manager, *registry.Registry, *fakeBus) {
	reg := registry.New()
	bus := &fakeBus{}
	return NewManager(reg, bus, nil, testLogger()), reg, bus
}

func TestMarkOnlineBroadcastsStatus(t *testing.T) {
	m, reg, bus := newTestManager()
	m.MarkOnline("d1", &fakeConn{}, models.Location{Latitude: 10, Longitude: 20})

	if _, ok := reg.Get("d1"); !ok {
		t.Fatal("entry not registered")
	}
	got := bus.byEvent(events.DriverStatusUpdated)
	if len(got) != 1 {
		t.Fatalf("expected 1 status broadcast, got %d", len(got))
	}
	var p events.DriverStatusUpdatedPayload
	if err := json.Unmarshal(got[0].Data, &p); err != nil {
		t.Fatal(err)
	}
	if p.DriverID != "d1" || !p.IsOnline {
		t.Fatalf("unexpected payload: %+v", p)
	}
}

func TestMarkOfflineRemovesAndBroadcasts(t *testing.T) {
	m, reg, bus := newTestManager()
	m.MarkOnline("d1", &fakeConn{}, models.Location{})
	m.MarkOffline("d1")

	if _, ok := reg.Get("d1"); ok {
		t.Fatal("entry should be removed")
	}
	got := bus.byEvent(events.DriverStatusUpdated)
	if len(got) != 2 {
		t.Fatalf("expected online+offline broadcasts, got %d", len(got))
	}
	var p events.DriverStatusUpdatedPayload
	_ = json.Unmarshal(got[1].Data, &p)
	if p.IsOnline {
		t.Fatal("second broadcast should be offline")
	}
}

func TestMarkOfflineAbsentDoesNotPanic(t *testing.T) {
	m, _, _ := newTestManager()
	m.MarkOffline("never-seen")
}

func TestUpdateLocationAbsentIsSilent(t *testing.T) {
	m, _, bus := newTestManager()
	m.UpdateLocation("ghost", models.Location{Latitude: 1})
	if len(bus.byEvent(events.DriverLocationUpdated)) != 0 {
		t.Fatal("no broadcast expected for unknown driver")
	}
}

func TestUpdateLocationBroadcasts(t *testing.T) {
	m, reg, bus := newTestManager()
	m.MarkOnline("d1", &fakeConn{}, models.Location{})
	m.UpdateLocation("d1", models.Location{Latitude: 5, Longitude: 6})

	got := bus.byEvent(events.DriverLocationUpdated)
	if len(got) != 1 {
		t.Fatalf("expected 1 location broadcast, got %d", len(got))
	}
	p, _ := reg.Get("d1")
	if p.Location.Latitude != 5 || p.Location.Longitude != 6 {
		t.Fatalf("registry location not updated: %+v", p.Location)
	}
}

func TestReconcileDisconnectWithEntry(t *testing.T) {
	m, reg, bus := newTestManager()
	conn := &fakeConn{id: "c1"}
	m.MarkOnline("d1", conn, models.Location{Latitude: 10, Longitude: 20})

	m.ReconcileDisconnect(conn)

	if _, ok := reg.Get("d1"); ok {
		t.Fatal("stale entry survived disconnect")
	}
	got := bus.byEvent(events.DriverStatusUpdated)
	if len(got) != 2 {
		t.Fatalf("expected online+offline broadcasts, got %d", len(got))
	}
	var p events.DriverStatusUpdatedPayload
	_ = json.Unmarshal(got[1].Data, &p)
	if p.DriverID != "d1" || p.IsOnline {
		t.Fatalf("unexpected reconciliation broadcast: %+v", p)
	}
}

func TestReconcileDisconnectWithoutEntry(t *testing.T) {
	m, _, bus := newTestManager()
	m.ReconcileDisconnect(&fakeConn{id: "anon"})
	if len(bus.sent) != 0 {
		t.Fatalf("expected no broadcast, got %d", len(bus.sent))
	}
}

func TestReconcileIgnoresStaleHandleAfterReconnect(t *testing.T) {
	m, reg, bus := newTestManager()
	old := &fakeConn{id: "old"}
	fresh := &fakeConn{id: "fresh"}
	m.MarkOnline("d1", old, models.Location{})
	m.MarkOnline("d1", fresh, models.Location{})

	// the old transport finally times out; the fresh entry must survive
	m.ReconcileDisconnect(old)

	if _, ok := reg.Get("d1"); !ok {
		t.Fatal("reconnect entry was wrongly removed")
	}
	offline := 0
	for _, e := range bus.byEvent(events.DriverStatusUpdated) {
		var p events.DriverStatusUpdatedPayload
		_ = json.Unmarshal(e.Data, &p)
		if !p.IsOnline {
			offline++
		}
	}
	if offline != 0 {
		t.Fatalf("expected no offline broadcast, got %d", offline)
	}
}

type fakePublisher struct {
	mu      sync.Mutex
	updates []models.DriverLocationUpdate
}

func (f *fakePublisher) PublishLocation(u models.DriverLocationUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, u)
	return nil
}

func TestLocationPipelinePublishes(t *testing.T) {
	reg := registry.New()
	bus := &fakeBus{}
	pub := &fakePublisher{}
	m := NewManager(reg, bus, pub, testLogger())

	m.MarkOnline("d1", &fakeConn{}, models.Location{Latitude: 1})
	m.UpdateLocation("d1", models.Location{Latitude: 2})
	m.MarkOffline("d1")

	if len(pub.updates) != 3 {
		t.Fatalf("expected 3 pipeline updates, got %d", len(pub.updates))
	}
	if pub.updates[2].Online {
		t.Fatal("offline update should carry online=false")
	}
}
