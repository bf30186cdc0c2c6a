package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "ride_dispatch", Name: "connections_active", Help: "Currently open socket connections"})
	DriversOnline     = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "ride_dispatch", Name: "drivers_online", Help: "Drivers with a live presence entry"})

	RideRequestsTotal    = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_dispatch", Name: "ride_requests_total", Help: "Ride requests submitted"})
	RideAcceptsTotal     = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_dispatch", Name: "ride_accepts_total", Help: "Accepts that won the race"})
	RideAcceptConflicts  = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_dispatch", Name: "ride_accept_conflicts_total", Help: "Accepts that arrived after resolution"})
	RideRejectionsTotal  = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_dispatch", Name: "ride_rejections_total", Help: "Ride rejections logged"})
	BroadcastsTotal      = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_dispatch", Name: "broadcasts_total", Help: "Events fanned out to all connections"})
	DroppedSendsTotal    = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_dispatch", Name: "dropped_sends_total", Help: "Outbound events dropped on a full session queue"})
	InvalidEventsTotal   = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_dispatch", Name: "invalid_events_total", Help: "Inbound frames dropped as malformed"})
	MessagesRelayedTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_dispatch", Name: "messages_relayed_total", Help: "Point-to-point messages delivered"})
	MessagesDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_dispatch", Name: "messages_dropped_total", Help: "Point-to-point messages to absent receivers"})
	DisconnectReconciles = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_dispatch", Name: "disconnect_reconciles_total", Help: "Stale presence entries removed after abrupt disconnects"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ride_dispatch", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ride_dispatch",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
