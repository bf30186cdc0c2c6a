package httpapi

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/ride-dispatch/internal/config"
	"github.com/example/ride-dispatch/internal/fare"
	"github.com/example/ride-dispatch/internal/identity"
	"github.com/example/ride-dispatch/internal/ingest"
	"github.com/example/ride-dispatch/internal/models"
	"github.com/example/ride-dispatch/internal/presence"
	"github.com/example/ride-dispatch/internal/registry"
	"github.com/example/ride-dispatch/internal/relay"
	"github.com/example/ride-dispatch/internal/rides"
	"github.com/example/ride-dispatch/internal/storage"
	"github.com/example/ride-dispatch/internal/ws"
)

type Server struct {
	Registry   *registry.Registry
	Rides      *rides.Coordinator
	Supervisor *ws.Supervisor
	Verifier   identity.Verifier

	logger *slog.Logger
	mux    *mux.Router
}

// NewServer wires the whole dispatch core from config. Kafka and
// Postgres are optional; without them presence updates stay local and
// the ride audit trail lives in memory.
func NewServer(cfg config.ServerConfig, logger *slog.Logger) *Server {
	var store storage.RideStore
	if cfg.PGDSN != "" {
		if ps, err := storage.NewPostgresStore(cfg.PGDSN); err == nil {
			store = ps
		} else {
			logger.Warn("postgres unavailable, using memory store", "error", err)
		}
	}
	if store == nil {
		store = storage.NewMemoryStore()
	}

	var pub presence.LocationPublisher
	if len(cfg.KafkaBrokers) > 0 {
		pub = ingest.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	}

	var verifier identity.Verifier
	if cfg.JWTSecret != "" {
		verifier = identity.NewJWTVerifier(cfg.JWTSecret)
	} else {
		logger.Warn("JWT_SECRET not set, accepting unauthenticated connections")
		verifier = identity.Insecure{}
	}

	reg := registry.New()
	hub := ws.NewHub()
	pm := presence.NewManager(reg, hub, pub, logger)
	rc := rides.NewCoordinator(hub, store, logger)
	rl := relay.New(reg, logger)
	sv := ws.NewSupervisor(hub, pm, rc, rl, cfg.SessionQueueSize, cfg.WSWriteTimeout, logger)

	s := &Server{
		Registry:   reg,
		Rides:      rc,
		Supervisor: sv,
		Verifier:   verifier,
		logger:     logger,
		mux:        mux.NewRouter(),
	}
	s.registerMiddleware()
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/ws", s.handleWS)
	s.mux.HandleFunc("/api/v1/rides/request", s.handleRideRequest).Methods("POST")
	s.mux.HandleFunc("/api/v1/drivers/online", s.handleOnlineDrivers).Methods("GET")
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) }).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	subject, err := s.Verifier.Verify(bearerToken(r))
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response
		return
	}
	s.Supervisor.ServeConn(conn, subject)
}

type rideRequestBody struct {
	PassengerID     string          `json:"passengerId"`
	PickupLocation  models.Location `json:"pickupLocation"`
	DropoffLocation models.Location `json:"dropoffLocation"`
	Fare            float64         `json:"fare"`
}

// handleRideRequest is the passenger-facing submission path: price the
// trip, mint a ride id, and let the coordinator fan it out to every
// connected driver.
func (s *Server) handleRideRequest(w http.ResponseWriter, r *http.Request) {
	var body rideRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if body.PassengerID == "" {
		http.Error(w, "passengerId is required", http.StatusBadRequest)
		return
	}

	breakdown := fare.ForTrip(body.PickupLocation, body.DropoffLocation)
	total := body.Fare
	if total == 0 {
		total = breakdown.TotalAmount
	}

	rideID := uuid.NewString()
	if err := s.Rides.Submit(rideID, body.PassengerID, body.PickupLocation, body.DropoffLocation, total); err != nil {
		if errors.Is(err, rides.ErrDuplicateRide) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{"rideId": rideID, "fare": total, "breakdown": breakdown})
}

func (s *Server) handleOnlineDrivers(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"drivers": s.Registry.Snapshot()})
}

func bearerToken(r *http.Request) string {
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

func newID() string { b := make([]byte, 8); _, _ = rand.Read(b); return hex.EncodeToString(b) }
