package storage

import (
	"database/sql"
	"time"

	_ "github.com/lib/pq"

	"github.com/example/ride-dispatch/internal/models"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	// quick ping
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (p *PostgresStore) SaveRide(r *models.Ride) error {
	_, err := p.db.Exec(`INSERT INTO rides(id, passenger_id, driver_id, pickup_lat, pickup_lng, dropoff_lat, dropoff_lng, fare, rating, status, created_at, updated_at) VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		r.ID, r.PassengerID, r.DriverID, r.Pickup.Latitude, r.Pickup.Longitude, r.Dropoff.Latitude, r.Dropoff.Longitude, r.Fare, r.Rating, r.Status, r.CreatedAt, r.UpdatedAt)
	return err
}

func (p *PostgresStore) UpdateRide(r *models.Ride) error {
	_, err := p.db.Exec(`UPDATE rides SET driver_id=$1, status=$2, fare=$3, rating=$4, updated_at=$5 WHERE id=$6`, r.DriverID, r.Status, r.Fare, r.Rating, time.Now(), r.ID)
	return err
}
