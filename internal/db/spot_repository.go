package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/wfinley/park-compass/pkg/navigation"
)

// ParkedSpot represents a saved parking location for a device.
type ParkedSpot struct {
	ID         int       `json:"id"`
	DeviceID   string    `json:"deviceId"`
	Label      string    `json:"label"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Altitude   float64   `json:"altitude"`
	FloorLabel string    `json:"floorLabel"`
	Note       string    `json:"note"`
	IsActive   bool      `json:"isActive"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Target converts the spot to a navigation target.
func (s ParkedSpot) Target() navigation.Target {
	return navigation.Target{
		Latitude:  s.Latitude,
		Longitude: s.Longitude,
		Altitude:  s.Altitude,
		Floor:     s.FloorLabel,
		Label:     s.Label,
	}
}

// SpotRepository provides methods for managing parked spots.
type SpotRepository struct {
	db *DB
}

// NewSpotRepository creates a new spot repository.
func NewSpotRepository(db *DB) *SpotRepository {
	return &SpotRepository{db: db}
}

const spotColumns = `id, device_id, label, latitude, longitude, altitude, floor_label, note, is_active, created_at, updated_at`

func scanSpot(row interface{ Scan(...interface{}) error }, s *ParkedSpot) error {
	return row.Scan(
		&s.ID,
		&s.DeviceID,
		&s.Label,
		&s.Latitude,
		&s.Longitude,
		&s.Altitude,
		&s.FloorLabel,
		&s.Note,
		&s.IsActive,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
}

// GetDeviceSpots returns all spots saved by a device, active first.
func (r *SpotRepository) GetDeviceSpots(ctx context.Context, deviceID string) ([]ParkedSpot, error) {
	query := `
		SELECT ` + spotColumns + `
		FROM parked_spots
		WHERE device_id = $1
		ORDER BY is_active DESC, updated_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query parked spots: %w", err)
	}
	defer rows.Close()

	var spots []ParkedSpot
	for rows.Next() {
		var s ParkedSpot
		if err := scanSpot(rows, &s); err != nil {
			return nil, fmt.Errorf("failed to scan parked spot: %w", err)
		}
		spots = append(spots, s)
	}

	return spots, rows.Err()
}

// GetActiveSpot returns the active spot for a device, or nil if none is set.
func (r *SpotRepository) GetActiveSpot(ctx context.Context, deviceID string) (*ParkedSpot, error) {
	query := `
		SELECT ` + spotColumns + `
		FROM parked_spots
		WHERE device_id = $1 AND is_active = TRUE
		LIMIT 1
	`

	var s ParkedSpot
	err := scanSpot(r.db.QueryRowContext(ctx, query, deviceID), &s)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active spot: %w", err)
	}

	return &s, nil
}

// GetByID returns a specific spot owned by a device.
func (r *SpotRepository) GetByID(ctx context.Context, spotID int, deviceID string) (*ParkedSpot, error) {
	query := `
		SELECT ` + spotColumns + `
		FROM parked_spots
		WHERE id = $1 AND device_id = $2
	`

	var s ParkedSpot
	err := scanSpot(r.db.QueryRowContext(ctx, query, spotID, deviceID), &s)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("parked spot not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get parked spot: %w", err)
	}

	return &s, nil
}

// Create saves a new spot. When the spot is marked active, any previously
// active spot for the device is deactivated in the same transaction.
func (r *SpotRepository) Create(ctx context.Context, spot *ParkedSpot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if spot.IsActive {
		_, err := tx.ExecContext(ctx,
			`UPDATE parked_spots SET is_active = FALSE, updated_at = NOW() WHERE device_id = $1 AND is_active = TRUE`,
			spot.DeviceID,
		)
		if err != nil {
			return fmt.Errorf("failed to deactivate previous spot: %w", err)
		}
	}

	query := `
		INSERT INTO parked_spots (device_id, label, latitude, longitude, altitude, floor_label, note, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`

	err = tx.QueryRowContext(
		ctx,
		query,
		spot.DeviceID,
		spot.Label,
		spot.Latitude,
		spot.Longitude,
		spot.Altitude,
		spot.FloorLabel,
		spot.Note,
		spot.IsActive,
	).Scan(&spot.ID, &spot.CreatedAt, &spot.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create parked spot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Update updates an existing spot's metadata.
func (r *SpotRepository) Update(ctx context.Context, spot *ParkedSpot) error {
	query := `
		UPDATE parked_spots
		SET label = $1, latitude = $2, longitude = $3, altitude = $4, floor_label = $5, note = $6, updated_at = NOW()
		WHERE id = $7 AND device_id = $8
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		spot.Label,
		spot.Latitude,
		spot.Longitude,
		spot.Altitude,
		spot.FloorLabel,
		spot.Note,
		spot.ID,
		spot.DeviceID,
	).Scan(&spot.UpdatedAt)

	if err == sql.ErrNoRows {
		return fmt.Errorf("parked spot not found")
	}
	if err != nil {
		return fmt.Errorf("failed to update parked spot: %w", err)
	}

	return nil
}

// SetActive marks a spot as the device's active spot, deactivating any other.
func (r *SpotRepository) SetActive(ctx context.Context, spotID int, deviceID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`UPDATE parked_spots SET is_active = FALSE, updated_at = NOW() WHERE device_id = $1 AND is_active = TRUE`,
		deviceID,
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate previous spot: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE parked_spots SET is_active = TRUE, updated_at = NOW() WHERE id = $1 AND device_id = $2`,
		spotID, deviceID,
	)
	if err != nil {
		return fmt.Errorf("failed to set active spot: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("parked spot not found")
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Delete removes a spot owned by a device.
func (r *SpotRepository) Delete(ctx context.Context, spotID int, deviceID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM parked_spots WHERE id = $1 AND device_id = $2`,
		spotID, deviceID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete parked spot: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("parked spot not found")
	}

	return nil
}
