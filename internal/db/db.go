package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/wfinley/park-compass/pkg/config"
)

//go:embed schema.sql
var schemaSQL embed.FS

// DB wraps a database connection with helper methods.
type DB struct {
	*sql.DB
	config config.DatabaseConfig
}

// Connect establishes a connection to the PostgreSQL database.
func Connect(cfg config.DatabaseConfig) (*DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.Username,
		cfg.Password,
		cfg.Database,
		cfg.SSLMode,
	)

	sqlDB, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{
		DB:     sqlDB,
		config: cfg,
	}

	return db, nil
}

// InitSchema creates or updates the database schema.
// This should be called once at application startup.
func (db *DB) InitSchema(ctx context.Context) error {
	schemaBytes, err := schemaSQL.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema file: %w", err)
	}

	if _, err := db.ExecContext(ctx, string(schemaBytes)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	return nil
}

// CleanupOldSpots deletes inactive spots older than maxAge.
// Should be called periodically to prevent unbounded growth.
func (db *DB) CleanupOldSpots(ctx context.Context, maxAge time.Duration) error {
	cutoff := time.Now().UTC().Add(-maxAge)

	_, err := db.ExecContext(ctx,
		`DELETE FROM parked_spots WHERE is_active = FALSE AND updated_at < $1`,
		cutoff,
	)
	if err != nil {
		return fmt.Errorf("failed to delete old spots: %w", err)
	}

	return nil
}

// GetStats returns database statistics.
func (db *DB) GetStats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var totalSpots int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM parked_spots`,
	).Scan(&totalSpots)
	if err != nil {
		return nil, err
	}
	stats["total_spots"] = totalSpots

	var activeSpots int
	err = db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM parked_spots WHERE is_active = TRUE`,
	).Scan(&activeSpots)
	if err != nil {
		return nil, err
	}
	stats["active_spots"] = activeSpots

	var deviceCount int
	err = db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT device_id) FROM parked_spots`,
	).Scan(&deviceCount)
	if err != nil {
		return nil, err
	}
	stats["devices"] = deviceCount

	return stats, nil
}
