package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the complete application configuration.
// Configuration is loaded from a JSON file with environment overrides.
type Config struct {
	Guidance  GuidanceConfig  `json:"guidance"`
	Observer  ObserverConfig  `json:"observer"`
	Simulator SimulatorConfig `json:"simulator"`
	Database  DatabaseConfig  `json:"database"`
	Logging   LoggingConfig   `json:"logging"`
}

// GuidanceConfig contains guidance engine settings.
type GuidanceConfig struct {
	// Profile selects the arrival threshold: "ar" or "compass"
	Profile string `json:"profile"`

	// Imperial switches distance output to feet/miles
	Imperial bool `json:"imperial"`

	// VoiceEnabled determines if spoken announcements are produced
	VoiceEnabled bool `json:"voice_enabled"`

	// HapticsEnabled determines if haptic cues are produced
	HapticsEnabled bool `json:"haptics_enabled"`

	// AnnounceIntervalSeconds is the minimum time between repeat announcements
	AnnounceIntervalSeconds int `json:"announce_interval_seconds"`

	// AnnounceDistanceDeltaMeters is the minimum distance change between
	// repeat announcements
	AnnounceDistanceDeltaMeters float64 `json:"announce_distance_delta_meters"`

	// NearDistanceMeters is the radius for the one-time proximity haptic
	NearDistanceMeters float64 `json:"near_distance_meters"`
}

// AnnounceInterval returns the configured debounce interval as a duration.
func (g GuidanceConfig) AnnounceInterval() time.Duration {
	return time.Duration(g.AnnounceIntervalSeconds) * time.Second
}

// ObserverConfig contains the default observer position used by the
// simulator and demo binaries.
type ObserverConfig struct {
	// Name is a friendly identifier for this location
	Name string `json:"name"`

	// Latitude in decimal degrees (-90 to +90)
	Latitude float64 `json:"latitude"`

	// Longitude in decimal degrees (-180 to +180)
	Longitude float64 `json:"longitude"`

	// Elevation in meters above sea level
	Elevation float64 `json:"elevation"`

	// TimeZone is the IANA timezone name (e.g., "America/New_York")
	TimeZone string `json:"timezone"`
}

// SimulatorConfig contains the simulated walker settings.
type SimulatorConfig struct {
	// SpeedMetersPerSec is the walking speed (default: 1.4, a brisk walk)
	SpeedMetersPerSec float64 `json:"speed_meters_per_sec"`

	// UpdateIntervalSeconds is how often the walker emits a fix
	UpdateIntervalSeconds float64 `json:"update_interval_seconds"`

	// AccuracyMeters is the reported horizontal accuracy of each fix
	AccuracyMeters float64 `json:"accuracy_meters"`

	// SplitHeading routes heading through a separate compass channel
	// instead of embedding it in each fix
	SplitHeading bool `json:"split_heading"`
}

// DatabaseConfig contains database connection settings for saved spots.
type DatabaseConfig struct {
	// Driver is the database driver (postgres)
	Driver string `json:"driver"`

	// Host is the database server hostname
	Host string `json:"host"`

	// Port is the database server port
	Port int `json:"port"`

	// Database is the database name
	Database string `json:"database"`

	// Username for database authentication
	Username string `json:"username"`

	// Password for database authentication (should be loaded from environment)
	Password string `json:"password"`

	// SSLMode for PostgreSQL connections (disable, require, verify-ca, verify-full)
	SSLMode string `json:"ssl_mode"`

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int `json:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int `json:"max_idle_conns"`
}

// LoggingConfig controls structured log output.
type LoggingConfig struct {
	// Level is one of "debug", "info", "warn", "error"
	Level string `json:"level"`

	// JSON switches output from text to JSON
	JSON bool `json:"json"`
}

// Load reads configuration from a JSON file.
// If the file doesn't exist, returns a default configuration.
func Load(path string) (*Config, error) {
	// Pick up a local .env if present; missing files are fine
	_ = godotenv.Load()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.applyEnvironmentOverrides()
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvironmentOverrides()

	return cfg, nil
}

// Save writes the configuration to a JSON file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Guidance: GuidanceConfig{
			Profile:                     "compass",
			Imperial:                    false,
			VoiceEnabled:                true,
			HapticsEnabled:              true,
			AnnounceIntervalSeconds:     10,
			AnnounceDistanceDeltaMeters: 5.0,
			NearDistanceMeters:          30.0,
		},
		Observer: ObserverConfig{
			Name:      "Primary Observer",
			Latitude:  0.0,
			Longitude: 0.0,
			Elevation: 0.0,
			TimeZone:  "UTC",
		},
		Simulator: SimulatorConfig{
			SpeedMetersPerSec:     1.4,
			UpdateIntervalSeconds: 1.0,
			AccuracyMeters:        5.0,
		},
		Database: DatabaseConfig{
			Driver:       "postgres",
			Host:         "localhost",
			Port:         5432,
			Database:     "parkcompass",
			Username:     "parkcompass",
			SSLMode:      "disable",
			MaxOpenConns: 25,
			MaxIdleConns: 5,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// applyEnvironmentOverrides applies environment variable overrides to the
// config. This allows sensitive data like passwords to be kept out of
// config files.
func (c *Config) applyEnvironmentOverrides() {
	if dbPassword := os.Getenv("PARK_COMPASS_DB_PASSWORD"); dbPassword != "" {
		c.Database.Password = dbPassword
	}
	if dbHost := os.Getenv("PARK_COMPASS_DB_HOST"); dbHost != "" {
		c.Database.Host = dbHost
	}
	if dbPort := os.Getenv("PARK_COMPASS_DB_PORT"); dbPort != "" {
		if port, err := strconv.Atoi(dbPort); err == nil {
			c.Database.Port = port
		}
	}
	if profile := os.Getenv("PARK_COMPASS_PROFILE"); profile != "" {
		c.Guidance.Profile = profile
	}
	if level := os.Getenv("PARK_COMPASS_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}
