package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/wfinley/park-compass/internal/db"
	"github.com/wfinley/park-compass/pkg/config"
	"github.com/wfinley/park-compass/pkg/geo"
)

var (
	// Version information (set by build flags)
	version = "dev"
	commit  = "unknown"
)

func main() {
	configPath := flag.String("config", "configs/config.json", "Path to configuration file")
	deviceID := flag.String("device", "local", "Device identifier owning the spots")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("spots version %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	observer := geo.Point{
		Latitude:  cfg.Observer.Latitude,
		Longitude: cfg.Observer.Longitude,
		Altitude:  cfg.Observer.Elevation,
	}

	database, err := db.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := database.InitSchema(ctx); err != nil {
		cancel()
		log.Fatalf("Failed to initialize schema: %v", err)
	}
	// Old inactive spots accumulate forever otherwise
	if err := database.CleanupOldSpots(ctx, 30*24*time.Hour); err != nil {
		log.Printf("Failed to clean up old spots: %v", err)
	}
	cancel()

	repo := db.NewSpotRepository(database)

	app := NewApp(&AppConfig{
		Config:   cfg,
		Database: database,
		Repo:     repo,
		Observer: observer,
		DeviceID: *deviceID,
	})

	if err := app.Run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}
