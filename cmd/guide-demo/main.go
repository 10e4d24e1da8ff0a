package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/wfinley/park-compass/internal/logging"
	"github.com/wfinley/park-compass/pkg/config"
	"github.com/wfinley/park-compass/pkg/geo"
	"github.com/wfinley/park-compass/pkg/guidance"
	"github.com/wfinley/park-compass/pkg/navigation"
	"github.com/wfinley/park-compass/pkg/simulate"
)

// main implements a complete walk-to-your-car demonstration.
// This shows the full integration of:
// - Simulated position fixes (walking a straight route toward the spot)
// - Navigation state calculation (distance, bearing, direction band)
// - Guidance policy (announcement debounce, proximity haptic, arrival)
// - Collaborator adapters (log-backed speech and haptics)
func main() {
	configPath := flag.String("config", "configs/config.json", "Path to configuration file")
	distance := flag.Float64("distance", 250.0, "Starting distance from the spot in meters")
	approach := flag.Float64("approach", 0.0, "Compass bearing walked toward the spot in degrees")
	floor := flag.String("floor", "", "Parking floor label of the spot (e.g., P2)")
	imperial := flag.Bool("imperial", false, "Use feet and miles in announcements")
	splitHeading := flag.Bool("split-heading", false, "Deliver heading on a separate compass channel")
	speedup := flag.Float64("speedup", 10.0, "Simulation speed multiplier")
	duration := flag.Int("duration", 120, "Maximum demo duration in seconds")
	flag.Parse()

	log.Println("===========================================")
	log.Println("  Park Compass - Guided Walk Demo")
	log.Println("===========================================")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Configuration loaded from: %s", *configPath)
	log.Printf("Observer location: %.4f, %.4f (%s)",
		cfg.Observer.Latitude, cfg.Observer.Longitude, cfg.Observer.Name)

	newLogger := logging.New
	if cfg.Logging.JSON {
		newLogger = logging.NewJSON
	}
	logger := newLogger(os.Stderr, logging.ParseLevel(cfg.Logging.Level))

	// The spot sits at the observer location; the walk starts *approach*
	// meters away along the reciprocal bearing.
	spot := geo.Point{Latitude: cfg.Observer.Latitude, Longitude: cfg.Observer.Longitude}
	start, err := geo.Destination(spot, geo.Normalize(*approach+180.0), *distance)
	if err != nil {
		log.Fatalf("Failed to place starting point: %v", err)
	}

	route, err := simulate.NewRoute(start, spot)
	if err != nil {
		log.Fatalf("Failed to build route: %v", err)
	}

	if *speedup < 1.0 {
		*speedup = 1.0
	}
	interval := time.Duration(float64(time.Second) * cfg.Simulator.UpdateIntervalSeconds / *speedup)
	walker := simulate.NewWalker(route, simulate.WalkerOptions{
		SpeedMetersPerSec: cfg.Simulator.SpeedMetersPerSec * *speedup,
		UpdateInterval:    interval,
		AccuracyMeters:    cfg.Simulator.AccuracyMeters,
		Floor:             *floor,
		SplitHeading:      *splitHeading || cfg.Simulator.SplitHeading,
	})

	engineCfg := guidance.Config{
		Profile:               navigation.ParseProfile(cfg.Guidance.Profile),
		Imperial:              *imperial || cfg.Guidance.Imperial,
		VoiceEnabled:          cfg.Guidance.VoiceEnabled,
		HapticsEnabled:        cfg.Guidance.HapticsEnabled,
		AnnounceInterval:      cfg.Guidance.AnnounceInterval() / time.Duration(*speedup),
		AnnounceDistanceDelta: cfg.Guidance.AnnounceDistanceDeltaMeters,
		NearDistanceMeters:    cfg.Guidance.NearDistanceMeters,
		Subscribe: guidance.SubscribeOptions{
			MinInterval: interval,
		},
	}

	deps := guidance.Deps{
		Location: walker,
		Voice:    guidance.LogSpeaker{Logger: logger},
		Haptic:   guidance.LogHaptics{Logger: logger},
		Logger:   logger,
	}
	if *splitHeading || cfg.Simulator.SplitHeading {
		deps.Heading = walker.Headings()
	}

	engine := guidance.NewEngine(engineCfg, deps)

	target := navigation.Target{
		Latitude:  spot.Latitude,
		Longitude: spot.Longitude,
		Floor:     *floor,
		Label:     "car",
	}

	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(*duration)*time.Second)
	defer cancel()

	log.Printf("Starting %.0fm walk toward the spot at %.0fx speed...", *distance, *speedup)
	if err := engine.StartNavigation(ctx, target); err != nil {
		log.Fatalf("Failed to start navigation: %v", err)
	}
	defer engine.Close()

	for {
		select {
		case <-ctx.Done():
			log.Println("Demo timed out before arrival")
			return
		case ev, ok := <-engine.Events():
			if !ok {
				return
			}
			switch ev.Type {
			case guidance.EventStateUpdated:
				logger.Debug("state updated",
					slog.Float64("distance_m", ev.State.DistanceMeters),
					slog.String("direction", string(ev.State.Direction)),
					slog.String("accuracy", string(ev.State.AccuracyTier)))
			case guidance.EventAnnouncement:
				log.Printf("VOICE  %s", ev.Text)
			case guidance.EventHaptic:
				log.Printf("HAPTIC %s", ev.Pattern)
			case guidance.EventArrived:
				log.Printf("Arrived: %.1fm from the spot", ev.State.DistanceMeters)
				return
			case guidance.EventStopped:
				return
			}
		}
	}
}
