package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wfinley/park-compass/internal/logging"
	"github.com/wfinley/park-compass/pkg/config"
	"github.com/wfinley/park-compass/pkg/direction"
	"github.com/wfinley/park-compass/pkg/geo"
	"github.com/wfinley/park-compass/pkg/guidance"
	"github.com/wfinley/park-compass/pkg/navigation"
	"github.com/wfinley/park-compass/pkg/simulate"
)

// Maximum announcements kept in the on-screen log
const maxLogLines = 6

type model struct {
	engine   *guidance.Engine
	imperial bool

	state   *navigation.State
	arrived bool
	stopped bool
	log     []logLine
}

type logLine struct {
	at   time.Time
	kind string // "voice" or "haptic"
	text string
}

// eventMsg wraps a guidance event for the bubbletea loop.
type eventMsg guidance.Event

// eventsClosedMsg signals the engine closed its event stream.
type eventsClosedMsg struct{}

func waitForEvent(ch <-chan guidance.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg(ev)
	}
}

func (m model) Init() tea.Cmd {
	return waitForEvent(m.engine.Events())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			// Close ends the event stream; the program quits once the
			// final events drain through eventsClosedMsg.
			m.engine.Close()
			return m, nil
		case "r":
			m.engine.ResetArrival()
			m.arrived = false
		}

	case eventMsg:
		switch msg.Type {
		case guidance.EventStateUpdated:
			m.state = msg.State
		case guidance.EventAnnouncement:
			m.pushLog(logLine{at: msg.At, kind: "voice", text: msg.Text})
		case guidance.EventHaptic:
			m.pushLog(logLine{at: msg.At, kind: "haptic", text: string(msg.Pattern)})
		case guidance.EventArrived:
			m.state = msg.State
			m.arrived = true
		case guidance.EventStopped:
			m.stopped = true
		}
		return m, waitForEvent(m.engine.Events())

	case eventsClosedMsg:
		m.stopped = true
		return m, tea.Quit
	}

	return m, nil
}

func (m *model) pushLog(line logLine) {
	m.log = append(m.log, line)
	if len(m.log) > maxLogLines {
		m.log = m.log[len(m.log)-maxLogLines:]
	}
}

// compassArrow maps a direction band to an arrow glyph.
func compassArrow(d direction.Direction) string {
	switch d {
	case direction.Straight:
		return "↑"
	case direction.SlightlyRight:
		return "↗"
	case direction.Right:
		return "→"
	case direction.SharplyRight, direction.BehindRight:
		return "↘"
	case direction.SlightlyLeft:
		return "↖"
	case direction.Left:
		return "←"
	case direction.SharplyLeft, direction.BehindLeft:
		return "↙"
	default:
		return "↓"
	}
}

func (m model) View() string {
	var s strings.Builder

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("86")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	s.WriteString(titleStyle.Render("PARK COMPASS"))
	s.WriteString("\n\n")

	if m.stopped {
		stopStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
		s.WriteString(stopStyle.Render("Guidance session ended."))
		s.WriteString("\n")
		return s.String()
	}

	if m.state == nil {
		waitStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
		s.WriteString(waitStyle.Render("Waiting for first position fix..."))
		s.WriteString("\n\n")
		s.WriteString(waitStyle.Render("Q: Quit"))
		s.WriteString("\n")
		return s.String()
	}

	if m.arrived {
		bannerStyle := lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("235")).
			Background(lipgloss.Color("46")).
			Padding(0, 2)
		s.WriteString(bannerStyle.Render("YOU HAVE ARRIVED"))
		s.WriteString("\n\n")
	}

	// Compass panel
	arrowStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("226"))
	distStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	phraseStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("75"))

	s.WriteString(arrowStyle.Render(fmt.Sprintf("   %s", compassArrow(m.state.Direction))))
	s.WriteString("  ")
	s.WriteString(distStyle.Render(geo.FormatDistance(m.state.DistanceMeters, m.imperial, -1)))
	s.WriteString("  ")
	s.WriteString(phraseStyle.Render(m.state.Direction.Phrase()))
	s.WriteString("\n\n")

	// Bearing and turn detail
	detailStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("247"))
	s.WriteString(detailStyle.Render(fmt.Sprintf("Bearing %.0f°  Relative %+.0f°  Turn: %s %.0f°",
		m.state.BearingDegrees,
		m.state.RelativeBearingDegrees,
		m.state.Turn.Direction,
		m.state.Turn.AngleDegrees)))
	s.WriteString("\n")

	// Floor hint
	if m.state.FloorDirection != navigation.FloorSame {
		floorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
		noun := "floors"
		if m.state.FloorDifference == 1 {
			noun = "floor"
		}
		s.WriteString(floorStyle.Render(fmt.Sprintf("Floor: %d %s %s", m.state.FloorDifference, noun, m.state.FloorDirection)))
		s.WriteString("\n")
	}

	// Accuracy badge
	s.WriteString(renderAccuracy(m.state.AccuracyTier))
	s.WriteString("\n\n")

	// Announcement log
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	s.WriteString(headerStyle.Render("Guidance"))
	s.WriteString("\n")
	if len(m.log) == 0 {
		s.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("  (none yet)"))
		s.WriteString("\n")
	}
	voiceStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("230"))
	hapticStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("141"))
	for _, line := range m.log {
		stamp := line.at.Format("15:04:05")
		if line.kind == "voice" {
			s.WriteString(voiceStyle.Render(fmt.Sprintf("  %s  %s", stamp, line.text)))
		} else {
			s.WriteString(hapticStyle.Render(fmt.Sprintf("  %s  [haptic: %s]", stamp, line.text)))
		}
		s.WriteString("\n")
	}
	s.WriteString("\n")

	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	s.WriteString(helpStyle.Render("R: Reset arrival  Q: Quit"))
	s.WriteString("\n")

	return s.String()
}

func renderAccuracy(tier navigation.AccuracyTier) string {
	label := strings.ToUpper(string(tier)) + " ACCURACY"
	switch tier {
	case navigation.AccuracyHigh:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Render("● " + label)
	case navigation.AccuracyMedium:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Render("● " + label)
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("● " + label)
	}
}

func main() {
	configPath := flag.String("config", "configs/config.json", "Path to configuration file")
	distance := flag.Float64("distance", 250.0, "Starting distance from the spot in meters")
	approach := flag.Float64("approach", 0.0, "Compass bearing walked toward the spot in degrees")
	floor := flag.String("floor", "", "Parking floor label of the spot (e.g., P2)")
	imperial := flag.Bool("imperial", false, "Use feet and miles")
	speedup := flag.Float64("speedup", 5.0, "Simulation speed multiplier")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	newLogger := logging.New
	if cfg.Logging.JSON {
		newLogger = logging.NewJSON
	}
	logger := newLogger(os.Stderr, logging.ParseLevel(cfg.Logging.Level))

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
	})

	useImperial := *imperial || cfg.Guidance.Imperial
	engine := guidance.NewEngine(guidance.Config{
		Profile:               navigation.ParseProfile(cfg.Guidance.Profile),
		Imperial:              useImperial,
		VoiceEnabled:          cfg.Guidance.VoiceEnabled,
		HapticsEnabled:        cfg.Guidance.HapticsEnabled,
		AnnounceInterval:      cfg.Guidance.AnnounceInterval() / time.Duration(*speedup),
		AnnounceDistanceDelta: cfg.Guidance.AnnounceDistanceDeltaMeters,
		NearDistanceMeters:    cfg.Guidance.NearDistanceMeters,
		Subscribe:             guidance.SubscribeOptions{MinInterval: interval},
	}, guidance.Deps{
		Location: walker,
		Logger:   logger,
	})

	target := navigation.Target{
		Latitude:  spot.Latitude,
		Longitude: spot.Longitude,
		Floor:     *floor,
		Label:     "car",
	}

	if err := engine.StartNavigation(context.Background(), target); err != nil {
		log.Fatalf("Failed to start navigation: %v", err)
	}

	m := model{
		engine:   engine,
		imperial: useImperial,
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
