package guidance

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wfinley/park-compass/pkg/navigation"
)

// Phase is the engine's lifecycle state.
type Phase int

const (
	// PhaseIdle means no session is active
	PhaseIdle Phase = iota

	// PhaseTracking means a session is active and folding updates
	PhaseTracking

	// PhaseArrived means the arrival event has fired; the flag is sticky
	// until ResetArrival
	PhaseArrived
)

// Announcement and proximity defaults.
const (
	// DefaultAnnounceInterval is the minimum time between voice
	// announcements.
	DefaultAnnounceInterval = 10 * time.Second

	// DefaultAnnounceDistanceDelta is the minimum change in distance since
	// the last announcement before another is allowed.
	DefaultAnnounceDistanceDelta = 5.0

	// DefaultNearDistanceMeters is the radius at which the one-time
	// getting-close haptic fires.
	DefaultNearDistanceMeters = 30.0
)

// Config holds the policy knobs for a guidance session.
type Config struct {
	// Profile selects the arrival threshold (AR vs compass)
	Profile navigation.Profile

	// Imperial selects feet/miles in instruction text
	Imperial bool

	// VoiceEnabled gates all announcements, including arrival
	VoiceEnabled bool

	// HapticsEnabled gates all haptic pulses
	HapticsEnabled bool

	// AnnounceInterval is the time gate of the announcement debounce
	AnnounceInterval time.Duration

	// AnnounceDistanceDelta is the distance gate of the announcement
	// debounce, in meters
	AnnounceDistanceDelta float64

	// NearDistanceMeters is the getting-close haptic radius
	NearDistanceMeters float64

	// Subscribe is passed to the location source
	Subscribe SubscribeOptions
}

// DefaultConfig returns a configuration with the standard compass-guidance
// policy.
func DefaultConfig() Config {
	return Config{
		Profile:               navigation.CompassGuidance,
		VoiceEnabled:          true,
		HapticsEnabled:        true,
		AnnounceInterval:      DefaultAnnounceInterval,
		AnnounceDistanceDelta: DefaultAnnounceDistanceDelta,
		NearDistanceMeters:    DefaultNearDistanceMeters,
		Subscribe: SubscribeOptions{
			MinInterval:       time.Second,
			MinDistanceMeters: 1.0,
		},
	}
}

// Deps are the injected collaborators. Location is required; everything else
// is optional and degrades gracefully when absent.
type Deps struct {
	Location LocationSource
	Heading  HeadingSource
	Voice    Speaker
	Haptic   Haptics
	Logger   *slog.Logger

	// Now overrides the clock, for deterministic tests
	Now func() time.Time
}

// EventType identifies a guidance event.
type EventType string

const (
	// EventStateUpdated carries a fresh navigation state snapshot
	EventStateUpdated EventType = "state-updated"

	// EventAnnouncement reports text handed to the speech collaborator
	EventAnnouncement EventType = "announcement"

	// EventHaptic reports a pulse handed to the haptic collaborator
	EventHaptic EventType = "haptic"

	// EventArrived fires exactly once per arming when arrival latches
	EventArrived EventType = "arrived"

	// EventStopped fires when the session ends
	EventStopped EventType = "stopped"
)

// Event is a guidance decision surfaced to presentation adapters.
type Event struct {
	Type    EventType
	State   *navigation.State
	Text    string
	Pattern HapticPattern
	At      time.Time
}

// Engine is the guidance policy engine: one instance per guidance session
// target. It serializes location and heading streams into a single fold, so
// its debounce and sticky-arrival logic see updates in order.
//
// The pure math below it is reentrant; the engine itself must be the only
// writer of its session state, which the internal mutex enforces.
type Engine struct {
	cfg  Config
	deps Deps
	calc navigation.Calculator

	mu     sync.Mutex
	phase  Phase
	target navigation.Target
	state  *navigation.State

	lastFix     navigation.Fix
	haveFix     bool
	heading     float64
	haveHeading bool
	lastSeq     uint64
	lastTime    time.Time

	arrived               bool
	nearNotified          bool
	announcedOnce         bool
	lastAnnouncedAt       time.Time
	lastAnnouncedDistance float64

	cancel context.CancelFunc
	done   chan struct{}
	events chan Event
	closed atomic.Bool
}

// NewEngine creates an engine for a single guidance session target.
func NewEngine(cfg Config, deps Deps) *Engine {
	if cfg.AnnounceInterval <= 0 {
		cfg.AnnounceInterval = DefaultAnnounceInterval
	}
	if cfg.AnnounceDistanceDelta <= 0 {
		cfg.AnnounceDistanceDelta = DefaultAnnounceDistanceDelta
	}
	if cfg.NearDistanceMeters <= 0 {
		cfg.NearDistanceMeters = DefaultNearDistanceMeters
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	return &Engine{
		cfg:    cfg,
		deps:   deps,
		calc:   navigation.Calculator{Profile: cfg.Profile, Imperial: cfg.Imperial},
		events: make(chan Event, 64),
	}
}

// StartNavigation begins a session toward the target. Both sources are
// subscribed before the engine reports Tracking; if either fails the engine
// returns to Idle with a *LocationUnavailableError and nothing half-started.
func (e *Engine) StartNavigation(ctx context.Context, target navigation.Target) error {
	if e.closed.Load() {
		return fmt.Errorf("engine is closed")
	}

	e.mu.Lock()
	arrived := e.phase == PhaseArrived
	e.mu.Unlock()
	if arrived {
		// An arrived session may be replaced directly by a new target.
		e.StopNavigation()
	}

	e.mu.Lock()
	if e.phase != PhaseIdle {
		e.mu.Unlock()
		return fmt.Errorf("navigation already active, stop it first")
	}
	if e.deps.Location == nil {
		e.mu.Unlock()
		return &LocationUnavailableError{Reason: "no location source configured"}
	}
	e.mu.Unlock()

	// Subscribing may block on a permission prompt; do it without the lock.
	runCtx, cancel := context.WithCancel(ctx)
	fixes, err := e.deps.Location.Subscribe(runCtx, e.cfg.Subscribe)
	if err != nil {
		cancel()
		return &LocationUnavailableError{Reason: "location source failed to start", Err: err}
	}

	var headings <-chan HeadingUpdate
	if e.deps.Heading != nil {
		headings, err = e.deps.Heading.Subscribe(runCtx)
		if err != nil {
			cancel()
			e.deps.Location.Stop()
			return &LocationUnavailableError{Reason: "heading source failed to start", Err: err}
		}
	}

	e.mu.Lock()
	if e.phase != PhaseIdle {
		e.mu.Unlock()
		cancel()
		e.deps.Location.Stop()
		if e.deps.Heading != nil {
			e.deps.Heading.Stop()
		}
		return fmt.Errorf("navigation already active, stop it first")
	}

	e.target = target
	e.phase = PhaseTracking
	e.state = nil
	e.haveFix = false
	e.haveHeading = false
	e.lastSeq = 0
	e.lastTime = time.Time{}
	e.arrived = false
	e.nearNotified = false
	e.announcedOnce = false
	e.lastAnnouncedAt = time.Time{}
	e.lastAnnouncedDistance = 0
	e.cancel = cancel
	e.done = make(chan struct{})
	done := e.done
	e.mu.Unlock()

	go e.pump(runCtx, done, fixes, headings)

	e.deps.Logger.Info("navigation started",
		slog.Float64("target_lat", target.Latitude),
		slog.Float64("target_lon", target.Longitude),
		slog.String("floor", target.Floor))
	return nil
}

// StopNavigation ends the session. It is idempotent: calling it from Idle is
// a no-op. In-flight speech is interrupted and the sources released.
func (e *Engine) StopNavigation() {
	e.mu.Lock()
	if e.phase == PhaseIdle {
		e.mu.Unlock()
		return
	}
	e.phase = PhaseIdle
	cancel := e.cancel
	done := e.done
	e.cancel = nil
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if e.deps.Voice != nil {
		e.deps.Voice.Stop()
	}
	if e.deps.Location != nil {
		e.deps.Location.Stop()
	}
	if e.deps.Heading != nil {
		e.deps.Heading.Stop()
	}
	if done != nil {
		<-done
	}

	e.emit(Event{Type: EventStopped, At: e.deps.Now()})
	e.deps.Logger.Info("navigation stopped")
}

// Close stops any active session and closes the event stream. The engine
// cannot be restarted afterwards; consumers ranging over Events see the
// EventStopped and then the channel close.
func (e *Engine) Close() {
	e.StopNavigation()
	if e.closed.CompareAndSwap(false, true) {
		close(e.events)
	}
}

// ResetArrival re-arms the one-time arrival event without destroying the
// session. An Arrived session returns to Tracking.
func (e *Engine) ResetArrival() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.arrived = false
	e.nearNotified = false
	if e.phase == PhaseArrived {
		e.phase = PhaseTracking
	}
}

// State returns the most recent navigation state, or nil before the first
// fix. The engine never exposes a garbage state: no fix, no state.
func (e *Engine) State() *navigation.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil
	}
	s := *e.state
	return &s
}

// HasArrived reports the sticky arrival flag.
func (e *Engine) HasArrived() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.arrived
}

// IsNavigating reports whether a session is active (tracking or arrived).
func (e *Engine) IsNavigating() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase != PhaseIdle
}

// Events returns the engine's event stream. Events are dropped, not blocked
// on, when the consumer falls behind.
func (e *Engine) Events() <-chan Event {
	return e.events
}

// pump serializes both collaborator streams into the session fold. A closed
// channel leaves the last computed state exposed (stale-but-available);
// staleness presentation is the caller's concern.
func (e *Engine) pump(ctx context.Context, done chan struct{}, fixes <-chan navigation.Fix, headings <-chan HeadingUpdate) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case fix, ok := <-fixes:
			if !ok {
				e.deps.Logger.Warn("location source closed, keeping last state")
				fixes = nil
				if headings == nil {
					return
				}
				continue
			}
			e.applyFix(fix)
		case h, ok := <-headings:
			if !ok {
				headings = nil
				if fixes == nil {
					return
				}
				continue
			}
			e.applyHeading(h)
		}
	}
}

// applyFix folds one location update into the session. Out-of-order updates
// are dropped: reprocessing a stale fix could re-trigger the one-time
// arrival event.
func (e *Engine) applyFix(fix navigation.Fix) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase == PhaseIdle {
		return
	}
	if e.haveFix {
		if fix.Sequence > 0 && fix.Sequence <= e.lastSeq {
			e.deps.Logger.Debug("dropping stale fix", slog.Uint64("sequence", fix.Sequence))
			return
		}
		if fix.Sequence == 0 && !fix.Timestamp.After(e.lastTime) {
			e.deps.Logger.Debug("dropping stale fix", slog.Time("timestamp", fix.Timestamp))
			return
		}
	}
	e.lastSeq = fix.Sequence
	e.lastTime = fix.Timestamp

	// A fix without its own heading uses the latest compass sample.
	if !fix.HasHeading && e.haveHeading {
		fix.Heading = e.heading
		fix.HasHeading = true
	}
	e.lastFix = fix
	e.haveFix = true

	e.fold(fix)
}

// applyHeading records a compass sample and re-derives the state from the
// latest fix so the arrow tracks the user turning in place.
func (e *Engine) applyHeading(h HeadingUpdate) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase == PhaseIdle {
		return
	}
	e.heading = h.Degrees
	e.haveHeading = true

	if !e.haveFix {
		return
	}
	fix := e.lastFix
	fix.Heading = h.Degrees
	fix.HasHeading = true
	e.lastFix = fix
	e.fold(fix)
}

// fold recomputes the state snapshot and runs the guidance policy.
// Called with the mutex held.
func (e *Engine) fold(fix navigation.Fix) {
	state, err := e.calc.Compute(fix, e.target)
	if err != nil {
		// Keep exposing the previous state rather than a garbage one.
		e.deps.Logger.Error("failed to compute navigation state", slog.Any("error", err))
		return
	}
	e.state = &state
	now := e.deps.Now()
	e.emit(Event{Type: EventStateUpdated, State: e.stateCopy(), At: now})

	// One-time arrival: latch, pulse, announce, and go quiet.
	if state.HasArrived && !e.arrived {
		e.arrived = true
		e.phase = PhaseArrived
		e.pulse(HapticSuccess, now)
		if len(state.Instructions) > 0 {
			e.speak(state.Instructions[0], now)
		}
		e.announcedOnce = true
		e.lastAnnouncedAt = now
		e.lastAnnouncedDistance = state.DistanceMeters
		e.emit(Event{Type: EventArrived, State: e.stateCopy(), At: now})
		return
	}
	if e.arrived {
		// Sticky: distance drifting back over the threshold does not re-arm;
		// only ResetArrival does.
		return
	}

	if !e.nearNotified && state.DistanceMeters <= e.cfg.NearDistanceMeters {
		e.nearNotified = true
		e.pulse(HapticLight, now)
	}

	if !e.cfg.VoiceEnabled {
		return
	}
	if e.announcedOnce {
		if now.Sub(e.lastAnnouncedAt) < e.cfg.AnnounceInterval {
			return
		}
		if math.Abs(state.DistanceMeters-e.lastAnnouncedDistance) < e.cfg.AnnounceDistanceDelta {
			return
		}
	}
	e.speak(strings.Join(state.Instructions, " "), now)
	e.announcedOnce = true
	e.lastAnnouncedAt = now
	e.lastAnnouncedDistance = state.DistanceMeters
}

// speak hands text to the voice collaborator. Failures are logged and
// swallowed: a missing voice channel degrades guidance, it does not stop
// navigation.
func (e *Engine) speak(text string, at time.Time) {
	if !e.cfg.VoiceEnabled || text == "" {
		return
	}
	if e.deps.Voice != nil {
		if err := e.deps.Voice.Speak(text); err != nil {
			e.deps.Logger.Warn("announcement failed",
				slog.Any("error", &SpeechUnavailableError{Err: err}))
			return
		}
	}
	e.emit(Event{Type: EventAnnouncement, Text: text, At: at})
}

// pulse hands a pattern to the haptic collaborator, with the same
// fire-and-forget failure handling as speak.
func (e *Engine) pulse(pattern HapticPattern, at time.Time) {
	if !e.cfg.HapticsEnabled {
		return
	}
	if e.deps.Haptic != nil {
		if err := e.deps.Haptic.Pulse(pattern); err != nil {
			e.deps.Logger.Warn("haptic pulse failed",
				slog.Any("error", &HapticUnavailableError{Err: err}))
			return
		}
	}
	e.emit(Event{Type: EventHaptic, Pattern: pattern, At: at})
}

// stateCopy returns a private copy of the current state for event payloads.
// Called with the mutex held.
func (e *Engine) stateCopy() *navigation.State {
	if e.state == nil {
		return nil
	}
	s := *e.state
	return &s
}

// emit delivers an event without blocking the fold. All emitters finish
// before Close closes the channel, so the closed check here cannot race a
// concurrent send.
func (e *Engine) emit(ev Event) {
	if e.closed.Load() {
		return
	}
	select {
	case e.events <- ev:
	default:
	}
}
