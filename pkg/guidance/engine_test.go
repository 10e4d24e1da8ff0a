package guidance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfinley/park-compass/pkg/geo"
	"github.com/wfinley/park-compass/pkg/navigation"
)

// fakeLocation is a scriptable location source.
type fakeLocation struct {
	mu      sync.Mutex
	ch      chan navigation.Fix
	subErr  error
	stopped int
}

func newFakeLocation() *fakeLocation {
	return &fakeLocation{ch: make(chan navigation.Fix, 16)}
}

func (f *fakeLocation) Subscribe(ctx context.Context, opts SubscribeOptions) (<-chan navigation.Fix, error) {
	if f.subErr != nil {
		return nil, f.subErr
	}
	return f.ch, nil
}

func (f *fakeLocation) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped++
}

func (f *fakeLocation) stopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

// fakeHeading is a scriptable heading source.
type fakeHeading struct {
	ch chan HeadingUpdate
}

func newFakeHeading() *fakeHeading {
	return &fakeHeading{ch: make(chan HeadingUpdate, 16)}
}

func (f *fakeHeading) Subscribe(ctx context.Context) (<-chan HeadingUpdate, error) {
	return f.ch, nil
}

func (f *fakeHeading) Stop() {}

// fakeSpeaker records spoken text.
type fakeSpeaker struct {
	mu      sync.Mutex
	texts   []string
	err     error
	stopped int
}

func (s *fakeSpeaker) Speak(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.texts = append(s.texts, text)
	return nil
}

func (s *fakeSpeaker) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped++
}

func (s *fakeSpeaker) spoken() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.texts...)
}

// fakeHaptics records pulse patterns.
type fakeHaptics struct {
	mu       sync.Mutex
	patterns []HapticPattern
	err      error
}

func (h *fakeHaptics) Pulse(pattern HapticPattern) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return h.err
	}
	h.patterns = append(h.patterns, pattern)
	return nil
}

func (h *fakeHaptics) pulses() []HapticPattern {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]HapticPattern(nil), h.patterns...)
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type harness struct {
	engine  *Engine
	loc     *fakeLocation
	heading *fakeHeading
	speaker *fakeSpeaker
	haptics *fakeHaptics
	clock   *fakeClock
	target  navigation.Target
	seq     uint64
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	h := &harness{
		loc:     newFakeLocation(),
		heading: newFakeHeading(),
		speaker: &fakeSpeaker{},
		haptics: &fakeHaptics{},
		clock:   newFakeClock(),
		target:  navigation.Target{Latitude: 37.7749, Longitude: -122.4194},
	}
	h.engine = NewEngine(cfg, Deps{
		Location: h.loc,
		Heading:  h.heading,
		Voice:    h.speaker,
		Haptic:   h.haptics,
		Now:      h.clock.Now,
	})
	t.Cleanup(h.engine.StopNavigation)
	return h
}

// sendFixAt delivers a fix the given distance north of the target and waits
// for the engine to fold it.
func (h *harness) sendFixAt(t *testing.T, distanceMeters float64) {
	t.Helper()
	origin := geo.Point{Latitude: h.target.Latitude, Longitude: h.target.Longitude}
	p := origin
	if distanceMeters > 0 {
		var err error
		p, err = geo.Destination(origin, 0.0, distanceMeters)
		require.NoError(t, err)
	}
	h.seq++
	h.sendRawFix(t, navigation.Fix{
		Point:          p,
		Heading:        0,
		HasHeading:     true,
		AccuracyMeters: 5,
		HasAccuracy:    true,
		Timestamp:      h.clock.Now(),
		Sequence:       h.seq,
	})
}

// sendRawFix delivers an arbitrary fix and waits until the engine has either
// applied or dropped it.
func (h *harness) sendRawFix(t *testing.T, fix navigation.Fix) {
	t.Helper()
	before := h.engine.State()
	h.loc.ch <- fix
	require.Eventually(t, func() bool {
		s := h.engine.State()
		if s != nil && s.Sequence == fix.Sequence {
			return true
		}
		// Stale fixes never surface; give the pump a moment and accept the
		// previous state as the outcome.
		if before != nil && fix.Sequence <= before.Sequence {
			time.Sleep(20 * time.Millisecond)
			s = h.engine.State()
			return s != nil && s.Sequence == before.Sequence
		}
		return false
	}, 2*time.Second, time.Millisecond, "engine did not process fix %d", fix.Sequence)
}

func TestStartNavigationLocationFailure(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.loc.subErr = fmt.Errorf("permission denied")

	err := h.engine.StartNavigation(context.Background(), h.target)
	require.Error(t, err)

	var locErr *LocationUnavailableError
	assert.True(t, errors.As(err, &locErr), "want *LocationUnavailableError, got %T", err)
	assert.False(t, h.engine.IsNavigating(), "engine must return to Idle, never half-started")
	assert.Nil(t, h.engine.State())
}

func TestStateNilBeforeFirstFix(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	require.NoError(t, h.engine.StartNavigation(context.Background(), h.target))

	assert.Nil(t, h.engine.State(), "state must be nil, not garbage, before the first fix")
	assert.True(t, h.engine.IsNavigating())
	assert.False(t, h.engine.HasArrived())
}

func TestArrivalFiresOnce(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	require.NoError(t, h.engine.StartNavigation(context.Background(), h.target))

	h.sendFixAt(t, 100.0)
	assert.False(t, h.engine.HasArrived())

	// Cross the compass threshold (6.096 m)
	h.sendFixAt(t, 4.0)
	assert.True(t, h.engine.HasArrived())
	require.Equal(t, []HapticPattern{HapticSuccess}, h.haptics.pulses())

	// Still inside: the one-time event must not re-fire
	h.sendFixAt(t, 3.0)
	h.sendFixAt(t, 2.0)
	assert.Equal(t, []HapticPattern{HapticSuccess}, h.haptics.pulses())

	// Drifting back out does not re-arm; the flag is sticky
	h.sendFixAt(t, 50.0)
	assert.True(t, h.engine.HasArrived())
	assert.Equal(t, []HapticPattern{HapticSuccess}, h.haptics.pulses())
}

func TestResetArrivalReArms(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	require.NoError(t, h.engine.StartNavigation(context.Background(), h.target))

	h.sendFixAt(t, 4.0)
	require.True(t, h.engine.HasArrived())

	h.engine.ResetArrival()
	assert.False(t, h.engine.HasArrived())
	assert.True(t, h.engine.IsNavigating(), "reset must not destroy the session")

	// Walk out and back in: arrival fires a second time
	h.sendFixAt(t, 50.0)
	h.clock.Advance(time.Minute)
	h.sendFixAt(t, 4.0)
	assert.True(t, h.engine.HasArrived())

	success := 0
	for _, p := range h.haptics.pulses() {
		if p == HapticSuccess {
			success++
		}
	}
	assert.Equal(t, 2, success, "arrival haptic fires once per arming")
}

func TestAnnouncementDebounce(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	require.NoError(t, h.engine.StartNavigation(context.Background(), h.target))

	// First fix always announces
	h.sendFixAt(t, 200.0)
	require.Len(t, h.speaker.spoken(), 1)

	// Within the 10 s window: suppressed regardless of movement
	h.clock.Advance(3 * time.Second)
	h.sendFixAt(t, 150.0)
	assert.Len(t, h.speaker.spoken(), 1, "time gate must suppress announcement")

	// Past the window but within 5 m of the last announced distance:
	// still suppressed (GPS noise while stationary)
	h.clock.Advance(11 * time.Second)
	h.sendFixAt(t, 197.0)
	assert.Len(t, h.speaker.spoken(), 1, "distance gate must suppress announcement")

	// Both gates open
	h.clock.Advance(11 * time.Second)
	h.sendFixAt(t, 150.0)
	require.Len(t, h.speaker.spoken(), 2)
	assert.Contains(t, h.speaker.spoken()[1], "150 m")
}

func TestVoiceDisabledSuppressesAllSpeech(t *testing.T) {
	cfg := DefaultConfig()
	cfg.VoiceEnabled = false
	h := newHarness(t, cfg)
	require.NoError(t, h.engine.StartNavigation(context.Background(), h.target))

	h.sendFixAt(t, 100.0)
	h.clock.Advance(time.Minute)
	h.sendFixAt(t, 4.0) // arrival
	assert.True(t, h.engine.HasArrived())
	assert.Empty(t, h.speaker.spoken())
}

func TestNearHapticFiresOnce(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	require.NoError(t, h.engine.StartNavigation(context.Background(), h.target))

	h.sendFixAt(t, 100.0)
	assert.Empty(t, h.haptics.pulses())

	h.clock.Advance(time.Minute)
	h.sendFixAt(t, 25.0) // inside the default 30 m near radius
	require.Equal(t, []HapticPattern{HapticLight}, h.haptics.pulses())

	h.clock.Advance(time.Minute)
	h.sendFixAt(t, 20.0)
	assert.Equal(t, []HapticPattern{HapticLight}, h.haptics.pulses(), "near haptic is one-time")
}

func TestStaleFixesDropped(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	require.NoError(t, h.engine.StartNavigation(context.Background(), h.target))

	h.sendFixAt(t, 100.0)
	h.clock.Advance(time.Minute)
	h.sendFixAt(t, 50.0)

	state := h.engine.State()
	require.NotNil(t, state)
	lastSeq := state.Sequence

	// A late-arriving older fix sitting inside the arrival threshold must be
	// dropped, not folded: reprocessing it would fire a bogus arrival.
	origin := geo.Point{Latitude: h.target.Latitude, Longitude: h.target.Longitude}
	h.sendRawFix(t, navigation.Fix{
		Point:      origin,
		HasHeading: true,
		Timestamp:  h.clock.Now().Add(-time.Hour),
		Sequence:   lastSeq - 1,
	})

	state = h.engine.State()
	require.NotNil(t, state)
	assert.Equal(t, lastSeq, state.Sequence, "stale fix must not replace newer state")
	assert.False(t, h.engine.HasArrived())
}

func TestHeadingUpdatesRederiveState(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	require.NoError(t, h.engine.StartNavigation(context.Background(), h.target))

	// Fix north of the target, without heading: the target is due south, so
	// the assumed-north heading puts it directly behind (+180)
	origin := geo.Point{Latitude: h.target.Latitude, Longitude: h.target.Longitude}
	north, err := geo.Destination(origin, 0.0, 100.0)
	require.NoError(t, err)
	h.seq++
	h.sendRawFix(t, navigation.Fix{
		Point:     north,
		Timestamp: h.clock.Now(),
		Sequence:  h.seq,
	})

	state := h.engine.State()
	require.NotNil(t, state)
	assert.Equal(t, navigation.AccuracyLow, state.AccuracyTier, "missing heading degrades accuracy tier")
	assert.InDelta(t, 180.0, state.RelativeBearingDegrees, 1.0)

	// Compass sample arrives: facing south puts the target dead ahead
	h.heading.ch <- HeadingUpdate{Degrees: 180.0, Timestamp: h.clock.Now()}
	require.Eventually(t, func() bool {
		s := h.engine.State()
		return s != nil && s.RelativeBearingDegrees > -1.0 && s.RelativeBearingDegrees < 1.0
	}, 2*time.Second, time.Millisecond)

	// Turning in place swings the arrow without a new fix: facing east, a
	// southern target sits 90 to the right
	h.heading.ch <- HeadingUpdate{Degrees: 90.0, Timestamp: h.clock.Now()}
	require.Eventually(t, func() bool {
		s := h.engine.State()
		return s != nil && s.RelativeBearingDegrees > 89.0 && s.RelativeBearingDegrees < 91.0
	}, 2*time.Second, time.Millisecond)
}

func TestCollaboratorFailuresAreNonFatal(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.speaker.err = fmt.Errorf("tts engine crashed")
	h.haptics.err = fmt.Errorf("no vibration motor")
	require.NoError(t, h.engine.StartNavigation(context.Background(), h.target))

	h.sendFixAt(t, 100.0)
	h.clock.Advance(time.Minute)
	h.sendFixAt(t, 4.0)

	assert.True(t, h.engine.HasArrived(), "arrival state survives output failures")
	assert.True(t, h.engine.IsNavigating())
}

func TestStopNavigationIdempotent(t *testing.T) {
	h := newHarness(t, DefaultConfig())

	// Stopping from Idle is a no-op, not an error
	h.engine.StopNavigation()
	assert.False(t, h.engine.IsNavigating())

	require.NoError(t, h.engine.StartNavigation(context.Background(), h.target))
	h.sendFixAt(t, 100.0)

	h.engine.StopNavigation()
	assert.False(t, h.engine.IsNavigating())
	assert.GreaterOrEqual(t, h.speaker.stopped, 1, "in-flight speech must be interrupted")
	assert.GreaterOrEqual(t, h.loc.stopCount(), 1)

	h.engine.StopNavigation()
	assert.False(t, h.engine.IsNavigating())
}

func TestStartWhileActiveFails(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	require.NoError(t, h.engine.StartNavigation(context.Background(), h.target))
	assert.Error(t, h.engine.StartNavigation(context.Background(), h.target))
}

func TestStartFromArrivedReplacesSession(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	require.NoError(t, h.engine.StartNavigation(context.Background(), h.target))

	h.sendFixAt(t, 2.0)
	require.True(t, h.engine.HasArrived())

	// An arrived session can be replaced directly with a new target.
	newTarget := navigation.Target{Latitude: 37.7800, Longitude: -122.4194}
	require.NoError(t, h.engine.StartNavigation(context.Background(), newTarget))

	assert.False(t, h.engine.HasArrived())
	assert.True(t, h.engine.IsNavigating())
	assert.Nil(t, h.engine.State(), "fresh session exposes no state before a fix")
}

func TestEventsStream(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	events := h.engine.Events()
	require.NoError(t, h.engine.StartNavigation(context.Background(), h.target))

	h.sendFixAt(t, 4.0)

	seen := map[EventType]bool{}
	deadline := time.After(2 * time.Second)
	for !seen[EventArrived] {
		select {
		case ev := <-events:
			seen[ev.Type] = true
			if ev.Type == EventStateUpdated {
				require.NotNil(t, ev.State)
			}
		case <-deadline:
			t.Fatalf("timed out; saw %v", seen)
		}
	}
	assert.True(t, seen[EventStateUpdated])
	assert.True(t, seen[EventHaptic])
	assert.True(t, seen[EventAnnouncement])
}

func TestCloseEndsEventStream(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	events := h.engine.Events()
	require.NoError(t, h.engine.StartNavigation(context.Background(), h.target))
	h.sendFixAt(t, 40.0)

	h.engine.Close()

	sawStopped := false
	closed := false
	deadline := time.After(2 * time.Second)
	for !closed {
		select {
		case ev, ok := <-events:
			if !ok {
				closed = true
			} else if ev.Type == EventStopped {
				sawStopped = true
			}
		case <-deadline:
			t.Fatal("event stream never closed")
		}
	}
	assert.True(t, sawStopped, "stopped event must precede the close")
	assert.False(t, h.engine.IsNavigating())
	assert.Error(t, h.engine.StartNavigation(context.Background(), h.target),
		"closed engine must not restart")
}
