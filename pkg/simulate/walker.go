package simulate

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/wfinley/park-compass/pkg/guidance"
	"github.com/wfinley/park-compass/pkg/navigation"
)

// WalkerOptions configures a simulated walk.
type WalkerOptions struct {
	// SpeedMetersPerSec is the walking speed (default 1.4, a typical walking
	// pace)
	SpeedMetersPerSec float64

	// UpdateInterval is the time between emitted fixes (default 1s)
	UpdateInterval time.Duration

	// AccuracyMeters is the reported fix accuracy (default 5)
	AccuracyMeters float64

	// Floor is reported on every fix
	Floor string

	// SplitHeading emits fixes without a heading and delivers headings on
	// the separate compass channel instead, exercising the engine's
	// heading-merge path
	SplitHeading bool
}

// Walker plays a route back as a stream of position fixes, acting as both
// the location source and (optionally) the heading source for a guidance
// engine. Emission is deterministic: constant speed, no jitter.
type Walker struct {
	route *Route
	opts  WalkerOptions

	mu       sync.Mutex
	cancel   context.CancelFunc
	headings chan guidance.HeadingUpdate
}

// NewWalker creates a walker over a route.
func NewWalker(route *Route, opts WalkerOptions) *Walker {
	if opts.SpeedMetersPerSec <= 0 {
		opts.SpeedMetersPerSec = 1.4
	}
	if opts.UpdateInterval <= 0 {
		opts.UpdateInterval = time.Second
	}
	if opts.AccuracyMeters <= 0 {
		opts.AccuracyMeters = 5.0
	}
	return &Walker{route: route, opts: opts}
}

// Subscribe starts the walk and returns the fix channel. The walk runs to
// the end of the route and then keeps emitting the final position, the way
// a real receiver keeps reporting a stationary device.
func (w *Walker) Subscribe(ctx context.Context, opts guidance.SubscribeOptions) (<-chan navigation.Fix, error) {
	interval := w.opts.UpdateInterval
	if opts.MinInterval > interval {
		interval = opts.MinInterval
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.cancel = cancel
	headings := w.headings
	w.mu.Unlock()

	fixes := make(chan navigation.Fix, 16)

	go func() {
		defer close(fixes)
		if headings != nil {
			defer close(headings)
		}

		// Pace emission in real time
		limiter := rate.NewLimiter(rate.Every(interval), 1)

		var (
			walked      float64
			lastEmitted = math.Inf(-1)
			seq         uint64
		)
		for {
			if err := limiter.Wait(runCtx); err != nil {
				return
			}

			pos, heading, err := w.route.At(walked)
			if err != nil {
				return
			}

			atEnd := walked >= w.route.Length()
			moved := walked - lastEmitted

			// Honor the subscriber's minimum movement filter while walking;
			// the stationary end-of-route fix still goes out so consumers
			// see a live source.
			if moved >= opts.MinDistanceMeters || atEnd || lastEmitted < 0 {
				seq++
				fix := navigation.Fix{
					Point:          pos,
					Heading:        heading,
					HasHeading:     !w.opts.SplitHeading,
					AccuracyMeters: w.opts.AccuracyMeters,
					HasAccuracy:    true,
					Floor:          w.opts.Floor,
					Timestamp:      time.Now().UTC(),
					Sequence:       seq,
				}
				select {
				case fixes <- fix:
					lastEmitted = walked
				case <-runCtx.Done():
					return
				}

				if headings != nil {
					select {
					case headings <- guidance.HeadingUpdate{Degrees: heading, Timestamp: fix.Timestamp}:
					case <-runCtx.Done():
						return
					}
				}
			}

			walked += w.opts.SpeedMetersPerSec * interval.Seconds()
		}
	}()

	return fixes, nil
}

// Headings returns the walker as a heading source. Only meaningful together
// with the SplitHeading option; the channel is fed by the same goroutine as
// the fixes, so both streams stay ordered.
func (w *Walker) Headings() guidance.HeadingSource {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.headings == nil {
		w.headings = make(chan guidance.HeadingUpdate, 16)
	}
	return headingSource{w: w}
}

// Stop ends the walk and closes the channels.
func (w *Walker) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

type headingSource struct {
	w *Walker
}

func (h headingSource) Subscribe(ctx context.Context) (<-chan guidance.HeadingUpdate, error) {
	h.w.mu.Lock()
	defer h.w.mu.Unlock()
	if h.w.headings == nil {
		h.w.headings = make(chan guidance.HeadingUpdate, 16)
	}
	return h.w.headings, nil
}

func (h headingSource) Stop() {}
