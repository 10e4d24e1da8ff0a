package simulate

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/wfinley/park-compass/pkg/geo"
	"github.com/wfinley/park-compass/pkg/guidance"
)

// TestRouteLength tests cumulative leg measurement.
func TestRouteLength(t *testing.T) {
	start := geo.Point{Latitude: 37.7749, Longitude: -122.4194}
	mid, err := geo.Destination(start, 0.0, 100.0)
	if err != nil {
		t.Fatalf("Destination() error: %v", err)
	}
	end, err := geo.Destination(mid, 90.0, 50.0)
	if err != nil {
		t.Fatalf("Destination() error: %v", err)
	}

	route, err := NewRoute(start, mid, end)
	if err != nil {
		t.Fatalf("NewRoute() error: %v", err)
	}
	if math.Abs(route.Length()-150.0) > 0.5 {
		t.Errorf("Length() = %.2f, want ~150", route.Length())
	}
}

// TestRouteAt tests position and heading lookup along the route, including
// clamping at both ends.
func TestRouteAt(t *testing.T) {
	start := geo.Point{Latitude: 37.7749, Longitude: -122.4194}
	route, err := StraightRoute(start, 0.0, 100.0)
	if err != nil {
		t.Fatalf("StraightRoute() error: %v", err)
	}

	tests := []struct {
		name          string
		distance      float64
		wantFromStart float64
	}{
		{"At start", 0.0, 0.0},
		{"Quarter way", 25.0, 25.0},
		{"Halfway", 50.0, 50.0},
		{"At end", 100.0, 100.0},
		{"Past the end clamps", 250.0, 100.0},
		{"Negative clamps to start", -5.0, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos, heading, err := route.At(tt.distance)
			if err != nil {
				t.Fatalf("At(%.1f) error: %v", tt.distance, err)
			}
			d, err := geo.Distance(start, pos)
			if err != nil {
				t.Fatalf("Distance() error: %v", err)
			}
			if math.Abs(d-tt.wantFromStart) > 0.5 {
				t.Errorf("At(%.1f) is %.2f m from start, want %.2f", tt.distance, d, tt.wantFromStart)
			}
			if heading > 1.0 && heading < 359.0 {
				t.Errorf("At(%.1f) heading = %.2f, want ~0 (northbound route)", tt.distance, heading)
			}
		})
	}
}

// TestRouteTooFewWaypoints verifies the two-waypoint minimum.
func TestRouteTooFewWaypoints(t *testing.T) {
	if _, err := NewRoute(geo.Point{Latitude: 1, Longitude: 1}); err == nil {
		t.Fatal("NewRoute() with one waypoint expected error")
	}
}

// TestWalkerEmitsOrderedFixes runs a short fast walk and checks the fixes
// advance monotonically along the route with increasing sequence numbers.
func TestWalkerEmitsOrderedFixes(t *testing.T) {
	start := geo.Point{Latitude: 37.7749, Longitude: -122.4194}
	route, err := StraightRoute(start, 0.0, 50.0)
	if err != nil {
		t.Fatalf("StraightRoute() error: %v", err)
	}

	walker := NewWalker(route, WalkerOptions{
		SpeedMetersPerSec: 10.0,
		UpdateInterval:    5 * time.Millisecond,
		AccuracyMeters:    3.0,
	})
	defer walker.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	fixes, err := walker.Subscribe(ctx, guidance.SubscribeOptions{})
	if err != nil {
		t.Fatalf("Subscribe() error: %v", err)
	}

	var lastSeq uint64
	var lastDistance = -1.0
	for i := 0; i < 8; i++ {
		select {
		case fix, ok := <-fixes:
			if !ok {
				t.Fatal("fix channel closed early")
			}
			if fix.Sequence <= lastSeq {
				t.Errorf("sequence not increasing: %d after %d", fix.Sequence, lastSeq)
			}
			lastSeq = fix.Sequence

			if !fix.HasHeading {
				t.Error("walker fixes should carry a heading by default")
			}
			if fix.AccuracyMeters != 3.0 || !fix.HasAccuracy {
				t.Errorf("accuracy = (%.1f, %v), want (3.0, true)", fix.AccuracyMeters, fix.HasAccuracy)
			}

			d, err := geo.Distance(start, fix.Point)
			if err != nil {
				t.Fatalf("Distance() error: %v", err)
			}
			if d < lastDistance-0.01 {
				t.Errorf("walked backwards: %.2f m after %.2f m", d, lastDistance)
			}
			lastDistance = d
		case <-ctx.Done():
			t.Fatal("timed out waiting for fixes")
		}
	}

	if lastDistance <= 0 {
		t.Error("walker never moved")
	}
}

// TestWalkerSplitHeading verifies the compass channel carries the headings
// when fixes are emitted without one.
func TestWalkerSplitHeading(t *testing.T) {
	start := geo.Point{Latitude: 37.7749, Longitude: -122.4194}
	route, err := StraightRoute(start, 90.0, 50.0)
	if err != nil {
		t.Fatalf("StraightRoute() error: %v", err)
	}

	walker := NewWalker(route, WalkerOptions{
		SpeedMetersPerSec: 10.0,
		UpdateInterval:    5 * time.Millisecond,
		SplitHeading:      true,
	})
	defer walker.Stop()

	compass := walker.Headings()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	fixes, err := walker.Subscribe(ctx, guidance.SubscribeOptions{})
	if err != nil {
		t.Fatalf("Subscribe() error: %v", err)
	}
	headings, err := compass.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Headings().Subscribe() error: %v", err)
	}

	select {
	case fix := <-fixes:
		if fix.HasHeading {
			t.Error("split-heading fixes must not carry a heading")
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for fix")
	}

	select {
	case h := <-headings:
		if math.Abs(h.Degrees-90.0) > 1.0 {
			t.Errorf("heading = %.2f, want ~90 (eastbound route)", h.Degrees)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for heading")
	}
}
