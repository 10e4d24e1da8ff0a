// Package simulate provides a deterministic walking-position source for
// driving the guidance engine in demos and tests, standing in for a device
// GPS and compass.
package simulate

import (
	"fmt"

	"github.com/wfinley/park-compass/pkg/geo"
)

// Route is a polyline of waypoints walked at constant speed.
type Route struct {
	points []geo.Point

	// cumulative[i] is the distance in meters from the start to points[i]
	cumulative []float64
}

// NewRoute builds a route through the given waypoints.
// At least two waypoints are required.
func NewRoute(waypoints ...geo.Point) (*Route, error) {
	if len(waypoints) < 2 {
		return nil, fmt.Errorf("route needs at least 2 waypoints, got %d", len(waypoints))
	}

	cumulative := make([]float64, len(waypoints))
	for i := 1; i < len(waypoints); i++ {
		d, err := geo.Distance(waypoints[i-1], waypoints[i])
		if err != nil {
			return nil, fmt.Errorf("failed to measure route leg %d: %w", i, err)
		}
		cumulative[i] = cumulative[i-1] + d
	}

	return &Route{points: waypoints, cumulative: cumulative}, nil
}

// StraightRoute builds a two-point route from a starting point along an
// initial bearing.
func StraightRoute(from geo.Point, bearingDeg, distanceMeters float64) (*Route, error) {
	end, err := geo.Destination(from, bearingDeg, distanceMeters)
	if err != nil {
		return nil, fmt.Errorf("failed to project route end: %w", err)
	}
	return NewRoute(from, end)
}

// Length returns the total route length in meters.
func (r *Route) Length() float64 {
	return r.cumulative[len(r.cumulative)-1]
}

// At returns the position and walking heading at a given distance along the
// route. Distances past the end clamp to the final waypoint with the heading
// of the last leg.
func (r *Route) At(distanceMeters float64) (geo.Point, float64, error) {
	if distanceMeters <= 0 {
		heading, err := r.legHeading(0)
		return r.points[0], heading, err
	}
	if distanceMeters >= r.Length() {
		heading, err := r.legHeading(len(r.points) - 2)
		return r.points[len(r.points)-1], heading, err
	}

	// Find the leg containing this distance
	leg := 0
	for leg < len(r.cumulative)-1 && r.cumulative[leg+1] < distanceMeters {
		leg++
	}

	legLen := r.cumulative[leg+1] - r.cumulative[leg]
	fraction := 0.0
	if legLen > 0 {
		fraction = (distanceMeters - r.cumulative[leg]) / legLen
	}

	p, err := geo.Interpolate(r.points[leg], r.points[leg+1], fraction)
	if err != nil {
		return geo.Point{}, 0, fmt.Errorf("failed to interpolate route position: %w", err)
	}
	heading, err := r.legHeading(leg)
	if err != nil {
		return geo.Point{}, 0, err
	}
	return p, heading, nil
}

// legHeading returns the initial bearing of a leg. A zero-length leg walks
// north.
func (r *Route) legHeading(leg int) (float64, error) {
	a, b := r.points[leg], r.points[leg+1]
	if a.Latitude == b.Latitude && a.Longitude == b.Longitude {
		return 0, nil
	}
	heading, err := geo.Bearing(a, b)
	if err != nil {
		return 0, fmt.Errorf("failed to compute leg heading: %w", err)
	}
	return heading, nil
}
