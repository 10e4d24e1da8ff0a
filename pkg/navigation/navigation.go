// Package navigation computes per-update navigation state between a live
// position fix and a fixed target such as a parked car.
package navigation

import (
	"strconv"
	"strings"
	"time"

	"github.com/wfinley/park-compass/pkg/direction"
	"github.com/wfinley/park-compass/pkg/geo"
)

// Arrival thresholds. The AR overlay and the compass screen historically use
// different radii; they are kept as two named constants and must not be
// merged without a product decision.
const (
	// ARArrivalThresholdMeters is the arrival radius for AR and contextual
	// guidance.
	ARArrivalThresholdMeters = 3.0

	// CompassArrivalThresholdMeters is the arrival radius for the compass
	// guidance screen (20 ft).
	CompassArrivalThresholdMeters = 6.096
)

// Accuracy tier boundaries, in meters of reported horizontal accuracy.
const (
	highAccuracyLimitMeters   = 10.0
	mediumAccuracyLimitMeters = 30.0
)

// Profile selects which guidance context a calculator serves, and with it
// which arrival threshold applies.
type Profile int

const (
	// ARGuidance uses the tight AR overlay arrival radius.
	ARGuidance Profile = iota

	// CompassGuidance uses the wider compass screen arrival radius.
	CompassGuidance
)

// ArrivalThreshold returns the arrival radius in meters for the profile.
func (p Profile) ArrivalThreshold() float64 {
	if p == CompassGuidance {
		return CompassArrivalThresholdMeters
	}
	return ARArrivalThresholdMeters
}

// ParseProfile maps a config string onto a profile. Unrecognized values
// fall back to compass guidance, the wider of the two arrival radii.
func ParseProfile(s string) Profile {
	if s == "ar" {
		return ARGuidance
	}
	return CompassGuidance
}

// Target is the fixed location being navigated to. It is immutable for the
// lifetime of a guidance session; saving a new spot starts a new session.
type Target struct {
	// Latitude in decimal degrees (-90 to +90)
	Latitude float64

	// Longitude in decimal degrees (-180 to +180)
	Longitude float64

	// Altitude in meters above mean sea level. Zero when unknown.
	Altitude float64

	// Floor is the parking floor label, e.g. "5", "-1", "P2". Empty when
	// unknown.
	Floor string

	// Label is a human-readable name ("car", "hotel"). Defaults to "car" in
	// instruction text when empty.
	Label string
}

// Point returns the target's position as a geo.Point.
func (t Target) Point() geo.Point {
	return geo.Point{Latitude: t.Latitude, Longitude: t.Longitude, Altitude: t.Altitude}
}

// Fix is a single position update from a location source.
type Fix struct {
	// Point is the position of the fix
	Point geo.Point

	// Heading is the compass heading in degrees [0, 360). Only meaningful
	// when HasHeading is true.
	Heading float64

	// HasHeading reports whether a heading was delivered with this fix
	HasHeading bool

	// AccuracyMeters is the reported horizontal accuracy. Only meaningful
	// when HasAccuracy is true.
	AccuracyMeters float64

	// HasAccuracy reports whether accuracy metadata was delivered
	HasAccuracy bool

	// Floor is the current floor label when indoor positioning supplies one
	Floor string

	// Timestamp is when the fix was measured
	Timestamp time.Time

	// Sequence increases monotonically per source; used to drop stale
	// out-of-order updates
	Sequence uint64
}

// AccuracyTier is a coarse classification of positioning quality.
type AccuracyTier string

const (
	AccuracyHigh   AccuracyTier = "high"
	AccuracyMedium AccuracyTier = "medium"
	AccuracyLow    AccuracyTier = "low"
)

// FloorDirection indicates whether the target floor is above, below, or the
// same as the current floor.
type FloorDirection string

const (
	FloorUp   FloorDirection = "up"
	FloorDown FloorDirection = "down"
	FloorSame FloorDirection = "same"
)

// State is the derived navigation snapshot, recomputed on every update.
// It is a pure function of (fix, target, profile); identical inputs always
// produce an identical State.
type State struct {
	// DistanceMeters is the great-circle distance to the target
	DistanceMeters float64

	// BearingDegrees is the initial bearing to the target [0, 360).
	// Zero when the fix coincides with the target.
	BearingDegrees float64

	// RelativeBearingDegrees is the bearing relative to the current heading
	// in (-180, 180]
	RelativeBearingDegrees float64

	// Direction is the categorical direction band
	Direction direction.Direction

	// Turn is the discrete turn instruction
	Turn direction.Turn

	// FloorDifference is the absolute number of floors between fix and
	// target, when both floors parse as integers
	FloorDifference int

	// FloorDirection indicates which way the floor difference points
	FloorDirection FloorDirection

	// AccuracyTier classifies the fix accuracy; forced to low when heading
	// or accuracy metadata is missing
	AccuracyTier AccuracyTier

	// HasArrived is true when the distance is inside the profile's arrival
	// threshold
	HasArrived bool

	// Instructions are human-readable guidance strings, most important first
	Instructions []string

	// Timestamp and Sequence are carried from the fix for staleness checks
	Timestamp time.Time
	Sequence  uint64
}

// ParseFloor parses a parking floor label into a signed level number.
// Accepts plain signed integers ("3", "-1") and a single letter prefix as
// used on garage signage ("P2", "B1"). Returns ok=false for anything else.
func ParseFloor(label string) (int, bool) {
	s := strings.TrimSpace(label)
	if s == "" {
		return 0, false
	}

	// Strip a single leading letter prefix ("P2" -> "2", "B1" -> "1")
	if len(s) > 1 {
		c := s[0]
		if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') {
			s = s[1:]
		}
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
