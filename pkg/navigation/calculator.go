package navigation

import (
	"fmt"

	"github.com/wfinley/park-compass/pkg/direction"
	"github.com/wfinley/park-compass/pkg/geo"
)

// Calculator derives navigation state snapshots. It holds no mutable state
// and is safe for concurrent use.
type Calculator struct {
	// Profile selects the arrival threshold
	Profile Profile

	// Imperial selects feet/miles instead of meters/kilometers in
	// instruction text
	Imperial bool
}

// Compute derives the navigation state for a single fix against the target.
//
// A fix with no heading is still computed: the heading is treated as 0 and
// the accuracy tier forced to low, so consumers can see the arrow is not to
// be trusted. A fix exactly on the target is special-cased, because the
// bearing of a zero-length arc is undefined; it reports straight/arrived
// without consulting Bearing.
func (c Calculator) Compute(fix Fix, target Target) (State, error) {
	dist, err := geo.Distance(fix.Point, target.Point())
	if err != nil {
		return State{}, fmt.Errorf("failed to compute distance to target: %w", err)
	}

	state := State{
		DistanceMeters: dist,
		AccuracyTier:   c.accuracyTier(fix),
		Timestamp:      fix.Timestamp,
		Sequence:       fix.Sequence,
	}

	state.FloorDifference, state.FloorDirection = floorDelta(fix.Floor, target.Floor)

	threshold := c.Profile.ArrivalThreshold()
	state.HasArrived = dist < threshold

	if dist == 0 {
		// Bearing is undefined on top of the target; report straight ahead.
		state.Direction = direction.Straight
		state.Turn = direction.Turn{Direction: direction.TurnStraight}
		state.HasArrived = true
		state.Instructions = c.buildInstructions(state, target, threshold)
		return state, nil
	}

	bearing, err := geo.Bearing(fix.Point, target.Point())
	if err != nil {
		return State{}, fmt.Errorf("failed to compute bearing to target: %w", err)
	}

	heading := 0.0
	if fix.HasHeading {
		heading = fix.Heading
	}

	state.BearingDegrees = bearing
	state.RelativeBearingDegrees = geo.RelativeBearing(heading, bearing)
	state.Direction = direction.Label(state.RelativeBearingDegrees)
	state.Turn = direction.TurnToward(heading, bearing)
	state.Instructions = c.buildInstructions(state, target, threshold)

	return state, nil
}

// accuracyTier classifies the fix. Missing accuracy metadata or a missing
// heading both degrade to low: without a heading the computed relative
// bearing assumes the user faces north, which is only occasionally true.
func (c Calculator) accuracyTier(fix Fix) AccuracyTier {
	if !fix.HasAccuracy || !fix.HasHeading {
		return AccuracyLow
	}
	switch {
	case fix.AccuracyMeters < highAccuracyLimitMeters:
		return AccuracyHigh
	case fix.AccuracyMeters < mediumAccuracyLimitMeters:
		return AccuracyMedium
	default:
		return AccuracyLow
	}
}

// floorDelta parses both floor labels and returns the absolute difference
// and its direction. Either label failing to parse yields (0, same).
func floorDelta(currentLabel, targetLabel string) (int, FloorDirection) {
	current, okCurrent := ParseFloor(currentLabel)
	target, okTarget := ParseFloor(targetLabel)
	if !okCurrent || !okTarget {
		return 0, FloorSame
	}

	switch {
	case target > current:
		return target - current, FloorUp
	case target < current:
		return current - target, FloorDown
	default:
		return 0, FloorSame
	}
}

// buildInstructions assembles the ordered human-readable guidance strings.
func (c Calculator) buildInstructions(state State, target Target, threshold float64) []string {
	label := target.Label
	if label == "" {
		label = "car"
	}

	var out []string
	if state.HasArrived {
		out = append(out, fmt.Sprintf("You have arrived. Your %s is within %s.",
			label, geo.FormatDistance(threshold, c.Imperial, 0)))
	} else {
		out = append(out, fmt.Sprintf("Your %s is %s %s.",
			label, geo.FormatDistance(state.DistanceMeters, c.Imperial, -1), state.Direction.Phrase()))
	}

	if state.FloorDifference > 0 {
		verb := "up"
		if state.FloorDirection == FloorDown {
			verb = "down"
		}
		noun := "floors"
		if state.FloorDifference == 1 {
			noun = "floor"
		}
		out = append(out, fmt.Sprintf("Go %s %d %s.", verb, state.FloorDifference, noun))
	}

	return out
}
