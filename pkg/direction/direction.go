// Package direction translates relative bearings into categorical directions
// and discrete turn instructions for guidance output.
package direction

import (
	"math"

	"github.com/wfinley/park-compass/pkg/geo"
)

// Direction is a categorical description of where a target sits relative to
// the current heading.
type Direction string

const (
	Straight      Direction = "straight"
	SlightlyRight Direction = "slightly-right"
	Right         Direction = "right"
	SharplyRight  Direction = "sharply-right"
	BehindRight   Direction = "behind-right"
	SlightlyLeft  Direction = "slightly-left"
	Left          Direction = "left"
	SharplyLeft   Direction = "sharply-left"
	BehindLeft    Direction = "behind-left"
	Behind        Direction = "behind"
)

// Angular band limits, in degrees of absolute relative bearing. Each limit is
// inclusive: exactly 10 is still straight, exactly 30 still slightly.
const (
	straightLimit = 10.0
	slightlyLimit = 30.0
	plainLimit    = 60.0
	sharplyLimit  = 120.0
	behindLimit   = 150.0
)

// Label converts a relative bearing into a categorical direction.
// The input is normalized first, so Label is total over all finite inputs:
// |angle| <=10 straight, <=30 slightly+side, <=60 side, <=120 sharply+side,
// <=150 behind+side, else behind. The side is taken from the sign (positive
// = right).
func Label(relativeBearing float64) Direction {
	rel := geo.NormalizeRelative(relativeBearing)
	abs := math.Abs(rel)
	right := rel >= 0

	switch {
	case abs <= straightLimit:
		return Straight
	case abs <= slightlyLimit:
		if right {
			return SlightlyRight
		}
		return SlightlyLeft
	case abs <= plainLimit:
		if right {
			return Right
		}
		return Left
	case abs <= sharplyLimit:
		if right {
			return SharplyRight
		}
		return SharplyLeft
	case abs <= behindLimit:
		if right {
			return BehindRight
		}
		return BehindLeft
	default:
		return Behind
	}
}

// Phrase returns the direction as a spoken-instruction fragment, e.g.
// "slightly to your right".
func (d Direction) Phrase() string {
	switch d {
	case Straight:
		return "straight ahead"
	case SlightlyRight:
		return "slightly to your right"
	case Right:
		return "to your right"
	case SharplyRight:
		return "sharply to your right"
	case BehindRight:
		return "behind you to the right"
	case SlightlyLeft:
		return "slightly to your left"
	case Left:
		return "to your left"
	case SharplyLeft:
		return "sharply to your left"
	case BehindLeft:
		return "behind you to the left"
	case Behind:
		return "behind you"
	default:
		return string(d)
	}
}

// TurnDirection is the discrete turn component of a Turn.
type TurnDirection string

const (
	TurnStraight TurnDirection = "straight"
	TurnLeft     TurnDirection = "left"
	TurnRight    TurnDirection = "right"
	TurnAround   TurnDirection = "around"
)

// Turn is a discrete turn instruction: which way to turn and by how much.
type Turn struct {
	// Direction of the turn
	Direction TurnDirection

	// AngleDegrees is the magnitude of the turn in degrees [0, 180]
	AngleDegrees float64
}

// TurnToward produces the turn instruction that rotates the current heading
// toward a target bearing. Within 10 degrees no turn is needed; at 170
// degrees or more the instruction is a turn-around.
func TurnToward(heading, targetBearing float64) Turn {
	rel := geo.RelativeBearing(heading, targetBearing)
	abs := math.Abs(rel)

	switch {
	case abs <= straightLimit:
		return Turn{Direction: TurnStraight, AngleDegrees: 0}
	case abs >= 170.0:
		return Turn{Direction: TurnAround, AngleDegrees: 180}
	case rel > 0:
		return Turn{Direction: TurnRight, AngleDegrees: abs}
	default:
		return Turn{Direction: TurnLeft, AngleDegrees: abs}
	}
}
