package geo

import "fmt"

// Conversion constants between supported distance units.
const (
	// MetersPerKilometer converts kilometers to meters
	MetersPerKilometer = 1000.0

	// MetersPerFoot converts feet to meters
	MetersPerFoot = 0.3048

	// MetersPerMile converts statute miles to meters
	MetersPerMile = 1609.344

	// MetersPerNauticalMile converts nautical miles to meters
	MetersPerNauticalMile = 1852.0
)

// Unit identifies a distance unit for conversion and formatting.
type Unit int

const (
	Meters Unit = iota
	Kilometers
	Feet
	Miles
	NauticalMiles
)

// metersPer maps each unit to its size in meters.
var metersPer = map[Unit]float64{
	Meters:        1.0,
	Kilometers:    MetersPerKilometer,
	Feet:          MetersPerFoot,
	Miles:         MetersPerMile,
	NauticalMiles: MetersPerNauticalMile,
}

// Symbol returns the conventional abbreviation for the unit.
func (u Unit) Symbol() string {
	switch u {
	case Meters:
		return "m"
	case Kilometers:
		return "km"
	case Feet:
		return "ft"
	case Miles:
		return "mi"
	case NauticalMiles:
		return "NM"
	default:
		return "?"
	}
}

// Convert converts a distance value between units. All conversions are pure
// linear scalar transforms through meters.
func Convert(value float64, from, to Unit) float64 {
	if from == to {
		return value
	}
	return value * metersPer[from] / metersPer[to]
}

// FormatDistance renders a distance in meters as a human-readable string.
//
// Metric: below 1000 m the small unit (meters) is used with 0 decimals by
// default; at or above, kilometers with 2 decimals. Imperial: below 1000 ft
// the small unit (feet) is used with 0 decimals; at or above, miles with 2
// decimals. A non-negative precision overrides the default decimal count for
// whichever unit is selected.
func FormatDistance(meters float64, imperial bool, precision int) string {
	small, large := Meters, Kilometers
	value := meters
	if imperial {
		small, large = Feet, Miles
		value = Convert(meters, Meters, Feet)
	}

	unit := small
	decimals := 0
	if value >= 1000 {
		unit = large
		value = Convert(value, small, large)
		decimals = 2
	}
	if precision >= 0 {
		decimals = precision
	}

	return fmt.Sprintf("%.*f %s", decimals, value, unit.Symbol())
}
