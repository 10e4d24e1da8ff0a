package geo

import "fmt"

// InvalidCoordinateError reports a latitude or longitude outside the valid
// WGS84 range, or a non-finite value. Coordinates are never silently clamped;
// callers get this error instead of a plausible-looking wrong answer.
type InvalidCoordinateError struct {
	// Field is "latitude" or "longitude"
	Field string

	// Value is the offending input
	Value float64
}

func (e *InvalidCoordinateError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Value)
}

// UndefinedBearingError reports a bearing request between two identical
// points. The forward azimuth of a zero-length great-circle arc is undefined,
// so Bearing refuses to guess. Callers that can special-case zero distance
// (such as the navigation state calculator) handle this internally.
type UndefinedBearingError struct {
	Latitude  float64
	Longitude float64
}

func (e *UndefinedBearingError) Error() string {
	return fmt.Sprintf("bearing undefined between identical points (%.6f, %.6f)", e.Latitude, e.Longitude)
}
