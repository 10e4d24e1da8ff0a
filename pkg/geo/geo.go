package geo

import "math"

// Constants for geodesic calculations
const (
	// DegreesToRadians converts degrees to radians
	DegreesToRadians = math.Pi / 180.0

	// RadiansToDegrees converts radians to degrees
	RadiansToDegrees = 180.0 / math.Pi

	// EarthRadiusMeters is the Earth's mean radius in meters (WGS84 mean radius)
	EarthRadiusMeters = 6371000.0
)

// Point represents a position on Earth's surface.
// Uses the WGS84 coordinate system (same as GPS).
type Point struct {
	// Latitude in decimal degrees (-90 to +90)
	// Positive = North, Negative = South
	Latitude float64

	// Longitude in decimal degrees (-180 to +180)
	// Positive = East, Negative = West
	Longitude float64

	// Altitude in meters above mean sea level. Zero when unknown.
	Altitude float64
}

// Validate checks that the point's latitude and longitude are finite and
// within the valid WGS84 ranges. Returns *InvalidCoordinateError otherwise.
func (p Point) Validate() error {
	if math.IsNaN(p.Latitude) || math.IsInf(p.Latitude, 0) || p.Latitude < -90 || p.Latitude > 90 {
		return &InvalidCoordinateError{Field: "latitude", Value: p.Latitude}
	}
	if math.IsNaN(p.Longitude) || math.IsInf(p.Longitude, 0) || p.Longitude < -180 || p.Longitude > 180 {
		return &InvalidCoordinateError{Field: "longitude", Value: p.Longitude}
	}
	return nil
}

// ToRadians converts the point's coordinates to radians.
// Returns (latRad, lonRad).
func (p Point) ToRadians() (float64, float64) {
	return p.Latitude * DegreesToRadians, p.Longitude * DegreesToRadians
}

// Distance calculates the great-circle distance between two points.
// Uses the Haversine formula for accuracy over short and long distances.
// The result is symmetric (Distance(a,b) == Distance(b,a)) and zero for
// identical coordinates.
//
// Returns distance in meters, or *InvalidCoordinateError if either point is
// outside the valid range.
func Distance(a, b Point) (float64, error) {
	if err := a.Validate(); err != nil {
		return 0, err
	}
	if err := b.Validate(); err != nil {
		return 0, err
	}

	lat1Rad, lon1Rad := a.ToRadians()
	lat2Rad, lon2Rad := b.ToRadians()

	dLat := lat2Rad - lat1Rad
	dLon := lon2Rad - lon1Rad

	// Haversine formula
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusMeters * c, nil
}

// Bearing calculates the initial bearing (forward azimuth) from one point to
// another along the great circle. Returns bearing in degrees [0, 360), where
// 0 = North, 90 = East, 180 = South, 270 = West.
//
// The bearing between two identical coordinates is undefined and returns
// *UndefinedBearingError rather than an arbitrary value.
func Bearing(from, to Point) (float64, error) {
	if err := from.Validate(); err != nil {
		return 0, err
	}
	if err := to.Validate(); err != nil {
		return 0, err
	}
	if from.Latitude == to.Latitude && from.Longitude == to.Longitude {
		return 0, &UndefinedBearingError{Latitude: from.Latitude, Longitude: from.Longitude}
	}

	lat1, lon1 := from.ToRadians()
	lat2, lon2 := to.ToRadians()

	dLon := lon2 - lon1
	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)

	return Normalize(math.Atan2(y, x) * RadiansToDegrees), nil
}

// RelativeBearing expresses a target bearing relative to the current heading.
// Returns degrees in (-180, 180]: 0 = target directly ahead, positive = target
// to the right, negative = to the left. A target exactly behind is +180.
func RelativeBearing(heading, targetBearing float64) float64 {
	return NormalizeRelative(targetBearing - heading)
}

// Midpoint calculates the spherical midpoint between two points.
func Midpoint(a, b Point) (Point, error) {
	if err := a.Validate(); err != nil {
		return Point{}, err
	}
	if err := b.Validate(); err != nil {
		return Point{}, err
	}

	lat1, lon1 := a.ToRadians()
	lat2, lon2 := b.ToRadians()

	dLon := lon2 - lon1
	bx := math.Cos(lat2) * math.Cos(dLon)
	by := math.Cos(lat2) * math.Sin(dLon)

	midLat := math.Atan2(
		math.Sin(lat1)+math.Sin(lat2),
		math.Sqrt((math.Cos(lat1)+bx)*(math.Cos(lat1)+bx)+by*by),
	)
	midLon := lon1 + math.Atan2(by, math.Cos(lat1)+bx)

	return Point{
		Latitude:  midLat * RadiansToDegrees,
		Longitude: normalizeLongitude(midLon * RadiansToDegrees),
		Altitude:  (a.Altitude + b.Altitude) / 2,
	}, nil
}

// Destination calculates the point reached by travelling a given distance
// from a starting point along an initial bearing, using the forward great
// circle formulas from spherical trigonometry.
//
// Parameters:
//   - from: Starting point
//   - bearingDeg: Initial bearing in degrees (0-360, 0=North)
//   - distanceMeters: Distance to travel in meters
func Destination(from Point, bearingDeg, distanceMeters float64) (Point, error) {
	if err := from.Validate(); err != nil {
		return Point{}, err
	}

	latRad, lonRad := from.ToRadians()
	bearingRad := bearingDeg * DegreesToRadians

	// Angular distance (distance / Earth radius)
	angular := distanceMeters / EarthRadiusMeters

	newLatRad := math.Asin(
		math.Sin(latRad)*math.Cos(angular) +
			math.Cos(latRad)*math.Sin(angular)*math.Cos(bearingRad),
	)
	newLonRad := lonRad + math.Atan2(
		math.Sin(bearingRad)*math.Sin(angular)*math.Cos(latRad),
		math.Cos(angular)-math.Sin(latRad)*math.Sin(newLatRad),
	)

	return Point{
		Latitude:  newLatRad * RadiansToDegrees,
		Longitude: normalizeLongitude(newLonRad * RadiansToDegrees),
		Altitude:  from.Altitude,
	}, nil
}

// Interpolate finds a point along the great circle path between two points.
// fraction=0 returns the start point, fraction=1 the end point.
//
// Uses spherical linear interpolation (slerp).
func Interpolate(a, b Point, fraction float64) (Point, error) {
	if err := a.Validate(); err != nil {
		return Point{}, err
	}
	if err := b.Validate(); err != nil {
		return Point{}, err
	}

	lat1, lon1 := a.ToRadians()
	lat2, lon2 := b.ToRadians()

	// Angular distance between the endpoints
	d := math.Acos(
		math.Sin(lat1)*math.Sin(lat2) +
			math.Cos(lat1)*math.Cos(lat2)*math.Cos(lon2-lon1),
	)

	// Points are effectively coincident
	if d < 1e-10 {
		return a, nil
	}

	fa := math.Sin((1-fraction)*d) / math.Sin(d)
	fb := math.Sin(fraction*d) / math.Sin(d)

	// Interpolate through Cartesian coordinates
	x := fa*math.Cos(lat1)*math.Cos(lon1) + fb*math.Cos(lat2)*math.Cos(lon2)
	y := fa*math.Cos(lat1)*math.Sin(lon1) + fb*math.Cos(lat2)*math.Sin(lon2)
	z := fa*math.Sin(lat1) + fb*math.Sin(lat2)

	return Point{
		Latitude:  math.Atan2(z, math.Sqrt(x*x+y*y)) * RadiansToDegrees,
		Longitude: math.Atan2(y, x) * RadiansToDegrees,
		Altitude:  a.Altitude + (b.Altitude-a.Altitude)*fraction,
	}, nil
}

// Normalize ensures a bearing is in the range [0, 360).
func Normalize(bearing float64) float64 {
	deg := math.Mod(bearing, 360.0)
	if deg < 0 {
		deg += 360.0
	}
	return deg
}

// NormalizeRelative ensures a signed angle is in the range (-180, 180].
// Note the half-open ranges: exactly -180 normalizes to +180 so "directly
// behind" always carries the same sign.
func NormalizeRelative(angle float64) float64 {
	deg := math.Mod(angle, 360.0)
	if deg <= -180 {
		deg += 360.0
	} else if deg > 180 {
		deg -= 360.0
	}
	return deg
}

// normalizeLongitude wraps a longitude into [-180, 180].
func normalizeLongitude(lon float64) float64 {
	if lon > 180.0 {
		lon -= 360.0
	} else if lon < -180.0 {
		lon += 360.0
	}
	return lon
}
