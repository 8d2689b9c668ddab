package geo

import (
	"math"
	"strconv"
	"strings"
)

const (
	// EarthRadiusMiles is the mean radius of Earth used for distances shown to users.
	EarthRadiusMiles = 3959.0
	// EarthRadiusMeters is the mean radius of Earth in meters.
	EarthRadiusMeters = 6_371_000.0
	// UnknownMiles is assigned to results whose coordinates are missing or unparseable.
	// It sorts after every real distance.
	UnknownMiles = 999.0
)

// Haversine returns the great-circle distance between two points given in degrees,
// expressed in the unit of radius.
func Haversine(lat1, lon1, lat2, lon2, radius float64) float64 {
	lat1r := lat1 * math.Pi / 180
	lat2r := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1r)*math.Cos(lat2r)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return radius * c
}

// Meters returns the great-circle distance in meters.
func Meters(lat1, lon1, lat2, lon2 float64) float64 {
	return Haversine(lat1, lon1, lat2, lon2, EarthRadiusMeters)
}

// Miles returns the great-circle distance in miles rounded to one decimal.
// NaN inputs propagate to a NaN result.
func Miles(lat1, lon1, lat2, lon2 float64) float64 {
	return Round1(Haversine(lat1, lon1, lat2, lon2, EarthRadiusMiles))
}

// MilesFromStrings parses both coordinate pairs and returns the distance in miles.
// Any unparseable coordinate yields NaN.
func MilesFromStrings(lat1, lon1, lat2, lon2 string) float64 {
	return Miles(ParseCoordinate(lat1), ParseCoordinate(lon1), ParseCoordinate(lat2), ParseCoordinate(lon2))
}

// ParseCoordinate parses a decimal degree string. Empty or malformed input yields NaN.
func ParseCoordinate(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) {
		return math.NaN()
	}
	return v
}

// Round1 rounds to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// KnownOr returns d, or UnknownMiles when d is NaN.
func KnownOr(d float64) float64 {
	if math.IsNaN(d) {
		return UnknownMiles
	}
	return d
}

// FormatMiles renders a distance with one decimal, or "" for the unknown sentinel.
func FormatMiles(d float64) string {
	if math.IsNaN(d) || d >= UnknownMiles {
		return ""
	}
	return strconv.FormatFloat(Round1(d), 'f', 1, 64)
}

// ValidateCoordinates checks that latitude is in [-90,90] and longitude in [-180,180].
func ValidateCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
