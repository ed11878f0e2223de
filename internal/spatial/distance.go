package spatial

import (
	"github.com/golang/geo/s2"
)

// Constants
const (
	EarthRadiusMeters = 6371000.0 // Earth's mean radius in meters
	EarthRadiusKm     = 6371.0    // Earth's mean radius in kilometers
)

// HaversineDistance calculates the great-circle distance between two points in meters
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}

// Valid reports whether lat/lon is a usable WGS84 coordinate
func Valid(lat, lon float64) bool {
	return s2.LatLngFromDegrees(lat, lon).IsValid()
}

// Nearest returns the index of the point closest to (lat, lon) and its
// distance in meters. It returns -1 for an empty slice.
func Nearest(lat, lon float64, points []Point) (int, float64) {
	best, bestDist := -1, 0.0
	for i, p := range points {
		d := HaversineDistance(lat, lon, p.Lat, p.Lon)
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, bestDist
}
