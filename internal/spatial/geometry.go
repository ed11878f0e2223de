package spatial

import (
	"github.com/golang/geo/s2"
)

// Point represents a 2D point with latitude and longitude
type Point struct {
	Lat float64
	Lon float64
}

// BoundingBox returns (minLat, minLon, maxLat, maxLon) of the points.
// ok is false for an empty set.
func BoundingBox(points []Point) (minLat, minLon, maxLat, maxLon float64, ok bool) {
	if len(points) == 0 {
		return 0, 0, 0, 0, false
	}

	rect := s2.EmptyRect()
	for _, p := range points {
		rect = rect.AddPoint(s2.LatLngFromDegrees(p.Lat, p.Lon))
	}

	lo, hi := rect.Lo(), rect.Hi()
	return lo.Lat.Degrees(), lo.Lng.Degrees(), hi.Lat.Degrees(), hi.Lng.Degrees(), true
}
