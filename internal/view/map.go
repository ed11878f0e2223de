package view

import (
	"errors"
	"fmt"
	"sync"

	"github.com/quakepredictec/riesgo-dashboard/internal/models"
	"github.com/quakepredictec/riesgo-dashboard/internal/spatial"
)

// Map defaults of the dashboard
const (
	DefaultCenterLat = -1.8
	DefaultCenterLon = -78.2
	DefaultZoom      = 6
	FocusZoom        = 9

	// FocusToleranceMeters is how far a focus point may be from a marker and
	// still open its popup
	FocusToleranceMeters = 1000.0
)

// ErrUnknownLocation is returned when focusing a location with no marker
var ErrUnknownLocation = errors.New("no marker for location")

// Surface is the external rendering capability. Enqueue must not block; it
// reports false when the operation was dropped. Implementations must not drop
// MapOpReplaceAll: it carries the whole marker set.
type Surface interface {
	Enqueue(op models.MapOp) bool
}

// DiscardSurface accepts and drops every operation
type DiscardSurface struct{}

func (DiscardSurface) Enqueue(models.MapOp) bool { return true }

// MapRenderer keeps the marker set keyed by location and mirrors every
// change to the surface.
type MapRenderer struct {
	mu      sync.RWMutex
	surface Surface
	markers map[string]models.Marker
	order   []string
	focus   models.MapFocus
}

// NewMapRenderer creates a renderer centered on the default view
func NewMapRenderer(surface Surface) *MapRenderer {
	if surface == nil {
		surface = DiscardSurface{}
	}
	return &MapRenderer{
		surface: surface,
		markers: make(map[string]models.Marker),
		focus:   models.MapFocus{Lat: DefaultCenterLat, Lon: DefaultCenterLon, Zoom: DefaultZoom},
	}
}

// Popup builds the marker popup text
func Popup(r models.RiskRecord) string {
	return fmt.Sprintf("QuakePredictEC informa\nZona: %s\nNivel de riesgo: %s\nProb. de sismo: %s",
		r.LocationKey, r.RiskLevel, PercentText(r.Probability, 1))
}

// MarkerFor builds the marker of a record. The color is used verbatim.
func MarkerFor(r models.RiskRecord) models.Marker {
	return models.Marker{
		LocationKey: r.LocationKey,
		Lat:         r.Lat,
		Lon:         r.Lon,
		Color:       r.Color,
		Popup:       Popup(r),
	}
}

// Upsert adds or replaces the marker keyed by the record's location
func (m *MapRenderer) Upsert(r models.RiskRecord) {
	marker := MarkerFor(r)

	m.mu.Lock()
	if _, ok := m.markers[marker.LocationKey]; !ok {
		m.order = append(m.order, marker.LocationKey)
	}
	m.markers[marker.LocationKey] = marker
	m.mu.Unlock()

	m.surface.Enqueue(models.MapOp{Op: models.MapOpUpsert, Marker: &marker})
}

// ClearAll removes every marker
func (m *MapRenderer) ClearAll() {
	m.mu.Lock()
	m.markers = make(map[string]models.Marker)
	m.order = nil
	m.mu.Unlock()

	m.surface.Enqueue(models.MapOp{Op: models.MapOpClearAll})
}

// ReplaceAll swaps the whole marker set for records and sends it to the
// surface as a single operation. Later duplicates of a location replace
// earlier ones, as with Upsert.
func (m *MapRenderer) ReplaceAll(records []models.RiskRecord) {
	markers := make(map[string]models.Marker, len(records))
	order := make([]string, 0, len(records))
	for _, r := range records {
		mk := MarkerFor(r)
		if _, ok := markers[mk.LocationKey]; !ok {
			order = append(order, mk.LocationKey)
		}
		markers[mk.LocationKey] = mk
	}
	snapshot := make([]models.Marker, 0, len(order))
	for _, key := range order {
		snapshot = append(snapshot, markers[key])
	}

	m.mu.Lock()
	m.markers = markers
	m.order = order
	m.mu.Unlock()

	m.surface.Enqueue(models.MapOp{Op: models.MapOpReplaceAll, Markers: snapshot})
}

// Focus re-centers the map and opens the popup of the marker nearest to
// (lat, lon) if one lies within FocusToleranceMeters.
func (m *MapRenderer) Focus(lat, lon float64, zoom int) models.MapFocus {
	if zoom <= 0 {
		zoom = FocusZoom
	}

	m.mu.Lock()
	focus := models.MapFocus{Lat: lat, Lon: lon, Zoom: zoom}
	points := make([]spatial.Point, len(m.order))
	for i, key := range m.order {
		mk := m.markers[key]
		points[i] = spatial.Point{Lat: mk.Lat, Lon: mk.Lon}
	}
	if i, dist := spatial.Nearest(lat, lon, points); i >= 0 && dist <= FocusToleranceMeters {
		focus.LocationKey = m.order[i]
	}
	m.focus = focus
	m.mu.Unlock()

	m.surface.Enqueue(models.MapOp{Op: models.MapOpFocus, Focus: &focus})
	return focus
}

// FocusLocation centers on the marker of a location key
func (m *MapRenderer) FocusLocation(key string, zoom int) (models.MapFocus, error) {
	if zoom <= 0 {
		zoom = FocusZoom
	}

	m.mu.Lock()
	mk, ok := m.markers[key]
	if !ok {
		m.mu.Unlock()
		return models.MapFocus{}, fmt.Errorf("%w: %q", ErrUnknownLocation, key)
	}
	focus := models.MapFocus{Lat: mk.Lat, Lon: mk.Lon, Zoom: zoom, LocationKey: key}
	m.focus = focus
	m.mu.Unlock()

	m.surface.Enqueue(models.MapOp{Op: models.MapOpFocus, Focus: &focus})
	return focus, nil
}

// Markers returns the markers in insertion order
func (m *MapRenderer) Markers() []models.Marker {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Marker, 0, len(m.order))
	for _, key := range m.order {
		out = append(out, m.markers[key])
	}
	return out
}

// Bounds returns the box enclosing every marker, nil when there are none
func (m *MapRenderer) Bounds() *models.MapBounds {
	m.mu.RLock()
	points := make([]spatial.Point, 0, len(m.order))
	for _, key := range m.order {
		mk := m.markers[key]
		points = append(points, spatial.Point{Lat: mk.Lat, Lon: mk.Lon})
	}
	m.mu.RUnlock()

	minLat, minLon, maxLat, maxLon, ok := spatial.BoundingBox(points)
	if !ok {
		return nil
	}
	return &models.MapBounds{MinLat: minLat, MinLon: minLon, MaxLat: maxLat, MaxLon: maxLon}
}

// Center returns the last focus, or the default view
func (m *MapRenderer) Center() models.MapFocus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.focus
}
