package view

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quakepredictec/riesgo-dashboard/internal/models"
)

type recordingSurface struct {
	mu  sync.Mutex
	ops []models.MapOp
}

func (s *recordingSurface) Enqueue(op models.MapOp) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, op)
	return true
}

func quito() models.RiskRecord {
	return models.RiskRecord{
		LocationKey: "Quito",
		DisplayDate: time.Date(2025, 11, 18, 0, 0, 0, 0, time.UTC),
		Probability: 0.85,
		RiskLevel:   "alto",
		Color:       "#dc2626",
		Lat:         -0.18,
		Lon:         -78.47,
	}
}

func guayaquil() models.RiskRecord {
	return models.RiskRecord{
		LocationKey: "Guayaquil",
		DisplayDate: time.Date(2025, 11, 20, 0, 0, 0, 0, time.UTC),
		Probability: 0.7234,
		RiskLevel:   "alto",
		Color:       "rgb(220, 38, 38)",
		Lat:         -2.19,
		Lon:         -79.89,
	}
}

func TestRenderPage(t *testing.T) {
	rows := RenderPage([]models.RiskRecord{quito(), guayaquil()})
	require.Len(t, rows, 2)

	assert.Equal(t, models.RowView{
		Date:                   "2025-11-18",
		Location:               "Quito",
		ProbabilityPercentText: "85.00%",
		RiskLevel:              "alto",
		Color:                  "#dc2626",
	}, rows[0])
	assert.Equal(t, "72.34%", rows[1].ProbabilityPercentText)

	assert.Empty(t, RenderPage(nil))
	assert.NotNil(t, RenderPage(nil))
}

func TestPercentText(t *testing.T) {
	tests := []struct {
		p      float64
		places int32
		want   string
	}{
		{0, 2, "0.00%"},
		{1, 2, "100.00%"},
		{0.7, 2, "70.00%"},
		{0.12345, 2, "12.35%"},
		{0.856, 1, "85.6%"},
		{1.2, 1, "120.0%"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PercentText(tt.p, tt.places))
	}
}

func TestMapUpsertReplacesByLocation(t *testing.T) {
	surface := &recordingSurface{}
	m := NewMapRenderer(surface)

	m.Upsert(quito())
	updated := quito()
	updated.Probability = 0.9
	updated.Color = "purple"
	m.Upsert(updated)

	markers := m.Markers()
	require.Len(t, markers, 1)
	assert.Equal(t, "purple", markers[0].Color)
	assert.Contains(t, markers[0].Popup, "Quito")
	assert.Contains(t, markers[0].Popup, "alto")
	assert.Contains(t, markers[0].Popup, "90.0%")
	assert.Len(t, surface.ops, 2)
	assert.Equal(t, models.MapOpUpsert, surface.ops[1].Op)
}

func TestMapClearAll(t *testing.T) {
	surface := &recordingSurface{}
	m := NewMapRenderer(surface)
	m.Upsert(quito())
	m.Upsert(guayaquil())

	m.ClearAll()
	assert.Empty(t, m.Markers())
	assert.Nil(t, m.Bounds())
	assert.Equal(t, models.MapOpClearAll, surface.ops[len(surface.ops)-1].Op)
}

func TestMapReplaceAllIsOneOperation(t *testing.T) {
	surface := &recordingSurface{}
	m := NewMapRenderer(surface)
	m.Upsert(quito())

	records := make([]models.RiskRecord, 0, 1000)
	for i := 0; i < 1000; i++ {
		r := guayaquil()
		r.LocationKey = fmt.Sprintf("Canton %04d", i)
		records = append(records, r)
	}
	m.ReplaceAll(records)

	require.Len(t, surface.ops, 2)
	last := surface.ops[1]
	assert.Equal(t, models.MapOpReplaceAll, last.Op)
	require.Len(t, last.Markers, 1000)
	assert.Equal(t, "Canton 0000", last.Markers[0].LocationKey)

	markers := m.Markers()
	require.Len(t, markers, 1000)
	assert.Equal(t, "Canton 0999", markers[999].LocationKey)
	_, err := m.FocusLocation("Quito", 0)
	assert.ErrorIs(t, err, ErrUnknownLocation)
}

func TestMapFocus(t *testing.T) {
	m := NewMapRenderer(nil)
	assert.Equal(t, models.MapFocus{Lat: DefaultCenterLat, Lon: DefaultCenterLon, Zoom: DefaultZoom}, m.Center())

	m.Upsert(quito())
	m.Upsert(guayaquil())

	f := m.Focus(-2.19, -79.89, 0)
	assert.Equal(t, "Guayaquil", f.LocationKey)
	assert.Equal(t, FocusZoom, f.Zoom)

	f = m.Focus(-1.0, -77.0, 7)
	assert.Empty(t, f.LocationKey)
	assert.Equal(t, 7, f.Zoom)
	assert.Equal(t, f, m.Center())
}

func TestMapFocusLocation(t *testing.T) {
	surface := &recordingSurface{}
	m := NewMapRenderer(surface)
	m.Upsert(quito())

	f, err := m.FocusLocation("Quito", 0)
	require.NoError(t, err)
	assert.Equal(t, models.MapFocus{Lat: -0.18, Lon: -78.47, Zoom: FocusZoom, LocationKey: "Quito"}, f)
	last := surface.ops[len(surface.ops)-1]
	assert.Equal(t, models.MapOpFocus, last.Op)
	assert.Equal(t, "Quito", last.Focus.LocationKey)

	_, err = m.FocusLocation("Loja", 0)
	assert.ErrorIs(t, err, ErrUnknownLocation)
}

func TestMapBounds(t *testing.T) {
	m := NewMapRenderer(nil)
	m.Upsert(quito())
	m.Upsert(guayaquil())

	b := m.Bounds()
	require.NotNil(t, b)
	assert.InDelta(t, -2.19, b.MinLat, 1e-9)
	assert.InDelta(t, -79.89, b.MinLon, 1e-9)
	assert.InDelta(t, -0.18, b.MaxLat, 1e-9)
	assert.InDelta(t, -78.47, b.MaxLon, 1e-9)
}
