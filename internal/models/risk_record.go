package models

import "time"

// DateLayout is the calendar-day format used for display dates, search and CSV
const DateLayout = "2006-01-02"

// RawRiskItem is a single element of the /riesgo-sismico payload.
// Pointer fields distinguish a missing field from a zero value.
type RawRiskItem struct {
	Canton       *string  `json:"canton"`
	Probabilidad *float64 `json:"probabilidad"`
	NivelRiesgo  *string  `json:"nivel_riesgo"`
	Color        *string  `json:"color"`
	Lat          *float64 `json:"lat"`
	Lon          *float64 `json:"lon"`
	Fecha        *string  `json:"fecha,omitempty"`
}

// RiskRecord is the canonical, normalized risk record
type RiskRecord struct {
	LocationKey string    `json:"location_key"` // Canonical place name, dedup and marker key
	DisplayDate time.Time `json:"display_date"` // Calendar day (UTC midnight)
	Probability float64   `json:"probability"`  // Estimated probability, 0-1
	RiskLevel   string    `json:"risk_level"`   // Upstream label: bajo, medio, alto
	Color       string    `json:"color"`        // Upstream CSS color, rendered verbatim
	Lat         float64   `json:"lat"`
	Lon         float64   `json:"lon"`
}

// DateString returns the display date as YYYY-MM-DD
func (r RiskRecord) DateString() string {
	return r.DisplayDate.Format(DateLayout)
}

// Raw converts the record back to its wire shape with an explicit fecha.
func (r RiskRecord) Raw() RawRiskItem {
	canton := r.LocationKey
	prob := r.Probability
	level := r.RiskLevel
	color := r.Color
	lat := r.Lat
	lon := r.Lon
	fecha := r.DateString()
	return RawRiskItem{
		Canton:       &canton,
		Probabilidad: &prob,
		NivelRiesgo:  &level,
		Color:        &color,
		Lat:          &lat,
		Lon:          &lon,
		Fecha:        &fecha,
	}
}

// Risk level labels commonly sent by the backend
const (
	RiskLevelLow    = "bajo"
	RiskLevelMedium = "medio"
	RiskLevelHigh   = "alto"
)
