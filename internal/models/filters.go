package models

// TableFilter represents query parameters for the table view.
// Empty fields leave the corresponding query state untouched.
type TableFilter struct {
	Search    *string `form:"search"`
	Sort      string  `form:"sort"`   // date, location, probability, riskLevel
	Dir       string  `form:"dir"`    // asc, desc
	Toggle    string  `form:"toggle"` // header click: flips dir on the same key
	Page      int     `form:"page"`
	RiskLevel *string `form:"level"`
	From      *string `form:"from"` // YYYY-MM-DD, inclusive
	To        *string `form:"to"`   // YYYY-MM-DD, inclusive
}

// MapFilter represents query parameters for the map view
type MapFilter struct {
	Layer string `form:"layer"` // all, alerts
}

// FocusRequest is the body of POST /map/focus. Either LocationKey or both
// coordinates identify the marker.
type FocusRequest struct {
	LocationKey string   `json:"location_key"`
	Lat         *float64 `json:"lat"`
	Lon         *float64 `json:"lon"`
	Zoom        int      `json:"zoom"`
}

// Map layer modes
const (
	MapLayerAll    = "all"
	MapLayerAlerts = "alerts"
)
