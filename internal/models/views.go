package models

import (
	"fmt"
	"strings"
	"time"
)

// ViewState identifies the visible dashboard component
type ViewState int

const (
	ViewMap ViewState = iota
	ViewData
	ViewAlerts
)

var viewNames = [...]string{
	ViewMap:    "map",
	ViewData:   "data",
	ViewAlerts: "alerts",
}

func (v ViewState) String() string {
	if v < 0 || int(v) >= len(viewNames) {
		return fmt.Sprintf("ViewState(%d)", int(v))
	}
	return viewNames[v]
}

// ParseViewState maps a route segment to a ViewState. The Spanish tab names
// (mapa, datos, alertas) are accepted as aliases.
func ParseViewState(s string) (ViewState, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "map", "mapa":
		return ViewMap, nil
	case "data", "datos", "table":
		return ViewData, nil
	case "alerts", "alertas":
		return ViewAlerts, nil
	}
	return 0, fmt.Errorf("unknown view %q", s)
}

// AlertEntry is a record whose probability reached the alert threshold
type AlertEntry struct {
	LocationKey string  `json:"location_key"`
	RiskLevel   string  `json:"risk_level"`
	Color       string  `json:"color"`
	Probability float64 `json:"probability"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
}

// RowView is one rendered table row
type RowView struct {
	Date                   string `json:"date"` // YYYY-MM-DD
	Location               string `json:"location"`
	ProbabilityPercentText string `json:"probability_percent_text"` // e.g. "85.00%"
	RiskLevel              string `json:"risk_level"`
	Color                  string `json:"color"`
}

// Marker is a map marker keyed by location
type Marker struct {
	LocationKey string  `json:"location_key"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Color       string  `json:"color"`
	Popup       string  `json:"popup"`
}

// MapFocus re-centers the map and opens the popup of LocationKey
type MapFocus struct {
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Zoom        int     `json:"zoom"`
	LocationKey string  `json:"location_key"`
}

// MapBounds is the bounding box of the current markers
type MapBounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// TileLayer describes a base map layer the front end stacks under the markers
type TileLayer struct {
	Name        string  `json:"name" yaml:"name"`
	URL         string  `json:"url" yaml:"url"`
	MaxZoom     int     `json:"max_zoom" yaml:"max_zoom"`
	Opacity     float64 `json:"opacity" yaml:"opacity"`
	Attribution string  `json:"attribution" yaml:"attribution"`
}

// FetchState is the lifecycle of the latest backend fetch
type FetchState string

const (
	FetchIdle    FetchState = "idle"
	FetchLoading FetchState = "loading"
	FetchReady   FetchState = "ready"
	FetchError   FetchState = "error"
)

// Error kinds reported in FetchStatus
const (
	ErrorKindNetwork   = "network"
	ErrorKindMalformed = "malformed_payload"
)

// FetchStatus tells views whether to show data, a loading indicator or an error
type FetchStatus struct {
	State     FetchState `json:"state"`
	ErrorKind string     `json:"error_kind,omitempty"`
	Message   string     `json:"message,omitempty"`
	Sequence  uint64     `json:"sequence"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Table status strings returned alongside rows
const (
	TableStatusLoading = "loading"
	TableStatusError   = "error"
	TableStatusEmpty   = "empty"
	TableStatusReady   = "ready"
)

// NoPredictionsMessage is shown in place of rows when the store is empty
const NoPredictionsMessage = "No se encontraron predicciones"

// TableResponse is the paginated table payload
type TableResponse struct {
	Rows       []RowView `json:"rows"`
	Total      int       `json:"total"`
	Page       int       `json:"page"`
	PageSize   int       `json:"pageSize"`
	TotalPages int       `json:"totalPages"`
	HasNext    bool      `json:"hasNext"`
	HasPrev    bool      `json:"hasPrev"`
	SortKey    string    `json:"sortKey"`
	SortDir    string    `json:"sortDir"`
	Search     string    `json:"search"`
	Status     string    `json:"status"`
	Message    string    `json:"message,omitempty"`
}

// AlertsResponse is the alert feed payload
type AlertsResponse struct {
	Alerts    []AlertEntry `json:"alerts"`
	Count     int          `json:"count"`
	Unread    int          `json:"unread"`
	Threshold float64      `json:"threshold"`
	Status    string       `json:"status"`
	Message   string       `json:"message,omitempty"`
}

// MapResponse is the map view payload
type MapResponse struct {
	Markers    []Marker    `json:"markers"`
	Count      int         `json:"count"`
	Bounds     *MapBounds  `json:"bounds,omitempty"`
	Center     MapFocus    `json:"center"`
	TileLayers []TileLayer `json:"tile_layers"`
	Layer      string      `json:"layer"`
	Status     string      `json:"status"`
	Message    string      `json:"message,omitempty"`
}

// Map operation types sent to the rendering surface
const (
	MapOpUpsert   = "upsert"
	MapOpClearAll = "clear_all"
	MapOpFocus    = "focus"

	// MapOpReplaceAll clears the map and draws Markers in one step
	MapOpReplaceAll = "replace_all"
)

// MapOp is one queued map rendering instruction
type MapOp struct {
	Op      string    `json:"op"`
	Marker  *Marker   `json:"marker,omitempty"`
	Markers []Marker  `json:"markers,omitempty"`
	Focus   *MapFocus `json:"focus,omitempty"`
}
