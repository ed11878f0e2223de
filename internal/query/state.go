package query

import (
	"fmt"
	"strings"
)

// SortKey selects the column the table is ordered by
type SortKey string

const (
	SortDate        SortKey = "date"
	SortLocation    SortKey = "location"
	SortProbability SortKey = "probability"
	SortRiskLevel   SortKey = "riskLevel"
)

// Direction is the sort direction
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// DefaultPageSize matches the twelve rows per page of the dashboard table
const DefaultPageSize = 12

// ParseSortKey accepts the column keys and the Spanish header names
func ParseSortKey(s string) (SortKey, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "date", "fecha":
		return SortDate, nil
	case "location", "ubicacion", "canton", "region":
		return SortLocation, nil
	case "probability", "probabilidad":
		return SortProbability, nil
	case "risklevel", "risk_level", "nivel", "nivel_riesgo":
		return SortRiskLevel, nil
	}
	return "", fmt.Errorf("unknown sort key %q", s)
}

// ParseDirection accepts asc or desc
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc":
		return Asc, nil
	case "desc":
		return Desc, nil
	}
	return "", fmt.Errorf("unknown sort direction %q", s)
}

// State is the UI-bound query state. Filter changes reset the page; sort
// settings survive them.
type State struct {
	SearchText    string
	RiskLevel     string // exact match, empty = any
	From          string // YYYY-MM-DD inclusive, empty = open
	To            string // YYYY-MM-DD inclusive, empty = open
	SortKey       SortKey
	SortDirection Direction
	PageIndex     int
	PageSize      int
}

// NewState returns the initial state: newest first, page 1
func NewState(pageSize int) State {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return State{
		SortKey:       SortDate,
		SortDirection: Desc,
		PageIndex:     1,
		PageSize:      pageSize,
	}
}

// SetSearch updates the search text and returns to the first page
func (s *State) SetSearch(text string) {
	s.SearchText = strings.TrimSpace(text)
	s.PageIndex = 1
}

// SetRiskLevel restricts rows to one risk level
func (s *State) SetRiskLevel(level string) {
	s.RiskLevel = strings.TrimSpace(level)
	s.PageIndex = 1
}

// SetDateRange restricts rows to [from, to]; either bound may be empty
func (s *State) SetDateRange(from, to string) {
	s.From = strings.TrimSpace(from)
	s.To = strings.TrimSpace(to)
	s.PageIndex = 1
}

// ToggleSort mimics a header click: the same key flips the direction, a new
// key sorts ascending. Either way the table returns to page 1.
func (s *State) ToggleSort(key SortKey) {
	if s.SortKey == key {
		if s.SortDirection == Asc {
			s.SortDirection = Desc
		} else {
			s.SortDirection = Asc
		}
	} else {
		s.SortKey = key
		s.SortDirection = Asc
	}
	s.PageIndex = 1
}

// SetSort sets key and direction explicitly
func (s *State) SetSort(key SortKey, dir Direction) {
	s.SortKey = key
	s.SortDirection = dir
}

// SetPage jumps to a page; values below 1 clamp to 1
func (s *State) SetPage(page int) {
	if page < 1 {
		page = 1
	}
	s.PageIndex = page
}

// NextPage advances one page
func (s *State) NextPage() { s.PageIndex++ }

// PrevPage goes back one page, never below the first
func (s *State) PrevPage() {
	if s.PageIndex > 1 {
		s.PageIndex--
	}
}
