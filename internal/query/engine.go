// Package query filters, sorts and paginates the normalized record store.
package query

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/quakepredictec/riesgo-dashboard/internal/models"
)

// Result is one page of a query and the filtered total
type Result struct {
	Page      []models.RiskRecord
	Total     int
	PageIndex int
	PageSize  int
}

// TotalPages is ceil(Total/PageSize)
func (r Result) TotalPages() int {
	if r.PageSize < 1 {
		return 0
	}
	pages := r.Total / r.PageSize
	if r.Total%r.PageSize > 0 {
		pages++
	}
	return pages
}

// HasNext reports whether a later page holds rows
func (r Result) HasNext() bool { return r.PageIndex*r.PageSize < r.Total }

// HasPrev reports whether the page is past the first
func (r Result) HasPrev() bool { return r.PageIndex > 1 }

// Run applies the state to the store. It never fails: an empty store or a
// page past the end yields an empty page.
func Run(store []models.RiskRecord, st State) Result {
	if st.PageSize < 1 {
		st.PageSize = DefaultPageSize
	}
	if st.PageIndex < 1 {
		st.PageIndex = 1
	}

	sorted := All(store, st)
	res := Result{
		Page:      []models.RiskRecord{},
		Total:     len(sorted),
		PageIndex: st.PageIndex,
		PageSize:  st.PageSize,
	}

	start := (st.PageIndex - 1) * st.PageSize
	if start >= len(sorted) {
		return res
	}
	end := start + st.PageSize
	if end > len(sorted) {
		end = len(sorted)
	}
	res.Page = sorted[start:end]
	return res
}

// All returns every record matching the filters, in sort order. The store is
// not modified.
func All(store []models.RiskRecord, st State) []models.RiskRecord {
	filtered := Filter(store, st)
	Sort(filtered, st.SortKey, st.SortDirection)
	return filtered
}

// Filter returns a new slice with the records matching the search text and
// the optional risk level and date range.
func Filter(store []models.RiskRecord, st State) []models.RiskRecord {
	fold := cases.Fold()
	needle := fold.String(strings.TrimSpace(st.SearchText))
	level := fold.String(st.RiskLevel)

	out := make([]models.RiskRecord, 0, len(store))
	for _, r := range store {
		date := r.DateString()
		if needle != "" &&
			!strings.Contains(fold.String(r.LocationKey), needle) &&
			!strings.Contains(date, needle) {
			continue
		}
		if level != "" && fold.String(r.RiskLevel) != level {
			continue
		}
		if st.From != "" && date < st.From {
			continue
		}
		if st.To != "" && date > st.To {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Sort orders records in place. Ties keep their relative order.
func Sort(records []models.RiskRecord, key SortKey, dir Direction) {
	less := comparator(key)
	sort.SliceStable(records, func(i, j int) bool {
		if dir == Desc {
			return less(records[j], records[i])
		}
		return less(records[i], records[j])
	})
}

func comparator(key SortKey) func(a, b models.RiskRecord) bool {
	switch key {
	case SortLocation:
		return func(a, b models.RiskRecord) bool { return a.LocationKey < b.LocationKey }
	case SortProbability:
		return func(a, b models.RiskRecord) bool { return a.Probability < b.Probability }
	case SortRiskLevel:
		return func(a, b models.RiskRecord) bool { return a.RiskLevel < b.RiskLevel }
	default:
		return func(a, b models.RiskRecord) bool { return a.DateString() < b.DateString() }
	}
}
