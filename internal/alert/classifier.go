// Package alert derives the alert feed from the record store.
package alert

import (
	"sort"
	"sync"

	"github.com/quakepredictec/riesgo-dashboard/internal/models"
)

// DefaultThreshold is the probability at or above which a record is an alert
const DefaultThreshold = 0.70

// Classify returns the records with probability >= threshold, most probable
// first. Equal probabilities keep store order.
func Classify(store []models.RiskRecord, threshold float64) []models.AlertEntry {
	entries := make([]models.AlertEntry, 0)
	for _, r := range store {
		if r.Probability < threshold {
			continue
		}
		entries = append(entries, models.AlertEntry{
			LocationKey: r.LocationKey,
			RiskLevel:   r.RiskLevel,
			Color:       r.Color,
			Probability: r.Probability,
			Lat:         r.Lat,
			Lon:         r.Lon,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Probability > entries[j].Probability
	})
	return entries
}

// NewEntries returns the entries of next whose location was not alerting in prev
func NewEntries(prev, next []models.AlertEntry) []models.AlertEntry {
	known := make(map[string]struct{}, len(prev))
	for _, e := range prev {
		known[e.LocationKey] = struct{}{}
	}
	var out []models.AlertEntry
	for _, e := range next {
		if _, ok := known[e.LocationKey]; !ok {
			out = append(out, e)
		}
	}
	return out
}

// Unread counts alerts added since the alerts view was last opened.
// It is independent of the alert list itself.
type Unread struct {
	mu       sync.Mutex
	count    int
	lastSize int
}

// Observe records the size of a freshly classified alert set. Growth adds
// the difference to the counter; shrinking only lowers the baseline.
func (u *Unread) Observe(size int) int {
	u.mu.Lock()
	defer u.mu.Unlock()

	if size > u.lastSize {
		u.count += size - u.lastSize
	}
	u.lastSize = size
	return u.count
}

// Reset is called when the alerts view is opened
func (u *Unread) Reset() {
	u.mu.Lock()
	u.count = 0
	u.mu.Unlock()
}

// Count returns the badge value
func (u *Unread) Count() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.count
}
