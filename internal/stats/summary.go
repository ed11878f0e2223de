// Package stats summarizes the probabilities of the current store.
package stats

import (
	"sort"

	"github.com/quakepredictec/riesgo-dashboard/internal/models"
)

// Summary describes the probability distribution of a snapshot
type Summary struct {
	Count   int            `json:"count"`
	Mean    float64        `json:"mean"`
	Median  float64        `json:"median"`
	P90     float64        `json:"p90"`
	Max     float64        `json:"max"`
	Alerts  int            `json:"alerts"`
	ByLevel map[string]int `json:"by_level"`
}

// Summarize computes the summary of records. Alerts counts probabilities at
// or above threshold.
func Summarize(records []models.RiskRecord, threshold float64) Summary {
	s := Summary{Count: len(records), ByLevel: map[string]int{}}
	if len(records) == 0 {
		return s
	}

	probs := make([]float64, len(records))
	var sum float64
	for i, r := range records {
		probs[i] = r.Probability
		sum += r.Probability
		s.ByLevel[r.RiskLevel]++
		if r.Probability >= threshold {
			s.Alerts++
		}
	}
	sort.Float64s(probs)

	s.Mean = sum / float64(len(probs))
	s.Median = Quantile(probs, 0.5)
	s.P90 = Quantile(probs, 0.9)
	s.Max = probs[len(probs)-1]
	return s
}

// Quantile interpolates linearly between the closest ranks of sorted
func Quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	switch {
	case q <= 0:
		return sorted[0]
	case q >= 1:
		return sorted[n-1]
	}

	pos := q * float64(n-1)
	lo := int(pos)
	if lo+1 >= n {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}
