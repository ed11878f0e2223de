package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// FetchTotal counts backend fetches by result (ok, network, malformed, stale).
	FetchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "quakepredict",
		Name:      "fetch_total",
		Help:      "Total number of risk snapshot fetches, labeled by result.",
	}, []string{"result"})

	FetchDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "quakepredict",
		Name:      "fetch_duration_seconds",
		Help:      "Time to fetch and normalize one risk snapshot.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	})

	// StaleResponsesTotal counts responses discarded because a newer fetch had started.
	StaleResponsesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "quakepredict",
		Name:      "stale_responses_total",
		Help:      "Total number of fetch responses discarded as stale.",
	})

	Records = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "quakepredict",
		Name:      "records",
		Help:      "Number of records in the current store.",
	})

	Alerts = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "quakepredict",
		Name:      "alerts",
		Help:      "Number of records at or above the alert threshold.",
	})

	DroppedRecordsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "quakepredict",
		Name:      "dropped_records_total",
		Help:      "Total number of raw items dropped as partial or duplicate.",
	})

	MapOpsDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "quakepredict",
		Name:      "map_ops_dropped_total",
		Help:      "Total number of map operations dropped because the surface queue was full.",
	})

	CSVExportsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "quakepredict",
		Name:      "csv_exports_total",
		Help:      "Total number of CSV export requests, labeled by result.",
	}, []string{"result"})
)

// Register registers dashboard metrics with the default Prometheus registry.
// Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			FetchTotal,
			FetchDurationSeconds,
			StaleResponsesTotal,
			Records,
			Alerts,
			DroppedRecordsTotal,
			MapOpsDroppedTotal,
			CSVExportsTotal,
		)
	})
}
