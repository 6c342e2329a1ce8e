package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "viewdex",
			Name:      "search_requests_total",
			Help:      "Total number of search and compile requests",
		},
		[]string{"operation", "entity", "outcome"},
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "viewdex",
			Name:      "search_duration_seconds",
			Help:      "Search pipeline duration in seconds, execution included",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"operation", "entity"},
	)

	SearchRowsReturned = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "viewdex",
			Name:      "search_rows_returned",
			Help:      "Rows returned per search",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 6),
		},
		[]string{"entity"},
	)

	ColumnCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "viewdex",
			Name:      "column_cache_total",
			Help:      "Discovered-column cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	DraftRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "viewdex",
			Name:      "draft_requests_total",
			Help:      "Total number of draft assistant requests",
		},
		[]string{"model", "status"},
	)

	DraftTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "viewdex",
			Name:      "draft_tokens_total",
			Help:      "Total LLM tokens consumed by the draft assistant",
		},
		[]string{"model", "type"},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers the search, cache and draft metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(SearchRowsReturned)
	prometheus.MustRegister(ColumnCacheTotal)
	prometheus.MustRegister(DraftRequestsTotal)
	prometheus.MustRegister(DraftTokensTotal)
	searchMetricsRegistered = true
}
