package metrics

import "github.com/prometheus/client_golang/prometheus"

// Ranking stage and tracker metrics.
var (
	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time of a ranking stage over a whole run",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		},
		[]string{"stage"},
	)

	StageTopicsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "stage_topics_total",
			Help:      "Topics processed per ranking stage",
		},
		[]string{"stage"},
	)

	RerankSkippedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "rerank_skipped_total",
			Help:      "Documents a reranker could not score",
		},
		[]string{"stage", "reason"},
	)

	TrackerIngestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "tracker_ingests_total",
			Help:      "Transcript windows ingested by rank trackers",
		},
		[]string{"status"}, // "ok" / "busy" / "error"
	)

	TrackerSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "tracker_sessions",
			Help:      "Live tracker sessions",
		},
	)
)

var rankingMetricsRegistered bool

// RegisterRankingMetrics registers stage and tracker metrics. Must be called once from main.
func RegisterRankingMetrics() {
	if rankingMetricsRegistered {
		return
	}
	prometheus.MustRegister(StageDuration)
	prometheus.MustRegister(StageTopicsTotal)
	prometheus.MustRegister(RerankSkippedTotal)
	prometheus.MustRegister(TrackerIngestsTotal)
	prometheus.MustRegister(TrackerSessions)
	rankingMetricsRegistered = true
}
