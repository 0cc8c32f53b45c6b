package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Retrieval and ingestion metrics.
var (
	// RankCandidatesTotal counts candidates surviving each ranker stage.
	RankCandidatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rank_candidates_total",
			Help:      "Candidates remaining after each ranking stage",
		},
		[]string{"stage"}, // raw, score, dedup, cap
	)

	RetrievalDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_duration_seconds",
			Help:      "Question to ranked candidates latency in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	IngestPagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_pages_total",
			Help:      "Manual pages seen by ingestion",
		},
		[]string{"result"}, // "indexed" / "skipped"
	)

	IngestChunksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_chunks_total",
			Help:      "Chunks embedded and stored",
		},
	)
)

var pipelineOnce sync.Once

// RegisterPipelineMetrics registers retrieval and ingestion metrics. Safe to call more than once.
func RegisterPipelineMetrics() {
	pipelineOnce.Do(func() {
		prometheus.MustRegister(
			RankCandidatesTotal,
			RetrievalDuration,
			IngestPagesTotal,
			IngestChunksTotal,
		)
	})
}
