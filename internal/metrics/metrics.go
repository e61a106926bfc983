// Package metrics exposes Prometheus instrumentation for the answer
// pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fleetassist",
		Name:      "queries_total",
		Help:      "Queries served, labeled by pipeline outcome.",
	}, []string{"outcome"})

	SafetyRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fleetassist",
		Name:      "safety_rejections_total",
		Help:      "Queries rejected by the safety gate, labeled by reason.",
	}, []string{"reason"})

	GeneratorFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fleetassist",
		Name:      "generator_fallbacks_total",
		Help:      "Times the generator was skipped or failed and a verbatim FAQ answer was served.",
	})

	SimilarityScore = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "fleetassist",
		Name:      "top_similarity_score",
		Help:      "Best match similarity per retrieval.",
		Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
	})

	GroundingConfidence = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "fleetassist",
		Name:      "grounding_confidence",
		Help:      "Grounding confidence of served answers.",
		Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
	})

	QueryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "fleetassist",
		Name:      "query_duration_seconds",
		Help:      "End-to-end pipeline latency.",
		Buckets:   prometheus.DefBuckets,
	})
)

// Pipeline outcome label values.
const (
	OutcomeAnswered      = "answered"
	OutcomeDirect        = "direct"
	OutcomeNoMatch       = "no_match"
	OutcomeClarification = "clarification"
	OutcomeRejected      = "rejected"
	OutcomeError         = "error"
)
