// Package server — metrics.go registers all Prometheus metrics for the HTTP
// server and the pipeline measurements its handlers emit.
package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// labelHandler partitions HTTP metrics by the logical endpoint name rather
// than the raw URL path.
const labelHandler = "handler"

// serverMetrics holds all Prometheus metrics owned by the HTTP server.
// A single instance is created in New and stored on Server so that tests can
// inject a fresh prometheus.Registry without polluting the default one.
type serverMetrics struct {
	// ingestRequestsTotal counts POST /ingest calls.
	ingestRequestsTotal prometheus.Counter

	// queryRequestsTotal counts POST /query calls.
	queryRequestsTotal prometheus.Counter

	// ingestDurationSeconds records time spent running the ingestion
	// pipeline per request.
	ingestDurationSeconds prometheus.Histogram

	// retrievalDurationSeconds records time spent retrieving context
	// per query.
	retrievalDurationSeconds prometheus.Histogram

	// generationDurationSeconds records time spent generating the answer
	// per query.
	generationDurationSeconds prometheus.Histogram

	// retrievalEmptyTotal counts queries for which retrieval returned no
	// hits above the threshold.
	retrievalEmptyTotal prometheus.Counter

	// ingestFailuresTotal counts failed ingest requests.
	ingestFailuresTotal prometheus.Counter

	// generationFailuresTotal counts failed generation calls.
	generationFailuresTotal prometheus.Counter

	// contextsRetrieved summarises how many contexts each query retrieved.
	contextsRetrieved prometheus.Summary

	// retrievalScore records the similarity score of every retrieved context.
	retrievalScore prometheus.Histogram

	// httpRequestsTotal counts all HTTP requests handled by the mux,
	// partitioned by method, handler, and status code.
	httpRequestsTotal *prometheus.CounterVec

	// httpDurationSeconds records the latency of all HTTP requests.
	httpDurationSeconds *prometheus.HistogramVec
}

// newServerMetrics registers all server metrics against reg and returns the
// populated serverMetrics. promauto.With(reg) is used so that each call
// registers into the provided registry rather than the global default —
// this keeps unit tests hermetic.
func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	factory := promauto.With(reg)

	return &serverMetrics{
		ingestRequestsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "rag",
			Subsystem: "ingest",
			Name:      "requests_total",
			Help:      "Total number of POST /ingest requests received.",
		}),

		queryRequestsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "rag",
			Subsystem: "query",
			Name:      "requests_total",
			Help:      "Total number of POST /query requests received.",
		}),

		ingestDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "rag",
			Subsystem: "ingest",
			Name:      "duration_seconds",
			Help:      "Time spent running the ingestion pipeline per request.",
			Buckets:   prometheus.DefBuckets,
		}),

		retrievalDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "rag",
			Subsystem: "retrieval",
			Name:      "duration_seconds",
			Help:      "Time spent retrieving context per query.",
			Buckets:   prometheus.DefBuckets,
		}),

		generationDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "rag",
			Subsystem: "generation",
			Name:      "duration_seconds",
			Help:      "Time spent generating the answer per query.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),

		retrievalEmptyTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "rag",
			Subsystem: "retrieval",
			Name:      "empty_total",
			Help:      "Queries for which retrieval returned no results above the threshold.",
		}),

		ingestFailuresTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "rag",
			Subsystem: "ingest",
			Name:      "failures_total",
			Help:      "Total number of failed ingest requests.",
		}),

		generationFailuresTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "rag",
			Subsystem: "generation",
			Name:      "failures_total",
			Help:      "Total number of failed generation calls.",
		}),

		contextsRetrieved: factory.NewSummary(prometheus.SummaryOpts{
			Namespace: "rag",
			Name:      "contexts_retrieved",
			Help:      "Number of contexts retrieved per query.",
		}),

		retrievalScore: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "rag",
			Subsystem: "retrieval",
			Name:      "score",
			Help:      "Similarity score of retrieved contexts.",
			Buckets:   []float64{0.1, 0.3, 0.5, 0.7, 0.9, 1.0},
		}),

		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rag",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled by the server, partitioned by method, handler, and status code.",
		}, []string{"method", labelHandler, "code"}),

		httpDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rag",
			Subsystem: "http",
			Name:      "duration_seconds",
			Help:      "Latency of HTTP requests handled by the server.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", labelHandler}),
	}
}
