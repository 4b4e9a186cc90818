package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "queue",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "queue",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 20},
	}, []string{"method", "path"})

	SourceRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "queue",
		Name:      "source_requests_total",
		Help:      "Total queue fetches per source by result status.",
	}, []string{"source", "status"})

	SourceRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "queue",
		Name:      "source_request_duration_seconds",
		Help:      "Queue source fetch duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"source"})

	SourceAvailable = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "queue",
		Name:      "source_available",
		Help:      "Whether the last fetch from a source succeeded (1) or failed (0).",
	}, []string{"source"})

	SourceItems = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "queue",
		Name:      "source_items",
		Help:      "Number of queue items returned by the last successful fetch of a source.",
	}, []string{"source"})

	DroppedRecordsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "queue",
		Name:      "dropped_records_total",
		Help:      "Total raw queue records that could not be normalized.",
	}, []string{"source"})

	CyclesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "queue",
		Name:      "refresh_cycles_total",
		Help:      "Total refresh cycles per queue by outcome (applied or discarded).",
	}, []string{"queue", "outcome"})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		SourceRequestsTotal,
		SourceRequestDuration,
		SourceAvailable,
		SourceItems,
		DroppedRecordsTotal,
		CyclesTotal,
	)
}
