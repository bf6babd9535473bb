package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "client",
		Name:      "http_requests_total",
		Help:      "Total control-surface HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "client",
		Name:      "http_request_duration_seconds",
		Help:      "Control-surface HTTP request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 30},
	}, []string{"method", "path"})

	StreamSessionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "client",
		Name:      "stream_sessions_total",
		Help:      "Total playback sessions started.",
	})

	StreamBytesReceived = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "client",
		Name:      "stream_bytes_received_total",
		Help:      "Total bytes received across all streaming downloads.",
	})

	PlaybackStartsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "client",
		Name:      "playback_starts_total",
		Help:      "Total times the playback sink was handed a buffer.",
	})

	StreamErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "client",
		Name:      "stream_errors_total",
		Help:      "Total user-visible streaming errors (cancellations excluded).",
	})

	StreamStateTransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "client",
		Name:      "stream_state_transitions_total",
		Help:      "Total stream session state transitions.",
	}, []string{"from", "to"})

	APIRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "client",
		Name:      "api_requests_total",
		Help:      "Total media-server API requests by endpoint and outcome.",
	}, []string{"endpoint", "outcome"})

	FetchQueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "client",
		Name:      "fetch_queue_depth",
		Help:      "Number of background metadata/image fetches waiting or running.",
	})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		StreamSessionsTotal,
		StreamBytesReceived,
		PlaybackStartsTotal,
		StreamErrorsTotal,
		StreamStateTransitionsTotal,
		APIRequestsTotal,
		FetchQueueDepth,
	)
}
