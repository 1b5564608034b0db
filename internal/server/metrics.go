package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "barscan_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "barscan_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Scan metrics
	scanRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "barscan_scan_requests_total",
			Help: "Total number of scan requests",
		},
		[]string{"type", "status"}, // type: image, websocket
	)

	scanDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "barscan_scan_duration_seconds",
			Help:    "End-to-end scan duration including engine setup",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"type"},
	)

	codesPerScan = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "barscan_codes_per_scan",
			Help:    "Number of codes decoded per scanned image",
			Buckets: []float64{0, 1, 2, 5, 10, 25},
		},
		[]string{"type"},
	)

	rateLimitHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "barscan_rate_limit_hits_total",
			Help: "Total number of rejected rate limited requests",
		},
	)

	uploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "barscan_upload_size_bytes",
			Help:    "Size of uploaded images in bytes",
			Buckets: []float64{1024, 10 * 1024, 100 * 1024, 1024 * 1024, 10 * 1024 * 1024, 50 * 1024 * 1024},
		},
	)

	// WebSocket metrics
	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "barscan_websocket_active_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	websocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "barscan_websocket_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction"}, // direction: sent, received
	)
)
