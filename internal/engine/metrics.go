package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	framesProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "barscan_frames_processed_total",
			Help: "Total number of frames run through the decoders",
		},
	)

	frameErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "barscan_frame_errors_total",
			Help: "Total number of frames that failed for reasons other than no symbol",
		},
	)

	detectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "barscan_detections_total",
			Help: "Total number of decoded symbols",
		},
		[]string{"format"},
	)

	decodeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "barscan_frame_decode_duration_seconds",
			Help:    "Time spent decoding a single frame",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
	)

	activeWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "barscan_decode_workers",
			Help: "Number of decode workers in running detection loops",
		},
	)
)
