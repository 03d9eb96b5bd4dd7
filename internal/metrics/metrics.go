// Package metrics exposes Prometheus collectors for asset runs.
package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	assetsTotal           *prometheus.CounterVec
	renderDurationSeconds *prometheus.HistogramVec
	mirrorUploadsTotal    *prometheus.CounterVec
	rateLimitWaitSeconds  prometheus.Histogram
	activeUnits           prometheus.Gauge
	lastRunTimestamp      prometheus.Gauge

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		assetsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "poewiki_assets_total",
				Help: "Total number of resolved asset requests, labeled by category and outcome.",
			},
			[]string{"category", "outcome"},
		)

		renderDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "poewiki_render_duration_seconds",
				Help:    "Histogram of page capture latencies, labeled by category.",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 60},
			},
			[]string{"category"},
		)

		mirrorUploadsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "poewiki_mirror_uploads_total",
				Help: "Total number of mirror uploads, labeled by status.",
			},
			[]string{"status"},
		)

		rateLimitWaitSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "poewiki_rate_limit_wait_seconds",
				Help:    "Time renders spent waiting on the per-host rate limiter.",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
			},
		)

		activeUnits = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "poewiki_active_units",
				Help: "Number of asset units currently in flight.",
			},
		)

		lastRunTimestamp = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "poewiki_last_run_timestamp_seconds",
				Help: "Unix time at which the last batch settled.",
			},
		)
	})
}

// ObserveAsset increments the outcome counter for one settled unit.
func ObserveAsset(category, outcome string) {
	Init()
	assetsTotal.WithLabelValues(category, outcome).Inc()
}

// ObserveRender records the duration of one page capture.
func ObserveRender(category string, duration time.Duration) {
	Init()
	renderDurationSeconds.WithLabelValues(category).Observe(duration.Seconds())
}

// ObserveMirror counts a mirror upload attempt; status is "ok" or "error".
func ObserveMirror(status string) {
	Init()
	mirrorUploadsTotal.WithLabelValues(status).Inc()
}

// ObserveThrottle records time spent waiting for a render token.
func ObserveThrottle(waited time.Duration) {
	Init()
	rateLimitWaitSeconds.Observe(waited.Seconds())
}

// IncActiveUnits increments the in-flight unit gauge.
func IncActiveUnits() {
	Init()
	activeUnits.Inc()
}

// DecActiveUnits decrements the in-flight unit gauge.
func DecActiveUnits() {
	Init()
	activeUnits.Dec()
}

// MarkRunComplete stamps the batch completion time.
func MarkRunComplete(at time.Time) {
	Init()
	lastRunTimestamp.Set(float64(at.Unix()))
}

// WriteTextfile writes every registered metric to path in the text exposition
// format, for node_exporter's textfile collector.
func WriteTextfile(path string) error {
	Init()
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
