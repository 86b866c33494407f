package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Render-pipeline metrics. Registered against the default registry so
// an embedding application can expose them on its own /metrics handler.
var (
	metricFramesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "oriel",
		Name:      "frames_total",
		Help:      "Frames written to the terminal.",
	})
	metricFramesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "oriel",
		Name:      "frames_skipped_total",
		Help:      "Composed frames whose encoded diff was empty.",
	})
	metricFullRedraws = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "oriel",
		Name:      "full_redraws_total",
		Help:      "Frames repainted from scratch rather than diffed.",
	})
	metricFramesAbandoned = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "oriel",
		Name:      "frames_abandoned_total",
		Help:      "Composed frames discarded before reaching the terminal.",
	})
	metricCellsChanged = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "oriel",
		Name:      "cells_changed_total",
		Help:      "Cells rewritten across all frames.",
	})
	metricBytesWritten = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "oriel",
		Name:      "bytes_written_total",
		Help:      "Encoded escape-stream bytes written to the terminal.",
	})
	metricFrameSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "oriel",
		Name:      "frame_duration_seconds",
		Help:      "Compose, encode, and write time per frame.",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
	})
	metricClippedWrites = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "oriel",
		Name:      "clipped_writes_total",
		Help:      "Window draws that fell outside their surface.",
	})
	metricDroppedEvents = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "oriel",
		Name:      "dropped_input_events",
		Help:      "Input events discarded because the consumer fell behind.",
	})
	metricWindowsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "oriel",
		Name:      "windows_active",
		Help:      "Windows currently managed by the compositor.",
	})
)

// RecordFrame accounts one frame that reached the terminal.
func RecordFrame(cellsChanged, bytes int, full bool, duration time.Duration) {
	metricFramesTotal.Inc()
	metricCellsChanged.Add(float64(cellsChanged))
	metricBytesWritten.Add(float64(bytes))
	metricFrameSeconds.Observe(duration.Seconds())
	if full {
		metricFullRedraws.Inc()
	}
}

// RecordFrameSkipped accounts a composed frame whose diff was empty.
func RecordFrameSkipped() {
	metricFramesSkipped.Inc()
}

// RecordFrameAbandoned accounts a composed frame that was thrown away.
func RecordFrameAbandoned() {
	metricFramesAbandoned.Inc()
}

// RecordClippedWrites accounts out-of-surface window draws.
func RecordClippedWrites(n int) {
	if n > 0 {
		metricClippedWrites.Add(float64(n))
	}
}

// SetDroppedEvents publishes the driver's cumulative drop count.
func SetDroppedEvents(n uint64) {
	metricDroppedEvents.Set(float64(n))
}

// SetWindowsActive publishes the current window count.
func SetWindowsActive(n int) {
	metricWindowsActive.Set(float64(n))
}
