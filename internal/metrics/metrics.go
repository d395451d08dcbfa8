//Package metrics provides Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/version"
)

var (
	// PlatformChannels tracks the number of channels in each platform's latest guide.
	PlatformChannels = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "charming",
			Subsystem: "platform",
			Name:      "channels",
			Help:      "Number of channels in the latest guide per platform.",
		},
		[]string{"platform"},
	)
	// PlatformProgrammes tracks the number of programmes in each platform's latest guide.
	PlatformProgrammes = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "charming",
			Subsystem: "platform",
			Name:      "programmes",
			Help:      "Number of programmes in the latest guide per platform.",
		},
		[]string{"platform"},
	)
	// PlatformUpdates counts per-platform update attempts by result.
	PlatformUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "charming",
			Subsystem: "platform",
			Name:      "updates_total",
			Help:      "Number of platform update attempts by result.",
		},
		[]string{"platform", "result"},
	)
	// UpdateCycles counts whole update cycles.
	UpdateCycles = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "charming",
			Subsystem: "updater",
			Name:      "cycles_total",
			Help:      "Number of update cycles run since startup.",
		},
	)
	// UpdateCycleDuration reports how long whole update cycles take.
	UpdateCycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "charming",
			Subsystem: "updater",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of update cycles in seconds.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		},
	)
)

// nolint
func init() {
	prometheus.MustRegister(version.NewCollector("charming"))
	prometheus.MustRegister(PlatformChannels)
	prometheus.MustRegister(PlatformProgrammes)
	prometheus.MustRegister(PlatformUpdates)
	prometheus.MustRegister(UpdateCycles)
	prometheus.MustRegister(UpdateCycleDuration)
}
