// Package metrics defines the Prometheus instruments for the viewer
// engine. Collectors register on the default registry at init; the daemon
// decides whether the exposition endpoint is mounted.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Load outcomes recorded on ViewportLoadsTotal.
const (
	OutcomeApplied = "applied"
	OutcomeStale   = "stale"
	OutcomeFailed  = "failed"
)

var (
	// ViewportLoadsTotal counts terminal outcomes of viewport load requests.
	// A request that walks several instances before succeeding still counts
	// once, under its final outcome.
	ViewportLoadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lightbox_viewport_loads_total",
		Help: "Viewport load requests by terminal outcome",
	}, []string{"outcome"})

	// LoadRetriesTotal counts forward steps taken after an instance failed
	// to fetch or decode.
	LoadRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lightbox_load_retries_total",
		Help: "Instance load failures that advanced to the next instance",
	})

	// CineTicksTotal counts autoplay timer ticks that advanced a viewport.
	CineTicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lightbox_cine_ticks_total",
		Help: "Cine scheduler ticks processed",
	})

	// VolumeBuildsTotal counts completed voxel grid builds.
	VolumeBuildsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lightbox_volume_builds_total",
		Help: "Voxel grid builds completed",
	})

	// VolumeBuildSeconds observes wall time per voxel grid build.
	VolumeBuildSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lightbox_volume_build_seconds",
		Help:    "Duration of voxel grid builds",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
	})

	// SlicesExtractedTotal counts reconstructed planes served, by plane.
	SlicesExtractedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lightbox_slices_extracted_total",
		Help: "Reconstructed planes extracted by plane name",
	}, []string{"plane"})

	// ActiveSessions tracks live viewer sessions.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lightbox_active_sessions",
		Help: "Currently open viewer sessions",
	})
)

// RecordLoad increments ViewportLoadsTotal for one terminal outcome.
func RecordLoad(outcome string) {
	ViewportLoadsTotal.WithLabelValues(outcome).Inc()
}

// Handler serves the default registry in Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}
