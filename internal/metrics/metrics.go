package metrics

import (
	"errors"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	spawns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "initup",
			Subsystem: "bootstrap",
			Name:      "spawns_total",
			Help:      "Number of background processes spawned, by kind (service, primary).",
		}, []string{"kind"},
	)
	ready = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "initup",
			Subsystem: "bootstrap",
			Name:      "ready_total",
			Help:      "Number of readiness gates passed, by name.",
		}, []string{"name"},
	)
	probeAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "initup",
			Subsystem: "bootstrap",
			Name:      "probe_attempts_total",
			Help:      "Readiness probe attempts consumed, by name.",
		}, []string{"name"},
	)
	failures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "initup",
			Subsystem: "bootstrap",
			Name:      "failures_total",
			Help:      "Fatal bring-up failures, by stage.",
		}, []string{"stage"},
	)
)

// Register registers all metrics with the provided registerer.
// Safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{spawns, ready, probeAttempts, failures}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// WriteTextfile dumps the default registry in the node-exporter textfile
// collector format. The orchestrator's process image is replaced at
// handoff, so a scrape endpoint cannot outlive it; the textfile is how
// bring-up metrics survive.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}

// Helpers below no-op until Register has been called.

func IncSpawn(kind string) {
	if regOK.Load() {
		spawns.WithLabelValues(kind).Inc()
	}
}

func IncReady(name string) {
	if regOK.Load() {
		ready.WithLabelValues(name).Inc()
	}
}

func AddProbeAttempts(name string, n int) {
	if regOK.Load() && n > 0 {
		probeAttempts.WithLabelValues(name).Add(float64(n))
	}
}

func IncFailure(stage string) {
	if regOK.Load() {
		failures.WithLabelValues(stage).Inc()
	}
}
