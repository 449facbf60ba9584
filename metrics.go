package policy

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// engineMetrics is the set of Prometheus collectors tracked per Engine.
// Each Engine owns a private registry rather than registering on
// prometheus's global default registry, so constructing more than one
// Engine in a process (or in a test) never collides on duplicate
// collector names.
type engineMetrics struct {
	registry *prometheus.Registry

	classifyTotal         *prometheus.CounterVec
	groupActions          *prometheus.CounterVec
	hostPrimitiveFailures *prometheus.CounterVec
}

func newEngineMetrics() *engineMetrics {
	const ns = "policy"

	reg := prometheus.NewRegistry()
	fac := promauto.With(reg)

	return &engineMetrics{
		registry: reg,

		classifyTotal: fac.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "classify",
			Name:      "total",
			Help:      "Stream classification outcomes, by which path produced the group: pid, rule, or default.",
		}, []string{"result"}),

		groupActions: fac.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "group",
			Name:      "actions_total",
			Help:      "Bulk group actions applied, by action and outcome.",
		}, []string{"action", "outcome"}),

		hostPrimitiveFailures: fac.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "host",
			Name:      "primitive_failures_total",
			Help:      "Host adapter primitive calls (move/cork/volume-limit) that returned an error.",
		}, []string{"primitive"}),
	}
}

// Registry returns the engine's private Prometheus registry, so a host
// process can expose it on its own /metrics endpoint.
func (e *Engine) Registry() *prometheus.Registry {
	return e.metrics.registry
}
