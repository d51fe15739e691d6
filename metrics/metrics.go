// Package metrics exposes the node runtime's Prometheus surface. This is
// ambient observability carried regardless of spec.md's non-goals around
// wire protocols (SPEC_FULL.md §A): the driver cycle and codec registry
// still get structured metrics the way a production media-graph daemon
// would, grounded on the prometheus/client_golang usage pattern in
// rockstar-0000-aistore and dshills-langgraph-go.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics is a small, explicit collector set rather than a generic
// registry wrapper — every metric this package emits is named here so a
// reviewer can see the whole surface in one place.
type Metrics struct {
	NodeState        *prometheus.GaugeVec
	DriverCycles     *prometheus.CounterVec
	PortsReconciled  *prometheus.CounterVec
	CodecsLoaded     prometheus.Gauge
	CodecLoadFailure *prometheus.CounterVec
}

// New registers the node runtime's collectors against reg. Passing a
// dedicated registry (rather than prometheus.DefaultRegisterer) keeps
// repeated construction in tests side-effect free.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		NodeState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "medianode",
			Name:      "node_state",
			Help:      "Current state of a node (0=creating,1=suspended,2=idle,3=running,4=error).",
		}, []string{"node"}),
		DriverCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medianode",
			Name:      "driver_cycles_total",
			Help:      "Number of driver process cycles run.",
		}, []string{"node"}),
		PortsReconciled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medianode",
			Name:      "ports_reconciled_total",
			Help:      "Ports created or destroyed during reconciliation.",
		}, []string{"node", "direction", "action"}),
		CodecsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "medianode",
			Name:      "codecs_loaded",
			Help:      "Number of codec descriptors currently held by the registry.",
		}),
		CodecLoadFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medianode",
			Name:      "codec_load_failures_total",
			Help:      "Codec registry load failures by kind.",
		}, []string{"kind"}),
	}

	reg.MustRegister(m.NodeState, m.DriverCycles, m.PortsReconciled, m.CodecsLoaded, m.CodecLoadFailure)
	return m
}
