package fbp

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is a Prometheus registry of runtime gauges and counters. It is
// optional: an Executor constructed without WithMetrics simply skips
// reporting. Register it with prometheus.DefaultRegisterer (or any other
// registerer) the way linkerd2's controller/telemetry package registers its
// own collectors.
type Metrics struct {
	componentState       *prometheus.GaugeVec
	connectionQueueDepth *prometheus.GaugeVec
	terminatedTotal      *prometheus.CounterVec
	errorTotal           *prometheus.CounterVec
}

// NewMetrics constructs a Metrics instance and registers its collectors
// with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		componentState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fbp_component_state",
			Help: "1 for the component's current lifecycle state, 0 otherwise, labeled by component and state.",
		}, []string{"component", "state"}),
		connectionQueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fbp_connection_queue_depth",
			Help: "Number of packets currently buffered in a connection.",
		}, []string{"connection"}),
		terminatedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fbp_components_terminated_total",
			Help: "Count of components that reached TERMINATED.",
		}, []string{"component"}),
		errorTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fbp_components_error_total",
			Help: "Count of components that reached ERROR.",
		}, []string{"component"}),
	}
	reg.MustRegister(m.componentState, m.connectionQueueDepth, m.terminatedTotal, m.errorTotal)
	return m
}

func (m *Metrics) setComponentState(component string, state ComponentState) {
	for _, s := range []ComponentState{
		StateNotInitialized, StateInitialized, StateActive,
		StateSuspendedSend, StateSuspendedRecv, StateTerminated, StateError,
	} {
		v := 0.0
		if s == state {
			v = 1.0
		}
		m.componentState.WithLabelValues(component, s.String()).Set(v)
	}
}

func (m *Metrics) incTerminated(component string, ok bool) {
	if ok {
		m.terminatedTotal.WithLabelValues(component).Inc()
	} else {
		m.errorTotal.WithLabelValues(component).Inc()
	}
}

// ObserveConnectionDepth records the current buffered depth of every
// connection in g. Call it periodically (e.g. from a ticker alongside a
// running Executor) since connections don't push their own depth changes.
func (m *Metrics) ObserveConnectionDepth(g *Graph) {
	for _, c := range g.conns {
		m.connectionQueueDepth.WithLabelValues(c.Desc()).Set(float64(c.Depth()))
	}
}
