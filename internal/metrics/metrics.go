package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "ovdlink"

// Metrics holds every collector of the link. A nil *Metrics is valid and
// records nothing, so components can be built without a registry in tests.
type Metrics struct {
	registry *prometheus.Registry

	Connected         prometheus.Gauge
	ConnectionsTotal  prometheus.Counter
	DisconnectsTotal  *prometheus.CounterVec
	MessagesReceived  *prometheus.CounterVec
	ProtocolErrors    *prometheus.CounterVec
	Deliveries        *prometheus.CounterVec
	DeadConsumerDrops *prometheus.CounterVec
	FramesSent        prometheus.Counter
	FrameBytesSent    prometheus.Counter
	FrameSendFailures *prometheus.CounterVec
}

// New creates the collectors and registers them, plus Go runtime and process
// collectors, on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		Connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "link",
			Name:      "connected",
			Help:      "Whether a tracking client is connected (0=no, 1=yes)",
		}),
		ConnectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "link",
			Name:      "connections_total",
			Help:      "Total number of accepted client connections",
		}),
		DisconnectsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "link",
			Name:      "disconnects_total",
			Help:      "Total number of ended client connections by reason",
		}, []string{"reason"}),
		MessagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "messages",
			Name:      "received_total",
			Help:      "Total number of decoded inbound messages",
		}, []string{"kind"}),
		ProtocolErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "messages",
			Name:      "protocol_errors_total",
			Help:      "Total number of rejected inbound frames",
		}, []string{"reason"}),
		Deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "deliveries_total",
			Help:      "Total number of values pushed into consumer channels",
		}, []string{"channel"}),
		DeadConsumerDrops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "dead_consumer_drops_total",
			Help:      "Total number of values not delivered because the consumer is gone",
		}, []string{"channel"}),
		FramesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "frames",
			Name:      "sent_total",
			Help:      "Total number of eye frames written to the client",
		}),
		FrameBytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "frames",
			Name:      "sent_bytes_total",
			Help:      "Total number of frame bytes written, headers included",
		}),
		FrameSendFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "frames",
			Name:      "send_failures_total",
			Help:      "Total number of frames that could not be sent",
		}, []string{"reason"}),
	}

	m.registry.MustRegister(
		m.Connected,
		m.ConnectionsTotal,
		m.DisconnectsTotal,
		m.MessagesReceived,
		m.ProtocolErrors,
		m.Deliveries,
		m.DeadConsumerDrops,
		m.FramesSent,
		m.FrameBytesSent,
		m.FrameSendFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry backing the /metrics endpoint.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) SetConnected(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.Connected.Set(1)
		m.ConnectionsTotal.Inc()
		return
	}
	m.Connected.Set(0)
}

func (m *Metrics) Disconnected(reason string) {
	if m == nil {
		return
	}
	m.DisconnectsTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) MessageReceived(kind string) {
	if m == nil {
		return
	}
	m.MessagesReceived.WithLabelValues(kind).Inc()
}

func (m *Metrics) ProtocolError(reason string) {
	if m == nil {
		return
	}
	m.ProtocolErrors.WithLabelValues(reason).Inc()
}

func (m *Metrics) Delivered(channel string) {
	if m == nil {
		return
	}
	m.Deliveries.WithLabelValues(channel).Inc()
}

func (m *Metrics) DeadConsumer(channel string) {
	if m == nil {
		return
	}
	m.DeadConsumerDrops.WithLabelValues(channel).Inc()
}

func (m *Metrics) FrameSent(bytes int) {
	if m == nil {
		return
	}
	m.FramesSent.Inc()
	m.FrameBytesSent.Add(float64(bytes))
}

func (m *Metrics) FrameSendFailed(reason string) {
	if m == nil {
		return
	}
	m.FrameSendFailures.WithLabelValues(reason).Inc()
}
