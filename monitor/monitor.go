package monitor

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	Connected         prometheus.Gauge
	ReconnectAttempts prometheus.Counter
	MessagesReceived  prometheus.Counter
	MessagesRejected  prometheus.Counter
	PushesSent        prometheus.Counter
	PushesFailed      prometheus.Counter
	PushLatency       prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		Connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connected",
			Help:      "1 while the room channel is joined",
		}),
		ReconnectAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconnect_attempts_total",
			Help:      "Total number of transport reconnect attempts",
		}),
		MessagesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Total number of inbound frames received",
		}),
		MessagesRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_rejected_total",
			Help:      "Total number of inbound payloads rejected by validation",
		}),
		PushesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pushes_sent_total",
			Help:      "Total number of outbound pushes",
		}),
		PushesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pushes_failed_total",
			Help:      "Total number of pushes that ended in error or timeout",
		}),
		PushLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "push_latency_seconds",
			Help:      "Time between sending a push and receiving its reply",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
	}

	prometheus.MustRegister(
		m.Connected,
		m.ReconnectAttempts,
		m.MessagesReceived,
		m.MessagesRejected,
		m.PushesSent,
		m.PushesFailed,
		m.PushLatency,
	)

	return m
}

type Monitor struct {
	metrics *Metrics
}

func New(namespace string) *Monitor {
	return &Monitor{metrics: NewMetrics(namespace)}
}

func (m *Monitor) StartServer(addr string) {
	http.Handle("/metrics", promhttp.Handler())
	go http.ListenAndServe(addr, nil)
}

func (m *Monitor) SetConnected(up bool) {
	if m == nil {
		return
	}
	if up {
		m.metrics.Connected.Set(1)
	} else {
		m.metrics.Connected.Set(0)
	}
}

func (m *Monitor) IncReconnectAttempts() {
	if m == nil {
		return
	}
	m.metrics.ReconnectAttempts.Inc()
}

func (m *Monitor) IncMessagesReceived() {
	if m == nil {
		return
	}
	m.metrics.MessagesReceived.Inc()
}

func (m *Monitor) IncMessagesRejected() {
	if m == nil {
		return
	}
	m.metrics.MessagesRejected.Inc()
}

func (m *Monitor) IncPushesSent() {
	if m == nil {
		return
	}
	m.metrics.PushesSent.Inc()
}

func (m *Monitor) IncPushesFailed() {
	if m == nil {
		return
	}
	m.metrics.PushesFailed.Inc()
}

func (m *Monitor) ObservePushLatency(duration time.Duration) {
	if m == nil {
		return
	}
	m.metrics.PushLatency.Observe(duration.Seconds())
}
