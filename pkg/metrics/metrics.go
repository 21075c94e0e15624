// Package metrics exposes supervisor activity as Prometheus collectors.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "hsu_gateway"

// Label values
const (
	ResultSuccess    = "success"
	ResultFailure    = "failure"
	ResultSuppressed = "suppressed"

	CauseShutdown   = "shutdown"
	CauseUnexpected = "unexpected"
	CauseStartup    = "startup"
)

type Metrics struct {
	starts   *prometheus.CounterVec
	restarts *prometheus.CounterVec
	exits    *prometheus.CounterVec
	logLines *prometheus.CounterVec
	up       prometheus.Gauge
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		starts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "starts_total",
			Help:      "Gateway start attempts by result.",
		}, []string{"result"}),
		restarts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "restarts_total",
			Help:      "Automatic and requested gateway restarts by result.",
		}, []string{"result"}),
		exits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exits_total",
			Help:      "Gateway process exits by cause.",
		}, []string{"cause"}),
		logLines: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "log_lines_total",
			Help:      "Gateway output lines by stream and classified level.",
		}, []string{"stream", "level"}),
		up: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "up",
			Help:      "1 while a healthy gateway instance is current.",
		}),
	}
}

func (m *Metrics) ObserveStart(result string) {
	if m == nil {
		return
	}
	m.starts.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveRestart(result string) {
	if m == nil {
		return
	}
	m.restarts.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveExit(cause string) {
	if m == nil {
		return
	}
	m.exits.WithLabelValues(cause).Inc()
}

func (m *Metrics) ObserveLogLine(stream, level string) {
	if m == nil {
		return
	}
	m.logLines.WithLabelValues(stream, level).Inc()
}

func (m *Metrics) SetUp(up bool) {
	if m == nil {
		return
	}
	if up {
		m.up.Set(1)
	} else {
		m.up.Set(0)
	}
}
