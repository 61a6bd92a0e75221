// Package metrics exposes Prometheus counters for the unread tracker and
// the upload queue.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the set of observations the session reports.
type Recorder interface {
	SetUnreadTotal(total int)
	IncCues()
	IncUploads(status string)
	IncMessagesSent(result string)
}

// Send results.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics records into a private registry.
type Metrics struct {
	registry     *prometheus.Registry
	unreadTotal  prometheus.Gauge
	cuesTotal    prometheus.Counter
	uploadsTotal *prometheus.CounterVec
	messagesSent *prometheus.CounterVec
}

// New registers the collectors in a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		unreadTotal: factory.NewGauge(prometheus.GaugeOpts{
			Name: "chat_intray_unread_total",
			Help: "Current total unread count including manual marks",
		}),
		cuesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "chat_intray_cues_total",
			Help: "Total number of notification cues played",
		}),
		uploadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_intray_uploads_total",
			Help: "Total number of finished uploads by final status",
		}, []string{"status"}),
		messagesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_intray_messages_sent_total",
			Help: "Total number of attachment messages created by result",
		}, []string{"result"}),
	}
}

// RegisterGaugeFunc adds a gauge whose value is read on every scrape.
func (m *Metrics) RegisterGaugeFunc(name, help string, fn func() float64) {
	promauto.With(m.registry).NewGaugeFunc(prometheus.GaugeOpts{Name: name, Help: help}, fn)
}

func (m *Metrics) SetUnreadTotal(total int) {
	m.unreadTotal.Set(float64(total))
}

func (m *Metrics) IncCues() {
	m.cuesTotal.Inc()
}

func (m *Metrics) IncUploads(status string) {
	m.uploadsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) IncMessagesSent(result string) {
	m.messagesSent.WithLabelValues(result).Inc()
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Noop discards all observations.
type Noop struct{}

func (Noop) SetUnreadTotal(int)     {}
func (Noop) IncCues()               {}
func (Noop) IncUploads(string)      {}
func (Noop) IncMessagesSent(string) {}

var (
	_ Recorder = (*Metrics)(nil)
	_ Recorder = Noop{}
)
