// Package metrics agrupa los collectors prometheus del editor. Los métodos
// aceptan receptor nil y en ese caso no hacen nada.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "laneeditor"

// Resultados de un envío de changeset.
const (
	SubmissionSent         = "sent"
	SubmissionOpenFailed   = "open_failed"
	SubmissionLedgerFailed = "ledger_failed"
	SubmissionRejected     = "rejected"
)

type Metrics struct {
	gatherer prometheus.Gatherer

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	remoteCalls  *prometheus.CounterVec
	submissions  *prometheus.CounterVec
	items        *prometheus.CounterVec
}

var (
	defaultOnce sync.Once
	defaultM    *Metrics
	defaultErr  error
)

// Default registra los collectors una sola vez en el registry global.
func Default() (*Metrics, error) {
	defaultOnce.Do(func() {
		defaultM, defaultErr = New(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
	})
	return defaultM, defaultErr
}

// New crea y registra los collectors en reg. gather se usa para /metrics.
func New(reg prometheus.Registerer, gather prometheus.Gatherer) (*Metrics, error) {
	m := &Metrics{
		gatherer: gather,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Número total de requests procesadas",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Latencia de los requests HTTP",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		remoteCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_calls_total",
			Help:      "Llamadas a la API de OSM por operación y resultado",
		}, []string{"op", "result"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Envíos de changeset por resultado",
		}, []string{"result"}),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_total",
			Help:      "Items de changeset por outcome (applied|skipped)",
		}, []string{"outcome"}),
	}
	for _, c := range []prometheus.Collector{m.httpRequests, m.httpDuration, m.remoteCalls, m.submissions, m.items} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Handler expone /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RemoteCall satisface osm.Recorder.
func (m *Metrics) RemoteCall(op, result string) {
	if m == nil {
		return
	}
	m.remoteCalls.WithLabelValues(op, result).Inc()
}

func (m *Metrics) Submission(result string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(result).Inc()
}

func (m *Metrics) Item(outcome string) {
	if m == nil {
		return
	}
	m.items.WithLabelValues(outcome).Inc()
}
