// Package metrics provides Prometheus metrics for stationmap.
// All methods are safe to call on a nil *Metrics, which records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	FetchSuccess    = "success"
	FetchError      = "error"
	FetchSuperseded = "superseded"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Registry is the Prometheus registry for this metrics instance
	Registry *prometheus.Registry

	FetchesTotal          *prometheus.CounterVec
	FetchDuration         prometheus.Histogram
	Stations              prometheus.Gauge
	ViewportCommandsTotal *prometheus.CounterVec
	WSClients             prometheus.Gauge
	HTTPRequestsTotal     *prometheus.CounterVec
}

// New creates and registers all application metrics with a new registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		Registry: registry,
		FetchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stationmap_fetches_total",
				Help: "Station list fetches by outcome",
			},
			[]string{"outcome"},
		),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "stationmap_fetch_duration_seconds",
			Help:    "Station list fetch latency distribution",
			Buckets: prometheus.DefBuckets,
		}),
		Stations: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stationmap_stations",
			Help: "Number of stations in the current list",
		}),
		ViewportCommandsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stationmap_viewport_commands_total",
				Help: "Viewport commands applied to the map by kind",
			},
			[]string{"kind"},
		),
		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stationmap_ws_clients",
			Help: "Number of connected map and list clients",
		}),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stationmap_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
	}

	// Register all metrics with the custom registry
	registry.MustRegister(
		m.FetchesTotal,
		m.FetchDuration,
		m.Stations,
		m.ViewportCommandsTotal,
		m.WSClients,
		m.HTTPRequestsTotal,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveFetch(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.FetchesTotal.WithLabelValues(outcome).Inc()
	m.FetchDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) SetStations(count int) {
	if m == nil {
		return
	}
	m.Stations.Set(float64(count))
}

func (m *Metrics) ObserveViewportCommand(kind string) {
	if m == nil {
		return
	}
	m.ViewportCommandsTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) SetWSClients(count int) {
	if m == nil {
		return
	}
	m.WSClients.Set(float64(count))
}

func (m *Metrics) ObserveHTTPRequest(method, route string, status int) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}
