package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mikecalendo/gh-serv/pkg/config"
)

// Collector registers and records all Prometheus metrics for the service.
// When metrics are disabled in the configuration every Record method is a
// no-op, so callers never have to guard their call sites.
type Collector struct {
	config   config.MetricsConfig
	registry *prometheus.Registry

	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	provisionTotal *prometheus.CounterVec
	pushTotal      *prometheus.CounterVec
	transportOps   *prometheus.CounterVec
	sweepRemoved   prometheus.Counter
}

// NewCollector creates a metrics collector backed by its own registry. The
// registry also carries the standard Go runtime and process collectors.
func NewCollector(cfg config.MetricsConfig) *Collector {
	registry := prometheus.NewRegistry()
	ns := cfg.Namespace

	c := &Collector{
		config:   cfg,
		registry: registry,

		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "status"}),

		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration by route.",
			Buckets:   []float64{0.005, 0.025, 0.1, 0.25, 1, 2.5, 10, 30, 120},
		}, []string{"route"}),

		provisionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "provision_total",
			Help:      "Repository provisioning attempts by source and outcome.",
		}, []string{"source", "outcome"}),

		pushTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "push_total",
			Help:      "Receive-pack requests by outcome.",
		}, []string{"outcome"}),

		transportOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "transport_operations_total",
			Help:      "Smart HTTP transport operations by service.",
		}, []string{"service"}),

		sweepRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "sweep_removed_total",
			Help:      "Orphaned directories removed by the maintenance sweeper.",
		}),
	}

	if cfg.Enabled {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			c.httpRequests,
			c.httpDuration,
			c.provisionTotal,
			c.pushTotal,
			c.transportOps,
			c.sweepRemoved,
		)
	}

	return c
}

// RecordHTTPRequest records one completed HTTP request.
func (c *Collector) RecordHTTPRequest(route, status string, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.httpRequests.WithLabelValues(route, status).Inc()
	c.httpDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordProvision records one provisioning attempt. source is "archive" or
// "git"; outcome is "success" or "failure".
func (c *Collector) RecordProvision(source, outcome string) {
	if !c.config.Enabled {
		return
	}
	c.provisionTotal.WithLabelValues(source, outcome).Inc()
}

// RecordPush records one receive-pack request.
func (c *Collector) RecordPush(outcome string) {
	if !c.config.Enabled {
		return
	}
	c.pushTotal.WithLabelValues(outcome).Inc()
}

// RecordTransport records one smart HTTP operation ("git-upload-pack",
// "git-receive-pack" or "info-refs").
func (c *Collector) RecordTransport(service string) {
	if !c.config.Enabled {
		return
	}
	c.transportOps.WithLabelValues(service).Inc()
}

// RecordSweepRemoved counts directories removed by the sweeper.
func (c *Collector) RecordSweepRemoved(n int) {
	if !c.config.Enabled {
		return
	}
	c.sweepRemoved.Add(float64(n))
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns the HTTP handler serving this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
