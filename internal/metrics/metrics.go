// Package metrics provides Prometheus instrumentation for the HTTP service.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Skufu/skinscreen/internal/confidence"
)

type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	predictionsStored   *prometheus.CounterVec
	recordsResolved     *prometheus.CounterVec
}

// New registers the service metrics plus the Go runtime collectors on a
// private registry.
func New() (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Time taken for HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		predictionsStored: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "predictions_stored_total",
				Help: "Prediction records accepted, by confidence shape",
			},
			[]string{"shape"},
		),
		recordsResolved: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "history_records_resolved_total",
				Help: "Records resolved for history views, by risk label",
			},
			[]string{"risk"},
		),
	}

	for _, c := range []prometheus.Collector{
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.predictionsStored,
		m.recordsResolved,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := m.registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Middleware records request counts and latency keyed by the route pattern,
// so path parameters don't explode label cardinality.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.httpRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

func (m *Metrics) PredictionStored(shape string) {
	m.predictionsStored.WithLabelValues(shape).Inc()
}

func (m *Metrics) Resolved(risk confidence.Risk) {
	m.recordsResolved.WithLabelValues(string(risk)).Inc()
}
