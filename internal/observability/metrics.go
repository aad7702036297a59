package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics stores Prometheus collectors used by the API and the lifecycle services.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal        *prometheus.CounterVec
	httpRequestDuration      *prometheus.HistogramVec
	batchTransitionsTotal    *prometheus.CounterVec
	lotsCreatedTotal         *prometheus.CounterVec
	persistenceFailuresTotal *prometheus.CounterVec
	batchesByStatus          *prometheus.GaugeVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "batch_trace",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "batch_trace",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		batchTransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "batch_trace",
				Name:      "batch_transitions_total",
				Help:      "Total number of accepted batch lifecycle actions.",
			},
			[]string{"action"},
		),
		lotsCreatedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "batch_trace",
				Name:      "lots_created_total",
				Help:      "Total number of lots derived from completed batches, by product.",
			},
			[]string{"product"},
		),
		persistenceFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "batch_trace",
				Name:      "persistence_failures_total",
				Help:      "Total number of snapshot writes that failed, by snapshot key.",
			},
			[]string{"key"},
		),
		batchesByStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "batch_trace",
				Name:      "batches",
				Help:      "Current number of batches grouped by lifecycle status.",
			},
			[]string{"status"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.batchTransitionsTotal,
		m.lotsCreatedTotal,
		m.persistenceFailuresTotal,
		m.batchesByStatus,
	)

	return m
}

// Registry exposes the underlying registry for gathering in tests and tools.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// HTTPMiddleware records request counts and latency. statusOf maps a handler
// error to the status the error handler will send; nil treats every non-fiber
// error as a 500.
func (m *Metrics) HTTPMiddleware(statusOf func(error) int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := routePath(c)
		// Avoid self-scrape noise for request counters.
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err, statusOf), time.Since(start))
		return err
	}
}

func (m *Metrics) IncBatchTransition(action string) {
	if m == nil {
		return
	}
	m.batchTransitionsTotal.WithLabelValues(normalizeLabel(action)).Inc()
}

func (m *Metrics) IncLotCreated(product string) {
	if m == nil {
		return
	}
	m.lotsCreatedTotal.WithLabelValues(normalizeLabel(product)).Inc()
}

func (m *Metrics) IncPersistenceFailure(key string) {
	if m == nil {
		return
	}
	m.persistenceFailuresTotal.WithLabelValues(normalizeLabel(key)).Inc()
}

// SetBatchesByStatus replaces the status gauge with counts. Statuses missing
// from counts drop to zero only if listed in known.
func (m *Metrics) SetBatchesByStatus(known []string, counts map[string]int) {
	if m == nil {
		return
	}
	for _, status := range known {
		m.batchesByStatus.WithLabelValues(status).Set(float64(counts[status]))
	}
	for status, n := range counts {
		m.batchesByStatus.WithLabelValues(status).Set(float64(n))
	}
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	pathLabel := strings.TrimSpace(path)
	if pathLabel == "" {
		pathLabel = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, pathLabel, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(methodLabel, pathLabel).Observe(duration.Seconds())
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return "unmatched"
	}

	if route := c.Route(); route != nil {
		if path := strings.TrimSpace(route.Path); path != "" {
			return path
		}
	}
	return "unmatched"
}

func statusFromResult(c *fiber.Ctx, err error, statusOf func(error) int) int {
	if err != nil {
		if statusOf != nil {
			return statusOf(err)
		}
		if fiberErr, ok := err.(*fiber.Error); ok {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}

	if c == nil {
		return fiber.StatusOK
	}

	status := c.Response().StatusCode()
	if status == 0 {
		return fiber.StatusOK
	}
	return status
}

func normalizeLabel(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
