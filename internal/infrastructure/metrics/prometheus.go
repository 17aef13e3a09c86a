package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"prmirror/internal/domain/webhook"
	"prmirror/internal/ports"
)

const namespace = "prmirror"

// Collector owns a private registry so tests and multiple servers in one
// process do not collide on registration.
type Collector struct {
	registry *prometheus.Registry

	deliveries      *prometheus.CounterVec
	replays         *prometheus.CounterVec
	ingestDuration  *prometheus.HistogramVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	signatureErrors prometheus.Counter
}

var _ ports.IngestMetrics = (*Collector)(nil)

func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,
		deliveries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "webhook_deliveries_total",
				Help:      "Webhook deliveries by event kind, resulting status and whether the delivery id was already stored.",
			},
			[]string{"event", "status", "duplicate"},
		),
		replays: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "event_replays_total",
				Help:      "Operator-triggered replays by event kind and resulting status.",
			},
			[]string{"event", "status"},
		),
		ingestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "ingest_duration_seconds",
				Help:      "Time spent recording and applying one delivery.",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"event", "mode"},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route pattern, method and status code.",
			},
			[]string{"route", "method", "status_code"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration by route pattern and method.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
		signatureErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_signature_failures_total",
			Help:      "Deliveries rejected because the signature did not verify.",
		}),
	}
}

func (c *Collector) ObserveIngest(kind string, status webhook.EventStatus, duplicate bool, elapsed time.Duration) {
	c.deliveries.WithLabelValues(kind, string(status), strconv.FormatBool(duplicate)).Inc()
	c.ingestDuration.WithLabelValues(kind, "ingest").Observe(elapsed.Seconds())
}

func (c *Collector) ObserveReplay(kind string, status webhook.EventStatus, elapsed time.Duration) {
	c.replays.WithLabelValues(kind, string(status)).Inc()
	c.ingestDuration.WithLabelValues(kind, "replay").Observe(elapsed.Seconds())
}

func (c *Collector) ObserveHTTP(route string, method string, statusCode int, elapsed time.Duration) {
	c.httpRequests.WithLabelValues(route, method, strconv.Itoa(statusCode)).Inc()
	c.httpDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

func (c *Collector) SignatureRejected() {
	c.signatureErrors.Inc()
}

// Handler exposes the private registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
