package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"prmirror/internal/domain/webhook"
	"prmirror/internal/ports"
	"prmirror/internal/usecase/ingest"
)

const (
	WebhookPath = "/api/github-webhook"

	// GitHub caps webhook payloads at 25 MB.
	maxPayloadBytes = 25 << 20
)

// IngestService is the part of the ingestion service the HTTP layer calls.
type IngestService interface {
	Ingest(ctx context.Context, input ingest.IngestInput) (ingest.IngestResult, error)
	Replay(ctx context.Context, eventID uint64) (webhook.EventStatus, error)
	GetEvent(ctx context.Context, eventID uint64) (ports.EventRecord, error)
	ListEvents(ctx context.Context, filter ports.EventFilter) ([]ports.EventRecord, error)
	Stats(ctx context.Context) (ports.EventStats, error)
}

// Metrics receives HTTP observations. Handler serves the scrape endpoint.
type Metrics interface {
	ObserveHTTP(route string, method string, statusCode int, elapsed time.Duration)
	SignatureRejected()
	Handler() http.Handler
}

type Options struct {
	Secret         string
	AdminToken     string
	RequestTimeout time.Duration
	RateLimit      float64
	RateBurst      int
}

type handler struct {
	svc     IngestService
	metrics Metrics
	secret  []byte
}

// NewRouter builds the webhook, health, metrics and admin routes. Admin
// routes are mounted only when an admin token is configured.
func NewRouter(svc IngestService, metrics Metrics, opts Options) http.Handler {
	h := &handler{
		svc:     svc,
		metrics: metrics,
		secret:  []byte(opts.Secret),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	if metrics != nil {
		r.Use(observe(metrics))
	}

	r.Get("/healthz", h.health)
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		if opts.RequestTimeout > 0 {
			r.Use(middleware.Timeout(opts.RequestTimeout))
		}
		if opts.RateLimit > 0 {
			burst := opts.RateBurst
			if burst <= 0 {
				burst = 1
			}
			r.Use(limit(rate.NewLimiter(rate.Limit(opts.RateLimit), burst)))
		}
		r.Post(WebhookPath, h.webhook)
	})

	if opts.AdminToken != "" {
		r.Route("/api/events", func(r chi.Router) {
			r.Use(bearerAuth(opts.AdminToken))
			if opts.RequestTimeout > 0 {
				r.Use(middleware.Timeout(opts.RequestTimeout))
			}
			r.Get("/", h.listEvents)
			r.Get("/stats", h.eventStats)
			r.Get("/{id}", h.getEvent)
			r.Post("/{id}/replay", h.replayEvent)
		})
	}

	return r
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}
