package ports

import (
	"time"

	"prmirror/internal/domain/webhook"
)

// IngestMetrics receives one observation per ingestion or replay attempt.
type IngestMetrics interface {
	ObserveIngest(kind string, status webhook.EventStatus, duplicate bool, elapsed time.Duration)
	ObserveReplay(kind string, status webhook.EventStatus, elapsed time.Duration)
}

type NopIngestMetrics struct{}

func (NopIngestMetrics) ObserveIngest(string, webhook.EventStatus, bool, time.Duration) {}

func (NopIngestMetrics) ObserveReplay(string, webhook.EventStatus, time.Duration) {}
