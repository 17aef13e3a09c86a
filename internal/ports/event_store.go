package ports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"prmirror/internal/domain/webhook"
)

var ErrEventNotFound = errors.New("pr event not found")

// EventNotFoundError names the missing event and matches ErrEventNotFound.
type EventNotFoundError struct {
	ID uint64
}

func (e *EventNotFoundError) Error() string {
	return fmt.Sprintf("PR event %d not found", e.ID)
}

func (e *EventNotFoundError) Is(target error) bool {
	return target == ErrEventNotFound
}

// EventRecord is one stored webhook delivery.
type EventRecord struct {
	ID                  uint64
	DeliveryID          string
	GitHubEvent         string
	Action              *string
	RepositoryGitHubID  *int64
	PullRequestGitHubID *int64
	Status              webhook.EventStatus
	RetryCount          int
	ErrorMessage        *string
	Payload             []byte
	ProcessedAt         *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (r EventRecord) ActionOrEmpty() string {
	if r.Action == nil {
		return ""
	}
	return *r.Action
}

type EventRecordCreate struct {
	DeliveryID          string
	GitHubEvent         string
	Action              *string
	RepositoryGitHubID  *int64
	PullRequestGitHubID *int64
	Payload             []byte
	ReceivedAt          time.Time
}

type EventFilter struct {
	Status webhook.EventStatus
	Kind   string
	Limit  int
}

type EventFailure struct {
	EventID      uint64
	DeliveryID   string
	GitHubEvent  string
	ErrorMessage string
	RetryCount   int
	UpdatedAt    time.Time
}

type EventStats struct {
	Counts          map[webhook.EventStatus]int64
	Total           int64
	LastProcessedAt *time.Time
	LastFailure     *EventFailure
}

type EventStore interface {
	// RecordIncoming inserts a pending row unless the delivery id is already
	// stored, in which case the stored row is returned with created=false.
	RecordIncoming(ctx context.Context, input EventRecordCreate) (record EventRecord, created bool, err error)
	MarkFinished(ctx context.Context, eventID uint64, status webhook.EventStatus, at time.Time) error
	MarkFailed(ctx context.Context, eventID uint64, message string, at time.Time) error
	GetEvent(ctx context.Context, eventID uint64) (EventRecord, error)
	ListEvents(ctx context.Context, filter EventFilter) ([]EventRecord, error)
	EventStats(ctx context.Context) (EventStats, error)
}
