package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"prmirror/internal/bootstrap/logging"
	"prmirror/internal/domain/webhook"
	"prmirror/internal/errs"
	"prmirror/internal/ports"
)

// Service owns the receive, dedupe, process and record cycle for webhook
// deliveries.
type Service struct {
	events    ports.EventStore
	mirror    ports.MirrorRepository
	uow       ports.UnitOfWork
	metrics   ports.IngestMetrics
	processor *processor
	now       func() time.Time
}

func NewService(events ports.EventStore, mirror ports.MirrorRepository, uow ports.UnitOfWork, metrics ports.IngestMetrics) *Service {
	if metrics == nil {
		metrics = ports.NopIngestMetrics{}
	}
	s := &Service{
		events:  events,
		mirror:  mirror,
		uow:     uow,
		metrics: metrics,
		now:     func() time.Time { return time.Now().UTC() },
	}
	s.processor = newProcessor(mirror, func() time.Time { return s.now() })
	return s
}

type IngestInput struct {
	DeliveryID string
	Event      string
	Action     string
	Payload    []byte
}

type IngestResult struct {
	EventID          uint64
	AlreadyProcessed bool
	Status           webhook.EventStatus
}

// Ingest stores the delivery once and applies it to the mirror. A redelivery
// of a known delivery id is reported without touching mirror tables. A
// processing failure is recorded on the event row and then returned.
func (s *Service) Ingest(ctx context.Context, input IngestInput) (IngestResult, error) {
	if err := s.check(ctx); err != nil {
		return IngestResult{}, err
	}

	deliveryID := strings.TrimSpace(input.DeliveryID)
	if deliveryID == "" {
		return IngestResult{}, errors.New("delivery id is required")
	}
	kind := strings.TrimSpace(input.Event)
	if kind == "" {
		return IngestResult{}, errors.New("event name is required")
	}

	logCtx := logging.WithAttrs(
		logging.WithDelivery(ctx, deliveryID, kind),
		slog.String("component", "usecase.ingest"),
	)
	startedAt := s.now()

	refs := webhook.ExtractRefs(input.Payload)
	create := ports.EventRecordCreate{
		DeliveryID:          deliveryID,
		GitHubEvent:         kind,
		Action:              optionalString(input.Action),
		RepositoryGitHubID:  refs.RepositoryID.Ptr(),
		PullRequestGitHubID: refs.PullRequestID.Ptr(),
		Payload:             input.Payload,
		ReceivedAt:          startedAt,
	}

	var (
		record  ports.EventRecord
		created bool
	)
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		var recordErr error
		record, created, recordErr = s.events.RecordIncoming(txCtx, create)
		return recordErr
	}); err != nil {
		logging.Error(logCtx, "record incoming delivery failed", slog.Any("err", errs.Loggable(err)))
		return IngestResult{}, errs.Wrap(err, "record incoming delivery")
	}

	if !created {
		status := record.Status
		if status == webhook.StatusFailed {
			status = webhook.StatusIgnored
		}
		s.metrics.ObserveIngest(kind, status, true, s.now().Sub(startedAt))
		logging.Info(logCtx, "duplicate delivery skipped",
			slog.Uint64("event_id", record.ID),
			slog.String("stored_status", string(record.Status)),
		)
		return IngestResult{EventID: record.ID, AlreadyProcessed: true, Status: status}, nil
	}

	status, err := s.apply(logCtx, record)
	s.metrics.ObserveIngest(kind, status, false, s.now().Sub(startedAt))
	if err != nil {
		return IngestResult{EventID: record.ID, Status: webhook.StatusFailed}, err
	}
	return IngestResult{EventID: record.ID, Status: status}, nil
}

// Replay reprocesses a stored event without the delivery id check.
func (s *Service) Replay(ctx context.Context, eventID uint64) (webhook.EventStatus, error) {
	if err := s.check(ctx); err != nil {
		return "", err
	}

	record, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, ports.ErrEventNotFound) {
			return "", &ports.EventNotFoundError{ID: eventID}
		}
		return "", errs.Wrapf(err, "load pr event %d", eventID)
	}

	logCtx := logging.WithAttrs(
		logging.WithDelivery(ctx, record.DeliveryID, record.GitHubEvent),
		slog.String("component", "usecase.ingest"),
		slog.Bool("replay", true),
	)
	startedAt := s.now()

	status, err := s.apply(logCtx, record)
	s.metrics.ObserveReplay(record.GitHubEvent, status, s.now().Sub(startedAt))
	return status, err
}

func (s *Service) GetEvent(ctx context.Context, eventID uint64) (ports.EventRecord, error) {
	if err := s.check(ctx); err != nil {
		return ports.EventRecord{}, err
	}
	return s.events.GetEvent(ctx, eventID)
}

func (s *Service) ListEvents(ctx context.Context, filter ports.EventFilter) ([]ports.EventRecord, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("unknown event status %q", filter.Status)
	}
	return s.events.ListEvents(ctx, filter)
}

func (s *Service) Stats(ctx context.Context) (ports.EventStats, error) {
	if err := s.check(ctx); err != nil {
		return ports.EventStats{}, err
	}
	return s.events.EventStats(ctx)
}

// apply runs the processor and finalizes the row in one transaction. On
// failure that transaction rolls back and the failure is written in a
// separate one that outlives request cancellation.
func (s *Service) apply(ctx context.Context, record ports.EventRecord) (webhook.EventStatus, error) {
	action := record.ActionOrEmpty()

	var status webhook.EventStatus
	err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		result, processErr := s.processor.Process(txCtx, record.GitHubEvent, action, record.Payload)
		if processErr != nil {
			return processErr
		}
		if err := s.events.MarkFinished(txCtx, record.ID, result, s.now()); err != nil {
			return err
		}
		status = result
		return nil
	})
	if err == nil {
		logging.Info(ctx, "delivery applied",
			slog.Uint64("event_id", record.ID),
			slog.String("action", action),
			slog.String("status", string(status)),
		)
		return status, nil
	}

	message := errs.Message(err)
	failCtx := context.WithoutCancel(ctx)
	if markErr := s.uow.WithTx(failCtx, func(txCtx context.Context) error {
		return s.events.MarkFailed(txCtx, record.ID, message, s.now())
	}); markErr != nil {
		logging.Error(failCtx, "record delivery failure failed",
			slog.Uint64("event_id", record.ID),
			slog.Any("err", errs.Loggable(markErr)),
		)
		return webhook.StatusFailed, errors.Join(err, errs.Wrap(markErr, "record delivery failure"))
	}

	logging.Error(ctx, "delivery failed",
		slog.Uint64("event_id", record.ID),
		slog.String("action", action),
		slog.String("error_message", message),
		slog.Any("err", errs.Loggable(err)),
	)
	return webhook.StatusFailed, err
}

func (s *Service) check(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}
	if s.events == nil {
		return errors.New("event store is required")
	}
	if s.mirror == nil {
		return errors.New("mirror repository is required")
	}
	if s.uow == nil {
		return errors.New("unit of work is required")
	}
	return nil
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
