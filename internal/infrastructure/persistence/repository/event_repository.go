package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"prmirror/internal/domain/webhook"
	"prmirror/internal/errs"
	"prmirror/internal/infrastructure/persistence/model"
	"prmirror/internal/ports"
)

const defaultEventListLimit = 50

type EventRepository struct {
	db *gorm.DB
}

var _ ports.EventStore = (*EventRepository)(nil)

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) RecordIncoming(ctx context.Context, input ports.EventRecordCreate) (ports.EventRecord, bool, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.EventRecord{}, false, err
	}

	deliveryID := strings.TrimSpace(input.DeliveryID)
	if deliveryID == "" {
		return ports.EventRecord{}, false, errors.New("delivery id is required")
	}
	at := input.ReceivedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	payload := input.Payload
	if len(payload) == 0 {
		payload = []byte("{}")
	}

	row := model.PREvent{
		DeliveryID:          deliveryID,
		GitHubEvent:         input.GitHubEvent,
		Action:              input.Action,
		RepositoryGitHubID:  input.RepositoryGitHubID,
		PullRequestGitHubID: input.PullRequestGitHubID,
		Status:              string(webhook.StatusPending),
		RetryCount:          0,
		Payload:             datatypes.JSON(payload),
		CreatedAt:           at,
		UpdatedAt:           at,
	}

	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "delivery_id"}},
		DoNothing: true,
	}).Create(&row)
	if result.Error != nil {
		return ports.EventRecord{}, false, errs.Wrap(result.Error, "insert pr event")
	}
	if result.RowsAffected > 0 {
		return mapEvent(row), true, nil
	}

	var existing model.PREvent
	if err := db.Where("delivery_id = ?", deliveryID).Take(&existing).Error; err != nil {
		return ports.EventRecord{}, false, errs.Wrap(err, "query existing pr event")
	}
	return mapEvent(existing), false, nil
}

func (r *EventRepository) MarkFinished(ctx context.Context, eventID uint64, status webhook.EventStatus, at time.Time) error {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return err
	}
	if status != webhook.StatusProcessed && status != webhook.StatusIgnored {
		return errs.Wrapf(errors.New("invalid finish status"), "mark pr event %d as %q", eventID, status)
	}

	result := db.Model(&model.PREvent{}).Where("id = ?", eventID).Updates(map[string]any{
		"status":        string(status),
		"processed_at":  at,
		"error_message": nil,
		"updated_at":    at,
	})
	if result.Error != nil {
		return errs.Wrap(result.Error, "update pr event status")
	}
	if result.RowsAffected == 0 {
		return ports.ErrEventNotFound
	}
	return nil
}

func (r *EventRepository) MarkFailed(ctx context.Context, eventID uint64, message string, at time.Time) error {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return err
	}

	result := db.Model(&model.PREvent{}).Where("id = ?", eventID).Updates(map[string]any{
		"status":        string(webhook.StatusFailed),
		"error_message": message,
		"retry_count":   gorm.Expr("retry_count + ?", 1),
		"updated_at":    at,
	})
	if result.Error != nil {
		return errs.Wrap(result.Error, "record pr event failure")
	}
	if result.RowsAffected == 0 {
		return ports.ErrEventNotFound
	}
	return nil
}

func (r *EventRepository) GetEvent(ctx context.Context, eventID uint64) (ports.EventRecord, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.EventRecord{}, err
	}

	var row model.PREvent
	if err := db.Where("id = ?", eventID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.EventRecord{}, ports.ErrEventNotFound
		}
		return ports.EventRecord{}, errs.Wrap(err, "query pr event")
	}
	return mapEvent(row), nil
}

func (r *EventRepository) ListEvents(ctx context.Context, filter ports.EventFilter) ([]ports.EventRecord, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.PREvent{})
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	if kind := strings.TrimSpace(filter.Kind); kind != "" {
		query = query.Where("github_event = ?", kind)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultEventListLimit
	}

	var rows []model.PREvent
	if err := query.Order("id desc").Limit(limit).Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query pr events")
	}

	items := make([]ports.EventRecord, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapEvent(row))
	}
	return items, nil
}

func (r *EventRepository) EventStats(ctx context.Context) (ports.EventStats, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.EventStats{}, err
	}

	type statusCount struct {
		Status string
		Count  int64
	}
	var counts []statusCount
	if err := db.Model(&model.PREvent{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&counts).Error; err != nil {
		return ports.EventStats{}, errs.Wrap(err, "count pr events by status")
	}

	stats := ports.EventStats{Counts: make(map[webhook.EventStatus]int64, len(counts))}
	for _, status := range webhook.EventStatuses() {
		stats.Counts[status] = 0
	}
	for _, item := range counts {
		stats.Counts[webhook.EventStatus(item.Status)] = item.Count
		stats.Total += item.Count
	}

	var lastProcessed model.PREvent
	err = db.Where("status = ? AND processed_at IS NOT NULL", string(webhook.StatusProcessed)).Order("processed_at desc").Take(&lastProcessed).Error
	switch {
	case err == nil:
		stats.LastProcessedAt = lastProcessed.ProcessedAt
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return ports.EventStats{}, errs.Wrap(err, "query last processed pr event")
	}

	var lastFailed model.PREvent
	err = db.Where("status = ?", string(webhook.StatusFailed)).Order("updated_at desc").Order("id desc").Take(&lastFailed).Error
	switch {
	case err == nil:
		stats.LastFailure = &ports.EventFailure{
			EventID:      lastFailed.ID,
			DeliveryID:   lastFailed.DeliveryID,
			GitHubEvent:  lastFailed.GitHubEvent,
			ErrorMessage: derefString(lastFailed.ErrorMessage),
			RetryCount:   lastFailed.RetryCount,
			UpdatedAt:    lastFailed.UpdatedAt,
		}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return ports.EventStats{}, errs.Wrap(err, "query last failed pr event")
	}

	return stats, nil
}

func mapEvent(row model.PREvent) ports.EventRecord {
	payload := make([]byte, len(row.Payload))
	copy(payload, row.Payload)
	return ports.EventRecord{
		ID:                  row.ID,
		DeliveryID:          row.DeliveryID,
		GitHubEvent:         row.GitHubEvent,
		Action:              row.Action,
		RepositoryGitHubID:  row.RepositoryGitHubID,
		PullRequestGitHubID: row.PullRequestGitHubID,
		Status:              webhook.EventStatus(row.Status),
		RetryCount:          row.RetryCount,
		ErrorMessage:        row.ErrorMessage,
		Payload:             payload,
		ProcessedAt:         row.ProcessedAt,
		CreatedAt:           row.CreatedAt,
		UpdatedAt:           row.UpdatedAt,
	}
}
