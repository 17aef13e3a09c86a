package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"prmirror/internal/bootstrap/logging"
	"prmirror/internal/domain/webhook"
	"prmirror/internal/errs"
	"prmirror/internal/ports"
)

const maxListLimit = 500

type eventView struct {
	ID                  uint64              `json:"id"`
	DeliveryID          string              `json:"deliveryId"`
	GitHubEvent         string              `json:"githubEvent"`
	Action              *string             `json:"action"`
	RepositoryGitHubID  *int64              `json:"repositoryGithubId"`
	PullRequestGitHubID *int64              `json:"pullRequestGithubId"`
	Status              webhook.EventStatus `json:"status"`
	RetryCount          int                 `json:"retryCount"`
	ErrorMessage        *string             `json:"errorMessage"`
	ProcessedAt         *time.Time          `json:"processedAt"`
	CreatedAt           time.Time           `json:"createdAt"`
	UpdatedAt           time.Time           `json:"updatedAt"`
	Payload             json.RawMessage     `json:"payload,omitempty"`
}

type failureView struct {
	EventID      uint64    `json:"eventId"`
	DeliveryID   string    `json:"deliveryId"`
	GitHubEvent  string    `json:"githubEvent"`
	ErrorMessage string    `json:"errorMessage"`
	RetryCount   int       `json:"retryCount"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type statsView struct {
	Counts          map[webhook.EventStatus]int64 `json:"counts"`
	Total           int64                         `json:"total"`
	LastProcessedAt *time.Time                    `json:"lastProcessedAt"`
	LastFailure     *failureView                  `json:"lastFailure"`
}

type replayResponse struct {
	Status      string              `json:"status"`
	EventID     uint64              `json:"eventId"`
	EventStatus webhook.EventStatus `json:"eventStatus"`
}

func (h *handler) listEvents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := ports.EventFilter{Kind: strings.TrimSpace(query.Get("kind"))}

	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		status, ok := webhook.ParseEventStatus(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "Invalid status filter")
			return
		}
		filter.Status = status
	}
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 || limit > maxListLimit {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		filter.Limit = limit
	}

	events, err := h.svc.ListEvents(r.Context(), filter)
	if err != nil {
		h.internalError(w, r, "list events failed", err)
		return
	}
	out := make([]eventView, 0, len(events))
	for _, event := range events {
		out = append(out, toEventView(event, false))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) getEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := eventIDParam(w, r)
	if !ok {
		return
	}

	event, err := h.svc.GetEvent(r.Context(), eventID)
	if err != nil {
		if errors.Is(err, ports.ErrEventNotFound) {
			writeError(w, http.StatusNotFound, errs.Message(err))
			return
		}
		h.internalError(w, r, "get event failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toEventView(event, true))
}

func (h *handler) eventStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		h.internalError(w, r, "event stats failed", err)
		return
	}

	out := statsView{
		Counts:          map[webhook.EventStatus]int64{},
		Total:           stats.Total,
		LastProcessedAt: stats.LastProcessedAt,
	}
	for _, status := range webhook.EventStatuses() {
		out.Counts[status] = stats.Counts[status]
	}
	if failure := stats.LastFailure; failure != nil {
		out.LastFailure = &failureView{
			EventID:      failure.EventID,
			DeliveryID:   failure.DeliveryID,
			GitHubEvent:  failure.GitHubEvent,
			ErrorMessage: failure.ErrorMessage,
			RetryCount:   failure.RetryCount,
			UpdatedAt:    failure.UpdatedAt,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) replayEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := eventIDParam(w, r)
	if !ok {
		return
	}

	ctx := logging.WithAttrs(r.Context(), slog.Uint64("event_id", eventID))
	status, err := h.svc.Replay(ctx, eventID)
	if err != nil {
		if errors.Is(err, ports.ErrEventNotFound) {
			writeError(w, http.StatusNotFound, errs.Message(err))
			return
		}
		logging.Error(ctx, "replay event failed", slog.Any("err", errs.Loggable(err)))
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "Failed to replay event",
			Details: errs.Message(err),
		})
		return
	}

	logging.Info(ctx, "event replayed", slog.String("status", string(status)))
	writeJSON(w, http.StatusOK, replayResponse{Status: "ok", EventID: eventID, EventStatus: status})
}

func (h *handler) internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	logging.Error(r.Context(), msg, slog.Any("err", errs.Loggable(err)))
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal error", Details: errs.Message(err)})
}

func eventIDParam(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	eventID, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || eventID == 0 {
		writeError(w, http.StatusBadRequest, "Invalid event id")
		return 0, false
	}
	return eventID, true
}

func toEventView(event ports.EventRecord, withPayload bool) eventView {
	view := eventView{
		ID:                  event.ID,
		DeliveryID:          event.DeliveryID,
		GitHubEvent:         event.GitHubEvent,
		Action:              event.Action,
		RepositoryGitHubID:  event.RepositoryGitHubID,
		PullRequestGitHubID: event.PullRequestGitHubID,
		Status:              event.Status,
		RetryCount:          event.RetryCount,
		ErrorMessage:        event.ErrorMessage,
		ProcessedAt:         event.ProcessedAt,
		CreatedAt:           event.CreatedAt,
		UpdatedAt:           event.UpdatedAt,
	}
	if withPayload && json.Valid(event.Payload) {
		view.Payload = json.RawMessage(event.Payload)
	}
	return view
}
