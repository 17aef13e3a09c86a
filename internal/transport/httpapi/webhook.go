package httpapi

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"prmirror/internal/bootstrap/logging"
	"prmirror/internal/domain/webhook"
	"prmirror/internal/errs"
	"prmirror/internal/usecase/ingest"
)

const (
	headerEvent     = "X-GitHub-Event"
	headerDelivery  = "X-GitHub-Delivery"
	headerSignature = "X-Hub-Signature-256"
)

type webhookResponse struct {
	Status      string              `json:"status"`
	Processed   bool                `json:"processed"`
	EventStatus webhook.EventStatus `json:"eventStatus"`
}

func (h *handler) webhook(w http.ResponseWriter, r *http.Request) {
	if len(h.secret) == 0 {
		logging.Error(r.Context(), "webhook secret is not configured")
		writeError(w, http.StatusInternalServerError, "Webhook secret not configured")
		return
	}

	eventName := strings.TrimSpace(r.Header.Get(headerEvent))
	deliveryID := strings.TrimSpace(r.Header.Get(headerDelivery))
	signature := r.Header.Get(headerSignature)
	if eventName == "" || deliveryID == "" || signature == "" {
		writeError(w, http.StatusBadRequest, "Missing GitHub webhook headers")
		return
	}

	ctx := logging.WithDelivery(r.Context(), deliveryID, eventName)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	if err != nil {
		logging.Warn(ctx, "read webhook body failed", slog.Any("err", errs.Loggable(err)))
		writeError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	if !webhook.VerifySignature(h.secret, body, signature) {
		if h.metrics != nil {
			h.metrics.SignatureRejected()
		}
		logging.Warn(ctx, "webhook signature rejected")
		writeError(w, http.StatusUnauthorized, "Invalid signature")
		return
	}

	if !webhook.IsJSONObject(body) {
		logging.Warn(ctx, "webhook payload is not a JSON object")
		writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	if eventName == webhook.KindPing {
		writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
		return
	}

	result, err := h.svc.Ingest(ctx, ingest.IngestInput{
		DeliveryID: deliveryID,
		Event:      eventName,
		Action:     webhook.ExtractAction(body),
		Payload:    body,
	})
	if err != nil {
		logging.Error(ctx, "process webhook failed", slog.Any("err", errs.Loggable(err)))
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "Failed to process webhook",
			Details: errs.Message(err),
		})
		return
	}

	writeJSON(w, http.StatusOK, webhookResponse{
		Status:      "ok",
		Processed:   !result.AlreadyProcessed,
		EventStatus: result.Status,
	})
}
