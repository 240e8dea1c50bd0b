package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/dvloznov/kitchen-ledger/internal/api/middleware"
	"github.com/dvloznov/kitchen-ledger/internal/jobs"
	"github.com/dvloznov/kitchen-ledger/internal/logger"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// SecretHeader carries the secret registered with setWebhook.
const SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// WebhookHandler accepts Telegram updates and queues them for ingestion.
type WebhookHandler struct {
	publisher jobs.Publisher
	secret    string
}

// NewWebhookHandler creates a webhook handler. An empty secret disables the
// header check.
func NewWebhookHandler(publisher jobs.Publisher, secret string) *WebhookHandler {
	return &WebhookHandler{publisher: publisher, secret: secret}
}

// Receive handles POST /api/telegram. The update is processed asynchronously,
// so Telegram gets its acknowledgement before any slow work starts.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	if h.secret != "" {
		got := r.Header.Get(SecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) != 1 {
			log.Warn().Msg("Webhook secret mismatch")
			middleware.WriteError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
	}

	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		log.Error().Err(err).Msg("Failed to decode webhook update")
		middleware.WriteError(w, http.StatusInternalServerError, "Webhook error")
		return
	}

	job := jobs.NewIngestUpdateJob(update, "webhook")
	if err := h.publisher.PublishIngestUpdate(r.Context(), job); err != nil {
		log.Error().Err(err).Int("update_id", update.UpdateID).Msg("Failed to enqueue update")
		middleware.WriteError(w, http.StatusInternalServerError, "Webhook error")
		return
	}

	log.Debug().Str("job_id", job.JobID).Int("update_id", update.UpdateID).Msg("Update enqueued")
	middleware.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Status handles GET /api/telegram.
func (h *WebhookHandler) Status(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "Telegram webhook is active"})
}
