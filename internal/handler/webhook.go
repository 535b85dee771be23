package handler

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/dukerupert/propertypost/internal/apperr"
	"github.com/dukerupert/propertypost/internal/service"
)

const maxWebhookBody = 65536

type WebhookHandler struct {
	webhooks *service.WebhookService
	logger   *slog.Logger
}

func NewWebhookHandler(ws *service.WebhookService, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{webhooks: ws, logger: logger}
}

// HandlePayment handles POST /webhooks/payment.
func (h *WebhookHandler) HandlePayment(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, h.logger, r, apperr.Validation("Failed to read request body"))
		return
	}

	if _, err := h.webhooks.Handle(r.Context(), body, r.Header.Get("Stripe-Signature")); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
