package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/dukerupert/propertypost/internal/apperr"
	"github.com/dukerupert/propertypost/internal/service"
)

type CheckoutHandler struct {
	checkout *service.CheckoutService
	baseURL  string
	logger   *slog.Logger
}

func NewCheckoutHandler(cs *service.CheckoutService, baseURL string, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{checkout: cs, baseURL: baseURL, logger: logger}
}

// Create handles POST /checkout and returns the hosted checkout URL.
func (h *CheckoutHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CheckoutRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeError(w, h.logger, r, apperr.Validation("Valid email address is required"))
		return
	}

	origin := r.Header.Get("Origin")
	if origin == "" || origin == "null" {
		origin = h.baseURL
	}

	url, err := h.checkout.Start(r.Context(), req, origin)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}
