package handler

import (
	"net/http"

	"github.com/dukerupert/propertypost/internal/service"
)

type CreditsHandler struct {
	balances *service.BalanceService
}

func NewCreditsHandler(bs *service.BalanceService) *CreditsHandler {
	return &CreditsHandler{balances: bs}
}

type creditsResponse struct {
	Credits *int `json:"credits"`
}

// Get handles GET /credits. Credits is null when no email header is sent.
func (h *CreditsHandler) Get(w http.ResponseWriter, r *http.Request) {
	email := r.Header.Get(UserEmailHeader)
	writeJSON(w, http.StatusOK, creditsResponse{Credits: h.balances.Balance(r.Context(), email)})
}
