package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/dukerupert/propertypost/internal/apperr"
	"github.com/dukerupert/propertypost/internal/service"
)

type GenerateHandler struct {
	generation *service.GenerationService
	logger     *slog.Logger
}

func NewGenerateHandler(gs *service.GenerationService, logger *slog.Logger) *GenerateHandler {
	return &GenerateHandler{generation: gs, logger: logger}
}

type generateRequest struct {
	Text string `json:"text"`
}

// Generate handles POST /generate.
func (h *GenerateHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeError(w, h.logger, r, apperr.Validation("Property description text is required"))
		return
	}

	posts, err := h.generation.Generate(r.Context(), req.Text, r.Header.Get(UserEmailHeader))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}
