package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dukerupert/propertypost/internal/apperr"
)

// UserEmailHeader carries the caller's email on balance and generation requests.
const UserEmailHeader = "x-user-email"

const maxRequestBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError renders err as {"error": message}. Server-side failures are
// logged with their cause; the cause is never sent to the client.
func writeError(w http.ResponseWriter, logger *slog.Logger, r *http.Request, err error) {
	status := apperr.StatusOf(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"kind", apperr.KindOf(err).String(),
			"error", err,
		)
	}
	writeJSON(w, status, map[string]string{"error": apperr.MessageOf(err)})
}
