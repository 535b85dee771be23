package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	ws "github.com/coder/websocket"
)

// BalanceFunc resolves the current balance for an email.
type BalanceFunc func(ctx context.Context, email string) int

// HandleBalanceFeed upgrades the connection and streams balance updates for
// the email in the query string, starting with its current balance.
func HandleBalanceFeed(hub *Hub, balance BalanceFunc, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email := strings.TrimSpace(r.URL.Query().Get("email"))
		if email == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "email is required"})
			return
		}

		conn, err := ws.Accept(w, r, nil)
		if err != nil {
			logger.Warn("websocket accept", "error", err)
			return
		}
		defer conn.CloseNow()

		initial, _ := json.Marshal(NewBalanceMessage(email, balance(r.Context(), email)))
		NewClient(hub, conn, email).Run(r.Context(), initial)
	}
}
