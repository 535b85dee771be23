package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// BalanceMessage notifies a subscriber of an email's current credit balance.
type BalanceMessage struct {
	Type    string `json:"type"`
	Email   string `json:"email"`
	Credits int    `json:"credits"`
}

func NewBalanceMessage(email string, credits int) BalanceMessage {
	return BalanceMessage{Type: "balance", Email: email, Credits: credits}
}

// Hub tracks connected clients by the email they watch and fans out
// balance changes to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
	logger  *slog.Logger
}

// NewHub creates a new Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	set, ok := h.clients[c.email]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.email] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if set, ok := h.clients[c.email]; ok {
		if _, ok := set[c]; ok {
			delete(set, c)
			close(c.send)
		}
		if len(set) == 0 {
			delete(h.clients, c.email)
		}
	}
	h.mu.Unlock()
}

// PublishBalance sends the balance to every client watching email.
func (h *Hub) PublishBalance(email string, credits int) {
	data, err := json.Marshal(NewBalanceMessage(email, credits))
	if err != nil {
		h.logger.Error("marshal balance", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients[email] {
		select {
		case c.send <- data:
		default:
			// Client buffer full, drop rather than block the publisher
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}
