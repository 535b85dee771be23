package websocket

import (
	"context"
	"time"

	ws "github.com/coder/websocket"
)

const (
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
)

// Client is one WebSocket connection watching a single email's balance.
type Client struct {
	hub   *Hub
	conn  *ws.Conn
	email string
	send  chan []byte
}

// NewClient creates a Client tied to the given hub and connection.
func NewClient(hub *Hub, conn *ws.Conn, email string) *Client {
	return &Client{
		hub:   hub,
		conn:  conn,
		email: email,
		send:  make(chan []byte, sendBufferSize),
	}
}

// Run registers the client, queues initial, starts the write pump, and runs
// the read pump. It blocks until the connection is closed, then unregisters.
func (c *Client) Run(ctx context.Context, initial []byte) {
	c.hub.Register(c)
	defer c.hub.Unregister(c)

	if initial != nil {
		c.send <- initial
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go c.writePump(ctx)
	c.readPump(ctx)
}

// readPump discards incoming messages and returns when the connection closes.
func (c *Client) readPump(ctx context.Context) {
	for {
		_, _, err := c.conn.Read(ctx)
		if err != nil {
			return
		}
	}
}

// writePump drains the send channel and pings periodically.
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.Write(ctx, ws.MessageText, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.Ping(ctx); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
