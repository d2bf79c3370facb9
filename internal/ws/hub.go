// Package ws pushes live chat snapshots to WebSocket clients
package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/wingmentor/wingmentor-api/pkg/logger"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

const (
	writeTimeout = 10 * time.Second
	pingInterval = 25 * time.Second
	pingTimeout  = 5 * time.Second
	sendBuffer   = 8
)

// Conn is the part of *websocket.Conn the hub writes to
type Conn interface {
	Write(ctx context.Context, typ websocket.MessageType, p []byte) error
	Ping(ctx context.Context) error
	Close(code websocket.StatusCode, reason string) error
}

// Client is one connection of a user to one chat
type Client struct {
	UserID string
	ChatID string

	conn   Conn
	send   chan any
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
	status websocket.StatusCode
	reason string
}

// Done is closed when the client is removed or its connection fails
func (c *Client) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Push queues a payload. Every payload is a full snapshot, so when the
// client falls behind the oldest queued one is dropped.
func (c *Client) Push(payload any) {
	for {
		select {
		case <-c.ctx.Done():
			return
		case c.send <- payload:
			return
		default:
		}
		select {
		case <-c.send:
		default:
		}
	}
}

func (c *Client) stop(code websocket.StatusCode, reason string) {
	c.once.Do(func() {
		c.status, c.reason = code, reason
		c.cancel()
	})
}

func (c *Client) writeLoop() {
	defer func() {
		_ = c.conn.Close(c.status, c.reason)
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case payload := <-c.send:
			data, err := json.Marshal(payload)
			if err != nil {
				logger.Error("Failed to encode websocket payload", zap.Error(err), zap.String("chat_id", c.ChatID))
				continue
			}
			writeCtx, cancel := context.WithTimeout(c.ctx, writeTimeout)
			err = c.conn.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Debug("Websocket write failed", zap.Error(err), zap.String("uid", c.UserID))
				c.stop(websocket.StatusInternalError, "write failed")
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(c.ctx, pingTimeout)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				c.stop(websocket.StatusGoingAway, "ping failed")
				return
			}
		}
	}
}

// Hub tracks the open connections per user
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{clients: make(map[string]map[*Client]struct{})}
}

// Register starts the write loop of a new connection
func (h *Hub) Register(userID, chatID string, conn Conn) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		UserID: userID,
		ChatID: chatID,
		conn:   conn,
		send:   make(chan any, sendBuffer),
		ctx:    ctx,
		cancel: cancel,
		status: websocket.StatusNormalClosure,
		reason: "bye",
	}

	h.mu.Lock()
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*Client]struct{})
	}
	h.clients[userID][c] = struct{}{}
	h.mu.Unlock()

	go c.writeLoop()
	return c
}

// Remove stops the client and closes its connection
func (h *Hub) Remove(c *Client) {
	c.stop(websocket.StatusNormalClosure, "bye")

	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.clients[c.UserID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.UserID)
		}
	}
}

// CloseUser ends every connection of userID, used on sign-out
func (h *Hub) CloseUser(userID, reason string) int {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients[userID]))
	for c := range h.clients[userID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.stop(websocket.StatusPolicyViolation, reason)
	}
	return len(clients)
}

// Connections returns the number of open connections of userID
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// CloseAll ends every connection, used on shutdown
func (h *Hub) CloseAll() {
	h.mu.RLock()
	var clients []*Client
	for _, set := range h.clients {
		for c := range set {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.stop(websocket.StatusGoingAway, "server shutting down")
	}
}
