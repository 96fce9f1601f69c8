package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"notify-gateway/internal/models"
)

const (
	maxConnsPerToken = 10
	sendBuffer       = 16
	writeWait        = 10 * time.Second
)

// Conn is the part of *websocket.Conn the hub writes to.
type Conn interface {
	WriteJSON(v any) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

var _ Conn = (*websocket.Conn)(nil)

// StatusUpdate is the message pushed to subscribers.
type StatusUpdate struct {
	NotificationID    string    `json:"notificationId"`
	Channel           string    `json:"channel"`
	Recipient         string    `json:"recipient"`
	Status            string    `json:"status"`
	RetryCount        int       `json:"retryCount"`
	ProviderMessageID string    `json:"providerMessageId,omitempty"`
	Error             string    `json:"error,omitempty"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// client owns one connection's outbound queue. Only its writer goroutine
// touches the connection for writes.
type client struct {
	conn Conn
	send chan any
	done chan struct{}
	once sync.Once
}

func (c *client) stop() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// Hub fans notification status updates out to the websocket connections of
// the access token that created them. Sends never block: a connection whose
// queue is full is dropped.
type Hub struct {
	connections map[string]map[Conn]*client
	mutex       sync.Mutex
	logger      logrus.FieldLogger
}

func NewHub(logger logrus.FieldLogger) *Hub {
	return &Hub{connections: make(map[string]map[Conn]*client), logger: logger}
}

// AddConnection registers conn for tokenID. It returns false when the token
// already holds the maximum number of connections.
func (h *Hub) AddConnection(tokenID string, conn Conn) bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if _, exists := h.connections[tokenID]; !exists {
		h.connections[tokenID] = make(map[Conn]*client)
	}
	if len(h.connections[tokenID]) >= maxConnsPerToken {
		h.logger.Warnf("Max connections reached for token %s", tokenID)
		return false
	}
	c := &client{conn: conn, send: make(chan any, sendBuffer), done: make(chan struct{})}
	h.connections[tokenID][conn] = c
	go h.writeLoop(tokenID, c)
	h.logger.Infof("Added WebSocket connection for token %s (total: %d)", tokenID, len(h.connections[tokenID]))
	return true
}

func (h *Hub) writeLoop(tokenID string, c *client) {
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				h.logger.Errorf("Failed to send WebSocket message to token %s: %v", tokenID, err)
				h.RemoveConnection(tokenID, c.conn)
				return
			}
		}
	}
}

// RemoveConnection unregisters and closes conn.
func (h *Hub) RemoveConnection(tokenID string, conn Conn) {
	h.mutex.Lock()
	c, exists := h.detach(tokenID, conn)
	remaining := len(h.connections[tokenID])
	h.mutex.Unlock()
	if !exists {
		return
	}
	c.stop()
	h.logger.Infof("Removed WebSocket connection for token %s (remaining: %d)", tokenID, remaining)
}

// detach must be called with the mutex held.
func (h *Hub) detach(tokenID string, conn Conn) (*client, bool) {
	conns, exists := h.connections[tokenID]
	if !exists {
		return nil, false
	}
	c, exists := conns[conn]
	if !exists {
		return nil, false
	}
	delete(conns, conn)
	if len(conns) == 0 {
		delete(h.connections, tokenID)
	}
	return c, true
}

// SendToToken queues msg for every connection of tokenID.
func (h *Hub) SendToToken(tokenID string, msg any) {
	h.mutex.Lock()
	clients := make([]*client, 0, len(h.connections[tokenID]))
	for _, c := range h.connections[tokenID] {
		clients = append(clients, c)
	}
	h.mutex.Unlock()

	for _, c := range clients {
		select {
		case c.send <- msg:
		case <-c.done:
		default:
			h.logger.Warnf("WebSocket client of token %s is not keeping up, dropping it", tokenID)
			h.RemoveConnection(tokenID, c.conn)
		}
	}
}

// Count is the number of open connections for tokenID.
func (h *Hub) Count(tokenID string) int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.connections[tokenID])
}

// NotificationUpdated pushes the record's status to its access token's subscribers.
func (h *Hub) NotificationUpdated(_ context.Context, n *models.Notification) {
	if n.AccessTokenID == "" {
		return
	}
	h.SendToToken(n.AccessTokenID, StatusUpdate{
		NotificationID:    n.ID,
		Channel:           n.Channel.String(),
		Recipient:         n.Recipient,
		Status:            string(n.Status),
		RetryCount:        n.RetryCount,
		ProviderMessageID: n.ProviderMessageID,
		Error:             n.ErrorMessage,
		UpdatedAt:         n.UpdatedAt,
	})
}

// CloseAll closes every connection, used on shutdown.
func (h *Hub) CloseAll() {
	h.mutex.Lock()
	var clients []*client
	for tokenID, conns := range h.connections {
		for _, c := range conns {
			clients = append(clients, c)
		}
		delete(h.connections, tokenID)
	}
	h.mutex.Unlock()

	for _, c := range clients {
		c.stop()
	}
}
