package websocket

import (
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/lorrc/vendor-performance/internal/core/domain"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 1024

	// Outbound events buffered per client.
	sendBufferSize = 256
)

// Client message types.
const (
	MessageSubscribe   = "SUBSCRIBE_TO_VENDOR"
	MessageUnsubscribe = "UNSUBSCRIBE_FROM_VENDOR"
	MessagePing        = "PING"
)

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	Hub *Hub

	// The websocket connection.
	Conn *websocket.Conn

	// Buffered channel of outbound messages.
	Send chan domain.Event

	// ID identifies this connection.
	ID string

	// Subject is the API client that opened the connection.
	Subject string

	// subscriptions holds the vendor rooms this client joined.
	subscriptions map[string]bool

	pongWait   time.Duration
	pingPeriod time.Duration

	// sendMu guards Send against use after close
	sendMu sync.Mutex
	closed bool

	// mu protects subscriptions
	mu sync.RWMutex

	logger *slog.Logger
}

// NewClient creates a new WebSocket client. pongWait bounds how long the
// client may stay silent; pings are sent at 9/10 of it.
func NewClient(hub *Hub, conn *websocket.Conn, subject string, pongWait time.Duration, logger *slog.Logger) *Client {
	if pongWait <= 0 {
		pongWait = 60 * time.Second
	}
	id := uuid.NewString()
	return &Client{
		Hub:           hub,
		Conn:          conn,
		Send:          make(chan domain.Event, sendBufferSize),
		ID:            id,
		Subject:       subject,
		subscriptions: make(map[string]bool),
		pongWait:      pongWait,
		pingPeriod:    (pongWait * 9) / 10,
		logger:        logger.With("client_id", id, "subject", subject),
	}
}

// CloseSend closes the Send channel. Later calls are no-ops.
func (c *Client) CloseSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

// enqueue offers event to the Send buffer without blocking. It reports false
// only when the buffer is full; events for a closed client are discarded.
func (c *Client) enqueue(event domain.Event) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.Send <- event:
		return true
	default:
		return false
	}
}

func (c *Client) addSubscription(vendor string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscriptions[vendor] = true
}

func (c *Client) removeSubscription(vendor string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subscriptions, vendor)
}

// IsSubscribed reports whether the client joined the vendor's room
func (c *Client) IsSubscribed(vendor string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subscriptions[vendor]
}

// Subscriptions returns a copy of the joined vendor rooms
func (c *Client) Subscriptions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	subs := make([]string, 0, len(c.subscriptions))
	for vendor := range c.subscriptions {
		subs = append(subs, vendor)
	}
	return subs
}

// ReadPump pumps messages from the websocket connection to the hub.
// This method runs in its own goroutine.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.leave(c)
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	if err := c.Conn.SetReadDeadline(time.Now().Add(c.pongWait)); err != nil {
		c.logger.Error("failed to set read deadline", "error", err)
		return
	}

	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(c.pongWait))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", "error", err)
			}
			break
		}

		c.handleIncomingMessage(message)
	}
}

// WritePump pumps messages from the hub to the websocket connection.
// This method runs in its own goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.Send:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline", "error", err)
				return
			}

			if !ok {
				// The hub closed the channel.
				if err := c.Conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					c.logger.Debug("failed to send close message", "error", err)
				}
				return
			}

			if err := c.Conn.WriteJSON(event); err != nil {
				c.logger.Error("failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline for ping", "error", err)
				return
			}

			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("failed to send ping", "error", err)
				return
			}
		}
	}
}

// --- Incoming Message Handling ---

// ClientMessage is the structure for messages sent from the client.
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// SubscribePayload is the payload for subscribe/unsubscribe messages
type SubscribePayload struct {
	Vendor string `json:"vendor"`
}

// handleIncomingMessage processes messages received from the client
func (c *Client) handleIncomingMessage(message []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.logger.Warn("failed to unmarshal client message", "error", err)
		return
	}

	switch msg.Type {
	case MessageSubscribe:
		if vendor, ok := c.vendorFrom(msg.Payload); ok {
			c.Hub.subscribe(c, vendor)
		}

	case MessageUnsubscribe:
		if vendor, ok := c.vendorFrom(msg.Payload); ok {
			c.Hub.unsubscribe(c, vendor)
		}

	case MessagePing:
		c.sendPong()

	default:
		c.logger.Debug("received unknown message type", "type", msg.Type)
	}
}

func (c *Client) vendorFrom(payload json.RawMessage) (string, bool) {
	var p SubscribePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.logger.Warn("failed to unmarshal subscribe payload", "error", err)
		return "", false
	}

	vendor := strings.ToLower(strings.TrimSpace(p.Vendor))
	if vendor == "" {
		c.logger.Warn("subscribe request without vendor")
		return "", false
	}
	return vendor, true
}

func (c *Client) sendPong() {
	if !c.enqueue(domain.Event{Type: domain.EventPong}) {
		c.logger.Debug("send buffer full, skipping pong")
	}
}
