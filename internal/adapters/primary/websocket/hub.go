package websocket

import (
	"context"
	"log/slog"
	"sync"

	"github.com/lorrc/vendor-performance/internal/core/domain"
	"github.com/lorrc/vendor-performance/internal/core/ports"
	"github.com/lorrc/vendor-performance/internal/infrastructure/metrics"
)

// Hub maintains the set of active Clients and routes events to vendor rooms.
type Hub struct {
	clients map[*Client]bool

	// rooms maps vendor tags to subscribed clients
	rooms map[string]map[*Client]bool

	// Broadcast channel for events
	broadcast chan domain.Event

	// Register requests from clients
	Register chan *Client

	// Unregister requests from clients
	Unregister chan *Client

	// done is closed once Run has returned
	done chan struct{}

	// mu protects the clients and rooms maps
	mu sync.RWMutex

	logger *slog.Logger
}

// Ensure Hub implements the EventBroadcaster interface.
var _ ports.EventBroadcaster = (*Hub)(nil)

// NewHub creates a new WebSocket hub
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		broadcast:  make(chan domain.Event, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger.With("component", "websocket_hub"),
	}
}

// Broadcast queues an event for the vendor room named in event.Vendor.
// Events are dropped when the queue is full.
func (h *Hub) Broadcast(event domain.Event) error {
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("broadcast channel full, dropping event",
			"event_type", event.Type,
			"vendor", event.Vendor,
		)
	}
	return nil
}

// Run starts the hub's event loop until ctx is cancelled, then closes
// every client. Run it in its own goroutine.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			close(h.done)
			return

		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.Unregister:
			h.unregisterClient(client)

		case event := <-h.broadcast:
			h.broadcastEvent(event)
		}
	}
}

// Join registers client with the running hub. It reports false when the
// hub has already stopped.
func (h *Hub) Join(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.done:
		return false
	}
}

// leave unregisters client, returning immediately if the hub has stopped.
func (h *Hub) leave(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true
	metrics.WebSocketConnections.Inc()

	h.logger.Info("client registered",
		"client_id", client.ID,
		"subject", client.Subject,
		"total_connections", len(h.clients),
	)
}

// unregisterClient removes a client from the hub and all rooms. Repeated
// calls for the same client are no-ops.
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.clients[client] {
		return
	}
	delete(h.clients, client)
	metrics.WebSocketConnections.Dec()

	for _, vendor := range client.Subscriptions() {
		h.leaveRoom(client, vendor)
	}

	client.CloseSend()

	h.logger.Info("client unregistered", "client_id", client.ID)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.Unlock()

	for _, client := range clients {
		h.unregisterClient(client)
	}
}

// broadcastEvent sends an event to all clients in the event's vendor room
func (h *Hub) broadcastEvent(event domain.Event) {
	h.mu.RLock()
	room, ok := h.rooms[event.Vendor]
	if !ok {
		h.mu.RUnlock()
		return
	}

	// Copy the client list to avoid holding the lock while sending
	clients := make([]*Client, 0, len(room))
	for client := range room {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	h.logger.Debug("broadcasting event",
		"event_type", event.Type,
		"vendor", event.Vendor,
		"client_count", len(clients),
	)

	for _, client := range clients {
		if !client.enqueue(event) {
			h.logger.Warn("client send buffer full, unregistering", "client_id", client.ID)
			h.unregisterClient(client)
		}
	}
}

// subscribe adds a registered client to the vendor's room. Clients that
// were already unregistered are ignored.
func (h *Hub) subscribe(client *Client, vendor string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.clients[client] {
		return
	}

	if h.rooms[vendor] == nil {
		h.rooms[vendor] = make(map[*Client]bool)
	}
	h.rooms[vendor][client] = true
	client.addSubscription(vendor)

	h.logger.Debug("client subscribed to vendor",
		"client_id", client.ID,
		"vendor", vendor,
	)
}

func (h *Hub) unsubscribe(client *Client, vendor string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.leaveRoom(client, vendor)
}

// leaveRoom must be called with mu held.
func (h *Hub) leaveRoom(client *Client, vendor string) {
	if room, ok := h.rooms[vendor]; ok {
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, vendor)
		}
	}
	client.removeSubscription(vendor)
}

// ClientCount returns the total number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ClientsInRoom returns the number of clients subscribed to a vendor
func (h *Hub) ClientsInRoom(vendor string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[vendor])
}
