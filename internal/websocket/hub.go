package websocket

import (
	"log/slog"
	"sync"

	"github.com/snapstory/snapstory-service/internal/types"
)

// Hub maintains the set of connected clients, keyed by user ID, and
// delivers story events to them. One connection per user: a new
// connection for the same user replaces the old one.
type Hub struct {
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client
	broadcast  chan *userEvent

	mu sync.RWMutex
}

type userEvent struct {
	userID string
	event  *types.Event
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *userEvent, 64),
	}
}

// Run is the hub's main loop. It owns the clients map; call it once, in
// its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if existing, ok := h.clients[client.userID]; ok {
				close(existing.send)
				slog.Info("Replaced existing WebSocket connection", slog.String("user_id", client.userID))
			}
			h.clients[client.userID] = client
			h.mu.Unlock()
			slog.Info("WebSocket client connected", slog.String("user_id", client.userID))

		case client := <-h.unregister:
			h.mu.Lock()
			if current, ok := h.clients[client.userID]; ok && current == client {
				delete(h.clients, client.userID)
				close(client.send)
				slog.Info("WebSocket client disconnected", slog.String("user_id", client.userID))
			}
			h.mu.Unlock()

		case ue := <-h.broadcast:
			h.deliver(ue.userID, ue.event)
		}
	}
}

// RegisterClient registers a new client
func (h *Hub) RegisterClient(client *Client) {
	h.register <- client
}

// UnregisterClient unregisters a client
func (h *Hub) UnregisterClient(client *Client) {
	h.unregister <- client
}

// BroadcastToUser sends an event to a specific user, dropping it if the
// hub is backed up.
func (h *Hub) BroadcastToUser(userID string, event *types.Event) {
	select {
	case h.broadcast <- &userEvent{userID: userID, event: event}:
	default:
		slog.Warn("Broadcast channel is full, dropping event",
			slog.String("user_id", userID), slog.String("type", string(event.Type)))
	}
}

func (h *Hub) deliver(userID string, event *types.Event) {
	h.mu.RLock()
	client, ok := h.clients[userID]
	h.mu.RUnlock()

	if !ok {
		return
	}

	if err := client.SendEvent(event); err != nil {
		slog.Error("Failed to send event to client",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
		go func(c *Client) {
			h.unregister <- c
		}(client)
	}
}

// IsUserConnected checks if a user is currently connected
func (h *Hub) IsUserConnected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, exists := h.clients[userID]
	return exists
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}
