package realtime

import (
	"encoding/json"
	"sync"
)

// Client is one live connection. The network conn itself lives in the
// websocket handler; the hub only pushes bytes through it.
type Client interface {
	Send(message []byte) bool
	Close()
}

// Hub tracks connected clients per user and fans events out to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[Client]struct{}),
	}
}

func (h *Hub) Register(userID string, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[userID]; !ok {
		h.clients[userID] = make(map[Client]struct{})
	}
	h.clients[userID][client] = struct{}{}
}

func (h *Hub) Unregister(userID string, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.clients[userID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.clients, userID)
		}
	}
}

// Broadcast sends a message to every connection of one user. Failed
// writes are left for the connection's own reader loop to clean up.
func (h *Hub) Broadcast(userID string, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[userID] {
		client.Send(message)
	}
}

// BroadcastAll sends a message to every connected client.
func (h *Hub) BroadcastAll(message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, clients := range h.clients {
		for client := range clients {
			client.Send(message)
		}
	}
}

// BroadcastJSON marshals the payload once and sends it to one user.
func (h *Hub) BroadcastJSON(userID string, payload any) error {
	message, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	h.Broadcast(userID, message)
	return nil
}

// Connections reports how many connections a user currently holds.
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// TotalConnections reports the connection count across all users.
func (h *Hub) TotalConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, clients := range h.clients {
		total += len(clients)
	}
	return total
}
