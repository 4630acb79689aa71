// internal/websocket/hub.go
package websocket

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// broadcastQueue bounds how many published messages may wait for the Run loop.
// Publish never blocks: when the queue is full the message is dropped.
const broadcastQueue = 16

// Hub maintains the set of subscribers of one push channel and broadcasts
// messages to them. Each channel gets its own Hub and its own Run goroutine.
type Hub struct {
	name       string
	clients    map[*Client]bool
	broadcast  chan []byte  // Channel for messages to broadcast
	register   chan *Client // Channel for registering clients
	unregister chan *Client // Channel for unregistering clients
	done       chan struct{}
	mu         sync.RWMutex
	logger     *zap.Logger
}

func NewHub(name string, logger *zap.Logger) *Hub {
	return &Hub{
		name:       name,
		broadcast:  make(chan []byte, broadcastQueue),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
		logger:     logger.With(zap.String("channel", name)),
	}
}

func (h *Hub) Name() string { return h.name }

func (h *Hub) Run(ctx context.Context) {
	defer h.shutdown()
	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Info("Push client registered",
				zap.String("client_id", client.ID),
				zap.String("remote", client.remote),
			)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				h.logger.Info("Push client unregistered", zap.String("client_id", client.ID))
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					// Client is too slow; drop it rather than stall the channel.
					h.logger.Warn("Push client send buffer full, removing",
						zap.String("client_id", client.ID),
					)
					close(client.Send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	for client := range h.clients {
		close(client.Send)
		delete(h.clients, client)
	}
	h.mu.Unlock()
	close(h.done)
	h.logger.Info("Push channel stopped")
}

// RegisterClient adds a subscriber. It returns false once the hub has stopped.
func (h *Hub) RegisterClient(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// UnregisterClient removes a subscriber; safe to call after the hub has stopped.
func (h *Hub) UnregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish queues a message for every current subscriber without blocking.
// It reports whether the message was accepted.
func (h *Hub) Publish(message []byte) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.broadcast <- message:
		return true
	default:
		h.logger.Warn("Push channel queue full, dropping message")
		return false
	}
}

// ClientCount returns the number of registered subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
