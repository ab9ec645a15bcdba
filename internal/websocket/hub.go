// internal/websocket/hub.go
package websocket

import (
	"context"
	"sync"

	wstypes "swiftel-client/internal/domain/websocket"

	"go.uber.org/zap"
)

// Hub fans shell events out to the local UI tabs connected on /ws.
type Hub struct {
	clients map[*Client]bool
	mu      sync.RWMutex

	// Registration/unregistration
	Register   chan *Client
	unregister chan *Client

	broadcast chan *wstypes.WSMessage

	// snapshot feeds the welcome message of new clients
	snapshot func() wstypes.SessionEventData
	logger   *zap.Logger
}

func NewHub(snapshot func() wstypes.SessionEventData, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	if snapshot == nil {
		snapshot = func() wstypes.SessionEventData { return wstypes.SessionEventData{} }
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		Register:   make(chan *Client),
		unregister: make(chan *Client, 16),
		broadcast:  make(chan *wstypes.WSMessage, 256),
		snapshot:   snapshot,
		logger:     logger,
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.broadcast:
			h.BroadcastMessage(msg)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug("ui client connected", zap.Int("total", total))

	client.SendMessage(wstypes.NewMessage(wstypes.EventTypeConnected, h.snapshot()))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
	}
	total := len(h.clients)
	h.mu.Unlock()

	if ok {
		client.Close()
		h.logger.Debug("ui client disconnected", zap.Int("total", total))
	}
}

// BroadcastMessage delivers msg to every connected client right away.
func (h *Hub) BroadcastMessage(msg *wstypes.WSMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		client.SendMessage(msg)
	}
}

// publish queues msg for the Run loop. It never blocks; when the queue is
// full the event is dropped since the next one supersedes it anyway.
func (h *Hub) publish(msg *wstypes.WSMessage) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("hub queue full, dropping event", zap.String("type", string(msg.Type)))
	}
}

// NotificationsChanged tells the UI to refetch its notification list.
func (h *Hub) NotificationsChanged() {
	h.publish(wstypes.NewMessage(wstypes.EventTypeNotificationsRefetch, nil))
}

// SessionChanged tells the UI the user logged in or out.
func (h *Hub) SessionChanged(data wstypes.SessionEventData) {
	h.publish(wstypes.NewMessage(wstypes.EventTypeSessionChanged, data))
}

func (h *Hub) TotalClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		client.Close()
		delete(h.clients, client)
	}
}
