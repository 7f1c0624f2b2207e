package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// CountsHandler pushes every status change to WebSocket clients as JSON.
type CountsHandler struct {
	broadcaster *Broadcaster
	logger      *slog.Logger
	clients     map[*websocket.Conn]bool
	mu          sync.RWMutex
	done        chan struct{}
	closeOnce   sync.Once
}

// NewCountsHandler creates a CountsHandler and starts its broadcast loop.
func NewCountsHandler(b *Broadcaster, logger *slog.Logger) *CountsHandler {
	h := &CountsHandler{
		broadcaster: b,
		logger:      logger,
		clients:     make(map[*websocket.Conn]bool),
		done:        make(chan struct{}),
	}
	go h.broadcast()
	return h
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *CountsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	// The connection is not registered yet, so this write cannot race the
	// broadcast loop.
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(h.broadcaster.Status()); err != nil {
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Clients returns the number of connected clients.
func (h *CountsHandler) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close stops the broadcast loop.
func (h *CountsHandler) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// broadcast sends the latest status to all connected clients. It is the only
// writer on every connection.
func (h *CountsHandler) broadcast() {
	updates, cancel := h.broadcaster.Subscribe()
	defer cancel()

	var last Status
	for {
		select {
		case <-h.done:
			return
		case <-updates:
		}

		status := h.broadcaster.Status()
		if sameCount(status, last) {
			continue
		}
		last = status

		msg, err := json.Marshal(status)
		if err != nil {
			continue
		}

		h.mu.RLock()
		for conn := range h.clients {
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.logger.Debug("websocket write failed", "error", err)
			}
		}
		h.mu.RUnlock()
	}
}

// sameCount reports whether two statuses show the same thing to a viewer.
func sameCount(a, b Status) bool {
	return a.State == b.State && a.Hand == b.Hand && a.Fingers == b.Fingers && a.Session == b.Session
}
