// Package server exposes the decoder as a network monitor: clients stream
// raw audio over a WebSocket and every connected client receives decode
// events as JSON.
package server

import (
	"encoding/json"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

// Event is one broadcast message.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// SyncPayload reports an accepted preamble.
type SyncPayload struct {
	CFORad float64 `json:"cfoRad"`
}

// DecodePayload reports a fetched frame.
type DecodePayload struct {
	Data  []byte `json:"data"` // base64 over the wire
	Flips int    `json:"flips"`
}

// Hub fans events out to all connected WebSocket clients.
type Hub struct {
	clients map[*websocket.Conn]bool
	mu      sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]bool)}
}

// Add registers a connection.
func (h *Hub) Add(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = true
	log.Info("monitor client connected", "total", len(h.clients))
}

// Remove drops and closes a connection.
func (h *Hub) Remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[conn]; !ok {
		return
	}
	delete(h.clients, conn)
	conn.Close()
	log.Info("monitor client disconnected", "remaining", len(h.clients))
}

// Broadcast sends an event to every client; broken clients are dropped.
func (h *Hub) Broadcast(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Error("marshal event", "err", err)
		return
	}

	h.mu.RLock()
	var broken []*websocket.Conn
	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			broken = append(broken, conn)
		}
	}
	h.mu.RUnlock()

	for _, conn := range broken {
		h.Remove(conn)
	}
}
