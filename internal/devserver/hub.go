package devserver

import (
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// Hub maintains the active websocket connections per conversation.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*websocket.Conn]string // conn -> user id
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*websocket.Conn]string)}
}

// Add registers a connection in a conversation room.
func (h *Hub) Add(conversationID string, conn *websocket.Conn, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[conversationID]; !ok {
		h.rooms[conversationID] = make(map[*websocket.Conn]string)
	}
	h.rooms[conversationID][conn] = userID
}

// Remove drops a connection from a conversation room.
func (h *Hub) Remove(conversationID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.rooms[conversationID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.rooms, conversationID)
		}
	}
}

// Broadcast writes a frame to every connection in the room.
func (h *Hub) Broadcast(conversationID string, payload []byte) {
	h.broadcast(conversationID, nil, payload)
}

// BroadcastExcept writes a frame to every connection in the room except one,
// used for relays the originator should not receive back.
func (h *Hub) BroadcastExcept(conversationID string, skip *websocket.Conn, payload []byte) {
	h.broadcast(conversationID, skip, payload)
}

func (h *Hub) broadcast(conversationID string, skip *websocket.Conn, payload []byte) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.rooms[conversationID]))
	for conn := range h.rooms[conversationID] {
		if conn != skip {
			conns = append(conns, conn)
		}
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Printf("devserver: websocket write error: %v", err)
			conn.Close()
			h.Remove(conversationID, conn)
		}
	}
}
