package websocket

import (
	"log"
	"sync"

	"github.com/google/uuid"
)

// Conn is the slice of a live connection the hub needs. The gateway hands in
// *websocket.Conn; tests hand in fakes.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// Hub is the presence registry: it tracks which users currently have live,
// routable connections. A user is reachable iff at least one handle is bound.
// Nothing here is persisted; handles live and die with their connections.
type Hub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID][]Conn
}

func NewHub() *Hub {
	return &Hub{clients: make(map[uuid.UUID][]Conn)}
}

func (h *Hub) Bind(userID uuid.UUID, conn Conn) {
	log.Printf("Client registered: %s", userID)
	h.mu.Lock()
	h.clients[userID] = append(h.clients[userID], conn)
	h.mu.Unlock()
}

// Unbind removes one handle. Removing a handle that was already evicted is a
// no-op, so the gateway can defer it unconditionally on every close path.
func (h *Hub) Unbind(userID uuid.UUID, conn Conn) {
	log.Printf("Client unregistered: %s", userID)
	h.mu.Lock()
	defer h.mu.Unlock()

	handles := h.clients[userID]
	for i, c := range handles {
		if c == conn {
			h.clients[userID] = append(handles[:i], handles[i+1:]...)
			break
		}
	}
	if len(h.clients[userID]) == 0 {
		delete(h.clients, userID)
	}
}

func (h *Hub) IsReachable(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

// RouteTo writes event to every handle bound for userID and returns how many
// writes succeeded. Handles that fail to write are closed and evicted. Zero
// handles is a no-op returning 0.
func (h *Hub) RouteTo(userID uuid.UUID, event interface{}) int {
	h.mu.RLock()
	handles := make([]Conn, len(h.clients[userID]))
	copy(handles, h.clients[userID])
	h.mu.RUnlock()

	routed := 0
	for _, conn := range handles {
		if err := conn.WriteJSON(event); err != nil {
			log.Printf("Error routing event to client %s: %v", userID, err)
			conn.Close()
			h.Unbind(userID, conn)
			continue
		}
		routed++
	}
	return routed
}
