package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/barpos/api/internal/notify"
)

// targetedEvent routes an event to either a single user's connections
// or every connection held by a role group.
type targetedEvent struct {
	userID uuid.UUID
	role   string
	event  notify.Event
}

// Hub maintains the set of active clients. Each client sits in a
// per-user room and in one room per role it holds, so a void approval
// can reach the requesting waiter while a new request fans out to all
// connected managers.
type Hub struct {
	userRooms map[uuid.UUID]map[*Client]bool
	roleRooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan targetedEvent

	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		userRooms:  make(map[uuid.UUID]map[*Client]bool),
		roleRooms:  make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan targetedEvent, 256),
	}
}

// Run starts the hub's main loop.
// This should be called as a goroutine: go hub.Run()
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.userRooms[client.userID] == nil {
				h.userRooms[client.userID] = make(map[*Client]bool)
			}
			h.userRooms[client.userID][client] = true
			for _, role := range client.roles {
				if h.roleRooms[role] == nil {
					h.roleRooms[role] = make(map[*Client]bool)
				}
				h.roleRooms[role][client] = true
			}
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.userRooms[client.userID][client]; ok {
				h.drop(client)
			}
			h.mu.Unlock()

		case te := <-h.broadcast:
			h.mu.Lock()
			var clients map[*Client]bool
			if te.role != "" {
				clients = h.roleRooms[te.role]
			} else {
				clients = h.userRooms[te.userID]
			}

			message, err := json.Marshal(te.event)
			if err != nil {
				h.mu.Unlock()
				log.Printf("ERROR: marshal ws event %s: %v", te.event.Type, err)
				continue
			}

			for client := range clients {
				select {
				case client.send <- message:
				default:
					// Send buffer full, the client is too slow to keep.
					h.drop(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// drop removes the client from every room. Caller holds h.mu.
func (h *Hub) drop(client *Client) {
	delete(h.userRooms[client.userID], client)
	if len(h.userRooms[client.userID]) == 0 {
		delete(h.userRooms, client.userID)
	}
	for _, role := range client.roles {
		delete(h.roleRooms[role], client)
		if len(h.roleRooms[role]) == 0 {
			delete(h.roleRooms, role)
		}
	}
	close(client.send)
}

// NotifyUser sends an event to all connections belonging to one user.
func (h *Hub) NotifyUser(ctx context.Context, userID string, event notify.Event) {
	id, err := uuid.Parse(userID)
	if err != nil {
		log.Printf("ERROR: notify user %q: %v", userID, err)
		return
	}
	h.broadcast <- targetedEvent{userID: id, event: event}
}

// NotifyRole sends an event to every connection held by users with the role.
func (h *Hub) NotifyRole(ctx context.Context, role string, event notify.Event) {
	h.broadcast <- targetedEvent{role: role, event: event}
}
