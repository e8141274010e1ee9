package websocket

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
)

var (
	ErrClientClosed = errors.New("client is closed")
	ErrClientSlow   = errors.New("client send queue is full")
)

// Subscriber is a connection the hub can deliver workspace events to
type Subscriber interface {
	ID() string
	WorkspaceID() int32
	Wants(event Event) bool
	Send(event Event) error
	Close() error
}

// Hub routes loan, installment and summary events to the subscribers of a
// workspace. It is safe for concurrent use.
type Hub struct {
	mu sync.RWMutex
	// workspace ID -> subscriber ID -> subscriber
	rooms map[int32]map[string]Subscriber
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[int32]map[string]Subscriber)}
}

// Register adds a subscriber to its workspace room
func (h *Hub) Register(s Subscriber) {
	h.mu.Lock()
	room, ok := h.rooms[s.WorkspaceID()]
	if !ok {
		room = make(map[string]Subscriber)
		h.rooms[s.WorkspaceID()] = room
	}
	room[s.ID()] = s
	h.mu.Unlock()

	log.Debug().Int32("workspace_id", s.WorkspaceID()).Str("client_id", s.ID()).Msg("WebSocket client registered")
}

// Unregister removes a subscriber; unknown subscribers are ignored
func (h *Hub) Unregister(s Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room := h.rooms[s.WorkspaceID()]
	if _, ok := room[s.ID()]; !ok {
		return
	}
	delete(room, s.ID())
	if len(room) == 0 {
		delete(h.rooms, s.WorkspaceID())
	}
	log.Debug().Int32("workspace_id", s.WorkspaceID()).Str("client_id", s.ID()).Msg("WebSocket client unregistered")
}

func (h *Hub) members(workspaceID int32) []Subscriber {
	h.mu.RLock()
	defer h.mu.RUnlock()

	room := h.rooms[workspaceID]
	out := make([]Subscriber, 0, len(room))
	for _, s := range room {
		out = append(out, s)
	}
	return out
}

// Broadcast stamps the event with the workspace and delivers it to every
// subscriber of that workspace whose subscription accepts it. It returns how
// many subscribers took the event.
func (h *Hub) Broadcast(workspaceID int32, event Event) int {
	event.WorkspaceID = workspaceID

	delivered := 0
	for _, s := range h.members(workspaceID) {
		if !s.Wants(event) {
			continue
		}
		if err := s.Send(event); err != nil {
			log.Warn().
				Err(err).
				Int32("workspace_id", workspaceID).
				Str("client_id", s.ID()).
				Str("event_type", event.Type).
				Msg("Failed to send to client")
			continue
		}
		delivered++
	}

	log.Debug().
		Int32("workspace_id", workspaceID).
		Str("event_type", event.Type).
		Int("delivered", delivered).
		Msg("Broadcast event")
	return delivered
}

// ClientCount returns the number of subscribers connected to a workspace
func (h *Hub) ClientCount(workspaceID int32) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[workspaceID])
}

// TotalClientCount returns the number of connected subscribers across all workspaces
func (h *Hub) TotalClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, room := range h.rooms {
		total += len(room)
	}
	return total
}

// CloseAll disconnects every subscriber, used on server shutdown
func (h *Hub) CloseAll() {
	h.mu.Lock()
	rooms := h.rooms
	h.rooms = make(map[int32]map[string]Subscriber)
	h.mu.Unlock()

	n := 0
	for _, room := range rooms {
		for _, s := range room {
			if err := s.Close(); err != nil {
				log.Debug().Err(err).Str("client_id", s.ID()).Msg("WebSocket close on shutdown")
			}
			n++
		}
	}
	log.Info().Int("client_count", n).Msg("WebSocket hub closed")
}
