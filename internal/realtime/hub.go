package realtime

import (
	"encoding/json"
	"sync"
	"time"
)

// Event is the wire envelope for every server→client push.
type Event struct {
	Event     string      `json:"event"`
	Data      interface{} `json:"data"`
	Timestamp string      `json:"timestamp"`
}

// Room name helpers. Every connection joins its personal room on handshake;
// topic rooms are opted into per conversation or offer.
func UserRoom(userID string) string     { return "user:" + userID }
func ConversationRoom(id string) string { return "conversation:" + id }
func OfferRoom(offerID string) string   { return "offer:" + offerID }

// Hub is the room-scoped event bus. Publish fans an event out to every
// connection currently in the room. Delivery is at-most-once: a connection
// that is absent, or whose send buffer is full, simply misses the event.
// Durable state lives in the notifications table, not here.
type Hub struct {
	mu       sync.RWMutex
	rooms    map[string]map[*Client]struct{}
	presence *Registry
}

func NewHub(presence *Registry) *Hub {
	return &Hub{
		rooms:    make(map[string]map[*Client]struct{}),
		presence: presence,
	}
}

func (h *Hub) Presence() *Registry { return h.presence }

func (h *Hub) Join(room string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.rooms[room]
	if !ok {
		set = make(map[*Client]struct{})
		h.rooms[room] = set
	}
	set[c] = struct{}{}
	c.joined[room] = struct{}{}
}

func (h *Hub) Leave(room string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(room, c)
}

func (h *Hub) leaveLocked(room string, c *Client) {
	if set, ok := h.rooms[room]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(c.joined, room)
}

// LeaveAll drops the connection from every room it joined. Called on
// disconnect.
func (h *Hub) LeaveAll(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for room := range c.joined {
		h.leaveLocked(room, c)
	}
}

// RoomSize reports current membership, mostly for tests and stats.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Publish sends an event to every member of a room. The payload is marshalled
// once; each connection's single writer goroutine preserves publish order for
// any one publisher within the room.
func (h *Hub) Publish(room, event string, data interface{}) {
	payload, err := json.Marshal(Event{
		Event:     event,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[room] {
		c.enqueue(payload)
	}
}

// PublishUser pushes to the identity's personal room.
func (h *Hub) PublishUser(userID, event string, data interface{}) {
	h.Publish(UserRoom(userID), event, data)
}
