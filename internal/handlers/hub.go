// internal/handlers/hub.go
package handlers

import (
	"encoding/json"
	"sync"

	"github.com/jason-s-yu/tilehearts/internal/coordinator"
	"github.com/sirupsen/logrus"
)

// outBufferSize bounds how many messages may queue for a slow client before drops.
const outBufferSize = 32

// Client is one websocket connection.
type Client struct {
	SocketID string
	UserID   string

	out chan []byte
}

func newClient(socketID, userID string) *Client {
	return &Client{SocketID: socketID, UserID: userID, out: make(chan []byte, outBufferSize)}
}

// Hub tracks which connections are subscribed to which room and fans events out to them.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
	log   *logrus.Logger
}

func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{rooms: make(map[string]map[*Client]struct{}), log: logger}
}

// Join subscribes c to room events for code.
func (h *Hub) Join(code string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[code]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[code] = members
	}
	members[c] = struct{}{}
}

// Leave unsubscribes c from code.
func (h *Hub) Leave(code string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(code, c)
}

func (h *Hub) leaveLocked(code string, c *Client) {
	members, ok := h.rooms[code]
	if !ok {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(h.rooms, code)
	}
}

// Remove unsubscribes c from every room. Called when the connection closes.
func (h *Hub) Remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for code := range h.rooms {
		h.leaveLocked(code, c)
	}
}

// Members returns how many connections are subscribed to code.
func (h *Hub) Members(code string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[code])
}

// Deliver sends ev to its audience: the originator alone or every subscriber of the room.
func (h *Hub) Deliver(origin *Client, ev coordinator.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.log.WithError(err).WithField("type", ev.Type).Error("failed to marshal event")
		return
	}
	if ev.Audience == coordinator.ToOriginator {
		if origin != nil {
			h.send(origin, ev.Type, data)
		}
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.rooms[ev.RoomCode]))
	for c := range h.rooms[ev.RoomCode] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.send(c, ev.Type, data)
	}
}

// send pushes data onto the client's queue without blocking. A full queue drops the message.
func (h *Hub) send(c *Client, eventType string, data []byte) {
	select {
	case c.out <- data:
	default:
		h.log.WithFields(logrus.Fields{"socket": c.SocketID, "type": eventType}).Warn("client queue full, dropped message")
	}
}
