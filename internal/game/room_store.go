// internal/game/room_store.go
package game

import (
	"sort"
	"sync"
)

// RoomStore holds the live rooms of the process, keyed by normalized code.
type RoomStore struct {
	mu    sync.Mutex
	rooms map[string]*Room
}

// NewRoomStore returns an empty in-memory store.
func NewRoomStore() *RoomStore {
	return &RoomStore{
		rooms: make(map[string]*Room),
	}
}

func (s *RoomStore) GetRoom(code string) (*Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, exists := s.rooms[code]
	return r, exists
}

// GetOrAdd returns the room stored under room.Code, storing room first if there is none.
// loaded is true when an existing room was returned.
func (s *RoomStore) GetOrAdd(room *Room) (actual *Room, loaded bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, exists := s.rooms[room.Code]; exists {
		return r, true
	}
	s.rooms[room.Code] = room
	return room, false
}

func (s *RoomStore) DeleteRoom(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, code)
}

// ListRooms returns the live rooms ordered by code.
func (s *RoomStore) ListRooms() []*Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Len returns the number of live rooms.
func (s *RoomStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}
