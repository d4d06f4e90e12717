// internal/storage/memory.go
package storage

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/jason-s-yu/tilehearts/internal/game"
	"github.com/jason-s-yu/tilehearts/internal/models"
)

// Memory is an in-process Store. Rooms are kept as JSON so that reads never alias live state.
type Memory struct {
	mu       sync.RWMutex
	rooms    map[string][]byte
	sessions map[string]models.PlayerSession
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		rooms:    make(map[string][]byte),
		sessions: make(map[string]models.PlayerSession),
	}
}

var _ Store = (*Memory)(nil)

func (m *Memory) FindRoom(_ context.Context, code string) (*game.RoomSnapshot, error) {
	m.mu.RLock()
	data, ok := m.rooms[code]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	var snap game.RoomSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (m *Memory) UpsertRoom(_ context.Context, room game.RoomSnapshot) error {
	data, err := json.Marshal(room)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[room.Code] = data
	return nil
}

func (m *Memory) DeleteRoom(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms, code)
	return nil
}

func (m *Memory) FindSession(_ context.Context, userID string) (*models.PlayerSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *Memory) UpsertSession(_ context.Context, s models.PlayerSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.UserID] = s
	return nil
}

func (m *Memory) DeleteSession(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
	return nil
}
