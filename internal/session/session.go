// internal/session/session.go
package session

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/tilehearts/internal/game"
	"github.com/jason-s-yu/tilehearts/internal/models"
	"github.com/jason-s-yu/tilehearts/internal/turnlock"
)

// Manager owns the process-wide player sessions, one per identity.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*models.PlayerSession
	locks    *turnlock.Guard
	now      func() time.Time
}

// NewManager returns a manager that purges turn locks through locks during migration.
func NewManager(locks *turnlock.Guard) *Manager {
	return &Manager{
		sessions: make(map[string]*models.PlayerSession),
		locks:    locks,
		now:      time.Now,
	}
}

// GetPlayerSession returns the session for id, creating it on first use. An existing session is
// refreshed: lastSeen is bumped, it is marked active, and non-empty identity fields replace
// the stored ones. created reports whether a new session was made.
func (m *Manager) GetPlayerSession(id models.Identity) (s models.PlayerSession, created bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	existing, ok := m.sessions[id.ID]
	if !ok {
		sid := id.SessionID
		if sid == "" {
			sid = uuid.NewString()
		}
		existing = &models.PlayerSession{
			UserID:        id.ID,
			UserSessionID: sid,
			Name:          id.Name,
			Email:         id.Email,
			CreatedAt:     now,
		}
		m.sessions[id.ID] = existing
		created = true
	}
	if id.Name != "" {
		existing.Name = id.Name
	}
	if id.Email != "" {
		existing.Email = id.Email
	}
	if id.SessionID != "" {
		existing.UserSessionID = id.SessionID
	}
	existing.LastSeen = now
	existing.IsActive = true
	return *existing, created
}

// Get returns the session for userID.
func (m *Manager) Get(userID string) (models.PlayerSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok {
		return models.PlayerSession{}, false
	}
	return *s, true
}

// Restore installs a session loaded from storage unless one is already live.
func (m *Manager) Restore(s models.PlayerSession) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.UserID]; ok {
		return false
	}
	m.sessions[s.UserID] = &s
	return true
}

// UpdatePlayerSocket binds userID's session to socketID.
func (m *Manager) UpdatePlayerSocket(userID, socketID string) (models.PlayerSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok {
		return models.PlayerSession{}, false
	}
	s.CurrentSocketID = socketID
	s.LastSeen = m.now()
	s.IsActive = true
	return *s, true
}

// SetCurrentRoom records which room userID is playing in. An empty code clears it.
func (m *Manager) SetCurrentRoom(userID, code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[userID]; ok {
		s.CurrentRoom = code
	}
}

// MarkDisconnected unbinds socketID from userID's session. It does nothing when the session has
// already been rebound to a newer socket, and reports whether it changed anything.
func (m *Manager) MarkDisconnected(userID, socketID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok || s.CurrentSocketID != socketID {
		return false
	}
	s.CurrentSocketID = ""
	s.LastSeen = m.now()
	return true
}

// IsConnected reports whether userID currently has a bound socket.
func (m *Manager) IsConnected(userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	return ok && s.CurrentSocketID != ""
}

// SweepInactive marks sessions idle for longer than threshold as inactive. Sessions are kept so
// the identity can still reconnect or migrate. Returns the ids that changed.
func (m *Manager) SweepInactive(threshold time.Duration) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.now().Add(-threshold)
	var swept []string
	for id, s := range m.sessions {
		if s.IsActive && s.LastSeen.Before(cutoff) {
			s.IsActive = false
			swept = append(swept, id)
		}
	}
	sort.Strings(swept)
	return swept
}

// List returns a copy of all sessions ordered by user id.
func (m *Manager) List() []models.PlayerSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.PlayerSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// MigratePlayerData moves oldID's in-room state to newID and drops any turn lock oldID holds in
// the room. The old session is marked inactive and the new one inherits its room.
// Assumes room.Mu is held by caller.
func (m *Manager) MigratePlayerData(room *game.Room, oldID, newID, name, email string) error {
	if err := room.MigratePlayer(oldID, newID, name, email); err != nil {
		return err
	}
	if m.locks != nil {
		m.locks.PurgeIdentity(room.Code, oldID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.sessions[oldID]; ok && oldID != newID {
		old.IsActive = false
		old.CurrentRoom = ""
	}
	if s, ok := m.sessions[newID]; ok {
		s.CurrentRoom = room.Code
	}
	return nil
}
