// internal/session/session_test.go
package session

import (
	"testing"
	"time"

	"github.com/jason-s-yu/tilehearts/internal/game"
	"github.com/jason-s-yu/tilehearts/internal/models"
	"github.com/jason-s-yu/tilehearts/internal/turnlock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPlayerSessionCreatesOnce(t *testing.T) {
	m := NewManager(nil)

	s, created := m.GetPlayerSession(models.Identity{ID: "u1", Name: "Alice", SessionID: "sess-1"})
	require.True(t, created)
	assert.Equal(t, "sess-1", s.UserSessionID)
	assert.True(t, s.IsActive)

	s, created = m.GetPlayerSession(models.Identity{ID: "u1", Email: "alice@example.com"})
	assert.False(t, created)
	assert.Equal(t, "Alice", s.Name)
	assert.Equal(t, "alice@example.com", s.Email)
	assert.Len(t, m.List(), 1)
}

func TestSocketBinding(t *testing.T) {
	m := NewManager(nil)
	m.GetPlayerSession(models.Identity{ID: "u1", Name: "Alice"})

	_, ok := m.UpdatePlayerSocket("u1", "sock-1")
	require.True(t, ok)
	_, ok = m.UpdatePlayerSocket("u1", "sock-2")
	require.True(t, ok)

	assert.False(t, m.MarkDisconnected("u1", "sock-1"), "stale socket must not unbind the new one")
	assert.True(t, m.IsConnected("u1"))
	assert.True(t, m.MarkDisconnected("u1", "sock-2"))
	assert.False(t, m.IsConnected("u1"))

	_, ok = m.UpdatePlayerSocket("nobody", "sock-3")
	assert.False(t, ok)
}

func TestSweepInactive(t *testing.T) {
	m := NewManager(nil)
	clock := time.Now()
	m.now = func() time.Time { return clock }

	m.GetPlayerSession(models.Identity{ID: "old", Name: "Old"})
	clock = clock.Add(45 * time.Minute)
	m.GetPlayerSession(models.Identity{ID: "fresh", Name: "Fresh"})

	swept := m.SweepInactive(30 * time.Minute)
	assert.Equal(t, []string{"old"}, swept)

	s, ok := m.Get("old")
	require.True(t, ok, "swept sessions are kept")
	assert.False(t, s.IsActive)

	s, _ = m.GetPlayerSession(models.Identity{ID: "old"})
	assert.True(t, s.IsActive)
}

func TestMigratePlayerData(t *testing.T) {
	locks := turnlock.NewGuard(0)
	m := NewManager(locks)
	room := game.NewRoom("ABC123", game.DefaultRules(), nil)
	_, err := room.AddPlayer(&game.Player{UserID: "oldId", Name: "Guest"})
	require.NoError(t, err)
	_, err = room.AddPlayer(&game.Player{UserID: "other", Name: "Other"})
	require.NoError(t, err)
	room.GameState.PlayerHands["oldId"] = []game.Card{&game.HeartCard{ID: "h1", Color: game.ColorRed, Value: 1}}

	m.GetPlayerSession(models.Identity{ID: "oldId", Name: "Guest"})
	m.GetPlayerSession(models.Identity{ID: "newId", Name: "Alice"})
	require.True(t, locks.Acquire("ABC123", "sock-old", "oldId"))

	err = m.MigratePlayerData(room, "oldId", "newId", "Alice", "alice@example.com")
	require.NoError(t, err)

	hand := room.GameState.PlayerHands["newId"]
	require.Len(t, hand, 1)
	assert.Equal(t, "h1", hand[0].CardID())
	_, stillThere := room.GameState.PlayerHands["oldId"]
	assert.False(t, stillThere)
	assert.Equal(t, "newId", room.Players[0].UserID)

	_, held := locks.Holder("ABC123")
	assert.False(t, held)

	old, _ := m.Get("oldId")
	assert.False(t, old.IsActive)
	fresh, _ := m.Get("newId")
	assert.Equal(t, "ABC123", fresh.CurrentRoom)
}

func TestMigratePlayerDataAppendsUnknownPlayer(t *testing.T) {
	m := NewManager(turnlock.NewGuard(0))
	room := game.NewRoom("ABC123", game.DefaultRules(), nil)
	_, err := room.AddPlayer(&game.Player{UserID: "other", Name: "Other"})
	require.NoError(t, err)

	require.NoError(t, m.MigratePlayerData(room, "ghost", "newId", "Alice", ""))
	require.Len(t, room.Players, 2)
	assert.Equal(t, "newId", room.Players[1].UserID)
}
