// internal/storage/memory_test.go
package storage

import (
	"context"
	"testing"
	"time"

	"github.com/jason-s-yu/tilehearts/internal/game"
	"github.com/jason-s-yu/tilehearts/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRooms(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.FindRoom(ctx, "ABC123")
	assert.ErrorIs(t, err, ErrNotFound)

	room := game.NewRoom("ABC123", game.DefaultRules(), nil)
	_, err = room.AddPlayer(&game.Player{UserID: "u1", Name: "Alice"})
	require.NoError(t, err)
	require.NoError(t, m.UpsertRoom(ctx, room.Snapshot()))

	snap, err := m.FindRoom(ctx, "ABC123")
	require.NoError(t, err)
	require.Len(t, snap.Players, 1)
	assert.Equal(t, "Alice", snap.Players[0].Name)

	// stored copies are detached from the caller's snapshot
	snap.Players[0].Name = "Mallory"
	again, err := m.FindRoom(ctx, "ABC123")
	require.NoError(t, err)
	assert.Equal(t, "Alice", again.Players[0].Name)

	require.NoError(t, m.DeleteRoom(ctx, "ABC123"))
	_, err = m.FindRoom(ctx, "ABC123")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemorySessions(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	s := models.PlayerSession{UserID: "u1", Name: "Alice", LastSeen: time.Now(), IsActive: true}
	require.NoError(t, m.UpsertSession(ctx, s))

	got, err := m.FindSession(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Name)

	require.NoError(t, m.DeleteSession(ctx, "u1"))
	_, err = m.FindSession(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)
}
