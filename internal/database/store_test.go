// internal/database/store_test.go
package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/tilehearts/internal/game"
	"github.com/jason-s-yu/tilehearts/internal/models"
	"github.com/jason-s-yu/tilehearts/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testPool connects to TEST_DATABASE_URL or skips; these tests need a real Postgres.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := Connect(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, Migrate(ctx, pool))
	return pool
}

func TestStoreRooms(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	s := NewStore(pool)

	room := game.NewRoom("DBTEST", game.DefaultRules(), nil)
	_, err := room.AddPlayer(&game.Player{UserID: "u1", Name: "Alice"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.DeleteRoom(ctx, "DBTEST") })

	require.NoError(t, s.UpsertRoom(ctx, room.Snapshot()))
	require.NoError(t, s.UpsertRoom(ctx, room.Snapshot()), "upsert is idempotent")

	snap, err := s.FindRoom(ctx, "DBTEST")
	require.NoError(t, err)
	assert.Equal(t, "Alice", snap.Players[0].Name)

	require.NoError(t, s.DeleteRoom(ctx, "DBTEST"))
	_, err = s.FindRoom(ctx, "DBTEST")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStoreSessions(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	s := NewStore(pool)
	t.Cleanup(func() { _ = s.DeleteSession(ctx, "db-test-user") })

	ps := models.PlayerSession{UserID: "db-test-user", Name: "Alice", LastSeen: time.Now(), IsActive: true}
	require.NoError(t, s.UpsertSession(ctx, ps))

	got, err := s.FindSession(ctx, "db-test-user")
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Name)
}

func TestActionSinkWritesResult(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	sink := NewActionSink(pool)
	t.Cleanup(func() {
		_, _ = pool.Exec(ctx, `DELETE FROM room_actions WHERE room_code = 'DBSINK'`)
		_, _ = pool.Exec(ctx, `DELETE FROM room_results WHERE room_code = 'DBSINK'`)
	})

	now := time.Now().UnixMilli()
	err := sink.WriteActions(ctx, []models.RoomAction{
		{RoomCode: "DBSINK", ActionIndex: 1, ActorUserID: "u1", ActionType: "end-turn", Timestamp: now},
		{RoomCode: "DBSINK", ActionIndex: 2, ActorUserID: "u1", ActionType: ActionGameOver, Timestamp: now,
			ActionPayload: map[string]interface{}{"winner": "u1", "reason": "All tiles are filled", "scores": map[string]int{"u1": 9}}},
	})
	require.NoError(t, err)

	var actions, results int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM room_actions WHERE room_code = 'DBSINK'`).Scan(&actions))
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM room_results WHERE room_code = 'DBSINK'`).Scan(&results))
	assert.Equal(t, 2, actions)
	assert.Equal(t, 1, results)
}
