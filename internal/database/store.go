// internal/database/store.go
package database

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/tilehearts/internal/game"
	"github.com/jason-s-yu/tilehearts/internal/models"
	"github.com/jason-s-yu/tilehearts/internal/storage"
)

// Store mirrors rooms and sessions into Postgres JSONB columns.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

var _ storage.Store = (*Store)(nil)

func (s *Store) FindRoom(ctx context.Context, code string) (*game.RoomSnapshot, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT snapshot FROM rooms WHERE code = $1`, code).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	var snap game.RoomSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *Store) UpsertRoom(ctx context.Context, room game.RoomSnapshot) error {
	data, err := json.Marshal(room)
	if err != nil {
		return err
	}
	q := `
		INSERT INTO rooms (code, snapshot, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (code)
		DO UPDATE SET snapshot = EXCLUDED.snapshot, updated_at = NOW()
	`
	_, err = s.pool.Exec(ctx, q, room.Code, data)
	return err
}

func (s *Store) DeleteRoom(ctx context.Context, code string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM rooms WHERE code = $1`, code)
	return err
}

func (s *Store) FindSession(ctx context.Context, userID string) (*models.PlayerSession, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT session FROM player_sessions WHERE user_id = $1`, userID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	var ps models.PlayerSession
	if err := json.Unmarshal(raw, &ps); err != nil {
		return nil, err
	}
	return &ps, nil
}

func (s *Store) UpsertSession(ctx context.Context, ps models.PlayerSession) error {
	data, err := json.Marshal(ps)
	if err != nil {
		return err
	}
	q := `
		INSERT INTO player_sessions (user_id, session, last_seen, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id)
		DO UPDATE SET session = EXCLUDED.session, last_seen = EXCLUDED.last_seen, updated_at = NOW()
	`
	_, err = s.pool.Exec(ctx, q, ps.UserID, data, ps.LastSeen)
	return err
}

func (s *Store) DeleteSession(ctx context.Context, userID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM player_sessions WHERE user_id = $1`, userID)
	return err
}
