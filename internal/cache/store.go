// internal/cache/store.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jason-s-yu/tilehearts/internal/game"
	"github.com/jason-s-yu/tilehearts/internal/models"
	"github.com/jason-s-yu/tilehearts/internal/storage"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "tilehearts"

func roomKey(code string) string {
	return fmt.Sprintf("%s:room:%s", keyPrefix, code)
}

func sessionKey(userID string) string {
	return fmt.Sprintf("%s:session:%s", keyPrefix, userID)
}

// Store mirrors rooms and sessions into Redis as JSON values with a TTL.
type Store struct {
	client     *redis.Client
	roomTTL    time.Duration
	sessionTTL time.Duration
}

// NewStore wraps client. A zero TTL keeps keys forever.
func NewStore(client *redis.Client, roomTTL, sessionTTL time.Duration) *Store {
	return &Store{client: client, roomTTL: roomTTL, sessionTTL: sessionTTL}
}

var _ storage.Store = (*Store)(nil)

func (s *Store) getJSON(ctx context.Context, key string, out interface{}) error {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return storage.ErrNotFound
		}
		return err
	}
	return json.Unmarshal(data, out)
}

func (s *Store) setJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

func (s *Store) FindRoom(ctx context.Context, code string) (*game.RoomSnapshot, error) {
	var snap game.RoomSnapshot
	if err := s.getJSON(ctx, roomKey(code), &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *Store) UpsertRoom(ctx context.Context, room game.RoomSnapshot) error {
	return s.setJSON(ctx, roomKey(room.Code), room, s.roomTTL)
}

func (s *Store) DeleteRoom(ctx context.Context, code string) error {
	return s.client.Del(ctx, roomKey(code)).Err()
}

func (s *Store) FindSession(ctx context.Context, userID string) (*models.PlayerSession, error) {
	var ps models.PlayerSession
	if err := s.getJSON(ctx, sessionKey(userID), &ps); err != nil {
		return nil, err
	}
	return &ps, nil
}

func (s *Store) UpsertSession(ctx context.Context, ps models.PlayerSession) error {
	return s.setJSON(ctx, sessionKey(ps.UserID), ps, s.sessionTTL)
}

func (s *Store) DeleteSession(ctx context.Context, userID string) error {
	return s.client.Del(ctx, sessionKey(userID)).Err()
}
