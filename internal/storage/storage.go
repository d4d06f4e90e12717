// internal/storage/storage.go
package storage

import (
	"context"
	"errors"

	"github.com/jason-s-yu/tilehearts/internal/game"
	"github.com/jason-s-yu/tilehearts/internal/models"
)

// ErrNotFound is returned by Find operations when no record exists.
var ErrNotFound = errors.New("record not found")

// Store durably mirrors rooms and player sessions. Rooms are keyed by normalized code and
// sessions by user id. The in-memory maps remain the source of truth; a Store is an
// eventually consistent copy used to survive restarts.
type Store interface {
	FindRoom(ctx context.Context, code string) (*game.RoomSnapshot, error)
	UpsertRoom(ctx context.Context, room game.RoomSnapshot) error
	DeleteRoom(ctx context.Context, code string) error

	FindSession(ctx context.Context, userID string) (*models.PlayerSession, error)
	UpsertSession(ctx context.Context, s models.PlayerSession) error
	DeleteSession(ctx context.Context, userID string) error
}
