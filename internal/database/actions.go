// internal/database/actions.go
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/tilehearts/internal/models"
)

// ActionGameOver is the action type whose payload carries a finished game's outcome.
const ActionGameOver = "game-over"

// ActionSink writes batches of room actions for the historian.
type ActionSink struct {
	pool *pgxpool.Pool
}

func NewActionSink(pool *pgxpool.Pool) *ActionSink {
	return &ActionSink{pool: pool}
}

// WriteActions inserts the batch in a single transaction. A game-over action also records the
// room's result row.
func (s *ActionSink) WriteActions(ctx context.Context, batch []models.RoomAction) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range batch {
			if err := insertRoomActionTx(ctx, tx, rec); err != nil {
				return fmt.Errorf("insertRoomActionTx: %w", err)
			}
		}
		return nil
	})
}

func insertRoomActionTx(ctx context.Context, tx pgx.Tx, rec models.RoomAction) error {
	jsonPayload, err := json.Marshal(rec.ActionPayload)
	if err != nil {
		return err
	}
	at := time.UnixMilli(rec.Timestamp)

	q := `
		INSERT INTO room_actions (
			room_code, action_index, actor_user_id, action_type, action_payload, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := tx.Exec(ctx, q, rec.RoomCode, rec.ActionIndex, rec.ActorUserID, rec.ActionType, jsonPayload, at); err != nil {
		return err
	}

	if rec.ActionType != ActionGameOver {
		return nil
	}

	winner, _ := rec.ActionPayload["winner"].(string)
	tie, _ := rec.ActionPayload["tie"].(bool)
	reason, _ := rec.ActionPayload["reason"].(string)
	scores, err := json.Marshal(rec.ActionPayload["scores"])
	if err != nil {
		return err
	}
	resultQ := `
		INSERT INTO room_results (room_code, winner, tie, reason, scores, ended_at)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6)
	`
	_, err = tx.Exec(ctx, resultQ, rec.RoomCode, winner, tie, reason, scores, at)
	return err
}
