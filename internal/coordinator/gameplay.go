// internal/coordinator/gameplay.go
package coordinator

import (
	"context"

	"github.com/jason-s-yu/tilehearts/internal/game"
	"github.com/jason-s-yu/tilehearts/internal/models"
	"github.com/sirupsen/logrus"
)

// endCheck selects how the end-of-game check runs after a mutation.
type endCheck int

const (
	noEndCheck endCheck = iota
	// endCheckGrace ignores empty decks so the player can still use what they drew this turn
	endCheckGrace
	endCheckStrict
)

// outcome is what a room mutation reports back to withRoom.
type outcome struct {
	event  string
	fields map[string]interface{}
	// also are further room-wide events emitted with the same post-mutation state
	also []string
}

// withRoom runs fn under the room lock for a member of the room, then checks for the end of
// the game, records the action and builds the events from a single post-mutation snapshot.
// Nothing is recorded or persisted when fn fails.
func (c *Coordinator) withRoom(actor Actor, code, action string, check endCheck, fn func(room *game.Room) (outcome, error)) ([]Event, error) {
	room, ok := c.Rooms.GetRoom(code)
	if !ok {
		return nil, errRoomNotFound
	}

	room.Mu.Lock()
	defer room.Mu.Unlock()
	if room.PlayerByID(actor.UserID()) == nil {
		return nil, errNotInRoom
	}

	out, err := fn(room)
	if err != nil {
		return nil, err
	}
	c.recordAction(code, actor.UserID(), action, out.fields)

	var ended *game.GameEndResult
	gs := room.GameState
	if check != noEndCheck && gs.GameStarted && !gs.GameOver {
		if res := room.CheckGameEndConditions(check == endCheckGrace); res.ShouldEnd {
			room.EndGame(res)
			ended = &res
		}
	}

	snap := room.Snapshot()
	events := []Event{{Type: out.event, RoomCode: code, Audience: ToRoom, Payload: statePayload(snap, out.fields)}}
	for _, t := range out.also {
		events = append(events, Event{Type: t, RoomCode: code, Audience: ToRoom, Payload: statePayload(snap, out.fields)})
	}
	if ended != nil {
		fields := gameOverFields(snap, *ended)
		c.recordAction(code, actor.UserID(), EventGameOver, fields)
		events = append(events, Event{Type: EventGameOver, RoomCode: code, Audience: ToRoom, Payload: statePayload(snap, fields)})
		c.log.WithFields(logrus.Fields{"room": code, "reason": ended.Reason, "winner": ended.Winner, "tie": ended.Tie}).Info("game over")
	}
	c.persistRoom(snap)
	return events, nil
}

func gameOverFields(snap game.RoomSnapshot, res game.GameEndResult) map[string]interface{} {
	scores := make(map[string]int, len(snap.Players))
	for _, p := range snap.Players {
		scores[p.UserID] = p.Score
	}
	return map[string]interface{}{
		"winner": res.Winner,
		"tie":    res.Tie,
		"reason": res.Reason,
		"scores": scores,
	}
}

// PlayerReady toggles the actor's ready flag and starts the game once both players are ready.
func (c *Coordinator) PlayerReady(_ context.Context, actor Actor, rawCode string) ([]Event, error) {
	code, err := game.NormalizeRoomCode(rawCode)
	if err != nil {
		return nil, err
	}
	return c.withRoom(actor, code, models.IntentPlayerReady, noEndCheck, func(room *game.Room) (outcome, error) {
		started, err := room.ToggleReady(actor.UserID())
		if err != nil {
			return outcome{}, err
		}
		p := room.PlayerByID(actor.UserID())
		out := outcome{
			event:  EventPlayerReady,
			fields: map[string]interface{}{"userId": p.UserID, "isReady": p.IsReady},
		}
		if started {
			out.also = []string{EventGameStart}
			out.fields["currentPlayerId"] = room.GameState.CurrentPlayerID
			c.log.WithFields(logrus.Fields{"room": code, "first": room.GameState.CurrentPlayerID}).Info("game started")
		}
		return out, nil
	})
}

// DrawHeart draws a heart card for the actor.
func (c *Coordinator) DrawHeart(_ context.Context, actor Actor, rawCode string) ([]Event, error) {
	code, err := game.NormalizeRoomCode(rawCode)
	if err != nil {
		return nil, err
	}
	return c.withRoom(actor, code, models.IntentDrawHeart, endCheckGrace, func(room *game.Room) (outcome, error) {
		card, err := room.DrawHeart(actor.UserID())
		if err != nil {
			return outcome{}, err
		}
		return outcome{
			event: EventHeartDrawn,
			fields: map[string]interface{}{
				"userId": actor.UserID(),
				"card":   game.ViewOf(card),
			},
		}, nil
	})
}

// DrawMagicCard draws a magic card for the actor.
func (c *Coordinator) DrawMagicCard(_ context.Context, actor Actor, rawCode string) ([]Event, error) {
	code, err := game.NormalizeRoomCode(rawCode)
	if err != nil {
		return nil, err
	}
	return c.withRoom(actor, code, models.IntentDrawMagicCard, endCheckGrace, func(room *game.Room) (outcome, error) {
		card, err := room.DrawMagicCard(actor.UserID())
		if err != nil {
			return outcome{}, err
		}
		return outcome{
			event: EventMagicCardDrawn,
			fields: map[string]interface{}{
				"userId": actor.UserID(),
				"card":   game.ViewOf(card),
			},
		}, nil
	})
}

// PlaceHeart plays a heart from the actor's hand onto a tile.
func (c *Coordinator) PlaceHeart(_ context.Context, actor Actor, rawCode, heartID string, tileID *int) ([]Event, error) {
	code, err := game.NormalizeRoomCode(rawCode)
	if err != nil {
		return nil, err
	}
	if tileID == nil {
		return nil, game.NewValidationError("Tile id is required")
	}
	if heartID == "" {
		return nil, game.NewValidationError("Heart id is required")
	}
	return c.withRoom(actor, code, models.IntentPlaceHeart, endCheckGrace, func(room *game.Room) (outcome, error) {
		res, err := room.PlaceHeart(actor.UserID(), heartID, *tileID)
		if err != nil {
			return outcome{}, err
		}
		return outcome{
			event: EventHeartPlaced,
			fields: map[string]interface{}{
				"userId":  actor.UserID(),
				"heartId": heartID,
				"tileId":  *tileID,
				"result":  res,
			},
		}, nil
	})
}

// UseMagicCard plays a wind, recycle or shield card from the actor's hand.
func (c *Coordinator) UseMagicCard(_ context.Context, actor Actor, rawCode, cardID string, targetTileID *int) ([]Event, error) {
	code, err := game.NormalizeRoomCode(rawCode)
	if err != nil {
		return nil, err
	}
	if cardID == "" {
		return nil, game.NewValidationError("Card id is required")
	}
	return c.withRoom(actor, code, models.IntentUseMagicCard, endCheckGrace, func(room *game.Room) (outcome, error) {
		res, err := room.UseMagicCard(actor.UserID(), cardID, targetTileID)
		if err != nil {
			return outcome{}, err
		}
		fields := map[string]interface{}{
			"userId":   actor.UserID(),
			"cardId":   cardID,
			"cardType": res.Type,
			"result":   res,
		}
		if targetTileID != nil {
			fields["targetTileId"] = *targetTileID
		}
		return outcome{event: EventMagicCardUsed, fields: fields}, nil
	})
}

// EndTurn passes the turn under the room's turn lock, so duplicate or concurrent end-turn
// requests are rejected instead of advancing twice. Empty decks end the game here.
func (c *Coordinator) EndTurn(_ context.Context, actor Actor, rawCode string) ([]Event, error) {
	code, err := game.NormalizeRoomCode(rawCode)
	if err != nil {
		return nil, err
	}
	var events []Event
	err = c.Locks.WithLock(code, actor.SocketID, actor.UserID(), func() error {
		var err error
		events, err = c.withRoom(actor, code, models.IntentEndTurn, endCheckStrict, func(room *game.Room) (outcome, error) {
			next, err := room.EndTurn(actor.UserID())
			if err != nil {
				return outcome{}, err
			}
			return outcome{
				event: EventTurnChanged,
				fields: map[string]interface{}{
					"previousPlayerId": actor.UserID(),
					"currentPlayerId":  next,
					"turnCount":        room.GameState.TurnCount,
				},
			}, nil
		})
		return err
	})
	return events, err
}

// Dispatch routes an intent to its handler. previousUserID is the verified subject of the
// intent's previous token, if any. Rejections are logged at debug, failures at error.
func (c *Coordinator) Dispatch(ctx context.Context, actor Actor, in models.Intent, previousUserID string) ([]Event, error) {
	var (
		events []Event
		err    error
	)
	switch in.Type {
	case models.IntentJoinRoom:
		events, err = c.JoinRoom(ctx, actor, in.RoomCode, in.PlayerName, previousUserID)
	case models.IntentLeaveRoom:
		events, err = c.LeaveRoom(ctx, actor, in.RoomCode)
	case models.IntentPlayerReady:
		events, err = c.PlayerReady(ctx, actor, in.RoomCode)
	case models.IntentDrawHeart:
		events, err = c.DrawHeart(ctx, actor, in.RoomCode)
	case models.IntentDrawMagicCard:
		events, err = c.DrawMagicCard(ctx, actor, in.RoomCode)
	case models.IntentPlaceHeart:
		events, err = c.PlaceHeart(ctx, actor, in.RoomCode, in.HeartID, in.TileID)
	case models.IntentUseMagicCard:
		events, err = c.UseMagicCard(ctx, actor, in.RoomCode, in.CardID, in.TargetTileID)
	case models.IntentEndTurn:
		events, err = c.EndTurn(ctx, actor, in.RoomCode)
	default:
		err = game.NewValidationError("Unknown action type: " + in.Type)
	}

	if err != nil {
		entry := c.log.WithFields(logrus.Fields{
			"room":   in.RoomCode,
			"user":   actor.UserID(),
			"socket": actor.SocketID,
			"action": in.Type,
		})
		if IsRejection(err) {
			entry.WithField("reason", err.Error()).Debug("intent rejected")
		} else {
			entry.WithError(err).Error("intent failed")
		}
	}
	return events, err
}
