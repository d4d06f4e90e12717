// internal/coordinator/rooms.go
package coordinator

import (
	"context"
	"errors"
	"fmt"

	"github.com/jason-s-yu/tilehearts/internal/game"
	"github.com/jason-s-yu/tilehearts/internal/models"
	"github.com/jason-s-yu/tilehearts/internal/storage"
	"github.com/sirupsen/logrus"
)

var (
	errRoomNotFound = game.NewIllegalStateError("Room not found")
	errNotInRoom    = game.NewIllegalStateError("You are not in this room")
)

// joinAttempts bounds retries when the room is deleted between lookup and lock.
const joinAttempts = 3

// JoinRoom adds the actor to the room, creating it on first join. When previousUserID names a
// player of this room, that player's record is migrated to the actor instead of adding a new
// one. A rejoin by an identity already in the room is accepted and reports the current state.
func (c *Coordinator) JoinRoom(ctx context.Context, actor Actor, rawCode, playerName, previousUserID string) ([]Event, error) {
	code, err := game.NormalizeRoomCode(rawCode)
	if err != nil {
		return nil, err
	}
	name := playerName
	if name == "" {
		name = actor.Identity.Name
	}
	if name, err = game.SanitizeName(name); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < joinAttempts; attempt++ {
		room, err := c.loadOrCreateRoom(ctx, code)
		if err != nil {
			return nil, err
		}

		room.Mu.Lock()
		if current, ok := c.Rooms.GetRoom(code); !ok || current != room {
			// emptied and deleted while we waited for the lock
			room.Mu.Unlock()
			continue
		}
		events, err := c.joinLocked(room, actor, name, previousUserID)
		room.Mu.Unlock()
		return events, err
	}
	return nil, fmt.Errorf("join room %s: room kept disappearing", code)
}

// joinLocked performs the join on a live room. Assumes room.Mu is held by caller.
func (c *Coordinator) joinLocked(room *game.Room, actor Actor, name, previousUserID string) ([]Event, error) {
	userID := actor.UserID()
	email := actor.Identity.Email

	var migrated, rejoined bool
	switch {
	case previousUserID != "" && previousUserID != userID &&
		room.PlayerByID(previousUserID) != nil && room.PlayerByID(userID) == nil:
		if err := c.Sessions.MigratePlayerData(room, previousUserID, userID, name, email); err != nil {
			return nil, err
		}
		migrated = true
	default:
		added, err := room.AddPlayer(&game.Player{UserID: userID, Name: name, Email: email})
		if err != nil {
			return nil, err
		}
		rejoined = !added
	}
	c.Sessions.SetCurrentRoom(userID, room.Code)

	fields := map[string]interface{}{
		"userId":   userID,
		"name":     name,
		"migrated": migrated,
		"rejoined": rejoined,
	}
	if migrated {
		fields["previousUserId"] = previousUserID
	}
	c.recordAction(room.Code, userID, models.IntentJoinRoom, fields)

	snap := room.Snapshot()
	c.persistRoom(snap)
	if s, ok := c.Sessions.Get(userID); ok {
		c.persistSession(s)
	}

	c.log.WithFields(logrus.Fields{
		"room":     room.Code,
		"user":     userID,
		"migrated": migrated,
		"rejoined": rejoined,
	}).Info("player joined room")

	joined := statePayload(snap, fields)
	return []Event{
		{Type: EventRoomJoined, RoomCode: room.Code, Audience: ToOriginator, Payload: joined},
		{Type: EventPlayerJoined, RoomCode: room.Code, Audience: ToRoom, Payload: joined},
	}, nil
}

// loadOrCreateRoom returns the live room for code. A room missing from memory is restored from
// the store, or created fresh; a fresh room is persisted before anyone can play in it.
func (c *Coordinator) loadOrCreateRoom(ctx context.Context, code string) (*game.Room, error) {
	if room, ok := c.Rooms.GetRoom(code); ok {
		return room, nil
	}

	var room *game.Room
	snap, err := c.store.FindRoom(ctx, code)
	switch {
	case err == nil:
		room, err = game.RestoreRoom(*snap, c.newRandom())
		if err != nil {
			c.log.WithError(err).WithField("room", code).Warn("discarding unreadable stored room")
			room = nil
		}
	case errors.Is(err, storage.ErrNotFound):
	default:
		return nil, fmt.Errorf("find room %s: %w", code, err)
	}

	fresh := room == nil
	if fresh {
		room = game.NewRoom(code, c.cfg.Rules, c.newRandom())
	}
	actual, loaded := c.Rooms.GetOrAdd(room)
	if loaded {
		return actual, nil
	}
	if !fresh {
		c.log.WithField("room", code).Info("restored room from store")
		return room, nil
	}

	room.Mu.Lock()
	created := room.Snapshot()
	room.Mu.Unlock()
	if err := c.store.UpsertRoom(ctx, created); err != nil {
		c.Rooms.DeleteRoom(code)
		return nil, fmt.Errorf("persist new room %s: %w", code, err)
	}
	c.log.WithField("room", code).Info("created room")
	return room, nil
}

// LeaveRoom removes the actor from the room. The last player out deletes the room.
func (c *Coordinator) LeaveRoom(ctx context.Context, actor Actor, rawCode string) ([]Event, error) {
	return c.removePlayer(ctx, rawCode, actor.UserID(), models.IntentLeaveRoom)
}

func (c *Coordinator) removePlayer(_ context.Context, rawCode, userID, reason string) ([]Event, error) {
	code, err := game.NormalizeRoomCode(rawCode)
	if err != nil {
		return nil, err
	}
	room, ok := c.Rooms.GetRoom(code)
	if !ok {
		return nil, errRoomNotFound
	}

	room.Mu.Lock()
	defer room.Mu.Unlock()
	if current, ok := c.Rooms.GetRoom(code); !ok || current != room {
		return nil, errRoomNotFound
	}

	gameReset := room.GameState.GameStarted && !room.GameState.GameOver
	if !room.RemovePlayer(userID) {
		return nil, errNotInRoom
	}
	c.Locks.PurgeIdentity(code, userID)
	if s, ok := c.Sessions.Get(userID); ok && s.CurrentRoom == code {
		c.Sessions.SetCurrentRoom(userID, "")
		s.CurrentRoom = ""
		c.persistSession(s)
	}

	fields := map[string]interface{}{
		"userId":    userID,
		"reason":    reason,
		"gameReset": gameReset && !room.IsEmpty(),
	}
	c.recordAction(code, userID, models.IntentLeaveRoom, fields)

	snap := room.Snapshot()
	if room.IsEmpty() {
		c.Rooms.DeleteRoom(code)
		c.forgetRoom(code)
		c.log.WithField("room", code).Info("room emptied and deleted")
	} else {
		c.persistRoom(snap)
	}

	c.log.WithFields(logrus.Fields{"room": code, "user": userID, "reason": reason}).Info("player left room")
	return []Event{{Type: EventPlayerLeft, RoomCode: code, Audience: ToRoom, Payload: statePayload(snap, fields)}}, nil
}

// AbsentPlayers returns the players of a room with no live connection. Rooms restored from the
// store start out this way; the gateway gives them the same grace as a disconnect.
func (c *Coordinator) AbsentPlayers(rawCode string) []string {
	code, err := game.NormalizeRoomCode(rawCode)
	if err != nil {
		return nil
	}
	room, ok := c.Rooms.GetRoom(code)
	if !ok {
		return nil
	}
	room.Mu.Lock()
	ids := make([]string, 0, len(room.Players))
	for _, p := range room.Players {
		ids = append(ids, p.UserID)
	}
	room.Mu.Unlock()

	var absent []string
	for _, id := range ids {
		if !c.Sessions.IsConnected(id) {
			absent = append(absent, id)
		}
	}
	return absent
}
