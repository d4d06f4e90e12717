// internal/coordinator/events.go
package coordinator

import (
	"encoding/json"
	"errors"

	"github.com/jason-s-yu/tilehearts/internal/game"
)

// Outbound result types.
const (
	EventRoomJoined     = "room-joined"
	EventPlayerJoined   = "player-joined"
	EventPlayerLeft     = "player-left"
	EventPlayerReady    = "player-ready"
	EventGameStart      = "game-start"
	EventHeartDrawn     = "heart-drawn"
	EventMagicCardDrawn = "magic-card-drawn"
	EventHeartPlaced    = "heart-placed"
	EventMagicCardUsed  = "magic-card-used"
	EventTurnChanged    = "turn-changed"
	EventGameOver       = "game-over"
	EventRoomError      = "room-error"
)

// GenericErrorMessage is shown to clients for failures that are not game rejections.
const GenericErrorMessage = "Something went wrong"

// Audience says who receives an event.
type Audience int

const (
	ToOriginator Audience = iota
	ToRoom
)

// Event is one outbound result. Room-wide events carry the full post-mutation room state so the
// gateway never has to query the room again.
type Event struct {
	Type     string
	RoomCode string
	Audience Audience
	Payload  map[string]interface{}
}

// MarshalJSON flattens the payload next to the type: {"type": "...", ...payload}.
func (e Event) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(e.Payload)+1)
	for k, v := range e.Payload {
		out[k] = v
	}
	out["type"] = e.Type
	return json.Marshal(out)
}

// statePayload builds the common room state carried by every room-wide event.
func statePayload(snap game.RoomSnapshot, extra map[string]interface{}) map[string]interface{} {
	p := map[string]interface{}{
		"roomCode":    snap.Code,
		"players":     snap.Players,
		"playerHands": snap.GameState.PlayerHands,
		"gameState":   snap.GameState,
	}
	for k, v := range extra {
		p[k] = v
	}
	return p
}

// ErrorEvent converts err into a room-error for the originator. Game rejections keep their
// message; anything else becomes the generic message.
func ErrorEvent(roomCode string, err error) Event {
	return Event{
		Type:     EventRoomError,
		RoomCode: roomCode,
		Audience: ToOriginator,
		Payload:  map[string]interface{}{"message": PublicMessage(err)},
	}
}

// PublicMessage returns the client-facing text for err.
func PublicMessage(err error) string {
	var gerr *game.Error
	if errors.As(err, &gerr) {
		return gerr.Message
	}
	return GenericErrorMessage
}

// IsRejection reports whether err is a recoverable game rejection rather than an
// infrastructure failure.
func IsRejection(err error) bool {
	var gerr *game.Error
	return errors.As(err, &gerr)
}
