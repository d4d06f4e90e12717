package models

// Intent types sent by clients.
const (
	IntentJoinRoom      = "join-room"
	IntentLeaveRoom     = "leave-room"
	IntentPlayerReady   = "player-ready"
	IntentDrawHeart     = "draw-heart"
	IntentDrawMagicCard = "draw-magic-card"
	IntentPlaceHeart    = "place-heart"
	IntentUseMagicCard  = "use-magic-card"
	IntentEndTurn       = "end-turn"
)

// Intent captures a client's inbound message. Fields that do not apply to Type are left zero.
type Intent struct {
	Type          string `json:"type"`
	RoomCode      string `json:"roomCode"`
	PlayerName    string `json:"playerName,omitempty"`
	TileID        *int   `json:"tileId,omitempty"`
	HeartID       string `json:"heartId,omitempty"`
	CardID        string `json:"cardId,omitempty"`
	TargetTileID  *int   `json:"targetTileId,omitempty"`
	PreviousToken string `json:"previousToken,omitempty"`
}
