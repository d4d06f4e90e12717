// internal/game/sync_state.go
package game

import (
	"fmt"
	"time"
)

// GameStateSnapshot is the serialized GameState. CurrentPlayer is nil while no game runs.
type GameStateSnapshot struct {
	Tiles           []Tile                   `json:"tiles"`
	GameStarted     bool                     `json:"gameStarted"`
	CurrentPlayer   *Player                  `json:"currentPlayer"`
	CurrentPlayerID string                   `json:"currentPlayerId,omitempty"`
	TurnCount       int                      `json:"turnCount"`
	Deck            Deck                     `json:"deck"`
	MagicDeck       Deck                     `json:"magicDeck"`
	PlayerHands     map[string][]CardView    `json:"playerHands"`
	Shields         map[string]Shield        `json:"shields"`
	PlayerActions   map[string]PlayerActions `json:"playerActions"`
	GameOver        bool                     `json:"gameOver"`
	Winner          string                   `json:"winner,omitempty"`
	Tie             bool                     `json:"tie,omitempty"`
	EndReason       string                   `json:"endReason,omitempty"`
}

// RoomSnapshot is a consistent copy of a room. It is the payload shape sent to clients and
// the record written to persistent storage.
type RoomSnapshot struct {
	Code       string            `json:"code"`
	Players    []Player          `json:"players"`
	MaxPlayers int               `json:"maxPlayers"`
	GameState  GameStateSnapshot `json:"gameState"`
	Rules      Rules             `json:"rules"`
	CreatedAt  time.Time         `json:"createdAt"`
}

// RoomSummary is the short listing form of a room.
type RoomSummary struct {
	Code        string   `json:"code"`
	PlayerCount int      `json:"playerCount"`
	MaxPlayers  int      `json:"maxPlayers"`
	PlayerNames []string `json:"playerNames"`
	GameStarted bool     `json:"gameStarted"`
	GameOver    bool     `json:"gameOver"`
	TurnCount   int      `json:"turnCount"`
}

// Snapshot copies the room. Shields are refreshed to the current turn first.
// Assumes lock is held by caller.
func (r *Room) Snapshot() RoomSnapshot {
	gs := r.GameState

	players := make([]Player, len(r.Players))
	for i, p := range r.Players {
		players[i] = *p
	}

	tiles := make([]Tile, len(gs.Tiles))
	for i, t := range gs.Tiles {
		tiles[i] = *t
		if t.PlacedHeart != nil {
			ph := *t.PlacedHeart
			tiles[i].PlacedHeart = &ph
		}
	}

	hands := make(map[string][]CardView, len(gs.PlayerHands))
	for id, hand := range gs.PlayerHands {
		hands[id] = HandView(hand)
	}

	shields := make(map[string]Shield, len(gs.Shields))
	for id, s := range gs.Shields {
		s.refresh(gs.TurnCount)
		shields[id] = *s
	}

	actions := make(map[string]PlayerActions, len(gs.PlayerActions))
	for id, a := range gs.PlayerActions {
		actions[id] = *a
	}

	var current *Player
	if p := r.PlayerByID(gs.CurrentPlayerID); p != nil {
		cp := *p
		current = &cp
	}

	return RoomSnapshot{
		Code:       r.Code,
		Players:    players,
		MaxPlayers: r.MaxPlayers,
		Rules:      r.Rules,
		CreatedAt:  r.CreatedAt,
		GameState: GameStateSnapshot{
			Tiles:           tiles,
			GameStarted:     gs.GameStarted,
			CurrentPlayer:   current,
			CurrentPlayerID: gs.CurrentPlayerID,
			TurnCount:       gs.TurnCount,
			Deck:            gs.Deck,
			MagicDeck:       gs.MagicDeck,
			PlayerHands:     hands,
			Shields:         shields,
			PlayerActions:   actions,
			GameOver:        gs.GameOver,
			Winner:          gs.Winner,
			Tie:             gs.Tie,
			EndReason:       gs.EndReason,
		},
	}
}

// Summary returns the listing form of the room. Assumes lock is held by caller.
func (r *Room) Summary() RoomSummary {
	names := make([]string, len(r.Players))
	for i, p := range r.Players {
		names[i] = p.Name
	}
	return RoomSummary{
		Code:        r.Code,
		PlayerCount: len(r.Players),
		MaxPlayers:  r.MaxPlayers,
		PlayerNames: names,
		GameStarted: r.GameState.GameStarted,
		GameOver:    r.GameState.GameOver,
		TurnCount:   r.GameState.TurnCount,
	}
}

// RestoreRoom rebuilds a live room from a snapshot, re-materializing cards by type.
func RestoreRoom(snap RoomSnapshot, rng Random) (*Room, error) {
	code, err := NormalizeRoomCode(snap.Code)
	if err != nil {
		return nil, fmt.Errorf("restore room %q: %w", snap.Code, err)
	}
	rules := snap.Rules
	if rules == (Rules{}) {
		rules = DefaultRules()
	}

	room := NewRoom(code, rules, rng)
	if !snap.CreatedAt.IsZero() {
		room.CreatedAt = snap.CreatedAt
	}
	if snap.MaxPlayers > 0 {
		room.MaxPlayers = snap.MaxPlayers
	}
	for i := range snap.Players {
		p := snap.Players[i]
		room.Players = append(room.Players, &p)
	}

	src := snap.GameState
	gs := NewGameState(rules)
	gs.GameStarted = src.GameStarted
	gs.CurrentPlayerID = src.CurrentPlayerID
	if gs.CurrentPlayerID == "" && src.CurrentPlayer != nil {
		gs.CurrentPlayerID = src.CurrentPlayer.UserID
	}
	gs.TurnCount = src.TurnCount
	gs.Deck = src.Deck
	gs.MagicDeck = src.MagicDeck
	gs.GameOver = src.GameOver
	gs.Winner = src.Winner
	gs.Tie = src.Tie
	gs.EndReason = src.EndReason

	for i := range src.Tiles {
		t := src.Tiles[i]
		gs.Tiles = append(gs.Tiles, &t)
	}
	for id, views := range src.PlayerHands {
		hand := make([]Card, 0, len(views))
		for _, v := range views {
			c, err := CardFromView(v)
			if err != nil {
				return nil, fmt.Errorf("restore room %s hand of %s: %w", code, id, err)
			}
			hand = append(hand, c)
		}
		gs.PlayerHands[id] = hand
	}
	for id, s := range src.Shields {
		sh := s
		gs.Shields[id] = &sh
	}
	for id, a := range src.PlayerActions {
		pa := a
		gs.PlayerActions[id] = &pa
	}

	if !gs.GameStarted {
		gs.CurrentPlayerID = ""
	}
	gs.ExpireShields()
	room.GameState = gs
	if gs.GameStarted {
		room.RecalculateScores()
	}
	return room, nil
}
