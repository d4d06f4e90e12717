// internal/game/room.go
package game

import (
	"sync"
	"time"
)

// MaxPlayers is the fixed capacity of a room.
const MaxPlayers = 2

// Player is a room-scoped participant.
type Player struct {
	UserID   string    `json:"userId"`
	Name     string    `json:"name"`
	Email    string    `json:"email,omitempty"`
	IsReady  bool      `json:"isReady"`
	Score    int       `json:"score"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Room is a two-player game session. All methods assume Mu is held by the caller.
type Room struct {
	Code       string
	Players    []*Player
	MaxPlayers int
	GameState  *GameState
	Rules      Rules
	CreatedAt  time.Time

	Mu  sync.Mutex
	rng Random
}

// NewRoom creates an empty room. code must already be normalized.
func NewRoom(code string, rules Rules, rng Random) *Room {
	if rng == nil {
		rng = NewRandom()
	}
	return &Room{
		Code:       code,
		Players:    []*Player{},
		MaxPlayers: MaxPlayers,
		GameState:  NewGameState(rules),
		Rules:      rules,
		CreatedAt:  time.Now(),
		rng:        rng,
	}
}

// PlayerByID returns the player with userID, or nil.
func (r *Room) PlayerByID(userID string) *Player {
	for _, p := range r.Players {
		if p.UserID == userID {
			return p
		}
	}
	return nil
}

func (r *Room) playerIndex(userID string) int {
	for i, p := range r.Players {
		if p.UserID == userID {
			return i
		}
	}
	return -1
}

// IsEmpty reports whether the room has no players left.
func (r *Room) IsEmpty() bool {
	return len(r.Players) == 0
}

// IsFull reports whether the room is at capacity.
func (r *Room) IsFull() bool {
	return len(r.Players) >= r.MaxPlayers
}

// AddPlayer adds p unless the room is full. It returns false with no error when the user is
// already present, which callers treat as a rejoin.
func (r *Room) AddPlayer(p *Player) (bool, error) {
	if existing := r.PlayerByID(p.UserID); existing != nil {
		if p.Name != "" {
			existing.Name = p.Name
		}
		if p.Email != "" {
			existing.Email = p.Email
		}
		return false, nil
	}
	if r.IsFull() {
		return false, illegalState("Room is full")
	}
	if p.JoinedAt.IsZero() {
		p.JoinedAt = time.Now()
	}
	r.Players = append(r.Players, p)
	return true, nil
}

// RemovePlayer removes userID and its per-player game data. Leaving a started game resets the
// room to its pre-game state and clears the remaining players' ready flags.
func (r *Room) RemovePlayer(userID string) bool {
	idx := r.playerIndex(userID)
	if idx < 0 {
		return false
	}
	r.Players = append(r.Players[:idx], r.Players[idx+1:]...)

	gs := r.GameState
	delete(gs.PlayerHands, userID)
	delete(gs.Shields, userID)
	delete(gs.PlayerActions, userID)

	if gs.GameStarted {
		r.resetGame()
	}
	return true
}

// resetGame discards the running game and returns the room to the ready check.
func (r *Room) resetGame() {
	r.GameState = NewGameState(r.Rules)
	for _, p := range r.Players {
		p.IsReady = false
		p.Score = 0
	}
}

// ToggleReady flips userID's ready flag. When both players are ready the game starts and
// started is true.
func (r *Room) ToggleReady(userID string) (started bool, err error) {
	p := r.PlayerByID(userID)
	if p == nil {
		return false, illegalState("You are not in this room")
	}
	if r.GameState.GameStarted && !r.GameState.GameOver {
		return false, illegalState("Game already started")
	}
	p.IsReady = !p.IsReady

	if r.AllReady() {
		r.StartGame()
		return true, nil
	}
	return false, nil
}

// AllReady reports whether the room is full and every player is ready.
func (r *Room) AllReady() bool {
	if len(r.Players) != r.MaxPlayers {
		return false
	}
	for _, p := range r.Players {
		if !p.IsReady {
			return false
		}
	}
	return true
}

// StartGame generates the board, deals opening hands, and picks a random first player.
func (r *Room) StartGame() {
	gs := NewGameState(r.Rules)
	gs.Tiles = GenerateTiles(r.rng, r.Rules)
	for _, p := range r.Players {
		p.Score = 0
		gs.PlayerHands[p.UserID] = dealOpeningHand(r.rng, r.Rules)
		gs.PlayerActions[p.UserID] = &PlayerActions{}
	}
	gs.CurrentPlayerID = r.Players[r.rng.Intn(len(r.Players))].UserID
	gs.TurnCount = 1
	gs.GameStarted = true
	r.GameState = gs
}

func (r *Room) requireTurn(userID string) error {
	if res := r.GameState.ValidateTurn(userID); !res.Valid {
		return illegalState(res.Error)
	}
	return nil
}

// DrawHeart draws one heart for the current player.
func (r *Room) DrawHeart(userID string) (*HeartCard, error) {
	if err := r.requireTurn(userID); err != nil {
		return nil, err
	}
	gs := r.GameState
	actions := gs.actionsFor(userID)
	if actions.DrawnHeart {
		return nil, illegalState("You can only draw one heart card per turn")
	}
	if gs.Deck.IsEmpty() {
		return nil, illegalState("No more heart cards in deck")
	}

	card := NewRandomHeartCard(r.rng)
	gs.Deck.Cards--
	gs.PlayerHands[userID] = append(gs.PlayerHands[userID], card)
	actions.DrawnHeart = true
	return card, nil
}

// DrawMagicCard draws one magic card for the current player.
func (r *Room) DrawMagicCard(userID string) (Card, error) {
	if err := r.requireTurn(userID); err != nil {
		return nil, err
	}
	gs := r.GameState
	actions := gs.actionsFor(userID)
	if actions.DrawnMagic {
		return nil, illegalState("You can only draw one magic card per turn")
	}
	if gs.MagicDeck.IsEmpty() {
		return nil, illegalState("No more magic cards in deck")
	}

	card := NewRandomMagicCard(r.rng)
	gs.MagicDeck.Cards--
	gs.PlayerHands[userID] = append(gs.PlayerHands[userID], card)
	actions.DrawnMagic = true
	return card, nil
}

// PlaceHeart plays heartID from userID's hand onto tileID and credits the score.
func (r *Room) PlaceHeart(userID, heartID string, tileID int) (ActionResult, error) {
	if err := r.requireTurn(userID); err != nil {
		return ActionResult{}, err
	}
	gs := r.GameState
	if res := gs.ValidateCardInHand(userID, heartID); !res.Valid {
		return ActionResult{}, illegalState(res.Error)
	}
	idx := gs.findCard(userID, heartID)
	heart, ok := gs.PlayerHands[userID][idx].(*HeartCard)
	if !ok {
		return ActionResult{}, illegalState("Card is not a heart card")
	}
	tile := gs.TileByID(tileID)
	if tile == nil {
		return ActionResult{}, validationError("Invalid tile")
	}
	if !heart.CanTargetTile(tile, userID) {
		return ActionResult{}, targetingError("Tile is already occupied")
	}
	if res := gs.ValidateHeartPlacement(userID); !res.Valid {
		return ActionResult{}, illegalState(res.Error)
	}

	result, err := heart.ExecuteEffect(gs, userID, tile)
	if err != nil {
		return ActionResult{}, err
	}
	gs.removeCard(userID, idx)
	if p := r.PlayerByID(userID); p != nil {
		p.Score += result.Score
	}
	gs.actionsFor(userID).HeartsPlaced++
	return result, nil
}

// UseMagicCard plays a wind, recycle or shield card. targetTileID is required for wind and
// recycle and ignored for shield.
func (r *Room) UseMagicCard(userID, cardID string, targetTileID *int) (ActionResult, error) {
	if err := r.requireTurn(userID); err != nil {
		return ActionResult{}, err
	}
	gs := r.GameState
	if res := gs.ValidateCardInHand(userID, cardID); !res.Valid {
		return ActionResult{}, illegalState(res.Error)
	}
	idx := gs.findCard(userID, cardID)
	card := gs.PlayerHands[userID][idx]
	if !card.Type().IsMagic() {
		return ActionResult{}, illegalState("Card is not a magic card")
	}
	if res := gs.ValidateMagicCardUsage(userID); !res.Valid {
		return ActionResult{}, illegalState(res.Error)
	}

	var tile *Tile
	if card.Type() != CardShield {
		if targetTileID == nil {
			return ActionResult{}, validationError("Target tile is required")
		}
		if tile = gs.TileByID(*targetTileID); tile == nil {
			return ActionResult{}, validationError("Invalid tile")
		}
	}

	gs.ExpireShields()
	result, err := card.ExecuteEffect(gs, userID, tile)
	if err != nil {
		return ActionResult{}, err
	}

	gs.removeCard(userID, idx)
	gs.actionsFor(userID).MagicCardsUsed++

	if result.RemovedHeart != nil {
		if owner := r.PlayerByID(result.RemovedHeart.PlacedBy); owner != nil {
			owner.Score -= result.RemovedHeart.Score
			if owner.Score < 0 {
				owner.Score = 0
			}
		}
	}
	return result, nil
}

// EndTurn passes the turn to the other player, advances the turn counter, expires shields and
// resets the new player's counters. It returns the id of the new current player.
func (r *Room) EndTurn(userID string) (string, error) {
	gs := r.GameState
	if res := gs.ValidateEndTurn(userID); !res.Valid {
		return "", illegalState(res.Error)
	}

	idx := r.playerIndex(userID)
	next := r.Players[(idx+1)%len(r.Players)].UserID
	gs.CurrentPlayerID = next
	gs.TurnCount++
	gs.ExpireShields()
	gs.PlayerActions[next] = &PlayerActions{}
	return next, nil
}

// MigratePlayer rebinds everything oldID owns in this room to newID: the player record
// (score, ready flag and position kept), hand, shield, turn counters, current turn and the
// ownership of placed hearts. When oldID is not a player, newID is appended instead.
//
// If newID already holds a seat, the two records are merged: before the game starts the old
// record replaces the new one. Once a game is running both seats carry game state, so the
// migration is rejected.
func (r *Room) MigratePlayer(oldID, newID, name, email string) error {
	if oldID == newID {
		return nil
	}

	p := r.PlayerByID(oldID)
	if r.PlayerByID(newID) != nil {
		if p == nil {
			return nil
		}
		if r.GameState.GameStarted {
			return illegalState("Player already in room")
		}
		r.dropPlayerRecord(newID)
	}

	if p == nil {
		_, err := r.AddPlayer(&Player{UserID: newID, Name: name, Email: email})
		return err
	}
	p.UserID = newID
	if name != "" {
		p.Name = name
	}
	if email != "" {
		p.Email = email
	}

	gs := r.GameState
	if hand, ok := gs.PlayerHands[oldID]; ok {
		gs.PlayerHands[newID] = hand
		delete(gs.PlayerHands, oldID)
	}
	if s, ok := gs.Shields[oldID]; ok {
		s.ProtectedPlayerID = newID
		if s.ActivatedBy == oldID {
			s.ActivatedBy = newID
		}
		gs.Shields[newID] = s
		delete(gs.Shields, oldID)
	}
	if a, ok := gs.PlayerActions[oldID]; ok {
		gs.PlayerActions[newID] = a
		delete(gs.PlayerActions, oldID)
	}
	if gs.CurrentPlayerID == oldID {
		gs.CurrentPlayerID = newID
	}
	if gs.Winner == oldID {
		gs.Winner = newID
	}
	for _, t := range gs.Tiles {
		if t.PlacedHeart != nil && t.PlacedHeart.PlacedBy == oldID {
			t.PlacedHeart.PlacedBy = newID
		}
	}
	return nil
}

// dropPlayerRecord removes userID's seat and any per-player state without touching the rest of
// the room. Assumes lock is held by caller.
func (r *Room) dropPlayerRecord(userID string) {
	kept := r.Players[:0]
	for _, p := range r.Players {
		if p.UserID != userID {
			kept = append(kept, p)
		}
	}
	r.Players = kept
	delete(r.GameState.PlayerHands, userID)
	delete(r.GameState.Shields, userID)
	delete(r.GameState.PlayerActions, userID)
}
