// internal/game/game.go
package game

// PlayerActions counts what a player has done during the current turn.
type PlayerActions struct {
	DrawnHeart     bool `json:"drawnHeart"`
	DrawnMagic     bool `json:"drawnMagic"`
	HeartsPlaced   int  `json:"heartsPlaced"`
	MagicCardsUsed int  `json:"magicCardsUsed"`
}

// GameState is the board, decks, hands and turn bookkeeping of one room.
// CurrentPlayerID is empty exactly when GameStarted is false.
type GameState struct {
	Tiles           []*Tile
	GameStarted     bool
	CurrentPlayerID string
	TurnCount       int
	Deck            Deck
	MagicDeck       Deck
	PlayerHands     map[string][]Card
	Shields         map[string]*Shield
	PlayerActions   map[string]*PlayerActions
	Rules           Rules

	GameOver  bool
	Winner    string // empty on a tie
	Tie       bool
	EndReason string
}

// NewGameState returns the idle state of a room that has not started a game.
func NewGameState(rules Rules) *GameState {
	return &GameState{
		Tiles:         []*Tile{},
		Deck:          newHeartDeck(rules.HeartDeckSize),
		MagicDeck:     newMagicDeck(rules.MagicDeckSize),
		PlayerHands:   make(map[string][]Card),
		Shields:       make(map[string]*Shield),
		PlayerActions: make(map[string]*PlayerActions),
		Rules:         rules,
	}
}

// GameEndResult is returned by CheckGameEndConditions.
type GameEndResult struct {
	ShouldEnd bool   `json:"shouldEnd"`
	Reason    string `json:"reason,omitempty"`
	Winner    string `json:"winner,omitempty"`
	Tie       bool   `json:"tie,omitempty"`
}

// TileByID returns the tile with the given id, or nil.
func (gs *GameState) TileByID(id int) *Tile {
	for _, t := range gs.Tiles {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// AllTilesFilled reports whether every tile holds a heart. An ungenerated board is never full.
func (gs *GameState) AllTilesFilled() bool {
	if len(gs.Tiles) == 0 {
		return false
	}
	for _, t := range gs.Tiles {
		if t.PlacedHeart == nil {
			return false
		}
	}
	return true
}

// HasHeartsOnBoard reports whether playerID has at least one heart on any tile.
func (gs *GameState) HasHeartsOnBoard(playerID string) bool {
	for _, t := range gs.Tiles {
		if t.PlacedHeart != nil && t.PlacedHeart.PlacedBy == playerID {
			return true
		}
	}
	return false
}

// actionsFor returns the per-turn counters of playerID, creating them if needed.
func (gs *GameState) actionsFor(playerID string) *PlayerActions {
	a, ok := gs.PlayerActions[playerID]
	if !ok {
		a = &PlayerActions{}
		gs.PlayerActions[playerID] = a
	}
	return a
}

// findCard returns the index of cardID in playerID's hand, or -1.
func (gs *GameState) findCard(playerID, cardID string) int {
	for i, c := range gs.PlayerHands[playerID] {
		if c.CardID() == cardID {
			return i
		}
	}
	return -1
}

func (gs *GameState) removeCard(playerID string, idx int) Card {
	hand := gs.PlayerHands[playerID]
	c := hand[idx]
	gs.PlayerHands[playerID] = append(hand[:idx:idx], hand[idx+1:]...)
	return c
}

// ValidateTurn checks that a game is running and that it is playerID's turn.
func (gs *GameState) ValidateTurn(playerID string) ValidationResult {
	if gs.GameOver {
		return invalid("Game is over")
	}
	if !gs.GameStarted {
		return invalid("Game has not started")
	}
	if gs.CurrentPlayerID != playerID {
		return invalid("Not your turn")
	}
	return valid()
}

// ValidateCardInHand checks that cardID is held by playerID.
func (gs *GameState) ValidateCardInHand(playerID, cardID string) ValidationResult {
	if gs.findCard(playerID, cardID) < 0 {
		return invalid("Card not found in your hand")
	}
	return valid()
}

// ValidateHeartPlacement checks the per-turn heart quota.
func (gs *GameState) ValidateHeartPlacement(playerID string) ValidationResult {
	if gs.actionsFor(playerID).HeartsPlaced >= gs.Rules.HeartsPerTurn {
		return invalid("You can only place up to %d hearts per turn", gs.Rules.HeartsPerTurn)
	}
	return valid()
}

// ValidateMagicCardUsage checks the per-turn magic card quota.
func (gs *GameState) ValidateMagicCardUsage(playerID string) ValidationResult {
	if gs.actionsFor(playerID).MagicCardsUsed >= gs.Rules.MagicPerTurn {
		return invalid("You can only use %d magic card per turn", gs.Rules.MagicPerTurn)
	}
	return valid()
}

// ValidateEndTurn checks turn ownership and that the player drew from every deck that still has cards.
func (gs *GameState) ValidateEndTurn(playerID string) ValidationResult {
	if res := gs.ValidateTurn(playerID); !res.Valid {
		return res
	}
	actions := gs.actionsFor(playerID)
	if !actions.DrawnHeart && !gs.Deck.IsEmpty() {
		return invalid("You must draw a heart card before ending your turn")
	}
	if !actions.DrawnMagic && !gs.MagicDeck.IsEmpty() {
		return invalid("You must draw a magic card before ending your turn")
	}
	return valid()
}

// CheckGameEndConditions decides whether the game should end. A full board always ends it.
// Empty decks end it unless allowDeckGrace is set, which lets the current player finish
// playing what they drew this turn.
func (r *Room) CheckGameEndConditions(allowDeckGrace bool) GameEndResult {
	gs := r.GameState
	if !gs.GameStarted {
		return GameEndResult{}
	}

	var reason string
	switch {
	case gs.AllTilesFilled():
		reason = "All tiles are filled"
	case allowDeckGrace:
		return GameEndResult{}
	case gs.Deck.IsEmpty() && gs.MagicDeck.IsEmpty():
		reason = "Both decks are empty"
	case gs.Deck.IsEmpty():
		reason = "Heart deck is empty"
	case gs.MagicDeck.IsEmpty():
		reason = "Magic deck is empty"
	default:
		return GameEndResult{}
	}

	res := GameEndResult{ShouldEnd: true, Reason: reason}
	res.Winner, res.Tie = r.leader()
	return res
}

// leader returns the player with the strictly highest score, or tie=true when the top
// score is shared.
func (r *Room) leader() (winner string, tie bool) {
	best := -1
	for _, p := range r.Players {
		switch {
		case p.Score > best:
			best = p.Score
			winner = p.UserID
			tie = false
		case p.Score == best:
			tie = true
		}
	}
	if tie {
		return "", true
	}
	return winner, false
}

// EndGame records the outcome. The board and hands stay visible and gameplay intents are
// rejected until both players ready up again for a rematch. Assumes lock is held by caller.
func (r *Room) EndGame(res GameEndResult) {
	gs := r.GameState
	gs.GameOver = true
	gs.Winner = res.Winner
	gs.Tie = res.Tie
	gs.EndReason = res.Reason
	for _, p := range r.Players {
		p.IsReady = false
	}
}
