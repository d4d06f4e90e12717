// internal/game/special_actions.go
package game

import "github.com/google/uuid"

const (
	windEmoji    = "💨"
	recycleEmoji = "♻️"
	shieldEmoji  = "🛡️"
)

// WindCard removes an opponent's heart from a tile.
type WindCard struct {
	ID    string `json:"id"`
	Emoji string `json:"emoji"`
}

func NewWindCard() *WindCard {
	return &WindCard{ID: uuid.NewString(), Emoji: windEmoji}
}

func (w *WindCard) CardID() string { return w.ID }
func (w *WindCard) Type() CardType { return CardWind }

// CanTargetTile allows tiles holding a heart placed by someone other than the actor.
func (w *WindCard) CanTargetTile(tile *Tile, actingPlayerID string) bool {
	return tile != nil && tile.PlacedHeart != nil && tile.PlacedHeart.PlacedBy != actingPlayerID
}

// ExecuteEffect removes the heart and restores the tile to the color it had before placement.
// Blocked while the heart's owner is shielded.
func (w *WindCard) ExecuteEffect(state *GameState, actingPlayerID string, tile *Tile) (ActionResult, error) {
	if tile == nil {
		return ActionResult{}, validationError("Target tile is required")
	}
	if !w.CanTargetTile(tile, actingPlayerID) {
		return ActionResult{}, targetingError("Wind card can only target tiles with opponent's hearts")
	}

	owner := tile.PlacedHeart.PlacedBy
	if s := state.ActiveShield(owner); s != nil {
		return ActionResult{}, protectionError(s.RemainingTurns,
			"Cannot use Wind card: Player's heart is protected by Shield (%d turns remaining)", s.RemainingTurns)
	}

	removed := *tile.PlacedHeart
	restore := removed.OriginalTileColor
	if restore == "" {
		restore = tile.Color
	}
	tile.Color = restore
	tile.PlacedHeart = nil

	return ActionResult{
		Type:         CardWind,
		TileID:       tileRef(tile),
		RemovedHeart: &removed,
		NewTileState: &TileState{Color: restore, Emoji: restore.TileEmoji()},
	}, nil
}

// RecycleCard turns an empty colored tile white.
type RecycleCard struct {
	ID    string `json:"id"`
	Emoji string `json:"emoji"`
}

func NewRecycleCard() *RecycleCard {
	return &RecycleCard{ID: uuid.NewString(), Emoji: recycleEmoji}
}

func (rc *RecycleCard) CardID() string { return rc.ID }
func (rc *RecycleCard) Type() CardType { return CardRecycle }

// CanTargetTile allows empty tiles that are not already white.
func (rc *RecycleCard) CanTargetTile(tile *Tile, _ string) bool {
	return tile != nil && tile.IsEmpty() && tile.Color != ColorWhite
}

// ExecuteEffect whitens the tile. It is blocked when another player holds an active shield
// and has at least one heart on the board.
func (rc *RecycleCard) ExecuteEffect(state *GameState, actingPlayerID string, tile *Tile) (ActionResult, error) {
	if tile == nil {
		return ActionResult{}, validationError("Target tile is required")
	}
	if !rc.CanTargetTile(tile, actingPlayerID) {
		return ActionResult{}, targetingError("Recycle card can only target empty, non-white tiles")
	}

	for protectedID := range state.Shields {
		if protectedID == actingPlayerID {
			continue
		}
		s := state.ActiveShield(protectedID)
		if s == nil {
			continue
		}
		if state.HasHeartsOnBoard(protectedID) {
			return ActionResult{}, protectionError(s.RemainingTurns,
				"Cannot use Recycle card: Opponent has active Shield protection (%d turns remaining)", s.RemainingTurns)
		}
	}

	previous := tile.Color
	tile.Color = ColorWhite

	return ActionResult{
		Type:          CardRecycle,
		TileID:        tileRef(tile),
		PreviousColor: previous,
		NewColor:      ColorWhite,
		NewTileState:  &TileState{Color: ColorWhite, Emoji: ColorWhite.TileEmoji()},
	}, nil
}

// ShieldCard protects the player who plays it. It never targets a tile.
type ShieldCard struct {
	ID    string `json:"id"`
	Emoji string `json:"emoji"`
}

func NewShieldCard() *ShieldCard {
	return &ShieldCard{ID: uuid.NewString(), Emoji: shieldEmoji}
}

func (sc *ShieldCard) CardID() string { return sc.ID }
func (sc *ShieldCard) Type() CardType { return CardShield }

func (sc *ShieldCard) CanTargetTile(*Tile, string) bool { return false }

// ExecuteEffect activates or reinforces the actor's shield. Only one active shield may exist
// in a room, so activation fails while the opponent is shielded.
func (sc *ShieldCard) ExecuteEffect(state *GameState, actingPlayerID string, _ *Tile) (ActionResult, error) {
	for id := range state.Shields {
		if id == actingPlayerID {
			continue
		}
		if s := state.ActiveShield(id); s != nil {
			return ActionResult{}, protectionError(s.RemainingTurns,
				"Cannot activate Shield: Opponent already has an active Shield (%d turns remaining)", s.RemainingTurns)
		}
	}

	duration := state.Rules.ShieldDuration
	if duration <= 0 {
		duration = DefaultShieldDuration
	}

	if existing := state.ActiveShield(actingPlayerID); existing != nil {
		fresh := newShield(actingPlayerID, state.TurnCount, duration)
		fresh.ActivatedBy = existing.ActivatedBy
		fresh.TurnActivated = existing.TurnActivated
		state.Shields[actingPlayerID] = fresh
		snapshot := *fresh
		return ActionResult{Type: CardShield, Shield: &snapshot, Reinforced: true}, nil
	}

	s := newShield(actingPlayerID, state.TurnCount, duration)
	state.Shields[actingPlayerID] = s
	snapshot := *s
	return ActionResult{Type: CardShield, Shield: &snapshot, Reinforced: false}, nil
}
