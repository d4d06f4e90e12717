// internal/game/cards.go
package game

import (
	"fmt"

	"github.com/google/uuid"
)

// CardType identifies a card variant. The taxonomy is closed.
type CardType string

const (
	CardHeart   CardType = "heart"
	CardMagic   CardType = "magic" // deck type only; magic cards in hand are wind, recycle or shield
	CardWind    CardType = "wind"
	CardRecycle CardType = "recycle"
	CardShield  CardType = "shield"
)

// IsMagic reports whether t is one of the single-use special cards.
func (t CardType) IsMagic() bool {
	return t == CardWind || t == CardRecycle || t == CardShield
}

// Card is a card instance held in a hand. CanTargetTile answers whether the card may be played
// on tile; ExecuteEffect validates and then applies the card, returning what changed.
// ExecuteEffect never mutates state when it returns an error.
type Card interface {
	CardID() string
	Type() CardType
	CanTargetTile(tile *Tile, actingPlayerID string) bool
	ExecuteEffect(state *GameState, actingPlayerID string, tile *Tile) (ActionResult, error)
}

// TileState is the rendered appearance of a tile after an effect.
type TileState struct {
	Color Color  `json:"color"`
	Emoji string `json:"emoji"`
}

// ActionResult describes the outcome of a card effect. Only the fields relevant to the
// card type are set.
type ActionResult struct {
	Type          CardType        `json:"type"`
	TileID        *int            `json:"tileId,omitempty"`
	Placement     *HeartPlacement `json:"placement,omitempty"`    // heart
	Score         int             `json:"score,omitempty"`        // heart
	RemovedHeart  *HeartPlacement `json:"removedHeart,omitempty"` // wind
	NewTileState  *TileState      `json:"newTileState,omitempty"` // wind, recycle
	PreviousColor Color           `json:"previousColor,omitempty"`
	NewColor      Color           `json:"newColor,omitempty"`
	Shield        *Shield         `json:"shield,omitempty"` // shield
	Reinforced    bool            `json:"reinforced,omitempty"`
}

func tileRef(t *Tile) *int {
	id := t.ID
	return &id
}

// HeartCard is a scoring card placed onto an empty tile.
type HeartCard struct {
	ID    string `json:"id"`
	Color Color  `json:"color"`
	Value int    `json:"value"`
	Emoji string `json:"emoji"`
}

// NewHeartCard creates a heart with a fresh id.
func NewHeartCard(color Color, value int) *HeartCard {
	return &HeartCard{
		ID:    uuid.NewString(),
		Color: color,
		Value: value,
		Emoji: color.HeartEmoji(),
	}
}

func (h *HeartCard) CardID() string { return h.ID }
func (h *HeartCard) Type() CardType { return CardHeart }

// CanTargetTile allows any empty tile.
func (h *HeartCard) CanTargetTile(tile *Tile, _ string) bool {
	return tile != nil && tile.IsEmpty()
}

// ExecuteEffect places the heart and credits nothing itself; the score is returned so the
// room can add it to the player's total.
func (h *HeartCard) ExecuteEffect(_ *GameState, actingPlayerID string, tile *Tile) (ActionResult, error) {
	if tile == nil {
		return ActionResult{}, validationError("Target tile is required")
	}
	if !h.CanTargetTile(tile, actingPlayerID) {
		return ActionResult{}, targetingError("Tile is already occupied")
	}

	score := CalculateScore(h, tile)
	placement := &HeartPlacement{
		CardID:            h.ID,
		Color:             h.Color,
		Value:             h.Value,
		Emoji:             h.Emoji,
		PlacedBy:          actingPlayerID,
		OriginalTileColor: tile.Color,
		Score:             score,
	}
	tile.PlacedHeart = placement

	// the board keeps its own record; migration rewrites PlacedBy in place
	placed := *placement
	return ActionResult{
		Type:      CardHeart,
		TileID:    tileRef(tile),
		Placement: &placed,
		Score:     score,
	}, nil
}

// CardView is the serialized form of any card, used in hands sent to clients and in snapshots.
type CardView struct {
	ID    string   `json:"id"`
	Type  CardType `json:"type"`
	Name  string   `json:"name,omitempty"`
	Color Color    `json:"color,omitempty"`
	Value int      `json:"value,omitempty"`
	Emoji string   `json:"emoji"`
}

// ViewOf converts a card to its serialized form.
func ViewOf(c Card) CardView {
	switch card := c.(type) {
	case *HeartCard:
		return CardView{ID: card.ID, Type: CardHeart, Color: card.Color, Value: card.Value, Emoji: card.Emoji}
	case *WindCard:
		return CardView{ID: card.ID, Type: CardWind, Name: "Wind", Emoji: card.Emoji}
	case *RecycleCard:
		return CardView{ID: card.ID, Type: CardRecycle, Name: "Recycle", Emoji: card.Emoji}
	case *ShieldCard:
		return CardView{ID: card.ID, Type: CardShield, Name: "Shield", Emoji: card.Emoji}
	}
	return CardView{ID: c.CardID(), Type: c.Type()}
}

// CardFromView re-materializes a card from its serialized form, keeping its id.
func CardFromView(v CardView) (Card, error) {
	switch v.Type {
	case CardHeart:
		if !v.Color.IsHeartColor() || v.Value < 1 || v.Value > 3 {
			return nil, fmt.Errorf("invalid heart card %s: color %q value %d", v.ID, v.Color, v.Value)
		}
		return &HeartCard{ID: v.ID, Color: v.Color, Value: v.Value, Emoji: v.Color.HeartEmoji()}, nil
	case CardWind:
		return &WindCard{ID: v.ID, Emoji: windEmoji}, nil
	case CardRecycle:
		return &RecycleCard{ID: v.ID, Emoji: recycleEmoji}, nil
	case CardShield:
		return &ShieldCard{ID: v.ID, Emoji: shieldEmoji}, nil
	}
	return nil, fmt.Errorf("unknown card type %q", v.Type)
}

// HandView converts a hand to serialized cards.
func HandView(hand []Card) []CardView {
	views := make([]CardView, len(hand))
	for i, c := range hand {
		views[i] = ViewOf(c)
	}
	return views
}
