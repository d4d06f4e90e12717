// internal/game/board.go
package game

import (
	"encoding/json"
	"math/rand"
	"time"
)

// BoardSize is the fixed number of tiles on the shared board.
const BoardSize = 8

// Color is a tile or heart color.
type Color string

const (
	ColorRed    Color = "red"
	ColorYellow Color = "yellow"
	ColorGreen  Color = "green"
	ColorWhite  Color = "white"
)

// heartColors are the colors a heart card (and a non-white tile) can take.
var heartColors = []Color{ColorRed, ColorYellow, ColorGreen}

var tileEmojis = map[Color]string{
	ColorRed:    "🟥",
	ColorYellow: "🟨",
	ColorGreen:  "🟩",
	ColorWhite:  "⬜",
}

var heartEmojis = map[Color]string{
	ColorRed:    "❤️",
	ColorYellow: "💛",
	ColorGreen:  "💚",
}

// TileEmoji returns the render hint for an empty tile of this color.
func (c Color) TileEmoji() string {
	return tileEmojis[c]
}

// HeartEmoji returns the render hint for a heart of this color.
func (c Color) HeartEmoji() string {
	return heartEmojis[c]
}

// IsHeartColor reports whether c is a color a heart card can have.
func (c Color) IsHeartColor() bool {
	_, ok := heartEmojis[c]
	return ok
}

// Random is the source of randomness for dealing and board generation.
// Tests substitute a scripted implementation.
type Random interface {
	// Intn returns a random int in [0, n)
	Intn(n int) int
}

type mathRandom struct {
	r *rand.Rand
}

// NewRandom returns a Random seeded from the clock. It is not safe for concurrent use;
// each room owns its own instance and only touches it under the room lock.
func NewRandom() Random {
	return &mathRandom{r: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (m *mathRandom) Intn(n int) int {
	return m.r.Intn(n)
}

// shuffle is a Fisher-Yates shuffle driven by Random so that it is reproducible under test.
func shuffle(r Random, n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		swap(i, j)
	}
}

// HeartPlacement records a heart that sits on a tile.
type HeartPlacement struct {
	CardID            string `json:"cardId"`
	Color             Color  `json:"color"`
	Value             int    `json:"value"`
	Emoji             string `json:"emoji"`
	PlacedBy          string `json:"placedBy"`
	OriginalTileColor Color  `json:"originalTileColor"`
	Score             int    `json:"score"` // points credited to PlacedBy when placed
}

// Tile is one slot on the board. Color is the base color and is only changed by a Recycle
// effect; the displayed color and emoji are derived from the placed heart while occupied.
type Tile struct {
	ID          int
	Color       Color
	PlacedHeart *HeartPlacement
}

// DisplayColor returns the color a client should render for this tile.
func (t *Tile) DisplayColor() Color {
	if t.PlacedHeart != nil {
		return t.PlacedHeart.Color
	}
	return t.Color
}

// DisplayEmoji returns the emoji a client should render for this tile.
func (t *Tile) DisplayEmoji() string {
	if t.PlacedHeart != nil {
		return t.PlacedHeart.Emoji
	}
	return t.Color.TileEmoji()
}

// IsEmpty reports whether no heart is placed on the tile.
func (t *Tile) IsEmpty() bool {
	return t.PlacedHeart == nil
}

type tileJSON struct {
	ID          int             `json:"id"`
	Color       Color           `json:"color"`
	Emoji       string          `json:"emoji"`
	BaseColor   Color           `json:"baseColor"`
	PlacedHeart *HeartPlacement `json:"placedHeart"`
}

// MarshalJSON writes the displayed color and emoji alongside the base color.
func (t Tile) MarshalJSON() ([]byte, error) {
	return json.Marshal(tileJSON{
		ID:          t.ID,
		Color:       t.DisplayColor(),
		Emoji:       t.DisplayEmoji(),
		BaseColor:   t.Color,
		PlacedHeart: t.PlacedHeart,
	})
}

// UnmarshalJSON restores a tile written by MarshalJSON. Older records without a base color
// fall back to the placed heart's original tile color, then to the displayed color.
func (t *Tile) UnmarshalJSON(data []byte) error {
	var raw tileJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t.ID = raw.ID
	t.PlacedHeart = raw.PlacedHeart
	switch {
	case raw.BaseColor != "":
		t.Color = raw.BaseColor
	case raw.PlacedHeart != nil && raw.PlacedHeart.OriginalTileColor != "":
		t.Color = raw.PlacedHeart.OriginalTileColor
	default:
		t.Color = raw.Color
	}
	return nil
}

// GenerateTiles builds a fresh board. Each tile is independently white with the configured
// probability, otherwise one of the heart colors chosen uniformly.
func GenerateTiles(r Random, rules Rules) []*Tile {
	whitePercent := int(rules.WhiteTileProbability * 100)
	tiles := make([]*Tile, BoardSize)
	for i := range tiles {
		color := ColorWhite
		if r.Intn(100) >= whitePercent {
			color = heartColors[r.Intn(len(heartColors))]
		}
		tiles[i] = &Tile{ID: i, Color: color}
	}
	return tiles
}

// Deck is a supply counter. Cards are generated on draw; only the remaining count is tracked.
type Deck struct {
	Type  CardType `json:"type"`
	Emoji string   `json:"emoji"`
	Cards int      `json:"cards"`
}

// IsEmpty reports whether the supply is exhausted.
func (d *Deck) IsEmpty() bool {
	return d.Cards <= 0
}

func newHeartDeck(size int) Deck {
	return Deck{Type: CardHeart, Emoji: "💌", Cards: size}
}

func newMagicDeck(size int) Deck {
	return Deck{Type: CardMagic, Emoji: "🔮", Cards: size}
}

// magic card weights per 16 cards: 6 wind, 5 recycle, 5 shield
const (
	windWeight    = 6
	recycleWeight = 5
	shieldWeight  = 5
	magicWeights  = windWeight + recycleWeight + shieldWeight
)

// NewRandomHeartCard draws a heart with a uniform color and a value in 1..3.
func NewRandomHeartCard(r Random) *HeartCard {
	color := heartColors[r.Intn(len(heartColors))]
	value := r.Intn(3) + 1
	return NewHeartCard(color, value)
}

// NewRandomMagicCard draws a single magic card using the 6:5:5 weighting.
func NewRandomMagicCard(r Random) Card {
	n := r.Intn(magicWeights)
	switch {
	case n < windWeight:
		return NewWindCard()
	case n < windWeight+recycleWeight:
		return NewRecycleCard()
	default:
		return NewShieldCard()
	}
}

// GenerateMagicDeck builds a shuffled deck of size cards split 6:5:5 between wind,
// recycle and shield. Rounding remainders go to shield.
func GenerateMagicDeck(r Random, size int) []Card {
	winds := size * windWeight / magicWeights
	recycles := size * recycleWeight / magicWeights
	deck := make([]Card, 0, size)
	for i := 0; i < size; i++ {
		switch {
		case i < winds:
			deck = append(deck, NewWindCard())
		case i < winds+recycles:
			deck = append(deck, NewRecycleCard())
		default:
			deck = append(deck, NewShieldCard())
		}
	}
	shuffle(r, len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
	return deck
}

// dealOpeningHand returns the starting hand for one player.
func dealOpeningHand(r Random, rules Rules) []Card {
	hand := make([]Card, 0, rules.OpeningHearts+rules.OpeningMagic)
	for i := 0; i < rules.OpeningHearts; i++ {
		hand = append(hand, NewRandomHeartCard(r))
	}
	magic := GenerateMagicDeck(r, magicWeights)
	for i := 0; i < rules.OpeningMagic && i < len(magic); i++ {
		hand = append(hand, magic[i])
	}
	return hand
}
