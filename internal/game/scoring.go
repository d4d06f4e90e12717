// internal/game/scoring.go
package game

// CalculateScore returns the points a heart earns on a tile: its value on a white tile,
// double on a tile of the same color, nothing otherwise. tile.Color is the base color,
// so this gives the same answer before and after placement.
func CalculateScore(heart *HeartCard, tile *Tile) int {
	return scoreFor(heart.Color, heart.Value, tile.Color)
}

func scoreFor(heartColor Color, value int, tileColor Color) int {
	switch {
	case tileColor == ColorWhite:
		return value
	case tileColor == heartColor:
		return value * 2
	default:
		return 0
	}
}

// RecalculateScores rebuilds every player's score from the hearts currently on the board.
// Assumes lock is held by caller.
func (r *Room) RecalculateScores() {
	totals := make(map[string]int, len(r.Players))
	for _, t := range r.GameState.Tiles {
		if t.PlacedHeart == nil {
			continue
		}
		base := t.PlacedHeart.OriginalTileColor
		if base == "" {
			base = t.Color
		}
		s := scoreFor(t.PlacedHeart.Color, t.PlacedHeart.Value, base)
		t.PlacedHeart.Score = s
		totals[t.PlacedHeart.PlacedBy] += s
	}
	for _, p := range r.Players {
		p.Score = totals[p.UserID]
	}
}
