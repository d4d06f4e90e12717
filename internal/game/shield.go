// internal/game/shield.go
package game

import "time"

// DefaultShieldDuration is the number of turns a shield covers: the activating turn and the
// opponent's turn that follows.
const DefaultShieldDuration = 2

// Shield protects one player's hearts from the opponent's magic cards.
type Shield struct {
	Active            bool      `json:"active"`
	RemainingTurns    int       `json:"remainingTurns"`
	ProtectedPlayerID string    `json:"protectedPlayerId"`
	ActivatedBy       string    `json:"activatedBy"`
	ActivatedTurn     int       `json:"activatedTurn"`
	TurnActivated     int       `json:"turnActivated"`
	ActivatedAt       time.Time `json:"activatedAt"`
	Duration          int       `json:"duration"`
}

func (s *Shield) duration() int {
	if s.Duration > 0 {
		return s.Duration
	}
	return DefaultShieldDuration
}

// Remaining returns how many turns of protection are left at currentTurn.
func (s *Shield) Remaining(currentTurn int) int {
	r := s.ActivatedTurn + s.duration() - currentTurn
	if r < 0 {
		return 0
	}
	return r
}

// IsActive reports whether the shield still protects at currentTurn.
func (s *Shield) IsActive(currentTurn int) bool {
	return s.Active && s.Remaining(currentTurn) > 0
}

// refresh recomputes RemainingTurns and Active for currentTurn.
func (s *Shield) refresh(currentTurn int) {
	s.RemainingTurns = s.Remaining(currentTurn)
	if s.RemainingTurns == 0 {
		s.Active = false
	}
}

func newShield(playerID string, turn, duration int) *Shield {
	s := &Shield{
		Active:            true,
		ProtectedPlayerID: playerID,
		ActivatedBy:       playerID,
		ActivatedTurn:     turn,
		TurnActivated:     turn,
		ActivatedAt:       time.Now(),
		Duration:          duration,
	}
	s.RemainingTurns = s.Remaining(turn)
	return s
}

// ActiveShield returns playerID's shield if it is active at the current turn.
func (gs *GameState) ActiveShield(playerID string) *Shield {
	s, ok := gs.Shields[playerID]
	if !ok {
		return nil
	}
	s.refresh(gs.TurnCount)
	if !s.Active {
		return nil
	}
	return s
}

// ExpireShields recomputes every shield and deletes those that are no longer active.
// Returns the ids of players whose shield expired.
func (gs *GameState) ExpireShields() []string {
	var expired []string
	for id, s := range gs.Shields {
		s.refresh(gs.TurnCount)
		if !s.Active {
			delete(gs.Shields, id)
			expired = append(expired, id)
		}
	}
	return expired
}

// IsPlayerShielded reports whether playerID currently holds an active shield.
func (gs *GameState) IsPlayerShielded(playerID string) bool {
	return gs.ActiveShield(playerID) != nil
}
