// internal/game/rules.go
package game

import (
	"errors"
	"fmt"
)

// Rules are the tunable constants of a room. DefaultRules gives the standard game.
type Rules struct {
	HeartsPerTurn        int     `json:"heartsPerTurn"`        // hearts a player may place per turn
	MagicPerTurn         int     `json:"magicPerTurn"`         // magic cards a player may use per turn
	OpeningHearts        int     `json:"openingHearts"`        // hearts dealt to each player at game start
	OpeningMagic         int     `json:"openingMagic"`         // magic cards dealt to each player at game start
	HeartDeckSize        int     `json:"heartDeckSize"`        // heart draws available for the whole game
	MagicDeckSize        int     `json:"magicDeckSize"`        // magic draws available for the whole game
	ShieldDuration       int     `json:"shieldDuration"`       // turns covered by a shield, activation turn included
	WhiteTileProbability float64 `json:"whiteTileProbability"` // chance that a generated tile is white
}

// DefaultRules returns the standard two-player configuration.
func DefaultRules() Rules {
	return Rules{
		HeartsPerTurn:        2,
		MagicPerTurn:         1,
		OpeningHearts:        3,
		OpeningMagic:         2,
		HeartDeckSize:        16,
		MagicDeckSize:        16,
		ShieldDuration:       DefaultShieldDuration,
		WhiteTileProbability: 0.3,
	}
}

// Update will update the rules with the new values provided.
// If a rule is not set or defined, it will be ignored, and the old value will persist.
func (rules *Rules) Update(newRules map[string]interface{}) error {
	var err error

	assignInt := func(field *int, key string, minVal int) error {
		val, exists := newRules[key]
		if !exists || val == nil {
			return nil
		}
		var n int
		switch v := val.(type) {
		case float64: // JSON numbers decode as float64
			n = int(v)
		case int:
			n = v
		default:
			return fmt.Errorf("invalid type for %s", key)
		}
		if n < minVal {
			return fmt.Errorf("%s must be at least %d", key, minVal)
		}
		*field = n
		return nil
	}

	assignProbability := func(field *float64, key string) error {
		val, exists := newRules[key]
		if !exists || val == nil {
			return nil
		}
		f, ok := val.(float64)
		if !ok {
			return fmt.Errorf("invalid type for %s", key)
		}
		if f < 0 || f > 1 {
			return fmt.Errorf("%s must be between 0 and 1", key)
		}
		*field = f
		return nil
	}

	if err = assignInt(&rules.HeartsPerTurn, "heartsPerTurn", 1); err != nil {
		return err
	}
	if err = assignInt(&rules.MagicPerTurn, "magicPerTurn", 1); err != nil {
		return err
	}
	if err = assignInt(&rules.OpeningHearts, "openingHearts", 0); err != nil {
		return err
	}
	if err = assignInt(&rules.OpeningMagic, "openingMagic", 0); err != nil {
		return err
	}
	if err = assignInt(&rules.HeartDeckSize, "heartDeckSize", 0); err != nil {
		return err
	}
	if err = assignInt(&rules.MagicDeckSize, "magicDeckSize", 0); err != nil {
		return err
	}
	if err = assignInt(&rules.ShieldDuration, "shieldDuration", 1); err != nil {
		return err
	}
	if err = assignProbability(&rules.WhiteTileProbability, "whiteTileProbability"); err != nil {
		return err
	}

	if rules.OpeningMagic > magicWeights {
		return errors.New("openingMagic cannot exceed the size of a generated magic deck")
	}
	return nil
}

// ParseRules applies a map of overrides on top of current without modifying it.
func ParseRules(overrides map[string]interface{}, current Rules) (Rules, error) {
	rules := current
	err := rules.Update(overrides)
	return rules, err
}
