package world

import (
	"errors"
	"strings"

	"github.com/kasuganosora/miniquest/game/combat"
)

const (
	SignText       = "Sign: 'Beware the tall grass. Treasure lies beyond the walls.'"
	EmptyChestLine = "The chest is empty."
	NothingLine    = "Nothing to interact with."
)

// ErrChestKey is returned when a chest is opened without a key.
var ErrChestKey = errors.New("chest key required")

// ReadSign marks the sign as read and returns its text.
func (s *State) ReadSign() string {
	s.SignRead = true
	return SignText
}

// OpenChest loots the chest at key once. Later calls find it empty and
// return nil loot.
func (s *State) OpenChest(key string, hero *combat.Hero, rng combat.RNG) (string, *combat.ChestLoot, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", nil, ErrChestKey
	}
	if s.OpenedChests[key] {
		return EmptyChestLine, nil, nil
	}
	if s.OpenedChests == nil {
		s.OpenedChests = make(map[string]bool)
	}
	s.OpenedChests[key] = true
	loot := combat.RollChestLoot(rng, hero.Level)
	return hero.TakeLoot(&loot), &loot, nil
}
