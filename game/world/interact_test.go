package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/miniquest/game/combat"
)

func TestOpenChest_OnlyOnce(t *testing.T) {
	w := NewState()
	hero := combat.NewHero()

	// potion, gear, weapon, common; ints stay at zero
	rng := &floatRNG{floats: []float64{0.1, 0.1, 0.1, 0.1}}
	line, loot, err := w.OpenChest("dungeon:3,4", hero, rng)
	require.NoError(t, err)
	require.NotNil(t, loot)
	assert.Equal(t, "You open the chest: +8 gold and +1 potion and equipped Common Plain Iron Dagger (+1 ATK)!", line)
	assert.True(t, loot.Equipped)
	assert.Equal(t, combat.Weapon{Name: "Common Plain Iron Dagger", Atk: 1}, hero.Weapon)
	assert.Equal(t, 8, hero.Gold)
	assert.True(t, w.OpenedChests["dungeon:3,4"])

	line, loot, err = w.OpenChest("dungeon:3,4", hero, rng)
	require.NoError(t, err)
	assert.Nil(t, loot)
	assert.Equal(t, EmptyChestLine, line)
	assert.Equal(t, 8, hero.Gold)

	// another chest is still full
	_, loot, err = w.OpenChest("town:1,1", hero, rng)
	require.NoError(t, err)
	assert.NotNil(t, loot)
}

func TestOpenChest_NeedsKey(t *testing.T) {
	w := NewState()
	_, _, err := w.OpenChest("  ", combat.NewHero(), &floatRNG{})
	assert.ErrorIs(t, err, ErrChestKey)
	assert.Empty(t, w.OpenedChests)
}

func TestClone_CopiesOpenedChests(t *testing.T) {
	w := NewState()
	_, _, err := w.OpenChest("a", combat.NewHero(), &floatRNG{})
	require.NoError(t, err)

	c := w.Clone()
	c.OpenedChests["b"] = true
	assert.False(t, w.OpenedChests["b"])
}

func TestReadSign(t *testing.T) {
	w := NewState()
	assert.Equal(t, SignText, w.ReadSign())
	assert.True(t, w.SignRead)
}
