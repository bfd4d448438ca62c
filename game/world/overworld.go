package world

import "github.com/kasuganosora/miniquest/game/combat"

// Overworld turns hero movement into encounters.
type Overworld struct {
	rng combat.RNG
	gen *combat.Generator
}

func NewOverworld(rng combat.RNG, gen *combat.Generator) *Overworld {
	return &Overworld{rng: rng, gen: gen}
}

// OnEncounterRoll rolls once for a random fight on tile. It returns nil
// when nothing appears; tiles without an encounter rate draw nothing.
func (o *Overworld) OnEncounterRoll(tile Tile, heroLevel int) *combat.Enemy {
	p := tile.EncounterRate()
	if p <= 0 || o.rng.Float64() >= p {
		return nil
	}
	return o.gen.Spawn(heroLevel)
}

// OnBossTileEntered spawns the boss.
func (o *Overworld) OnBossTileEntered(heroLevel int) *combat.Enemy {
	return o.gen.SpawnBoss(heroLevel)
}

// Step evaluates a successful move onto tile. An undefeated boss on a boss
// tile short-circuits the random roll.
func (o *Overworld) Step(tile Tile, heroLevel int, w *State) (enemy *combat.Enemy, boss bool) {
	if tile == TileBoss && !w.BossDefeated {
		return o.OnBossTileEntered(heroLevel), true
	}
	return o.OnEncounterRoll(tile, heroLevel), false
}
