package combat

import (
	"math"

	"github.com/kasuganosora/miniquest/resource"
)

const (
	maxEnemyLevel  = 99
	levelScaleStep = 0.12
	bossName       = "Dungeon Beast"
	bossMinLevel   = 3
	bossGoldReward = 50
)

// Generator spawns enemies for encounters.
type Generator struct {
	rng        RNG
	archetypes []resource.EnemyArchetype
}

// NewGenerator builds a generator; an empty table falls back to the defaults.
func NewGenerator(rng RNG, archetypes []resource.EnemyArchetype) *Generator {
	if len(archetypes) == 0 {
		archetypes = resource.DefaultArchetypes()
	}
	return &Generator{rng: rng, archetypes: archetypes}
}

// Spawn creates a random enemy within one level of heroLevel.
func (g *Generator) Spawn(heroLevel int) *Enemy {
	base := g.archetypes[rollInt(g.rng, 0, len(g.archetypes)-1)]
	lv := clamp(heroLevel+rollInt(g.rng, -1, 1), 1, maxEnemyLevel)
	scale := 1 + float64(lv-1)*levelScaleStep
	hp := roundHalfUp(float64(base.HP) * scale)

	return &Enemy{
		Vitals:     Vitals{HP: hp, HPMax: hp, Statuses: StatusSet{}},
		Name:       base.Name,
		Level:      lv,
		Atk:        roundHalfUp(float64(base.Atk) * scale),
		Def:        roundHalfUp(float64(base.Def) * scale),
		XPReward:   roundHalfUp(float64(base.XP) * scale),
		GoldReward: rollInt(g.rng, base.GoldMin, base.GoldMax) + lv/2,
		Intent:     IntentAttack,
	}
}

// SpawnBoss creates the dungeon boss scaled to heroLevel. It draws no randomness.
func (g *Generator) SpawnBoss(heroLevel int) *Enemy {
	hp := 80 + 10*heroLevel
	lv := heroLevel + 1
	if lv < bossMinLevel {
		lv = bossMinLevel
	}
	return &Enemy{
		Vitals:     Vitals{HP: hp, HPMax: hp, Statuses: StatusSet{}},
		Name:       bossName,
		Level:      lv,
		Atk:        10 + int(math.Floor(1.2*float64(heroLevel))),
		Def:        4 + heroLevel/2,
		XPReward:   60 + 10*heroLevel,
		GoldReward: bossGoldReward,
		Intent:     IntentAttack,
		IsBoss:     true,
	}
}
