package combat

// Damage bounds.
const (
	MinDamage = 1
	MaxDamage = 999
)

// Per-action variance and attack modifiers.
const (
	VarianceAttack       = 2
	VarianceFireball     = 3
	VariancePoisonStrike = 2
	VarianceStunBash     = 1
	VarianceEnemyAttack  = 2
	VariancePoisonBite   = 1
	VarianceArcaneBolt   = 3

	FireballAtkBonus   = 4
	StunBashAtkBonus   = 1
	ArcaneBoltAtkBonus = 3

	// DefendBonus is added to the hero's defense for the next incoming hit.
	DefendBonus = 3
)

// Damage computes one hit: attack minus defense plus a uniform roll in
// [-variance, variance], clamped to [MinDamage, MaxDamage].
func Damage(rng RNG, attackerAtk, defenderDef, variance int) int {
	raw := attackerAtk - defenderDef
	roll := rollInt(rng, -variance, variance)
	return clamp(raw+roll, MinDamage, MaxDamage)
}

// EscapeChance is the probability a Run attempt succeeds.
func EscapeChance(heroLevel, enemyLevel int) float64 {
	p := 0.45 + 0.05*float64(heroLevel-enemyLevel)
	if p < 0.15 {
		return 0.15
	}
	if p > 0.9 {
		return 0.9
	}
	return p
}
