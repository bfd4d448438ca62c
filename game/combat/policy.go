package combat

// Policy chooses the enemy's action for a turn.
type Policy interface {
	Decide(enemy *Enemy, hero *Hero, rng RNG) Intent
}

const (
	smartBoss    = 0.45
	smartRegular = 0.22

	braceChance     = 0.25 // chance to brace while poisoned or burning
	enrageThreshold = 0.35 // fraction of hp_max at or below which enrage is possible
	boltFactor      = 0.6  // bolt chance as a fraction of smart

	EnrageAtkBonus = 3
)

// DefaultPolicy walks a fixed priority list; each roll is drawn only when
// its guard holds, so the number of RNG draws depends on the state.
type DefaultPolicy struct{}

func (DefaultPolicy) Decide(e *Enemy, h *Hero, rng RNG) Intent {
	smart := smartRegular
	if e.IsBoss {
		smart = smartBoss
	}

	if (e.HasStatus(StatusPoison) || e.HasStatus(StatusBurn)) && chance(rng, braceChance) {
		return IntentDefend
	}
	if float64(e.HP) <= float64(e.HPMax)*enrageThreshold && !e.Enraged && chance(rng, smart) {
		return IntentEnrage
	}
	if !h.HasStatus(StatusPoison) && chance(rng, smart) {
		return IntentPoison
	}
	if chance(rng, smart*boltFactor) {
		return IntentBolt
	}
	return IntentAttack
}
