package combat

import "math"

// DefeatGoldLoss is the fraction of gold dropped on defeat.
const DefeatGoldLoss = 0.25

// AwardVictory credits the enemy's rewards to the hero and runs the
// level-up loop. Boss bookkeeping is the caller's.
func AwardVictory(h *Hero, e *Enemy, rng RNG) Rewards {
	h.XP += e.XPReward
	h.Gold += e.GoldReward
	return Rewards{
		XP:           e.XPReward,
		Gold:         e.GoldReward,
		BossDefeated: e.IsBoss,
		LevelUps:     LevelUps(h, rng),
	}
}

// LevelUps levels the hero until xp < xpToNext and returns one entry per level.
func LevelUps(h *Hero, rng RNG) []LevelUp {
	var ups []LevelUp
	for h.XP >= h.XPToNext {
		h.XP -= h.XPToNext
		h.Level++

		hpGain := 6 + rollInt(rng, 0, 3)
		atkGain := 1
		if chance(rng, 0.5) {
			atkGain++
		}
		defGain := 0
		if chance(rng, 0.6) {
			defGain = 1
		}
		mpGain := 3 + rollInt(rng, 0, 2)

		h.HPMax += hpGain
		h.Atk += atkGain
		h.Def += defGain
		h.MPMax += mpGain
		h.HP = h.HPMax
		h.MP = h.MPMax
		h.XPToNext = roundHalfUp(float64(h.XPToNext)*1.35 + 10)

		ups = append(ups, LevelUp{
			Level:   h.Level,
			HPGain:  hpGain,
			AtkGain: atkGain,
			DefGain: defGain,
			MPGain:  mpGain,
		})
	}
	return ups
}

// ApplyDefeat takes the gold penalty and fully restores the hero.
func ApplyDefeat(h *Hero) DefeatPenalty {
	lost := int(math.Floor(float64(h.Gold) * DefeatGoldLoss))
	h.Gold -= lost
	h.HP = h.HPMax
	h.MP = h.MPMax
	return DefeatPenalty{LostGold: lost}
}

// PotionHealAmount is the hp one potion restores before clamping.
func PotionHealAmount(h *Hero, rng RNG) int {
	return roundHalfUp(float64(h.HPMax)*0.35) + rollInt(rng, 2, 6)
}

// DrinkPotion consumes one potion and heals. It returns the rolled amount
// and false when no potion is left.
func DrinkPotion(h *Hero, rng RNG) (int, bool) {
	if h.Potions <= 0 {
		return 0, false
	}
	h.Potions--
	amt := PotionHealAmount(h, rng)
	h.SetHP(h.HP + amt)
	return amt, true
}
