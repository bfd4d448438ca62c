package combat

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// HeroAction is a command the hero submits on its turn.
type HeroAction string

const (
	ActionAttack       HeroAction = "attack"
	ActionDefend       HeroAction = "defend"
	ActionHeal         HeroAction = "heal"
	ActionRun          HeroAction = "run"
	ActionFireball     HeroAction = "fireball"
	ActionPoisonStrike HeroAction = "poison_strike"
	ActionStunBash     HeroAction = "stun_bash"
)

// Skill mp costs and rider statuses.
const (
	FireballCost     = 4
	PoisonStrikeCost = 3
	StunBashCost     = 2

	burnChance = 0.35
	stunChance = 0.35

	burnTurns         = 3
	burnDamage        = 3
	heroPoisonTurns   = 4
	heroPoisonBase    = 2
	stunTurns         = 1
	enemyPoisonTurns  = 3
	enemyPoisonDamage = 2
)

// ErrUnknownAction is returned by ParseHeroAction.
var ErrUnknownAction = errors.New("unknown hero action")

var actionAliases = map[string]HeroAction{
	"attack":        ActionAttack,
	"defend":        ActionDefend,
	"heal":          ActionHeal,
	"potion":        ActionHeal,
	"run":           ActionRun,
	"fireball":      ActionFireball,
	"poison_strike": ActionPoisonStrike,
	"poison":        ActionPoisonStrike,
	"stun_bash":     ActionStunBash,
	"stun":          ActionStunBash,
}

// ParseHeroAction maps a client string to an action, case-insensitively.
func ParseHeroAction(s string) (HeroAction, error) {
	a, ok := actionAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
	}
	return a, nil
}

func (a HeroAction) Valid() bool {
	switch a {
	case ActionAttack, ActionDefend, ActionHeal, ActionRun,
		ActionFireball, ActionPoisonStrike, ActionStunBash:
		return true
	}
	return false
}

// skill describes an mp-costing hero action.
type skill struct {
	name     string
	cost     int
	atkBonus int
	variance int
	hitLine  string
}

var skills = map[HeroAction]skill{
	ActionFireball:     {"Fireball", FireballCost, FireballAtkBonus, VarianceFireball, "You cast Fireball for %d damage!"},
	ActionPoisonStrike: {"Poison Strike", PoisonStrikeCost, 0, VariancePoisonStrike, "You slash with Poison Strike for %d damage!"},
	ActionStunBash:     {"Stun Bash", StunBashCost, StunBashAtkBonus, VarianceStunBash, "You smash for %d damage!"},
}

// applyHeroAction resolves a on the session's combatants. It reports
// whether a Run succeeded.
func (s *Session) applyHeroAction(a HeroAction, out *TurnResult) (escaped bool) {
	h, e := s.hero, s.enemy

	switch a {
	case ActionAttack:
		dmg := Damage(s.rng, h.AttackPower(), e.Def, VarianceAttack)
		s.hitEnemy(dmg, out)
		out.logf("You attack %s for %d damage!", e.Name, dmg)
		s.lastAction = "attack"

	case ActionDefend:
		s.heroDefending = true
		out.logf("You defend (+%d DEF until the next hit).", DefendBonus)
		s.lastAction = "defend"

	case ActionHeal:
		before := h.HP
		amt, ok := DrinkPotion(h, s.rng)
		if !ok {
			out.logf("No potions left!")
			s.lastAction = "heal-fail"
			return false
		}
		out.heal(SideHero, h.HP-before)
		out.logf("You drink a potion and restore %d HP.", amt)
		s.lastAction = "heal"

	case ActionRun:
		if chance(s.rng, EscapeChance(h.Level, e.Level)) {
			s.lastAction = "run"
			return true
		}
		out.logf("You fail to run away!")
		s.lastAction = "run-fail"

	case ActionFireball, ActionPoisonStrike, ActionStunBash:
		sk := skills[a]
		if h.MP < sk.cost {
			out.logf("Not enough MP for %s!", sk.name)
			s.lastAction = string(a) + "-fail"
			return false
		}
		h.SetMP(h.MP - sk.cost)
		dmg := Damage(s.rng, h.AttackPower()+sk.atkBonus, e.Def, sk.variance)
		s.hitEnemy(dmg, out)
		out.logf(sk.hitLine, dmg)
		s.applySkillRider(a, out)
		s.lastAction = string(a)
	}
	return false
}

func (s *Session) applySkillRider(a HeroAction, out *TurnResult) {
	e := s.enemy
	switch a {
	case ActionFireball:
		if chance(s.rng, burnChance) {
			s.inflict(&e.Vitals, SideEnemy, Burn(burnTurns, burnDamage), out)
			out.logf("%s is burning!", e.Name)
		}
	case ActionPoisonStrike:
		dpt := heroPoisonBase + int(math.Floor(float64(s.hero.Level)/3))
		s.inflict(&e.Vitals, SideEnemy, Poison(heroPoisonTurns, dpt), out)
		out.logf("%s is poisoned!", e.Name)
	case ActionStunBash:
		if chance(s.rng, stunChance) {
			s.inflict(&e.Vitals, SideEnemy, Stun(stunTurns), out)
			out.logf("%s is stunned!", e.Name)
		}
	}
}

func (s *Session) hitEnemy(dmg int, out *TurnResult) {
	s.enemy.SetHP(s.enemy.HP - dmg)
	out.damage(SideEnemy, dmg)
}

func (s *Session) inflict(v *Vitals, side Side, eff StatusEffect, out *TurnResult) {
	v.AddStatus(eff)
	out.status(side, eff.Kind, StatusApplied)
}
