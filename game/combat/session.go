package combat

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrInvalidState is returned when a persisted session cannot be restored.
var ErrInvalidState = errors.New("invalid combat state")

// SessionConfig configures a Session.
type SessionConfig struct {
	RNG    RNG         // required; shared with the rest of the game
	Policy Policy      // nil = DefaultPolicy
	Logger *zap.Logger // nil = no-op
}

// SessionState is the serializable part of a Session.
type SessionState struct {
	Enemy         *Enemy  `json:"enemy"`
	TurnOwner     Side    `json:"turn_owner"`
	HeroDefending bool    `json:"hero_defending"`
	LastAction    string  `json:"last_action,omitempty"`
	Outcome       Outcome `json:"outcome"`
}

// Validate checks that s describes a live encounter.
func (s *SessionState) Validate() error {
	if s.Enemy == nil {
		return fmt.Errorf("%w: missing enemy", ErrInvalidState)
	}
	if err := s.Enemy.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	if s.TurnOwner != SideHero && s.TurnOwner != SideEnemy {
		return fmt.Errorf("%w: turn owner %q", ErrInvalidState, s.TurnOwner)
	}
	if s.Outcome != OutcomeInProgress {
		return fmt.Errorf("%w: session already ended (%s)", ErrInvalidState, s.Outcome)
	}
	return nil
}

// Session runs one encounter between the hero and an enemy. It is not
// safe for concurrent use; the owning game serializes calls.
//
// Resolution is synchronous. After a hero action that hands the turn to
// the enemy, the result has EnemyTurnPending set and the caller runs
// ResolveEnemyTurn whenever it sees fit, immediately or after a delay.
type Session struct {
	hero  *Hero
	enemy *Enemy

	turnOwner     Side
	heroDefending bool
	lastAction    string
	outcome       Outcome

	rng    RNG
	policy Policy
	logger *zap.Logger
}

// NewSession opens an encounter. The hero moves first.
func NewSession(hero *Hero, enemy *Enemy, cfg SessionConfig) *Session {
	s := newSession(hero, cfg)
	s.enemy = enemy
	if s.enemy.Statuses == nil {
		s.enemy.Statuses = StatusSet{}
	}
	s.turnOwner = SideHero
	s.outcome = OutcomeInProgress
	s.logger.Debug("encounter started",
		zap.String("enemy", enemy.Name),
		zap.Int("enemy_level", enemy.Level),
		zap.Bool("boss", enemy.IsBoss))
	return s
}

// RestoreSession rebuilds a session from persisted state. The state is
// copied; hero is used by reference.
func RestoreSession(hero *Hero, st SessionState, cfg SessionConfig) (*Session, error) {
	if hero == nil {
		return nil, fmt.Errorf("%w: missing hero", ErrInvalidState)
	}
	if err := st.Validate(); err != nil {
		return nil, err
	}
	s := newSession(hero, cfg)
	s.enemy = st.Enemy.Clone()
	s.turnOwner = st.TurnOwner
	s.heroDefending = st.HeroDefending
	s.lastAction = st.LastAction
	s.outcome = st.Outcome
	return s, nil
}

func newSession(hero *Hero, cfg SessionConfig) *Session {
	if cfg.Policy == nil {
		cfg.Policy = DefaultPolicy{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Session{
		hero:   hero,
		rng:    cfg.RNG,
		policy: cfg.Policy,
		logger: cfg.Logger,
	}
}

func (s *Session) Outcome() Outcome { return s.outcome }

func (s *Session) TurnOwner() Side { return s.turnOwner }

func (s *Session) HeroDefending() bool { return s.heroDefending }

func (s *Session) LastAction() string { return s.lastAction }

// Enemy returns a copy of the enemy.
func (s *Session) Enemy() *Enemy { return s.enemy.Clone() }

// State returns a detached copy of the session for persistence.
func (s *Session) State() SessionState {
	return SessionState{
		Enemy:         s.enemy.Clone(),
		TurnOwner:     s.turnOwner,
		HeroDefending: s.heroDefending,
		LastAction:    s.lastAction,
		Outcome:       s.outcome,
	}
}

// Snapshot returns a display view that shares no memory with the session.
func (s *Session) Snapshot() Snapshot {
	e, h := s.enemy, s.hero
	return Snapshot{
		EnemyName:     e.Name,
		EnemyLevel:    e.Level,
		EnemyHP:       e.HP,
		EnemyHPMax:    e.HPMax,
		EnemyIntent:   e.Intent,
		EnemyStatuses: e.Statuses.Kinds(),
		IsBoss:        e.IsBoss,
		HeroHP:        h.HP,
		HeroHPMax:     h.HPMax,
		HeroMP:        h.MP,
		HeroMPMax:     h.MPMax,
		HeroStatuses:  h.Statuses.Kinds(),
		HeroDefending: s.heroDefending,
		TurnOwner:     s.turnOwner,
		Outcome:       s.outcome,
	}
}

func (s *Session) ignored() TurnResult {
	return TurnResult{Outcome: s.outcome, Ignored: true}
}

// ResolveHeroAction applies the hero's action, ticks the enemy's statuses
// and decides who moves next. Out of turn, after the end, or with an
// unknown action it changes nothing and returns an Ignored result.
func (s *Session) ResolveHeroAction(a HeroAction) TurnResult {
	if s.outcome != OutcomeInProgress || s.turnOwner != SideHero || !a.Valid() {
		return s.ignored()
	}
	out := TurnResult{Outcome: OutcomeInProgress}

	if s.applyHeroAction(a, &out) {
		out.logf("You escape!")
		s.finish(OutcomeEscape, &out)
		return out
	}

	e := s.enemy
	stunned := tickStatuses(&e.Vitals, SideEnemy, e.Name, &out)

	if e.IsDown() {
		s.victory(&out)
		return out
	}

	if stunned {
		out.logf("%s is stunned and skips its turn!", e.Name)
		s.turnOwner = SideHero
		return out
	}

	s.turnOwner = SideEnemy
	out.EnemyTurnPending = true
	return out
}

// ResolveEnemyTurn lets the enemy act, then ticks the hero's statuses.
// It is ignored unless the enemy holds the turn.
func (s *Session) ResolveEnemyTurn() TurnResult {
	if s.outcome != OutcomeInProgress || s.turnOwner != SideEnemy {
		return s.ignored()
	}
	out := TurnResult{Outcome: OutcomeInProgress}
	e, h := s.enemy, s.hero

	e.Intent = s.policy.Decide(e, h, s.rng)
	switch e.Intent {
	case IntentDefend:
		out.logf("%s braces for impact.", e.Name)

	case IntentEnrage:
		e.Enraged = true
		e.Atk += EnrageAtkBonus
		out.logf("%s becomes enraged! (+ATK)", e.Name)

	case IntentPoison:
		dmg := Damage(s.rng, e.Atk, s.heroDefense(), VariancePoisonBite)
		s.hitHero(dmg, &out)
		out.logf("%s uses Poison Bite for %d damage!", e.Name, dmg)
		s.inflict(&h.Vitals, SideHero, Poison(enemyPoisonTurns, enemyPoisonDamage), &out)
		out.logf("You are poisoned!")

	case IntentBolt:
		dmg := Damage(s.rng, e.Atk+ArcaneBoltAtkBonus, s.heroDefense(), VarianceArcaneBolt)
		s.hitHero(dmg, &out)
		out.logf("%s casts Arcane Bolt for %d damage!", e.Name, dmg)

	default:
		dmg := Damage(s.rng, e.Atk, s.heroDefense(), VarianceEnemyAttack)
		s.hitHero(dmg, &out)
		out.logf("%s attacks you for %d damage!", e.Name, dmg)
	}

	if h.IsDown() {
		s.defeat(&out)
		return out
	}

	stunned := tickStatuses(&h.Vitals, SideHero, "You", &out)
	if h.IsDown() {
		s.defeat(&out)
		return out
	}

	if stunned {
		out.logf("You are stunned and lose your turn!")
		out.EnemyTurnPending = true
		return out
	}

	s.turnOwner = SideHero
	return out
}

// Resolve runs a hero action and every enemy turn it unlocks, with no
// pacing in between.
func (s *Session) Resolve(a HeroAction) TurnResult {
	res := s.ResolveHeroAction(a)
	for res.EnemyTurnPending {
		res.Merge(s.ResolveEnemyTurn())
	}
	return res
}

func (s *Session) heroDefense() int {
	def := s.hero.DefensePower()
	if s.heroDefending {
		def += DefendBonus
	}
	return def
}

// hitHero applies an enemy hit; the defend bonus is spent by it.
func (s *Session) hitHero(dmg int, out *TurnResult) {
	s.hero.SetHP(s.hero.HP - dmg)
	out.damage(SideHero, dmg)
	s.heroDefending = false
}

func (s *Session) victory(out *TurnResult) {
	e := s.enemy
	out.logf("%s is defeated.", e.Name)
	rw := AwardVictory(s.hero, e, s.rng)
	out.logf("Victory! You gain +%d XP and +%d gold.", rw.XP, rw.Gold)
	if rw.BossDefeated {
		out.logf("Boss defeated! Return to the Elder in town.")
	}
	for _, lu := range rw.LevelUps {
		out.logf("Level up! Lv %d. +%d HP, +%d ATK, +%d DEF, +%d MP.",
			lu.Level, lu.HPGain, lu.AtkGain, lu.DefGain, lu.MPGain)
	}
	out.Rewards = &rw
	s.finish(OutcomeVictory, out)
}

func (s *Session) defeat(out *TurnResult) {
	out.logf("You are defeated... You wake up at full HP but lose some gold.")
	pen := ApplyDefeat(s.hero)
	out.logf("You dropped %d gold in the chaos.", pen.LostGold)
	out.Defeat = &pen
	s.finish(OutcomeDefeat, out)
}

func (s *Session) finish(o Outcome, out *TurnResult) {
	s.outcome = o
	s.heroDefending = false
	out.Outcome = o
	out.EnemyTurnPending = false
	s.logger.Info("encounter finished",
		zap.String("enemy", s.enemy.Name),
		zap.String("outcome", string(o)),
		zap.Int("hero_level", s.hero.Level),
		zap.String("last_action", s.lastAction))
}
