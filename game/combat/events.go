package combat

import "fmt"

// Side identifies a combatant in events and turn ownership.
type Side string

const (
	SideHero  Side = "hero"
	SideEnemy Side = "enemy"
)

// Outcome is the session's terminal state, or InProgress.
type Outcome string

const (
	OutcomeInProgress Outcome = "in_progress"
	OutcomeVictory    Outcome = "victory"
	OutcomeEscape     Outcome = "escape"
	OutcomeDefeat     Outcome = "defeat"
)

// StatusChange tells whether a status event applied or removed an effect.
type StatusChange string

const (
	StatusApplied StatusChange = "applied"
	StatusExpired StatusChange = "expired"
)

// DamageEvent is hp lost by one side; Amount is always positive.
type DamageEvent struct {
	Target Side `json:"target"`
	Amount int  `json:"amount"`
}

// HealEvent is hp actually restored, after clamping to hp_max.
type HealEvent struct {
	Target Side `json:"target"`
	Amount int  `json:"amount"`
}

type StatusEvent struct {
	Target Side         `json:"target"`
	Kind   StatusKind   `json:"kind"`
	Change StatusChange `json:"change"`
}

type LevelUp struct {
	Level   int `json:"level"`
	HPGain  int `json:"hp_gain"`
	AtkGain int `json:"atk_gain"`
	DefGain int `json:"def_gain"`
	MPGain  int `json:"mp_gain"`
}

type Rewards struct {
	XP           int       `json:"xp"`
	Gold         int       `json:"gold"`
	BossDefeated bool      `json:"boss_defeated"`
	LevelUps     []LevelUp `json:"level_ups,omitempty"`
}

type DefeatPenalty struct {
	LostGold int `json:"lost_gold"`
}

// TurnResult is everything one resolution step produced, for the UI.
type TurnResult struct {
	LogLines     []string      `json:"log_lines"`
	DamageEvents []DamageEvent `json:"damage_events,omitempty"`
	HealEvents   []HealEvent   `json:"heal_events,omitempty"`
	StatusEvents []StatusEvent `json:"status_events,omitempty"`
	Outcome      Outcome       `json:"outcome"`

	// Ignored is set when the call was out of turn and changed nothing.
	Ignored bool `json:"ignored,omitempty"`
	// EnemyTurnPending asks the caller to run ResolveEnemyTurn next.
	EnemyTurnPending bool `json:"enemy_turn_pending,omitempty"`

	Rewards *Rewards       `json:"rewards,omitempty"`
	Defeat  *DefeatPenalty `json:"defeat,omitempty"`
}

func (r *TurnResult) logf(format string, args ...any) {
	r.LogLines = append(r.LogLines, fmt.Sprintf(format, args...))
}

func (r *TurnResult) damage(target Side, amount int) {
	r.DamageEvents = append(r.DamageEvents, DamageEvent{Target: target, Amount: amount})
}

func (r *TurnResult) heal(target Side, amount int) {
	if amount > 0 {
		r.HealEvents = append(r.HealEvents, HealEvent{Target: target, Amount: amount})
	}
}

func (r *TurnResult) status(target Side, kind StatusKind, change StatusChange) {
	r.StatusEvents = append(r.StatusEvents, StatusEvent{Target: target, Kind: kind, Change: change})
}

// Merge appends next to r; next's outcome and pending flag win.
func (r *TurnResult) Merge(next TurnResult) {
	r.LogLines = append(r.LogLines, next.LogLines...)
	r.DamageEvents = append(r.DamageEvents, next.DamageEvents...)
	r.HealEvents = append(r.HealEvents, next.HealEvents...)
	r.StatusEvents = append(r.StatusEvents, next.StatusEvents...)
	r.Outcome = next.Outcome
	r.EnemyTurnPending = next.EnemyTurnPending
	if next.Rewards != nil {
		r.Rewards = next.Rewards
	}
	if next.Defeat != nil {
		r.Defeat = next.Defeat
	}
}

// Snapshot is a detached view of a session for display.
type Snapshot struct {
	EnemyName     string       `json:"enemy_name"`
	EnemyLevel    int          `json:"enemy_level"`
	EnemyHP       int          `json:"enemy_hp"`
	EnemyHPMax    int          `json:"enemy_hp_max"`
	EnemyIntent   Intent       `json:"enemy_intent"`
	EnemyStatuses []StatusKind `json:"enemy_statuses,omitempty"`
	IsBoss        bool         `json:"is_boss"`

	HeroHP        int          `json:"hero_hp"`
	HeroHPMax     int          `json:"hero_hp_max"`
	HeroMP        int          `json:"hero_mp"`
	HeroMPMax     int          `json:"hero_mp_max"`
	HeroStatuses  []StatusKind `json:"hero_statuses,omitempty"`
	HeroDefending bool         `json:"hero_defending"`

	TurnOwner Side    `json:"turn_owner"`
	Outcome   Outcome `json:"outcome"`
}
