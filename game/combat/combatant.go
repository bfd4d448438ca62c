package combat

import "fmt"

// ---------------------------------------------------------------------------
//  Vitals: shared hp and status bookkeeping for hero and enemy
// ---------------------------------------------------------------------------

// Vitals holds the fields status ticks operate on.
type Vitals struct {
	HP       int       `json:"hp"`
	HPMax    int       `json:"hp_max"`
	Statuses StatusSet `json:"statuses"`
}

// SetHP stores v clamped to [0, HPMax].
func (v *Vitals) SetHP(hp int) {
	v.HP = clamp(hp, 0, v.HPMax)
}

func (v *Vitals) IsDown() bool { return v.HP <= 0 }

// AddStatus applies e, replacing any effect of the same kind.
func (v *Vitals) AddStatus(e StatusEffect) {
	if v.Statuses == nil {
		v.Statuses = make(StatusSet, len(tickOrder))
	}
	v.Statuses[e.Kind] = e
}

func (v *Vitals) HasStatus(k StatusKind) bool {
	return v.Statuses.Has(k)
}

func (v Vitals) clone() Vitals {
	v.Statuses = v.Statuses.Clone()
	return v
}

func (v Vitals) validate(who string) error {
	if v.HPMax <= 0 {
		return fmt.Errorf("%s: hp_max %d must be positive", who, v.HPMax)
	}
	if v.HP < 0 || v.HP > v.HPMax {
		return fmt.Errorf("%s: hp %d outside [0,%d]", who, v.HP, v.HPMax)
	}
	if err := v.Statuses.Validate(); err != nil {
		return fmt.Errorf("%s: %w", who, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
//  Hero
// ---------------------------------------------------------------------------

type Weapon struct {
	Name string `json:"name"`
	Atk  int    `json:"atk"`
}

type Armor struct {
	Name string `json:"name"`
	Def  int    `json:"def"`
}

// Hero is the player character. It outlives encounters; combat and
// progression are the only code that mutate it during one.
type Hero struct {
	Vitals
	Level    int    `json:"level"`
	XP       int    `json:"xp"`
	XPToNext int    `json:"xp_to_next"`
	Gold     int    `json:"gold"`
	MP       int    `json:"mp"`
	MPMax    int    `json:"mp_max"`
	Atk      int    `json:"atk"`
	Def      int    `json:"def"`
	Potions  int    `json:"potions"`
	Weapon   Weapon `json:"weapon"`
	Armor    Armor  `json:"armor"`
}

// NewHero returns a level 1 hero with starting gear.
func NewHero() *Hero {
	return &Hero{
		Vitals:   Vitals{HP: 30, HPMax: 30, Statuses: StatusSet{}},
		Level:    1,
		XPToNext: 25,
		MP:       12,
		MPMax:    12,
		Atk:      6,
		Def:      2,
		Potions:  2,
		Weapon:   Weapon{Name: "Rusty Sword"},
		Armor:    Armor{Name: "Worn Coat"},
	}
}

// AttackPower is base attack plus the weapon bonus.
func (h *Hero) AttackPower() int { return h.Atk + h.Weapon.Atk }

// DefensePower is base defense plus the armor bonus.
func (h *Hero) DefensePower() int { return h.Def + h.Armor.Def }

// SetMP stores mp clamped to [0, MPMax].
func (h *Hero) SetMP(mp int) {
	h.MP = clamp(mp, 0, h.MPMax)
}

func (h *Hero) Clone() *Hero {
	c := *h
	c.Vitals = h.Vitals.clone()
	return &c
}

// Validate checks the hero's bounds.
func (h *Hero) Validate() error {
	if err := h.Vitals.validate("hero"); err != nil {
		return err
	}
	switch {
	case h.Level < 1:
		return fmt.Errorf("hero: level %d < 1", h.Level)
	case h.XPToNext <= 0:
		return fmt.Errorf("hero: xp_to_next %d must be positive", h.XPToNext)
	case h.XP < 0 || h.Gold < 0 || h.Potions < 0:
		return fmt.Errorf("hero: negative xp, gold or potions")
	case h.MPMax < 0 || h.MP < 0 || h.MP > h.MPMax:
		return fmt.Errorf("hero: mp %d outside [0,%d]", h.MP, h.MPMax)
	}
	return nil
}

// ---------------------------------------------------------------------------
//  Enemy
// ---------------------------------------------------------------------------

// Intent is the action an enemy chose for its current turn.
type Intent string

const (
	IntentAttack Intent = "attack"
	IntentDefend Intent = "defend"
	IntentEnrage Intent = "enrage"
	IntentPoison Intent = "poison"
	IntentBolt   Intent = "bolt"
)

func (i Intent) Valid() bool {
	switch i {
	case IntentAttack, IntentDefend, IntentEnrage, IntentPoison, IntentBolt:
		return true
	}
	return false
}

// Enemy is created per encounter and owned by its Session.
type Enemy struct {
	Vitals
	Name       string `json:"name"`
	Level      int    `json:"level"`
	Atk        int    `json:"atk"`
	Def        int    `json:"def"`
	XPReward   int    `json:"xp_reward"`
	GoldReward int    `json:"gold_reward"`
	Intent     Intent `json:"intent"`
	Enraged    bool   `json:"enraged"`
	IsBoss     bool   `json:"is_boss"`
}

func (e *Enemy) Clone() *Enemy {
	c := *e
	c.Vitals = e.Vitals.clone()
	return &c
}

func (e *Enemy) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("enemy: empty name")
	}
	if err := e.Vitals.validate("enemy " + e.Name); err != nil {
		return err
	}
	if e.Level < 1 {
		return fmt.Errorf("enemy %s: level %d < 1", e.Name, e.Level)
	}
	if !e.Intent.Valid() {
		return fmt.Errorf("enemy %s: unknown intent %q", e.Name, e.Intent)
	}
	return nil
}
