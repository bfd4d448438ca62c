package combat

import "fmt"

// StatusKind is the closed set of status effects.
type StatusKind string

const (
	StatusPoison StatusKind = "poison"
	StatusBurn   StatusKind = "burn"
	StatusStun   StatusKind = "stun"
)

// tickOrder is the fixed order effects resolve in.
var tickOrder = [...]StatusKind{StatusPoison, StatusBurn, StatusStun}

// Valid reports whether k is one of the known kinds.
func (k StatusKind) Valid() bool {
	switch k {
	case StatusPoison, StatusBurn, StatusStun:
		return true
	}
	return false
}

// StatusEffect is one active effect. DamagePerTurn is always 0 for Stun.
type StatusEffect struct {
	Kind           StatusKind `json:"kind"`
	RemainingTurns int        `json:"remaining_turns"`
	DamagePerTurn  int        `json:"damage_per_turn,omitempty"`
}

func Poison(turns, damagePerTurn int) StatusEffect {
	return StatusEffect{Kind: StatusPoison, RemainingTurns: turns, DamagePerTurn: damagePerTurn}
}

func Burn(turns, damagePerTurn int) StatusEffect {
	return StatusEffect{Kind: StatusBurn, RemainingTurns: turns, DamagePerTurn: damagePerTurn}
}

func Stun(turns int) StatusEffect {
	return StatusEffect{Kind: StatusStun, RemainingTurns: turns}
}

// Validate checks the payload against its kind.
func (e StatusEffect) Validate() error {
	if !e.Kind.Valid() {
		return fmt.Errorf("unknown status kind %q", e.Kind)
	}
	if e.RemainingTurns < 1 {
		return fmt.Errorf("status %s: remaining turns %d < 1", e.Kind, e.RemainingTurns)
	}
	if e.DamagePerTurn < 0 {
		return fmt.Errorf("status %s: negative damage per turn", e.Kind)
	}
	if e.Kind == StatusStun && e.DamagePerTurn != 0 {
		return fmt.Errorf("status stun carries damage")
	}
	return nil
}

// StatusSet holds at most one effect per kind.
type StatusSet map[StatusKind]StatusEffect

func (s StatusSet) Has(k StatusKind) bool {
	_, ok := s[k]
	return ok
}

// Kinds lists present kinds in tick order.
func (s StatusSet) Kinds() []StatusKind {
	var out []StatusKind
	for _, k := range tickOrder {
		if s.Has(k) {
			out = append(out, k)
		}
	}
	return out
}

func (s StatusSet) Clone() StatusSet {
	out := make(StatusSet, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Validate checks every entry and that each is stored under its own kind.
func (s StatusSet) Validate() error {
	for k, e := range s {
		if k != e.Kind {
			return fmt.Errorf("status stored under %q has kind %q", k, e.Kind)
		}
		if err := e.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// tickStatuses advances every effect on v by one turn, in tick order.
// It reports whether v carried Stun before the tick; such an owner loses
// its next turn.
func tickStatuses(v *Vitals, side Side, label string, out *TurnResult) (stunned bool) {
	if len(v.Statuses) == 0 {
		return false
	}
	for _, k := range tickOrder {
		e, ok := v.Statuses[k]
		if !ok {
			continue
		}
		switch k {
		case StatusPoison, StatusBurn:
			v.SetHP(v.HP - e.DamagePerTurn)
			out.damage(side, e.DamagePerTurn)
			out.logf("%s %s %d %s damage.", label, tickVerb(side, k), e.DamagePerTurn, k)
		case StatusStun:
			stunned = true
		}
		e.RemainingTurns--
		if e.RemainingTurns <= 0 {
			delete(v.Statuses, k)
			out.status(side, k, StatusExpired)
		} else {
			v.Statuses[k] = e
		}
	}
	return stunned
}

func tickVerb(side Side, k StatusKind) string {
	switch {
	case side == SideHero && k == StatusPoison:
		return "suffer"
	case side == SideHero:
		return "take"
	case k == StatusPoison:
		return "suffers"
	default:
		return "takes"
	}
}
