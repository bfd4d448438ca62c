package combat

// scriptedRNG replays fixed draws. When a queue runs dry Intn returns the
// midpoint (a zero roll for symmetric variance) and Float64 returns 0.99,
// which fails every chance check.
type scriptedRNG struct {
	ints   []int
	floats []float64

	intDraws   int
	floatDraws int
}

func (r *scriptedRNG) Intn(n int) int {
	r.intDraws++
	if len(r.ints) == 0 {
		return n / 2
	}
	v := r.ints[0]
	r.ints = r.ints[1:]
	if v >= n {
		v = n - 1
	}
	return v
}

func (r *scriptedRNG) Float64() float64 {
	r.floatDraws++
	if len(r.floats) == 0 {
		return 0.99
	}
	v := r.floats[0]
	r.floats = r.floats[1:]
	return v
}

// fixedPolicy always picks the same intent and draws nothing.
type fixedPolicy Intent

func (p fixedPolicy) Decide(*Enemy, *Hero, RNG) Intent { return Intent(p) }

func testGoblin() *Enemy {
	return &Enemy{
		Vitals:     Vitals{HP: 20, HPMax: 20, Statuses: StatusSet{}},
		Name:       "Goblin",
		Level:      1,
		Atk:        6,
		Def:        1,
		XPReward:   10,
		GoldReward: 5,
		Intent:     IntentAttack,
	}
}

func newTestSession(rng RNG, hero *Hero, enemy *Enemy, p Policy) *Session {
	return NewSession(hero, enemy, SessionConfig{RNG: rng, Policy: p})
}
