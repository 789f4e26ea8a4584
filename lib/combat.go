package lib

// =============================================================================
// Combat Resolution
// =============================================================================
// Damage follows the variance-bounded formula: base damage is
// max(1, strength - defense/2), a symmetric variance of ±max(1, base/4) is
// drawn from a deterministic stream keyed by (attacker, defender, tick), and
// a critical hit doubles the result. Counter-attacks exist only at range 1.
// AOE attacks precompute every target's damage; a nonempty friendly-fire set
// suspends the attack behind an explicit confirmation.

// CombatContext bundles the two parties of a single damage roll.
type CombatContext struct {
	Attacker   *Unit
	Defender   *Unit
	Tick       uint64
	Multiplier float64 // action damage multiplier; 0 means 1.0
}

// Forecast is a pure damage prediction for UI display. Computing it consumes
// no randomness and touches no state.
type Forecast struct {
	Damage        int // average damage without variance
	MinDamage     int
	MaxDamage     int
	CritChance    int // percent, 0..30
	CanCounter    bool
	CounterDamage int
	CounterMin    int
	CounterMax    int
}

// AttackTarget is one precomputed hit within an attack resolution.
type AttackTarget struct {
	UnitID   string
	Name     string
	Team     Team
	Position Vector
	Damage   int
	Critical bool
}

// AttackOutcome reports what a resolved single attack did.
type AttackOutcome struct {
	Damage        int
	Critical      bool
	Countered     bool
	CounterDamage int
	DefeatedIDs   []string
}

// AOEResolution is the result of resolving an area attack. When the
// friendly-fire set is nonempty the resolution is returned unapplied and the
// caller must confirm it through ApplyConfirmed; the applied numbers are
// exactly the precomputed ones.
type AOEResolution struct {
	AttackerID           string
	Center               Vector
	Pattern              AOEPattern
	Tick                 uint64
	Targets              []AttackTarget
	FriendlyFire         []AttackTarget
	RequiresConfirmation bool
	DefeatedIDs          []string

	applied bool
}

// CombatResolver applies combat mutations to the map and publishes the
// resulting events. It never touches the timeline; rescheduling and removal
// of the defeated are the orchestrator's job, driven by the returned ids.
type CombatResolver struct {
	m   *Map
	bus *EventBus
	rng *RNG
}

// NewCombatResolver wires a resolver to the map it mutates.
func NewCombatResolver(m *Map, bus *EventBus, rng *RNG) *CombatResolver {
	return &CombatResolver{m: m, bus: bus, rng: rng}
}

// baseDamage is the deterministic core of the formula, shared by forecasts
// and resolution.
func baseDamage(attacker, defender *Unit, multiplier float64) int {
	if multiplier == 0 {
		multiplier = 1.0
	}
	base := max(1, attacker.EffectiveStrength()-defender.EffectiveDefense()/2)
	return max(1, int(float64(base)*multiplier))
}

// critChance is clamp(5 + 2*(attacker speed - defender speed), 0, 30).
func critChance(attacker, defender *Unit) int {
	chance := 5 + 2*(attacker.EffectiveSpeed()-defender.EffectiveSpeed())
	return max(0, min(30, chance))
}

// rollDamage draws the variance and the critical check for one hit.
func (r *CombatResolver) rollDamage(ctx CombatContext, op OpKind) (int, bool) {
	base := baseDamage(ctx.Attacker, ctx.Defender, ctx.Multiplier)
	variance := max(1, base/4)

	stream := r.rng.Stream(ctx.Tick, op, ctx.Attacker.ID, ctx.Defender.ID)
	damage := max(1, base+RollRange(stream, -variance, variance))

	critStream := r.rng.Stream(ctx.Tick, OpCriticalHit, ctx.Attacker.ID, ctx.Defender.ID)
	crit := RollPercent(critStream, critChance(ctx.Attacker, ctx.Defender))
	if crit {
		damage *= 2
	}
	return damage, crit
}

// applyDamage mutates the defender, publishes UnitDamaged and, on the
// transition to zero hit points, UnitDefeated. Damage lands before the death
// event goes out.
func (r *CombatResolver) applyDamage(attacker, defender *Unit, damage int, crit bool, tick uint64) bool {
	dealt := defender.Health.TakeDamage(damage)
	r.bus.Publish(UnitDamagedEvent{
		Time:       tick,
		UnitID:     defender.ID,
		UnitName:   defender.Name(),
		Team:       defender.Team(),
		Position:   defender.Position(),
		AttackerID: attacker.ID,
		Damage:     dealt,
		Critical:   crit,
		HPLeft:     defender.Health.HPCurrent,
	})
	if !defender.IsAlive() {
		r.bus.Publish(UnitDefeatedEvent{
			Time:     tick,
			UnitID:   defender.ID,
			UnitName: defender.Name(),
			Team:     defender.Team(),
			Position: defender.Position(),
			KillerID: attacker.ID,
		})
		return true
	}
	return false
}

// ExecuteAttack resolves a single attack, including the defender's counter
// when it exists. The attacker's has-moved and has-acted flags are set.
func (r *CombatResolver) ExecuteAttack(attacker, defender *Unit, tick uint64, multiplier float64) AttackOutcome {
	var out AttackOutcome

	damage, crit := r.rollDamage(CombatContext{
		Attacker: attacker, Defender: defender, Tick: tick, Multiplier: multiplier,
	}, OpDamageVariance)
	out.Damage = damage
	out.Critical = crit
	if r.applyDamage(attacker, defender, damage, crit, tick) {
		out.DefeatedIDs = append(out.DefeatedIDs, defender.ID)
	}

	// Counter-attack only at range 1 against a defender who can still act.
	distance := attacker.Position().ManhattanDistance(defender.Position())
	if distance == 1 && defender.IsAlive() && defender.CanAct() {
		counter, counterCrit := r.rollDamage(CombatContext{
			Attacker: defender, Defender: attacker, Tick: tick,
		}, OpCounterVariance)
		out.Countered = true
		out.CounterDamage = counter
		if r.applyDamage(defender, attacker, counter, counterCrit, tick) {
			out.DefeatedIDs = append(out.DefeatedIDs, attacker.ID)
		}
	}

	attacker.Status.HasMoved = true
	attacker.Status.HasActed = true
	return out
}

// ResolveAOE expands the attacker's pattern around a center and precomputes
// damage for every living unit other than the attacker in the affected
// tiles. When the friendly-fire set is empty the damage is applied
// immediately; otherwise the hypothetical outcome is returned without any
// state mutation.
func (r *CombatResolver) ResolveAOE(attacker *Unit, center Vector, pattern AOEPattern, tick uint64, multiplier float64) *AOEResolution {
	res := &AOEResolution{
		AttackerID: attacker.ID,
		Center:     center,
		Pattern:    pattern,
		Tick:       tick,
	}

	for _, pos := range r.m.AOETiles(center, pattern) {
		target := r.m.UnitAt(pos)
		if target == nil || target.ID == attacker.ID || !target.IsAlive() {
			continue
		}
		damage, crit := r.rollDamage(CombatContext{
			Attacker: attacker, Defender: target, Tick: tick, Multiplier: multiplier,
		}, OpDamageVariance)
		hit := AttackTarget{
			UnitID:   target.ID,
			Name:     target.Name(),
			Team:     target.Team(),
			Position: target.Position(),
			Damage:   damage,
			Critical: crit,
		}
		res.Targets = append(res.Targets, hit)
		if target.Team() == attacker.Team() {
			res.FriendlyFire = append(res.FriendlyFire, hit)
		}
	}

	if len(res.FriendlyFire) > 0 {
		res.RequiresConfirmation = true
		return res
	}
	r.apply(attacker, res)
	return res
}

// ApplyConfirmed applies a resolution that was suspended on friendly fire,
// with exactly the precomputed numbers. It fails when the attacker vanished
// or the resolution was already applied.
func (r *CombatResolver) ApplyConfirmed(res *AOEResolution) error {
	if res.applied {
		return ErrBlocked
	}
	attacker, ok := r.m.UnitByID(res.AttackerID)
	if !ok {
		return ErrNotFound
	}
	r.apply(attacker, res)
	return nil
}

func (r *CombatResolver) apply(attacker *Unit, res *AOEResolution) {
	res.applied = true
	res.RequiresConfirmation = false
	for _, hit := range res.Targets {
		target, ok := r.m.UnitByID(hit.UnitID)
		if !ok || !target.IsAlive() {
			continue
		}
		if r.applyDamage(attacker, target, hit.Damage, hit.Critical, res.Tick) {
			res.DefeatedIDs = append(res.DefeatedIDs, target.ID)
		}
	}
	attacker.Status.HasMoved = true
	attacker.Status.HasActed = true
}

// CalculateForecast predicts an exchange without consuming randomness or
// touching state. Equal inputs produce equal forecasts.
func CalculateForecast(attacker, defender *Unit, weaponRange int) Forecast {
	base := baseDamage(attacker, defender, 1.0)
	variance := max(1, base/4)

	f := Forecast{
		Damage:     base,
		MinDamage:  max(1, base-variance),
		MaxDamage:  base + variance,
		CritChance: critChance(attacker, defender),
	}

	if weaponRange == 1 && defender.IsAlive() && defender.CanAct() {
		counterBase := baseDamage(defender, attacker, 1.0)
		counterVariance := max(1, counterBase/4)
		f.CanCounter = true
		f.CounterDamage = counterBase
		f.CounterMin = max(1, counterBase-counterVariance)
		f.CounterMax = counterBase + counterVariance
	}
	return f
}
