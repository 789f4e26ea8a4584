package lib

// =============================================================================
// Morale System
// =============================================================================
// Battles are won by breaking the enemy's will as much as their bodies.
// Every unit carries a morale component; the morale manager listens on the
// event bus and translates damage and death into psychological pressure.

// MoralePenalties are the combat modifiers a unit's psychological state
// imposes. Movement is a bonus when routing: fleeing units run faster.
type MoralePenalties struct {
	Attack   int
	Defense  int
	Accuracy int
	Movement int
}

// MoraleComponent tracks a unit's courage, panic, and rout state.
type MoraleComponent struct {
	BaseMorale     int
	CurrentMorale  int
	PanicThreshold int
	RoutThreshold  int

	Panicked bool
	Routed   bool

	PanicDuration    int // turns spent panicked
	LastRallyAttempt int // turn of the last rally attempt

	// Modifiers are named temporary adjustments (proximity effects, panic
	// penalties) summed into effective morale.
	Modifiers map[string]int
}

// NewMoraleComponent creates a morale component at full courage.
func NewMoraleComponent(base, panicThreshold, routThreshold int) MoraleComponent {
	return MoraleComponent{
		BaseMorale:       base,
		CurrentMorale:    base,
		PanicThreshold:   panicThreshold,
		RoutThreshold:    routThreshold,
		LastRallyAttempt: -10,
		Modifiers:        map[string]int{},
	}
}

// EffectiveMorale is current morale plus all modifiers, clamped to [0, 150].
func (mc *MoraleComponent) EffectiveMorale() int {
	effective := mc.CurrentMorale
	for _, v := range mc.Modifiers {
		effective += v
	}
	return max(0, min(150, effective))
}

// State returns the human-readable morale band.
func (mc *MoraleComponent) State() string {
	if mc.Routed {
		return "Routed"
	}
	if mc.Panicked {
		return "Panicked"
	}
	morale := mc.EffectiveMorale()
	switch {
	case morale >= 90:
		return "Heroic"
	case morale >= 70:
		return "Confident"
	case morale >= 50:
		return "Steady"
	case morale >= 35:
		return "Shaken"
	case morale >= 20:
		return "Afraid"
	default:
		return "Terrified"
	}
}

// Modify changes current morale by amount, runs the state transitions, and
// returns the change actually applied.
func (mc *MoraleComponent) Modify(amount int) int {
	old := mc.CurrentMorale
	mc.CurrentMorale = max(0, min(150, mc.CurrentMorale+amount))
	change := mc.CurrentMorale - old

	effective := mc.EffectiveMorale()
	if !mc.Panicked && effective <= mc.PanicThreshold {
		mc.enterPanic()
	}
	if !mc.Routed && effective <= mc.RoutThreshold {
		mc.enterRout()
	}
	// Recovery needs headroom over the threshold because panic itself
	// carries a penalty modifier.
	if mc.Panicked && !mc.Routed && effective >= mc.PanicThreshold+15 {
		mc.exitPanic()
	}
	return change
}

// SetModifier installs a named temporary modifier.
func (mc *MoraleComponent) SetModifier(name string, value int) {
	mc.Modifiers[name] = value
}

// RemoveModifier removes a named modifier, reporting whether it existed.
func (mc *MoraleComponent) RemoveModifier(name string) bool {
	if _, ok := mc.Modifiers[name]; !ok {
		return false
	}
	delete(mc.Modifiers, name)
	return true
}

func (mc *MoraleComponent) enterPanic() {
	if mc.Panicked {
		return
	}
	mc.Panicked = true
	mc.PanicDuration = 0
	mc.SetModifier("panic_penalty", -10)
}

func (mc *MoraleComponent) enterRout() {
	if mc.Routed {
		return
	}
	mc.Routed = true
	mc.Panicked = true
	mc.SetModifier("rout_penalty", -20)
}

func (mc *MoraleComponent) exitPanic() {
	if !mc.Panicked || mc.Routed {
		return
	}
	mc.Panicked = false
	mc.PanicDuration = 0
	mc.RemoveModifier("panic_penalty")
}

// AttemptRally applies a rally bonus and reports success. The attempt is
// throttled to one per two turns, and succeeds only when the bonus lifts
// effective morale clear of the panic threshold.
func (mc *MoraleComponent) AttemptRally(turn, bonus int) bool {
	if turn-mc.LastRallyAttempt < 2 {
		return false
	}
	mc.LastRallyAttempt = turn

	mc.Modify(bonus)
	if mc.Routed {
		return false
	}
	if mc.EffectiveMorale() > mc.PanicThreshold+5 {
		if mc.Panicked {
			mc.exitPanic()
		}
		return true
	}
	return false
}

// ProcessTurnEffects advances panic recovery at turn boundaries. Panic wears
// off slowly after a few turns.
func (mc *MoraleComponent) ProcessTurnEffects() {
	if mc.Panicked {
		mc.PanicDuration++
		if mc.PanicDuration > 3 {
			mc.Modify(max(1, mc.PanicDuration/2))
		}
	}
}

// CombatPenalties returns the combat modifiers the current state imposes.
func (mc *MoraleComponent) CombatPenalties() MoralePenalties {
	var p MoralePenalties
	if mc.Routed {
		p.Attack = -3
		p.Defense = -2
		p.Movement = 1
	} else if mc.Panicked {
		p.Attack = -2
		p.Accuracy = -15
	}
	if mc.EffectiveMorale() < 40 {
		p.Defense--
	}
	return p
}

// ShouldFlee reports whether the unit should avoid combat entirely.
func (mc *MoraleComponent) ShouldFlee() bool {
	return mc.Routed || (mc.Panicked && mc.EffectiveMorale() < 25)
}

// =============================================================================
// Morale Manager
// =============================================================================

// Morale effect tuning.
const (
	damageMoraleRatio   = 0.5 // morale lost per point of damage
	allyDeathPenalty    = -15
	enemyDeathBonus     = 5
	deathProximityRange = 3
	heavyDamageLevel    = 15 // damage at or above this triggers a panic check
	traumaticDamage     = 20 // damage at or above this inflicts a trauma penalty
)

// MoraleManager couples battlefield events to morale state. It subscribes to
// the bus at construction; morale never reacts to damage before the damage
// event is fully dispatched.
type MoraleManager struct {
	m   *Map
	bus *EventBus

	clock func() uint64 // current timeline tick
	turn  func() int    // current turn number
}

// NewMoraleManager wires a manager to the map and bus.
func NewMoraleManager(m *Map, bus *EventBus, clock func() uint64, turn func() int) *MoraleManager {
	mm := &MoraleManager{m: m, bus: bus, clock: clock, turn: turn}
	bus.Subscribe(EventUnitDamaged, mm.onUnitDamaged)
	bus.Subscribe(EventUnitDefeated, mm.onUnitDefeated)
	bus.Subscribe(EventBattlePhaseChanged, mm.onPhaseChanged)
	return mm
}

func (mm *MoraleManager) onUnitDamaged(ev Event) {
	damaged := ev.(UnitDamagedEvent)
	unit, ok := mm.m.UnitByID(damaged.UnitID)
	if !ok {
		return
	}
	mm.ProcessDamage(unit, damaged.Damage)
}

func (mm *MoraleManager) onUnitDefeated(ev Event) {
	defeated := ev.(UnitDefeatedEvent)
	mm.ProcessDeath(defeated.UnitID, defeated.Team, defeated.Position)
}

func (mm *MoraleManager) onPhaseChanged(ev Event) {
	for _, unit := range mm.m.Units() {
		if unit.IsAlive() {
			mm.UpdateProximityModifiers(unit)
		}
	}
}

// ProcessDamage applies the morale cost of taking damage. Heavy damage
// triggers an additional panic check.
func (mm *MoraleManager) ProcessDamage(unit *Unit, damage int) {
	morale := &unit.Morale
	wasPanicked, wasRouted := morale.Panicked, morale.Routed

	loss := int(float64(damage) * damageMoraleRatio)
	if loss > 0 {
		old := morale.EffectiveMorale()
		change := morale.Modify(-loss)
		if abs(change) >= 5 {
			mm.emitMoraleChanged(unit, old)
		}
	}

	if damage >= heavyDamageLevel {
		mm.checkHeavyDamagePanic(unit, damage)
	}
	mm.emitStateTransitions(unit, wasPanicked, wasRouted, PanicHeavyDamage)
}

func (mm *MoraleManager) checkHeavyDamagePanic(unit *Unit, damage int) {
	morale := &unit.Morale
	if damage >= traumaticDamage && !morale.Panicked {
		morale.Modify(-10)
		if morale.EffectiveMorale() <= morale.PanicThreshold+10 {
			morale.enterPanic()
		}
	}
}

// ProcessDeath ripples a death through every unit within the proximity
// radius: allies of the fallen lose morale, enemies gain it.
func (mm *MoraleManager) ProcessDeath(deceasedID string, deceasedTeam Team, position Vector) {
	for _, unit := range mm.m.UnitsWithinRange(position, deathProximityRange) {
		if unit.ID == deceasedID || !unit.IsAlive() {
			continue
		}
		morale := &unit.Morale
		wasPanicked, wasRouted := morale.Panicked, morale.Routed
		old := morale.EffectiveMorale()

		var change int
		if unit.Team() == deceasedTeam {
			change = morale.Modify(allyDeathPenalty)
			if morale.EffectiveMorale() <= morale.PanicThreshold {
				morale.enterPanic()
			}
		} else {
			change = morale.Modify(enemyDeathBonus)
		}
		if abs(change) >= 3 {
			mm.emitMoraleChanged(unit, old)
		}
		mm.emitStateTransitions(unit, wasPanicked, wasRouted, PanicAllyDeath)
	}
}

// AttemptRally tries to rally a unit out of panic. Knights and priests make
// better ralliers.
func (mm *MoraleManager) AttemptRally(unit *Unit, rallier *Unit) bool {
	bonus := 15
	if rallier != nil {
		if rallier.Actor.Class == ClassKnight || rallier.Actor.Class == ClassPriest {
			bonus += 10
		}
	}
	success := unit.Morale.AttemptRally(mm.turn(), bonus)
	if success {
		mm.bus.Publish(UnitRalliedEvent{
			Time:     mm.clock(),
			UnitID:   unit.ID,
			UnitName: unit.Name(),
		})
	}
	return success
}

// ProcessTurnStart advances per-turn morale effects for one unit.
func (mm *MoraleManager) ProcessTurnStart(unit *Unit) {
	unit.Morale.ProcessTurnEffects()
	mm.UpdateProximityModifiers(unit)
}

// UpdateProximityModifiers recomputes the positional morale modifiers:
// packed allies reassure, being outnumbered or surrounded erodes nerve.
func (mm *MoraleManager) UpdateProximityModifiers(unit *Unit) {
	morale := &unit.Morale
	morale.RemoveModifier("nearby_allies")
	morale.RemoveModifier("outnumbered")
	morale.RemoveModifier("surrounded")

	allies, enemies := 0, 0
	for _, nearby := range mm.m.UnitsWithinRange(unit.Position(), 2) {
		if nearby.ID == unit.ID || !nearby.IsAlive() {
			continue
		}
		if nearby.Team() == unit.Team() {
			allies++
		} else {
			enemies++
		}
	}

	if allies >= 2 {
		morale.SetModifier("nearby_allies", 5)
	}
	if enemies >= allies+2 {
		morale.SetModifier("outnumbered", -5)
	}
	if enemies >= 3 && allies == 0 {
		morale.SetModifier("surrounded", -10)
	}
}

func (mm *MoraleManager) emitMoraleChanged(unit *Unit, oldMorale int) {
	mm.bus.Publish(MoraleChangedEvent{
		Time:      mm.clock(),
		UnitID:    unit.ID,
		UnitName:  unit.Name(),
		OldMorale: oldMorale,
		NewMorale: unit.Morale.EffectiveMorale(),
	})
}

// emitStateTransitions publishes panic/rout events for state flags flipped
// by the preceding morale math.
func (mm *MoraleManager) emitStateTransitions(unit *Unit, wasPanicked, wasRouted bool, trigger PanicTrigger) {
	if !wasPanicked && unit.Morale.Panicked {
		mm.bus.Publish(UnitPanickedEvent{
			Time:     mm.clock(),
			UnitID:   unit.ID,
			UnitName: unit.Name(),
			Trigger:  trigger,
		})
	}
	if !wasRouted && unit.Morale.Routed {
		mm.bus.Publish(UnitRoutedEvent{
			Time:     mm.clock(),
			UnitID:   unit.ID,
			UnitName: unit.Name(),
		})
	}
}
