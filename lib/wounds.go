package lib

import "fmt"

// =============================================================================
// Wound System
// =============================================================================
// Heavy blows that the bearer survives leave wounds that persist beyond the
// moment of impact. A wound degrades the bearer's stats, may heal over time, or may
// scarify into a permanent mark with a reduced lingering effect.

// WoundType categorizes how the flesh was broken.
type WoundType int

const (
	WoundCut WoundType = iota
	WoundStab
	WoundCrush
	WoundBurn
)

var woundTypeNames = map[WoundType]string{
	WoundCut:   "cut",
	WoundStab:  "stab",
	WoundCrush: "crush",
	WoundBurn:  "burn",
}

func (w WoundType) String() string { return woundTypeNames[w] }

// BodyPart locates a wound.
type BodyPart int

const (
	BodyHead BodyPart = iota
	BodyTorso
	BodyArm
	BodyLeg
)

var bodyPartNames = map[BodyPart]string{
	BodyHead:  "head",
	BodyTorso: "torso",
	BodyArm:   "arm",
	BodyLeg:   "leg",
}

func (b BodyPart) String() string { return bodyPartNames[b] }

// WoundSeverity scales a wound's effect and healing time.
type WoundSeverity int

const (
	SeverityMinor WoundSeverity = iota
	SeveritySerious
	SeverityCritical
)

var severityNames = map[WoundSeverity]string{
	SeverityMinor:    "minor",
	SeveritySerious:  "serious",
	SeverityCritical: "critical",
}

func (s WoundSeverity) String() string { return severityNames[s] }

// WoundEffect is a bundle of stat modifiers. Effects combine component-wise.
type WoundEffect struct {
	Attack   int
	Defense  int
	Speed    int
	Accuracy int
	Evasion  int
}

// Combine returns the component-wise sum of two effects.
func (e WoundEffect) Combine(other WoundEffect) WoundEffect {
	return WoundEffect{
		Attack:   e.Attack + other.Attack,
		Defense:  e.Defense + other.Defense,
		Speed:    e.Speed + other.Speed,
		Accuracy: e.Accuracy + other.Accuracy,
		Evasion:  e.Evasion + other.Evasion,
	}
}

// woundEffectTable maps (type, part) to the base effect at serious severity.
// Minor halves the values, critical doubles them.
var woundEffectTable = map[WoundType]map[BodyPart]WoundEffect{
	WoundCut: {
		BodyHead:  {Accuracy: -10},
		BodyTorso: {Defense: -1},
		BodyArm:   {Attack: -2},
		BodyLeg:   {Speed: -2},
	},
	WoundStab: {
		BodyHead:  {Accuracy: -15},
		BodyTorso: {Defense: -2},
		BodyArm:   {Attack: -3},
		BodyLeg:   {Speed: -3},
	},
	WoundCrush: {
		BodyHead:  {Accuracy: -10, Evasion: -5},
		BodyTorso: {Defense: -2, Speed: -1},
		BodyArm:   {Attack: -2, Defense: -1},
		BodyLeg:   {Speed: -3, Evasion: -5},
	},
	WoundBurn: {
		BodyHead:  {Accuracy: -10},
		BodyTorso: {Defense: -1, Evasion: -5},
		BodyArm:   {Attack: -2},
		BodyLeg:   {Speed: -2, Evasion: -5},
	},
}

func severityScale(effect WoundEffect, severity WoundSeverity) WoundEffect {
	scale := func(v int) int {
		switch severity {
		case SeverityMinor:
			return v / 2
		case SeverityCritical:
			return v * 2
		default:
			return v
		}
	}
	return WoundEffect{
		Attack:   scale(effect.Attack),
		Defense:  scale(effect.Defense),
		Speed:    scale(effect.Speed),
		Accuracy: scale(effect.Accuracy),
		Evasion:  scale(effect.Evasion),
	}
}

// Wound is one injury on a unit.
type Wound struct {
	Type     WoundType
	BodyPart BodyPart
	Severity WoundSeverity

	// HealingTime counts down each turn; the wound heals at zero unless it
	// scarred first.
	HealingTime int
	Scarred     bool
}

// NewWound creates a wound with severity-scaled healing time.
func NewWound(woundType WoundType, part BodyPart, severity WoundSeverity) *Wound {
	healing := 3 + 3*int(severity)
	return &Wound{
		Type:        woundType,
		BodyPart:    part,
		Severity:    severity,
		HealingTime: healing,
	}
}

// CurrentEffect returns the wound's active stat effect. Scars keep a halved
// permanent effect.
func (w *Wound) CurrentEffect() WoundEffect {
	effect := severityScale(woundEffectTable[w.Type][w.BodyPart], w.Severity)
	if w.Scarred {
		return severityScale(effect, SeverityMinor)
	}
	return effect
}

// Healed reports whether the wound has closed.
func (w *Wound) Healed() bool {
	return !w.Scarred && w.HealingTime <= 0
}

func (w *Wound) String() string {
	return fmt.Sprintf("%s %s %s", w.Severity, w.BodyPart, w.Type)
}

// WoundComponent tracks a unit's active wounds and permanent scars.
type WoundComponent struct {
	ActiveWounds   []*Wound
	PermanentScars []*Wound
}

// Add records a fresh wound.
func (wc *WoundComponent) Add(w *Wound) {
	wc.ActiveWounds = append(wc.ActiveWounds, w)
}

// HasWounds reports whether the unit carries any active wound.
func (wc *WoundComponent) HasWounds() bool {
	return len(wc.ActiveWounds) > 0
}

// TotalEffects sums the effects of every active wound and scar.
func (wc *WoundComponent) TotalEffects() WoundEffect {
	var total WoundEffect
	for _, w := range wc.ActiveWounds {
		total = total.Combine(w.CurrentEffect())
	}
	for _, w := range wc.PermanentScars {
		total = total.Combine(w.CurrentEffect())
	}
	return total
}

// =============================================================================
// Wound Manager
// =============================================================================

// WoundManager inflicts wounds on heavy damage and ticks healing at turn
// boundaries. Wound rolls draw from the deterministic RNG so identical
// battles scar identically.
type WoundManager struct {
	m     *Map
	bus   *EventBus
	rng   *RNG
	clock func() uint64
}

// NewWoundManager wires the manager to the bus.
func NewWoundManager(m *Map, bus *EventBus, rng *RNG, clock func() uint64) *WoundManager {
	wm := &WoundManager{m: m, bus: bus, rng: rng, clock: clock}
	bus.Subscribe(EventUnitDamaged, wm.onUnitDamaged)
	return wm
}

func (wm *WoundManager) onUnitDamaged(ev Event) {
	damaged := ev.(UnitDamagedEvent)
	if damaged.Damage < heavyDamageLevel && damaged.HPLeft > 0 {
		return
	}
	unit, ok := wm.m.UnitByID(damaged.UnitID)
	if !ok || !unit.IsAlive() {
		// The dead take their wounds with them.
		return
	}
	wound := wm.rollWound(unit, damaged.Damage)
	unit.Wound.Add(wound)
	wm.bus.Publish(LogMessageEvent{
		Time:     wm.clock(),
		Category: "WOUND",
		Level:    LogInfo,
		Message:  fmt.Sprintf("%s suffers a %s", unit.Name(), wound),
		Source:   "WoundManager",
	})
}

// rollWound picks type, body part, and severity from a stream keyed by the
// wounded unit and the tick.
func (wm *WoundManager) rollWound(unit *Unit, damage int) *Wound {
	stream := wm.rng.Stream(wm.clock(), OpWoundRecovery, unit.ID, "")
	woundType := WoundType(stream.Intn(4))
	part := BodyPart(stream.Intn(4))
	severity := SeverityMinor
	if damage >= traumaticDamage {
		severity = SeveritySerious
	}
	if damage >= traumaticDamage*2 {
		severity = SeverityCritical
	}
	return NewWound(woundType, part, severity)
}

// ProcessTurn advances healing for one unit at its turn start: each wound
// may heal outright or scarify into the permanent list.
func (wm *WoundManager) ProcessTurn(unit *Unit) []string {
	var messages []string
	var keep []*Wound

	stream := wm.rng.Stream(wm.clock(), OpWoundRecovery, unit.ID, "heal")
	for _, w := range unit.Wound.ActiveWounds {
		w.HealingTime--
		if w.Healed() {
			messages = append(messages, fmt.Sprintf("%s %s wound has healed", w.BodyPart, w.Type))
			continue
		}
		// Old serious wounds may set into scars instead of closing.
		if w.HealingTime <= 0 || (w.Severity >= SeveritySerious && RollPercent(stream, 10)) {
			w.Scarred = true
			unit.Wound.PermanentScars = append(unit.Wound.PermanentScars, w)
			messages = append(messages, fmt.Sprintf("%s %s wound has become a permanent scar", w.BodyPart, w.Type))
			continue
		}
		keep = append(keep, w)
	}
	unit.Wound.ActiveWounds = keep

	for _, msg := range messages {
		wm.bus.Publish(LogMessageEvent{
			Time:     wm.clock(),
			Category: "WOUND",
			Level:    LogInfo,
			Message:  fmt.Sprintf("%s: %s", unit.Name(), msg),
			Source:   "WoundManager",
		})
	}
	return messages
}
