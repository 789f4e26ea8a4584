package lib

import (
	"fmt"
	"math/rand"
	"slices"
)

// =============================================================================
// Environmental Hazard System
// =============================================================================
// Hazards are field effects that live on their own timeline entries: fire
// that spreads through brush, poison rolling with the wind, ground giving
// way underfoot. Each scheduled activation applies recurring effects, may
// spread, and counts down toward expiry and a final effect.

// HazardKind identifies a hazard archetype.
type HazardKind int

const (
	HazardFire HazardKind = iota
	HazardPoisonCloud
	HazardCollapsingGround
	HazardIce
	HazardToxicSmoke
)

var hazardKindNames = map[HazardKind]string{
	HazardFire:             "Fire",
	HazardPoisonCloud:      "Poison Cloud",
	HazardCollapsingGround: "Collapsing Ground",
	HazardIce:              "Ice",
	HazardToxicSmoke:       "Toxic Smoke",
}

func (k HazardKind) String() string { return hazardKindNames[k] }

// SpreadPattern describes how a hazard claims new ground.
type SpreadPattern int

const (
	SpreadAdjacent SpreadPattern = iota // orthogonal neighbors
	SpreadDiagonal                      // all 8 neighbors
	SpreadWind                          // offset by the instance's wind vector
	SpreadRandom                        // uniform over adjacent cells
	SpreadStatic                        // no spread
)

// HazardEffect is what a hazard does to units or terrain it touches.
// Effects from overlapping hazards on the same tile are additive, iterated
// in hazard creation order.
type HazardEffect struct {
	Damage              int
	DamageType          string
	MovementPenalty     int
	VisibilityReduction int
	StatModifiers       map[string]int
	StatusEffects       []string
	TerrainTransform    *TerrainType
	BlocksMovement      bool
	BlocksLineOfSight   bool
}

// Combine adds another effect into this one, component-wise.
func (e HazardEffect) Combine(other HazardEffect) HazardEffect {
	out := e
	out.Damage += other.Damage
	out.MovementPenalty += other.MovementPenalty
	out.VisibilityReduction += other.VisibilityReduction
	out.BlocksMovement = out.BlocksMovement || other.BlocksMovement
	out.BlocksLineOfSight = out.BlocksLineOfSight || other.BlocksLineOfSight
	if other.TerrainTransform != nil {
		out.TerrainTransform = other.TerrainTransform
	}
	if len(other.StatModifiers) > 0 {
		merged := map[string]int{}
		for k, v := range out.StatModifiers {
			merged[k] = v
		}
		for k, v := range other.StatModifiers {
			merged[k] += v
		}
		out.StatModifiers = merged
	}
	out.StatusEffects = append(slices.Clone(out.StatusEffects), other.StatusEffects...)
	return out
}

// HazardProperties is the static configuration of a hazard archetype.
type HazardProperties struct {
	Kind        HazardKind
	Name        string
	Description string

	Duration       int    // activations until expiry; -1 = permanent
	TicksPerAction uint64 // timeline weight of each activation

	SpreadPattern   SpreadPattern
	SpreadChance    float64
	MaxSpreadCount  int // -1 = unlimited
	SpreadRequires  []TerrainType
	SpreadBlockedBy []TerrainType

	InitialEffect   HazardEffect
	RecurringEffect HazardEffect
	FinalEffect     *HazardEffect

	CombinesWith  []HazardKind
	Neutralizes   []HazardKind
	ImmuneClasses []UnitClass

	Symbol    string
	ColorHint string
}

func terrainPtr(t TerrainType) *TerrainType { return &t }

// DefaultHazardProperties is the built-in hazard catalog.
var DefaultHazardProperties = map[HazardKind]HazardProperties{
	HazardFire: {
		Kind:            HazardFire,
		Name:            "Fire",
		Description:     "Spreading flames that burn everything",
		Duration:        300,
		TicksPerAction:  80,
		SpreadPattern:   SpreadAdjacent,
		SpreadChance:    0.3,
		MaxSpreadCount:  -1,
		SpreadRequires:  []TerrainType{TerrainPlain, TerrainForest, TerrainBridge},
		SpreadBlockedBy: []TerrainType{TerrainWater, TerrainMountain, TerrainWall},
		InitialEffect: HazardEffect{
			Damage: 8, DamageType: "fire",
			VisibilityReduction: 1,
			TerrainTransform:    terrainPtr(TerrainPlain),
		},
		RecurringEffect: HazardEffect{Damage: 5, DamageType: "fire"},
		CombinesWith:    []HazardKind{HazardPoisonCloud},
		Neutralizes:     []HazardKind{HazardIce},
		Symbol:          "^",
		ColorHint:       "red",
	},
	HazardPoisonCloud: {
		Kind:            HazardPoisonCloud,
		Name:            "Poison Cloud",
		Description:     "Toxic vapors that sicken and blind",
		Duration:        200,
		TicksPerAction:  100,
		SpreadPattern:   SpreadWind,
		SpreadChance:    0.4,
		MaxSpreadCount:  -1,
		SpreadBlockedBy: []TerrainType{TerrainWall},
		RecurringEffect: HazardEffect{
			Damage: 3, DamageType: "poison",
			VisibilityReduction: 2,
			StatModifiers:       map[string]int{"speed": -20, "accuracy": -15},
			StatusEffects:       []string{"poisoned", "blinded"},
			BlocksLineOfSight:   true,
		},
		CombinesWith: []HazardKind{HazardFire},
		Symbol:       "%",
		ColorHint:    "green",
	},
	HazardCollapsingGround: {
		Kind:           HazardCollapsingGround,
		Name:           "Collapsing Ground",
		Description:    "Unstable terrain about to give way",
		Duration:       30,
		TicksPerAction: 50,
		SpreadPattern:  SpreadAdjacent,
		SpreadChance:   0.2,
		MaxSpreadCount: -1,
		SpreadRequires: []TerrainType{TerrainBridge},
		InitialEffect: HazardEffect{
			MovementPenalty: 2,
			StatModifiers:   map[string]int{"defense": -10},
		},
		FinalEffect: &HazardEffect{
			Damage: 15, DamageType: "crushing",
			TerrainTransform: terrainPtr(TerrainWater),
			BlocksMovement:   true,
		},
		Symbol:    "!",
		ColorHint: "yellow",
	},
	HazardIce: {
		Kind:           HazardIce,
		Name:           "Ice",
		Description:    "Slippery frozen surface",
		Duration:       500,
		TicksPerAction: 150,
		SpreadPattern:  SpreadAdjacent,
		SpreadChance:   0.1,
		MaxSpreadCount: -1,
		SpreadRequires: []TerrainType{TerrainWater},
		InitialEffect: HazardEffect{
			MovementPenalty: -1,
			StatModifiers:   map[string]int{"accuracy": -20, "evasion": -15},
			StatusEffects:   []string{"slipping"},
		},
		RecurringEffect: HazardEffect{
			Damage: 1, DamageType: "cold",
			StatusEffects: []string{"chilled"},
		},
		Neutralizes: []HazardKind{HazardFire},
		Symbol:      "*",
		ColorHint:   "cyan",
	},
	HazardToxicSmoke: {
		Kind:           HazardToxicSmoke,
		Name:           "Toxic Smoke",
		Description:    "Choking smoke born of fire and poison",
		Duration:       5,
		TicksPerAction: 90,
		SpreadPattern:  SpreadStatic,
		MaxSpreadCount: -1,
		RecurringEffect: HazardEffect{
			Damage: 6, DamageType: "poison",
			VisibilityReduction: 3,
			StatusEffects:       []string{"choking"},
			BlocksLineOfSight:   true,
		},
		Symbol:    "&",
		ColorHint: "magenta",
	},
}

// hazardCombinations maps a pair of overlapping kinds to the derived kind.
var hazardCombinations = map[[2]HazardKind]HazardKind{
	{HazardFire, HazardPoisonCloud}: HazardToxicSmoke,
	{HazardPoisonCloud, HazardFire}: HazardToxicSmoke,
}

// Hazard is one live hazard instance on the field.
type Hazard struct {
	ID           string
	Seq          int // creation order, drives deterministic iteration
	Kind         HazardKind
	Origin       Vector
	Intensity    int
	TicksLeft    int
	Affected     VectorSet
	SpreadCount  int
	CreationTick uint64
	SourceUnitID string
	Wind         Vector // wind vector for wind-driven spread

	Props HazardProperties
}

// HazardTickResult reports what one hazard activation did.
type HazardTickResult struct {
	Expired     bool
	SpreadTo    []Vector
	DefeatedIDs []string
}

// =============================================================================
// Hazard Engine
// =============================================================================

// HazardEngine owns all hazard instances. It never touches the timeline;
// the orchestrator schedules activations and feeds them back in.
type HazardEngine struct {
	m     *Map
	bus   *EventBus
	rng   *RNG
	clock func() uint64

	hazards map[string]*Hazard
	nextSeq int
}

// NewHazardEngine wires the engine to the map it acts on.
func NewHazardEngine(m *Map, bus *EventBus, rng *RNG, clock func() uint64) *HazardEngine {
	return &HazardEngine{
		m: m, bus: bus, rng: rng, clock: clock,
		hazards: map[string]*Hazard{},
	}
}

// Hazards returns all live hazards in creation order.
func (he *HazardEngine) Hazards() []*Hazard {
	out := make([]*Hazard, 0, len(he.hazards))
	for _, h := range he.hazards {
		out = append(out, h)
	}
	slices.SortFunc(out, func(a, b *Hazard) int { return a.Seq - b.Seq })
	return out
}

// Get returns a hazard by id, tolerating absence.
func (he *HazardEngine) Get(id string) (*Hazard, bool) {
	h, ok := he.hazards[id]
	return h, ok
}

// HazardsAt returns the hazards affecting a position, in creation order.
func (he *HazardEngine) HazardsAt(pos Vector) []*Hazard {
	var out []*Hazard
	for _, h := range he.Hazards() {
		if h.Affected.Contains(pos) {
			out = append(out, h)
		}
	}
	return out
}

// CombinedEffectAt sums the recurring effects of every hazard on a tile,
// iterated in creation order.
func (he *HazardEngine) CombinedEffectAt(pos Vector) HazardEffect {
	var combined HazardEffect
	for _, h := range he.HazardsAt(pos) {
		combined = combined.Combine(h.Props.RecurringEffect)
	}
	return combined
}

// Create places a new hazard. When the cell already carries a hazard the new
// kind combines with, a derived hazard replaces the cell's coverage; when
// the new kind neutralizes the occupant, the occupant loses the cell and
// nothing new is created (nil, nil is returned in that case).
func (he *HazardEngine) Create(kind HazardKind, pos Vector, intensity int, sourceUnitID string) (*Hazard, error) {
	if !he.m.Valid(pos) {
		return nil, fmt.Errorf("create %s at %v: %w", kind, pos, ErrInvalidPosition)
	}
	props, ok := DefaultHazardProperties[kind]
	if !ok {
		return nil, fmt.Errorf("create hazard %d: %w", kind, ErrNotFound)
	}

	for _, existing := range he.HazardsAt(pos) {
		if slices.Contains(props.Neutralizes, existing.Kind) {
			he.releaseCell(existing, pos)
			he.logf("%s snuffs out %s at %v", props.Name, existing.Props.Name, pos)
			return nil, nil
		}
		if derived, ok := hazardCombinations[[2]HazardKind{kind, existing.Kind}]; ok {
			he.releaseCell(existing, pos)
			he.logf("%s and %s merge at %v", props.Name, existing.Props.Name, pos)
			return he.spawn(derived, pos, intensity, sourceUnitID)
		}
	}
	return he.spawn(kind, pos, intensity, sourceUnitID)
}

func (he *HazardEngine) spawn(kind HazardKind, pos Vector, intensity int, sourceUnitID string) (*Hazard, error) {
	props := DefaultHazardProperties[kind]
	he.nextSeq++
	h := &Hazard{
		ID:           fmt.Sprintf("hz-%d", he.nextSeq),
		Seq:          he.nextSeq,
		Kind:         kind,
		Origin:       pos,
		Intensity:    max(1, intensity),
		TicksLeft:    props.Duration,
		Affected:     NewVectorSet(pos),
		CreationTick: he.clock(),
		SourceUnitID: sourceUnitID,
		Wind:         Vec(0, 1),
		Props:        props,
	}
	he.hazards[h.ID] = h
	he.bus.Publish(HazardCreatedEvent{
		Time:     he.clock(),
		HazardID: h.ID,
		Kind:     kind,
		Position: pos,
	})
	return h, nil
}

// releaseCell removes one cell from a hazard's footprint, expiring the
// hazard when nothing remains.
func (he *HazardEngine) releaseCell(h *Hazard, pos Vector) {
	h.Affected.Remove(pos)
	if len(h.Affected) == 0 {
		he.expire(h, false)
	}
}

// Tick runs one scheduled activation for a hazard: recurring effects, a
// spread attempt, duration countdown, and the final effect on expiry.
func (he *HazardEngine) Tick(hazardID string) HazardTickResult {
	var result HazardTickResult
	h, ok := he.hazards[hazardID]
	if !ok {
		result.Expired = true
		return result
	}
	tick := he.clock()

	// (a) Recurring effects on every living occupant, immune classes skipped.
	result.DefeatedIDs = append(result.DefeatedIDs, he.applyEffectToOccupants(h, h.Props.RecurringEffect, tick)...)

	// (b) Probabilistic spread.
	if h.Props.SpreadPattern != SpreadStatic &&
		(h.Props.MaxSpreadCount < 0 || h.SpreadCount < h.Props.MaxSpreadCount) {
		stream := he.rng.Stream(tick, OpHazardSpread, h.ID, "")
		if RollChance(stream, h.Props.SpreadChance) {
			if target, ok := he.pickSpreadTarget(h, stream); ok {
				he.spreadTo(h, target)
				result.SpreadTo = append(result.SpreadTo, target)
			}
		}
	}

	// (c) Duration countdown.
	if h.TicksLeft > 0 {
		h.TicksLeft--
	}

	// (d) Expiry and final effect.
	if h.TicksLeft == 0 {
		if h.Props.FinalEffect != nil {
			result.DefeatedIDs = append(result.DefeatedIDs, he.applyEffectToOccupants(h, *h.Props.FinalEffect, tick)...)
		}
		he.expire(h, true)
		result.Expired = true
	}
	return result
}

// applyEffectToOccupants damages and debuffs every living unit standing in
// the hazard's footprint, in (y, x) order.
func (he *HazardEngine) applyEffectToOccupants(h *Hazard, effect HazardEffect, tick uint64) []string {
	var defeated []string
	for _, pos := range h.Affected.Sorted() {
		unit := he.m.UnitAt(pos)
		if unit == nil || !unit.IsAlive() {
			continue
		}
		if slices.Contains(h.Props.ImmuneClasses, unit.Actor.Class) {
			continue
		}
		if effect.Damage <= 0 {
			continue
		}
		damage := effect.Damage * h.Intensity
		dealt := unit.Health.TakeDamage(damage)
		he.bus.Publish(UnitDamagedEvent{
			Time:       tick,
			UnitID:     unit.ID,
			UnitName:   unit.Name(),
			Team:       unit.Team(),
			Position:   unit.Position(),
			AttackerID: h.ID,
			Damage:     dealt,
			HPLeft:     unit.Health.HPCurrent,
		})
		if !unit.IsAlive() {
			he.bus.Publish(UnitDefeatedEvent{
				Time:     tick,
				UnitID:   unit.ID,
				UnitName: unit.Name(),
				Team:     unit.Team(),
				Position: unit.Position(),
				KillerID: h.ID,
			})
			defeated = append(defeated, unit.ID)
		}
	}
	return defeated
}

// canSpreadTo applies the terrain gates: on the map, not already affected,
// terrain in the required set when one exists, and not in the blocked set.
func (he *HazardEngine) canSpreadTo(h *Hazard, pos Vector) bool {
	if !he.m.Valid(pos) || h.Affected.Contains(pos) {
		return false
	}
	terrain := he.m.TerrainAt(pos)
	if slices.Contains(h.Props.SpreadBlockedBy, terrain) {
		return false
	}
	if len(h.Props.SpreadRequires) > 0 && !slices.Contains(h.Props.SpreadRequires, terrain) {
		return false
	}
	return true
}

// pickSpreadTarget selects the cell to claim this activation, per pattern.
func (he *HazardEngine) pickSpreadTarget(h *Hazard, stream *rand.Rand) (Vector, bool) {
	var candidates []Vector
	switch h.Props.SpreadPattern {
	case SpreadAdjacent:
		candidates = he.frontier(h, CardinalOffsets[:])
	case SpreadDiagonal:
		candidates = he.frontier(h, DiagonalOffsets[:])
	case SpreadWind:
		for _, pos := range h.Affected.Sorted() {
			next := pos.Add(h.Wind)
			if he.canSpreadTo(h, next) {
				candidates = append(candidates, next)
			}
		}
	case SpreadRandom:
		candidates = he.frontier(h, CardinalOffsets[:])
	}
	if len(candidates) == 0 {
		return Vector{}, false
	}
	return candidates[stream.Intn(len(candidates))], true
}

// frontier collects eligible neighbor cells of the footprint, deduplicated,
// in deterministic order.
func (he *HazardEngine) frontier(h *Hazard, offsets []Vector) []Vector {
	seen := NewVectorSet()
	var out []Vector
	for _, pos := range h.Affected.Sorted() {
		for _, off := range offsets {
			next := pos.Add(off)
			if seen.Contains(next) || !he.canSpreadTo(h, next) {
				continue
			}
			seen.Add(next)
			out = append(out, next)
		}
	}
	sortVectors(out)
	return out
}

// spreadTo claims a cell, running combination and neutralization against any
// hazard already holding it.
func (he *HazardEngine) spreadTo(h *Hazard, pos Vector) {
	for _, existing := range he.HazardsAt(pos) {
		if existing == h {
			continue
		}
		if slices.Contains(existing.Props.Neutralizes, h.Kind) {
			// The occupant beats back the newcomer.
			return
		}
		if derived, ok := hazardCombinations[[2]HazardKind{h.Kind, existing.Kind}]; ok {
			he.releaseCell(existing, pos)
			he.spawn(derived, pos, h.Intensity, h.SourceUnitID)
			h.SpreadCount++
			return
		}
	}
	h.Affected.Add(pos)
	h.SpreadCount++
	he.logf("%s spreads to %v", h.Props.Name, pos)
}

// expire removes a hazard, applying its terrain transformation: the final
// effect's when it has one, otherwise the initial effect's.
func (he *HazardEngine) expire(h *Hazard, applyTransform bool) {
	if applyTransform {
		var transform *TerrainType
		if h.Props.FinalEffect != nil && h.Props.FinalEffect.TerrainTransform != nil {
			transform = h.Props.FinalEffect.TerrainTransform
		} else if h.Props.InitialEffect.TerrainTransform != nil {
			transform = h.Props.InitialEffect.TerrainTransform
		}
		if transform != nil {
			for _, pos := range h.Affected.Sorted() {
				he.m.SetTerrain(pos, *transform)
			}
		}
	}
	delete(he.hazards, h.ID)
	he.bus.Publish(HazardExpiredEvent{
		Time:     he.clock(),
		HazardID: h.ID,
		Kind:     h.Kind,
		Position: h.Origin,
	})
}

// MovementPenaltyAt returns the extra movement cost hazards impose on a
// tile.
func (he *HazardEngine) MovementPenaltyAt(pos Vector) int {
	penalty := 0
	for _, h := range he.HazardsAt(pos) {
		penalty += h.Props.RecurringEffect.MovementPenalty
		penalty += h.Props.InitialEffect.MovementPenalty
	}
	return penalty
}

func (he *HazardEngine) logf(format string, args ...any) {
	he.bus.Publish(LogMessageEvent{
		Time:     he.clock(),
		Category: "HAZARD",
		Level:    LogInfo,
		Message:  fmt.Sprintf(format, args...),
		Source:   "HazardEngine",
	})
}
