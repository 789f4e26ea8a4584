package lib

import (
	"fmt"
	"math"
)

// =============================================================================
// AI Behavior Strategies
// =============================================================================
// AI behaviors are pluggable policies queried by the scheduler when a unit's
// timeline entry fires. The template's ai.behavior field is authoritative
// for which policy a class gets.

// AIDecision is a behavior's chosen action with target information.
type AIDecision struct {
	ActionName string
	Target     Target
	Confidence float64
	Reasoning  string
}

// AIBehavior chooses an action for a unit given the current battle state.
type AIBehavior interface {
	ChooseAction(g *Game, unit *Unit) AIDecision
	Name() string
}

// NewAIBehavior resolves a behavior by its template name. Unknown names fall
// back to aggressive.
func NewAIBehavior(name string) AIBehavior {
	switch name {
	case "INACTIVE":
		return InactiveBehavior{}
	case "AGGRESSIVE", "":
		return AggressiveBehavior{}
	default:
		return AggressiveBehavior{}
	}
}

// InactiveBehavior always waits. Useful for scripted scenarios and tests.
type InactiveBehavior struct{}

func (InactiveBehavior) Name() string { return "Inactive" }

func (InactiveBehavior) ChooseAction(g *Game, unit *Unit) AIDecision {
	return AIDecision{
		ActionName: "Wait",
		Confidence: 1.0,
		Reasoning:  "inactive units hold position",
	}
}

// AggressiveBehavior seeks the closest enemy and attacks, approaching when
// out of range. Routed or badly panicked units flee instead.
type AggressiveBehavior struct{}

func (AggressiveBehavior) Name() string { return "Aggressive" }

func (AggressiveBehavior) ChooseAction(g *Game, unit *Unit) AIDecision {
	enemy := closestEnemy(g.Map, unit)
	if enemy == nil {
		return AIDecision{
			ActionName: "Wait",
			Confidence: 0.1,
			Reasoning:  "no enemies left on the battlefield",
		}
	}

	if unit.Morale.ShouldFlee() {
		if pos, ok := fleePosition(g.Map, unit, enemy); ok {
			return AIDecision{
				ActionName: "Move",
				Target:     PositionTarget(pos),
				Confidence: 0.8,
				Reasoning:  fmt.Sprintf("fleeing from %s", enemy.Name()),
			}
		}
	}

	distance := unit.Position().ManhattanDistance(enemy.Position())
	if unit.Combat.InRange(unit.Position(), enemy.Position()) {
		return AIDecision{
			ActionName: "Attack",
			Target:     PositionTarget(enemy.Position()),
			Confidence: 0.9,
			Reasoning:  fmt.Sprintf("attacking %s at distance %d", enemy.Name(), distance),
		}
	}

	if pos, ok := approachPosition(g.Map, unit, enemy); ok {
		return AIDecision{
			ActionName: "Move",
			Target:     PositionTarget(pos),
			Confidence: 0.7,
			Reasoning:  fmt.Sprintf("closing on %s", enemy.Name()),
		}
	}

	return AIDecision{
		ActionName: "Wait",
		Confidence: 0.3,
		Reasoning:  fmt.Sprintf("cannot reach %s", enemy.Name()),
	}
}

// closestEnemy returns the nearest living enemy in unit-array order, ties
// going to the earlier unit.
func closestEnemy(m *Map, unit *Unit) *Unit {
	var closest *Unit
	best := math.MaxInt
	for _, other := range m.Units() {
		if other.ID == unit.ID || other.Team() == unit.Team() || !other.IsAlive() {
			continue
		}
		d := unit.Position().ManhattanDistance(other.Position())
		if d < best {
			best = d
			closest = other
		}
	}
	return closest
}

// approachPosition picks the reachable free cell closest to the enemy,
// breaking ties by (y, x) order.
func approachPosition(m *Map, unit *Unit, enemy *Unit) (Vector, bool) {
	current := unit.Position().ManhattanDistance(enemy.Position())
	best := current
	var bestPos Vector
	found := false
	for _, pos := range m.MovementRange(unit).Sorted() {
		if m.UnitAt(pos) != nil {
			continue
		}
		d := pos.ManhattanDistance(enemy.Position())
		if d < best {
			best = d
			bestPos = pos
			found = true
		}
	}
	return bestPos, found
}

// fleePosition picks the reachable free cell farthest from the enemy.
func fleePosition(m *Map, unit *Unit, enemy *Unit) (Vector, bool) {
	best := unit.Position().ManhattanDistance(enemy.Position())
	var bestPos Vector
	found := false
	for _, pos := range m.MovementRange(unit).Sorted() {
		if m.UnitAt(pos) != nil {
			continue
		}
		d := pos.ManhattanDistance(enemy.Position())
		if d > best {
			best = d
			bestPos = pos
			found = true
		}
	}
	return bestPos, found
}
