package lib

import "fmt"

// =============================================================================
// Action Model
// =============================================================================
// An action is a pure descriptor plus two closures: validator and executor.
// The scheduler never inspects action internals; it validates, executes, and
// reschedules the actor by effective weight. The action "class" is simply
// the descriptor's identity.

// ActionCategory buckets actions by weight band.
type ActionCategory int

const (
	CategoryQuick    ActionCategory = iota // weight 50-80
	CategoryNormal                         // weight ~100
	CategoryHeavy                          // weight >= 150
	CategoryPrepared                       // weight 120-140
)

var categoryNames = map[ActionCategory]string{
	CategoryQuick:    "Quick",
	CategoryNormal:   "Normal",
	CategoryHeavy:    "Heavy",
	CategoryPrepared: "Prepared",
}

func (c ActionCategory) String() string { return categoryNames[c] }

// ActionResult reports how an execution ended.
type ActionResult int

const (
	ActionSucceeded ActionResult = iota
	ActionFailed
	// ActionAwaitingConfirmation means the action suspended on a
	// friendly-fire check; the pending resolution sits on the Game until
	// confirmed or cancelled.
	ActionAwaitingConfirmation
)

// TargetKind says what an action points at.
type TargetKind int

const (
	TargetNone TargetKind = iota
	TargetPosition
	TargetUnit
)

// Target is an action's object: nothing, a map position, or a unit.
type Target struct {
	Kind     TargetKind
	Position Vector
	UnitID   string
}

// NoTarget is the target of self-contained actions.
func NoTarget() Target { return Target{Kind: TargetNone} }

// PositionTarget aims at a map cell.
func PositionTarget(pos Vector) Target { return Target{Kind: TargetPosition, Position: pos} }

// UnitTarget aims at a unit by id.
func UnitTarget(id string) Target { return Target{Kind: TargetUnit, UnitID: id} }

// Action is a descriptor with validation and execution strategies.
type Action struct {
	Name        string
	BaseWeight  uint64
	Category    ActionCategory
	MaxRange    int
	RequiresLOS bool
	Targeting   TargetKind

	Validate func(g *Game, actor *Unit, target Target) Validation
	Execute  func(g *Game, actor *Unit, target Target) ActionResult
}

// EffectiveWeight is the action's base weight plus the actor's modifier.
// Wounded units pay a surcharge on heavy actions; the modification feeds the
// scheduler but does not change the action's identity.
func EffectiveWeight(a *Action, actor *Unit) uint64 {
	weight := a.BaseWeight
	if a.Category == CategoryHeavy && actor.Wound.HasWounds() {
		weight += 10
	}
	return weight
}

// =============================================================================
// Target resolution helpers
// =============================================================================

// resolveUnitTarget accepts a unit target directly or a position target with
// a unit standing on it.
func resolveUnitTarget(g *Game, target Target) (*Unit, Validation) {
	switch target.Kind {
	case TargetUnit:
		unit, ok := g.Map.UnitByID(target.UnitID)
		if !ok || !unit.IsAlive() {
			return nil, Invalid("target is gone")
		}
		return unit, Valid()
	case TargetPosition:
		unit := g.Map.UnitAt(target.Position)
		if unit == nil || !unit.IsAlive() {
			return nil, Invalid("no unit at %v", target.Position)
		}
		return unit, Valid()
	default:
		return nil, Invalid("action requires a target")
	}
}

func validateStrike(g *Game, actor *Unit, target Target, minRange, maxRange int) (*Unit, Validation) {
	if !actor.CanAct() {
		return nil, Invalid("%s has already acted", actor.Name())
	}
	return validateReactionStrike(g, actor, target, minRange, maxRange)
}

// validateReactionStrike is the strike check without the has-acted gate:
// prepared actions resolve outside their owner's turn.
func validateReactionStrike(g *Game, actor *Unit, target Target, minRange, maxRange int) (*Unit, Validation) {
	if !actor.IsAlive() {
		return nil, Invalid("%s is down", actor.Name())
	}
	defender, v := resolveUnitTarget(g, target)
	if !v.OK {
		return nil, v
	}
	if defender.ID == actor.ID {
		return nil, Invalid("cannot target self")
	}
	d := actor.Position().ManhattanDistance(defender.Position())
	if d < minRange || d > maxRange {
		return nil, Invalid("target at distance %d, need %d-%d", d, minRange, maxRange)
	}
	return defender, Valid()
}

// executeStrike runs a single-target attack: the incoming-attack interrupt
// window opens before any state mutates, then the exchange resolves with
// counters.
func executeStrike(g *Game, actor *Unit, defender *Unit, multiplier float64) ActionResult {
	g.DispatchTrigger(TriggerEvent{
		Type:       TriggerIncomingAttack,
		ActorID:    actor.ID,
		ActorTeam:  actor.Team(),
		Position:   actor.Position(),
		TargetID:   defender.ID,
		TargetTeam: defender.Team(),
	})
	// An interrupt may have killed or disabled the attacker before the blow
	// lands; the action then fizzles with state already modified.
	if !actor.IsAlive() {
		return ActionFailed
	}
	if !defender.IsAlive() {
		return ActionSucceeded
	}
	outcome := g.Combat.ExecuteAttack(actor, defender, g.Tick(), multiplier)
	g.ProcessDefeats(outcome.DefeatedIDs)
	return ActionSucceeded
}

// executeMoveTo relocates the actor and opens the movement trigger window.
func executeMoveTo(g *Game, actor *Unit, pos Vector) ActionResult {
	if err := g.Map.MoveUnit(actor.ID, pos); err != nil {
		return ActionFailed
	}
	g.DispatchTrigger(TriggerEvent{
		Type:      TriggerEnemyMovement,
		ActorID:   actor.ID,
		ActorTeam: actor.Team(),
		Position:  pos,
	})
	g.DispatchTrigger(TriggerEvent{
		Type:      TriggerPositionEntered,
		ActorID:   actor.ID,
		ActorTeam: actor.Team(),
		Position:  pos,
	})
	return ActionSucceeded
}

func validateMoveWithin(g *Game, actor *Unit, target Target, budget int) Validation {
	if target.Kind != TargetPosition {
		return Invalid("move requires a destination")
	}
	if !actor.CanMove() {
		return Invalid("%s has already moved", actor.Name())
	}
	if !g.Map.Valid(target.Position) {
		return Invalid("%v is off the map", target.Position)
	}
	if occ := g.Map.UnitAt(target.Position); occ != nil && occ.ID != actor.ID {
		return Invalid("%v is occupied", target.Position)
	}
	reachable := g.Map.floodFill(actor.Position(), budget, actor.Team())
	if !reachable.Contains(target.Position) {
		return Invalid("%v is out of reach", target.Position)
	}
	return Valid()
}

// =============================================================================
// Action Registry
// =============================================================================

// BuildActionRegistry constructs the closed action set. Descriptors are
// immutable after construction; validators and executors close over nothing
// but the Game passed in at call time, except that Overwatch and Shield Wall
// look up their interrupt-only reactions in the registry itself.
func BuildActionRegistry() map[string]*Action {
	registry := map[string]*Action{}
	add := func(a *Action) {
		registry[a.Name] = a
	}

	add(&Action{
		Name:       "Quick Strike",
		BaseWeight: 70,
		Category:   CategoryQuick,
		MaxRange:   1,
		Targeting:  TargetUnit,
		Validate: func(g *Game, actor *Unit, target Target) Validation {
			_, v := validateStrike(g, actor, target, 1, 1)
			return v
		},
		Execute: func(g *Game, actor *Unit, target Target) ActionResult {
			defender, v := validateStrike(g, actor, target, 1, 1)
			if !v.OK {
				return ActionFailed
			}
			return executeStrike(g, actor, defender, 0.7)
		},
	})

	add(&Action{
		Name:       "Quick Move",
		BaseWeight: 60,
		Category:   CategoryQuick,
		MaxRange:   2,
		Targeting:  TargetPosition,
		Validate: func(g *Game, actor *Unit, target Target) Validation {
			return validateMoveWithin(g, actor, target, 2)
		},
		Execute: func(g *Game, actor *Unit, target Target) ActionResult {
			if v := validateMoveWithin(g, actor, target, 2); !v.OK {
				return ActionFailed
			}
			return executeMoveTo(g, actor, target.Position)
		},
	})

	add(&Action{
		Name:       "Attack",
		BaseWeight: 100,
		Category:   CategoryNormal,
		MaxRange:   1,
		Targeting:  TargetPosition,
		Validate: func(g *Game, actor *Unit, target Target) Validation {
			return validateAOEAttack(g, actor, target)
		},
		Execute: func(g *Game, actor *Unit, target Target) ActionResult {
			return executeAOEAttack(g, actor, target, 1.0)
		},
	})

	add(&Action{
		Name:       "Move",
		BaseWeight: 100,
		Category:   CategoryNormal,
		Targeting:  TargetPosition,
		Validate: func(g *Game, actor *Unit, target Target) Validation {
			return validateMoveWithin(g, actor, target, actor.Movement.MovementPoints)
		},
		Execute: func(g *Game, actor *Unit, target Target) ActionResult {
			if v := validateMoveWithin(g, actor, target, actor.Movement.MovementPoints); !v.OK {
				return ActionFailed
			}
			return executeMoveTo(g, actor, target.Position)
		},
	})

	add(&Action{
		Name:       "Wait",
		BaseWeight: 100,
		Category:   CategoryNormal,
		Targeting:  TargetNone,
		Validate: func(g *Game, actor *Unit, target Target) Validation {
			return Valid()
		},
		Execute: func(g *Game, actor *Unit, target Target) ActionResult {
			return ActionSucceeded
		},
	})

	add(&Action{
		Name:       "Power Attack",
		BaseWeight: 180,
		Category:   CategoryHeavy,
		MaxRange:   1,
		Targeting:  TargetUnit,
		Validate: func(g *Game, actor *Unit, target Target) Validation {
			_, v := validateStrike(g, actor, target, 1, 1)
			return v
		},
		Execute: func(g *Game, actor *Unit, target Target) ActionResult {
			defender, v := validateStrike(g, actor, target, 1, 1)
			if !v.OK {
				return ActionFailed
			}
			return executeStrike(g, actor, defender, 1.5)
		},
	})

	add(&Action{
		Name:       "Charge",
		BaseWeight: 170,
		Category:   CategoryHeavy,
		MaxRange:   4,
		Targeting:  TargetUnit,
		Validate: func(g *Game, actor *Unit, target Target) Validation {
			defender, v := validateStrike(g, actor, target, 2, 4)
			if !v.OK {
				return v
			}
			if _, ok := chargeDestination(g, actor, defender); !ok {
				return Invalid("no open tile next to %s", defender.Name())
			}
			return Valid()
		},
		Execute: func(g *Game, actor *Unit, target Target) ActionResult {
			defender, v := validateStrike(g, actor, target, 2, 4)
			if !v.OK {
				return ActionFailed
			}
			dest, ok := chargeDestination(g, actor, defender)
			if !ok {
				return ActionFailed
			}
			if executeMoveTo(g, actor, dest) != ActionSucceeded {
				return ActionFailed
			}
			// Overwatch fire during the rush can stop the charge cold.
			if !actor.IsAlive() || !defender.IsAlive() {
				return ActionFailed
			}
			return executeStrike(g, actor, defender, 1.0)
		},
	})

	add(&Action{
		Name:       "Overwatch",
		BaseWeight: 130,
		Category:   CategoryPrepared,
		MaxRange:   3,
		Targeting:  TargetNone,
		Validate: func(g *Game, actor *Unit, target Target) Validation {
			if !actor.CanAct() {
				return Invalid("%s has already acted", actor.Name())
			}
			if !actor.Interrupt.CanPrepare() {
				return Invalid("%s already holds a prepared action", actor.Name())
			}
			return Valid()
		},
		Execute: func(g *Game, actor *Unit, target Target) ActionResult {
			err := g.Interrupts.Prepare(g.Map, &PreparedAction{
				Action:          registry["Overwatch Shot"],
				Trigger:         TriggerCondition{Type: TriggerEnemyMovement, RangeLimit: 3},
				OwnerID:         actor.ID,
				Priority:        10,
				UsesRemaining:   1,
				BindEventTarget: true,
			})
			if err != nil {
				return ActionFailed
			}
			actor.Status.HasActed = true
			g.logf("ACTION", "%s sets overwatch", actor.Name())
			return ActionSucceeded
		},
	})

	add(&Action{
		Name:       "Shield Wall",
		BaseWeight: 125,
		Category:   CategoryPrepared,
		Targeting:  TargetNone,
		Validate: func(g *Game, actor *Unit, target Target) Validation {
			if !actor.CanAct() {
				return Invalid("%s has already acted", actor.Name())
			}
			if !actor.Interrupt.CanPrepare() {
				return Invalid("%s already holds a prepared action", actor.Name())
			}
			return Valid()
		},
		Execute: func(g *Game, actor *Unit, target Target) ActionResult {
			err := g.Interrupts.Prepare(g.Map, &PreparedAction{
				Action:        registry["Brace"],
				Trigger:       TriggerCondition{Type: TriggerIncomingAttack},
				OwnerID:       actor.ID,
				Priority:      20,
				UsesRemaining: 1,
			})
			if err != nil {
				return ActionFailed
			}
			actor.Status.HasActed = true
			g.logf("ACTION", "%s raises a shield wall", actor.Name())
			return ActionSucceeded
		},
	})

	// Overwatch Shot is the resolution half of Overwatch: a reaction shot
	// out to the watch range, interrupt-only, never scheduled on the
	// timeline.
	add(&Action{
		Name:       "Overwatch Shot",
		BaseWeight: 0,
		Category:   CategoryQuick,
		MaxRange:   3,
		Targeting:  TargetUnit,
		Validate: func(g *Game, actor *Unit, target Target) Validation {
			_, v := validateReactionStrike(g, actor, target, 1, 3)
			return v
		},
		Execute: func(g *Game, actor *Unit, target Target) ActionResult {
			defender, v := validateReactionStrike(g, actor, target, 1, 3)
			if !v.OK {
				return ActionFailed
			}
			return executeStrike(g, actor, defender, 0.7)
		},
	})

	// Brace is the resolution half of Shield Wall: interrupt-only, never
	// scheduled on the timeline.
	add(&Action{
		Name:       "Brace",
		BaseWeight: 0,
		Category:   CategoryQuick,
		Targeting:  TargetNone,
		Validate: func(g *Game, actor *Unit, target Target) Validation {
			if !actor.IsAlive() {
				return Invalid("%s is down", actor.Name())
			}
			return Valid()
		},
		Execute: func(g *Game, actor *Unit, target Target) ActionResult {
			actor.Status.BraceBonus = 4
			g.logf("ACTION", "%s braces behind the shield", actor.Name())
			return ActionSucceeded
		},
	})

	return registry
}

// validateAOEAttack checks an area attack centered on a position within the
// actor's combat range.
func validateAOEAttack(g *Game, actor *Unit, target Target) Validation {
	if !actor.CanAct() {
		return Invalid("%s has already acted", actor.Name())
	}
	if target.Kind != TargetPosition {
		return Invalid("attack requires a target position")
	}
	if !g.Map.Valid(target.Position) {
		return Invalid("%v is off the map", target.Position)
	}
	d := actor.Position().ManhattanDistance(target.Position)
	if d < actor.Combat.AttackRangeMin || d > actor.Combat.AttackRangeMax {
		return Invalid("target at distance %d, need %d-%d",
			d, actor.Combat.AttackRangeMin, actor.Combat.AttackRangeMax)
	}
	return Valid()
}

// executeAOEAttack opens the incoming-attack window for every unit under
// the template, then resolves. A nonempty friendly-fire set suspends the
// attack on the Game's pending confirmation slot.
func executeAOEAttack(g *Game, actor *Unit, target Target, multiplier float64) ActionResult {
	if v := validateAOEAttack(g, actor, target); !v.OK {
		return ActionFailed
	}

	for _, pos := range g.Map.AOETiles(target.Position, actor.Combat.AOEPattern) {
		defender := g.Map.UnitAt(pos)
		if defender == nil || defender.ID == actor.ID || !defender.IsAlive() {
			continue
		}
		g.DispatchTrigger(TriggerEvent{
			Type:       TriggerIncomingAttack,
			ActorID:    actor.ID,
			ActorTeam:  actor.Team(),
			Position:   actor.Position(),
			TargetID:   defender.ID,
			TargetTeam: defender.Team(),
		})
	}
	if !actor.IsAlive() {
		return ActionFailed
	}

	res := g.Combat.ResolveAOE(actor, target.Position, actor.Combat.AOEPattern, g.Tick(), multiplier)
	if len(res.Targets) == 0 {
		return ActionFailed
	}
	if res.RequiresConfirmation {
		g.SetPendingAttack(res)
		return ActionAwaitingConfirmation
	}
	g.ProcessDefeats(res.DefeatedIDs)
	return ActionSucceeded
}

// chargeDestination picks the open tile adjacent to the defender closest to
// the actor, ties broken by (y, x) order.
func chargeDestination(g *Game, actor *Unit, defender *Unit) (Vector, bool) {
	best := -1
	var bestPos Vector
	for _, off := range CardinalOffsets {
		pos := defender.Position().Add(off)
		if !g.Map.Valid(pos) || g.Map.blocksAt(pos) {
			continue
		}
		if occ := g.Map.UnitAt(pos); occ != nil && occ.ID != actor.ID {
			continue
		}
		d := actor.Position().ManhattanDistance(pos)
		if best == -1 || d < best || (d == best && vectorBefore(pos, bestPos)) {
			best = d
			bestPos = pos
		}
	}
	return bestPos, best != -1
}

func vectorBefore(a, b Vector) bool {
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.X < b.X
}

// ActionPreviewLabel renders a timeline preview string for an action choice.
func ActionPreviewLabel(actionName string, target Target) string {
	switch target.Kind {
	case TargetPosition:
		return fmt.Sprintf("%s %v", actionName, target.Position)
	case TargetUnit:
		return fmt.Sprintf("%s -> %s", actionName, target.UnitID)
	default:
		return actionName
	}
}
