package lib

import (
	"fmt"
	"slices"
)

// =============================================================================
// Interrupt and Prepared Action System
// =============================================================================
// Units can prepare actions that wait for a trigger condition: overwatch
// fire on enemy movement, a shield brace against an incoming blow. The
// manager owns the authoritative store of prepared actions, matches trigger
// conditions against world events, and drains a resolution stack ordered by
// (priority DESC, owner speed DESC, insertion ASC).

// TriggerType enumerates the conditions that can activate an interrupt.
type TriggerType int

const (
	TriggerEnemyMovement TriggerType = iota
	TriggerIncomingAttack
	TriggerAllyDamaged
	TriggerEnemyCasting
	TriggerTurnStart
	TriggerTurnEnd
	TriggerHPThreshold
	TriggerPositionEntered
)

var triggerNames = map[TriggerType]string{
	TriggerEnemyMovement:   "EnemyMovement",
	TriggerIncomingAttack:  "IncomingAttack",
	TriggerAllyDamaged:     "AllyDamaged",
	TriggerEnemyCasting:    "EnemyCasting",
	TriggerTurnStart:       "TurnStart",
	TriggerTurnEnd:         "TurnEnd",
	TriggerHPThreshold:     "HPThreshold",
	TriggerPositionEntered: "PositionEntered",
}

func (t TriggerType) String() string {
	return triggerNames[t]
}

// TriggerCondition defines when a prepared action activates. Optional
// filters narrow the match; zero values leave a filter open.
type TriggerCondition struct {
	Type TriggerType

	RangeLimit     int     // movement/sight triggers; 0 = unlimited
	HPThreshold    int     // HPThreshold triggers
	TargetPosition *Vector // PositionEntered triggers
	TeamFilter     *Team   // restrict to events caused by one team
}

// TriggerEvent is a world occurrence the manager matches conditions against.
// It is distinct from the bus event set: triggers fire on movement and attack
// initiation, which are not bus events.
type TriggerEvent struct {
	Type      TriggerType
	ActorID   string // unit causing the event: the mover, the attacker
	ActorTeam Team
	Position   Vector // position entered, or the actor's position
	TargetID   string // affected unit: the defender, the damaged ally
	TargetTeam Team
	CurrentHP  int // for HP threshold checks
}

// Matches reports whether the condition is satisfied by an event from the
// standpoint of the prepared action's owner.
func (c TriggerCondition) Matches(ev TriggerEvent, owner *Unit) bool {
	if c.Type != ev.Type {
		return false
	}

	switch c.Type {
	case TriggerEnemyMovement:
		if ev.ActorID == owner.ID || ev.ActorTeam == owner.Team() {
			return false
		}
		if c.RangeLimit > 0 && owner.Position().ManhattanDistance(ev.Position) > c.RangeLimit {
			return false
		}
	case TriggerIncomingAttack:
		if ev.TargetID != owner.ID {
			return false
		}
	case TriggerAllyDamaged:
		if ev.TargetID == owner.ID || ev.TargetTeam != owner.Team() {
			return false
		}
	case TriggerEnemyCasting:
		if ev.ActorTeam == owner.Team() {
			return false
		}
		if c.RangeLimit > 0 && owner.Position().ManhattanDistance(ev.Position) > c.RangeLimit {
			return false
		}
	case TriggerHPThreshold:
		if ev.TargetID != owner.ID || ev.CurrentHP >= c.HPThreshold {
			return false
		}
	case TriggerPositionEntered:
		if c.TargetPosition != nil && ev.Position != *c.TargetPosition {
			return false
		}
	}

	if c.TeamFilter != nil && ev.ActorTeam != *c.TeamFilter {
		return false
	}
	return true
}

// PreparedAction is an armed interrupt waiting for its trigger.
type PreparedAction struct {
	Action        *Action
	Trigger       TriggerCondition
	OwnerID       string
	Target        Target
	Priority      int
	UsesRemaining int

	// BindEventTarget aims the action at the unit that caused the trigger
	// event, resolved at queue time. Overwatch fires at whoever moved.
	BindEventTarget bool

	// TimelineEntrySeq links the prepared action to the entry that armed it,
	// when one exists.
	TimelineEntrySeq uint64

	insertSeq int
}

// InterruptManager owns the prepared-action store and the resolution stack.
type InterruptManager struct {
	prepared []*PreparedAction
	stack    []*PreparedAction
	nextSeq  int

	// depth guards against recursive chains. Interrupts may not trigger
	// further interrupts: chaining is fixed at depth one.
	depth int
}

// NewInterruptManager creates an empty manager.
func NewInterruptManager() *InterruptManager {
	return &InterruptManager{}
}

// Prepare arms a prepared action. It fails when the owner is unknown or has
// no free interrupt slot.
func (im *InterruptManager) Prepare(m *Map, p *PreparedAction) error {
	owner, ok := m.UnitByID(p.OwnerID)
	if !ok {
		return fmt.Errorf("prepare %s: owner %q: %w", p.Action.Name, p.OwnerID, ErrNotFound)
	}
	if !owner.Interrupt.CanPrepare() {
		return fmt.Errorf("prepare %s for %s: %w", p.Action.Name, owner.Name(), ErrBlocked)
	}
	im.nextSeq++
	p.insertSeq = im.nextSeq
	im.prepared = append(im.prepared, p)
	owner.Interrupt.Prepared = append(owner.Interrupt.Prepared, p)
	return nil
}

// PreparedFor returns the prepared actions owned by a unit.
func (im *InterruptManager) PreparedFor(unitID string) []*PreparedAction {
	var out []*PreparedAction
	for _, p := range im.prepared {
		if p.OwnerID == unitID {
			out = append(out, p)
		}
	}
	return out
}

// PreparedCount returns the size of the store.
func (im *InterruptManager) PreparedCount() int {
	return len(im.prepared)
}

// PendingCount returns the size of the resolution stack.
func (im *InterruptManager) PendingCount() int {
	return len(im.stack)
}

// PurgeOwner removes every prepared action and pending stack entry belonging
// to a unit. Called on unit death.
func (im *InterruptManager) PurgeOwner(m *Map, unitID string) int {
	removed := 0
	im.prepared = slices.DeleteFunc(im.prepared, func(p *PreparedAction) bool {
		if p.OwnerID == unitID {
			removed++
			return true
		}
		return false
	})
	im.stack = slices.DeleteFunc(im.stack, func(p *PreparedAction) bool {
		return p.OwnerID == unitID
	})
	if owner, ok := m.UnitByID(unitID); ok {
		owner.Interrupt.Prepared = nil
	}
	return removed
}

// remove drops one prepared action from the store and the owner's mirror.
func (im *InterruptManager) remove(m *Map, p *PreparedAction) {
	im.prepared = slices.DeleteFunc(im.prepared, func(q *PreparedAction) bool { return q == p })
	if owner, ok := m.UnitByID(p.OwnerID); ok {
		owner.Interrupt.Prepared = slices.DeleteFunc(owner.Interrupt.Prepared,
			func(q *PreparedAction) bool { return q == p })
	}
}

// CheckTriggers collects the prepared actions matched by an event, ordered
// by (priority DESC, owner speed DESC, insertion ASC).
func (im *InterruptManager) CheckTriggers(m *Map, ev TriggerEvent) []*PreparedAction {
	var triggered []*PreparedAction
	for _, p := range im.prepared {
		if p.UsesRemaining <= 0 {
			continue
		}
		owner, ok := m.UnitByID(p.OwnerID)
		if !ok || !owner.IsAlive() {
			continue
		}
		if p.Trigger.Matches(ev, owner) {
			triggered = append(triggered, p)
		}
	}
	slices.SortFunc(triggered, func(a, b *PreparedAction) int {
		if a.Priority != b.Priority {
			return b.Priority - a.Priority
		}
		aSpeed, bSpeed := 0, 0
		if u, ok := m.UnitByID(a.OwnerID); ok {
			aSpeed = u.EffectiveSpeed()
		}
		if u, ok := m.UnitByID(b.OwnerID); ok {
			bSpeed = u.EffectiveSpeed()
		}
		if aSpeed != bSpeed {
			return bSpeed - aSpeed
		}
		return a.insertSeq - b.insertSeq
	})
	return triggered
}

// Queue pushes triggered actions onto the resolution stack, binding
// event-targeted actions to the event's actor. Interrupts triggered while
// the stack is already draining are discarded: chains stop at depth one.
func (im *InterruptManager) Queue(triggered []*PreparedAction, ev TriggerEvent) (queued, discarded int) {
	if im.depth > 0 {
		return 0, len(triggered)
	}
	for _, p := range triggered {
		if p.BindEventTarget && ev.ActorID != "" {
			p.Target = UnitTarget(ev.ActorID)
		}
		im.stack = append(im.stack, p)
	}
	return len(triggered), 0
}

// ResolveStack drains the resolution stack. Each interrupt is re-validated
// against the current map before executing; execution consumes one use.
// Returns the number of interrupts that actually executed.
func (im *InterruptManager) ResolveStack(g *Game) int {
	if im.depth > 0 {
		// Re-entrant resolution would mean an interrupt chain deeper than
		// one, which the engine forbids.
		panic("interrupt stack resolution re-entered")
	}
	im.depth++
	defer func() { im.depth-- }()

	executed := 0
	for len(im.stack) > 0 {
		p := im.stack[0]
		im.stack = im.stack[1:]

		owner, ok := g.Map.UnitByID(p.OwnerID)
		if !ok || !owner.IsAlive() || p.UsesRemaining <= 0 {
			continue
		}
		if v := p.Action.Validate(g, owner, p.Target); !v.OK {
			g.logf("INTERRUPT", "%s: %s no longer valid (%s)", owner.Name(), p.Action.Name, v.Reason)
			continue
		}

		g.logf("INTERRUPT", "%s: %s triggers", owner.Name(), p.Action.Name)
		p.Action.Execute(g, owner, p.Target)
		p.UsesRemaining--
		executed++

		if p.UsesRemaining <= 0 {
			im.remove(g.Map, p)
		}
	}
	return executed
}
