package lib

import (
	"fmt"
	"log/slog"
)

// ticksPerTurn converts timeline ticks into coarse turns for systems that
// think in turns: rally throttling, wound healing, turn-limit objectives.
const ticksPerTurn = 100

// =============================================================================
// Game - Battle Orchestrator
// =============================================================================
// Game composes the four orthogonal engine APIs (map mutations, timeline,
// event bus, interrupt manager) plus the resolvers and cross-cutting
// systems built on them. One Advance call pops the next timeline entry, asks
// its owner for an action, validates and executes it, publishes events,
// drains triggered interrupts, and reinserts the actor with an updated
// execution tick. Everything runs on a single thread; Advance runs to
// completion before returning.

// AdvanceResult reports what one Advance call did.
type AdvanceResult struct {
	Tick       uint64
	ActorID    string
	ActorName  string
	ActionName string
	Result     ActionResult
	HazardTick bool
	Done       bool // terminal phase reached or timeline empty
}

// Game is the simulation root.
type Game struct {
	Map        *Map
	Timeline   *Timeline
	Bus        *EventBus
	Interrupts *InterruptManager
	Hazards    *HazardEngine
	Combat     *CombatResolver
	Morale     *MoraleManager
	Wounds     *WoundManager
	Actions    map[string]*Action
	RNG        *RNG
	Log        *GameLog

	Phase BattlePhase

	victoryObjectives []Objective
	defeatObjectives  []Objective
	turnLimit         int // 0 = unlimited

	pendingAttack        *AOEResolution
	pendingAttackActorID string
	pendingAttackWeight  uint64

	// Informational triggers raised by bus events during an action are
	// drained after the action finishes mutating state.
	deferredTriggers []TriggerEvent

	// Player decisions queued by the front end, keyed by unit id, consumed
	// when that unit's timeline entry fires.
	decisions map[string]AIDecision

	logger *slog.Logger
}

// NewGame wires a fresh engine around a map. The seed roots every random
// draw the battle will ever make.
func NewGame(m *Map, seed uint64, logger *slog.Logger) *Game {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Game{
		Map:       m,
		Bus:       NewEventBus(),
		RNG:       NewRNG(seed),
		Actions:   BuildActionRegistry(),
		Phase:     PhaseDeployment,
		decisions: map[string]AIDecision{},
		logger:    logger,
	}
	g.Timeline = NewTimeline(g.refAlive)
	g.Combat = NewCombatResolver(m, g.Bus, g.RNG)
	g.Hazards = NewHazardEngine(m, g.Bus, g.RNG, g.Tick)
	g.Interrupts = NewInterruptManager()
	g.Morale = NewMoraleManager(m, g.Bus, g.Tick, g.Turn)
	g.Wounds = NewWoundManager(m, g.Bus, g.RNG, g.Tick)
	g.Log = NewGameLog(g.Bus, logger)

	// Damage events open the informational trigger windows: ally-damaged
	// and hp-threshold interrupts fire after the damage is fully dispatched.
	g.Bus.Subscribe(EventUnitDamaged, func(ev Event) {
		damaged := ev.(UnitDamagedEvent)
		attackerTeam := TeamNeutral
		if attacker, ok := m.UnitByID(damaged.AttackerID); ok {
			attackerTeam = attacker.Team()
		}
		g.deferredTriggers = append(g.deferredTriggers,
			TriggerEvent{
				Type:       TriggerAllyDamaged,
				ActorID:    damaged.AttackerID,
				ActorTeam:  attackerTeam,
				Position:   damaged.Position,
				TargetID:   damaged.UnitID,
				TargetTeam: damaged.Team,
			},
			TriggerEvent{
				Type:       TriggerHPThreshold,
				ActorID:    damaged.AttackerID,
				ActorTeam:  attackerTeam,
				Position:   damaged.Position,
				TargetID:   damaged.UnitID,
				TargetTeam: damaged.Team,
				CurrentHP:  damaged.HPLeft,
			},
		)
	})
	return g
}

// Tick is the current timeline time.
func (g *Game) Tick() uint64 {
	return g.Timeline.CurrentTime()
}

// Turn is the coarse turn number derived from the tick.
func (g *Game) Turn() int {
	return int(g.Tick() / ticksPerTurn)
}

// refAlive is the timeline's lazy-discard predicate.
func (g *Game) refAlive(ref EntityRef) bool {
	switch ref.Kind {
	case EntityUnit:
		unit, ok := g.Map.UnitByID(ref.ID)
		return ok && unit.IsAlive()
	case EntityHazard:
		_, ok := g.Hazards.Get(ref.ID)
		return ok
	}
	return false
}

// SetObjectives installs the scenario's victory and defeat conditions.
func (g *Game) SetObjectives(victory, defeat []Objective, turnLimit int) {
	g.victoryObjectives = victory
	g.defeatObjectives = defeat
	g.turnLimit = turnLimit
}

// AddUnit places a unit and schedules its first activation; higher speed
// means an earlier first turn. Enemy intents render partially hidden.
func (g *Game) AddUnit(unit *Unit) error {
	if err := g.Map.AddUnit(unit); err != nil {
		return err
	}
	g.Timeline.ScheduleAfter(
		EntityRef{Kind: EntityUnit, ID: unit.ID},
		InitialDelay(unit.EffectiveSpeed()),
		"",
		g.visibilityFor(unit),
	)
	return nil
}

func (g *Game) visibilityFor(unit *Unit) Visibility {
	if unit.Team() == TeamEnemy {
		return VisibilityPartial
	}
	return VisibilityFull
}

// CreateHazard places a hazard and schedules its activations.
func (g *Game) CreateHazard(kind HazardKind, pos Vector, intensity int, sourceUnitID string) (*Hazard, error) {
	h, err := g.Hazards.Create(kind, pos, intensity, sourceUnitID)
	if err != nil || h == nil {
		return h, err
	}
	g.Timeline.ScheduleAfter(
		EntityRef{Kind: EntityHazard, ID: h.ID},
		h.Props.TicksPerAction,
		h.Props.Name,
		VisibilityFull,
	)
	return h, nil
}

// Begin transitions from deployment into battle.
func (g *Game) Begin() {
	g.setPhase(PhaseBattle)
}

// QueueDecision stores a player decision for a unit, consumed when the
// unit's timeline entry fires.
func (g *Game) QueueDecision(unitID string, actionName string, target Target) {
	g.decisions[unitID] = AIDecision{ActionName: actionName, Target: target}
}

// =============================================================================
// The Advance Loop
// =============================================================================

// Advance pops and resolves the next timeline entry. It returns Done when
// the battle reached a terminal phase, the timeline drained, or a
// friendly-fire confirmation is pending.
func (g *Game) Advance() AdvanceResult {
	if g.Phase == PhaseVictory || g.Phase == PhaseDefeat {
		return AdvanceResult{Tick: g.Tick(), Done: true}
	}
	if g.pendingAttack != nil {
		// The caller must confirm or cancel before the battle moves.
		return AdvanceResult{Tick: g.Tick(), Done: true}
	}

	entry, ok := g.Timeline.Pop()
	if !ok {
		return AdvanceResult{Tick: g.Tick(), Done: true}
	}

	if entry.Ref.Kind == EntityHazard {
		return g.advanceHazard(entry)
	}
	return g.advanceUnit(entry)
}

func (g *Game) advanceHazard(entry TimelineEntry) AdvanceResult {
	result := AdvanceResult{Tick: g.Tick(), ActorID: entry.Ref.ID, HazardTick: true}

	tickResult := g.Hazards.Tick(entry.Ref.ID)
	g.ProcessDefeats(tickResult.DefeatedIDs)
	g.drainDeferredTriggers()

	if !tickResult.Expired {
		if h, ok := g.Hazards.Get(entry.Ref.ID); ok {
			g.Timeline.ScheduleAfter(entry.Ref, h.Props.TicksPerAction, h.Props.Name, VisibilityFull)
		}
	}
	g.checkObjectives()
	result.Done = g.Phase == PhaseVictory || g.Phase == PhaseDefeat
	return result
}

func (g *Game) advanceUnit(entry TimelineEntry) AdvanceResult {
	result := AdvanceResult{Tick: g.Tick(), ActorID: entry.Ref.ID}

	actor, ok := g.Map.UnitByID(entry.Ref.ID)
	if !ok || !actor.IsAlive() {
		// Lazy discard races removal; nothing to do this tick.
		return result
	}
	result.ActorName = actor.Name()

	// Turn bookkeeping before the owner is asked for an action.
	actor.Status.StartTurn()
	g.Morale.ProcessTurnStart(actor)
	g.Wounds.ProcessTurn(actor)
	g.DispatchTrigger(TriggerEvent{
		Type:      TriggerTurnStart,
		ActorID:   actor.ID,
		ActorTeam: actor.Team(),
		Position:  actor.Position(),
	})
	if !actor.IsAlive() {
		g.ProcessDefeats(nil)
		g.checkObjectives()
		return result
	}

	decision := g.decideFor(actor)
	action, ok := g.Actions[decision.ActionName]
	if !ok {
		g.logf("GAME", "%s chose unknown action %q, waiting instead", actor.Name(), decision.ActionName)
		action = g.Actions["Wait"]
		decision.Target = NoTarget()
	}
	result.ActionName = action.Name

	if v := action.Validate(g, actor, decision.Target); !v.OK {
		// An invalid choice is a no-op tick: the actor is reinserted at
		// base weight and the reason travels to the front end.
		g.logf("GAME", "%s: %s rejected (%s)", actor.Name(), action.Name, v.Reason)
		result.Result = ActionFailed
		g.reschedule(actor, action.BaseWeight)
		return result
	}

	result.Result = action.Execute(g, actor, decision.Target)
	g.drainDeferredTriggers()

	g.DispatchTrigger(TriggerEvent{
		Type:      TriggerTurnEnd,
		ActorID:   actor.ID,
		ActorTeam: actor.Team(),
		Position:  actor.Position(),
	})
	g.drainDeferredTriggers()

	switch result.Result {
	case ActionAwaitingConfirmation:
		// The actor reschedules when the attack is confirmed or cancelled.
		g.pendingAttackActorID = actor.ID
		g.pendingAttackWeight = EffectiveWeight(action, actor)
	case ActionFailed:
		g.reschedule(actor, action.BaseWeight)
	default:
		g.rescheduleAfter(actor, action)
	}

	g.checkObjectives()
	result.Done = g.Phase == PhaseVictory || g.Phase == PhaseDefeat || g.pendingAttack != nil
	return result
}

// decideFor consumes a queued player decision or falls back to the unit's
// behavior policy.
func (g *Game) decideFor(actor *Unit) AIDecision {
	if decision, ok := g.decisions[actor.ID]; ok {
		delete(g.decisions, actor.ID)
		return decision
	}
	if actor.AI.Behavior == nil {
		return AIDecision{ActionName: "Wait"}
	}
	return actor.AI.Behavior.ChooseAction(g, actor)
}

func (g *Game) reschedule(actor *Unit, weight uint64) {
	if !actor.IsAlive() {
		return
	}
	g.Timeline.ScheduleAfter(
		EntityRef{Kind: EntityUnit, ID: actor.ID},
		weight,
		"",
		g.visibilityFor(actor),
	)
}

// rescheduleAfter reinserts the actor with the action's effective weight.
// Enemy heavy actions register as hidden intents: the ladder shows "???".
func (g *Game) rescheduleAfter(actor *Unit, action *Action) {
	if !actor.IsAlive() {
		return
	}
	vis := g.visibilityFor(actor)
	if actor.Team() == TeamEnemy && action.Category == CategoryHeavy {
		vis = VisibilityHidden
	}
	g.Timeline.ScheduleAfter(
		EntityRef{Kind: EntityUnit, ID: actor.ID},
		EffectiveWeight(action, actor),
		"",
		vis,
	)
}

// =============================================================================
// Interrupt Dispatch
// =============================================================================

// DispatchTrigger matches a trigger event against the prepared-action store
// and drains the resolution stack immediately. For incoming-attack and
// position-entered windows this runs before the triggering action mutates
// state; interrupts raised while the stack drains are discarded, keeping
// chains at depth one.
func (g *Game) DispatchTrigger(ev TriggerEvent) {
	triggered := g.Interrupts.CheckTriggers(g.Map, ev)
	if len(triggered) == 0 {
		return
	}
	queued, discarded := g.Interrupts.Queue(triggered, ev)
	if discarded > 0 {
		g.logf("INTERRUPT", "%d interrupt(s) discarded at chain depth limit", discarded)
	}
	if queued > 0 {
		g.Interrupts.ResolveStack(g)
	}
}

func (g *Game) drainDeferredTriggers() {
	for len(g.deferredTriggers) > 0 {
		pending := g.deferredTriggers
		g.deferredTriggers = nil
		for _, ev := range pending {
			g.DispatchTrigger(ev)
		}
	}
}

// =============================================================================
// Death, Confirmation, Objectives
// =============================================================================

// ProcessDefeats removes dead units from the map in one batch and purges
// their timeline entries and prepared actions. Defeat events were already
// published when the damage landed.
func (g *Game) ProcessDefeats(defeatedIDs []string) {
	// Sweep for deaths from side effects (interrupts, hazards) that were
	// not reported explicitly.
	seen := map[string]bool{}
	var doomed []string
	for _, id := range defeatedIDs {
		if !seen[id] {
			seen[id] = true
			doomed = append(doomed, id)
		}
	}
	for _, unit := range g.Map.Units() {
		if !unit.IsAlive() && !seen[unit.ID] {
			seen[unit.ID] = true
			doomed = append(doomed, unit.ID)
		}
	}
	if len(doomed) == 0 {
		return
	}
	for _, id := range doomed {
		g.Timeline.Cancel(EntityRef{Kind: EntityUnit, ID: id})
		g.Interrupts.PurgeOwner(g.Map, id)
	}
	g.Map.RemoveUnits(doomed)
}

// PendingAttack returns the friendly-fire resolution awaiting confirmation.
func (g *Game) PendingAttack() *AOEResolution {
	return g.pendingAttack
}

// SetPendingAttack suspends an attack on the confirmation slot.
func (g *Game) SetPendingAttack(res *AOEResolution) {
	g.pendingAttack = res
}

// ConfirmPendingAttack applies the suspended attack with its precomputed
// numbers and reschedules the attacker.
func (g *Game) ConfirmPendingAttack() error {
	res := g.pendingAttack
	if res == nil {
		return ErrNotFound
	}
	g.pendingAttack = nil
	if err := g.Combat.ApplyConfirmed(res); err != nil {
		return err
	}
	g.ProcessDefeats(res.DefeatedIDs)
	g.drainDeferredTriggers()
	g.rescheduleAfterPending()
	g.checkObjectives()
	return nil
}

// CancelPendingAttack abandons the suspended attack; the attacker loses the
// tick and reschedules at the action's weight.
func (g *Game) CancelPendingAttack() {
	if g.pendingAttack == nil {
		return
	}
	g.pendingAttack = nil
	g.rescheduleAfterPending()
}

func (g *Game) rescheduleAfterPending() {
	if actor, ok := g.Map.UnitByID(g.pendingAttackActorID); ok {
		g.reschedule(actor, g.pendingAttackWeight)
	}
	g.pendingAttackActorID = ""
	g.pendingAttackWeight = 0
}

// checkObjectives evaluates the terminal conditions: Victory when all
// victory objectives are met, Defeat when any defeat objective is met.
func (g *Game) checkObjectives() {
	if g.Phase != PhaseBattle {
		return
	}
	if g.turnLimit > 0 && g.Turn() >= g.turnLimit {
		g.setPhase(PhaseDefeat)
		return
	}
	for _, obj := range g.defeatObjectives {
		if obj.Met(g) {
			g.setPhase(PhaseDefeat)
			return
		}
	}
	if len(g.victoryObjectives) > 0 {
		for _, obj := range g.victoryObjectives {
			if !obj.Met(g) {
				return
			}
		}
		g.setPhase(PhaseVictory)
	}
}

func (g *Game) setPhase(phase BattlePhase) {
	if g.Phase == phase {
		return
	}
	old := g.Phase
	g.Phase = phase
	g.Bus.Publish(BattlePhaseChangedEvent{
		Time:     g.Tick(),
		OldPhase: old,
		NewPhase: phase,
	})
	g.logf("GAME", "phase: %s -> %s", old, phase)
}

func (g *Game) logf(category, format string, args ...any) {
	g.Bus.Publish(LogMessageEvent{
		Time:     g.Tick(),
		Category: category,
		Level:    LogInfo,
		Message:  fmt.Sprintf(format, args...),
		Source:   "Game",
	})
}
