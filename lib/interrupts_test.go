package lib

import "testing"

func TestTriggerConditionMatching(t *testing.T) {
	m := NewMap(8, 8, nil)
	owner := buildUnit(unitSpec{name: "O", team: TeamPlayer, pos: Vec(2, 2)})
	if err := m.AddUnit(owner); err != nil {
		t.Fatalf("add: %v", err)
	}

	cond := TriggerCondition{Type: TriggerEnemyMovement, RangeLimit: 3}

	near := TriggerEvent{Type: TriggerEnemyMovement, ActorID: "e1", ActorTeam: TeamEnemy, Position: Vec(4, 2)}
	if !cond.Matches(near, owner) {
		t.Errorf("Enemy movement at distance 2 should match range 3")
	}
	far := TriggerEvent{Type: TriggerEnemyMovement, ActorID: "e1", ActorTeam: TeamEnemy, Position: Vec(7, 7)}
	if cond.Matches(far, owner) {
		t.Errorf("Movement at distance 10 must not match range 3")
	}
	friendly := TriggerEvent{Type: TriggerEnemyMovement, ActorID: "a1", ActorTeam: TeamPlayer, Position: Vec(3, 2)}
	if cond.Matches(friendly, owner) {
		t.Errorf("Ally movement must not trigger enemy-movement watch")
	}

	hpCond := TriggerCondition{Type: TriggerHPThreshold, HPThreshold: 10}
	low := TriggerEvent{Type: TriggerHPThreshold, TargetID: owner.ID, CurrentHP: 5}
	if !hpCond.Matches(low, owner) {
		t.Errorf("HP 5 should match threshold 10")
	}
	high := TriggerEvent{Type: TriggerHPThreshold, TargetID: owner.ID, CurrentHP: 15}
	if hpCond.Matches(high, owner) {
		t.Errorf("HP 15 must not match threshold 10")
	}

	pos := Vec(5, 5)
	posCond := TriggerCondition{Type: TriggerPositionEntered, TargetPosition: &pos}
	entered := TriggerEvent{Type: TriggerPositionEntered, ActorID: "e1", Position: pos}
	if !posCond.Matches(entered, owner) {
		t.Errorf("Expected position trigger to match")
	}
}

func TestOverwatchInterruptsEnemyMovement(t *testing.T) {
	g := newTestGame(8, 8)
	watcher := mustAddUnit(g, unitSpec{
		name: "Watcher", team: TeamPlayer, pos: Vec(2, 2), str: 30, hp: 25, speed: 12,
	})
	mover := mustAddUnit(g, unitSpec{
		name: "Mover", team: TeamEnemy, pos: Vec(5, 2), hp: 8, move: 3, speed: 10,
	})

	// Arm overwatch through the action itself.
	g.Timeline.Schedule(EntityRef{Kind: EntityUnit, ID: watcher.ID}, 0, "", VisibilityFull)
	g.QueueDecision(watcher.ID, "Overwatch", NoTarget())
	g.Advance()
	if g.Interrupts.PreparedCount() != 1 {
		t.Fatalf("Expected one prepared action, got %d", g.Interrupts.PreparedCount())
	}
	if len(watcher.Interrupt.Prepared) != 1 {
		t.Fatalf("Component mirror not updated")
	}

	// Enemy moves from (5,2) to (4,2): distance 2 from the watcher.
	g.Timeline.Schedule(EntityRef{Kind: EntityUnit, ID: mover.ID}, 10, "", VisibilityFull)
	g.QueueDecision(mover.ID, "Move", PositionTarget(Vec(4, 2)))
	g.Advance()

	if mover.Health.HPCurrent >= 8 {
		t.Fatalf("Overwatch shot did not land, mover hp %d", mover.Health.HPCurrent)
	}
	// Strength 30 times 0.7 against defense 0 kills an 8 hp unit outright.
	if mover.IsAlive() {
		t.Fatalf("Expected the mover dead, hp %d", mover.Health.HPCurrent)
	}
	if _, ok := g.Map.UnitByID(mover.ID); ok {
		t.Errorf("Dead mover should be off the map")
	}
	for _, e := range g.Timeline.Preview(8) {
		if e.Ref.ID == mover.ID {
			t.Errorf("Dead mover still has timeline entries")
		}
	}
	if g.Interrupts.PreparedCount() != 0 {
		t.Errorf("Single-use overwatch should be consumed")
	}
}

func TestInterruptOrderingPrioritySpeedInsertion(t *testing.T) {
	g := newTestGame(8, 8)
	fast := mustAddUnit(g, unitSpec{name: "Fast", team: TeamPlayer, pos: Vec(2, 2), speed: 20})
	slow := mustAddUnit(g, unitSpec{name: "Slow", team: TeamPlayer, pos: Vec(2, 4), speed: 5})
	high := mustAddUnit(g, unitSpec{name: "High", team: TeamPlayer, pos: Vec(2, 6), speed: 1})

	var order []string
	record := &Action{
		Name:      "Record",
		Targeting: TargetNone,
		Validate:  func(g *Game, actor *Unit, target Target) Validation { return Valid() },
		Execute: func(g *Game, actor *Unit, target Target) ActionResult {
			order = append(order, actor.Name())
			return ActionSucceeded
		},
	}
	prepare := func(owner *Unit, priority int) {
		err := g.Interrupts.Prepare(g.Map, &PreparedAction{
			Action:        record,
			Trigger:       TriggerCondition{Type: TriggerEnemyMovement},
			OwnerID:       owner.ID,
			Priority:      priority,
			UsesRemaining: 1,
		})
		if err != nil {
			t.Fatalf("prepare: %v", err)
		}
	}
	prepare(slow, 0)
	prepare(fast, 0)
	prepare(high, 5)

	g.DispatchTrigger(TriggerEvent{
		Type: TriggerEnemyMovement, ActorID: "e", ActorTeam: TeamEnemy, Position: Vec(3, 3),
	})

	want := []string{"High", "Fast", "Slow"}
	if len(order) != 3 {
		t.Fatalf("Expected 3 interrupts, got %d", len(order))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("Resolution order[%d] = %s, want %s", i, order[i], want[i])
		}
	}
}

func TestInterruptChainDepthOne(t *testing.T) {
	g := newTestGame(8, 8)
	a := mustAddUnit(g, unitSpec{name: "A", team: TeamPlayer, pos: Vec(2, 2)})
	b := mustAddUnit(g, unitSpec{name: "B", team: TeamPlayer, pos: Vec(2, 4)})

	secondFired := false
	second := &Action{
		Name:      "Second",
		Targeting: TargetNone,
		Validate:  func(g *Game, actor *Unit, target Target) Validation { return Valid() },
		Execute: func(g *Game, actor *Unit, target Target) ActionResult {
			secondFired = true
			return ActionSucceeded
		},
	}
	first := &Action{
		Name:      "First",
		Targeting: TargetNone,
		Validate:  func(g *Game, actor *Unit, target Target) Validation { return Valid() },
		Execute: func(g *Game, actor *Unit, target Target) ActionResult {
			// Raising another trigger mid-resolution must not chain.
			g.DispatchTrigger(TriggerEvent{
				Type: TriggerEnemyMovement, ActorID: "e", ActorTeam: TeamEnemy, Position: Vec(2, 3),
			})
			return ActionSucceeded
		},
	}

	if err := g.Interrupts.Prepare(g.Map, &PreparedAction{
		Action: first, Trigger: TriggerCondition{Type: TriggerPositionEntered},
		OwnerID: a.ID, UsesRemaining: 1,
	}); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if err := g.Interrupts.Prepare(g.Map, &PreparedAction{
		Action: second, Trigger: TriggerCondition{Type: TriggerEnemyMovement},
		OwnerID: b.ID, UsesRemaining: 1,
	}); err != nil {
		t.Fatalf("prepare: %v", err)
	}

	g.DispatchTrigger(TriggerEvent{
		Type: TriggerPositionEntered, ActorID: "e", ActorTeam: TeamEnemy, Position: Vec(4, 4),
	})

	if secondFired {
		t.Errorf("Interrupt chained past depth one")
	}
	if g.Interrupts.PreparedCount() != 1 {
		t.Errorf("Second prepared action should survive untriggered")
	}
}

func TestOwnerDeathPurgesPreparedActions(t *testing.T) {
	g := newTestGame(8, 8)
	owner := mustAddUnit(g, unitSpec{name: "O", team: TeamPlayer, pos: Vec(2, 2), hp: 10})

	if err := g.Interrupts.Prepare(g.Map, &PreparedAction{
		Action:  g.Actions["Brace"],
		Trigger: TriggerCondition{Type: TriggerIncomingAttack},
		OwnerID: owner.ID, UsesRemaining: 1,
	}); err != nil {
		t.Fatalf("prepare: %v", err)
	}

	owner.Health.TakeDamage(10)
	g.ProcessDefeats([]string{owner.ID})

	if g.Interrupts.PreparedCount() != 0 {
		t.Errorf("Dead owner's prepared actions must be purged")
	}
	if g.Interrupts.PendingCount() != 0 {
		t.Errorf("Dead owner's stack entries must be purged")
	}
}

func TestPrepareRespectsCap(t *testing.T) {
	g := newTestGame(5, 5)
	owner := mustAddUnit(g, unitSpec{name: "O", team: TeamPlayer, pos: Vec(2, 2)})

	p := func() *PreparedAction {
		return &PreparedAction{
			Action:  g.Actions["Brace"],
			Trigger: TriggerCondition{Type: TriggerIncomingAttack},
			OwnerID: owner.ID, UsesRemaining: 1,
		}
	}
	if err := g.Interrupts.Prepare(g.Map, p()); err != nil {
		t.Fatalf("first prepare: %v", err)
	}
	if err := g.Interrupts.Prepare(g.Map, p()); err == nil {
		t.Errorf("Second prepare should hit the cap of 1")
	}
}
