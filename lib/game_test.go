package lib

import "testing"

func TestBasicMeleeThroughAdvance(t *testing.T) {
	g := newTestGame(5, 5)
	knight := mustAddUnit(g, unitSpec{
		name: "Knight A", team: TeamPlayer, pos: Vec(1, 1),
		str: 10, def: 2, hp: 25, speed: 10,
	})
	warrior := mustAddUnit(g, unitSpec{
		name: "Warrior B", team: TeamEnemy, pos: Vec(1, 2),
		str: 8, def: 3, hp: 22, speed: 10,
	})
	g.Begin()

	// Put the knight up first at tick 0.
	g.Timeline.Schedule(EntityRef{Kind: EntityUnit, ID: knight.ID}, 0, "", VisibilityFull)
	g.QueueDecision(knight.ID, "Attack", PositionTarget(Vec(1, 2)))

	damaged := countEvents(g.Bus, EventUnitDamaged)
	result := g.Advance()

	if result.ActionName != "Attack" || result.Result != ActionSucceeded {
		t.Fatalf("Attack did not resolve: %+v", result)
	}
	// Base 9, variance ±2; a critical doubles.
	dealt := 22 - warrior.Health.HPCurrent
	if dealt < 7 || dealt > 22 {
		t.Errorf("Damage %d outside the formula envelope", dealt)
	}
	if *damaged != 1 {
		t.Errorf("Expected UnitDamaged exactly once, got %d", *damaged)
	}

	// The knight reinserts at tick 0 + weight 100.
	found := false
	for _, e := range g.Timeline.Preview(8) {
		if e.Ref.ID == knight.ID {
			found = true
			if e.ExecutionTick != 100 {
				t.Errorf("Knight reinserted at %d, want 100", e.ExecutionTick)
			}
		}
	}
	if !found {
		t.Errorf("Knight missing from the timeline")
	}
}

func TestAdvanceRunsBattleToVictory(t *testing.T) {
	g := newTestGame(5, 5)
	hero := mustAddUnit(g, unitSpec{
		name: "Hero", team: TeamPlayer, pos: Vec(2, 1),
		str: 30, def: 5, hp: 50, speed: 15,
	})
	hero.AI.Behavior = AggressiveBehavior{}
	mustAddUnit(g, unitSpec{
		name: "Mook", team: TeamEnemy, pos: Vec(2, 3),
		str: 2, def: 0, hp: 10, speed: 5,
	})
	g.SetObjectives([]Objective{DefeatAllEnemiesObjective{}}, nil, 0)
	g.Begin()

	for range 50 {
		if g.Advance().Done {
			break
		}
	}
	if g.Phase != PhaseVictory {
		t.Fatalf("Expected victory, phase %v, enemies %d", g.Phase, g.Map.CountAliveByTeam(TeamEnemy))
	}
}

func TestInvalidActionIsNoOpTick(t *testing.T) {
	g := newTestGame(5, 5)
	unit := mustAddUnit(g, unitSpec{name: "U", team: TeamPlayer, pos: Vec(2, 2), hp: 20})
	g.Begin()

	g.Timeline.Schedule(EntityRef{Kind: EntityUnit, ID: unit.ID}, 0, "", VisibilityFull)
	// Attacking an empty cell out of range fails validation.
	g.QueueDecision(unit.ID, "Attack", PositionTarget(Vec(4, 4)))

	result := g.Advance()
	if result.Result != ActionFailed {
		t.Fatalf("Expected failed action, got %v", result.Result)
	}
	// The actor reinserts at base weight; no state changed.
	entry, ok := g.Timeline.Peek()
	if !ok || entry.Ref.ID != unit.ID || entry.ExecutionTick != 100 {
		t.Errorf("Expected reinsertion at 100, got %+v", entry)
	}
}

func TestFriendlyFireSuspendsAdvance(t *testing.T) {
	g := newTestGame(3, 3)
	mage := mustAddUnit(g, unitSpec{
		name: "Mage", team: TeamPlayer, pos: Vec(1, 1),
		str: 12, hp: 15, pattern: AOECross, rangeLo: 0, rangeHi: 2,
	})
	enemy := mustAddUnit(g, unitSpec{name: "Enemy", team: TeamEnemy, pos: Vec(1, 2), def: 2, hp: 30})
	ally := mustAddUnit(g, unitSpec{name: "Ally", team: TeamPlayer, pos: Vec(0, 1), def: 2, hp: 30})
	g.Begin()

	g.Timeline.Schedule(EntityRef{Kind: EntityUnit, ID: mage.ID}, 0, "", VisibilityFull)
	g.QueueDecision(mage.ID, "Attack", PositionTarget(Vec(1, 1)))

	result := g.Advance()
	if result.Result != ActionAwaitingConfirmation {
		t.Fatalf("Expected confirmation request, got %v", result.Result)
	}
	if g.PendingAttack() == nil {
		t.Fatalf("No pending attack stored")
	}
	if enemy.Health.HPCurrent != 30 || ally.Health.HPCurrent != 30 {
		t.Fatalf("State mutated before confirmation")
	}

	// Advance refuses to move while the confirmation hangs.
	if r := g.Advance(); !r.Done {
		t.Errorf("Advance should stall on pending confirmation")
	}

	pending := g.PendingAttack()
	if err := g.ConfirmPendingAttack(); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	for _, hit := range pending.Targets {
		unit, ok := g.Map.UnitByID(hit.UnitID)
		if !ok {
			continue // defeated and removed
		}
		if unit.Health.HPCurrent != 30-hit.Damage {
			t.Errorf("%s hp %d, want %d", hit.Name, unit.Health.HPCurrent, 30-hit.Damage)
		}
	}

	// The mage rescheduled and the battle moves again.
	if g.PendingAttack() != nil {
		t.Errorf("Pending attack not cleared")
	}
	found := false
	for _, e := range g.Timeline.Preview(8) {
		if e.Ref.ID == mage.ID {
			found = true
		}
	}
	if !found {
		t.Errorf("Mage missing from the timeline after confirmation")
	}
}

func TestCancelPendingAttack(t *testing.T) {
	g := newTestGame(3, 3)
	mage := mustAddUnit(g, unitSpec{
		name: "Mage", team: TeamPlayer, pos: Vec(1, 1),
		str: 12, hp: 15, pattern: AOECross, rangeLo: 0, rangeHi: 2,
	})
	ally := mustAddUnit(g, unitSpec{name: "Ally", team: TeamPlayer, pos: Vec(0, 1), def: 2, hp: 30})
	enemy := mustAddUnit(g, unitSpec{name: "Enemy", team: TeamEnemy, pos: Vec(1, 2), def: 2, hp: 30})
	g.Begin()

	g.Timeline.Schedule(EntityRef{Kind: EntityUnit, ID: mage.ID}, 0, "", VisibilityFull)
	g.QueueDecision(mage.ID, "Attack", PositionTarget(Vec(1, 1)))
	g.Advance()

	if g.PendingAttack() == nil {
		t.Fatalf("Expected pending attack")
	}
	g.CancelPendingAttack()
	if ally.Health.HPCurrent != 30 || enemy.Health.HPCurrent != 30 {
		t.Errorf("Cancel must not mutate state")
	}
	if g.PendingAttack() != nil {
		t.Errorf("Pending attack not cleared")
	}
}

func TestShieldWallBracesAgainstIncomingAttack(t *testing.T) {
	g := newTestGame(5, 5)
	defenderUnit := mustAddUnit(g, unitSpec{
		name: "Wall", team: TeamPlayer, pos: Vec(2, 2), str: 5, def: 4, hp: 40, speed: 8,
	})
	attacker := mustAddUnit(g, unitSpec{
		name: "Brute", team: TeamEnemy, pos: Vec(2, 3), str: 12, def: 2, hp: 40, speed: 10,
	})
	g.Begin()

	g.Timeline.Schedule(EntityRef{Kind: EntityUnit, ID: defenderUnit.ID}, 0, "", VisibilityFull)
	g.QueueDecision(defenderUnit.ID, "Shield Wall", NoTarget())
	g.Advance()
	if g.Interrupts.PreparedCount() != 1 {
		t.Fatalf("Shield wall not armed")
	}

	g.Timeline.Schedule(EntityRef{Kind: EntityUnit, ID: attacker.ID}, 10, "", VisibilityFull)
	g.QueueDecision(attacker.ID, "Power Attack", UnitTarget(defenderUnit.ID))
	g.Advance()

	// The brace resolved before the blow: bonus granted, one use consumed.
	if defenderUnit.Status.BraceBonus != 4 {
		t.Errorf("Brace bonus not applied, got %d", defenderUnit.Status.BraceBonus)
	}
	if g.Interrupts.PreparedCount() != 0 {
		t.Errorf("Shield wall should be consumed")
	}
	if defenderUnit.Health.HPCurrent == 40 {
		t.Errorf("Power attack should still land")
	}
}

func TestRenderContextSnapshotIsDetached(t *testing.T) {
	g := newTestGame(4, 4)
	unit := mustAddUnit(g, unitSpec{name: "U", team: TeamPlayer, pos: Vec(1, 1), hp: 20})
	g.Begin()

	ctx := g.BuildRenderContext(RenderOptions{ActiveUnitID: unit.ID})
	if ctx.WorldWidth != 4 || ctx.WorldHeight != 4 {
		t.Errorf("Wrong dimensions")
	}
	if len(ctx.Tiles) != 16 {
		t.Errorf("Expected 16 tiles, got %d", len(ctx.Tiles))
	}
	if len(ctx.Units) != 1 || ctx.Units[0].HPRatio != 1.0 {
		t.Fatalf("Unit snapshot wrong: %+v", ctx.Units)
	}

	// Mutating the core must not change the existing snapshot.
	unit.Health.TakeDamage(10)
	if ctx.Units[0].HPCurrent != 20 {
		t.Errorf("Snapshot aliased live state")
	}

	rebuilt := g.BuildRenderContext(RenderOptions{ActiveUnitID: unit.ID})
	if rebuilt.Units[0].HPCurrent != 10 {
		t.Errorf("Fresh snapshot missed the mutation")
	}
}
