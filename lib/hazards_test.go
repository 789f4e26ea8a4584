package lib

import "testing"

func TestFireSpreadsToOneAdjacentCell(t *testing.T) {
	g := newTestGame(5, 5)
	fire, err := g.CreateHazard(HazardFire, Vec(2, 2), 1, "")
	if err != nil || fire == nil {
		t.Fatalf("create fire: %v", err)
	}
	fire.Props.SpreadChance = 1.0

	result := g.Hazards.Tick(fire.ID)
	if result.Expired {
		t.Fatalf("Fire expired on first tick")
	}
	if len(result.SpreadTo) != 1 {
		t.Fatalf("Expected exactly one spread, got %d", len(result.SpreadTo))
	}
	if len(fire.Affected) != 2 {
		t.Errorf("Expected footprint of 2 cells, got %d", len(fire.Affected))
	}
	if result.SpreadTo[0].ManhattanDistance(Vec(2, 2)) != 1 {
		t.Errorf("Spread cell %v is not adjacent", result.SpreadTo[0])
	}
}

func TestFireBlockedByWater(t *testing.T) {
	g := newTestGame(3, 3)
	for y := range 3 {
		for x := range 3 {
			if !(y == 1 && x == 1) {
				g.Map.SetTile(Vec(y, x), TerrainWater, 0)
			}
		}
	}
	fire, err := g.CreateHazard(HazardFire, Vec(1, 1), 1, "")
	if err != nil || fire == nil {
		t.Fatalf("create fire: %v", err)
	}
	fire.Props.SpreadChance = 1.0

	result := g.Hazards.Tick(fire.ID)
	if len(result.SpreadTo) != 0 {
		t.Errorf("Fire must not spread over water, spread to %v", result.SpreadTo)
	}
}

func TestHazardRecurringDamageAndImmunity(t *testing.T) {
	g := newTestGame(5, 5)
	victim := mustAddUnit(g, unitSpec{name: "V", class: ClassWarrior, team: TeamPlayer, pos: Vec(2, 2), hp: 30})
	immune := mustAddUnit(g, unitSpec{name: "I", class: ClassMage, team: TeamPlayer, pos: Vec(2, 3), hp: 30})

	fire, err := g.CreateHazard(HazardFire, Vec(2, 2), 1, "")
	if err != nil || fire == nil {
		t.Fatalf("create fire: %v", err)
	}
	fire.Props.SpreadChance = 0
	fire.Props.ImmuneClasses = []UnitClass{ClassMage}
	fire.Affected.Add(Vec(2, 3))

	g.Hazards.Tick(fire.ID)
	if victim.Health.HPCurrent != 25 {
		t.Errorf("Expected 5 fire damage, hp %d", victim.Health.HPCurrent)
	}
	if immune.Health.HPCurrent != 30 {
		t.Errorf("Immune class took damage")
	}
}

func TestHazardExpiryAppliesFinalEffect(t *testing.T) {
	g := newTestGame(5, 5)
	victim := mustAddUnit(g, unitSpec{name: "V", team: TeamPlayer, pos: Vec(2, 2), hp: 30})

	collapse, err := g.CreateHazard(HazardCollapsingGround, Vec(2, 2), 1, "")
	if err != nil || collapse == nil {
		t.Fatalf("create: %v", err)
	}
	collapse.TicksLeft = 1
	collapse.Props.SpreadChance = 0

	expired := countEvents(g.Bus, EventHazardExpired)
	result := g.Hazards.Tick(collapse.ID)
	if !result.Expired {
		t.Fatalf("Expected expiry")
	}
	if victim.Health.HPCurrent != 30-15 {
		t.Errorf("Final effect damage wrong, hp %d", victim.Health.HPCurrent)
	}
	if g.Map.TerrainAt(Vec(2, 2)) != TerrainWater {
		t.Errorf("Terrain transformation not applied, got %v", g.Map.TerrainAt(Vec(2, 2)))
	}
	if *expired != 1 {
		t.Errorf("Expected one HazardExpired event, got %d", *expired)
	}
	if _, ok := g.Hazards.Get(collapse.ID); ok {
		t.Errorf("Expired hazard still registered")
	}
}

func TestFirePlusPoisonMakesToxicSmoke(t *testing.T) {
	g := newTestGame(5, 5)
	fire, err := g.CreateHazard(HazardFire, Vec(2, 2), 1, "")
	if err != nil || fire == nil {
		t.Fatalf("create fire: %v", err)
	}

	smoke, err := g.CreateHazard(HazardPoisonCloud, Vec(2, 2), 1, "")
	if err != nil {
		t.Fatalf("create poison: %v", err)
	}
	if smoke == nil || smoke.Kind != HazardToxicSmoke {
		t.Fatalf("Expected toxic smoke, got %v", smoke)
	}
	if _, ok := g.Hazards.Get(fire.ID); ok {
		t.Errorf("Fire should have been consumed by the combination")
	}
}

func TestFireNeutralizesIce(t *testing.T) {
	g := newTestGame(5, 5)
	ice, err := g.CreateHazard(HazardIce, Vec(2, 2), 1, "")
	if err != nil || ice == nil {
		t.Fatalf("create ice: %v", err)
	}

	fire, err := g.CreateHazard(HazardFire, Vec(2, 2), 1, "")
	if err != nil {
		t.Fatalf("create fire: %v", err)
	}
	if fire != nil {
		t.Fatalf("Neutralization must not create the new hazard")
	}
	if _, ok := g.Hazards.Get(ice.ID); ok {
		t.Errorf("Ice should be removed by fire")
	}
}

func TestCombinedEffectOrderAndAddition(t *testing.T) {
	g := newTestGame(5, 5)
	fire, _ := g.CreateHazard(HazardFire, Vec(2, 2), 1, "")
	cloud, _ := g.CreateHazard(HazardPoisonCloud, Vec(3, 3), 1, "")
	if fire == nil || cloud == nil {
		t.Fatalf("hazard creation failed")
	}
	cloud.Affected.Add(Vec(2, 2))

	effect := g.Hazards.CombinedEffectAt(Vec(2, 2))
	if effect.Damage != 5+3 {
		t.Errorf("Expected additive damage 8, got %d", effect.Damage)
	}
	if !effect.BlocksLineOfSight {
		t.Errorf("Cloud's sight block lost in combination")
	}

	hazards := g.Hazards.HazardsAt(Vec(2, 2))
	if len(hazards) != 2 || hazards[0].ID != fire.ID {
		t.Errorf("Expected creation-order iteration, got %v", hazards)
	}
}

func TestHazardSchedulesOnTimeline(t *testing.T) {
	g := newTestGame(5, 5)
	fire, _ := g.CreateHazard(HazardFire, Vec(2, 2), 1, "")
	if fire == nil {
		t.Fatalf("create failed")
	}

	entry, ok := g.Timeline.Peek()
	if !ok {
		t.Fatalf("Expected a timeline entry for the hazard")
	}
	if entry.Ref.Kind != EntityHazard || entry.Ref.ID != fire.ID {
		t.Fatalf("Wrong entry: %v", entry.Ref)
	}
	if entry.ExecutionTick != fire.Props.TicksPerAction {
		t.Errorf("Expected tick %d, got %d", fire.Props.TicksPerAction, entry.ExecutionTick)
	}

	fire.Props.SpreadChance = 0
	result := g.Advance()
	if !result.HazardTick {
		t.Errorf("Advance should have run the hazard")
	}
	next, ok := g.Timeline.Peek()
	if !ok || next.Ref.ID != fire.ID {
		t.Fatalf("Hazard not rescheduled")
	}
	if next.ExecutionTick != fire.Props.TicksPerAction*2 {
		t.Errorf("Expected reschedule at %d, got %d", fire.Props.TicksPerAction*2, next.ExecutionTick)
	}
}
