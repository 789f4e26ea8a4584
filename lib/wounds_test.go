package lib

import "testing"

func TestWoundEffectsAggregate(t *testing.T) {
	var wc WoundComponent
	wc.Add(NewWound(WoundCut, BodyArm, SeveritySerious))   // attack -2
	wc.Add(NewWound(WoundStab, BodyLeg, SeveritySerious))  // speed -3
	wc.Add(NewWound(WoundCut, BodyTorso, SeverityCritical)) // defense -2

	total := wc.TotalEffects()
	if total.Attack != -2 {
		t.Errorf("Expected attack -2, got %d", total.Attack)
	}
	if total.Speed != -3 {
		t.Errorf("Expected speed -3, got %d", total.Speed)
	}
	if total.Defense != -2 {
		t.Errorf("Expected defense -2, got %d", total.Defense)
	}
}

func TestScarKeepsReducedEffect(t *testing.T) {
	w := NewWound(WoundStab, BodyArm, SeveritySerious)
	active := w.CurrentEffect()
	w.Scarred = true
	scarred := w.CurrentEffect()

	if scarred.Attack != active.Attack/2 {
		t.Errorf("Scar effect %d, want half of %d", scarred.Attack, active.Attack)
	}
}

func TestWoundsModifyUnitStats(t *testing.T) {
	unit := buildUnit(unitSpec{name: "U", str: 10, def: 4, speed: 10, pos: Vec(0, 0)})
	unit.Wound.Add(NewWound(WoundCut, BodyArm, SeveritySerious))
	unit.Wound.Add(NewWound(WoundCrush, BodyLeg, SeveritySerious))

	if got := unit.EffectiveStrength(); got != 8 {
		t.Errorf("Expected strength 8, got %d", got)
	}
	if got := unit.EffectiveSpeed(); got != 7 {
		t.Errorf("Expected speed 7, got %d", got)
	}
}

func TestHeavyDamageInflictsWound(t *testing.T) {
	g := newTestGame(5, 5)
	attacker := mustAddUnit(g, unitSpec{name: "A", team: TeamEnemy, pos: Vec(1, 1), str: 40, hp: 30})
	victim := mustAddUnit(g, unitSpec{name: "V", team: TeamPlayer, pos: Vec(1, 3), hp: 300})

	g.Combat.ExecuteAttack(attacker, victim, 50, 1.0)
	if !victim.Wound.HasWounds() {
		t.Errorf("Heavy damage should leave a wound")
	}
}

func TestWoundHealingOverTurns(t *testing.T) {
	g := newTestGame(5, 5)
	unit := mustAddUnit(g, unitSpec{name: "U", team: TeamPlayer, pos: Vec(2, 2), hp: 30})
	wound := NewWound(WoundCut, BodyArm, SeverityMinor)
	unit.Wound.Add(wound)

	for range wound.HealingTime + 1 {
		g.Wounds.ProcessTurn(unit)
	}
	if unit.Wound.HasWounds() {
		t.Errorf("Minor wound should have healed or scarred, still active")
	}
}

func TestWoundSurchargeOnHeavyActions(t *testing.T) {
	g := newTestGame(5, 5)
	unit := buildUnit(unitSpec{name: "U", pos: Vec(2, 2)})

	power := g.Actions["Power Attack"]
	if w := EffectiveWeight(power, unit); w != 180 {
		t.Errorf("Unwounded heavy weight %d, want 180", w)
	}
	unit.Wound.Add(NewWound(WoundCut, BodyArm, SeverityMinor))
	if w := EffectiveWeight(power, unit); w != 190 {
		t.Errorf("Wounded heavy weight %d, want 190", w)
	}
	attack := g.Actions["Attack"]
	if w := EffectiveWeight(attack, unit); w != 100 {
		t.Errorf("Normal action must not pay the surcharge, got %d", w)
	}
}
