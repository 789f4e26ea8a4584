package lib

import (
	"errors"
	"testing"
)

func TestNewMapTiles(t *testing.T) {
	m := NewMap(10, 15, nil)

	if m.Width != 10 || m.Height != 15 {
		t.Fatalf("Expected 10x15 map, got %dx%d", m.Width, m.Height)
	}
	tile, ok := m.TileAt(Vec(14, 9))
	if !ok {
		t.Fatalf("Expected tile at far corner")
	}
	if tile.Terrain != TerrainPlain {
		t.Errorf("Expected plain terrain, got %v", tile.Terrain)
	}
	if _, ok := m.TileAt(Vec(15, 0)); ok {
		t.Errorf("Expected no tile off the south edge")
	}
}

func TestMapSetTile(t *testing.T) {
	m := NewMap(5, 5, nil)
	m.SetTile(Vec(2, 3), TerrainForest, 2)

	tile, _ := m.TileAt(Vec(2, 3))
	if tile.Terrain != TerrainForest {
		t.Errorf("Expected forest, got %v", tile.Terrain)
	}
	if tile.Elevation != 2 {
		t.Errorf("Expected elevation 2, got %d", tile.Elevation)
	}

	// Off-map writes are ignored.
	m.SetTile(Vec(-1, 0), TerrainWall, 0)
}

func TestAddUnitRejections(t *testing.T) {
	m := NewMap(5, 5, nil)
	m.SetTile(Vec(2, 2), TerrainWater, 0)

	if err := m.AddUnit(buildUnit(unitSpec{name: "Off", pos: Vec(9, 9)})); !errors.Is(err, ErrInvalidPosition) {
		t.Errorf("Expected ErrInvalidPosition, got %v", err)
	}
	if err := m.AddUnit(buildUnit(unitSpec{name: "Wet", pos: Vec(2, 2)})); !errors.Is(err, ErrBlocked) {
		t.Errorf("Expected ErrBlocked on water, got %v", err)
	}

	first := buildUnit(unitSpec{name: "First", pos: Vec(1, 1)})
	if err := m.AddUnit(first); err != nil {
		t.Fatalf("Failed to add unit: %v", err)
	}
	if err := m.AddUnit(buildUnit(unitSpec{name: "Second", pos: Vec(1, 1)})); !errors.Is(err, ErrBlocked) {
		t.Errorf("Expected ErrBlocked on occupied cell, got %v", err)
	}
}

func TestOccupancyInvariant(t *testing.T) {
	m := NewMap(6, 6, nil)
	units := []*Unit{
		buildUnit(unitSpec{name: "A", pos: Vec(0, 0)}),
		buildUnit(unitSpec{name: "B", pos: Vec(1, 1)}),
		buildUnit(unitSpec{name: "C", pos: Vec(2, 2)}),
	}
	for _, u := range units {
		if err := m.AddUnit(u); err != nil {
			t.Fatalf("Failed to add %s: %v", u.Name(), err)
		}
	}

	assertConsistent := func() {
		t.Helper()
		for _, u := range m.Units() {
			if got := m.UnitAt(u.Position()); got != u {
				t.Fatalf("Occupancy mismatch for %s at %v", u.Name(), u.Position())
			}
		}
	}
	assertConsistent()

	// Removing a middle unit shifts indices; occupancy must follow.
	if _, err := m.RemoveUnit(units[1].ID); err != nil {
		t.Fatalf("Failed to remove: %v", err)
	}
	assertConsistent()
	if m.UnitAt(Vec(1, 1)) != nil {
		t.Errorf("Expected (1,1) vacant after removal")
	}
	if _, ok := m.UnitByID(units[1].ID); ok {
		t.Errorf("Expected removed unit to be unknown")
	}

	if err := m.MoveUnit(units[2].ID, Vec(3, 3)); err != nil {
		t.Fatalf("Failed to move: %v", err)
	}
	assertConsistent()
}

func TestRemoveAddRoundTrip(t *testing.T) {
	m := NewMap(5, 5, nil)
	unit := buildUnit(unitSpec{name: "A", pos: Vec(2, 2)})
	if err := m.AddUnit(unit); err != nil {
		t.Fatalf("Failed to add: %v", err)
	}

	removed, err := m.RemoveUnit(unit.ID)
	if err != nil {
		t.Fatalf("Failed to remove: %v", err)
	}
	removed.ID = ""
	if err := m.AddUnit(removed); err != nil {
		t.Fatalf("Failed to re-add: %v", err)
	}
	if got := m.UnitAt(Vec(2, 2)); got == nil || got.Name() != "A" {
		t.Errorf("Expected A back at (2,2)")
	}
}

func TestRemoveUnitsBatch(t *testing.T) {
	m := NewMap(6, 6, nil)
	a := buildUnit(unitSpec{name: "A", pos: Vec(0, 0)})
	b := buildUnit(unitSpec{name: "B", pos: Vec(1, 1)})
	c := buildUnit(unitSpec{name: "C", pos: Vec(2, 2)})
	for _, u := range []*Unit{a, b, c} {
		if err := m.AddUnit(u); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	removed := m.RemoveUnits([]string{a.ID, c.ID, "missing", c.ID})
	if len(removed) != 2 {
		t.Fatalf("Expected 2 removed, got %d", len(removed))
	}
	if m.UnitAt(Vec(0, 0)) != nil || m.UnitAt(Vec(2, 2)) != nil {
		t.Errorf("Expected removed cells vacant")
	}
	if got := m.UnitAt(Vec(1, 1)); got != b {
		t.Errorf("Expected B to survive the batch")
	}
	if len(m.Units()) != 1 {
		t.Errorf("Expected 1 unit left, got %d", len(m.Units()))
	}
}

func TestMoveUnitUpdatesFacingAndFlags(t *testing.T) {
	m := NewMap(5, 5, nil)
	unit := buildUnit(unitSpec{name: "A", pos: Vec(2, 2)})
	if err := m.AddUnit(unit); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := m.MoveUnit(unit.ID, Vec(2, 4)); err != nil {
		t.Fatalf("move: %v", err)
	}
	if unit.Movement.Facing != East {
		t.Errorf("Expected facing east, got %v", unit.Movement.Facing)
	}
	if !unit.Status.HasMoved {
		t.Errorf("Expected has-moved flag set")
	}
	if err := m.MoveUnit("nobody", Vec(0, 0)); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestUnitsByTeamAndPositions(t *testing.T) {
	m := NewMap(6, 6, nil)
	a := buildUnit(unitSpec{name: "A", team: TeamPlayer, pos: Vec(0, 0)})
	b := buildUnit(unitSpec{name: "B", team: TeamEnemy, pos: Vec(1, 1)})
	c := buildUnit(unitSpec{name: "C", team: TeamPlayer, pos: Vec(2, 2)})
	for _, u := range []*Unit{a, b, c} {
		if err := m.AddUnit(u); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	players := m.UnitsByTeam(TeamPlayer)
	if len(players) != 2 {
		t.Errorf("Expected 2 player units, got %d", len(players))
	}
	if m.CountAliveByTeam(TeamEnemy) != 1 {
		t.Errorf("Expected 1 enemy")
	}

	found := m.UnitsInPositions([]Vector{Vec(1, 1), Vec(5, 5), Vec(2, 2)})
	if len(found) != 2 {
		t.Fatalf("Expected 2 units in positions, got %d", len(found))
	}
	if found[0] != b || found[1] != c {
		t.Errorf("Expected position order preserved")
	}
}
