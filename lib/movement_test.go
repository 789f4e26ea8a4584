package lib

import "testing"

func TestMovementRangeUniformTerrain(t *testing.T) {
	m := NewMap(7, 7, nil)
	unit := buildUnit(unitSpec{name: "A", pos: Vec(3, 3), move: 2})
	if err := m.AddUnit(unit); err != nil {
		t.Fatalf("add: %v", err)
	}

	reach := m.MovementRange(unit)
	if !reach.Contains(Vec(3, 3)) {
		t.Errorf("Expected start cell in range")
	}
	// Diamond of Manhattan radius 2 on open ground: 13 cells.
	if len(reach) != 13 {
		t.Errorf("Expected 13 reachable cells, got %d", len(reach))
	}
	if reach.Contains(Vec(3, 6)) {
		t.Errorf("Cell at distance 3 should be out of reach")
	}
}

func TestMovementRangeTerrainCosts(t *testing.T) {
	m := NewMap(5, 5, nil)
	// Forest (cost 2) east of the unit.
	m.SetTile(Vec(2, 3), TerrainForest, 0)
	m.SetTile(Vec(2, 4), TerrainForest, 0)
	unit := buildUnit(unitSpec{name: "A", pos: Vec(2, 2), move: 3})
	if err := m.AddUnit(unit); err != nil {
		t.Fatalf("add: %v", err)
	}

	reach := m.MovementRange(unit)
	if !reach.Contains(Vec(2, 3)) {
		t.Errorf("Forest at cost 2 should be reachable with 3 points")
	}
	if reach.Contains(Vec(2, 4)) {
		t.Errorf("Second forest would cost 4, should be out of reach")
	}
}

func TestMovementRangeSurrounded(t *testing.T) {
	m := NewMap(5, 5, nil)
	unit := buildUnit(unitSpec{name: "A", team: TeamPlayer, pos: Vec(2, 2), move: 5})
	if err := m.AddUnit(unit); err != nil {
		t.Fatalf("add: %v", err)
	}
	for i, off := range CardinalOffsets {
		enemy := buildUnit(unitSpec{name: "E", team: TeamEnemy, pos: Vec(2, 2).Add(off)})
		enemy.ID = ""
		enemy.Actor.Name = enemy.Actor.Name + string(rune('0'+i))
		if err := m.AddUnit(enemy); err != nil {
			t.Fatalf("add enemy: %v", err)
		}
	}

	reach := m.MovementRange(unit)
	if len(reach) != 1 || !reach.Contains(Vec(2, 2)) {
		t.Errorf("Fully surrounded unit should reach only its own cell, got %d cells", len(reach))
	}
}

func TestMovementRangeBlockedByWallsNotAllies(t *testing.T) {
	m := NewMap(5, 5, nil)
	m.SetTile(Vec(2, 3), TerrainWall, 0)
	unit := buildUnit(unitSpec{name: "A", team: TeamPlayer, pos: Vec(2, 2), move: 2})
	ally := buildUnit(unitSpec{name: "B", team: TeamPlayer, pos: Vec(1, 2)})
	if err := m.AddUnit(unit); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := m.AddUnit(ally); err != nil {
		t.Fatalf("add ally: %v", err)
	}

	reach := m.MovementRange(unit)
	if reach.Contains(Vec(2, 3)) {
		t.Errorf("Wall should be impassable")
	}
	if !reach.Contains(Vec(0, 2)) {
		t.Errorf("Allies should not block the flood")
	}
}

func TestAttackRangeAnnulus(t *testing.T) {
	m := NewMap(7, 7, nil)
	archer := buildUnit(unitSpec{name: "A", pos: Vec(3, 3), rangeLo: 2, rangeHi: 3})
	if err := m.AddUnit(archer); err != nil {
		t.Fatalf("add: %v", err)
	}

	cells := m.AttackRange(archer, nil)
	for _, pos := range cells {
		d := pos.ManhattanDistance(Vec(3, 3))
		if d < 2 || d > 3 {
			t.Errorf("Cell %v at distance %d outside annulus [2,3]", pos, d)
		}
	}
	// Full annulus within bounds: 8 cells at distance 2, 12 at distance 3.
	if len(cells) != 20 {
		t.Errorf("Expected 20 cells, got %d", len(cells))
	}

	from := Vec(0, 0)
	clipped := m.AttackRange(archer, &from)
	for _, pos := range clipped {
		if !m.Valid(pos) {
			t.Errorf("Off-map cell %v in range", pos)
		}
	}
}

func TestAOETemplates(t *testing.T) {
	m := NewMap(9, 9, nil)
	center := Vec(4, 4)

	cases := []struct {
		pattern AOEPattern
		count   int
	}{
		{AOESingle, 1},
		{AOECross, 5},
		{AOESquare, 9},
		{AOEDiamond, 13},
		{AOELineHorizontal, 5},
		{AOELineVertical, 5},
	}
	for _, tc := range cases {
		tiles := m.AOETiles(center, tc.pattern)
		if len(tiles) != tc.count {
			t.Errorf("%s: expected %d tiles, got %d", tc.pattern, tc.count, len(tiles))
		}
	}
}

func TestAOEClippedAtCorner(t *testing.T) {
	m := NewMap(3, 3, nil)

	tiles := m.AOETiles(Vec(0, 0), AOECross)
	// Only center, right, and down survive the clip.
	if len(tiles) != 3 {
		t.Fatalf("Expected 3 tiles at corner, got %d", len(tiles))
	}
	want := NewVectorSet(Vec(0, 0), Vec(0, 1), Vec(1, 0))
	for _, pos := range tiles {
		if !want.Contains(pos) {
			t.Errorf("Unexpected tile %v", pos)
		}
	}

	square := m.AOETiles(Vec(2, 2), AOESquare)
	if len(square) != 4 {
		t.Errorf("Expected 4 tiles for square at corner, got %d", len(square))
	}
}

func TestPathRespectsCostsAndBudget(t *testing.T) {
	m := NewMap(5, 5, nil)
	// Wall off the direct row except through a gap.
	m.SetTile(Vec(2, 1), TerrainWall, 0)
	m.SetTile(Vec(2, 2), TerrainWall, 0)

	path := m.Path(Vec(2, 0), Vec(2, 3), 10)
	if path == nil {
		t.Fatalf("Expected a path around the wall")
	}
	if path[0] != Vec(2, 0) || path[len(path)-1] != Vec(2, 3) {
		t.Errorf("Path endpoints wrong: %v", path)
	}
	for _, pos := range path {
		tile, _ := m.TileAt(pos)
		if tile.Terrain == TerrainWall {
			t.Errorf("Path passes through wall at %v", pos)
		}
	}

	if got := m.Path(Vec(2, 0), Vec(2, 3), 2); got != nil {
		t.Errorf("Expected no path within budget 2, got %v", got)
	}
	if got := m.Path(Vec(1, 1), Vec(1, 1), 5); len(got) != 1 {
		t.Errorf("Expected trivial self-path, got %v", got)
	}
}
