package lib

import (
	"fmt"
)

// =============================================================================
// Map - Pure Spatial State Container
// =============================================================================
// The Map is the single source of truth for tile and occupancy state. It
// exclusively owns all Tile and Unit records; every other subsystem refers to
// units by ID and resolves them here. Every position mutation goes through
// MoveUnit; direct writes to a unit's position are forbidden.

const emptyCell = -1

// Map is the battle grid: layered tile data, a unit occupancy grid of the
// same shape, and a compact unit array with a stable id-to-index mapping.
//
// Invariants, restored after every mutation:
//   - every alive unit appears in exactly one occupancy cell;
//   - every nonempty occupancy cell references a unit whose position is that
//     cell;
//   - unit indices stay consistent after removals.
type Map struct {
	Width  int
	Height int

	tiles     [][]Tile
	occupancy [][]int // unit index per cell, emptyCell when vacant

	units     []*Unit
	unitIndex map[string]int // unit id -> index into units

	terrain *TerrainRegistry

	nextUnitSeq int
}

// NewMap creates an empty map of the given dimensions. All tiles start as
// plain terrain at elevation zero. The terrain registry is required; pass
// DefaultTerrainRegistry() when no tileset document is in play.
func NewMap(width, height int, terrain *TerrainRegistry) *Map {
	if terrain == nil {
		terrain = DefaultTerrainRegistry()
	}
	m := &Map{
		Width:     width,
		Height:    height,
		terrain:   terrain,
		unitIndex: map[string]int{},
	}
	m.tiles = make([][]Tile, height)
	m.occupancy = make([][]int, height)
	for y := range height {
		m.tiles[y] = make([]Tile, width)
		m.occupancy[y] = make([]int, width)
		for x := range width {
			m.occupancy[y][x] = emptyCell
		}
	}
	return m
}

// Terrain returns the registry resolving terrain kinds to their properties.
func (m *Map) Terrain() *TerrainRegistry {
	return m.terrain
}

// Valid reports whether a position lies on the map.
func (m *Map) Valid(pos Vector) bool {
	return pos.Y >= 0 && pos.Y < m.Height && pos.X >= 0 && pos.X < m.Width
}

// TileAt returns the tile at a position. The second return value is false
// for positions off the map.
func (m *Map) TileAt(pos Vector) (Tile, bool) {
	if !m.Valid(pos) {
		return Tile{}, false
	}
	return m.tiles[pos.Y][pos.X], true
}

// SetTile rewrites the terrain and elevation at a position. Off-map
// positions are ignored.
func (m *Map) SetTile(pos Vector, terrain TerrainType, elevation int8) {
	if !m.Valid(pos) {
		return
	}
	m.tiles[pos.Y][pos.X] = Tile{Terrain: terrain, Elevation: elevation}
}

// SetTerrain rewrites only the terrain kind, keeping the elevation.
func (m *Map) SetTerrain(pos Vector, terrain TerrainType) {
	if !m.Valid(pos) {
		return
	}
	m.tiles[pos.Y][pos.X].Terrain = terrain
}

// TerrainAt returns the terrain kind at a position, defaulting to plain for
// positions off the map.
func (m *Map) TerrainAt(pos Vector) TerrainType {
	if !m.Valid(pos) {
		return TerrainPlain
	}
	return m.tiles[pos.Y][pos.X].Terrain
}

// blocksAt reports whether the terrain at pos can never be entered.
func (m *Map) blocksAt(pos Vector) bool {
	return m.terrain.BlocksMovement(m.TerrainAt(pos))
}

// =============================================================================
// Unit Management
// =============================================================================

// AddUnit places a unit on the map. It fails when the position is off the
// map, occupied, or blocking terrain. Units without an ID are assigned one.
func (m *Map) AddUnit(unit *Unit) error {
	pos := unit.Position()
	if !m.Valid(pos) {
		return fmt.Errorf("add %s at %v: %w", unit.Name(), pos, ErrInvalidPosition)
	}
	if m.occupancy[pos.Y][pos.X] != emptyCell {
		return fmt.Errorf("add %s at %v: %w", unit.Name(), pos, ErrBlocked)
	}
	if m.blocksAt(pos) {
		return fmt.Errorf("add %s at %v: %w", unit.Name(), pos, ErrBlocked)
	}

	if unit.ID == "" {
		m.nextUnitSeq++
		unit.ID = fmt.Sprintf("unit-%d", m.nextUnitSeq)
	}
	if _, exists := m.unitIndex[unit.ID]; exists {
		return fmt.Errorf("add %s: duplicate unit id %q: %w", unit.Name(), unit.ID, ErrBlocked)
	}

	idx := len(m.units)
	m.units = append(m.units, unit)
	m.unitIndex[unit.ID] = idx
	m.occupancy[pos.Y][pos.X] = idx
	return nil
}

// RemoveUnit removes a unit by ID: clears its occupancy cell, removes it from
// the unit array, and shifts higher indices down.
func (m *Map) RemoveUnit(unitID string) (*Unit, error) {
	idx, ok := m.unitIndex[unitID]
	if !ok {
		return nil, fmt.Errorf("remove %q: %w", unitID, ErrNotFound)
	}
	unit := m.units[idx]

	pos := unit.Position()
	m.occupancy[pos.Y][pos.X] = emptyCell
	delete(m.unitIndex, unitID)

	m.units = append(m.units[:idx], m.units[idx+1:]...)
	for id, i := range m.unitIndex {
		if i > idx {
			m.unitIndex[id] = i - 1
		}
	}
	// Rewrite occupancy entries shifted by the compaction.
	for y := range m.Height {
		for x := range m.Width {
			if m.occupancy[y][x] > idx {
				m.occupancy[y][x]--
			}
		}
	}
	return unit, nil
}

// RemoveUnits removes several units in one compaction pass. Unknown IDs are
// skipped. Used when an AOE defeats multiple targets at once.
func (m *Map) RemoveUnits(unitIDs []string) []*Unit {
	if len(unitIDs) == 0 {
		return nil
	}
	doomed := make(map[string]bool, len(unitIDs))
	var removed []*Unit
	for _, id := range unitIDs {
		if _, ok := m.unitIndex[id]; ok && !doomed[id] {
			doomed[id] = true
		}
	}
	if len(doomed) == 0 {
		return nil
	}

	kept := m.units[:0]
	for _, unit := range m.units {
		if doomed[unit.ID] {
			removed = append(removed, unit)
			continue
		}
		kept = append(kept, unit)
	}
	m.units = kept

	// Rebuild index map and occupancy grid in a single pass.
	clear(m.unitIndex)
	for y := range m.Height {
		for x := range m.Width {
			m.occupancy[y][x] = emptyCell
		}
	}
	for idx, unit := range m.units {
		pos := unit.Position()
		m.unitIndex[unit.ID] = idx
		m.occupancy[pos.Y][pos.X] = idx
	}
	return removed
}

// MoveUnit atomically relocates a unit. It fails on the same conditions as
// AddUnit. On success the unit's facing follows the movement delta and its
// has-moved flag is set.
func (m *Map) MoveUnit(unitID string, pos Vector) error {
	idx, ok := m.unitIndex[unitID]
	if !ok {
		return fmt.Errorf("move %q: %w", unitID, ErrNotFound)
	}
	unit := m.units[idx]

	if !m.Valid(pos) {
		return fmt.Errorf("move %s to %v: %w", unit.Name(), pos, ErrInvalidPosition)
	}
	if occ := m.occupancy[pos.Y][pos.X]; occ != emptyCell && occ != idx {
		return fmt.Errorf("move %s to %v: %w", unit.Name(), pos, ErrBlocked)
	}
	if m.blocksAt(pos) {
		return fmt.Errorf("move %s to %v: %w", unit.Name(), pos, ErrBlocked)
	}

	old := unit.Position()
	m.occupancy[old.Y][old.X] = emptyCell
	unit.Movement.FaceToward(pos)
	unit.Movement.Position = pos
	unit.Status.HasMoved = true
	m.occupancy[pos.Y][pos.X] = idx
	return nil
}

// UnitByID returns a unit by ID. Lookups tolerate absence: the second return
// value is false for unknown or removed units.
func (m *Map) UnitByID(unitID string) (*Unit, bool) {
	idx, ok := m.unitIndex[unitID]
	if !ok {
		return nil, false
	}
	return m.units[idx], true
}

// UnitAt returns the unit occupying a position, or nil when the cell is
// vacant or off the map.
func (m *Map) UnitAt(pos Vector) *Unit {
	if !m.Valid(pos) {
		return nil
	}
	idx := m.occupancy[pos.Y][pos.X]
	if idx == emptyCell {
		return nil
	}
	unit := m.units[idx]
	if unit.Position() != pos {
		panic(fmt.Sprintf("occupancy invariant violated: cell %v holds %s at %v", pos, unit.Name(), unit.Position()))
	}
	return unit
}

// Units returns the compact unit array. Callers must not reorder it.
func (m *Map) Units() []*Unit {
	return m.units
}

// UnitsByTeam returns all units on the given team, in unit-array order.
func (m *Map) UnitsByTeam(team Team) []*Unit {
	var out []*Unit
	for _, unit := range m.units {
		if unit.Team() == team {
			out = append(out, unit)
		}
	}
	return out
}

// UnitsInPositions returns units occupying any of the given positions, in the
// order the positions are listed.
func (m *Map) UnitsInPositions(positions []Vector) []*Unit {
	var out []*Unit
	for _, pos := range positions {
		if unit := m.UnitAt(pos); unit != nil {
			out = append(out, unit)
		}
	}
	return out
}

// UnitsWithinRange returns all units within a Manhattan radius of a center,
// the center's occupant included.
func (m *Map) UnitsWithinRange(center Vector, radius int) []*Unit {
	var out []*Unit
	for _, unit := range m.units {
		if unit.Position().ManhattanDistance(center) <= radius {
			out = append(out, unit)
		}
	}
	return out
}

// CountAliveByTeam counts living units on a team.
func (m *Map) CountAliveByTeam(team Team) int {
	count := 0
	for _, unit := range m.units {
		if unit.Team() == team && unit.IsAlive() {
			count++
		}
	}
	return count
}
