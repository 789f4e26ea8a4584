package lib

import (
	"container/heap"
)

// =============================================================================
// Movement Range, Attack Range, and AOE Queries
// =============================================================================
// Range queries never mutate the map. Results are returned in deterministic
// order: flood fills sort by (y, x), templates keep their fixed offset order.

// moveNode is a frontier entry for the movement flood fill.
type moveNode struct {
	pos  Vector
	cost int
	seq  int
}

type moveFrontier []moveNode

func (f moveFrontier) Len() int { return len(f) }
func (f moveFrontier) Less(i, j int) bool {
	if f[i].cost != f[j].cost {
		return f[i].cost < f[j].cost
	}
	return f[i].seq < f[j].seq
}
func (f moveFrontier) Swap(i, j int) { f[i], f[j] = f[j], f[i] }
func (f *moveFrontier) Push(x any)   { *f = append(*f, x.(moveNode)) }
func (f *moveFrontier) Pop() any {
	old := *f
	n := len(old)
	node := old[n-1]
	*f = old[:n-1]
	return node
}

// MovementRange computes the set of positions the unit can reach with its
// movement points. A Dijkstra flood over integer terrain costs; blocking
// terrain and enemy-occupied cells are impassable. The start cell is always
// included.
func (m *Map) MovementRange(unit *Unit) VectorSet {
	if unit == nil {
		return NewVectorSet()
	}
	if !unit.CanMove() {
		return NewVectorSet(unit.Position())
	}
	return m.floodFill(unit.Position(), unit.Movement.MovementPoints, unit.Team())
}

func (m *Map) floodFill(start Vector, budget int, team Team) VectorSet {
	dist := map[Vector]int{start: 0}
	reached := NewVectorSet(start)

	frontier := &moveFrontier{{pos: start, cost: 0}}
	heap.Init(frontier)
	seq := 0

	for frontier.Len() > 0 {
		node := heap.Pop(frontier).(moveNode)
		if node.cost > dist[node.pos] {
			continue // stale entry
		}
		for _, off := range CardinalOffsets {
			next := node.pos.Add(off)
			if !m.Valid(next) || m.blocksAt(next) {
				continue
			}
			if occ := m.UnitAt(next); occ != nil && occ.IsAlive() && occ.Team() != team {
				continue // enemies block the flood
			}
			cost := node.cost + m.terrain.MoveCost(m.TerrainAt(next))
			if cost > budget {
				continue
			}
			if prev, seen := dist[next]; seen && prev <= cost {
				continue
			}
			dist[next] = cost
			reached.Add(next)
			seq++
			heap.Push(frontier, moveNode{pos: next, cost: cost, seq: seq})
		}
	}
	return reached
}

// AttackRange computes the Manhattan annulus [min, max] of a unit's attack
// range, clipped to the map. When from is non-nil the annulus is measured
// from that position instead of the unit's own.
func (m *Map) AttackRange(unit *Unit, from *Vector) []Vector {
	if unit == nil || !unit.IsAlive() {
		return nil
	}
	center := unit.Position()
	if from != nil {
		center = *from
	}
	return m.Annulus(center, unit.Combat.AttackRangeMin, unit.Combat.AttackRangeMax)
}

// Annulus returns all on-map positions whose Manhattan distance from center
// lies in [minRange, maxRange], in (y, x) ascending order.
func (m *Map) Annulus(center Vector, minRange, maxRange int) []Vector {
	var out []Vector
	yLo := max(0, center.Y-maxRange)
	yHi := min(m.Height-1, center.Y+maxRange)
	for y := yLo; y <= yHi; y++ {
		xLo := max(0, center.X-maxRange)
		xHi := min(m.Width-1, center.X+maxRange)
		for x := xLo; x <= xHi; x++ {
			d := abs(y-center.Y) + abs(x-center.X)
			if d >= minRange && d <= maxRange {
				out = append(out, Vec(y, x))
			}
		}
	}
	return out
}

// aoeOffsets holds the fixed template offsets per pattern, in (dy, dx) order.
var aoeOffsets = map[AOEPattern][]Vector{
	AOESingle: {{0, 0}},
	AOECross: {
		{0, 0},
		{0, 1}, {0, -1},
		{1, 0}, {-1, 0},
	},
	AOESquare: {
		{-1, -1}, {-1, 0}, {-1, 1},
		{0, -1}, {0, 0}, {0, 1},
		{1, -1}, {1, 0}, {1, 1},
	},
	AOEDiamond: {
		{0, 0},
		{-1, 0}, {1, 0}, {0, -1}, {0, 1},
		{-2, 0}, {2, 0}, {0, -2}, {0, 2},
		{-1, -1}, {-1, 1}, {1, -1}, {1, 1},
	},
	AOELineHorizontal: {
		{0, -2}, {0, -1}, {0, 0}, {0, 1}, {0, 2},
	},
	AOELineVertical: {
		{-2, 0}, {-1, 0}, {0, 0}, {1, 0}, {2, 0},
	},
}

// AOETiles expands a pattern's fixed offsets around a center and clips to
// the map bounds. Unknown patterns fall back to single-target.
func (m *Map) AOETiles(center Vector, pattern AOEPattern) []Vector {
	offsets, ok := aoeOffsets[pattern]
	if !ok {
		offsets = aoeOffsets[AOESingle]
	}
	var out []Vector
	for _, off := range offsets {
		pos := center.Add(off)
		if m.Valid(pos) {
			out = append(out, pos)
		}
	}
	return out
}

// Path computes the cheapest terrain path from start to end, bounded by
// maxCost. Units are ignored; only terrain blocking and move costs apply.
// Returns nil when no path exists within the budget.
func (m *Map) Path(start, end Vector, maxCost int) []Vector {
	if !m.Valid(start) || !m.Valid(end) {
		return nil
	}
	if start == end {
		return []Vector{start}
	}

	dist := map[Vector]int{start: 0}
	prev := map[Vector]Vector{}
	frontier := &moveFrontier{{pos: start, cost: 0}}
	heap.Init(frontier)
	seq := 0

	for frontier.Len() > 0 {
		node := heap.Pop(frontier).(moveNode)
		if node.cost > dist[node.pos] {
			continue
		}
		if node.pos == end {
			break
		}
		for _, off := range CardinalOffsets {
			next := node.pos.Add(off)
			if !m.Valid(next) || m.blocksAt(next) {
				continue
			}
			cost := node.cost + m.terrain.MoveCost(m.TerrainAt(next))
			if cost > maxCost {
				continue
			}
			if prevCost, seen := dist[next]; seen && prevCost <= cost {
				continue
			}
			dist[next] = cost
			prev[next] = node.pos
			seq++
			heap.Push(frontier, moveNode{pos: next, cost: cost, seq: seq})
		}
	}

	if _, ok := dist[end]; !ok {
		return nil
	}
	var path []Vector
	for at := end; ; {
		path = append([]Vector{at}, path...)
		if at == start {
			break
		}
		at = prev[at]
	}
	return path
}

// ThreatRange unions the attack ranges of every living enemy of the given
// team. Used for overlays and cautious AI.
func (m *Map) ThreatRange(team Team) VectorSet {
	threat := NewVectorSet()
	for _, unit := range m.units {
		if !unit.IsAlive() || unit.Team() == team {
			continue
		}
		for _, pos := range m.AttackRange(unit, nil) {
			threat.Add(pos)
		}
	}
	return threat
}
