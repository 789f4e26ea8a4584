package lib

import (
	gfn "github.com/panyam/goutils/fn"
)

// =============================================================================
// Render Context
// =============================================================================
// The core exposes rendering state as an immutable snapshot. Every field is
// a value copy; no identifier in the snapshot aliases a mutable core
// object. Renderers receive the context and must not reach back into the
// engine.

const timelinePreviewLength = 8

// TileRenderData is one tile's display state.
type TileRenderData struct {
	Position Vector
	Terrain  TerrainType
	Symbol   string
}

// UnitRenderData is one unit's display state.
type UnitRenderData struct {
	UnitID    string
	Name      string
	Class     UnitClass
	Team      Team
	Position  Vector
	Facing    Direction
	HPRatio   float64
	HPCurrent int
	HPMax     int

	MoraleState string
	WoundCount  int
	Prepared    int
	Highlight   string
}

// HazardRenderData is one hazard's display state.
type HazardRenderData struct {
	HazardID  string
	Kind      HazardKind
	Symbol    string
	ColorHint string
	Positions []Vector
	TicksLeft int
}

// TimelinePreviewEntry is one row of the initiative ladder. Hidden intents
// render as "???".
type TimelinePreviewEntry struct {
	Tick       uint64
	Label      string
	Action     string
	Visibility Visibility
}

// OverlayRenderData carries the highlight layers.
type OverlayRenderData struct {
	MovementRange []Vector
	AttackRange   []Vector
	AOEPreview    []Vector
}

// PanelRenderData feeds the side panels.
type PanelRenderData struct {
	Messages   []GameLogEntry
	Objectives []string
}

// RenderContext is the complete frame snapshot.
type RenderContext struct {
	WorldWidth  int
	WorldHeight int
	CurrentTick uint64
	CurrentTurn int
	Phase       BattlePhase
	Cursor      Vector

	Tiles    []TileRenderData
	Units    []UnitRenderData
	Hazards  []HazardRenderData
	Timeline []TimelinePreviewEntry
	Overlays OverlayRenderData
	Panels   PanelRenderData
}

// RenderOptions selects optional snapshot content.
type RenderOptions struct {
	Cursor        Vector
	ActiveUnitID  string // unit whose ranges feed the overlays
	AOECenter     *Vector
	HighlightFunc func(u *Unit) string
}

// BuildRenderContext snapshots the battle for a renderer.
func (g *Game) BuildRenderContext(opts RenderOptions) RenderContext {
	ctx := RenderContext{
		WorldWidth:  g.Map.Width,
		WorldHeight: g.Map.Height,
		CurrentTick: g.Tick(),
		CurrentTurn: g.Turn(),
		Phase:       g.Phase,
		Cursor:      opts.Cursor,
	}

	for y := range g.Map.Height {
		for x := range g.Map.Width {
			pos := Vec(y, x)
			tile, _ := g.Map.TileAt(pos)
			ctx.Tiles = append(ctx.Tiles, TileRenderData{
				Position: pos,
				Terrain:  tile.Terrain,
				Symbol:   terrainSymbol(tile.Terrain),
			})
		}
	}

	ctx.Units = gfn.Map(aliveUnits(g.Map.Units()), func(u *Unit) UnitRenderData {
		highlight := ""
		if opts.HighlightFunc != nil {
			highlight = opts.HighlightFunc(u)
		}
		return UnitRenderData{
			UnitID:      u.ID,
			Name:        u.Name(),
			Class:       u.Actor.Class,
			Team:        u.Team(),
			Position:    u.Position(),
			Facing:      u.Movement.Facing,
			HPRatio:     u.Health.HPPercent(),
			HPCurrent:   u.Health.HPCurrent,
			HPMax:       u.Health.HPMax,
			MoraleState: u.Morale.State(),
			WoundCount:  len(u.Wound.ActiveWounds),
			Prepared:    len(u.Interrupt.Prepared),
			Highlight:   highlight,
		}
	})

	ctx.Hazards = gfn.Map(g.Hazards.Hazards(), func(h *Hazard) HazardRenderData {
		return HazardRenderData{
			HazardID:  h.ID,
			Kind:      h.Kind,
			Symbol:    h.Props.Symbol,
			ColorHint: h.Props.ColorHint,
			Positions: h.Affected.Sorted(),
			TicksLeft: h.TicksLeft,
		}
	})

	ctx.Timeline = gfn.Map(g.Timeline.Preview(timelinePreviewLength), func(e TimelineEntry) TimelinePreviewEntry {
		return g.previewEntry(e)
	})

	if opts.ActiveUnitID != "" {
		if unit, ok := g.Map.UnitByID(opts.ActiveUnitID); ok {
			ctx.Overlays.MovementRange = g.Map.MovementRange(unit).Sorted()
			ctx.Overlays.AttackRange = g.Map.AttackRange(unit, nil)
			if opts.AOECenter != nil {
				ctx.Overlays.AOEPreview = g.Map.AOETiles(*opts.AOECenter, unit.Combat.AOEPattern)
			}
		}
	}

	ctx.Panels.Messages = g.Log.Recent(12)
	ctx.Panels.Objectives = gfn.Map(g.victoryObjectives, func(o Objective) string {
		return o.Description()
	})

	return ctx
}

func (g *Game) previewEntry(e TimelineEntry) TimelinePreviewEntry {
	out := TimelinePreviewEntry{
		Tick:       e.ExecutionTick,
		Visibility: e.Visibility,
	}
	switch e.Visibility {
	case VisibilityHidden:
		out.Label = "???"
		out.Action = "???"
		return out
	case VisibilityPartial:
		out.Action = "???"
	default:
		out.Action = e.ActionPreview
	}
	switch e.Ref.Kind {
	case EntityHazard:
		if h, ok := g.Hazards.Get(e.Ref.ID); ok {
			out.Label = h.Props.Name
		} else {
			out.Label = e.Ref.String()
		}
	default:
		if unit, ok := g.Map.UnitByID(e.Ref.ID); ok {
			out.Label = unit.Name()
		} else {
			out.Label = e.Ref.String()
		}
	}
	return out
}

func aliveUnits(units []*Unit) []*Unit {
	out := make([]*Unit, 0, len(units))
	for _, u := range units {
		if u.IsAlive() {
			out = append(out, u)
		}
	}
	return out
}

var terrainSymbols = map[TerrainType]string{
	TerrainPlain:    ".",
	TerrainForest:   "T",
	TerrainMountain: "M",
	TerrainWater:    "~",
	TerrainRoad:     "=",
	TerrainFort:     "F",
	TerrainBridge:   "H",
	TerrainWall:     "#",
}

func terrainSymbol(t TerrainType) string {
	if s, ok := terrainSymbols[t]; ok {
		return s
	}
	return "?"
}
