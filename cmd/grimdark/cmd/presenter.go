package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/turnforge/grimdark/lib"
)

// Terminal presentation of a render context. The presenter consumes the
// immutable snapshot only; it never reaches back into the engine.

var (
	playerColor  = color.New(color.FgBlue, color.Bold)
	enemyColor   = color.New(color.FgRed, color.Bold)
	allyColor    = color.New(color.FgGreen, color.Bold)
	neutralColor = color.New(color.FgWhite)
	terrainColor = map[lib.TerrainType]*color.Color{
		lib.TerrainPlain:    color.New(color.FgHiBlack),
		lib.TerrainForest:   color.New(color.FgGreen),
		lib.TerrainMountain: color.New(color.FgYellow),
		lib.TerrainWater:    color.New(color.FgCyan),
		lib.TerrainRoad:     color.New(color.FgWhite),
		lib.TerrainFort:     color.New(color.FgMagenta),
		lib.TerrainBridge:   color.New(color.FgWhite),
		lib.TerrainWall:     color.New(color.FgHiWhite),
	}
	hazardColor = map[string]*color.Color{
		"red":     color.New(color.FgHiRed),
		"green":   color.New(color.FgHiGreen),
		"yellow":  color.New(color.FgHiYellow),
		"cyan":    color.New(color.FgHiCyan),
		"magenta": color.New(color.FgHiMagenta),
	}
)

func teamColor(team lib.Team) *color.Color {
	switch team {
	case lib.TeamPlayer:
		return playerColor
	case lib.TeamEnemy:
		return enemyColor
	case lib.TeamAlly:
		return allyColor
	default:
		return neutralColor
	}
}

func classGlyph(class lib.UnitClass) string {
	switch class {
	case lib.ClassKnight:
		return "K"
	case lib.ClassArcher:
		return "A"
	case lib.ClassMage:
		return "M"
	case lib.ClassPriest:
		return "P"
	case lib.ClassThief:
		return "T"
	case lib.ClassWarrior:
		return "W"
	}
	return "?"
}

// printBattlefield draws the grid with terrain, hazards, and units layered
// in that order.
func printBattlefield(ctx lib.RenderContext) {
	type cell struct {
		glyph string
		paint *color.Color
	}
	grid := make([][]cell, ctx.WorldHeight)
	for y := range grid {
		grid[y] = make([]cell, ctx.WorldWidth)
	}

	for _, tile := range ctx.Tiles {
		paint := terrainColor[tile.Terrain]
		grid[tile.Position.Y][tile.Position.X] = cell{glyph: tile.Symbol, paint: paint}
	}
	for _, hz := range ctx.Hazards {
		paint, ok := hazardColor[hz.ColorHint]
		if !ok {
			paint = neutralColor
		}
		for _, pos := range hz.Positions {
			grid[pos.Y][pos.X] = cell{glyph: hz.Symbol, paint: paint}
		}
	}
	for _, unit := range ctx.Units {
		grid[unit.Position.Y][unit.Position.X] = cell{
			glyph: classGlyph(unit.Class),
			paint: teamColor(unit.Team),
		}
	}

	fmt.Printf("   ")
	for x := range ctx.WorldWidth {
		fmt.Printf("%d", x%10)
	}
	fmt.Println()
	for y := range ctx.WorldHeight {
		fmt.Printf("%2d ", y)
		for x := range ctx.WorldWidth {
			c := grid[y][x]
			if c.paint != nil {
				c.paint.Print(c.glyph)
			} else {
				fmt.Print(c.glyph)
			}
		}
		fmt.Println()
	}
}

// printUnits lists the roster with hp bars and state.
func printUnits(ctx lib.RenderContext) {
	for _, unit := range ctx.Units {
		paint := teamColor(unit.Team)
		paint.Printf("%-10s", unit.Name)
		fmt.Printf(" %-8s %v  hp %d/%d  morale %s",
			unit.Class, unit.Position, unit.HPCurrent, unit.HPMax, unit.MoraleState)
		if unit.WoundCount > 0 {
			fmt.Printf("  wounds %d", unit.WoundCount)
		}
		if unit.Prepared > 0 {
			fmt.Printf("  [prepared]")
		}
		fmt.Printf("  (%s)\n", unit.UnitID)
	}
}

// printTimeline shows the initiative ladder with visibility tags honored.
func printTimeline(ctx lib.RenderContext) {
	if len(ctx.Timeline) == 0 {
		fmt.Println("timeline empty")
		return
	}
	for i, entry := range ctx.Timeline {
		label := entry.Label
		action := entry.Action
		if action == "" {
			action = "-"
		}
		fmt.Printf("%d. t=%-6d %-12s %s\n", i+1, entry.Tick, label, action)
	}
}

func printMessages(ctx lib.RenderContext) {
	for _, msg := range ctx.Panels.Messages {
		fmt.Printf("[%5d] %-9s %s\n", msg.Time, msg.Category, msg.Message)
	}
}
