package lib

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// =============================================================================
// Scenarios
// =============================================================================
// A scenario document names a map directory, a unit roster, the objective
// block, and optional settings. Loading is strict: malformed documents fail
// here and never reach the simulation loop.

// ScenarioUnit is one roster entry. Position is [x, y] in the document, the
// order map editors export.
type ScenarioUnit struct {
	Name          string         `mapstructure:"name"`
	Class         string         `mapstructure:"class"`
	Team          string         `mapstructure:"team"`
	Position      []int          `mapstructure:"position"`
	StatsOverride map[string]any `mapstructure:"stats_override"`
}

// ScenarioSettings are the optional battle settings.
type ScenarioSettings struct {
	TurnLimit    int    `mapstructure:"turn_limit"`
	StartingTeam string `mapstructure:"starting_team"`
	FogOfWar     bool   `mapstructure:"fog_of_war"`
}

// ObjectiveSpec is one raw objective entry from the document.
type ObjectiveSpec struct {
	Type        string `mapstructure:"type"`
	Description string `mapstructure:"description"`
	UnitName    string `mapstructure:"unit"`
	Team        string `mapstructure:"team"`
	Position    []int  `mapstructure:"position"`
	Turns       int    `mapstructure:"turns"`
}

// Scenario is a parsed scenario document.
type Scenario struct {
	Name        string
	Description string
	Author      string
	MapSource   string

	Units    []ScenarioUnit
	Victory  []ObjectiveSpec
	Defeat   []ObjectiveSpec
	Settings ScenarioSettings
}

// LoadScenario reads and validates a scenario document.
func LoadScenario(path string) (*Scenario, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}

	var doc struct {
		Name        string `mapstructure:"name"`
		Description string `mapstructure:"description"`
		Author      string `mapstructure:"author"`
		Map         struct {
			Source string `mapstructure:"source"`
		} `mapstructure:"map"`
		Units      []ScenarioUnit `mapstructure:"units"`
		Objectives struct {
			Victory []ObjectiveSpec `mapstructure:"victory"`
			Defeat  []ObjectiveSpec `mapstructure:"defeat"`
		} `mapstructure:"objectives"`
		Settings ScenarioSettings `mapstructure:"settings"`
	}
	if err := v.Unmarshal(&doc); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if doc.Map.Source == "" {
		return nil, fmt.Errorf("parse scenario %s: map must reference a source directory", path)
	}

	mapSource := doc.Map.Source
	if !filepath.IsAbs(mapSource) {
		mapSource = filepath.Join(filepath.Dir(path), mapSource)
	}

	scn := &Scenario{
		Name:        doc.Name,
		Description: doc.Description,
		Author:      doc.Author,
		MapSource:   mapSource,
		Units:       doc.Units,
		Victory:     doc.Objectives.Victory,
		Defeat:      doc.Objectives.Defeat,
		Settings:    doc.Settings,
	}

	for i, u := range scn.Units {
		if u.Name == "" {
			return nil, fmt.Errorf("parse scenario %s: unit %d has no name", path, i)
		}
		if _, ok := UnitClassFromName(canonicalClassName(u.Class)); !ok {
			return nil, fmt.Errorf("parse scenario %s: unit %q has unknown class %q", path, u.Name, u.Class)
		}
		if _, ok := TeamFromName(canonicalClassName(u.Team)); !ok {
			return nil, fmt.Errorf("parse scenario %s: unit %q has unknown team %q", path, u.Name, u.Team)
		}
		if len(u.Position) != 2 {
			return nil, fmt.Errorf("parse scenario %s: unit %q position must be [x, y]", path, u.Name)
		}
	}
	return scn, nil
}

// =============================================================================
// Map Layers
// =============================================================================

// LoadMapLayers builds a map from a layered CSV directory:
//
//	ground.csv   (required) base terrain per cell
//	walls.csv    (optional) blocking overlay, overrides ground where nonzero
//	features.csv (optional) decorative overlay
//
// Composition order is ground, walls, features; a cell value of 0 or empty
// is "no override" for overlays and plain terrain for ground.
func LoadMapLayers(dir string, tileset *TilesetConfig) (*Map, error) {
	if tileset == nil {
		tileset = DefaultTilesetConfig()
	}

	ground, err := readCSVLayer(filepath.Join(dir, "ground.csv"))
	if err != nil {
		return nil, err
	}
	if len(ground) == 0 {
		return nil, fmt.Errorf("load map %s: ground.csv is empty", dir)
	}

	height := len(ground)
	width := len(ground[0])
	m := NewMap(width, height, tileset.Registry())

	applyLayer := func(layer [][]string, isGround bool) error {
		for y, row := range layer {
			if y >= height {
				break
			}
			for x, cell := range row {
				if x >= width {
					break
				}
				cell = strings.TrimSpace(cell)
				if cell == "" || cell == "0" {
					if isGround {
						m.SetTile(Vec(y, x), TerrainPlain, 0)
					}
					continue
				}
				id, err := strconv.Atoi(cell)
				if err != nil {
					return fmt.Errorf("cell (%d,%d): tile id %q is not an integer", y, x, cell)
				}
				terrain, ok := tileset.TerrainForTileID(id)
				if !ok {
					if isGround {
						m.SetTile(Vec(y, x), TerrainPlain, 0)
					}
					continue
				}
				m.SetTile(Vec(y, x), terrain, 0)
			}
		}
		return nil
	}

	if err := applyLayer(ground, true); err != nil {
		return nil, fmt.Errorf("load map %s: ground: %w", dir, err)
	}
	for _, overlay := range []string{"walls.csv", "features.csv"} {
		path := filepath.Join(dir, overlay)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		layer, err := readCSVLayer(path)
		if err != nil {
			return nil, err
		}
		if err := applyLayer(layer, false); err != nil {
			return nil, fmt.Errorf("load map %s: %s: %w", dir, overlay, err)
		}
	}
	return m, nil
}

// readCSVLayer reads one layer, skipping empty rows and enforcing uniform
// row length.
func readCSVLayer(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open layer %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read layer %s: %w", path, err)
	}

	var rows [][]string
	for _, row := range records {
		if len(row) == 0 {
			continue
		}
		rows = append(rows, row)
	}
	for i, row := range rows {
		if len(row) != len(rows[0]) {
			return nil, fmt.Errorf("read layer %s: row %d has %d cells, want %d", path, i, len(row), len(rows[0]))
		}
	}
	return rows, nil
}

// =============================================================================
// Objectives
// =============================================================================

// Objective is one terminal condition. Victory requires all victory
// objectives met; defeat fires on any defeat objective.
type Objective interface {
	Met(g *Game) bool
	Description() string
}

// DefeatAllEnemiesObjective is met when no living enemy-team unit remains.
type DefeatAllEnemiesObjective struct{}

func (DefeatAllEnemiesObjective) Met(g *Game) bool {
	return g.Map.CountAliveByTeam(TeamEnemy) == 0
}
func (DefeatAllEnemiesObjective) Description() string { return "Defeat all enemies" }

// AllUnitsDefeatedObjective is met when a team has been wiped out.
type AllUnitsDefeatedObjective struct {
	Team Team
}

func (o AllUnitsDefeatedObjective) Met(g *Game) bool {
	return g.Map.CountAliveByTeam(o.Team) == 0
}
func (o AllUnitsDefeatedObjective) Description() string {
	return fmt.Sprintf("All %s units defeated", o.Team)
}

// DefeatUnitObjective is met when no living unit carries the given name.
type DefeatUnitObjective struct {
	UnitName string
}

func (o DefeatUnitObjective) Met(g *Game) bool {
	for _, unit := range g.Map.Units() {
		if unit.Name() == o.UnitName && unit.IsAlive() {
			return false
		}
	}
	return true
}
func (o DefeatUnitObjective) Description() string {
	return fmt.Sprintf("Defeat %s", o.UnitName)
}

// ProtectUnitObjective is the defeat-side mirror: met when the protected
// unit has fallen.
type ProtectUnitObjective struct {
	UnitName string
}

func (o ProtectUnitObjective) Met(g *Game) bool {
	return DefeatUnitObjective{UnitName: o.UnitName}.Met(g)
}
func (o ProtectUnitObjective) Description() string {
	return fmt.Sprintf("%s has fallen", o.UnitName)
}

// ReachPositionObjective is met when a living player-team unit stands on
// the position.
type ReachPositionObjective struct {
	Position Vector
}

func (o ReachPositionObjective) Met(g *Game) bool {
	unit := g.Map.UnitAt(o.Position)
	return unit != nil && unit.IsAlive() && unit.Team() == TeamPlayer
}
func (o ReachPositionObjective) Description() string {
	return fmt.Sprintf("Reach %v", o.Position)
}

// BuildObjective constructs an objective from its document spec. Position
// specs use [x, y] order like the unit roster.
func BuildObjective(spec ObjectiveSpec) (Objective, error) {
	switch spec.Type {
	case "defeat_all_enemies":
		return DefeatAllEnemiesObjective{}, nil
	case "all_units_defeated":
		team := TeamPlayer
		if spec.Team != "" {
			t, ok := TeamFromName(canonicalClassName(spec.Team))
			if !ok {
				return nil, fmt.Errorf("objective %s: unknown team %q", spec.Type, spec.Team)
			}
			team = t
		}
		return AllUnitsDefeatedObjective{Team: team}, nil
	case "defeat_unit":
		if spec.UnitName == "" {
			return nil, fmt.Errorf("objective %s: missing unit", spec.Type)
		}
		return DefeatUnitObjective{UnitName: spec.UnitName}, nil
	case "protect_unit":
		if spec.UnitName == "" {
			return nil, fmt.Errorf("objective %s: missing unit", spec.Type)
		}
		return ProtectUnitObjective{UnitName: spec.UnitName}, nil
	case "reach_position", "position_captured":
		if len(spec.Position) != 2 {
			return nil, fmt.Errorf("objective %s: position must be [x, y]", spec.Type)
		}
		return ReachPositionObjective{Position: Vec(spec.Position[1], spec.Position[0])}, nil
	default:
		return nil, fmt.Errorf("unknown objective type %q", spec.Type)
	}
}

// =============================================================================
// Game Assembly
// =============================================================================

// BuildGame assembles a playable battle from a scenario: the layered map,
// the roster with stat overrides, and the objective block. The returned game
// is already in the battle phase.
func BuildGame(scn *Scenario, tileset *TilesetConfig, templates map[UnitClass]UnitTemplate, seed uint64, logger *slog.Logger) (*Game, error) {
	m, err := LoadMapLayers(scn.MapSource, tileset)
	if err != nil {
		return nil, err
	}

	g := NewGame(m, seed, logger)

	for _, su := range scn.Units {
		class, _ := UnitClassFromName(canonicalClassName(su.Class))
		team, _ := TeamFromName(canonicalClassName(su.Team))
		pos := Vec(su.Position[1], su.Position[0])

		unit := NewUnit(su.Name, class, team, pos, GetTemplate(templates, class))
		if err := applyStatOverrides(unit, su.StatsOverride); err != nil {
			return nil, fmt.Errorf("unit %q: %w", su.Name, err)
		}
		if err := g.AddUnit(unit); err != nil {
			return nil, fmt.Errorf("place unit %q: %w", su.Name, err)
		}
	}

	var victory, defeat []Objective
	for _, spec := range scn.Victory {
		obj, err := BuildObjective(spec)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: %w", scn.Name, err)
		}
		victory = append(victory, obj)
	}
	for _, spec := range scn.Defeat {
		obj, err := BuildObjective(spec)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: %w", scn.Name, err)
		}
		defeat = append(defeat, obj)
	}
	g.SetObjectives(victory, defeat, scn.Settings.TurnLimit)

	g.Begin()
	return g, nil
}

// applyStatOverrides mutates a freshly built unit per the roster's
// stats_override block.
func applyStatOverrides(unit *Unit, overrides map[string]any) error {
	// hp_max lands first so an explicit hp_current override wins regardless
	// of document order.
	if raw, ok := overrides["hp_max"]; ok {
		value, ok := toInt(raw)
		if !ok {
			return fmt.Errorf("override hp_max: want integer, got %T", raw)
		}
		unit.Health.HPMax = value
		unit.Health.HPCurrent = value
	}
	for stat, raw := range overrides {
		if stat == "hp_max" {
			continue
		}
		switch stat {
		case "ai_behavior":
			name, ok := raw.(string)
			if !ok {
				return fmt.Errorf("override %s: want string, got %T", stat, raw)
			}
			unit.AI.Behavior = NewAIBehavior(name)
			continue
		case "aoe_pattern":
			name, ok := raw.(string)
			if !ok {
				return fmt.Errorf("override %s: want string, got %T", stat, raw)
			}
			pattern := AOEPattern(name)
			if !pattern.Valid() {
				return fmt.Errorf("override %s: invalid pattern %q", stat, name)
			}
			unit.Combat.AOEPattern = pattern
			continue
		}

		value, ok := toInt(raw)
		if !ok {
			return fmt.Errorf("override %s: want integer, got %T", stat, raw)
		}
		switch stat {
		case "hp_current":
			unit.Health.HPCurrent = min(value, unit.Health.HPMax)
		case "strength":
			unit.Combat.Strength = value
		case "defense":
			unit.Combat.Defense = value
		case "attack_range_min":
			unit.Combat.AttackRangeMin = value
		case "attack_range_max":
			unit.Combat.AttackRangeMax = value
		case "movement":
			unit.Movement.MovementPoints = value
		case "speed":
			unit.Status.Speed = value
		default:
			return fmt.Errorf("unknown override %q", stat)
		}
	}
	return nil
}

func toInt(raw any) (int, bool) {
	switch v := raw.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case uint64:
		return int(v), true
	}
	return 0, false
}
