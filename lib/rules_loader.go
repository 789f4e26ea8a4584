package lib

import (
	"fmt"
	"strconv"

	"github.com/spf13/viper"
)

// =============================================================================
// Rules Loading
// =============================================================================
// Unit templates and the tileset are data-driven: YAML documents loaded at
// engine init. Malformed documents are reported at load time and prevent the
// engine from starting; they never propagate into the simulation loop.
// Missing documents fall back to the built-in Default tables.

// UnitTemplate specifies the initial component values for a unit class.
type UnitTemplate struct {
	Health   HealthTemplate
	Movement MovementTemplate
	Combat   CombatTemplate
	Status   StatusTemplate
	AI       AITemplate
}

// HealthTemplate seeds the health component.
type HealthTemplate struct {
	HPMax int `mapstructure:"hp_max"`
}

// MovementTemplate seeds the movement component.
type MovementTemplate struct {
	MovementPoints int `mapstructure:"movement_points"`
}

// CombatTemplate seeds the combat component.
type CombatTemplate struct {
	Strength       int        `mapstructure:"strength"`
	Defense        int        `mapstructure:"defense"`
	AttackRangeMin int        `mapstructure:"attack_range_min"`
	AttackRangeMax int        `mapstructure:"attack_range_max"`
	AOEPattern     AOEPattern `mapstructure:"aoe_pattern"`
}

// StatusTemplate seeds the status component.
type StatusTemplate struct {
	Speed int `mapstructure:"speed"`
}

// AITemplate seeds the behavior policy. The behavior field is authoritative
// for which policy a class gets.
type AITemplate struct {
	Behavior string `mapstructure:"behavior"`
}

// DefaultUnitTemplates is the built-in class table, used when no template
// document overrides it.
var DefaultUnitTemplates = map[UnitClass]UnitTemplate{
	ClassKnight: {
		Health:   HealthTemplate{HPMax: 25},
		Movement: MovementTemplate{MovementPoints: 4},
		Combat:   CombatTemplate{Strength: 10, Defense: 5, AttackRangeMin: 1, AttackRangeMax: 1, AOEPattern: AOESingle},
		Status:   StatusTemplate{Speed: 8},
		AI:       AITemplate{Behavior: "AGGRESSIVE"},
	},
	ClassArcher: {
		Health:   HealthTemplate{HPMax: 18},
		Movement: MovementTemplate{MovementPoints: 5},
		Combat:   CombatTemplate{Strength: 8, Defense: 2, AttackRangeMin: 2, AttackRangeMax: 3, AOEPattern: AOESingle},
		Status:   StatusTemplate{Speed: 12},
		AI:       AITemplate{Behavior: "AGGRESSIVE"},
	},
	ClassMage: {
		Health:   HealthTemplate{HPMax: 15},
		Movement: MovementTemplate{MovementPoints: 4},
		Combat:   CombatTemplate{Strength: 12, Defense: 1, AttackRangeMin: 1, AttackRangeMax: 2, AOEPattern: AOECross},
		Status:   StatusTemplate{Speed: 10},
		AI:       AITemplate{Behavior: "AGGRESSIVE"},
	},
	ClassPriest: {
		Health:   HealthTemplate{HPMax: 16},
		Movement: MovementTemplate{MovementPoints: 4},
		Combat:   CombatTemplate{Strength: 5, Defense: 2, AttackRangeMin: 1, AttackRangeMax: 1, AOEPattern: AOESingle},
		Status:   StatusTemplate{Speed: 9},
		AI:       AITemplate{Behavior: "AGGRESSIVE"},
	},
	ClassThief: {
		Health:   HealthTemplate{HPMax: 16},
		Movement: MovementTemplate{MovementPoints: 6},
		Combat:   CombatTemplate{Strength: 7, Defense: 1, AttackRangeMin: 1, AttackRangeMax: 1, AOEPattern: AOESingle},
		Status:   StatusTemplate{Speed: 15},
		AI:       AITemplate{Behavior: "AGGRESSIVE"},
	},
	ClassWarrior: {
		Health:   HealthTemplate{HPMax: 22},
		Movement: MovementTemplate{MovementPoints: 5},
		Combat:   CombatTemplate{Strength: 8, Defense: 3, AttackRangeMin: 1, AttackRangeMax: 1, AOEPattern: AOESingle},
		Status:   StatusTemplate{Speed: 10},
		AI:       AITemplate{Behavior: "AGGRESSIVE"},
	},
}

// GetTemplate returns the template for a class from a loaded table, falling
// back to the defaults.
func GetTemplate(templates map[UnitClass]UnitTemplate, class UnitClass) UnitTemplate {
	if templates != nil {
		if tmpl, ok := templates[class]; ok {
			return tmpl
		}
	}
	return DefaultUnitTemplates[class]
}

// LoadUnitTemplates reads a unit template document. The document is keyed by
// class name under unit_templates, each class holding maps for health,
// movement, combat, status, and ai. A missing ai block defaults to
// AGGRESSIVE.
func LoadUnitTemplates(path string) (map[UnitClass]UnitTemplate, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read unit templates %s: %w", path, err)
	}

	var doc struct {
		UnitTemplates map[string]UnitTemplate `mapstructure:"unit_templates"`
	}
	if err := v.Unmarshal(&doc); err != nil {
		return nil, fmt.Errorf("parse unit templates %s: %w", path, err)
	}
	if len(doc.UnitTemplates) == 0 {
		return nil, fmt.Errorf("parse unit templates %s: no unit_templates section", path)
	}

	templates := map[UnitClass]UnitTemplate{}
	for name, tmpl := range doc.UnitTemplates {
		class, ok := UnitClassFromName(canonicalClassName(name))
		if !ok {
			return nil, fmt.Errorf("parse unit templates %s: unknown class %q", path, name)
		}
		if tmpl.AI.Behavior == "" {
			tmpl.AI.Behavior = "AGGRESSIVE"
		}
		if tmpl.Combat.AOEPattern == "" {
			tmpl.Combat.AOEPattern = AOESingle
		}
		if !tmpl.Combat.AOEPattern.Valid() {
			return nil, fmt.Errorf("parse unit templates %s: class %q has invalid aoe_pattern %q",
				path, name, tmpl.Combat.AOEPattern)
		}
		templates[class] = tmpl
	}
	return templates, nil
}

// canonicalClassName turns template keys like "KNIGHT" or "knight" into the
// display form the class table uses.
func canonicalClassName(name string) string {
	if name == "" {
		return name
	}
	out := make([]byte, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case i == 0 && c >= 'a' && c <= 'z':
			c -= 'a' - 'A'
		case i > 0 && c >= 'A' && c <= 'Z':
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}

// =============================================================================
// Tileset Loading
// =============================================================================

// TileConfig is one tile definition in the tileset document.
type TileConfig struct {
	TerrainType    string `mapstructure:"terrain_type"`
	MoveCost       int    `mapstructure:"move_cost"`
	DefenseBonus   int    `mapstructure:"defense_bonus"`
	AvoidBonus     int    `mapstructure:"avoid_bonus"`
	BlocksMovement bool   `mapstructure:"blocks_movement"`
	BlocksVision   bool   `mapstructure:"blocks_vision"`
}

// TilesetConfig connects tile ids, glyphs, and terrain names.
type TilesetConfig struct {
	Tiles           map[int]TileConfig
	SymbolToTileID  map[string]int
	TerrainToTileID map[string]int
}

// DefaultTilesetConfig builds a tileset from the built-in terrain table,
// with tile ids 1..8 in terrain enum order.
func DefaultTilesetConfig() *TilesetConfig {
	cfg := &TilesetConfig{
		Tiles:           map[int]TileConfig{},
		SymbolToTileID:  map[string]int{},
		TerrainToTileID: map[string]int{},
	}
	for t := TerrainType(0); t < terrainCount; t++ {
		data := DefaultTerrainData[t]
		id := int(t) + 1
		cfg.Tiles[id] = TileConfig{
			TerrainType:    data.Name,
			MoveCost:       data.MoveCost,
			DefenseBonus:   data.DefenseBonus,
			AvoidBonus:     data.AvoidBonus,
			BlocksMovement: data.BlocksMovement,
			BlocksVision:   data.BlocksVision,
		}
		cfg.TerrainToTileID[data.Name] = id
	}
	return cfg
}

// TerrainForTileID resolves a map-layer cell value to a terrain kind.
func (c *TilesetConfig) TerrainForTileID(id int) (TerrainType, bool) {
	tile, ok := c.Tiles[id]
	if !ok {
		return TerrainPlain, false
	}
	return TerrainTypeFromName(tile.TerrainType)
}

// Registry builds a terrain registry from the tileset's gameplay properties.
func (c *TilesetConfig) Registry() *TerrainRegistry {
	data := map[TerrainType]TerrainData{}
	for _, tile := range c.Tiles {
		terrain, ok := TerrainTypeFromName(tile.TerrainType)
		if !ok {
			continue
		}
		data[terrain] = TerrainData{
			Name:           tile.TerrainType,
			MoveCost:       tile.MoveCost,
			DefenseBonus:   tile.DefenseBonus,
			AvoidBonus:     tile.AvoidBonus,
			BlocksMovement: tile.BlocksMovement,
			BlocksVision:   tile.BlocksVision,
		}
	}
	return NewTerrainRegistry(data)
}

// LoadTileset reads a tileset document: tiles keyed by integer id plus the
// symbol and terrain lookup maps.
func LoadTileset(path string) (*TilesetConfig, error) {
	v := viper.NewWithOptions(viper.KeyDelimiter("\x00"))
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read tileset %s: %w", path, err)
	}

	var doc struct {
		Tiles           map[string]TileConfig `mapstructure:"tiles"`
		SymbolToTileID  map[string]int        `mapstructure:"symbol_to_tile_id"`
		TerrainToTileID map[string]int        `mapstructure:"terrain_to_tile_id"`
	}
	if err := v.Unmarshal(&doc); err != nil {
		return nil, fmt.Errorf("parse tileset %s: %w", path, err)
	}
	if len(doc.Tiles) == 0 {
		return nil, fmt.Errorf("parse tileset %s: no tiles section", path)
	}

	cfg := &TilesetConfig{
		Tiles:           map[int]TileConfig{},
		SymbolToTileID:  doc.SymbolToTileID,
		TerrainToTileID: doc.TerrainToTileID,
	}
	if cfg.SymbolToTileID == nil {
		cfg.SymbolToTileID = map[string]int{}
	}
	if cfg.TerrainToTileID == nil {
		cfg.TerrainToTileID = map[string]int{}
	}
	for key, tile := range doc.Tiles {
		id, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("parse tileset %s: tile id %q is not an integer", path, key)
		}
		if _, ok := TerrainTypeFromName(tile.TerrainType); !ok {
			return nil, fmt.Errorf("parse tileset %s: tile %d has unknown terrain %q", path, id, tile.TerrainType)
		}
		if tile.MoveCost < 1 || tile.MoveCost > 99 {
			return nil, fmt.Errorf("parse tileset %s: tile %d move_cost %d out of range", path, id, tile.MoveCost)
		}
		cfg.Tiles[id] = tile
	}
	return cfg, nil
}
