package lib

import "fmt"

// TerrainType identifies one of the eight terrain kinds a tile can hold.
type TerrainType uint8

const (
	TerrainPlain TerrainType = iota
	TerrainForest
	TerrainMountain
	TerrainWater
	TerrainRoad
	TerrainFort
	TerrainBridge
	TerrainWall

	terrainCount
)

var terrainNames = [terrainCount]string{
	TerrainPlain:    "plain",
	TerrainForest:   "forest",
	TerrainMountain: "mountain",
	TerrainWater:    "water",
	TerrainRoad:     "road",
	TerrainFort:     "fort",
	TerrainBridge:   "bridge",
	TerrainWall:     "wall",
}

func (t TerrainType) String() string {
	if int(t) < len(terrainNames) {
		return terrainNames[t]
	}
	return fmt.Sprintf("terrain(%d)", int(t))
}

// TerrainTypeFromName resolves a lowercase terrain name from a tileset or
// scenario document.
func TerrainTypeFromName(name string) (TerrainType, bool) {
	for t, n := range terrainNames {
		if n == name {
			return TerrainType(t), true
		}
	}
	return TerrainPlain, false
}

// TerrainData carries the five static gameplay properties of a terrain kind.
type TerrainData struct {
	Name           string
	MoveCost       int // 1..99
	DefenseBonus   int
	AvoidBonus     int
	BlocksMovement bool
	BlocksVision   bool
}

// DefaultTerrainData is the built-in terrain table, used when no tileset
// document overrides it.
var DefaultTerrainData = map[TerrainType]TerrainData{
	TerrainPlain:    {Name: "plain", MoveCost: 1},
	TerrainForest:   {Name: "forest", MoveCost: 2, DefenseBonus: 1, AvoidBonus: 20},
	TerrainMountain: {Name: "mountain", MoveCost: 3, DefenseBonus: 2, AvoidBonus: 30},
	TerrainWater:    {Name: "water", MoveCost: 99, BlocksMovement: true},
	TerrainRoad:     {Name: "road", MoveCost: 1},
	TerrainFort:     {Name: "fort", MoveCost: 1, DefenseBonus: 3, AvoidBonus: 10},
	TerrainBridge:   {Name: "bridge", MoveCost: 1},
	TerrainWall:     {Name: "wall", MoveCost: 99, BlocksMovement: true, BlocksVision: true},
}

// Tile is one cell of the battle grid: a terrain kind plus an elevation.
// Tiles are created when the map is built and never destroyed; hazard final
// effects may rewrite the terrain kind in place.
type Tile struct {
	Terrain   TerrainType `json:"terrain"`
	Elevation int8        `json:"elevation"`
}

// =============================================================================
// Terrain Registry
// =============================================================================
// Terrain properties are not process-wide state. The registry is built at
// engine init (from the tileset document or the defaults) and handed to the
// Map constructor; everything that needs a move cost or a blocking flag asks
// the map.

// TerrainRegistry resolves terrain kinds to their gameplay properties.
type TerrainRegistry struct {
	data map[TerrainType]TerrainData
}

// NewTerrainRegistry creates a registry from an explicit property table.
// Kinds missing from the table fall back to the defaults.
func NewTerrainRegistry(data map[TerrainType]TerrainData) *TerrainRegistry {
	merged := make(map[TerrainType]TerrainData, len(DefaultTerrainData))
	for t, d := range DefaultTerrainData {
		merged[t] = d
	}
	for t, d := range data {
		merged[t] = d
	}
	return &TerrainRegistry{data: merged}
}

// DefaultTerrainRegistry creates a registry backed by the built-in table.
func DefaultTerrainRegistry() *TerrainRegistry {
	return NewTerrainRegistry(nil)
}

// Data returns the properties for a terrain kind.
func (r *TerrainRegistry) Data(t TerrainType) TerrainData {
	return r.data[t]
}

// MoveCost returns the cost to enter a tile of the given kind.
func (r *TerrainRegistry) MoveCost(t TerrainType) int {
	return r.data[t].MoveCost
}

// BlocksMovement reports whether the kind can never be entered.
func (r *TerrainRegistry) BlocksMovement(t TerrainType) bool {
	return r.data[t].BlocksMovement
}

// BlocksVision reports whether the kind interrupts line of sight.
func (r *TerrainRegistry) BlocksVision(t TerrainType) bool {
	return r.data[t].BlocksVision
}
