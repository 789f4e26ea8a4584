package lib

import (
	"log/slog"
)

// Shared helpers for the engine test suite. Units are built with explicit
// stats so tests do not depend on the template tables.

func newTestGame(width, height int) *Game {
	return NewGame(NewMap(width, height, nil), 42, slog.New(slog.DiscardHandler))
}

type unitSpec struct {
	name    string
	class   UnitClass
	team    Team
	pos     Vector
	hp      int
	str     int
	def     int
	speed   int
	move    int
	rangeLo int
	rangeHi int
	pattern AOEPattern
}

func buildUnit(spec unitSpec) *Unit {
	if spec.hp == 0 {
		spec.hp = 25
	}
	if spec.str == 0 {
		spec.str = 10
	}
	if spec.speed == 0 {
		spec.speed = 10
	}
	if spec.move == 0 {
		spec.move = 4
	}
	// An explicit rangeLo of 0 (self-targeting) is kept when rangeHi is set.
	if spec.rangeLo == 0 && spec.rangeHi == 0 {
		spec.rangeLo = 1
	}
	if spec.rangeHi == 0 {
		spec.rangeHi = 1
	}
	if spec.pattern == "" {
		spec.pattern = AOESingle
	}
	return &Unit{
		Actor: ActorComponent{Name: spec.name, Class: spec.class, Team: spec.team},
		Health: HealthComponent{
			HPMax:     spec.hp,
			HPCurrent: spec.hp,
		},
		Movement: MovementComponent{
			Position:       spec.pos,
			Facing:         South,
			MovementPoints: spec.move,
		},
		Combat: CombatComponent{
			Strength:       spec.str,
			Defense:        spec.def,
			AttackRangeMin: spec.rangeLo,
			AttackRangeMax: spec.rangeHi,
			AOEPattern:     spec.pattern,
		},
		Status:    StatusComponent{Speed: spec.speed},
		Interrupt: InterruptComponent{MaxPrepared: 1},
		Morale:    NewMoraleComponent(100, 30, 10),
		AI:        AIComponent{Behavior: InactiveBehavior{}},
	}
}

// mustAddUnit places a unit through the game so it lands on the timeline.
func mustAddUnit(g *Game, spec unitSpec) *Unit {
	unit := buildUnit(spec)
	if err := g.AddUnit(unit); err != nil {
		panic(err)
	}
	return unit
}

// countEvents subscribes a counter to one event type.
func countEvents(bus *EventBus, t EventType) *int {
	count := new(int)
	bus.Subscribe(t, func(Event) { *count++ })
	return count
}
