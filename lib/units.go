package lib

import "fmt"

// =============================================================================
// Teams and Unit Classes
// =============================================================================

// Team is a unit's side in the battle. Ally/enemy checks compare teams only.
type Team int

const (
	TeamPlayer Team = iota
	TeamEnemy
	TeamAlly
	TeamNeutral
)

var teamNames = map[Team]string{
	TeamPlayer:  "Player",
	TeamEnemy:   "Enemy",
	TeamAlly:    "Ally",
	TeamNeutral: "Neutral",
}

func (t Team) String() string {
	if name, ok := teamNames[t]; ok {
		return name
	}
	return fmt.Sprintf("team(%d)", int(t))
}

// TeamFromName resolves a team name from a scenario document.
func TeamFromName(name string) (Team, bool) {
	for t, n := range teamNames {
		if n == name {
			return t, true
		}
	}
	return TeamNeutral, false
}

// UnitClass identifies one of the six unit archetypes.
type UnitClass int

const (
	ClassKnight UnitClass = iota
	ClassArcher
	ClassMage
	ClassPriest
	ClassThief
	ClassWarrior
)

var unitClassNames = map[UnitClass]string{
	ClassKnight:  "Knight",
	ClassArcher:  "Archer",
	ClassMage:    "Mage",
	ClassPriest:  "Priest",
	ClassThief:   "Thief",
	ClassWarrior: "Warrior",
}

func (c UnitClass) String() string {
	if name, ok := unitClassNames[c]; ok {
		return name
	}
	return fmt.Sprintf("class(%d)", int(c))
}

// UnitClassFromName resolves a class name from a template or scenario document.
func UnitClassFromName(name string) (UnitClass, bool) {
	for c, n := range unitClassNames {
		if n == name {
			return c, true
		}
	}
	return ClassKnight, false
}

// =============================================================================
// AOE Patterns
// =============================================================================

// AOEPattern selects one of the six fixed area templates for attacks.
type AOEPattern string

const (
	AOESingle         AOEPattern = "single"
	AOECross          AOEPattern = "cross"
	AOESquare         AOEPattern = "square"
	AOEDiamond        AOEPattern = "diamond"
	AOELineHorizontal AOEPattern = "line_horizontal"
	AOELineVertical   AOEPattern = "line_vertical"
)

// Valid reports whether the pattern names one of the six templates.
func (p AOEPattern) Valid() bool {
	switch p {
	case AOESingle, AOECross, AOESquare, AOEDiamond, AOELineHorizontal, AOELineVertical:
		return true
	}
	return false
}

// =============================================================================
// Components
// =============================================================================
// Units are component-keyed entity records. The set of component kinds is
// closed; each kind has a concrete struct and the Unit holds exactly one
// typed slot per kind. Components never hold a pointer back to their owner,
// only the owner's unit id; cross-references resolve through the Map.

// ComponentKind enumerates the closed set of component kinds.
type ComponentKind int

const (
	ComponentActor ComponentKind = iota
	ComponentHealth
	ComponentMovement
	ComponentCombat
	ComponentStatus
	ComponentInterrupt
	ComponentMorale
	ComponentWound
	ComponentAI
)

// ActorComponent holds identity: name, class, and team affiliation.
type ActorComponent struct {
	Name  string
	Class UnitClass
	Team  Team
}

// IsAllyOf reports whether two actors are on the same team.
func (a *ActorComponent) IsAllyOf(other *ActorComponent) bool {
	return a.Team == other.Team
}

// HealthComponent tracks vitality. A unit is alive iff HPCurrent > 0.
type HealthComponent struct {
	HPMax     int
	HPCurrent int
}

// IsAlive reports whether the unit still stands.
func (h *HealthComponent) IsAlive() bool {
	return h.HPCurrent > 0
}

// TakeDamage subtracts hit points, clamping at zero, and returns the damage
// actually dealt.
func (h *HealthComponent) TakeDamage(amount int) int {
	if amount < 0 {
		panic(fmt.Sprintf("negative damage: %d", amount))
	}
	old := h.HPCurrent
	h.HPCurrent = max(0, h.HPCurrent-amount)
	return old - h.HPCurrent
}

// Heal restores hit points, clamping at HPMax, and returns the amount
// actually restored.
func (h *HealthComponent) Heal(amount int) int {
	if amount < 0 {
		panic(fmt.Sprintf("negative healing: %d", amount))
	}
	old := h.HPCurrent
	h.HPCurrent = min(h.HPMax, h.HPCurrent+amount)
	return h.HPCurrent - old
}

// HPPercent returns current health as a fraction of maximum.
func (h *HealthComponent) HPPercent() float64 {
	if h.HPMax <= 0 {
		return 0
	}
	return float64(h.HPCurrent) / float64(h.HPMax)
}

// MovementComponent tracks position, facing, and movement allowance.
// Position must always equal the Map's occupancy entry for this unit; every
// position change goes through Map.MoveUnit.
type MovementComponent struct {
	Position       Vector
	Facing         Direction
	MovementPoints int
}

// FaceToward turns the unit toward a target position. The current facing is
// kept when the target is the unit's own tile.
func (m *MovementComponent) FaceToward(target Vector) {
	if dir, ok := m.Position.DirectionTo(target); ok {
		m.Facing = dir
	}
}

// CombatComponent holds attack statistics.
type CombatComponent struct {
	Strength       int
	Defense        int
	AttackRangeMin int
	AttackRangeMax int
	AOEPattern     AOEPattern
}

// InRange reports whether a target position is within the component's
// Manhattan attack annulus measured from the given origin.
func (c *CombatComponent) InRange(from, target Vector) bool {
	d := from.ManhattanDistance(target)
	return d >= c.AttackRangeMin && d <= c.AttackRangeMax
}

// StatusComponent tracks per-turn action availability and initiative.
// BraceBonus is temporary defense from a shield-wall interrupt; it lasts
// until the unit's next activation.
type StatusComponent struct {
	Speed      int
	HasMoved   bool
	HasActed   bool
	BraceBonus int
}

// StartTurn resets the per-turn action flags and drops any brace.
func (s *StatusComponent) StartTurn() {
	s.HasMoved = false
	s.HasActed = false
	s.BraceBonus = 0
}

// InterruptComponent tracks the unit's prepared actions. The Interrupt
// Manager owns the authoritative store; the component mirrors the unit's
// slice of it so action validators can enforce the cap.
type InterruptComponent struct {
	Prepared    []*PreparedAction
	MaxPrepared int
}

// CanPrepare reports whether the unit has a free interrupt slot.
func (i *InterruptComponent) CanPrepare() bool {
	return len(i.Prepared) < i.MaxPrepared
}

// AIComponent attaches a behavior policy queried by the scheduler when this
// unit's timeline entry fires.
type AIComponent struct {
	Behavior AIBehavior
}

// =============================================================================
// Unit Entity
// =============================================================================

// Unit is a battle entity assembled from components. The Map exclusively owns
// all Unit records; everything else references units by ID.
type Unit struct {
	ID string

	Actor     ActorComponent
	Health    HealthComponent
	Movement  MovementComponent
	Combat    CombatComponent
	Status    StatusComponent
	Interrupt InterruptComponent
	Morale    MoraleComponent
	Wound     WoundComponent
	AI        AIComponent
}

// NewUnit assembles a unit from a class template. The ID is assigned by the
// Map when the unit is added.
func NewUnit(name string, class UnitClass, team Team, position Vector, tmpl UnitTemplate) *Unit {
	u := &Unit{
		Actor: ActorComponent{Name: name, Class: class, Team: team},
		Health: HealthComponent{
			HPMax:     tmpl.Health.HPMax,
			HPCurrent: tmpl.Health.HPMax,
		},
		Movement: MovementComponent{
			Position:       position,
			Facing:         South,
			MovementPoints: tmpl.Movement.MovementPoints,
		},
		Combat: CombatComponent{
			Strength:       tmpl.Combat.Strength,
			Defense:        tmpl.Combat.Defense,
			AttackRangeMin: tmpl.Combat.AttackRangeMin,
			AttackRangeMax: tmpl.Combat.AttackRangeMax,
			AOEPattern:     tmpl.Combat.AOEPattern,
		},
		Status:    StatusComponent{Speed: tmpl.Status.Speed},
		Interrupt: InterruptComponent{MaxPrepared: 1},
		Morale:    NewMoraleComponent(100, 30, 10),
		Wound:     WoundComponent{},
		AI:        AIComponent{Behavior: NewAIBehavior(tmpl.AI.Behavior)},
	}
	return u
}

// Name returns the unit's display name.
func (u *Unit) Name() string { return u.Actor.Name }

// Team returns the unit's team affiliation.
func (u *Unit) Team() Team { return u.Actor.Team }

// Position returns the unit's grid position.
func (u *Unit) Position() Vector { return u.Movement.Position }

// IsAlive reports whether the unit still stands.
func (u *Unit) IsAlive() bool { return u.Health.IsAlive() }

// Speed returns the unit's initiative value.
func (u *Unit) Speed() int { return u.Status.Speed }

// CanAct reports whether the unit is alive and has an action left this turn.
func (u *Unit) CanAct() bool { return u.IsAlive() && !u.Status.HasActed }

// CanMove reports whether the unit is alive and has movement left this turn.
func (u *Unit) CanMove() bool { return u.IsAlive() && !u.Status.HasMoved }

// IsAllyOf reports whether two units share a team.
func (u *Unit) IsAllyOf(other *Unit) bool {
	return u.Actor.IsAllyOf(&other.Actor)
}

// EffectiveStrength returns attack strength after morale and wound modifiers.
func (u *Unit) EffectiveStrength() int {
	s := u.Combat.Strength
	s += u.Morale.CombatPenalties().Attack
	s += u.Wound.TotalEffects().Attack
	return max(0, s)
}

// EffectiveDefense returns defense after morale and wound modifiers.
func (u *Unit) EffectiveDefense() int {
	d := u.Combat.Defense
	d += u.Status.BraceBonus
	d += u.Morale.CombatPenalties().Defense
	d += u.Wound.TotalEffects().Defense
	return max(0, d)
}

// EffectiveSpeed returns initiative after wound modifiers.
func (u *Unit) EffectiveSpeed() int {
	return max(1, u.Status.Speed+u.Wound.TotalEffects().Speed)
}

func (u *Unit) String() string {
	return fmt.Sprintf("%s[%s %s @%v %d/%dhp]",
		u.Actor.Name, u.Actor.Class, u.Actor.Team,
		u.Movement.Position, u.Health.HPCurrent, u.Health.HPMax)
}
