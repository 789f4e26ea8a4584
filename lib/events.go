package lib

// =============================================================================
// Event System
// =============================================================================
// A typed publish/subscribe hub for the battle engine. Dispatch is
// synchronous and ordered by subscription time. Events published during
// dispatch are routed through a FIFO queue drained to fixed point after each
// top-level publish, so a subscriber can never re-enter itself on the same
// call stack.

// EventType identifies one of the closed set of engine events.
type EventType int

const (
	EventUnitDamaged EventType = iota
	EventUnitDefeated
	EventMoraleChanged
	EventUnitPanicked
	EventUnitRouted
	EventUnitRallied
	EventBattlePhaseChanged
	EventHazardCreated
	EventHazardExpired
	EventLogMessage
)

// Event is the interface every engine event satisfies. Every event carries
// the timeline tick at which it was raised.
type Event interface {
	Type() EventType
	Timestamp() uint64
}

// PanicTrigger names the condition that pushed a unit into panic.
type PanicTrigger int

const (
	PanicLowMorale PanicTrigger = iota
	PanicAllyDeath
	PanicHeavyDamage
	PanicOverwhelmingOdds
)

var panicTriggerNames = map[PanicTrigger]string{
	PanicLowMorale:        "Low Morale",
	PanicAllyDeath:        "Ally Death",
	PanicHeavyDamage:      "Heavy Damage",
	PanicOverwhelmingOdds: "Overwhelming Odds",
}

func (p PanicTrigger) String() string {
	return panicTriggerNames[p]
}

// =============================================================================
// Event Records
// =============================================================================
// Events carry value copies of the relevant state, never live pointers into
// the map, so that handlers observing a defeated unit still see its final
// position and team after removal.

// UnitDamagedEvent is published once per target after damage is applied.
type UnitDamagedEvent struct {
	Time       uint64
	UnitID     string
	UnitName   string
	Team       Team
	Position   Vector
	AttackerID string
	Damage     int
	Critical   bool
	HPLeft     int
}

func (e UnitDamagedEvent) Type() EventType   { return EventUnitDamaged }
func (e UnitDamagedEvent) Timestamp() uint64 { return e.Time }

// UnitDefeatedEvent is published when a unit's hit points reach zero.
// Damage is applied before this event is published.
type UnitDefeatedEvent struct {
	Time     uint64
	UnitID   string
	UnitName string
	Team     Team
	Position Vector
	KillerID string
}

func (e UnitDefeatedEvent) Type() EventType   { return EventUnitDefeated }
func (e UnitDefeatedEvent) Timestamp() uint64 { return e.Time }

// MoraleChangedEvent is published on significant morale swings.
type MoraleChangedEvent struct {
	Time      uint64
	UnitID    string
	UnitName  string
	OldMorale int
	NewMorale int
}

func (e MoraleChangedEvent) Type() EventType   { return EventMoraleChanged }
func (e MoraleChangedEvent) Timestamp() uint64 { return e.Time }

// UnitPanickedEvent is published when a unit enters the panic state.
type UnitPanickedEvent struct {
	Time     uint64
	UnitID   string
	UnitName string
	Trigger  PanicTrigger
}

func (e UnitPanickedEvent) Type() EventType   { return EventUnitPanicked }
func (e UnitPanickedEvent) Timestamp() uint64 { return e.Time }

// UnitRoutedEvent is published when a unit breaks and flees.
type UnitRoutedEvent struct {
	Time     uint64
	UnitID   string
	UnitName string
}

func (e UnitRoutedEvent) Type() EventType   { return EventUnitRouted }
func (e UnitRoutedEvent) Timestamp() uint64 { return e.Time }

// UnitRalliedEvent is published when a panicked unit regains its nerve.
type UnitRalliedEvent struct {
	Time     uint64
	UnitID   string
	UnitName string
}

func (e UnitRalliedEvent) Type() EventType   { return EventUnitRallied }
func (e UnitRalliedEvent) Timestamp() uint64 { return e.Time }

// BattlePhase is the coarse state of the battle.
type BattlePhase int

const (
	PhaseDeployment BattlePhase = iota
	PhaseBattle
	PhaseVictory
	PhaseDefeat
)

var battlePhaseNames = map[BattlePhase]string{
	PhaseDeployment: "Deployment",
	PhaseBattle:     "Battle",
	PhaseVictory:    "Victory",
	PhaseDefeat:     "Defeat",
}

func (p BattlePhase) String() string {
	return battlePhaseNames[p]
}

// BattlePhaseChangedEvent is published on phase transitions.
type BattlePhaseChangedEvent struct {
	Time     uint64
	OldPhase BattlePhase
	NewPhase BattlePhase
}

func (e BattlePhaseChangedEvent) Type() EventType   { return EventBattlePhaseChanged }
func (e BattlePhaseChangedEvent) Timestamp() uint64 { return e.Time }

// HazardCreatedEvent is published when a hazard instance enters the field.
type HazardCreatedEvent struct {
	Time     uint64
	HazardID string
	Kind     HazardKind
	Position Vector
}

func (e HazardCreatedEvent) Type() EventType   { return EventHazardCreated }
func (e HazardCreatedEvent) Timestamp() uint64 { return e.Time }

// HazardExpiredEvent is published when a hazard burns out, after its final
// effect has been applied.
type HazardExpiredEvent struct {
	Time     uint64
	HazardID string
	Kind     HazardKind
	Position Vector
}

func (e HazardExpiredEvent) Type() EventType   { return EventHazardExpired }
func (e HazardExpiredEvent) Timestamp() uint64 { return e.Time }

// LogLevel grades battle log entries.
type LogLevel int

const (
	LogDebug LogLevel = iota
	LogInfo
	LogWarning
	LogError
)

// LogMessageEvent carries a human-readable battle log line.
type LogMessageEvent struct {
	Time     uint64
	Category string
	Level    LogLevel
	Message  string
	Source   string
}

func (e LogMessageEvent) Type() EventType   { return EventLogMessage }
func (e LogMessageEvent) Timestamp() uint64 { return e.Time }

// =============================================================================
// Event Bus
// =============================================================================

// EventHandler consumes a single event.
type EventHandler func(Event)

// EventBus dispatches events to subscribers. The bus owns subscriber
// registration; publishers must re-enter through the queue, never via direct
// invocation.
type EventBus struct {
	handlers map[EventType][]EventHandler
	queue    []Event
	draining bool
}

// NewEventBus creates an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{handlers: map[EventType][]EventHandler{}}
}

// Subscribe registers a handler for one event type. Handlers run in
// registration order.
func (b *EventBus) Subscribe(t EventType, handler EventHandler) {
	b.handlers[t] = append(b.handlers[t], handler)
}

// Publish enqueues an event. On a top-level publish the queue is drained to
// fixed point: handlers may publish further events, which are appended and
// dispatched in FIFO order rather than recursively.
func (b *EventBus) Publish(ev Event) {
	b.queue = append(b.queue, ev)
	if b.draining {
		return
	}
	b.draining = true
	defer func() { b.draining = false }()

	for len(b.queue) > 0 {
		next := b.queue[0]
		b.queue = b.queue[1:]
		for _, handler := range b.handlers[next.Type()] {
			handler(next)
		}
	}
}

// SubscriberCount returns the number of handlers for an event type.
func (b *EventBus) SubscriberCount(t EventType) int {
	return len(b.handlers[t])
}
