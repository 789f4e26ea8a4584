package lib

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// =============================================================================
// Game Log
// =============================================================================
// The game log records a bounded ring of battle messages for the message
// panel, mirrored to structured logging. Each battle session gets its own
// id so interleaved logs from multiple games stay separable.

const gameLogCapacity = 256

// GameLogEntry is one line of the battle log.
type GameLogEntry struct {
	Time     uint64
	Category string
	Level    LogLevel
	Message  string
}

// GameLog subscribes to the bus and accumulates log-worthy events.
type GameLog struct {
	SessionID string

	entries []GameLogEntry
	logger  *slog.Logger
}

// NewGameLog creates a log wired to the bus.
func NewGameLog(bus *EventBus, logger *slog.Logger) *GameLog {
	gl := &GameLog{
		SessionID: uuid.NewString(),
		logger:    logger,
	}

	bus.Subscribe(EventLogMessage, func(ev Event) {
		msg := ev.(LogMessageEvent)
		gl.append(GameLogEntry{
			Time:     msg.Time,
			Category: msg.Category,
			Level:    msg.Level,
			Message:  msg.Message,
		})
	})
	bus.Subscribe(EventUnitDamaged, func(ev Event) {
		damaged := ev.(UnitDamagedEvent)
		crit := ""
		if damaged.Critical {
			crit = " (critical)"
		}
		gl.append(GameLogEntry{
			Time:     damaged.Time,
			Category: "BATTLE",
			Level:    LogInfo,
			Message:  fmt.Sprintf("%s takes %d damage%s, %d hp left", damaged.UnitName, damaged.Damage, crit, damaged.HPLeft),
		})
	})
	bus.Subscribe(EventUnitDefeated, func(ev Event) {
		defeated := ev.(UnitDefeatedEvent)
		gl.append(GameLogEntry{
			Time:     defeated.Time,
			Category: "BATTLE",
			Level:    LogWarning,
			Message:  fmt.Sprintf("%s has fallen", defeated.UnitName),
		})
	})
	return gl
}

func (gl *GameLog) append(entry GameLogEntry) {
	gl.entries = append(gl.entries, entry)
	if len(gl.entries) > gameLogCapacity {
		gl.entries = gl.entries[len(gl.entries)-gameLogCapacity:]
	}
	if gl.logger != nil {
		gl.logger.Debug(entry.Message,
			"session", gl.SessionID,
			"tick", entry.Time,
			"category", entry.Category,
		)
	}
}

// Recent returns the latest n entries, oldest first.
func (gl *GameLog) Recent(n int) []GameLogEntry {
	if n >= len(gl.entries) {
		return append([]GameLogEntry(nil), gl.entries...)
	}
	return append([]GameLogEntry(nil), gl.entries[len(gl.entries)-n:]...)
}

// Len returns the number of retained entries.
func (gl *GameLog) Len() int {
	return len(gl.entries)
}
