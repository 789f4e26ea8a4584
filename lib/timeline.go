package lib

import (
	"container/heap"
	"fmt"
	"slices"
)

// =============================================================================
// Timeline Scheduler
// =============================================================================
// The timeline orders heterogeneous actors (units, hazards) by a weighted
// tick counter. The total order is (execution_tick ASC, entry_seq ASC); the
// sequence counter is a monotonic insertion counter guaranteeing
// deterministic tiebreaks. No wall-clock or pointer-address dependence.

// EntityKind distinguishes what a timeline entry drives.
type EntityKind int

const (
	EntityUnit EntityKind = iota
	EntityHazard
)

// EntityRef is a weak reference to a scheduled actor. Lookups through it
// must tolerate absence.
type EntityRef struct {
	Kind EntityKind
	ID   string
}

func (r EntityRef) String() string {
	if r.Kind == EntityHazard {
		return fmt.Sprintf("hazard:%s", r.ID)
	}
	return r.ID
}

// Visibility is a timeline entry's disclosure level for rendering. Hidden
// intents show as "???" and never affect scheduling.
type Visibility int

const (
	VisibilityFull Visibility = iota
	VisibilityPartial
	VisibilityHidden
)

// TimelineEntry schedules one actor activation.
type TimelineEntry struct {
	ExecutionTick uint64
	Ref           EntityRef
	Seq           uint64
	ActionPreview string
	Visibility    Visibility
}

type entryHeap []TimelineEntry

func (h entryHeap) Len() int { return len(h) }
func (h entryHeap) Less(i, j int) bool {
	if h[i].ExecutionTick != h[j].ExecutionTick {
		return h[i].ExecutionTick < h[j].ExecutionTick
	}
	return h[i].Seq < h[j].Seq
}
func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *entryHeap) Push(x any)   { *h = append(*h, x.(TimelineEntry)) }
func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// Timeline is a priority queue of entries keyed by (tick, seq). Cancellation
// is lazy: Pop discards entries whose owner is no longer alive or whose
// sequence number has been superseded by a reschedule.
type Timeline struct {
	entries     entryHeap
	nextSeq     uint64
	currentTime uint64
	latest      map[EntityRef]uint64
	alive       func(EntityRef) bool
}

// NewTimeline creates a timeline. The alive predicate gates lazy discard; a
// nil predicate treats every owner as alive.
func NewTimeline(alive func(EntityRef) bool) *Timeline {
	if alive == nil {
		alive = func(EntityRef) bool { return true }
	}
	return &Timeline{latest: map[EntityRef]uint64{}, alive: alive}
}

// CurrentTime is the tick of the most recently popped entry, zero initially.
// It is non-decreasing across Pop calls.
func (t *Timeline) CurrentTime() uint64 {
	return t.currentTime
}

// Len returns the number of queued entries, stale ones included.
func (t *Timeline) Len() int {
	return len(t.entries)
}

// Schedule inserts an entry at an absolute tick and returns it. A newly
// scheduled entry supersedes any earlier entry for the same actor.
func (t *Timeline) Schedule(ref EntityRef, tick uint64, preview string, vis Visibility) TimelineEntry {
	t.nextSeq++
	entry := TimelineEntry{
		ExecutionTick: tick,
		Ref:           ref,
		Seq:           t.nextSeq,
		ActionPreview: preview,
		Visibility:    vis,
	}
	t.latest[ref] = entry.Seq
	heap.Push(&t.entries, entry)
	return entry
}

// ScheduleAfter inserts an entry delay ticks after the current time.
func (t *Timeline) ScheduleAfter(ref EntityRef, delay uint64, preview string, vis Visibility) TimelineEntry {
	return t.Schedule(ref, t.currentTime+delay, preview, vis)
}

// Cancel marks every queued entry for the actor stale. The entries drain out
// lazily on Pop.
func (t *Timeline) Cancel(ref EntityRef) {
	delete(t.latest, ref)
}

// stale reports whether an entry should be discarded on pop.
func (t *Timeline) stale(e TimelineEntry) bool {
	if seq, ok := t.latest[e.Ref]; !ok || seq != e.Seq {
		return true
	}
	return !t.alive(e.Ref)
}

// Peek returns the earliest live entry without removing it.
func (t *Timeline) Peek() (TimelineEntry, bool) {
	t.discardStale()
	if len(t.entries) == 0 {
		return TimelineEntry{}, false
	}
	return t.entries[0], true
}

// Pop removes and returns the earliest live entry, advancing current time to
// its tick.
func (t *Timeline) Pop() (TimelineEntry, bool) {
	t.discardStale()
	if len(t.entries) == 0 {
		return TimelineEntry{}, false
	}
	entry := heap.Pop(&t.entries).(TimelineEntry)
	delete(t.latest, entry.Ref)
	t.currentTime = entry.ExecutionTick
	return entry, true
}

func (t *Timeline) discardStale() {
	for len(t.entries) > 0 && t.stale(t.entries[0]) {
		heap.Pop(&t.entries)
	}
}

// Preview returns the first n live entries in execution order without
// mutating the queue.
func (t *Timeline) Preview(n int) []TimelineEntry {
	live := make([]TimelineEntry, 0, len(t.entries))
	for _, e := range t.entries {
		if !t.stale(e) {
			live = append(live, e)
		}
	}
	slices.SortFunc(live, func(a, b TimelineEntry) int {
		if a.ExecutionTick != b.ExecutionTick {
			if a.ExecutionTick < b.ExecutionTick {
				return -1
			}
			return 1
		}
		if a.Seq < b.Seq {
			return -1
		}
		return 1
	})
	if n < len(live) {
		live = live[:n]
	}
	return live
}

// InitialDelay derives a unit's first activation delay from its speed:
// higher speed means a smaller delay.
func InitialDelay(speed int) uint64 {
	return uint64(max(10, 100-speed))
}
