package lib

import (
	"encoding/binary"
	"math/rand"

	"github.com/cespare/xxhash/v2"
)

// =============================================================================
// Deterministic RNG
// =============================================================================
// Every random draw in the engine keys off a seed derived from the engine
// seed, the current tick, the operation kind, and the participating entity
// ids. Identical inputs always produce identical rolls; there is no global
// mutable RNG and no wall-clock dependence.

// OpKind names the operation consuming randomness, so that distinct draws at
// the same tick use distinct streams.
type OpKind uint8

const (
	OpDamageVariance OpKind = iota
	OpCriticalHit
	OpCounterVariance
	OpHazardSpread
	OpHazardSlip
	OpWoundRecovery
)

// RNG derives per-operation random streams from a single engine seed.
type RNG struct {
	engineSeed uint64
}

// NewRNG creates a deterministic RNG rooted at the engine seed.
func NewRNG(engineSeed uint64) *RNG {
	return &RNG{engineSeed: engineSeed}
}

// Seed returns the engine seed the RNG was rooted at.
func (r *RNG) Seed() uint64 {
	return r.engineSeed
}

// Stream returns a rand.Rand seeded from (engine_seed, tick, op, actor,
// target). The target id may be empty for single-party operations.
func (r *RNG) Stream(tick uint64, op OpKind, actorID, targetID string) *rand.Rand {
	var d xxhash.Digest
	d.Reset()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], r.engineSeed)
	d.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], tick)
	d.Write(buf[:])
	d.Write([]byte{byte(op)})
	d.WriteString(actorID)
	d.Write([]byte{0}) // separator so ("ab","c") != ("a","bc")
	d.WriteString(targetID)
	return rand.New(rand.NewSource(int64(d.Sum64())))
}

// RollRange returns a uniform integer in [lo, hi] from the given stream.
func RollRange(rng *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.Intn(hi-lo+1)
}

// RollPercent reports whether a percentage chance succeeds on the stream.
func RollPercent(rng *rand.Rand, percent int) bool {
	if percent <= 0 {
		return false
	}
	if percent >= 100 {
		return true
	}
	return rng.Intn(100) < percent
}

// RollChance reports whether a probability in [0, 1] succeeds on the stream.
func RollChance(rng *rand.Rand, chance float64) bool {
	if chance <= 0 {
		return false
	}
	if chance >= 1 {
		return true
	}
	return rng.Float64() < chance
}
