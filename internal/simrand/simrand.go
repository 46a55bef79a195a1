// Package simrand wraps math/rand with the generator's deterministic
// threading discipline: a single master seed derives, via HKDF, an
// independent stream per shard and per simulated day, so re-running with
// the same seed and shard count reproduces byte-identical output, and no
// component ever consults wall-clock time for randomness.
package simrand

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
	"math/rand"

	"golang.org/x/crypto/hkdf"
)

// Source is the generator's seeded RNG handle. It is not safe for
// concurrent use; callers that shard work across goroutines must derive
// one Source per shard via DeriveShardSeed.
type Source struct {
	rng *rand.Rand
}

// New constructs a Source directly from a 64-bit seed.
func New(seed int64) *Source {
	return &Source{rng: rand.New(rand.NewSource(seed))}
}

// DeriveShardSeed derives a sub-seed for shard index i out of a master
// seed using HKDF-SHA256, so shard seeds are independent of each other
// and of the per-day seeds derived from the same master.
func DeriveShardSeed(masterSeed int64, shardIndex int) int64 {
	return derive(masterSeed, fmt.Sprintf("shard:%d", shardIndex))
}

// DeriveDaySeed derives a sub-seed for simulated day index d out of a
// master (or shard) seed.
func DeriveDaySeed(parentSeed int64, dayIndex int) int64 {
	return derive(parentSeed, fmt.Sprintf("day:%d", dayIndex))
}

func derive(parentSeed int64, info string) int64 {
	var seedBytes [8]byte
	binary.BigEndian.PutUint64(seedBytes[:], uint64(parentSeed))

	reader := hkdf.New(sha256.New, seedBytes[:], nil, []byte(info))
	var out [8]byte
	if _, err := io.ReadFull(reader, out[:]); err != nil {
		// hkdf.New's reader only fails if the requested length exceeds
		// its max output, which 8 bytes never does.
		panic(fmt.Sprintf("simrand: hkdf derivation failed: %v", err))
	}
	return int64(binary.BigEndian.Uint64(out[:]))
}

// Float64 returns a pseudo-random number in [0.0, 1.0).
func (s *Source) Float64() float64 { return s.rng.Float64() }

// Intn returns a pseudo-random number in [0, n).
func (s *Source) Intn(n int) int { return s.rng.Intn(n) }

// Bool reports true with the given probability in [0.0, 1.0].
func (s *Source) Bool(probability float64) bool {
	return s.rng.Float64() < probability
}

// DurationJitter returns a pseudo-random value in [minNanos, maxNanos).
func (s *Source) DurationJitter(minNanos, maxNanos int64) int64 {
	if maxNanos <= minNanos {
		return minNanos
	}
	return minNanos + s.rng.Int63n(maxNanos-minNanos)
}

// WeightedChoice picks an index from weights using cumulative-weight
// selection: each weight must be non-negative. Zero-weight entries are
// never selected while at least one weight is positive; when no weight is
// positive it returns 0.
func (s *Source) WeightedChoice(weights []float64) int {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return 0
	}

	draw := s.rng.Float64() * total
	cumulative := 0.0
	for i, w := range weights {
		cumulative += w
		if draw < cumulative {
			return i
		}
	}
	return len(weights) - 1
}

// Shuffle permutes n elements in place using the provided swap function,
// following math/rand.Shuffle's Fisher-Yates contract.
func (s *Source) Shuffle(n int, swap func(i, j int)) {
	s.rng.Shuffle(n, swap)
}
