// Package random provides the goroutine-safe random source shared by the
// matchmaking queue and the combat resolver.
//
// Production code seeds it from crypto/rand; tests inject a fixed seed or a
// scripted source so pairing and combat rolls are reproducible.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Source is the subset of *rand.Rand the game services need.
type Source interface {
	// Intn returns a uniform int in [0, n). It panics if n <= 0.
	Intn(n int) int
	// Float64 returns a uniform float64 in [0.0, 1.0).
	Float64() float64
}

type lockedSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New returns a Source seeded with seed. It is safe for concurrent use.
func New(seed int64) Source {
	return &lockedSource{rng: rand.New(rand.NewSource(seed))}
}

// NewFromEntropy returns a Source seeded from crypto/rand, falling back to
// the wall clock if the system entropy pool cannot be read.
func NewFromEntropy() Source {
	seed, err := NewSeed()
	if err != nil {
		seed = time.Now().UnixNano()
	}
	return New(seed)
}

func (s *lockedSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

func (s *lockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}

	return int64(binary.LittleEndian.Uint64(b[:])), nil
}
