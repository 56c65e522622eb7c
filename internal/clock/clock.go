package clock

import (
	"math/rand"
	"sync"
	"time"
)

// Clock supplies the wall clock. Injectable so tests can pin time.
type Clock interface {
	Now() time.Time
}

// RNG supplies uniform randomness. *math/rand.Rand satisfies it, which is
// what tests use with a fixed seed. Randomness that affects persisted
// state is always drawn inside the committing transaction.
type RNG interface {
	Float64() float64
	Intn(n int) int
}

// System is the production clock. All engine timestamps are UTC.
type System struct{}

func (System) Now() time.Time { return time.Now().UTC() }

// lockedRNG guards a rand.Rand for concurrent command handlers.
type lockedRNG struct {
	mu  sync.Mutex
	src *rand.Rand
}

// NewRNG returns a concurrency-safe seeded source. Seed 0 selects a
// time-based seed.
func NewRNG(seed int64) RNG {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &lockedRNG{src: rand.New(rand.NewSource(seed))}
}

func (l *lockedRNG) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Float64()
}

func (l *lockedRNG) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Intn(n)
}

// Fixed is a Clock pinned to a single instant, for tests.
type Fixed time.Time

func (f Fixed) Now() time.Time { return time.Time(f) }
