package forecast

import (
	"math/rand"
	"sync"
	"time"
)

// RandSource supplies normally distributed noise. *rand.Rand satisfies it,
// so tests can pass rand.New(rand.NewSource(seed)) directly.
type RandSource interface {
	NormFloat64() float64
}

type lockedSource struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandSource returns a goroutine-safe source.
// Policy: seed==0 seeds from the clock, any other seed is used verbatim.
func NewRandSource(seed int64) RandSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &lockedSource{rnd: rand.New(rand.NewSource(seed))}
}

func (s *lockedSource) NormFloat64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.NormFloat64()
}

// normal draws from N(mean, stddev).
func normal(rng RandSource, mean, stddev float64) float64 {
	return mean + stddev*rng.NormFloat64()
}
