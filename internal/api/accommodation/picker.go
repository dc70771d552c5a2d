package accommodation

import (
	"math/rand/v2"
	"sync"
)

// Picker chooses an index in [0, n).
type Picker interface {
	Intn(n int) int
}

// FirstPicker always picks the best-rated option.
type FirstPicker struct{}

func (FirstPicker) Intn(int) int { return 0 }

// RandomPicker draws from a seeded PCG source so runs are reproducible for a given seed.
type RandomPicker struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandomPicker(seed uint64) *RandomPicker {
	return &RandomPicker{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (p *RandomPicker) Intn(n int) int {
	if n <= 1 {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.IntN(n)
}
