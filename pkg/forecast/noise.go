package forecast

import (
	"math/rand/v2"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat/distuv"
)

// Noise is a stochastic multiplier with the given mean and spread.
type Noise interface {
	Sample(mean, spread float64) float64
}

// NormalNoise draws from a normal distribution backed by a seedable source.
// It is safe for concurrent use.
type NormalNoise struct {
	mu  sync.Mutex
	src rand.Source
}

// NewNormalNoise creates NormalNoise seeded with seed. A seed of 0 seeds from
// the current time.
func NewNormalNoise(seed uint64) *NormalNoise {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &NormalNoise{
		src: rand.NewPCG(seed, seed^0x9e3779b97f4a7c15),
	}
}

// Sample returns a value drawn from N(mean, spread).
func (n *NormalNoise) Sample(mean, spread float64) float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	d := distuv.Normal{
		Mu:    mean,
		Sigma: spread,
		Src:   n.src,
	}
	return d.Rand()
}

// FixedNoise always returns the mean. It is useful for deterministic output.
type FixedNoise struct{}

// Sample returns mean.
func (FixedNoise) Sample(mean, _ float64) float64 {
	return mean
}
