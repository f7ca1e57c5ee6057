package sim

import "math/rand"

// Draw bounds for generated specs, matching the interactive generator's
// historical ranges.
const (
	genBurstMin    = 2
	genBurstMax    = 15
	genPriorityMin = 1
	genPriorityMax = 10
	genArrivalSkew = 5 // max ticks a generated arrival lands past the base tick
)

// SpecGenerator produces random process specs for the injector's batch mode.
// Two generators with the same seed produce identical sequences.
//
// Thread-safety: NOT thread-safe. Must be called from a single goroutine.
type SpecGenerator struct {
	rng *rand.Rand
}

// NewSpecGenerator creates a generator from a seed value.
func NewSpecGenerator(seed int64) *SpecGenerator {
	return &SpecGenerator{rng: rand.New(rand.NewSource(seed))}
}

// Next draws a spec arriving at or shortly after baseTick, so the engine
// never rejects it as a late arrival.
func (g *SpecGenerator) Next(baseTick int) ProcessSpec {
	return ProcessSpec{
		ArrivalTick: baseTick + g.rng.Intn(genArrivalSkew+1),
		BurstTotal:  genBurstMin + g.rng.Intn(genBurstMax-genBurstMin+1),
		Priority:    genPriorityMin + g.rng.Intn(genPriorityMax-genPriorityMin+1),
	}
}
