package popsim

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// Stimulus describes the random input fed to every unit. Each unit receives
// MaxInput*U[0,1). With a positive Period the input is further scaled by
// clamp(sin(2*pi*tick/Period)+Offset, 0, 1), producing bursts of activity.
type Stimulus struct {
	MaxInput float64 `json:"max_input"`
	Period   float64 `json:"period,omitempty"`
	Offset   float64 `json:"offset,omitempty"`
}

// Validate checks the stimulus.
func (s Stimulus) Validate() error {
	if s.Period < 0 {
		return fmt.Errorf("stimulus period must be non-negative, got %g", s.Period)
	}

	return nil
}

// Envelope returns the modulation factor at the given tick.
func (s Stimulus) Envelope(tick uint64) float64 {
	if s.Period <= 0 {
		return 1
	}

	v := math.Sin(float64(tick)*math.Pi*2/s.Period) + s.Offset

	return math.Min(math.Max(v, 0), 1)
}

// Fill writes the inputs of one tick. The values only depend on seed, tick
// and the stimulus.
func (s Stimulus) Fill(inputs []float64, seed, tick uint64) {
	rng := rand.New(rand.NewPCG(seed, tick))
	envelope := s.Envelope(tick)

	for i := range inputs {
		inputs[i] = s.MaxInput * rng.Float64() * envelope
	}
}
