package tracing

import (
	"sync"

	"github.com/sarchlab/neurosim/simulation"
)

// SpikeCountTracer counts spike onsets per unit. A spike onset is a tick at
// which a unit's charge rises, either from zero or by a new spike replacing a
// decaying one. Counts can be read from any goroutine.
type SpikeCountTracer struct {
	source StateSource

	lock       sync.Mutex
	lastCharge []float64
	perUnit    []uint64
	total      uint64
	ticks      uint64
}

// NewSpikeCountTracer creates a new SpikeCountTracer.
func NewSpikeCountTracer(source StateSource) *SpikeCountTracer {
	return &SpikeCountTracer{source: source}
}

// Func counts spikes after every tick.
func (t *SpikeCountTracer) Func(ctx simulation.HookCtx) {
	if ctx.Pos != simulation.HookPosAfterTick {
		return
	}

	states := t.source.States()

	t.lock.Lock()
	defer t.lock.Unlock()

	if t.perUnit == nil {
		t.perUnit = make([]uint64, len(states))
		t.lastCharge = make([]float64, len(states))
	}

	for i, s := range states {
		if s.Charge > t.lastCharge[i] {
			t.perUnit[i]++
			t.total++
		}

		t.lastCharge[i] = s.Charge
	}

	t.ticks++
}

// Total returns the number of spikes counted over all units.
func (t *SpikeCountTracer) Total() uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.total
}

// Ticks returns the number of ticks observed.
func (t *SpikeCountTracer) Ticks() uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.ticks
}

// PerUnit returns the number of spikes of every unit.
func (t *SpikeCountTracer) PerUnit() []uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	counts := make([]uint64, len(t.perUnit))
	copy(counts, t.perUnit)

	return counts
}

// Rate returns the average number of spikes per unit per tick.
func (t *SpikeCountTracer) Rate() float64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.ticks == 0 || len(t.perUnit) == 0 {
		return 0
	}

	return float64(t.total) / float64(t.ticks) / float64(len(t.perUnit))
}
