// Package tracing provides simulation hooks that observe unit states after
// every tick.
package tracing

import (
	"github.com/sarchlab/neurosim/datarecording"
	"github.com/sarchlab/neurosim/neuron"
	"github.com/sarchlab/neurosim/simulation"
)

// A StateSource exposes the units of a running simulation. Both methods must
// be safe to call from the simulation goroutine.
type StateSource interface {
	CurrentTick() uint64
	States() []neuron.State
}

// UnitRecord is one row of a unit trace.
type UnitRecord struct {
	Tick             uint64
	Unit             int
	Excitation       float64
	Charge           float64
	Refractory       float64
	Neurotransmitter float64
	Output           int
}

// DefaultTableName is the table UnitTracer writes to.
const DefaultTableName = "unit_trace"

// UnitTracer records the state of every unit into a DataRecorder after each
// tick.
type UnitTracer struct {
	source    StateSource
	recorder  datarecording.DataRecorder
	tableName string
	interval  uint64

	startTick, endTick uint64
}

// NewUnitTracer creates a tracer and its table.
func NewUnitTracer(
	source StateSource,
	recorder datarecording.DataRecorder,
) *UnitTracer {
	return NewUnitTracerWithTable(source, recorder, DefaultTableName)
}

// NewUnitTracerWithTable creates a tracer that writes to the named table.
func NewUnitTracerWithTable(
	source StateSource,
	recorder datarecording.DataRecorder,
	tableName string,
) *UnitTracer {
	t := &UnitTracer{
		source:    source,
		recorder:  recorder,
		tableName: tableName,
		interval:  1,
	}

	recorder.CreateTable(tableName, UnitRecord{})

	return t
}

// SetInterval records only ticks that are a multiple of n.
func (t *UnitTracer) SetInterval(n uint64) {
	if n == 0 {
		panic("interval must be positive")
	}

	t.interval = n
}

// SetTickRange limits recording to ticks in [startTick, endTick]. An endTick
// of 0 means no upper bound.
func (t *UnitTracer) SetTickRange(startTick, endTick uint64) {
	t.startTick = startTick
	t.endTick = endTick
}

// Func records unit states after a tick and flushes when the simulation
// stops.
func (t *UnitTracer) Func(ctx simulation.HookCtx) {
	switch ctx.Pos {
	case simulation.HookPosAfterTick:
		t.record()
	case simulation.HookPosStop:
		t.recorder.Flush()
	}
}

func (t *UnitTracer) record() {
	tick := t.source.CurrentTick()

	if tick%t.interval != 0 {
		return
	}

	if tick < t.startTick || (t.endTick > 0 && tick > t.endTick) {
		return
	}

	for i, s := range t.source.States() {
		output := 0
		if s.Charge > 0 {
			output = 1
		}

		t.recorder.InsertData(t.tableName, UnitRecord{
			Tick:             tick,
			Unit:             i,
			Excitation:       s.Excitation,
			Charge:           s.Charge,
			Refractory:       s.Refractory,
			Neurotransmitter: s.Neurotransmitter,
			Output:           output,
		})
	}
}
