package tracing

import (
	"context"
	"log/slog"

	"github.com/sarchlab/neurosim/logging"
	"github.com/sarchlab/neurosim/simulation"
)

// LogTracer writes the state of every unit to a logger at the trace level
// after each tick.
type LogTracer struct {
	source StateSource
	logger *slog.Logger
}

// NewLogTracer creates a new LogTracer.
func NewLogTracer(source StateSource, logger *slog.Logger) *LogTracer {
	return &LogTracer{source: source, logger: logger}
}

// Func logs unit states after a tick.
func (t *LogTracer) Func(ctx simulation.HookCtx) {
	if ctx.Pos != simulation.HookPosAfterTick {
		return
	}

	bg := context.Background()
	if !t.logger.Enabled(bg, logging.LevelTrace) {
		return
	}

	tick := t.source.CurrentTick()
	for i, s := range t.source.States() {
		t.logger.Log(bg, logging.LevelTrace, "unit",
			"tick", tick,
			"unit", i,
			"excitation", s.Excitation,
			"charge", s.Charge,
			"refractory", s.Refractory,
			"neurotransmitter", s.Neurotransmitter)
	}
}
