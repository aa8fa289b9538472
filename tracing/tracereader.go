package tracing

import (
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/sarchlab/neurosim/datarecording"
)

// UnitSummary aggregates the recorded trace of one unit.
type UnitSummary struct {
	Unit      int
	Records   int
	FirstTick uint64
	LastTick  uint64

	// ActiveTicks counts the records with an output of 1.
	ActiveTicks int

	// SpikeOnsets counts rises in charge, as SpikeCountTracer does.
	SpikeOnsets int

	MeanExcitation      float64
	MinNeurotransmitter float64
}

// ReadUnitSummaries summarizes every unit of a trace table written by a
// UnitTracer. Units are ordered by index.
func ReadUnitSummaries(
	ctx context.Context,
	reader datarecording.DataReader,
	tableName string,
) ([]UnitSummary, error) {
	stored, err := reader.StoredTables(ctx)
	if err != nil {
		return nil, err
	}

	if !slices.Contains(stored, tableName) {
		return nil, fmt.Errorf("no trace table %s in recording", tableName)
	}

	reader.MapTable(tableName, UnitRecord{})

	results, _, err := reader.Query(ctx, tableName, datarecording.QueryParams{
		OrderBy: "Unit, Tick",
	})
	if err != nil {
		return nil, fmt.Errorf("reading trace: %w", err)
	}

	var (
		summaries  []UnitSummary
		current    *UnitSummary
		lastCharge float64
	)

	for _, r := range results {
		rec := r.(*UnitRecord)

		if current == nil || current.Unit != rec.Unit {
			summaries = append(summaries, UnitSummary{
				Unit:                rec.Unit,
				FirstTick:           rec.Tick,
				MinNeurotransmitter: math.Inf(1),
			})
			current = &summaries[len(summaries)-1]
			lastCharge = 0
		}

		current.Records++
		current.LastTick = rec.Tick
		current.ActiveTicks += rec.Output
		current.MeanExcitation += rec.Excitation
		current.MinNeurotransmitter = math.Min(current.MinNeurotransmitter,
			rec.Neurotransmitter)

		if rec.Charge > lastCharge {
			current.SpikeOnsets++
		}

		lastCharge = rec.Charge
	}

	for i := range summaries {
		summaries[i].MeanExcitation /= float64(summaries[i].Records)
	}

	return summaries, nil
}
