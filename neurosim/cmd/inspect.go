package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/sarchlab/neurosim/datarecording"
	"github.com/sarchlab/neurosim/popsim"
	"github.com/sarchlab/neurosim/simulation"
	"github.com/sarchlab/neurosim/tracing"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <path>",
	Short: "Print the saved state of a simulation.",
	Long: "`inspect <path>` prints the saved state of every unit. With " +
		"`--record <name>`, it also summarizes the unit trace stored in " +
		"<name>.sqlite3.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := simulation.LoadSim(args[0], popsim.Factory(logger))
		if err != nil {
			return err
		}

		if s == nil {
			return fmt.Errorf("no simulation found at %s", args[0])
		}

		out := cmd.OutOrStdout()
		printSummary(out, s.Ticker().(*popsim.PopSim))

		record, _ := cmd.Flags().GetString("record")
		if record == "" {
			return nil
		}

		return printTraceSummary(cmd, out, record)
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().String("record", "",
		"Summarize the unit trace recorded into <name>.sqlite3")
}

func printSummary(w io.Writer, p *popsim.PopSim) {
	settings := p.Settings()

	fmt.Fprintf(w, "Path:      %s\n", p.Path())
	fmt.Fprintf(w, "Tick:      %d\n", settings.Tick)
	fmt.Fprintf(w, "Units:     %d\n", settings.NumUnits)
	fmt.Fprintf(w, "Seed:      %d\n", settings.Seed)
	fmt.Fprintf(w, "Max input: %g\n", settings.Stimulus.MaxInput)
	fmt.Fprintf(w, "Mode:      %s\n", settings.Params.ExcitationDecayMode)
	fmt.Fprintln(w, "Unit  Output  Excitation, Charge, Refractory, Neurotransmitter")

	for _, u := range p.Snapshot() {
		fmt.Fprintf(w, "%4d  %6d  %.3f, %.3f, %.3f, %.3f\n",
			u.Index, u.Output,
			u.State.Excitation, u.State.Charge,
			u.State.Refractory, u.State.Neurotransmitter)
	}
}

func printTraceSummary(cmd *cobra.Command, w io.Writer, record string) error {
	filename := record + ".sqlite3"

	if _, err := os.Stat(filename); err != nil {
		return fmt.Errorf("opening recording: %w", err)
	}

	reader, err := datarecording.NewReader(filename)
	if err != nil {
		return err
	}
	defer reader.Close()

	summaries, err := tracing.ReadUnitSummaries(cmd.Context(), reader,
		tracing.DefaultTableName)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Trace:     %s\n", filename)
	fmt.Fprintln(w, "Unit  Records  Ticks          Active  Spikes  Mean excitation  Min neurotransmitter")

	for _, u := range summaries {
		fmt.Fprintf(w, "%4d  %7d  %5d-%-7d  %6d  %6d  %15.3f  %20.3f\n",
			u.Unit, u.Records, u.FirstTick, u.LastTick,
			u.ActiveTicks, u.SpikeOnsets,
			u.MeanExcitation, u.MinNeurotransmitter)
	}

	return nil
}
