package cmd

import (
	"fmt"
	"time"

	"github.com/sarchlab/neurosim/logging"
	"github.com/sarchlab/neurosim/neuron"
	"github.com/sarchlab/neurosim/popsim"
	"github.com/spf13/cobra"
)

var unitCmd = &cobra.Command{
	Use:   "unit",
	Short: "Drive a single unit with random input and print every step.",
	Long: "`unit` steps one unit with random input and prints the output, " +
		"the state (excitation, charge, refractory, neurotransmitter), and " +
		"the input of every tick.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		params, err := paramsFromFlags(cmd)
		if err != nil {
			return err
		}

		flags := cmd.Flags()
		ticks, _ := flags.GetUint64("ticks")
		seed, _ := flags.GetUint64("seed")
		delay, _ := flags.GetDuration("delay")

		stimulus := popsim.Stimulus{}
		stimulus.MaxInput, _ = flags.GetFloat64("max-input")
		stimulus.Period, _ = flags.GetFloat64("period")
		stimulus.Offset, _ = flags.GetFloat64("offset")

		if err := stimulus.Validate(); err != nil {
			return err
		}

		n := neuron.NewNeuron(params)
		input := make([]float64, 1)
		out := cmd.OutOrStdout()

		for t := uint64(0); t < ticks; t++ {
			stimulus.Fill(input, seed, t)
			output := n.Step(input[0])

			fmt.Fprintf(out, "%d %s %.3f\n", output, n, input[0])
			logger.Log(cmd.Context(), logging.LevelTrace, "step",
				"tick", t, "output", output, "input", input[0])

			if delay > 0 {
				time.Sleep(delay)
			}
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(unitCmd)

	unitCmd.Flags().Uint64("ticks", 500, "Number of ticks to simulate")
	unitCmd.Flags().Uint64("seed", 1, "Seed of the input sequence")
	unitCmd.Flags().Float64("max-input", 8,
		"Upper bound of the random input")
	unitCmd.Flags().Float64("period", 0,
		"Period of the input envelope in ticks, 0 for a flat envelope")
	unitCmd.Flags().Float64("offset", 0, "Offset of the input envelope")
	unitCmd.Flags().Duration("delay", 60*time.Millisecond,
		"Delay between ticks")
	unitCmd.Flags().String("mode", string(neuron.DecayMultiplicative),
		"Excitation decay mode: multiplicative or subtractive")
	unitCmd.Flags().String("params", "", "YAML file with neuron parameters")
}
