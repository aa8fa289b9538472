package cmd

import (
	"fmt"

	"github.com/sarchlab/neurosim/neuron"
	"github.com/sarchlab/neurosim/popsim"
	"github.com/sarchlab/neurosim/simulation"
	"github.com/spf13/cobra"
)

var createCmd = &cobra.Command{
	Use:   "create <path>",
	Short: "Create a new simulation directory.",
	Long: "`create <path>` creates the simulation root, writes its manifest, " +
		"and lays out the Genomes and Networks directories.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := settingsFromFlags(cmd)
		if err != nil {
			return err
		}

		path := args[0]

		err = simulation.CreateNewSim(path, popsim.ConfigureWith(settings))
		if err != nil {
			return fmt.Errorf("creating simulation: %w", err)
		}

		logger.Info("simulation created", "path", path,
			"units", settings.NumUnits)
		fmt.Fprintf(cmd.OutOrStdout(),
			"Simulation '%s' created with %d units.\n",
			path, settings.NumUnits)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(createCmd)

	defaults := popsim.DefaultSettings()
	createCmd.Flags().Int("units", defaults.NumUnits, "Number of units")
	createCmd.Flags().Uint64("seed", defaults.Seed, "Seed of the input sequence")
	createCmd.Flags().Float64("max-input", defaults.Stimulus.MaxInput,
		"Upper bound of the random input of a unit")
	createCmd.Flags().Float64("period", 0,
		"Period of the input envelope in ticks, 0 for a flat envelope")
	createCmd.Flags().Float64("offset", 0, "Offset of the input envelope")
	createCmd.Flags().Int("tick-delay", defaults.TickDelayMS,
		"Delay at the start of every tick in milliseconds")
	createCmd.Flags().String("mode", string(neuron.DecayMultiplicative),
		"Excitation decay mode: multiplicative or subtractive")
	createCmd.Flags().String("params", "", "YAML file with neuron parameters")
}

func settingsFromFlags(cmd *cobra.Command) (popsim.Settings, error) {
	settings := popsim.DefaultSettings()
	flags := cmd.Flags()

	settings.NumUnits, _ = flags.GetInt("units")
	settings.Seed, _ = flags.GetUint64("seed")
	settings.Stimulus.MaxInput, _ = flags.GetFloat64("max-input")
	settings.Stimulus.Period, _ = flags.GetFloat64("period")
	settings.Stimulus.Offset, _ = flags.GetFloat64("offset")
	settings.TickDelayMS, _ = flags.GetInt("tick-delay")

	params, err := paramsFromFlags(cmd)
	if err != nil {
		return settings, err
	}

	settings.Params = params

	return settings, nil
}

// paramsFromFlags reads --params when set and the --mode preset otherwise.
func paramsFromFlags(cmd *cobra.Command) (*neuron.Params, error) {
	if file, _ := cmd.Flags().GetString("params"); file != "" {
		return neuron.LoadParamsFile(file)
	}

	mode, _ := cmd.Flags().GetString("mode")

	return neuron.ParamsForMode(neuron.DecayMode(mode))
}
