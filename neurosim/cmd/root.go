// Package cmd provides the command-line interface for neurosim.
package cmd

import (
	"log/slog"

	"github.com/sarchlab/neurosim/config"
	"github.com/sarchlab/neurosim/logging"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

var (
	cfg    = config.Default()
	logger = logging.Discard()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "neurosim",
	Short: "Neurosim creates, runs, and inspects spiking-unit simulations.",
	Long: `Neurosim creates, runs, and inspects spiking-unit simulations. ` +
		`A simulation lives in a directory holding a manifest.json file, ` +
		`so it can be stopped, saved, and continued later.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().String("config-dir", ".",
		"Directory holding neurosim.yaml and .env")
	rootCmd.PersistentFlags().String("log-level", "",
		"Log level: info, debug or trace")
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	dir, _ := cmd.Flags().GetString("config-dir")

	loaded, err := config.Load(dir)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("log-level") {
		loaded.LogLevel, _ = cmd.Flags().GetString("log-level")

		if err := loaded.Validate(); err != nil {
			return err
		}
	}

	cfg = loaded
	logger = logging.NewLogger(cfg.LogLevel, cmd.ErrOrStderr())
	slog.SetDefault(logger)

	return nil
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
