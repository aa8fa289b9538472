package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sarchlab/neurosim/datarecording"
	"github.com/sarchlab/neurosim/monitoring"
	"github.com/sarchlab/neurosim/popsim"
	"github.com/sarchlab/neurosim/simulation"
	"github.com/sarchlab/neurosim/tracing"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <path>",
	Short: "Load a simulation, run it, and save it when done.",
	Long: "`run <path>` continues the simulation stored at path until the " +
		"tick limit or the duration is reached, or until interrupted. The " +
		"simulation is then stopped and saved.",
	Args: cobra.ExactArgs(1),
	RunE: runSimulation,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Uint64("ticks", 0, "Stop after this many ticks, 0 for no limit")
	runCmd.Flags().Duration("duration", 0, "Stop after this long, 0 for no limit")
	runCmd.Flags().Bool("monitor", false, "Serve the monitoring API")
	runCmd.Flags().Int("port", 0, "Port of the monitoring API")
	runCmd.Flags().Bool("open-browser", false, "Open the monitoring API in a browser")
	runCmd.Flags().String("record", "", "Record unit traces into <name>.sqlite3")
}

// tickLimit signals once the simulation has completed n ticks.
type tickLimit struct {
	n    uint64
	once sync.Once
	done chan struct{}
}

func (l *tickLimit) Func(ctx simulation.HookCtx) {
	if ctx.Pos != simulation.HookPosAfterTick {
		return
	}

	if ctx.Item.(uint64) >= l.n {
		l.once.Do(func() { close(l.done) })
	}
}

type runOptions struct {
	ticks       uint64
	duration    time.Duration
	monitor     bool
	port        int
	openBrowser bool
	record      string
}

func runOptionsFromFlags(cmd *cobra.Command) (runOptions, error) {
	flags := cmd.Flags()
	opts := runOptions{
		port:        cfg.MonitorPort,
		openBrowser: cfg.OpenBrowser,
		record:      cfg.Record,
	}

	opts.ticks, _ = flags.GetUint64("ticks")
	opts.duration, _ = flags.GetDuration("duration")
	opts.monitor, _ = flags.GetBool("monitor")

	if flags.Changed("port") {
		opts.port, _ = flags.GetInt("port")

		if opts.port != 0 && (opts.port < 1000 || opts.port > 65535) {
			return opts, fmt.Errorf(
				"invalid port %d (valid: 0 for random, or 1000-65535)",
				opts.port)
		}
	}

	if flags.Changed("open-browser") {
		opts.openBrowser, _ = flags.GetBool("open-browser")
	}

	if flags.Changed("record") {
		opts.record, _ = flags.GetString("record")
	}

	return opts, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	opts, err := runOptionsFromFlags(cmd)
	if err != nil {
		return err
	}

	path := args[0]

	s, err := simulation.MakeBuilder().
		WithPollInterval(cfg.PollInterval).
		WithLogger(logger).
		Load(path, popsim.Factory(logger))
	if err != nil {
		return err
	}

	if s == nil {
		return fmt.Errorf("no simulation found at %s", path)
	}

	pop := s.Ticker().(*popsim.PopSim)

	spikes := tracing.NewSpikeCountTracer(pop)
	s.AcceptHook(spikes)
	s.AcceptHook(tracing.NewLogTracer(pop, logger))

	var recorder datarecording.DataRecorder
	if opts.record != "" {
		recorder = datarecording.New(opts.record)
		s.AcceptHook(tracing.NewUnitTracer(pop, recorder))
	}

	limit := &tickLimit{n: opts.ticks, done: make(chan struct{})}
	if opts.ticks > 0 {
		s.AcceptHook(limit)
	}

	if opts.openBrowser && !opts.monitor {
		logger.Warn("--open-browser has no effect without --monitor")
	}

	if opts.monitor {
		m, err := startMonitor(s, pop, spikes, opts)
		if err != nil {
			return err
		}

		defer m.Shutdown(context.Background())
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if opts.duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, opts.duration)
		defer cancel()
	}

	stopped := newStopSignal()
	s.AcceptHook(stopped)

	s.Start()
	waitForEnd(ctx, s, limit.done, stopped.done)
	s.Stop()

	if recorder != nil {
		if err := recorder.Close(); err != nil {
			return fmt.Errorf("closing recording: %w", err)
		}
	}

	if err := s.Save(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(),
		"Ran %d ticks, now at tick %d, %d spikes (%.4f per unit per tick).\n",
		s.Ticks(), pop.CurrentTick(), spikes.Total(), spikes.Rate())

	return nil
}

func startMonitor(
	s *simulation.Simulation,
	pop *popsim.PopSim,
	spikes *tracing.SpikeCountTracer,
	opts runOptions,
) (*monitoring.Monitor, error) {
	m := monitoring.NewMonitor().
		WithLogger(logger).
		WithPortNumber(opts.port)
	m.RegisterSimulation(s)
	m.RegisterPopulation(pop)
	m.RegisterSpikeCounter(spikes)

	if opts.ticks > 0 {
		s.AcceptHook(m.CreateProgressBar("Ticks", opts.ticks))
	}

	url, err := m.StartServer()
	if err != nil {
		return nil, err
	}

	if opts.openBrowser {
		if err := monitoring.OpenBrowser(url); err != nil {
			logger.Warn("cannot open browser", "url", url, "error", err)
		}
	}

	return m, nil
}

// stopSignal signals once the simulation goroutine exits, whoever asked it
// to stop.
type stopSignal struct {
	once sync.Once
	done chan struct{}
}

func newStopSignal() *stopSignal {
	return &stopSignal{done: make(chan struct{})}
}

func (s *stopSignal) Func(ctx simulation.HookCtx) {
	if ctx.Pos != simulation.HookPosStop {
		return
	}

	s.once.Do(func() { close(s.done) })
}

// waitForEnd blocks until ctx ends, the tick limit is reached, or the
// simulation goroutine exits, such as after a stop from the monitor.
func waitForEnd(
	ctx context.Context,
	s *simulation.Simulation,
	limitReached <-chan struct{},
	stopped <-chan struct{},
) {
	select {
	case <-ctx.Done():
		logger.Info("stopping", "reason", context.Cause(ctx))
	case <-limitReached:
		logger.Info("tick limit reached", "ticks", s.Ticks())
	case <-stopped:
		logger.Info("simulation stopped", "ticks", s.Ticks())
	}
}
