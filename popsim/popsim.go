package popsim

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sarchlab/neurosim/neuron"
	"github.com/sarchlab/neurosim/simulation"
)

// UnitSnapshot is the state of one unit at a point in time.
type UnitSnapshot struct {
	Index  int          `json:"index"`
	Output int          `json:"output"`
	State  neuron.State `json:"state"`
}

// A PopSim steps a population of neurons once per tick. Tick runs on the
// simulation goroutine; the read accessors may be called from any goroutine.
type PopSim struct {
	lock sync.RWMutex

	path     string
	settings Settings
	pop      *neuron.Population
	inputs   []float64
	logger   *slog.Logger
}

// ConfigureNewSim writes the default manifest and directory layout into a
// new simulation root.
func ConfigureNewSim(path string) error {
	return ConfigureWith(DefaultSettings())(path)
}

// ConfigureWith returns a simulation.ConfigureFunc that writes the given
// settings.
func ConfigureWith(settings Settings) simulation.ConfigureFunc {
	return func(path string) error {
		err := settings.Validate()
		if err != nil {
			return err
		}

		m, err := settings.ToManifest()
		if err != nil {
			return err
		}

		err = simulation.WriteManifest(path, m)
		if err != nil {
			return err
		}

		for _, dir := range []string{settings.GenomesDir, settings.NetworksDir} {
			if dir == "" {
				continue
			}

			err = os.Mkdir(filepath.Join(path, dir), 0o755)
			if err != nil {
				return fmt.Errorf("creating %s directory: %w", dir, err)
			}
		}

		return nil
	}
}

// Factory returns a simulation.Factory that builds PopSims.
func Factory(logger *slog.Logger) simulation.Factory {
	return func(path string, m simulation.Manifest) (simulation.Ticker, error) {
		return New(path, m, logger)
	}
}

// New creates a PopSim from a manifest.
func New(
	path string,
	m simulation.Manifest,
	logger *slog.Logger,
) (*PopSim, error) {
	settings, err := SettingsFromManifest(m)
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	p := &PopSim{
		path:     path,
		settings: settings,
		pop:      neuron.NewPopulation(settings.Params, settings.NumUnits),
		inputs:   make([]float64, settings.NumUnits),
		logger:   logger,
	}

	if settings.States != nil {
		err = p.pop.SetStates(settings.States)
		if err != nil {
			return nil, err
		}
	}

	logger.Debug("population loaded",
		"path", path,
		"units", settings.NumUnits,
		"tick", settings.Tick)

	return p, nil
}

// Tick waits for the tick delay, then steps every unit with its input.
func (p *PopSim) Tick() {
	if p.settings.TickDelayMS > 0 {
		time.Sleep(time.Duration(p.settings.TickDelayMS) * time.Millisecond)
	}

	p.lock.Lock()

	p.settings.Stimulus.Fill(p.inputs, p.settings.Seed, p.settings.Tick)
	p.pop.Step(p.inputs)
	p.settings.Tick++

	tick := p.settings.Tick
	spikes := p.pop.SpikeCount()

	p.lock.Unlock()

	p.logger.Debug("tick", "tick", tick, "spiking", spikes)
}

// WriteManifest stores the current tick and unit states into m.
func (p *PopSim) WriteManifest(m simulation.Manifest) {
	p.lock.RLock()
	settings := p.settings
	settings.States = p.pop.States()
	p.lock.RUnlock()

	current, err := settings.ToManifest()
	if err != nil {
		panic(err)
	}

	for k, v := range current {
		m[k] = v
	}
}

// Path returns the simulation root.
func (p *PopSim) Path() string {
	return p.path
}

// Settings returns a copy of the current settings without unit states.
func (p *PopSim) Settings() Settings {
	p.lock.RLock()
	defer p.lock.RUnlock()

	s := p.settings
	s.States = nil

	return s
}

// CurrentTick returns the number of ticks simulated so far.
func (p *PopSim) CurrentTick() uint64 {
	p.lock.RLock()
	defer p.lock.RUnlock()

	return p.settings.Tick
}

// Len returns the number of units.
func (p *PopSim) Len() int {
	return p.pop.Len()
}

// States returns the internal state of every unit.
func (p *PopSim) States() []neuron.State {
	p.lock.RLock()
	defer p.lock.RUnlock()

	return p.pop.States()
}

// Snapshot returns the state of every unit.
func (p *PopSim) Snapshot() []UnitSnapshot {
	p.lock.RLock()
	defer p.lock.RUnlock()

	units := make([]UnitSnapshot, p.pop.Len())
	for i := range units {
		units[i] = p.snapshotUnit(i)
	}

	return units
}

// Unit returns the state of a single unit.
func (p *PopSim) Unit(i int) (UnitSnapshot, bool) {
	if i < 0 || i >= p.pop.Len() {
		return UnitSnapshot{}, false
	}

	p.lock.RLock()
	defer p.lock.RUnlock()

	return p.snapshotUnit(i), true
}

func (p *PopSim) snapshotUnit(i int) UnitSnapshot {
	n := p.pop.Unit(i)

	return UnitSnapshot{
		Index:  i,
		Output: n.Output(),
		State:  n.State(),
	}
}
