// Package popsim is a simulation payload that drives a population of
// independent neurons with seeded random input.
package popsim

import (
	"encoding/json"
	"fmt"

	"github.com/sarchlab/neurosim/neuron"
	"github.com/sarchlab/neurosim/simulation"
)

// Settings is the manifest schema of a population simulation.
type Settings struct {
	// Tick is the number of ticks simulated so far.
	Tick     uint64 `json:"tick"`
	NumUnits int    `json:"num_units"`

	// Seed and Tick together determine the input of every unit, so a
	// reloaded simulation continues with the same input sequence.
	Seed uint64 `json:"seed"`

	Stimulus Stimulus `json:"stimulus"`

	// TickDelayMS is the pause at the start of every tick.
	TickDelayMS int `json:"tick_delay_ms"`

	Params *neuron.Params  `json:"params"`
	States []neuron.State `json:"states,omitempty"`

	GenomesDir  string   `json:"genomes_dir"`
	NetworksDir string   `json:"networks_dir"`
	Genomes     []string `json:"genomes"`
	Networks    []string `json:"networks"`
}

// DefaultSettings returns the settings of a new population simulation.
func DefaultSettings() Settings {
	return Settings{
		NumUnits:    16,
		Seed:        1,
		Stimulus:    Stimulus{MaxInput: 8},
		TickDelayMS: 60,
		Params:      neuron.DefaultParams(),
		GenomesDir:  "Genomes",
		NetworksDir: "Networks",
		Genomes:     []string{},
		Networks:    []string{},
	}
}

// MaxExactInteger is the largest seed or tick that survives the manifest,
// whose numbers are decoded as float64.
const MaxExactInteger = 1 << 53

// Validate checks the settings.
func (s Settings) Validate() error {
	if s.Seed > MaxExactInteger {
		return fmt.Errorf("seed must be at most %d, got %d",
			uint64(MaxExactInteger), s.Seed)
	}

	if s.Tick > MaxExactInteger {
		return fmt.Errorf("tick must be at most %d, got %d",
			uint64(MaxExactInteger), s.Tick)
	}

	if s.NumUnits <= 0 {
		return fmt.Errorf("num_units must be positive, got %d", s.NumUnits)
	}

	if s.TickDelayMS < 0 {
		return fmt.Errorf("tick_delay_ms must be non-negative, got %d",
			s.TickDelayMS)
	}

	if s.Params == nil {
		return fmt.Errorf("params must be set")
	}

	if err := s.Params.Validate(); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}

	if s.States != nil && len(s.States) != s.NumUnits {
		return fmt.Errorf("got %d states for %d units",
			len(s.States), s.NumUnits)
	}

	return s.Stimulus.Validate()
}

// ToManifest converts the settings into a manifest.
func (s Settings) ToManifest() (simulation.Manifest, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encoding settings: %w", err)
	}

	m := simulation.Manifest{}

	err = json.Unmarshal(data, &m)
	if err != nil {
		return nil, fmt.Errorf("encoding settings: %w", err)
	}

	return m, nil
}

// SettingsFromManifest decodes a manifest. Missing fields keep their
// defaults.
func SettingsFromManifest(m simulation.Manifest) (Settings, error) {
	s := DefaultSettings()

	data, err := json.Marshal(m)
	if err != nil {
		return s, fmt.Errorf("decoding manifest: %w", err)
	}

	err = json.Unmarshal(data, &s)
	if err != nil {
		return s, fmt.Errorf("decoding manifest: %w", err)
	}

	err = s.Validate()
	if err != nil {
		return s, fmt.Errorf("invalid manifest: %w", err)
	}

	return s, nil
}
