package neuron

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadParamsFile reads parameters from a YAML file. Fields missing from the
// file keep the values of the preset selected by the file's
// excitation_decay_mode (DefaultParams when absent).
func LoadParamsFile(path string) (*Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading params file: %w", err)
	}

	return ParseParams(data)
}

// ParseParams decodes YAML parameters. See LoadParamsFile.
func ParseParams(data []byte) (*Params, error) {
	var header struct {
		Mode DecayMode `yaml:"excitation_decay_mode"`
	}
	if err := yaml.Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("parsing params: %w", err)
	}

	params, err := ParamsForMode(header.Mode)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, params); err != nil {
		return nil, fmt.Errorf("parsing params: %w", err)
	}

	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	return params, nil
}

// WriteParamsFile stores parameters as YAML.
func WriteParamsFile(path string, params *Params) error {
	data, err := yaml.Marshal(params)
	if err != nil {
		return fmt.Errorf("encoding params: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing params file: %w", err)
	}

	return nil
}
