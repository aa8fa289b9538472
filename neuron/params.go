// Package neuron implements a discrete-time spiking unit with an optional
// neurotransmitter budget.
package neuron

import (
	"errors"
	"fmt"
)

// DecayMode selects how excitation decays at the beginning of each step.
type DecayMode string

const (
	// DecayMultiplicative scales excitation by ExcitationDecay every step.
	DecayMultiplicative DecayMode = "multiplicative"

	// DecaySubtractive subtracts ExcitationDecay from excitation every step.
	// Excitation is not clamped, so a silent unit drifts below zero.
	DecaySubtractive DecayMode = "subtractive"
)

// Params is the immutable parameter set shared by many neurons. Call Validate
// before handing it to NewNeuron and do not modify it afterwards.
type Params struct {
	// SpikeThreshold is the value excitation must exceed for a spike.
	SpikeThreshold float64 `json:"spike_threshold" yaml:"spike_threshold"`

	// SpikeCharge is the charge a spike starts with.
	SpikeCharge float64 `json:"spike_charge" yaml:"spike_charge"`

	// SpikeCostCoeff is the neurotransmitter consumed per step while firing.
	SpikeCostCoeff float64 `json:"spike_cost_coeff" yaml:"spike_cost_coeff"`

	// RefractoryPeriod is the refractory level set when a spike starts.
	RefractoryPeriod float64 `json:"refractory_period" yaml:"refractory_period"`

	// Capacity is the baseline (and maximum) neurotransmitter level.
	Capacity float64 `json:"capacity" yaml:"capacity"`

	// ReuptakeCoeff controls how fast neurotransmitters return to Capacity.
	// Range: [0, 1].
	ReuptakeCoeff float64 `json:"reuptake_coeff" yaml:"reuptake_coeff"`

	// NeurotransmitterThreshold is the level required to start a spike.
	NeurotransmitterThreshold float64 `json:"neurotransmitter_threshold" yaml:"neurotransmitter_threshold"`

	ExcitationDecayMode DecayMode `json:"excitation_decay_mode" yaml:"excitation_decay_mode"`

	// ExcitationDecay is a factor in [0, 1] for DecayMultiplicative and an
	// amount per step for DecaySubtractive.
	ExcitationDecay float64 `json:"excitation_decay" yaml:"excitation_decay"`

	RefractoryDecay float64 `json:"refractory_decay" yaml:"refractory_decay"`
	ChargeDecay     float64 `json:"charge_decay" yaml:"charge_decay"`

	// NeurotransmitterDynamics enables spike cost, reuptake and the
	// neurotransmitter gate on spiking.
	NeurotransmitterDynamics bool `json:"neurotransmitter_dynamics" yaml:"neurotransmitter_dynamics"`
}

// DefaultParams returns the parameters of the multiplicative-decay unit.
func DefaultParams() *Params {
	return &Params{
		SpikeThreshold:            100,
		SpikeCharge:               3,
		SpikeCostCoeff:            5,
		RefractoryPeriod:          7,
		Capacity:                  100,
		ReuptakeCoeff:             0.1,
		NeurotransmitterThreshold: 30,
		ExcitationDecayMode:       DecayMultiplicative,
		ExcitationDecay:           0.99,
		RefractoryDecay:           1,
		ChargeDecay:               1,
		NeurotransmitterDynamics:  true,
	}
}

// SubtractiveParams returns the parameters of the slower subtractive-decay
// unit, tuned for roughly one step per millisecond.
func SubtractiveParams() *Params {
	return &Params{
		SpikeThreshold:            20,
		SpikeCharge:               1,
		SpikeCostCoeff:            1.5,
		RefractoryPeriod:          5,
		Capacity:                  10,
		ReuptakeCoeff:             0.006,
		NeurotransmitterThreshold: 4,
		ExcitationDecayMode:       DecaySubtractive,
		ExcitationDecay:           0.2,
		RefractoryDecay:           0.5,
		ChargeDecay:               1,
		NeurotransmitterDynamics:  true,
	}
}

// ParamsForMode returns the preset associated with a decay mode.
func ParamsForMode(mode DecayMode) (*Params, error) {
	switch mode {
	case DecayMultiplicative, "":
		return DefaultParams(), nil
	case DecaySubtractive:
		return SubtractiveParams(), nil
	default:
		return nil, fmt.Errorf("unknown excitation decay mode %q", mode)
	}
}

// Clone returns a copy that can be modified independently.
func (p *Params) Clone() *Params {
	c := *p
	return &c
}

// Validate checks that the parameters keep every neuron state within its
// invariant ranges.
func (p *Params) Validate() error {
	var errs []error

	nonNegative := []struct {
		name  string
		value float64
	}{
		{"spike_threshold", p.SpikeThreshold},
		{"spike_charge", p.SpikeCharge},
		{"spike_cost_coeff", p.SpikeCostCoeff},
		{"refractory_period", p.RefractoryPeriod},
		{"neurotransmitter_threshold", p.NeurotransmitterThreshold},
		{"excitation_decay", p.ExcitationDecay},
		{"refractory_decay", p.RefractoryDecay},
		{"charge_decay", p.ChargeDecay},
	}
	for _, f := range nonNegative {
		if f.value < 0 {
			errs = append(errs, fmt.Errorf("%s must be non-negative, got %g",
				f.name, f.value))
		}
	}

	if p.Capacity <= 0 {
		errs = append(errs, fmt.Errorf("capacity must be positive, got %g", p.Capacity))
	}

	if p.ReuptakeCoeff < 0 || p.ReuptakeCoeff > 1 {
		errs = append(errs, fmt.Errorf("reuptake_coeff must be within [0, 1], got %g",
			p.ReuptakeCoeff))
	}

	switch p.ExcitationDecayMode {
	case DecayMultiplicative:
		if p.ExcitationDecay > 1 {
			errs = append(errs, fmt.Errorf(
				"multiplicative excitation_decay must be within [0, 1], got %g",
				p.ExcitationDecay))
		}
	case DecaySubtractive:
	default:
		errs = append(errs, fmt.Errorf("unknown excitation_decay_mode %q",
			p.ExcitationDecayMode))
	}

	return errors.Join(errs...)
}
