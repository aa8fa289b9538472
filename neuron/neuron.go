package neuron

import (
	"fmt"
	"math"
)

// State is the internal state of a neuron.
type State struct {
	Excitation       float64 `json:"excitation"`
	Charge           float64 `json:"charge"`
	Refractory       float64 `json:"refractory"`
	Neurotransmitter float64 `json:"neurotransmitter"`
}

// A Neuron integrates a weighted input sum every step and produces a binary
// output. It is not safe for concurrent use.
type Neuron struct {
	params *Params
	state  State
}

// NewNeuron creates a resting neuron with a full neurotransmitter budget.
func NewNeuron(params *Params) *Neuron {
	if params == nil {
		panic("neuron params must not be nil")
	}

	n := &Neuron{params: params}
	n.Reset()

	return n
}

// Params returns the parameters shared by the neuron.
func (n *Neuron) Params() *Params {
	return n.params
}

// Reset puts the neuron back into its resting state.
func (n *Neuron) Reset() {
	n.state = State{Neurotransmitter: n.params.Capacity}
}

// State returns a copy of the neuron's current state.
func (n *Neuron) State() State {
	return n.state
}

// SetState overwrites the neuron state, clamping every field into its valid
// range.
func (n *Neuron) SetState(s State) {
	s.Charge = math.Max(s.Charge, 0)
	s.Refractory = math.Max(s.Refractory, 0)
	s.Neurotransmitter = clamp(s.Neurotransmitter, 0, n.params.Capacity)

	n.state = s
}

// Output returns 1 while the neuron carries charge, 0 otherwise.
func (n *Neuron) Output() int {
	if n.state.Charge > 0 {
		return 1
	}

	return 0
}

// Step advances the neuron by one tick with the sum of its weighted inputs and
// returns the new output.
func (n *Neuron) Step(weightedInputSum float64) int {
	p := n.params
	s := &n.state

	s.Excitation = n.decayExcitation(s.Excitation) + weightedInputSum

	if s.Charge > 0 {
		if p.NeurotransmitterDynamics {
			cost := p.SpikeCostCoeff * float64(n.Output())
			s.Neurotransmitter = math.Max(s.Neurotransmitter-cost, 0)

			if s.Neurotransmitter == 0 {
				s.Charge = 0
			}
		}

		s.Charge = math.Max(s.Charge-p.ChargeDecay, 0)
	}

	if s.Refractory > 0 {
		s.Refractory = math.Max(s.Refractory-p.RefractoryDecay, 0)
	}

	if p.NeurotransmitterDynamics {
		s.Neurotransmitter += p.ReuptakeCoeff * (p.Capacity - s.Neurotransmitter)
		s.Neurotransmitter = math.Min(s.Neurotransmitter, p.Capacity)
	}

	if n.canSpike() {
		s.Charge = p.SpikeCharge
		s.Excitation = 0
		s.Refractory = p.RefractoryPeriod
	}

	return n.Output()
}

func (n *Neuron) decayExcitation(excitation float64) float64 {
	switch n.params.ExcitationDecayMode {
	case DecaySubtractive:
		return excitation - n.params.ExcitationDecay
	default:
		return excitation * n.params.ExcitationDecay
	}
}

func (n *Neuron) canSpike() bool {
	p := n.params
	s := n.state

	if !(s.Excitation > p.SpikeThreshold) {
		return false
	}

	if s.Refractory != 0 {
		return false
	}

	if p.NeurotransmitterDynamics &&
		s.Neurotransmitter < p.NeurotransmitterThreshold {
		return false
	}

	return true
}

// String formats the state as "excitation, charge, refractory, neurotransmitter".
func (n *Neuron) String() string {
	return fmt.Sprintf("%.3f, %.3f, %.3f, %.3f",
		n.state.Excitation,
		n.state.Charge,
		n.state.Refractory,
		n.state.Neurotransmitter)
}

func clamp(v, low, high float64) float64 {
	return math.Min(math.Max(v, low), high)
}
