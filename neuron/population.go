package neuron

import "fmt"

// A Population is a group of independent neurons that share one parameter
// set. Neurons in a population are never connected to each other.
type Population struct {
	params  *Params
	neurons []*Neuron
	outputs []int
}

// NewPopulation creates size resting neurons.
func NewPopulation(params *Params, size int) *Population {
	if size < 0 {
		panic("population size must not be negative")
	}

	p := &Population{
		params:  params,
		neurons: make([]*Neuron, size),
		outputs: make([]int, size),
	}

	for i := range p.neurons {
		p.neurons[i] = NewNeuron(params)
	}

	return p
}

// Params returns the shared parameters.
func (p *Population) Params() *Params {
	return p.params
}

// Len returns the number of neurons.
func (p *Population) Len() int {
	return len(p.neurons)
}

// Unit returns the i-th neuron.
func (p *Population) Unit(i int) *Neuron {
	return p.neurons[i]
}

// Step advances every neuron with its own weighted input sum. The returned
// slice is owned by the population and is overwritten by the next Step.
func (p *Population) Step(inputs []float64) []int {
	if len(inputs) != len(p.neurons) {
		panic(fmt.Sprintf("got %d inputs for %d neurons",
			len(inputs), len(p.neurons)))
	}

	for i, n := range p.neurons {
		p.outputs[i] = n.Step(inputs[i])
	}

	return p.outputs
}

// Outputs returns a copy of the outputs of the last step.
func (p *Population) Outputs() []int {
	out := make([]int, len(p.neurons))
	for i, n := range p.neurons {
		out[i] = n.Output()
	}

	return out
}

// SpikeCount returns how many neurons currently output 1.
func (p *Population) SpikeCount() int {
	count := 0
	for _, n := range p.neurons {
		count += n.Output()
	}

	return count
}

// States returns a snapshot of all neuron states.
func (p *Population) States() []State {
	states := make([]State, len(p.neurons))
	for i, n := range p.neurons {
		states[i] = n.State()
	}

	return states
}

// SetStates restores neuron states from a snapshot.
func (p *Population) SetStates(states []State) error {
	if len(states) != len(p.neurons) {
		return fmt.Errorf("got %d states for %d neurons",
			len(states), len(p.neurons))
	}

	for i, s := range states {
		p.neurons[i].SetState(s)
	}

	return nil
}
