package tracing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/neurosim/neuron"
	"github.com/sarchlab/neurosim/simulation"
)

var _ = Describe("SpikeCountTracer", func() {
	var (
		source *fixedSource
		tracer *SpikeCountTracer
	)

	afterTick := func(charges ...float64) {
		source.states = make([]neuron.State, len(charges))
		for i, c := range charges {
			source.states[i].Charge = c
		}

		tracer.Func(simulation.HookCtx{Pos: simulation.HookPosAfterTick})
	}

	BeforeEach(func() {
		source = &fixedSource{}
		tracer = NewSpikeCountTracer(source)
	})

	It("should start empty", func() {
		Expect(tracer.Total()).To(BeZero())
		Expect(tracer.Ticks()).To(BeZero())
		Expect(tracer.PerUnit()).To(BeEmpty())
		Expect(tracer.Rate()).To(BeZero())
	})

	It("should count spike onsets", func() {
		afterTick(0, 30)
		afterTick(0, 29)
		afterTick(30, 28)
		afterTick(29, 30)

		Expect(tracer.Ticks()).To(Equal(uint64(4)))
		Expect(tracer.PerUnit()).To(Equal([]uint64{1, 2}))
		Expect(tracer.Total()).To(Equal(uint64(3)))
		Expect(tracer.Rate()).To(BeNumerically("~", 3.0/4/2))
	})

	It("should ignore other positions", func() {
		tracer.Func(simulation.HookCtx{Pos: simulation.HookPosStop})

		Expect(tracer.Ticks()).To(BeZero())
	})
})
