package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/neurosim/popsim"
	"github.com/sarchlab/neurosim/simulation"
	"github.com/sarchlab/neurosim/tracing"
)

var _ = Describe("Monitor", func() {
	var (
		m      *Monitor
		s      *simulation.Simulation
		pop    *popsim.PopSim
		router http.Handler
	)

	do := func(method, target string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(method, target, nil))

		return rec
	}

	status := func() statusRsp {
		rec := do(http.MethodGet, "/api/status")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var rsp struct {
			ID    string `json:"id"`
			State string `json:"state"`
			Ticks uint64 `json:"ticks"`
		}
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())

		st := statusRsp{ID: rsp.ID, Ticks: rsp.Ticks}
		switch rsp.State {
		case "running":
			st.State = simulation.Running
		case "paused":
			st.State = simulation.Paused
		default:
			st.State = simulation.Stopped
		}

		return st
	}

	BeforeEach(func() {
		path := filepath.Join(GinkgoT().TempDir(), "pop")
		settings := popsim.DefaultSettings()
		settings.NumUnits = 3
		settings.TickDelayMS = 1

		Expect(simulation.CreateNewSim(path, popsim.ConfigureWith(settings))).
			To(Succeed())

		var err error
		s, err = simulation.MakeBuilder().
			WithPollInterval(5*time.Millisecond).
			Load(path, popsim.Factory(nil))
		Expect(err).ToNot(HaveOccurred())

		pop = s.Ticker().(*popsim.PopSim)

		m = NewMonitor()
		m.RegisterSimulation(s)
		m.RegisterPopulation(pop)
		router = m.Router()
	})

	AfterEach(func() {
		s.Stop()
	})

	It("should refuse a port number below 1000", func() {
		Expect(NewMonitor().WithPortNumber(80).portNumber).To(BeZero())
		Expect(NewMonitor().WithPortNumber(8080).portNumber).To(Equal(8080))
	})

	It("should report 503 without a simulation", func() {
		router = NewMonitor().Router()

		Expect(do(http.MethodGet, "/api/status").Code).
			To(Equal(http.StatusServiceUnavailable))
		Expect(do(http.MethodGet, "/api/units").Code).
			To(Equal(http.StatusServiceUnavailable))
	})

	It("should report the status", func() {
		st := status()

		Expect(st.ID).To(Equal(s.ID()))
		Expect(st.State).To(Equal(simulation.Stopped))
		Expect(st.Ticks).To(BeZero())
	})

	It("should only accept POST for control routes", func() {
		Expect(do(http.MethodGet, "/api/start").Code).
			To(Equal(http.StatusMethodNotAllowed))
	})

	It("should control the simulation", func() {
		Expect(do(http.MethodPost, "/api/start").Code).To(Equal(http.StatusOK))
		Expect(s.HasStarted()).To(BeTrue())
		Expect(do(http.MethodPost, "/api/start").Code).
			To(Equal(http.StatusConflict))

		Eventually(s.Ticks).Should(BeNumerically(">", 2))

		Expect(do(http.MethodPost, "/api/save").Code).
			To(Equal(http.StatusConflict))

		Expect(do(http.MethodPost, "/api/pause").Code).To(Equal(http.StatusOK))
		Expect(status().State).To(Equal(simulation.Paused))

		Expect(do(http.MethodPost, "/api/save").Code).To(Equal(http.StatusOK))

		Expect(do(http.MethodPost, "/api/continue").Code).To(Equal(http.StatusOK))
		Expect(status().State).To(Equal(simulation.Running))

		Expect(do(http.MethodPost, "/api/stop").Code).To(Equal(http.StatusOK))
		Expect(status().State).To(Equal(simulation.Stopped))
		Expect(s.HasStarted()).To(BeFalse())
	})

	It("should serve concurrent saves while paused", func() {
		Expect(do(http.MethodPost, "/api/start").Code).To(Equal(http.StatusOK))
		Expect(do(http.MethodPost, "/api/pause").Code).To(Equal(http.StatusOK))

		var wg sync.WaitGroup
		codes := make(chan int, 8*5)

		for i := 0; i < 8; i++ {
			wg.Add(1)

			go func() {
				defer wg.Done()

				for j := 0; j < 5; j++ {
					codes <- do(http.MethodPost, "/api/save").Code
				}
			}()
		}

		wg.Wait()
		close(codes)

		for code := range codes {
			Expect(code).To(Equal(http.StatusOK))
		}

		Expect(simulation.ManifestPath(s.Path())).To(BeAnExistingFile())
	})

	It("should list units", func() {
		rec := do(http.MethodGet, "/api/units")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var units []popsim.UnitSnapshot
		Expect(json.Unmarshal(rec.Body.Bytes(), &units)).To(Succeed())
		Expect(units).To(HaveLen(3))
		Expect(units[2].Index).To(Equal(2))
		Expect(units[0].State.Neurotransmitter).To(Equal(100.0))
	})

	It("should serialize a single unit", func() {
		rec := do(http.MethodGet, "/api/unit/1")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.Len()).To(BeNumerically(">", 0))
	})

	It("should reject bad unit indices", func() {
		Expect(do(http.MethodGet, "/api/unit/7").Code).
			To(Equal(http.StatusNotFound))
		Expect(do(http.MethodGet, "/api/unit/x").Code).
			To(Equal(http.StatusBadRequest))
	})

	It("should report spikes when a counter is registered", func() {
		Expect(do(http.MethodGet, "/api/spikes").Code).
			To(Equal(http.StatusNotFound))

		m.RegisterSpikeCounter(tracing.NewSpikeCountTracer(pop))
		rec := do(http.MethodGet, "/api/spikes")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring(`"total":0`))
	})

	It("should list and complete progress bars", func() {
		bar := m.CreateProgressBar("run", 10)
		bar.IncrementFinished(4)

		rec := do(http.MethodGet, "/api/progress")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var bars []ProgressBarStatus
		Expect(json.Unmarshal(rec.Body.Bytes(), &bars)).To(Succeed())
		Expect(bars).To(HaveLen(1))
		Expect(bars[0].ID).To(Equal(bar.ID))
		Expect(bars[0].Finished).To(Equal(uint64(4)))

		m.CompleteProgressBar(bar)

		rec = do(http.MethodGet, "/api/progress")
		Expect(rec.Body.String()).To(Equal("[]"))
	})

	It("should reject bad profile durations", func() {
		Expect(do(http.MethodGet, "/api/profile?duration=nope").Code).
			To(Equal(http.StatusBadRequest))
		Expect(do(http.MethodGet, "/api/profile?duration=1h").Code).
			To(Equal(http.StatusBadRequest))
	})

	It("should report resources", func() {
		rec := do(http.MethodGet, "/api/resource")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("memory_size"))
	})

	It("should serve over TCP", func() {
		url, err := m.StartServer()
		Expect(err).ToNot(HaveOccurred())
		defer m.Shutdown(context.Background())

		rsp, err := http.Get(url + "/api/status")
		Expect(err).ToNot(HaveOccurred())
		defer rsp.Body.Close()

		Expect(rsp.StatusCode).To(Equal(http.StatusOK))
	})
})

var _ = Describe("ProgressBar", func() {
	It("should follow ticks as a hook", func() {
		bar := &ProgressBar{Total: 2}

		bar.Func(simulation.HookCtx{Pos: simulation.HookPosBeforeTick})
		Expect(bar.Status().InProgress).To(Equal(uint64(1)))

		bar.Func(simulation.HookCtx{Pos: simulation.HookPosAfterTick})
		Expect(bar.Status().InProgress).To(BeZero())
		Expect(bar.Status().Finished).To(Equal(uint64(1)))
	})
})
