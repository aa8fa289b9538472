// Package monitoring turns a running simulation into an HTTP server that can
// control it and inspect its units.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"sync"
	"time"

	// Enable profiling
	_ "net/http/pprof"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/rs/xid"
	"github.com/sarchlab/neurosim/popsim"
	"github.com/sarchlab/neurosim/simulation"
	"github.com/sarchlab/neurosim/tracing"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
)

// A Population is a set of units that can be inspected.
type Population interface {
	Snapshot() []popsim.UnitSnapshot
	Unit(i int) (popsim.UnitSnapshot, bool)
}

// Monitor can turn a simulation into a server and allows external monitoring
// and controlling of the simulation.
type Monitor struct {
	lock         sync.RWMutex
	simulation   *simulation.Simulation
	population   Population
	spikeCounter *tracing.SpikeCountTracer
	portNumber   int
	logger       *slog.Logger
	server       *http.Server

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{
		logger: slog.New(slog.DiscardHandler),
	}
}

// WithPortNumber sets the port number of the monitor. Port 0 selects a random
// port.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		m.logger.Warn("port number not allowed, using a random port instead",
			"port", portNumber)

		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithLogger sets the logger of the monitor.
func (m *Monitor) WithLogger(logger *slog.Logger) *Monitor {
	m.logger = logger
	return m
}

// RegisterSimulation registers the simulation to control.
func (m *Monitor) RegisterSimulation(s *simulation.Simulation) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.simulation = s
}

// RegisterPopulation registers the units to inspect.
func (m *Monitor) RegisterPopulation(p Population) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.population = p
}

// RegisterSpikeCounter registers a spike counter to report.
func (m *Monitor) RegisterSpikeCounter(t *tracing.SpikeCountTracer) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.spikeCounter = t
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        xid.New().String(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Router returns the handler that serves the monitoring API.
func (m *Monitor) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/start", m.start).Methods(http.MethodPost)
	r.HandleFunc("/api/stop", m.stop).Methods(http.MethodPost)
	r.HandleFunc("/api/pause", m.pause).Methods(http.MethodPost)
	r.HandleFunc("/api/continue", m.unpause).Methods(http.MethodPost)
	r.HandleFunc("/api/save", m.save).Methods(http.MethodPost)
	r.HandleFunc("/api/status", m.status).Methods(http.MethodGet)
	r.HandleFunc("/api/units", m.listUnits).Methods(http.MethodGet)
	r.HandleFunc("/api/unit/{index}", m.unitDetails).Methods(http.MethodGet)
	r.HandleFunc("/api/spikes", m.spikes).Methods(http.MethodGet)
	r.HandleFunc("/api/progress", m.listProgressBars).Methods(http.MethodGet)
	r.HandleFunc("/api/resource", m.listResources).Methods(http.MethodGet)
	r.HandleFunc("/api/profile", m.collectProfile).Methods(http.MethodGet)
	r.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)

	return r
}

// StartServer starts the monitor as a web server and returns its URL.
func (m *Monitor) StartServer() (string, error) {
	actualPort := ":0"
	if m.portNumber >= 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	if err != nil {
		return "", fmt.Errorf("starting monitor: %w", err)
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)

	m.server = &http.Server{
		Handler:           m.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		err := m.server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("monitor stopped", "error", err)
		}
	}()

	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	return url, nil
}

// Shutdown stops the web server.
func (m *Monitor) Shutdown(ctx context.Context) error {
	if m.server == nil {
		return nil
	}

	return m.server.Shutdown(ctx)
}

// OpenBrowser opens the url in the default browser.
func OpenBrowser(url string) error {
	return browser.OpenURL(url)
}

func (m *Monitor) sim() *simulation.Simulation {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return m.simulation
}

func (m *Monitor) pop() Population {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return m.population
}

func (m *Monitor) simOr503(w http.ResponseWriter) *simulation.Simulation {
	s := m.sim()
	if s == nil {
		http.Error(w, "no simulation registered", http.StatusServiceUnavailable)
	}

	return s
}

func (m *Monitor) start(w http.ResponseWriter, _ *http.Request) {
	s := m.simOr503(w)
	if s == nil {
		return
	}

	if s.HasStarted() {
		http.Error(w, "simulation already started", http.StatusConflict)
		return
	}

	s.Start()
	m.logger.Info("simulation started from monitor", "id", s.ID())
	m.status(w, nil)
}

func (m *Monitor) stop(w http.ResponseWriter, r *http.Request) {
	m.control(w, r, (*simulation.Simulation).StopContext)
}

func (m *Monitor) pause(w http.ResponseWriter, r *http.Request) {
	m.control(w, r, (*simulation.Simulation).PauseContext)
}

func (m *Monitor) unpause(w http.ResponseWriter, r *http.Request) {
	m.control(w, r, (*simulation.Simulation).UnpauseContext)
}

func (m *Monitor) control(
	w http.ResponseWriter,
	r *http.Request,
	action func(*simulation.Simulation, context.Context) error,
) {
	s := m.simOr503(w)
	if s == nil {
		return
	}

	err := action(s, r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	m.status(w, r)
}

func (m *Monitor) save(w http.ResponseWriter, r *http.Request) {
	s := m.simOr503(w)
	if s == nil {
		return
	}

	err := s.Save()
	if errors.Is(err, simulation.ErrSimulationRunning) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	m.status(w, r)
}

type statusRsp struct {
	ID    string                    `json:"id"`
	State simulation.LifecycleState `json:"state"`
	Ticks uint64                    `json:"ticks"`
}

func (m *Monitor) status(w http.ResponseWriter, _ *http.Request) {
	s := m.simOr503(w)
	if s == nil {
		return
	}

	writeJSON(w, statusRsp{
		ID:    s.ID(),
		State: s.State(),
		Ticks: s.Ticks(),
	})
}

func (m *Monitor) listUnits(w http.ResponseWriter, _ *http.Request) {
	p := m.pop()
	if p == nil {
		http.Error(w, "no population registered", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, p.Snapshot())
}

func (m *Monitor) unitDetails(w http.ResponseWriter, r *http.Request) {
	p := m.pop()
	if p == nil {
		http.Error(w, "no population registered", http.StatusServiceUnavailable)
		return
	}

	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		http.Error(w, "invalid unit index", http.StatusBadRequest)
		return
	}

	unit, ok := p.Unit(index)
	if !ok {
		http.Error(w, "unit not found", http.StatusNotFound)
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(&unit)
	serializer.SetMaxDepth(2)

	err = serializer.Serialize(w)
	if err != nil {
		m.logger.Error("serializing unit", "index", index, "error", err)
	}
}

type spikesRsp struct {
	Total   uint64   `json:"total"`
	Ticks   uint64   `json:"ticks"`
	Rate    float64  `json:"rate"`
	PerUnit []uint64 `json:"per_unit"`
}

func (m *Monitor) spikes(w http.ResponseWriter, _ *http.Request) {
	m.lock.RLock()
	counter := m.spikeCounter
	m.lock.RUnlock()

	if counter == nil {
		http.Error(w, "no spike counter registered", http.StatusNotFound)
		return
	}

	writeJSON(w, spikesRsp{
		Total:   counter.Total(),
		Ticks:   counter.Ticks(),
		Rate:    counter.Rate(),
		PerUnit: counter.PerUnit(),
	})
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	bars := make([]ProgressBarStatus, len(m.progressBars))
	for i, b := range m.progressBars {
		bars[i] = b.Status()
	}
	m.progressBarsLock.Unlock()

	writeJSON(w, bars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	rsp, err := currentResources()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, rsp)
}

func currentResources() (resourceRsp, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return resourceRsp{}, err
	}

	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return resourceRsp{}, err
	}

	memorySize, err := p.MemoryInfo()
	if err != nil {
		return resourceRsp{}, err
	}

	return resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	}, nil
}

const maxProfileDuration = 30 * time.Second

func (m *Monitor) collectProfile(w http.ResponseWriter, r *http.Request) {
	duration := time.Second

	if d := r.URL.Query().Get("duration"); d != "" {
		parsed, err := time.ParseDuration(d)
		if err != nil || parsed <= 0 || parsed > maxProfileDuration {
			http.Error(w, "invalid duration", http.StatusBadRequest)
			return
		}

		duration = parsed
	}

	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	select {
	case <-time.After(duration):
	case <-r.Context().Done():
	}

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	_, _ = w.Write(data)
}
