// Package simulation runs a tick body on a background goroutine that can be
// started, paused, resumed and stopped, and persists its manifest to disk.
package simulation

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ErrSimulationRunning is returned by Save when the simulation is neither
// stopped nor paused.
var ErrSimulationRunning = errors.New("simulation is running")

// A Ticker is the tick body of a simulation. Tick is called once per loop
// iteration on the simulation goroutine. It should return within a bounded
// time, or check StopRequested itself, because the loop cannot interrupt it.
type Ticker interface {
	Tick()
}

// A ManifestWriter is a Ticker that stores its state in the manifest before
// the manifest is saved.
type ManifestWriter interface {
	WriteManifest(m Manifest)
}

// A Simulation owns one background goroutine that repeatedly invokes a tick
// body.
//
// Control methods must be called from a single foreground goroutine. The
// handshake with the background goroutine uses four flags with one writer
// each: the foreground writes shouldRun and shouldPause, the background
// writes isActive and isStopped. Both sides poll at the poll interval. Save
// may be called from any goroutine.
type Simulation struct {
	HookableBase

	id           string
	path         string
	manifest     Manifest
	ticker       Ticker
	pollInterval time.Duration
	logger       *slog.Logger

	shouldRun   atomic.Bool
	shouldPause atomic.Bool
	isActive    atomic.Bool
	isStopped   atomic.Bool

	started atomic.Bool
	ticks   atomic.Uint64

	saveLock sync.Mutex
}

// ID returns the unique ID of the simulation.
func (s *Simulation) ID() string {
	return s.id
}

// Path returns the root directory of the simulation.
func (s *Simulation) Path() string {
	return s.path
}

// Manifest returns the manifest that Save persists. The map is shared with
// the tick body.
func (s *Simulation) Manifest() Manifest {
	return s.manifest
}

// Ticker returns the tick body.
func (s *Simulation) Ticker() Ticker {
	return s.ticker
}

// Ticks returns the number of ticks completed since the simulation was built.
func (s *Simulation) Ticks() uint64 {
	return s.ticks.Load()
}

// HasStarted returns true if the simulation goroutine exists, even if it is
// paused.
func (s *Simulation) HasStarted() bool {
	return s.started.Load()
}

// StopRequested lets a long tick body return early when Stop has been called.
func (s *Simulation) StopRequested() bool {
	return !s.shouldRun.Load()
}

// State returns the lifecycle state derived from the handshake flags.
func (s *Simulation) State() LifecycleState {
	if !s.started.Load() {
		return Stopped
	}

	if s.shouldPause.Load() && !s.isActive.Load() {
		return Paused
	}

	return Running
}

// Start launches the simulation goroutine. It panics if the simulation has
// already started.
func (s *Simulation) Start() {
	if s.started.Load() {
		panic("simulation " + s.id + " already started")
	}

	s.shouldRun.Store(true)
	s.shouldPause.Store(false)
	s.isStopped.Store(false)
	s.isActive.Store(true)
	s.started.Store(true)

	s.logger.Info("simulation starting", "id", s.id, "path", s.path)

	go s.run()
}

func (s *Simulation) run() {
	s.InvokeHook(HookCtx{Domain: s, Pos: HookPosStart, Item: s.ticks.Load()})

	for s.shouldRun.Load() {
		s.isActive.Store(true)

		s.tick()

		for s.shouldPause.Load() && s.shouldRun.Load() {
			s.isActive.Store(false)
			time.Sleep(s.pollInterval)
		}
	}

	s.InvokeHook(HookCtx{Domain: s, Pos: HookPosStop, Item: s.ticks.Load()})

	s.logger.Info("simulation closing", "id", s.id, "ticks", s.ticks.Load())

	s.isStopped.Store(true)
}

func (s *Simulation) tick() {
	s.InvokeHook(HookCtx{
		Domain: s,
		Pos:    HookPosBeforeTick,
		Item:   s.ticks.Load(),
	})

	s.ticker.Tick()
	done := s.ticks.Add(1)

	s.InvokeHook(HookCtx{
		Domain: s,
		Pos:    HookPosAfterTick,
		Item:   done,
	})
}

// Stop asks the simulation goroutine to exit and blocks until it has. It
// blocks forever if the tick body never returns.
func (s *Simulation) Stop() {
	_ = s.StopContext(context.Background())
}

// StopContext is Stop with a bound. If ctx ends first, the stop request stays
// in effect, the simulation still counts as started, and ctx.Err() is
// returned.
func (s *Simulation) StopContext(ctx context.Context) error {
	s.shouldRun.Store(false)

	if !s.started.Load() {
		return nil
	}

	err := s.waitFor(ctx, s.isStopped.Load)
	if err != nil {
		return err
	}

	s.started.Store(false)
	s.isActive.Store(false)

	s.logger.Info("simulation stopped", "id", s.id, "ticks", s.ticks.Load())

	return nil
}

// Pause asks the simulation goroutine to idle after the current tick and
// blocks until it does.
func (s *Simulation) Pause() {
	_ = s.PauseContext(context.Background())
}

// PauseContext is Pause with a bound. See StopContext.
func (s *Simulation) PauseContext(ctx context.Context) error {
	s.shouldPause.Store(true)

	if !s.started.Load() {
		return nil
	}

	err := s.waitFor(ctx, func() bool { return !s.isActive.Load() })
	if err != nil {
		return err
	}

	s.logger.Debug("simulation paused", "id", s.id, "ticks", s.ticks.Load())

	return nil
}

// Unpause asks a paused simulation goroutine to continue and blocks until it
// has resumed ticking.
func (s *Simulation) Unpause() {
	_ = s.UnpauseContext(context.Background())
}

// UnpauseContext is Unpause with a bound. See StopContext.
func (s *Simulation) UnpauseContext(ctx context.Context) error {
	s.shouldPause.Store(false)

	if !s.started.Load() {
		return nil
	}

	err := s.waitFor(ctx, s.isActive.Load)
	if err != nil {
		return err
	}

	s.logger.Debug("simulation resumed", "id", s.id, "ticks", s.ticks.Load())

	return nil
}

func (s *Simulation) waitFor(ctx context.Context, cond func() bool) error {
	if cond() {
		return nil
	}

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for !cond() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}

	return nil
}

// Save writes the manifest to <path>/manifest.json. The simulation must be
// stopped or paused so that the tick body does not change the manifest while
// it is written.
func (s *Simulation) Save() error {
	s.saveLock.Lock()
	defer s.saveLock.Unlock()

	if s.State() == Running {
		return ErrSimulationRunning
	}

	if w, ok := s.ticker.(ManifestWriter); ok {
		w.WriteManifest(s.manifest)
	}

	err := WriteManifest(s.path, s.manifest)
	if err != nil {
		return err
	}

	s.logger.Info("simulation saved", "id", s.id, "path", s.path)

	return nil
}
