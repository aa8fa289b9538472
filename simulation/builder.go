package simulation

import (
	"log/slog"
	"time"

	"github.com/rs/xid"
)

// DefaultPollInterval is how often both sides of the handshake check the
// flags.
const DefaultPollInterval = 100 * time.Millisecond

// Builder can be used to build a simulation.
type Builder struct {
	path         string
	manifest     Manifest
	ticker       Ticker
	pollInterval time.Duration
	logger       *slog.Logger
	hooks        []Hook
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{
		pollInterval: DefaultPollInterval,
	}
}

// WithPath sets the root directory the simulation is saved to.
func (b Builder) WithPath(path string) Builder {
	b.path = path
	return b
}

// WithManifest sets the manifest the simulation saves.
func (b Builder) WithManifest(m Manifest) Builder {
	b.manifest = m
	return b
}

// WithTicker sets the tick body.
func (b Builder) WithTicker(t Ticker) Builder {
	b.ticker = t
	return b
}

// WithPollInterval sets the handshake poll interval.
func (b Builder) WithPollInterval(d time.Duration) Builder {
	b.pollInterval = d
	return b
}

// WithLogger sets the logger. Without one, the simulation does not log.
func (b Builder) WithLogger(l *slog.Logger) Builder {
	b.logger = l
	return b
}

// WithHook registers a hook on the built simulation.
func (b Builder) WithHook(h Hook) Builder {
	b.hooks = append(b.hooks[:len(b.hooks):len(b.hooks)], h)
	return b
}

func (b Builder) parametersMustBeValid() {
	if b.ticker == nil {
		panic("ticker must be set")
	}

	if b.pollInterval <= 0 {
		panic("poll interval must be positive")
	}
}

// Build builds the simulation.
func (b Builder) Build() *Simulation {
	b.parametersMustBeValid()

	s := &Simulation{
		id:           xid.New().String(),
		path:         b.path,
		manifest:     b.manifest,
		ticker:       b.ticker,
		pollInterval: b.pollInterval,
		logger:       b.logger,
	}

	if s.manifest == nil {
		s.manifest = Manifest{}
	}

	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}

	for _, h := range b.hooks {
		s.AcceptHook(h)
	}

	s.isStopped.Store(true)

	return s
}

// Load reads the simulation stored at path and builds it around the tick body
// returned by factory. It returns nil and no error if the path or its
// manifest does not exist.
func (b Builder) Load(path string, factory Factory) (*Simulation, error) {
	m, err := ReadManifest(path)
	if err != nil {
		if isNotExist(err) {
			return nil, nil
		}

		return nil, err
	}

	ticker, err := factory(path, m)
	if err != nil {
		return nil, wrapFactoryErr(path, err)
	}

	return b.WithPath(path).WithManifest(m).WithTicker(ticker).Build(), nil
}
