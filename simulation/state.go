package simulation

// LifecycleState is the externally visible state of a simulation.
type LifecycleState int

const (
	// Stopped means no simulation goroutine exists.
	Stopped LifecycleState = iota

	// Running means the goroutine is executing ticks, or has been asked to
	// pause or stop but has not acknowledged yet.
	Running

	// Paused means the goroutine acknowledged a pause and idles between
	// ticks.
	Paused
)

func (s LifecycleState) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Running:
		return "running"
	case Paused:
		return "paused"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s LifecycleState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
