package surface

// State represents the adapter's view of the current item.
type State int

const (
	StateIdle        State = iota // Nothing loaded
	StateLoading                  // Source requested, waiting for metadata
	StateReady                    // Metadata known, following the play intent
	StateUnavailable              // Primitive failed for the current item
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Status is reported to the presentation layer on every adapter transition.
type Status struct {
	State     State
	EpisodeID string
	Err       error // Set when State is StateUnavailable
}
