// Package surface bridges the playback store to an audio-rendering primitive:
// it drives the primitive from the store's intent and feeds primitive events
// back into the store.
package surface

import "fmt"

// Token identifies one load of one item. Events carry the token of the load
// they belong to so that events from an abandoned load can be recognized.
type Token struct {
	Generation uint64 // Store generation the load was issued for
	EpisodeID  string
}

// String returns the string representation of the token.
func (t Token) String() string {
	return fmt.Sprintf("%d/%s", t.Generation, t.EpisodeID)
}

// LoadRequest asks the primitive to load a new source.
type LoadRequest struct {
	Token    Token
	URL      string
	Duration int // Expected duration in seconds (hint, may be 0)
}

// Media is the audio-rendering primitive driven by the adapter.
// Commands must not block on playback; results are reported through Events.
type Media interface {
	// Load replaces the current source. Playback starts only after Play.
	Load(req LoadRequest) error
	// Unload stops playback and drops the current source.
	Unload() error
	Play() error
	Pause() error
	// Seek sets the playback position in seconds.
	Seek(seconds int) error
	// SetLoop makes the primitive repeat the current source natively.
	SetLoop(loop bool) error
	// Events returns the primitive's event stream.
	Events() <-chan MediaEvent
	Close() error
}

// EventType represents a primitive event type.
type EventType int

const (
	EventMetadataLoaded EventType = iota // Duration known, ready to play
	EventTimeUpdate                      // Playback position advanced
	EventEnded                           // Reached the end of the source
	EventPlayed                          // Primitive started playing
	EventPaused                          // Primitive paused
	EventFailed                          // Source could not be played
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventMetadataLoaded:
		return "metadata_loaded"
	case EventTimeUpdate:
		return "time_update"
	case EventEnded:
		return "ended"
	case EventPlayed:
		return "played"
	case EventPaused:
		return "paused"
	case EventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MediaEvent is reported by the primitive.
type MediaEvent struct {
	Type     EventType
	Token    Token
	Position float64 // Seconds, for EventTimeUpdate
	Duration float64 // Seconds, for EventMetadataLoaded
	Err      error   // For EventFailed
}
