// Package playback provides the playback state store: the play queue, the
// current item, the playback intent and the loop/shuffle modes.
package playback

import "github.com/osa030/podcastr/internal/domain/episode"

// NoIndex is the current index of an empty queue.
const NoIndex = -1

// State represents the playback status derived from a snapshot.
type State int

const (
	StateIdle    State = iota // Queue empty
	StatePlaying              // Current item should be playing
	StatePaused               // Current item loaded but paused
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// Snapshot is a point-in-time copy of the playback state.
// Queue is shared with the store and must not be modified.
type Snapshot struct {
	Queue           []episode.Episode
	CurrentIndex    int
	IsPlaying       bool // Intent, not the primitive's actual state
	IsLooping       bool
	IsShuffling     bool
	ProgressSeconds int
	Generation      uint64 // Incremented every time the current item changes
}

// Current returns the episode at CurrentIndex.
func (s Snapshot) Current() (episode.Episode, bool) {
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Queue) {
		return episode.Episode{}, false
	}
	return s.Queue[s.CurrentIndex], true
}

// HasPrevious reports whether PlayPrevious would move. Shuffle does not affect it.
func (s Snapshot) HasPrevious() bool {
	return len(s.Queue) > 0 && s.CurrentIndex > 0
}

// HasNext reports whether PlayNext would move.
// In shuffle mode any non-empty queue has a next item.
func (s Snapshot) HasNext() bool {
	if len(s.Queue) == 0 {
		return false
	}
	return s.IsShuffling || s.CurrentIndex < len(s.Queue)-1
}

// Status returns the derived playback state.
func (s Snapshot) Status() State {
	if len(s.Queue) == 0 {
		return StateIdle
	}
	if s.IsPlaying {
		return StatePlaying
	}
	return StatePaused
}
