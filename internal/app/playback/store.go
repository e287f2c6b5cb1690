package playback

import (
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/podcastr/internal/domain/episode"
)

// Rand picks shuffle indices. *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
}

// Config holds store configuration.
type Config struct {
	Rand      Rand // Shuffle source (nil uses the global generator)
	Looping   bool // Initial loop mode
	Shuffling bool // Initial shuffle mode
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

type observer struct {
	id int
	fn func(Change)
}

// Store holds the playback state for one session and exposes its mutations.
// Observers are notified synchronously, in mutation order, outside the state lock.
type Store struct {
	mu sync.RWMutex

	queue        []episode.Episode
	currentIndex int
	isPlaying    bool
	isLooping    bool
	isShuffling  bool
	progress     int
	generation   uint64

	rand Rand

	notifyMu    sync.Mutex
	observers   []observer
	nextID      int
	pending     []Change
	dispatching bool
}

// NewStore creates a store with an empty queue.
func NewStore(cfg Config) *Store {
	r := cfg.Rand
	if r == nil {
		r = globalRand{}
	}
	return &Store{
		currentIndex: NoIndex,
		isLooping:    cfg.Looping,
		isShuffling:  cfg.Shuffling,
		rand:         r,
	}
}

// Subscribe registers fn for every subsequent change and returns a function
// that removes it.
func (s *Store) Subscribe(fn func(Change)) (unsubscribe func()) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.nextID++
	id := s.nextID
	s.observers = append(s.observers, observer{id: id, fn: fn})

	return func() {
		s.notifyMu.Lock()
		defer s.notifyMu.Unlock()
		s.observers = slices.DeleteFunc(s.observers, func(o observer) bool { return o.id == id })
	}
}

// Play replaces the queue with a single episode and starts it.
func (s *Store) Play(e episode.Episode) {
	s.mutate(func() ChangeType {
		zlog.Debug().Msgf("playback: play episode=%s", e.ID)
		return s.replaceQueueLocked([]episode.Episode{e}, 0)
	})
}

// PlayList replaces the queue with episodes and starts the one at index.
// An index outside [0, len(episodes)) is a caller bug: the state is left
// untouched and an assertion failure is returned.
func (s *Store) PlayList(episodes []episode.Episode, index int) error {
	if len(episodes) == 0 {
		return errors.AssertionFailedf("playback: play list called with an empty list")
	}
	if index < 0 || index >= len(episodes) {
		return errors.AssertionFailedf("playback: play list index %d out of range [0,%d)", index, len(episodes))
	}
	queue := slices.Clone(episodes)
	s.mutate(func() ChangeType {
		zlog.Debug().Msgf("playback: play list size=%d index=%d", len(queue), index)
		return s.replaceQueueLocked(queue, index)
	})
	return nil
}

// TogglePlay flips the playing intent.
func (s *Store) TogglePlay() {
	s.mutate(func() ChangeType {
		s.isPlaying = !s.isPlaying
		return ChangePlaying
	})
}

// SetPlayingState sets the playing intent directly. Used when the primitive
// reports a play/pause that did not originate from the store.
func (s *Store) SetPlayingState(playing bool) {
	s.mutate(func() ChangeType {
		if s.isPlaying == playing {
			return 0
		}
		s.isPlaying = playing
		return ChangePlaying
	})
}

// PlayNext moves to the next item: a uniformly random index in shuffle mode
// (which may repeat the current one), otherwise the following index.
// It is a no-op when there is no next item.
func (s *Store) PlayNext() {
	s.mutate(func() ChangeType {
		if !s.snapshotLocked().HasNext() {
			return 0
		}
		next := s.currentIndex + 1
		if s.isShuffling {
			next = s.rand.IntN(len(s.queue))
		}
		zlog.Debug().Msgf("playback: next index=%d shuffle=%t", next, s.isShuffling)
		return s.moveLocked(next)
	})
}

// PlayPrevious moves to the preceding index. Shuffle mode does not apply.
// It is a no-op when there is no previous item.
func (s *Store) PlayPrevious() {
	s.mutate(func() ChangeType {
		if !s.snapshotLocked().HasPrevious() {
			return 0
		}
		zlog.Debug().Msgf("playback: previous index=%d", s.currentIndex-1)
		return s.moveLocked(s.currentIndex - 1)
	})
}

// ToggleLoop flips loop mode.
func (s *Store) ToggleLoop() {
	s.mutate(func() ChangeType {
		s.isLooping = !s.isLooping
		return ChangeLooping
	})
}

// ToggleShuffle flips shuffle mode.
func (s *Store) ToggleShuffle() {
	s.mutate(func() ChangeType {
		s.isShuffling = !s.isShuffling
		return ChangeShuffling
	})
}

// ClearPlayerState empties the queue and stops playback. Modes are kept.
func (s *Store) ClearPlayerState() {
	s.mutate(func() ChangeType {
		var changed ChangeType
		if len(s.queue) > 0 {
			s.queue = nil
			s.currentIndex = NoIndex
			s.generation++
			changed |= ChangeQueue | ChangeItem
		}
		if s.isPlaying {
			s.isPlaying = false
			changed |= ChangePlaying
		}
		if s.progress != 0 {
			s.progress = 0
			changed |= ChangeProgress
		}
		zlog.Debug().Msgf("playback: cleared changes=%s", changed)
		return changed
	})
}

// SetProgress records the observed playback position of the current item.
// Ignored when the queue is empty; negative values are clamped to zero.
func (s *Store) SetProgress(seconds int) {
	if seconds < 0 {
		seconds = 0
	}
	s.mutate(func() ChangeType {
		if len(s.queue) == 0 || s.progress == seconds {
			return 0
		}
		s.progress = seconds
		return ChangeProgress
	})
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Current returns the current episode, if any.
func (s *Store) Current() (episode.Episode, bool) {
	return s.Snapshot().Current()
}

// HasNext reports whether PlayNext would move.
func (s *Store) HasNext() bool {
	return s.Snapshot().HasNext()
}

// HasPrevious reports whether PlayPrevious would move.
func (s *Store) HasPrevious() bool {
	return s.Snapshot().HasPrevious()
}

// mutate applies fn under the state lock and publishes the resulting change.
// The change is queued before the state lock is released so that concurrent
// callers cannot reorder deliveries.
func (s *Store) mutate(fn func() ChangeType) {
	s.mu.Lock()
	changed := fn()
	if changed == 0 {
		s.mu.Unlock()
		return
	}
	s.notifyMu.Lock()
	s.pending = append(s.pending, Change{Type: changed, State: s.snapshotLocked()})
	s.notifyMu.Unlock()
	s.mu.Unlock()

	s.dispatch()
}

// dispatch delivers queued changes to all observers. A change raised by an
// observer while a delivery is in progress is delivered after it by the
// outermost dispatch.
func (s *Store) dispatch() {
	s.notifyMu.Lock()
	if s.dispatching {
		s.notifyMu.Unlock()
		return
	}
	s.dispatching = true
	for len(s.pending) > 0 {
		next := s.pending[0]
		s.pending = s.pending[1:]
		observers := slices.Clone(s.observers)
		s.notifyMu.Unlock()

		for _, o := range observers {
			o.fn(next)
		}

		s.notifyMu.Lock()
	}
	s.dispatching = false
	s.notifyMu.Unlock()
}

// replaceQueueLocked installs a new queue and starts the item at index.
// Must be called with lock held.
func (s *Store) replaceQueueLocked(queue []episode.Episode, index int) ChangeType {
	changed := ChangeQueue | ChangeItem
	s.queue = queue
	s.currentIndex = index
	s.generation++
	if !s.isPlaying {
		s.isPlaying = true
		changed |= ChangePlaying
	}
	if s.progress != 0 {
		s.progress = 0
		changed |= ChangeProgress
	}
	return changed
}

// moveLocked makes index the current item and resets progress.
// Must be called with lock held.
func (s *Store) moveLocked(index int) ChangeType {
	changed := ChangeItem
	s.currentIndex = index
	s.generation++
	if s.progress != 0 {
		s.progress = 0
		changed |= ChangeProgress
	}
	return changed
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Queue:           s.queue,
		CurrentIndex:    s.currentIndex,
		IsPlaying:       s.isPlaying,
		IsLooping:       s.isLooping,
		IsShuffling:     s.isShuffling,
		ProgressSeconds: s.progress,
		Generation:      s.generation,
	}
}
