package surface

import (
	"math"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/podcastr/internal/app/playback"
)

// Errors
var (
	ErrNoItem   = errors.New("no current item")
	ErrNotReady = errors.New("current item is not ready")
)

// Adapter owns one Media primitive and keeps it in line with a playback.Store.
//
// The adapter is not safe for concurrent use: store changes and media events
// must be delivered from a single goroutine.
type Adapter struct {
	store *playback.Store
	media Media

	state    State
	token    Token
	duration int
	lastErr  error

	loop        bool
	loopApplied bool

	// Last play/pause command issued to, or observed from, the primitive
	// for the current load.
	commanded        bool
	commandedPlaying bool

	onStatus    func(Status)
	unsubscribe func()
}

// New creates an adapter, subscribes it to the store and reconciles the
// primitive with the store's current state.
func New(store *playback.Store, media Media) *Adapter {
	a := &Adapter{
		store: store,
		media: media,
		state: StateIdle,
	}
	a.unsubscribe = store.Subscribe(a.Reconcile)
	a.reconcile(store.Snapshot(), true)
	return a
}

// OnStatus registers fn to be called on every state transition.
func (a *Adapter) OnStatus(fn func(Status)) {
	a.onStatus = fn
}

// State returns the adapter state.
func (a *Adapter) State() State {
	return a.state
}

// Status returns the current status.
func (a *Adapter) Status() Status {
	return Status{State: a.state, EpisodeID: a.token.EpisodeID, Err: a.lastErr}
}

// Reconcile issues the primitive commands implied by a store change.
func (a *Adapter) Reconcile(c playback.Change) {
	a.reconcile(c.State, false)
}

func (a *Adapter) reconcile(st playback.Snapshot, initial bool) {
	if initial || st.Generation != a.token.Generation {
		if !a.switchItem(st) {
			return
		}
	}

	if !a.loopApplied || st.IsLooping != a.loop {
		if err := a.media.SetLoop(st.IsLooping); err != nil {
			zlog.Warn().Msgf("surface: set loop failed: loop=%t error=%v", st.IsLooping, err)
		} else {
			a.loop = st.IsLooping
			a.loopApplied = true
		}
	}

	a.applyIntent(st.IsPlaying)
}

// switchItem loads the store's current item. It returns false when there is
// nothing further to reconcile.
func (a *Adapter) switchItem(st playback.Snapshot) bool {
	a.commanded = false
	a.loopApplied = false
	a.lastErr = nil

	cur, ok := st.Current()
	if !ok {
		wasIdle := a.state == StateIdle
		a.token = Token{Generation: st.Generation}
		a.duration = 0
		if !wasIdle {
			if err := a.media.Unload(); err != nil {
				zlog.Warn().Msgf("surface: unload failed: %v", err)
			}
		}
		a.setState(StateIdle)
		return false
	}

	a.token = Token{Generation: st.Generation, EpisodeID: cur.ID}
	a.duration = cur.Duration
	zlog.Debug().Msgf("surface: loading token=%s url=%s", a.token, cur.URL)

	if err := a.media.Load(LoadRequest{Token: a.token, URL: cur.URL, Duration: cur.Duration}); err != nil {
		a.fail(errors.Wrapf(err, "failed to load %s", cur.ID))
		return false
	}
	a.setState(StateLoading)
	return true
}

// applyIntent commands play or pause when the intent differs from what the
// primitive was last told. Only a Ready primitive is commanded.
func (a *Adapter) applyIntent(playing bool) {
	if a.state != StateReady {
		return
	}
	if a.commanded && a.commandedPlaying == playing {
		return
	}

	var err error
	if playing {
		err = a.media.Play()
	} else {
		err = a.media.Pause()
	}
	if err != nil {
		a.fail(errors.Wrap(err, "failed to command primitive"))
		return
	}
	a.commanded = true
	a.commandedPlaying = playing
}

// HandleEvent applies a primitive event. Events tagged with a token other
// than the current load are discarded.
func (a *Adapter) HandleEvent(ev MediaEvent) {
	if ev.Token != a.token {
		zlog.Debug().Msgf("surface: discarding stale event: type=%s token=%s current=%s", ev.Type, ev.Token, a.token)
		return
	}

	switch ev.Type {
	case EventMetadataLoaded:
		if a.state != StateLoading {
			return
		}
		if ev.Duration > 0 {
			a.duration = int(math.Floor(ev.Duration))
		}
		a.setState(StateReady)
		a.store.SetProgress(0)
		a.applyIntent(a.store.Snapshot().IsPlaying)

	case EventTimeUpdate:
		if a.state != StateReady {
			return
		}
		a.store.SetProgress(int(math.Floor(ev.Position)))

	case EventEnded:
		a.handleEnded()

	case EventPlayed, EventPaused:
		if a.state != StateLoading && a.state != StateReady {
			zlog.Debug().Msgf("surface: ignoring %s in state %s", ev.Type, a.state)
			return
		}
		playing := ev.Type == EventPlayed
		a.commanded = true
		a.commandedPlaying = playing
		a.store.SetPlayingState(playing)

	case EventFailed:
		a.fail(ev.Err)
	}
}

func (a *Adapter) handleEnded() {
	st := a.store.Snapshot()
	switch {
	case st.IsLooping:
		// The primitive repeats the source itself.
		zlog.Debug().Msgf("surface: ended while looping, token=%s", a.token)
	case st.HasNext():
		a.store.PlayNext()
	default:
		a.store.ClearPlayerState()
	}
}

// HandleSeek moves the primitive to amount seconds and records it as the
// current progress. The playing intent is left unchanged.
func (a *Adapter) HandleSeek(amount int) error {
	if a.state == StateIdle {
		return ErrNoItem
	}
	if a.state != StateReady {
		return ErrNotReady
	}
	if amount < 0 {
		amount = 0
	}
	if a.duration > 0 && amount > a.duration {
		amount = a.duration
	}
	if err := a.media.Seek(amount); err != nil {
		return errors.Wrapf(err, "failed to seek to %d", amount)
	}
	a.store.SetProgress(amount)
	return nil
}

// Close detaches the adapter from the store and releases the primitive.
func (a *Adapter) Close() error {
	if a.unsubscribe != nil {
		a.unsubscribe()
		a.unsubscribe = nil
	}
	return a.media.Close()
}

func (a *Adapter) fail(err error) {
	if err == nil {
		err = errors.New("playback unavailable")
	}
	zlog.Warn().Msgf("surface: playback unavailable: token=%s error=%v", a.token, err)
	a.lastErr = err
	a.commanded = false
	a.setState(StateUnavailable)
	a.store.SetPlayingState(false)
}

func (a *Adapter) setState(s State) {
	if a.state == s && s != StateUnavailable {
		return
	}
	a.state = s
	if a.onStatus != nil {
		a.onStatus(a.Status())
	}
}
