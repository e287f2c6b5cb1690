// Package session provides the session manager: the single event loop that
// owns the playback store, the surface adapter and its media primitive.
package session

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/podcastr/internal/app/notification"
	"github.com/osa030/podcastr/internal/app/playback"
	"github.com/osa030/podcastr/internal/app/surface"
	"github.com/osa030/podcastr/internal/domain/episode"
	"github.com/osa030/podcastr/internal/domain/playlist"
)

var (
	ErrSessionClosed   = errors.New("session is closed")
	ErrEpisodeNotFound = errors.New("episode not found in playlist")
)

// Manager manages one listening session. Every store operation, adapter
// reconciliation and media event runs on the goroutine executing Run.
type Manager struct {
	id string

	store        *playback.Store
	adapter      *surface.Adapter
	media        surface.Media
	notification *notification.Manager

	ops chan func()

	started   atomic.Bool
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// NewManager creates a session around media. The session does not process
// operations until Run is called.
func NewManager(media surface.Media, cfg playback.Config) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		id:           uuid.New().String(),
		store:        playback.NewStore(cfg),
		media:        media,
		notification: notification.NewManager(),
		ops:          make(chan func()),
		ctx:          ctx,
		cancel:       cancel,
		done:         make(chan struct{}),
	}

	m.adapter = surface.New(m.store, media)
	m.adapter.OnStatus(m.broadcastStatus)
	m.store.Subscribe(m.broadcastState)

	zlog.Debug().Msgf("session created: session_id=%s", m.id)
	return m
}

// ID returns the session ID.
func (m *Manager) ID() string {
	return m.id
}

// Run processes operations and media events until ctx is cancelled or the
// session is closed.
func (m *Manager) Run(ctx context.Context) error {
	if !m.started.CompareAndSwap(false, true) {
		return errors.New("session is already running")
	}
	defer close(m.done)

	zlog.Info().Msgf("session started: session_id=%s", m.id)
	events := m.media.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.ctx.Done():
			return nil
		case op := <-m.ops:
			op()
		case ev, ok := <-events:
			if !ok {
				zlog.Warn().Msg("session: media event stream closed")
				events = nil
				continue
			}
			m.adapter.HandleEvent(ev)
		}
	}
}

// Done is closed when Run returns.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// Close stops the event loop and releases the media primitive and all
// subscribers. It is safe to call more than once.
func (m *Manager) Close() error {
	var err error
	m.closeOnce.Do(func() {
		m.cancel()
		if m.started.Load() {
			<-m.done
		}
		err = m.adapter.Close()
		m.notification.Close()
		zlog.Info().Msgf("session closed: session_id=%s", m.id)
	})
	return err
}

// do runs fn on the event loop and waits for its result.
func (m *Manager) do(ctx context.Context, fn func() error) error {
	errCh := make(chan error, 1)
	op := func() { errCh <- fn() }

	select {
	case m.ops <- op:
	case <-ctx.Done():
		return ctx.Err()
	case <-m.ctx.Done():
		return ErrSessionClosed
	case <-m.done:
		return ErrSessionClosed
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) exec(ctx context.Context, fn func()) error {
	return m.do(ctx, func() error {
		fn()
		return nil
	})
}

// Play replaces the queue with e and starts it.
func (m *Manager) Play(ctx context.Context, e episode.Episode) error {
	return m.exec(ctx, func() { m.store.Play(e) })
}

// PlayList replaces the queue with episodes and starts the one at index.
func (m *Manager) PlayList(ctx context.Context, episodes []episode.Episode, index int) error {
	return m.do(ctx, func() error { return m.store.PlayList(episodes, index) })
}

// PlayFrom queues the whole playlist and starts the episode with the given ID.
func (m *Manager) PlayFrom(ctx context.Context, pl *playlist.Playlist, episodeID string) error {
	index := pl.IndexOf(episodeID)
	if index < 0 {
		return errors.Wrapf(ErrEpisodeNotFound, "episode %q", episodeID)
	}
	return m.PlayList(ctx, pl.Episodes, index)
}

// TogglePlay flips the playing intent.
func (m *Manager) TogglePlay(ctx context.Context) error {
	return m.exec(ctx, m.store.TogglePlay)
}

// SetPlayingState sets the playing intent.
func (m *Manager) SetPlayingState(ctx context.Context, playing bool) error {
	return m.exec(ctx, func() { m.store.SetPlayingState(playing) })
}

// PlayNext moves to the next item.
func (m *Manager) PlayNext(ctx context.Context) error {
	return m.exec(ctx, m.store.PlayNext)
}

// PlayPrevious moves to the previous item.
func (m *Manager) PlayPrevious(ctx context.Context) error {
	return m.exec(ctx, m.store.PlayPrevious)
}

// ToggleLoop flips loop mode.
func (m *Manager) ToggleLoop(ctx context.Context) error {
	return m.exec(ctx, m.store.ToggleLoop)
}

// ToggleShuffle flips shuffle mode.
func (m *Manager) ToggleShuffle(ctx context.Context) error {
	return m.exec(ctx, m.store.ToggleShuffle)
}

// Clear empties the queue and stops playback.
func (m *Manager) Clear(ctx context.Context) error {
	return m.exec(ctx, m.store.ClearPlayerState)
}

// Seek moves the current item to seconds.
func (m *Manager) Seek(ctx context.Context, seconds int) error {
	return m.do(ctx, func() error { return m.adapter.HandleSeek(seconds) })
}

// Snapshot returns the current playback state. Safe from any goroutine.
func (m *Manager) Snapshot() playback.Snapshot {
	return m.store.Snapshot()
}

// Status returns the adapter status.
func (m *Manager) Status(ctx context.Context) (surface.Status, error) {
	var st surface.Status
	err := m.exec(ctx, func() { st = m.adapter.Status() })
	return st, err
}

// Subscribe registers stream for updates. The stream first receives the
// current state, then every subsequent update.
func (m *Manager) Subscribe(ctx context.Context, stream notification.Stream) (string, error) {
	var id string
	err := m.exec(ctx, func() {
		id = m.notification.Subscribe(stream)
		m.notification.Send(id, &notification.Update{
			SequenceNo: m.notification.SequenceNo(),
			Kind:       notification.KindState,
			State:      m.store.Snapshot(),
			Status:     m.adapter.Status(),
		})
	})
	return id, err
}

// Unsubscribe removes a subscription.
func (m *Manager) Unsubscribe(id string) {
	m.notification.Unsubscribe(id)
}

func (m *Manager) broadcastState(c playback.Change) {
	m.notification.Broadcast(&notification.Update{
		Kind:    notification.KindState,
		Changed: c.Type,
		State:   c.State,
		Status:  m.adapter.Status(),
	})
}

func (m *Manager) broadcastStatus(st surface.Status) {
	m.notification.Broadcast(&notification.Update{
		Kind:   notification.KindStatus,
		State:  m.store.Snapshot(),
		Status: st,
	})
}
