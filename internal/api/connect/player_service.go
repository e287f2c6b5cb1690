// Package connect provides the Connect RPC remote-control surface of the
// player.
package connect

import (
	"context"
	"net/http"
	"sync"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/podcastr/internal/app/filter"
	"github.com/osa030/podcastr/internal/app/notification"
	"github.com/osa030/podcastr/internal/app/session"
	"github.com/osa030/podcastr/internal/app/source"
	"github.com/osa030/podcastr/internal/app/surface"
	"github.com/osa030/podcastr/internal/domain/episode"
	"github.com/osa030/podcastr/internal/domain/playlist"
)

// PlayerServiceName is the fully-qualified name of the player service.
const PlayerServiceName = "podcastr.v1.PlayerService"

// Procedure paths.
const (
	GetStateProcedure      = "/" + PlayerServiceName + "/GetState"
	PlayProcedure          = "/" + PlayerServiceName + "/Play"
	TogglePlayProcedure    = "/" + PlayerServiceName + "/TogglePlay"
	NextProcedure          = "/" + PlayerServiceName + "/Next"
	PreviousProcedure      = "/" + PlayerServiceName + "/Previous"
	ToggleLoopProcedure    = "/" + PlayerServiceName + "/ToggleLoop"
	ToggleShuffleProcedure = "/" + PlayerServiceName + "/ToggleShuffle"
	SeekProcedure          = "/" + PlayerServiceName + "/Seek"
	ClearProcedure         = "/" + PlayerServiceName + "/Clear"
	WatchProcedure         = "/" + PlayerServiceName + "/Watch"
)

// Catalog lists the episodes the service can queue.
type Catalog interface {
	List(ctx context.Context) ([]episode.Episode, error)
}

// PlayerService implements the player remote-control RPCs.
type PlayerService struct {
	session *session.Manager
	catalog Catalog
	filters *filter.Chain
}

// NewPlayerService creates a new PlayerService. filters may be nil.
func NewPlayerService(session *session.Manager, catalog Catalog, filters *filter.Chain) *PlayerService {
	if filters == nil {
		filters = filter.NewChain()
	}
	return &PlayerService{
		session: session,
		catalog: catalog,
		filters: filters,
	}
}

// NewPlayerServiceHandler builds an HTTP handler serving s and returns the
// path prefix to mount it on.
func NewPlayerServiceHandler(s *PlayerService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(GetStateProcedure, connect.NewUnaryHandler(GetStateProcedure, s.GetState, opts...))
	mux.Handle(PlayProcedure, connect.NewUnaryHandler(PlayProcedure, s.Play, opts...))
	mux.Handle(TogglePlayProcedure, connect.NewUnaryHandler(TogglePlayProcedure, s.TogglePlay, opts...))
	mux.Handle(NextProcedure, connect.NewUnaryHandler(NextProcedure, s.Next, opts...))
	mux.Handle(PreviousProcedure, connect.NewUnaryHandler(PreviousProcedure, s.Previous, opts...))
	mux.Handle(ToggleLoopProcedure, connect.NewUnaryHandler(ToggleLoopProcedure, s.ToggleLoop, opts...))
	mux.Handle(ToggleShuffleProcedure, connect.NewUnaryHandler(ToggleShuffleProcedure, s.ToggleShuffle, opts...))
	mux.Handle(SeekProcedure, connect.NewUnaryHandler(SeekProcedure, s.Seek, opts...))
	mux.Handle(ClearProcedure, connect.NewUnaryHandler(ClearProcedure, s.Clear, opts...))
	mux.Handle(WatchProcedure, connect.NewServerStreamHandler(WatchProcedure, s.Watch, opts...))
	return "/" + PlayerServiceName + "/", mux
}

// GetState returns the current player state.
func (s *PlayerService) GetState(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[PlayerState], error) {
	return s.state(ctx)
}

// Play queues the filtered catalog and starts the requested episode.
func (s *PlayerService) Play(
	ctx context.Context,
	req *connect.Request[PlayRequest],
) (*connect.Response[PlayerState], error) {
	episodes, err := s.catalog.List(ctx)
	if err != nil {
		return nil, connect.NewError(connect.CodeUnavailable, err)
	}
	accepted, rejected := s.filters.Apply(ctx, episodes)
	for _, r := range rejected {
		if r.Episode.ID == req.Msg.EpisodeID {
			return nil, connect.NewError(connect.CodeFailedPrecondition,
				errors.Newf("episode %q rejected by %s: %s", r.Episode.ID, r.Filter, r.Code))
		}
	}
	if len(accepted) == 0 {
		return nil, connect.NewError(connect.CodeNotFound, errors.New("no playable episodes"))
	}

	pl := &playlist.Playlist{Name: "catalog", Episodes: accepted}
	if req.Msg.EpisodeID == "" {
		err = s.session.PlayList(ctx, pl.Episodes, 0)
	} else {
		err = s.session.PlayFrom(ctx, pl, req.Msg.EpisodeID)
	}
	if err != nil {
		return nil, toConnectError(err)
	}
	zlog.Info().Msgf("play requested: episode_id=%q queue=%d", req.Msg.EpisodeID, len(accepted))
	return s.state(ctx)
}

// TogglePlay flips the playing intent.
func (s *PlayerService) TogglePlay(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[PlayerState], error) {
	return s.apply(ctx, s.session.TogglePlay)
}

// Next moves to the next episode.
func (s *PlayerService) Next(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[PlayerState], error) {
	return s.apply(ctx, s.session.PlayNext)
}

// Previous moves to the previous episode.
func (s *PlayerService) Previous(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[PlayerState], error) {
	return s.apply(ctx, s.session.PlayPrevious)
}

// ToggleLoop flips loop mode.
func (s *PlayerService) ToggleLoop(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[PlayerState], error) {
	return s.apply(ctx, s.session.ToggleLoop)
}

// ToggleShuffle flips shuffle mode.
func (s *PlayerService) ToggleShuffle(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[PlayerState], error) {
	return s.apply(ctx, s.session.ToggleShuffle)
}

// Seek moves the current episode.
func (s *PlayerService) Seek(
	ctx context.Context,
	req *connect.Request[SeekRequest],
) (*connect.Response[PlayerState], error) {
	return s.apply(ctx, func(ctx context.Context) error {
		return s.session.Seek(ctx, req.Msg.Seconds)
	})
}

// Clear empties the queue.
func (s *PlayerService) Clear(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[PlayerState], error) {
	return s.apply(ctx, s.session.Clear)
}

// Watch streams the current state followed by every update.
func (s *PlayerService) Watch(
	ctx context.Context,
	req *connect.Request[Empty],
	stream *connect.ServerStream[Notification],
) error {
	adapter := &notificationStreamAdapter{stream: stream}
	subscriptionID, err := s.session.Subscribe(ctx, adapter)
	if err != nil {
		return toConnectError(err)
	}
	zlog.Debug().Msgf("watch started: subscription_id=%s", subscriptionID)

	select {
	case <-ctx.Done():
	case <-s.session.Done():
	}

	s.session.Unsubscribe(subscriptionID)
	adapter.close()
	zlog.Debug().Msgf("watch ended: subscription_id=%s", subscriptionID)
	return nil
}

func (s *PlayerService) apply(ctx context.Context, op func(context.Context) error) (*connect.Response[PlayerState], error) {
	if err := op(ctx); err != nil {
		return nil, toConnectError(err)
	}
	return s.state(ctx)
}

func (s *PlayerService) state(ctx context.Context) (*connect.Response[PlayerState], error) {
	st, err := s.session.Status(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	state := toPlayerState(s.session.Snapshot(), st)
	return connect.NewResponse(&state), nil
}

// toConnectError maps player errors to connect codes.
func toConnectError(err error) error {
	switch {
	case errors.Is(err, session.ErrEpisodeNotFound), errors.Is(err, source.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.HasAssertionFailure(err):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, surface.ErrNoItem), errors.Is(err, surface.ErrNotReady):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, session.ErrSessionClosed):
		return connect.NewError(connect.CodeUnavailable, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}

// notificationStreamAdapter adapts connect.ServerStream to notification.Stream.
// Sends after close are refused since the handler has returned.
type notificationStreamAdapter struct {
	mu     sync.Mutex
	closed bool
	stream *connect.ServerStream[Notification]
}

func (a *notificationStreamAdapter) Send(u *notification.Update) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return errors.New("stream closed")
	}
	return a.stream.Send(toNotification(u))
}

func (a *notificationStreamAdapter) close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
}
