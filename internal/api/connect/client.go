package connect

import (
	"context"

	"connectrpc.com/connect"
)

// Client is a PlayerService client.
type Client struct {
	getState      *connect.Client[Empty, PlayerState]
	play          *connect.Client[PlayRequest, PlayerState]
	togglePlay    *connect.Client[Empty, PlayerState]
	next          *connect.Client[Empty, PlayerState]
	previous      *connect.Client[Empty, PlayerState]
	toggleLoop    *connect.Client[Empty, PlayerState]
	toggleShuffle *connect.Client[Empty, PlayerState]
	seek          *connect.Client[SeekRequest, PlayerState]
	clear         *connect.Client[Empty, PlayerState]
	watch         *connect.Client[Empty, Notification]
}

// NewClient creates a PlayerService client for the server at baseURL.
// token is sent as a bearer token when set.
func NewClient(httpClient connect.HTTPClient, baseURL, token string, opts ...connect.ClientOption) *Client {
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)
	if token != "" {
		opts = append(opts, connect.WithInterceptors(&tokenInterceptor{token: token}))
	}

	return &Client{
		getState:      connect.NewClient[Empty, PlayerState](httpClient, baseURL+GetStateProcedure, opts...),
		play:          connect.NewClient[PlayRequest, PlayerState](httpClient, baseURL+PlayProcedure, opts...),
		togglePlay:    connect.NewClient[Empty, PlayerState](httpClient, baseURL+TogglePlayProcedure, opts...),
		next:          connect.NewClient[Empty, PlayerState](httpClient, baseURL+NextProcedure, opts...),
		previous:      connect.NewClient[Empty, PlayerState](httpClient, baseURL+PreviousProcedure, opts...),
		toggleLoop:    connect.NewClient[Empty, PlayerState](httpClient, baseURL+ToggleLoopProcedure, opts...),
		toggleShuffle: connect.NewClient[Empty, PlayerState](httpClient, baseURL+ToggleShuffleProcedure, opts...),
		seek:          connect.NewClient[SeekRequest, PlayerState](httpClient, baseURL+SeekProcedure, opts...),
		clear:         connect.NewClient[Empty, PlayerState](httpClient, baseURL+ClearProcedure, opts...),
		watch:         connect.NewClient[Empty, Notification](httpClient, baseURL+WatchProcedure, opts...),
	}
}

func unary[Req any](ctx context.Context, c *connect.Client[Req, PlayerState], msg *Req) (*PlayerState, error) {
	resp, err := c.CallUnary(ctx, connect.NewRequest(msg))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// GetState returns the player state.
func (c *Client) GetState(ctx context.Context) (*PlayerState, error) {
	return unary(ctx, c.getState, &Empty{})
}

// Play starts the catalog at episodeID, or at its first episode.
func (c *Client) Play(ctx context.Context, episodeID string) (*PlayerState, error) {
	return unary(ctx, c.play, &PlayRequest{EpisodeID: episodeID})
}

// TogglePlay flips the playing intent.
func (c *Client) TogglePlay(ctx context.Context) (*PlayerState, error) {
	return unary(ctx, c.togglePlay, &Empty{})
}

// Next moves to the next episode.
func (c *Client) Next(ctx context.Context) (*PlayerState, error) {
	return unary(ctx, c.next, &Empty{})
}

// Previous moves to the previous episode.
func (c *Client) Previous(ctx context.Context) (*PlayerState, error) {
	return unary(ctx, c.previous, &Empty{})
}

// ToggleLoop flips loop mode.
func (c *Client) ToggleLoop(ctx context.Context) (*PlayerState, error) {
	return unary(ctx, c.toggleLoop, &Empty{})
}

// ToggleShuffle flips shuffle mode.
func (c *Client) ToggleShuffle(ctx context.Context) (*PlayerState, error) {
	return unary(ctx, c.toggleShuffle, &Empty{})
}

// Seek moves the current episode to seconds.
func (c *Client) Seek(ctx context.Context, seconds int) (*PlayerState, error) {
	return unary(ctx, c.seek, &SeekRequest{Seconds: seconds})
}

// Clear empties the queue.
func (c *Client) Clear(ctx context.Context) (*PlayerState, error) {
	return unary(ctx, c.clear, &Empty{})
}

// Watch opens the notification stream.
func (c *Client) Watch(ctx context.Context) (*connect.ServerStreamForClient[Notification], error) {
	return c.watch.CallServerStream(ctx, connect.NewRequest(&Empty{}))
}
