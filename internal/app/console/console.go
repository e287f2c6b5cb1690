package console

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/podcastr/internal/app/notification"
	"github.com/osa030/podcastr/internal/app/playback"
	"github.com/osa030/podcastr/internal/app/surface"
)

// Player is the session API driven by the console.
type Player interface {
	TogglePlay(ctx context.Context) error
	PlayNext(ctx context.Context) error
	PlayPrevious(ctx context.Context) error
	ToggleLoop(ctx context.Context) error
	ToggleShuffle(ctx context.Context) error
	Seek(ctx context.Context, seconds int) error
	Snapshot() playback.Snapshot
	Status(ctx context.Context) (surface.Status, error)
	Subscribe(ctx context.Context, stream notification.Stream) (string, error)
	Unsubscribe(id string)
}

// ErrShuffleUnavailable is reported when shuffling a single-episode queue.
var ErrShuffleUnavailable = errors.New("shuffle needs more than one episode")

// Console reads commands from in and writes status lines to out.
type Console struct {
	player Player
	in     io.Reader
	out    io.Writer
}

// New creates a console.
func New(player Player, in io.Reader, out io.Writer) *Console {
	return &Console{player: player, in: in, out: out}
}

// updateStream collects notifications for the console loop.
type updateStream struct {
	ch chan *notification.Update
}

func (s *updateStream) Send(u *notification.Update) error {
	select {
	case s.ch <- u:
	default:
	}
	return nil
}

// Run processes commands until quit, end of input or ctx cancellation.
func (c *Console) Run(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
	}()

	stream := &updateStream{ch: make(chan *notification.Update, 64)}
	id, err := c.player.Subscribe(ctx, stream)
	if err != nil {
		return errors.Wrap(err, "failed to subscribe to player updates")
	}
	defer c.player.Unsubscribe(id)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			cmd, err := ParseCommand(line)
			if errors.Is(err, ErrEmptyCommand) {
				continue
			}
			if err != nil {
				fmt.Fprintf(c.out, "error: %v\n", err)
				continue
			}
			if cmd.Action == ActionQuit {
				return nil
			}
			if err := c.Execute(ctx, cmd); err != nil {
				fmt.Fprintf(c.out, "error: %v\n", err)
			}
		case u := <-stream.ch:
			if u.Kind == notification.KindState && (u.Changed == 0 || u.Changed == playback.ChangeProgress) {
				continue
			}
			fmt.Fprintln(c.out, RenderStatus(u.State, u.Status))
		}
	}
}

// Execute runs one command against the player.
func (c *Console) Execute(ctx context.Context, cmd Command) error {
	zlog.Debug().Msgf("console: command action=%d seconds=%d", cmd.Action, cmd.Seconds)

	switch cmd.Action {
	case ActionTogglePlay:
		return c.player.TogglePlay(ctx)
	case ActionNext:
		return c.player.PlayNext(ctx)
	case ActionPrevious:
		return c.player.PlayPrevious(ctx)
	case ActionToggleLoop:
		return c.player.ToggleLoop(ctx)
	case ActionToggleShuffle:
		snap := c.player.Snapshot()
		if len(snap.Queue) <= 1 && !snap.IsShuffling {
			return ErrShuffleUnavailable
		}
		return c.player.ToggleShuffle(ctx)
	case ActionSeek:
		return c.player.Seek(ctx, cmd.Seconds)
	case ActionSeekRelative:
		target := c.player.Snapshot().ProgressSeconds + cmd.Seconds
		if target < 0 {
			target = 0
		}
		return c.player.Seek(ctx, target)
	case ActionStatus:
		st, err := c.player.Status(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.out, RenderStatus(c.player.Snapshot(), st))
		return nil
	case ActionQueue:
		RenderQueue(c.out, c.player.Snapshot())
		return nil
	case ActionHelp:
		fmt.Fprintln(c.out, helpText)
		return nil
	default:
		return errors.AssertionFailedf("unhandled console action %d", cmd.Action)
	}
}
