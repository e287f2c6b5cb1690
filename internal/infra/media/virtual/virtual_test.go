package virtual

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/podcastr/internal/app/surface"
)

var tok = surface.Token{Generation: 1, EpisodeID: "a"}

func next(t *testing.T, p *Player) surface.MediaEvent {
	t.Helper()
	select {
	case ev := <-p.Events():
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return surface.MediaEvent{}
	}
}

func manual(t *testing.T) *Player {
	t.Helper()
	p := New(Config{})
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestPlayer_PlaysToEnd(t *testing.T) {
	p := manual(t)

	require.NoError(t, p.Load(surface.LoadRequest{Token: tok, URL: "https://cdn/a.mp3", Duration: 3}))
	assert.Error(t, p.Play(), "not loaded before the first step")

	p.Advance(time.Second)
	ev := next(t, p)
	assert.Equal(t, surface.EventMetadataLoaded, ev.Type)
	assert.Equal(t, 3.0, ev.Duration)

	require.NoError(t, p.Play())
	p.Advance(time.Second)
	p.Advance(time.Second)
	assert.Equal(t, 1.0, next(t, p).Position)
	assert.Equal(t, 2.0, next(t, p).Position)

	p.Advance(time.Second)
	assert.Equal(t, 3.0, next(t, p).Position)
	assert.Equal(t, surface.EventEnded, next(t, p).Type)
	assert.False(t, p.Playing())
}

func TestPlayer_LoopRestarts(t *testing.T) {
	p := manual(t)

	require.NoError(t, p.SetLoop(true))
	require.NoError(t, p.Load(surface.LoadRequest{Token: tok, URL: "a", Duration: 1}))
	p.Advance(0)
	next(t, p)
	require.NoError(t, p.Play())

	p.Advance(time.Second)
	ev := next(t, p)
	assert.Equal(t, surface.EventTimeUpdate, ev.Type)
	assert.Equal(t, 0.0, ev.Position)
	assert.True(t, p.Playing())
}

func TestPlayer_PausedDoesNotAdvance(t *testing.T) {
	p := manual(t)

	require.NoError(t, p.Load(surface.LoadRequest{Token: tok, URL: "a", Duration: 10}))
	p.Advance(0)
	next(t, p)

	p.Advance(5 * time.Second)
	assert.Equal(t, time.Duration(0), p.Position())

	require.NoError(t, p.Seek(20))
	assert.Equal(t, 10*time.Second, p.Position())
	require.NoError(t, p.Seek(-1))
	assert.Equal(t, time.Duration(0), p.Position())
}

func TestPlayer_FailingURL(t *testing.T) {
	p := manual(t)

	require.NoError(t, p.Load(surface.LoadRequest{Token: tok, URL: FailScheme + "x"}))
	p.Advance(0)
	ev := next(t, p)
	assert.Equal(t, surface.EventFailed, ev.Type)
	assert.Equal(t, tok, ev.Token)
	assert.Error(t, ev.Err)
}

func TestPlayer_DefaultDuration(t *testing.T) {
	p := New(Config{DefaultDuration: time.Minute})
	defer p.Close()

	require.NoError(t, p.Load(surface.LoadRequest{Token: tok, URL: "a"}))
	p.Advance(0)
	assert.Equal(t, 60.0, next(t, p).Duration)
}

func TestPlayer_Clock(t *testing.T) {
	p := New(Config{Tick: 5 * time.Millisecond, Speed: 200})
	defer p.Close()

	require.NoError(t, p.Load(surface.LoadRequest{Token: tok, URL: "a", Duration: 2}))
	assert.Equal(t, surface.EventMetadataLoaded, next(t, p).Type)
	require.NoError(t, p.Play())

	for {
		ev := next(t, p)
		if ev.Type == surface.EventEnded {
			break
		}
		assert.Equal(t, surface.EventTimeUpdate, ev.Type)
	}
}
