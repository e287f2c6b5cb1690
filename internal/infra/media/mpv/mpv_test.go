package mpv

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/podcastr/internal/app/surface"
)

// fakeMPV answers IPC commands on one end of a pipe.
type fakeMPV struct {
	conn net.Conn

	// legacy makes loadfile reply without the created playlist entry,
	// as mpv before 0.38 does.
	legacy bool

	writeMu sync.Mutex
	mu      sync.Mutex
	cmds    [][]any
	entry   int64
}

func newFakeMPV(t *testing.T, legacy bool) (*fakeMPV, net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	f := &fakeMPV{conn: server, legacy: legacy}
	go f.serve()
	t.Cleanup(func() { _ = server.Close() })
	return f, client
}

func (f *fakeMPV) serve() {
	scanner := bufio.NewScanner(f.conn)
	for scanner.Scan() {
		var cmd command
		if err := json.Unmarshal(scanner.Bytes(), &cmd); err != nil {
			continue
		}
		reply := map[string]any{"request_id": cmd.RequestID, "error": "success"}
		f.mu.Lock()
		f.cmds = append(f.cmds, cmd.Command)
		switch fmt.Sprint(cmd.Command...) {
		case "get_propertyplaylist/0/id":
			reply["data"] = f.entry
		default:
			if cmd.Command[0] == "loadfile" {
				f.entry++
				if !f.legacy {
					reply["data"] = map[string]any{"playlist_entry_id": f.entry}
				}
			}
		}
		f.mu.Unlock()
		f.send(reply)
	}
}

func (f *fakeMPV) send(v any) {
	data, _ := json.Marshal(v)
	f.writeMu.Lock()
	defer f.writeMu.Unlock()
	_, _ = f.conn.Write(append(data, '\n'))
}

func (f *fakeMPV) event(name string, fields map[string]any) {
	msg := map[string]any{"event": name}
	for k, v := range fields {
		msg[k] = v
	}
	f.send(msg)
}

func (f *fakeMPV) property(name string, data any) {
	f.event("property-change", map[string]any{"name": name, "data": data})
}

func (f *fakeMPV) commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.cmds))
	for i, c := range f.cmds {
		out[i] = fmt.Sprint(c...)
	}
	return out
}

func attach(t *testing.T) (*Player, *fakeMPV) {
	t.Helper()
	return attachFake(t, false)
}

func attachFake(t *testing.T, legacy bool) (*Player, *fakeMPV) {
	t.Helper()
	f, conn := newFakeMPV(t, legacy)
	p, err := Attach(context.Background(), conn, Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p, f
}

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

func noEvent(t *testing.T, p *Player) {
	t.Helper()
	select {
	case ev := <-p.Events():
		t.Fatalf("unexpected event: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

var tokA = surface.Token{Generation: 1, EpisodeID: "a"}
var tokB = surface.Token{Generation: 2, EpisodeID: "b"}

func TestAttach_ObservesProperties(t *testing.T) {
	_, f := attach(t)

	assert.Equal(t, []string{
		"observe_property1playback-time",
		"observe_property2duration",
		"observe_property3pause",
	}, f.commands())
}

func TestPlayer_LoadAndPlay(t *testing.T) {
	p, f := attach(t)

	require.NoError(t, p.Load(surface.LoadRequest{Token: tokA, URL: "https://cdn/a.mp3"}))
	cmds := f.commands()
	assert.Equal(t, "set_propertypausetrue", cmds[len(cmds)-2])
	assert.Equal(t, "loadfilehttps://cdn/a.mp3replace", cmds[len(cmds)-1])

	f.event("start-file", map[string]any{"playlist_entry_id": 1})
	f.property("duration", 125.5)
	f.event("file-loaded", nil)

	ev := next(t, p)
	assert.Equal(t, surface.EventMetadataLoaded, ev.Type)
	assert.Equal(t, tokA, ev.Token)
	assert.Equal(t, 125.5, ev.Duration)

	f.property("playback-time", 3.7)
	ev = next(t, p)
	assert.Equal(t, surface.EventTimeUpdate, ev.Type)
	assert.Equal(t, 3.7, ev.Position)

	f.event("end-file", map[string]any{"playlist_entry_id": 1, "reason": "eof"})
	ev = next(t, p)
	assert.Equal(t, surface.EventEnded, ev.Type)
	assert.Equal(t, tokA, ev.Token)
}

func TestPlayer_StaleEndFileKeepsItsToken(t *testing.T) {
	p, f := attach(t)

	require.NoError(t, p.Load(surface.LoadRequest{Token: tokA, URL: "a"}))
	f.event("start-file", map[string]any{"playlist_entry_id": 1})
	f.event("file-loaded", nil)
	assert.Equal(t, tokA, next(t, p).Token)

	require.NoError(t, p.Load(surface.LoadRequest{Token: tokB, URL: "b"}))
	f.event("end-file", map[string]any{"playlist_entry_id": 1, "reason": "stop"})
	f.event("start-file", map[string]any{"playlist_entry_id": 2})
	f.event("end-file", map[string]any{"playlist_entry_id": 2, "reason": "error", "file_error": "loading failed"})

	ev := next(t, p)
	assert.Equal(t, surface.EventFailed, ev.Type)
	assert.Equal(t, tokB, ev.Token)
	assert.Contains(t, ev.Err.Error(), "loading failed")
}

func TestPlayer_PauseEchoSuppressed(t *testing.T) {
	p, f := attach(t)

	require.NoError(t, p.Load(surface.LoadRequest{Token: tokA, URL: "a"}))
	f.property("pause", true)
	f.event("start-file", map[string]any{"playlist_entry_id": 1})
	f.event("file-loaded", nil)
	assert.Equal(t, surface.EventMetadataLoaded, next(t, p).Type)

	require.NoError(t, p.Play())
	f.property("pause", false)
	noEvent(t, p)

	// Paused from outside, e.g. by an mpv key binding.
	f.property("pause", true)
	ev := next(t, p)
	assert.Equal(t, surface.EventPaused, ev.Type)
	assert.Equal(t, tokA, ev.Token)
}

func TestPlayer_TimeUpdateIgnoredBeforeLoad(t *testing.T) {
	p, f := attach(t)

	f.property("playback-time", 1.0)
	noEvent(t, p)
}

func TestPlayer_Commands(t *testing.T) {
	p, f := attach(t)

	require.NoError(t, p.Seek(42))
	require.NoError(t, p.SetLoop(true))
	require.NoError(t, p.SetLoop(false))
	require.NoError(t, p.Unload())

	cmds := f.commands()
	assert.Equal(t, []string{
		"seek42absolute",
		"set_propertyloop-fileinf",
		"set_propertyloop-fileno",
		"stop",
	}, cmds[len(cmds)-4:])
}

func TestPlayer_ConnectionLossFailsCurrent(t *testing.T) {
	p, f := attach(t)

	require.NoError(t, p.Load(surface.LoadRequest{Token: tokA, URL: "a"}))
	f.event("start-file", map[string]any{"playlist_entry_id": 1})
	f.event("file-loaded", nil)
	assert.Equal(t, surface.EventMetadataLoaded, next(t, p).Type)

	require.NoError(t, f.conn.Close())
	ev := next(t, p)
	assert.Equal(t, surface.EventFailed, ev.Type)
	assert.Equal(t, tokA, ev.Token)

	assert.ErrorIs(t, p.Seek(1), ErrClosed)
}

func TestPlayer_SupersededLoadKeepsItsToken(t *testing.T) {
	tests := []struct {
		name   string
		legacy bool
	}{
		{name: "entry id in loadfile reply"},
		{name: "entry id read from playlist", legacy: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, f := attachFake(t, tt.legacy)

			require.NoError(t, p.Load(surface.LoadRequest{Token: tokA, URL: "a"}))
			require.NoError(t, p.Load(surface.LoadRequest{Token: tokB, URL: "b"}))

			// mpv reports A only after B was requested.
			f.event("start-file", map[string]any{"playlist_entry_id": 1})
			f.property("duration", 999.0)
			f.event("file-loaded", nil)
			ev := next(t, p)
			assert.Equal(t, surface.EventMetadataLoaded, ev.Type)
			assert.Equal(t, tokA, ev.Token)
			f.property("playback-time", 500.0)
			assert.Equal(t, tokA, next(t, p).Token)

			f.event("end-file", map[string]any{"playlist_entry_id": 1, "reason": "stop"})
			f.event("start-file", map[string]any{"playlist_entry_id": 2})
			f.property("duration", 60.0)
			f.event("file-loaded", nil)
			ev = next(t, p)
			assert.Equal(t, surface.EventMetadataLoaded, ev.Type)
			assert.Equal(t, tokB, ev.Token)
			assert.Equal(t, 60.0, ev.Duration)
		})
	}
}

func TestPlayer_UnboundEntryEventsDropped(t *testing.T) {
	p, f := attach(t)

	f.event("start-file", map[string]any{"playlist_entry_id": 7})
	f.event("file-loaded", nil)
	f.property("playback-time", 1.0)
	f.property("pause", false)
	f.event("end-file", map[string]any{"playlist_entry_id": 7, "reason": "eof"})
	noEvent(t, p)
}

func TestPlayer_EventsBeforeBindReplayed(t *testing.T) {
	p, f := attach(t)

	// mpv may report the new entry before answering loadfile.
	f.event("start-file", map[string]any{"playlist_entry_id": 1})
	f.event("file-loaded", nil)
	f.event("end-file", map[string]any{"playlist_entry_id": 1, "reason": "error", "file_error": "no such file"})
	noEvent(t, p)

	require.NoError(t, p.Load(surface.LoadRequest{Token: tokA, URL: "a"}))
	ev := next(t, p)
	assert.Equal(t, surface.EventFailed, ev.Type)
	assert.Equal(t, tokA, ev.Token)
}
