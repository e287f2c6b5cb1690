// Package mpv implements the audio primitive on top of an mpv process
// controlled through its JSON IPC socket.
package mpv

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/podcastr/internal/app/surface"
	"github.com/osa030/podcastr/internal/infra/media"
)

// Config represents mpv backend configuration.
type Config struct {
	Path           string        // mpv binary, default "mpv"
	SocketPath     string        // IPC socket, default under os.TempDir
	ExtraArgs      []string      // Appended to the default arguments
	StartTimeout   time.Duration // Wait for the IPC socket, default 5s
	CommandTimeout time.Duration // Per command, default 2s
}

func (c *Config) setDefaults() {
	if c.Path == "" {
		c.Path = "mpv"
	}
	if c.SocketPath == "" {
		c.SocketPath = filepath.Join(os.TempDir(), fmt.Sprintf("podcastr-mpv-%d.sock", os.Getpid()))
	}
	if c.StartTimeout <= 0 {
		c.StartTimeout = 5 * time.Second
	}
	if c.CommandTimeout <= 0 {
		c.CommandTimeout = 2 * time.Second
	}
}

// observed property IDs
const (
	obsPlaybackTime = iota + 1
	obsDuration
	obsPause
)

var _ surface.Media = (*Player)(nil)

// Player drives an mpv instance. Commands are safe for concurrent use;
// results are reported through Events.
type Player struct {
	cfg    Config
	cmd    *exec.Cmd
	ipc    *ipc
	events *media.Queue

	mu         sync.Mutex
	entries    map[int64]surface.Token // playlist_entry_id to the Load that created it
	orphans    map[int64]message       // end-file seen before its entry was bound
	entry      int64                   // Entry mpv is playing
	started    bool                    // start-file seen for entry and not ended
	current    surface.Token           // Token of entry, valid if hasCurrent
	hasCurrent bool
	loaded     bool // file-loaded seen for entry
	duration   float64
	paused     bool
	expect     *bool // Pause value we commanded and expect to be echoed

	closing atomic.Bool
	exited  chan struct{}
}

// Start launches mpv in idle mode and attaches to its IPC socket.
func Start(ctx context.Context, cfg Config) (*Player, error) {
	cfg.setDefaults()
	_ = os.Remove(cfg.SocketPath)

	args := []string{
		"--idle=yes",
		"--no-video",
		"--no-terminal",
		"--really-quiet",
		"--force-window=no",
		"--keep-open=no",
		"--input-ipc-server=" + cfg.SocketPath,
	}
	args = append(args, cfg.ExtraArgs...)

	cmd := exec.Command(cfg.Path, args...)
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "failed to start %s", cfg.Path)
	}
	zlog.Debug().Msgf("mpv started: pid=%d socket=%s", cmd.Process.Pid, cfg.SocketPath)

	conn, err := dialSocket(ctx, cfg.SocketPath, cfg.StartTimeout)
	if err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, err
	}

	p := newPlayer(cfg)
	p.cmd = cmd
	go p.wait()

	if err := p.attach(ctx, conn); err != nil {
		_ = p.Close()
		return nil, err
	}
	return p, nil
}

// Attach drives an mpv instance that is already listening on conn.
func Attach(ctx context.Context, conn net.Conn, cfg Config) (*Player, error) {
	cfg.setDefaults()
	p := newPlayer(cfg)
	close(p.exited)
	if err := p.attach(ctx, conn); err != nil {
		_ = conn.Close()
		p.events.Close()
		return nil, err
	}
	return p, nil
}

func newPlayer(cfg Config) *Player {
	return &Player{
		cfg:     cfg,
		events:  media.NewQueue(),
		entries: make(map[int64]surface.Token),
		orphans: make(map[int64]message),
		exited:  make(chan struct{}),
	}
}

func dialSocket(ctx context.Context, path string, timeout time.Duration) (net.Conn, error) {
	deadline := time.Now().Add(timeout)
	var d net.Dialer
	for {
		conn, err := d.DialContext(ctx, "unix", path)
		if err == nil {
			return conn, nil
		}
		if time.Now().After(deadline) {
			return nil, errors.Wrapf(err, "mpv socket %s not ready after %s", path, timeout)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}

func (p *Player) attach(ctx context.Context, conn net.Conn) error {
	p.ipc = newIPC(conn, p.handleEvent, p.handleClose)

	observe := []struct {
		id   int
		name string
	}{
		{obsPlaybackTime, "playback-time"},
		{obsDuration, "duration"},
		{obsPause, "pause"},
	}
	for _, o := range observe {
		if _, err := p.call(ctx, "observe_property", o.id, o.name); err != nil {
			return errors.Wrapf(err, "failed to observe %s", o.name)
		}
	}
	return nil
}

func (p *Player) call(ctx context.Context, args ...any) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.CommandTimeout)
	defer cancel()
	return p.ipc.call(ctx, args...)
}

func (p *Player) command(args ...any) error {
	_, err := p.call(context.Background(), args...)
	return err
}

// Load replaces the current file. mpv is paused first so playback only
// starts on Play. The playlist entry created by loadfile is bound to
// req.Token; events of other entries never carry it.
func (p *Player) Load(req surface.LoadRequest) error {
	if err := p.setPause(true); err != nil {
		return err
	}
	zlog.Debug().Msgf("mpv: loadfile token=%s url=%s", req.Token, req.URL)
	data, err := p.call(context.Background(), "loadfile", req.URL, "replace")
	if err != nil {
		return err
	}

	id, err := p.entryID(data)
	if err != nil {
		return err
	}
	p.bind(id, req.Token)
	return nil
}

// entryID reads the playlist entry created by loadfile. mpv before 0.38
// does not report it, so it is read back from the replaced playlist.
func (p *Player) entryID(loadReply json.RawMessage) (int64, error) {
	var reply struct {
		PlaylistEntryID *int64 `json:"playlist_entry_id"`
	}
	if len(loadReply) > 0 && json.Unmarshal(loadReply, &reply) == nil && reply.PlaylistEntryID != nil {
		return *reply.PlaylistEntryID, nil
	}

	data, err := p.call(context.Background(), "get_property", "playlist/0/id")
	if err != nil {
		return 0, errors.Wrap(err, "failed to read playlist entry id")
	}
	var id int64
	if err := json.Unmarshal(data, &id); err != nil {
		return 0, errors.Wrap(err, "invalid playlist entry id")
	}
	return id, nil
}

// bind records the token of entry id. Events mpv already reported for it
// are replayed.
func (p *Player) bind(id int64, tok surface.Token) {
	p.mu.Lock()
	p.entries[id] = tok
	for old := range p.orphans {
		if old < id {
			delete(p.orphans, old)
		}
	}
	orphan, ended := p.orphans[id]
	delete(p.orphans, id)

	var loaded *surface.MediaEvent
	if p.started && p.entry == id && !p.hasCurrent {
		p.current = tok
		p.hasCurrent = true
		if p.loaded {
			loaded = &surface.MediaEvent{Type: surface.EventMetadataLoaded, Token: tok, Duration: p.duration}
		}
	}
	p.mu.Unlock()

	if loaded != nil {
		p.events.Push(*loaded)
	}
	if ended {
		p.handleEndFile(orphan)
	}
}

// Unload stops playback and clears the playlist.
func (p *Player) Unload() error {
	p.mu.Lock()
	p.started = false
	p.hasCurrent = false
	p.loaded = false
	p.mu.Unlock()
	return p.command("stop")
}

func (p *Player) Play() error {
	return p.setPause(false)
}

func (p *Player) Pause() error {
	return p.setPause(true)
}

func (p *Player) Seek(seconds int) error {
	return p.command("seek", seconds, "absolute")
}

func (p *Player) SetLoop(loop bool) error {
	value := "no"
	if loop {
		value = "inf"
	}
	return p.command("set_property", "loop-file", value)
}

// Events returns the event stream.
func (p *Player) Events() <-chan surface.MediaEvent {
	return p.events.Events()
}

// Close quits mpv and releases the socket.
func (p *Player) Close() error {
	if !p.closing.CompareAndSwap(false, true) {
		return nil
	}

	if p.ipc != nil {
		_ = p.command("quit")
		_ = p.ipc.close()
	}

	if p.cmd != nil {
		select {
		case <-p.exited:
		case <-time.After(500 * time.Millisecond):
			zlog.Warn().Msgf("force killing mpv process: pid=%d", p.cmd.Process.Pid)
			_ = p.cmd.Process.Kill()
			<-p.exited
		}
		_ = os.Remove(p.cfg.SocketPath)
	}

	p.events.Close()
	return nil
}

func (p *Player) setPause(paused bool) error {
	p.mu.Lock()
	if p.paused != paused {
		v := paused
		p.expect = &v
	}
	p.mu.Unlock()
	return p.command("set_property", "pause", paused)
}

func (p *Player) wait() {
	err := p.cmd.Wait()
	close(p.exited)
	if p.closing.Load() {
		return
	}
	zlog.Warn().Msgf("mpv exited unexpectedly: %v", err)
	p.failCurrent(errors.Newf("mpv exited: %v", err))
}

func (p *Player) handleClose(err error) {
	if p.closing.Load() {
		return
	}
	if err == nil {
		err = errors.New("connection closed by mpv")
	}
	p.failCurrent(errors.Wrap(err, "mpv IPC"))
}

func (p *Player) failCurrent(err error) {
	p.mu.Lock()
	tok, ok := p.current, p.hasCurrent
	p.started = false
	p.hasCurrent = false
	p.loaded = false
	p.mu.Unlock()
	if ok {
		p.events.Push(surface.MediaEvent{Type: surface.EventFailed, Token: tok, Err: err})
	}
}

func (p *Player) handleEvent(msg message) {
	switch msg.Event {
	case "start-file":
		p.mu.Lock()
		tok, ok := p.entries[msg.PlaylistEntryID]
		p.entry = msg.PlaylistEntryID
		p.started = true
		p.current, p.hasCurrent = tok, ok
		p.loaded = false
		p.duration = 0
		p.mu.Unlock()
		if !ok {
			zlog.Debug().Msgf("mpv: start-file for unbound entry %d", msg.PlaylistEntryID)
		}

	case "file-loaded":
		p.mu.Lock()
		p.loaded = p.started
		tok, ok := p.current, p.hasCurrent && p.started
		duration := p.duration
		p.mu.Unlock()
		if ok {
			p.events.Push(surface.MediaEvent{Type: surface.EventMetadataLoaded, Token: tok, Duration: duration})
		}

	case "end-file":
		p.handleEndFile(msg)

	case "property-change":
		p.handlePropertyChange(msg)
	}
}

func (p *Player) handleEndFile(msg message) {
	p.mu.Lock()
	tok, ok := p.entries[msg.PlaylistEntryID]
	delete(p.entries, msg.PlaylistEntryID)
	if p.started && p.entry == msg.PlaylistEntryID {
		p.started = false
		p.hasCurrent = false
		p.loaded = false
	}
	if !ok {
		p.orphans[msg.PlaylistEntryID] = msg
	}
	p.mu.Unlock()

	if !ok {
		zlog.Debug().Msgf("mpv: end-file for unbound entry %d", msg.PlaylistEntryID)
		return
	}

	zlog.Debug().Msgf("mpv: end-file token=%s reason=%s", tok, msg.Reason)
	switch msg.Reason {
	case "eof":
		p.events.Push(surface.MediaEvent{Type: surface.EventEnded, Token: tok})
	case "error":
		reason := msg.FileError
		if reason == "" {
			reason = "unknown error"
		}
		p.events.Push(surface.MediaEvent{
			Type:  surface.EventFailed,
			Token: tok,
			Err:   errors.Newf("mpv failed to play: %s", reason),
		})
	}
}

func (p *Player) handlePropertyChange(msg message) {
	switch msg.Name {
	case "playback-time":
		var pos float64
		if err := json.Unmarshal(msg.Data, &pos); err != nil {
			return
		}
		p.mu.Lock()
		tok, ok := p.current, p.hasCurrent && p.loaded
		p.mu.Unlock()
		if ok {
			p.events.Push(surface.MediaEvent{Type: surface.EventTimeUpdate, Token: tok, Position: pos})
		}

	case "duration":
		var d float64
		if err := json.Unmarshal(msg.Data, &d); err != nil {
			return
		}
		p.mu.Lock()
		p.duration = d
		p.mu.Unlock()

	case "pause":
		var paused bool
		if err := json.Unmarshal(msg.Data, &paused); err != nil {
			return
		}
		p.mu.Lock()
		p.paused = paused
		echo := p.expect != nil && *p.expect == paused
		if echo {
			p.expect = nil
		}
		tok, ok := p.current, p.hasCurrent && p.loaded
		p.mu.Unlock()

		if echo || !ok {
			return
		}
		typ := surface.EventPlayed
		if paused {
			typ = surface.EventPaused
		}
		p.events.Push(surface.MediaEvent{Type: typ, Token: tok})
	}
}
