// Package virtual implements a clock-driven audio primitive that renders
// nothing. It lets the player run headless and gives tests a deterministic
// primitive.
package virtual

import (
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/podcastr/internal/app/surface"
	"github.com/osa030/podcastr/internal/infra/media"
)

// FailScheme marks URLs that fail to load.
const FailScheme = "fail://"

// Config represents virtual primitive configuration.
type Config struct {
	// Tick is the wall-clock interval between progress steps. Zero disables
	// the internal clock; the caller drives time with Advance.
	Tick time.Duration
	// Speed multiplies simulated time per tick, default 1.
	Speed float64
	// DefaultDuration is used when a load carries no duration hint.
	DefaultDuration time.Duration
}

var _ surface.Media = (*Player)(nil)

// Player is the virtual primitive.
type Player struct {
	cfg    Config
	events *media.Queue

	mu       sync.Mutex
	token    surface.Token
	loaded   bool
	pending  bool // Metadata not yet reported
	failed   error
	playing  bool
	loop     bool
	position time.Duration
	duration time.Duration

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a virtual primitive and starts its clock when cfg.Tick is set.
func New(cfg Config) *Player {
	if cfg.Speed <= 0 {
		cfg.Speed = 1
	}
	p := &Player{
		cfg:    cfg,
		events: media.NewQueue(),
		stop:   make(chan struct{}),
	}
	if cfg.Tick > 0 {
		p.wg.Add(1)
		go p.run()
	}
	return p
}

func (p *Player) run() {
	defer p.wg.Done()
	ticker := time.NewTicker(p.cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.Advance(time.Duration(float64(p.cfg.Tick) * p.cfg.Speed))
		}
	}
}

// Load replaces the current source. Metadata is reported on the next step.
func (p *Player) Load(req surface.LoadRequest) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.token = req.Token
	p.loaded = false
	p.pending = true
	p.failed = nil
	p.playing = false
	p.position = 0
	p.duration = time.Duration(req.Duration) * time.Second
	if p.duration <= 0 {
		p.duration = p.cfg.DefaultDuration
	}
	if req.URL == "" || strings.HasPrefix(req.URL, FailScheme) {
		p.failed = errors.Newf("cannot load %q", req.URL)
	}
	zlog.Debug().Msgf("virtual: load token=%s duration=%s", req.Token, p.duration)
	return nil
}

func (p *Player) Unload() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.token = surface.Token{}
	p.loaded = false
	p.pending = false
	p.playing = false
	p.position = 0
	return nil
}

func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.loaded {
		return errors.New("no source loaded")
	}
	p.playing = true
	return nil
}

func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = false
	return nil
}

func (p *Player) Seek(seconds int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.loaded {
		return errors.New("no source loaded")
	}
	pos := time.Duration(seconds) * time.Second
	if pos < 0 {
		pos = 0
	}
	if p.duration > 0 && pos > p.duration {
		pos = p.duration
	}
	p.position = pos
	return nil
}

func (p *Player) SetLoop(loop bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loop = loop
	return nil
}

// Events returns the event stream.
func (p *Player) Events() <-chan surface.MediaEvent {
	return p.events.Events()
}

// Close stops the clock and the event stream.
func (p *Player) Close() error {
	p.stopOnce.Do(func() {
		close(p.stop)
		p.wg.Wait()
		p.events.Close()
	})
	return nil
}

// Position returns the simulated playback position.
func (p *Player) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position
}

// Playing reports whether the simulated source is playing.
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// Advance moves simulated time forward by d and reports the resulting
// events.
func (p *Player) Advance(d time.Duration) {
	for _, ev := range p.step(d) {
		p.events.Push(ev)
	}
}

func (p *Player) step(d time.Duration) []surface.MediaEvent {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pending {
		p.pending = false
		if p.failed != nil {
			return []surface.MediaEvent{{Type: surface.EventFailed, Token: p.token, Err: p.failed}}
		}
		p.loaded = true
		return []surface.MediaEvent{{
			Type:     surface.EventMetadataLoaded,
			Token:    p.token,
			Duration: p.duration.Seconds(),
		}}
	}

	if !p.loaded || !p.playing {
		return nil
	}

	p.position += d
	if p.duration <= 0 || p.position < p.duration {
		return []surface.MediaEvent{{Type: surface.EventTimeUpdate, Token: p.token, Position: p.position.Seconds()}}
	}

	if p.loop {
		p.position = 0
		return []surface.MediaEvent{{Type: surface.EventTimeUpdate, Token: p.token, Position: 0}}
	}

	p.position = p.duration
	p.playing = false
	return []surface.MediaEvent{
		{Type: surface.EventTimeUpdate, Token: p.token, Position: p.duration.Seconds()},
		{Type: surface.EventEnded, Token: p.token},
	}
}
