// Package main provides the podcastr player entry point.
package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/podcastr/internal/app/console"
	"github.com/osa030/podcastr/internal/app/filter"
	"github.com/osa030/podcastr/internal/app/playback"
	"github.com/osa030/podcastr/internal/app/session"
	"github.com/osa030/podcastr/internal/app/source"
	"github.com/osa030/podcastr/internal/app/surface"
	"github.com/osa030/podcastr/internal/domain/playlist"
	"github.com/osa030/podcastr/internal/infra/config"
	"github.com/osa030/podcastr/internal/infra/logger"
	"github.com/osa030/podcastr/internal/infra/media/mpv"
	"github.com/osa030/podcastr/internal/infra/media/virtual"
)

var (
	app        = kingpin.New("podcastr", "podcastr podcast player")
	configPath = app.Flag("config", "Path to config file").Default("config/podcastr.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file").String()
	backend    = app.Flag("backend", "Override the audio backend (mpv, virtual)").Enum("mpv", "virtual")

	// list command
	listCmd = app.Command("list", "List episodes")

	// show command
	showCmd = app.Command("show", "Show one episode")
	showID  = showCmd.Arg("id", "Episode ID").Required().String()

	// play command
	playCmd     = app.Command("play", "Play episodes with interactive controls").Default()
	playID      = playCmd.Arg("id", "Episode ID to start from (default: newest)").String()
	playIndex   = playCmd.Flag("index", "Queue index to start from").Default("0").Int()
	playLoop    = playCmd.Flag("loop", "Start with loop enabled").Bool()
	playShuffle = playCmd.Flag("shuffle", "Start with shuffle enabled").Bool()

	// serve command
	serveCmd = app.Command("serve", "Run the remote-control server")

	// list-filters command
	listFiltersCmd = app.Command("list-filters", "List available filters and exit")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if command == listFiltersCmd.FullCommand() {
		printFilters()
		return
	}

	// The play console owns the terminal, so its log goes to a file or nowhere.
	loggerConfig := logger.Config{Output: "stderr", Level: "info"}
	if command == playCmd.FullCommand() {
		loggerConfig.Output = "discard"
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	closer, err := logger.Init(loggerConfig)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer closer.Close()

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *backend != "" {
		cfg.Player.Backend = *backend
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch command {
	case listCmd.FullCommand():
		err = list(ctx, cfg)
	case showCmd.FullCommand():
		err = show(ctx, cfg, *showID)
	case playCmd.FullCommand():
		cfg.Player.Loop = cfg.Player.Loop || *playLoop
		cfg.Player.Shuffle = cfg.Player.Shuffle || *playShuffle
		err = play(ctx, cfg, *playID, *playIndex)
	case serveCmd.FullCommand():
		err = serve(ctx, cfg)
	}
	if err != nil {
		zlog.Error().Msgf("%s: %v", command, err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadCatalog fetches the episode listing and applies the enabled filters.
func loadCatalog(ctx context.Context, cfg *config.Config) (*playlist.Playlist, error) {
	sources, err := source.NewChainFromConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create sources")
	}
	filters, err := filter.NewChainFromConfig(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "invalid filter config")
	}

	episodes, err := sources.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list episodes")
	}
	accepted, rejected := filters.Apply(ctx, episodes)
	for _, r := range rejected {
		zlog.Debug().Msgf("Episode filtered: id=%s filter=%s code=%s", r.Episode.ID, r.Filter, r.Code)
	}

	return &playlist.Playlist{Name: sources.Name(), Episodes: accepted}, nil
}

func list(ctx context.Context, cfg *config.Config) error {
	pl, err := loadCatalog(ctx, cfg)
	if err != nil {
		return err
	}
	latest, _ := pl.Split(cfg.Player.LatestCount)
	console.RenderList(os.Stdout, latest, pl.Episodes, time.Now())
	return nil
}

func show(ctx context.Context, cfg *config.Config, id string) error {
	sources, err := source.NewChainFromConfig(ctx, cfg)
	if err != nil {
		return errors.Wrap(err, "failed to create sources")
	}
	e, err := sources.Get(ctx, id)
	if err != nil {
		return errors.Wrapf(err, "failed to get episode %s", id)
	}
	console.RenderEpisode(os.Stdout, e, time.Now())
	return nil
}

func play(ctx context.Context, cfg *config.Config, id string, index int) error {
	pl, err := loadCatalog(ctx, cfg)
	if err != nil {
		return err
	}
	if len(pl.Episodes) == 0 {
		return errors.Newf("no playable episodes in %s", pl.Name)
	}

	sess, err := startSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer sess.Close()

	if id != "" {
		err = sess.PlayFrom(ctx, pl, id)
	} else {
		err = sess.PlayList(ctx, pl.Episodes, index)
	}
	if err != nil {
		return errors.Wrap(err, "failed to start playback")
	}

	fmt.Printf("Playing %s (%d episodes). Type h for help.\n", pl.Name, len(pl.Episodes))
	err = console.New(sess, os.Stdin, os.Stdout).Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// startSession creates the audio backend and runs a session over it.
func startSession(ctx context.Context, cfg *config.Config) (*session.Manager, error) {
	media, err := newMedia(ctx, cfg.Player)
	if err != nil {
		return nil, err
	}

	sess := session.NewManager(media, playbackConfig(cfg.Player))
	go func() {
		if err := sess.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			zlog.Error().Msgf("Session stopped: %v", err)
		}
	}()
	zlog.Info().Msgf("Session started: id=%s backend=%s", sess.ID(), cfg.Player.Backend)
	return sess, nil
}

func newMedia(ctx context.Context, cfg config.PlayerConfig) (surface.Media, error) {
	switch cfg.Backend {
	case "virtual":
		return virtual.New(virtual.Config{Tick: cfg.TickInterval()}), nil
	default:
		p, err := mpv.Start(ctx, mpv.Config{Path: cfg.MPVPath})
		if err != nil {
			return nil, errors.Wrap(err, "failed to start mpv")
		}
		return p, nil
	}
}

func playbackConfig(cfg config.PlayerConfig) playback.Config {
	pc := playback.Config{Looping: cfg.Loop, Shuffling: cfg.Shuffle}
	if cfg.ShuffleSeed != 0 {
		pc.Rand = rand.New(rand.NewPCG(cfg.ShuffleSeed, cfg.ShuffleSeed))
	}
	return pc
}

// printFilters prints available filters.
func printFilters() {
	registry := filter.GetRegistered()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("Available Filters:")
	for _, name := range names {
		f := registry[name]()
		codes := strings.Join(f.ReturnCodes(), ", ")
		fmt.Printf("  %-20s - %s [codes: %s]\n", name, f.Description(), codes)
	}
}
