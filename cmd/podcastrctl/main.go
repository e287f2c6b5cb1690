// Package main provides the remote-control CLI for a podcastr server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	apiconnect "github.com/osa030/podcastr/internal/api/connect"
	"github.com/osa030/podcastr/internal/app/console"
)

var (
	app    = kingpin.New("podcastrctl", "podcastr remote control")
	server = app.Flag("server", "Server address").Default("http://localhost:8080").String()
	token  = app.Flag("token", "Server token").Envar("PODCASTR_SERVER_TOKEN").String()

	stateCmd = app.Command("state", "Show the player state").Default()

	playCmd = app.Command("play", "Queue the catalog and play")
	playID  = playCmd.Arg("id", "Episode ID to start from").String()

	toggleCmd   = app.Command("toggle", "Toggle play/pause")
	nextCmd     = app.Command("next", "Play the next episode")
	previousCmd = app.Command("previous", "Play the previous episode")
	loopCmd     = app.Command("loop", "Toggle loop")
	shuffleCmd  = app.Command("shuffle", "Toggle shuffle")
	clearCmd    = app.Command("clear", "Clear the queue")

	seekCmd  = app.Command("seek", "Seek the current episode")
	seekTime = seekCmd.Arg("time", "Position (seconds, MM:SS or HH:MM:SS)").Required().String()

	watchCmd = app.Command("watch", "Watch player notifications")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	client := apiconnect.NewClient(http.DefaultClient, *server, *token)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		state *apiconnect.PlayerState
		err   error
	)
	switch command {
	case stateCmd.FullCommand():
		state, err = client.GetState(ctx)
	case playCmd.FullCommand():
		state, err = client.Play(ctx, *playID)
	case toggleCmd.FullCommand():
		state, err = client.TogglePlay(ctx)
	case nextCmd.FullCommand():
		state, err = client.Next(ctx)
	case previousCmd.FullCommand():
		state, err = client.Previous(ctx)
	case loopCmd.FullCommand():
		state, err = client.ToggleLoop(ctx)
	case shuffleCmd.FullCommand():
		state, err = client.ToggleShuffle(ctx)
	case clearCmd.FullCommand():
		state, err = client.Clear(ctx)
	case seekCmd.FullCommand():
		var cmd console.Command
		cmd, err = console.ParseCommand("seek " + *seekTime)
		if err == nil {
			state, err = client.Seek(ctx, cmd.Seconds)
		}
	case watchCmd.FullCommand():
		err = watch(ctx, client)
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if state != nil {
		printState(state)
	}
}

func watch(ctx context.Context, client *apiconnect.Client) error {
	stream, err := client.Watch(ctx)
	if err != nil {
		return err
	}
	defer stream.Close()

	fmt.Println("Watching notifications. Press Ctrl+C to exit.")
	for stream.Receive() {
		n := stream.Msg()
		if n.Changed == "progress" {
			continue
		}
		fmt.Printf("\n[Sequence: %d] %s", n.SequenceNo, n.Kind)
		if n.Changed != "" {
			fmt.Printf(" (%s)", n.Changed)
		}
		fmt.Println()
		printState(&n.State)
	}
	if err := stream.Err(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func printState(s *apiconnect.PlayerState) {
	cur, ok := s.Current()
	if !ok {
		fmt.Println("Queue empty")
		return
	}

	icon := "Paused"
	if s.IsPlaying {
		icon = "Playing"
	}
	fmt.Printf("%s %d/%d: %s\n", icon, s.CurrentIndex+1, len(s.Queue), cur.Title)
	fmt.Printf("  Position:  %s (%s)\n", s.Progress, s.Remaining)
	fmt.Printf("  Loop:      %v\n", s.IsLooping)
	fmt.Printf("  Shuffle:   %v\n", s.IsShuffling)
	fmt.Printf("  Surface:   %s\n", s.Surface)
	if s.Error != "" {
		fmt.Printf("  Error:     %s\n", s.Error)
	}
}
