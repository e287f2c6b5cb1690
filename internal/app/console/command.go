// Package console provides the interactive transport controls of the
// podcastr player.
package console

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// Action represents a console command.
type Action int

const (
	ActionTogglePlay Action = iota
	ActionNext
	ActionPrevious
	ActionToggleLoop
	ActionToggleShuffle
	ActionSeek
	ActionSeekRelative
	ActionStatus
	ActionQueue
	ActionHelp
	ActionQuit
)

// Command is a parsed console input line.
type Command struct {
	Action  Action
	Seconds int // For ActionSeek and ActionSeekRelative
}

// ErrEmptyCommand is returned for blank input.
var ErrEmptyCommand = errors.New("empty command")

var aliases = map[string]Action{
	"p": ActionTogglePlay, "play": ActionTogglePlay, "pause": ActionTogglePlay,
	"n": ActionNext, "next": ActionNext,
	"b": ActionPrevious, "prev": ActionPrevious, "previous": ActionPrevious,
	"l": ActionToggleLoop, "loop": ActionToggleLoop,
	"s": ActionToggleShuffle, "shuffle": ActionToggleShuffle,
	"i": ActionStatus, "status": ActionStatus,
	"ls": ActionQueue, "queue": ActionQueue,
	"h": ActionHelp, "help": ActionHelp, "?": ActionHelp,
	"q": ActionQuit, "quit": ActionQuit, "exit": ActionQuit,
}

// ParseCommand parses one input line. "seek 90" seeks to an absolute
// position, "+30" and "-10" seek relative to the current position.
func ParseCommand(line string) (Command, error) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return Command{}, ErrEmptyCommand
	}

	word := fields[0]
	if word == "seek" || word == "g" {
		if len(fields) != 2 {
			return Command{}, errors.New("usage: seek <seconds>")
		}
		secs, err := parseSeconds(fields[1])
		if err != nil {
			return Command{}, err
		}
		return Command{Action: ActionSeek, Seconds: secs}, nil
	}

	if word[0] == '+' || word[0] == '-' {
		secs, err := parseSeconds(word[1:])
		if err != nil {
			return Command{}, err
		}
		if word[0] == '-' {
			secs = -secs
		}
		return Command{Action: ActionSeekRelative, Seconds: secs}, nil
	}

	action, ok := aliases[word]
	if !ok {
		return Command{}, errors.Newf("unknown command %q (h for help)", word)
	}
	return Command{Action: action}, nil
}

// parseSeconds accepts plain seconds or MM:SS / HH:MM:SS.
func parseSeconds(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, errors.Newf("invalid time %q", s)
	}
	total := 0
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, errors.Newf("invalid time %q", s)
		}
		total = total*60 + n
	}
	return total, nil
}

const helpText = `commands:
  p, play, pause    toggle play/pause
  n, next           next episode
  b, prev           previous episode
  l, loop           toggle loop
  s, shuffle        toggle shuffle
  seek <t>          seek to t (seconds, MM:SS or HH:MM:SS)
  +<t>, -<t>        seek forward/backward
  i, status         show status
  ls, queue         show queue
  q, quit           quit`
