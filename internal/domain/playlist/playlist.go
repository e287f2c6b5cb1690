// Package playlist provides the Playlist domain entity: an ordered episode listing
// that can be handed to the player as a queue.
package playlist

import "github.com/osa030/podcastr/internal/domain/episode"

// Playlist represents an ordered list of episodes from a catalog.
type Playlist struct {
	Name     string            // Display name of the listing
	Episodes []episode.Episode // Episodes in listing order
}

// TotalDuration returns the total duration of all episodes in seconds.
func (p *Playlist) TotalDuration() int {
	var total int
	for _, e := range p.Episodes {
		total += e.Duration
	}
	return total
}

// IndexOf returns the position of the episode with the given ID, or -1.
func (p *Playlist) IndexOf(id string) int {
	for i, e := range p.Episodes {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// Split separates the first n episodes ("latest") from the rest.
// Both halves share the playlist's backing array.
func (p *Playlist) Split(n int) (latest, rest []episode.Episode) {
	if n < 0 {
		n = 0
	}
	if n > len(p.Episodes) {
		n = len(p.Episodes)
	}
	return p.Episodes[:n], p.Episodes[n:]
}
