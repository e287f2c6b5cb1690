// Package episode provides the Episode domain entity.
package episode

import (
	"time"

	"github.com/osa030/podcastr/internal/domain/timefmt"
)

// Episode represents a playable podcast episode.
// Values are treated as immutable once constructed.
type Episode struct {
	ID               string    // Unique within a queue
	Title            string    // Episode title
	Members          string    // Display string of the people on the episode
	Thumbnail        string    // Thumbnail URL
	Description      string    // HTML description (optional)
	PublishedAt      time.Time // Publication time (zero if unknown)
	Duration         int       // Duration in seconds
	DurationAsString string    // Duration rendered as HH:MM:SS
	URL              string    // Playable media locator
}

// New creates an episode and computes its derived fields.
func New(id, title, members, thumbnail string, duration int, url string) Episode {
	e := Episode{
		ID:        id,
		Title:     title,
		Members:   members,
		Thumbnail: thumbnail,
		Duration:  duration,
		URL:       url,
	}
	return e.withDerived()
}

func (e Episode) withDerived() Episode {
	if e.Duration < 0 {
		e.Duration = 0
	}
	e.DurationAsString = timefmt.FromSeconds(e.Duration)
	return e
}

// IsPlayable reports whether the episode has a media locator.
func (e *Episode) IsPlayable() bool {
	return e.URL != ""
}
