package connect

import (
	"time"

	"github.com/osa030/podcastr/internal/app/notification"
	"github.com/osa030/podcastr/internal/app/playback"
	"github.com/osa030/podcastr/internal/app/surface"
	"github.com/osa030/podcastr/internal/domain/episode"
	"github.com/osa030/podcastr/internal/domain/timefmt"
)

// Empty is the request or response of procedures without parameters.
type Empty struct{}

// PlayRequest starts the catalog at EpisodeID, or at its first episode when
// EpisodeID is empty.
type PlayRequest struct {
	EpisodeID string `json:"episode_id,omitempty"`
}

// SeekRequest moves the current episode to Seconds.
type SeekRequest struct {
	Seconds int `json:"seconds"`
}

// Episode is the wire form of an episode.
type Episode struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Members          string     `json:"members,omitempty"`
	Thumbnail        string     `json:"thumbnail,omitempty"`
	PublishedAt      *time.Time `json:"published_at,omitempty"`
	Duration         int        `json:"duration"`
	DurationAsString string     `json:"duration_as_string"`
	URL              string     `json:"url"`
}

// PlayerState is the wire form of the playback state and adapter status.
type PlayerState struct {
	Queue           []Episode `json:"queue"`
	CurrentIndex    int       `json:"current_index"`
	IsPlaying       bool      `json:"is_playing"`
	IsLooping       bool      `json:"is_looping"`
	IsShuffling     bool      `json:"is_shuffling"`
	HasNext         bool      `json:"has_next"`
	HasPrevious     bool      `json:"has_previous"`
	ProgressSeconds int       `json:"progress_seconds"`
	Progress        string    `json:"progress"`
	Remaining       string    `json:"remaining"`
	Status          string    `json:"status"`
	Surface         string    `json:"surface"`
	Error           string    `json:"error,omitempty"`
}

// Current returns the current episode, if any.
func (s *PlayerState) Current() (Episode, bool) {
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Queue) {
		return Episode{}, false
	}
	return s.Queue[s.CurrentIndex], true
}

// Notification is one update delivered by Watch.
type Notification struct {
	SequenceNo uint64      `json:"sequence_no"`
	Kind       string      `json:"kind"`
	Changed    string      `json:"changed,omitempty"`
	State      PlayerState `json:"state"`
}

func toEpisode(e episode.Episode) Episode {
	out := Episode{
		ID:               e.ID,
		Title:            e.Title,
		Members:          e.Members,
		Thumbnail:        e.Thumbnail,
		Duration:         e.Duration,
		DurationAsString: e.DurationAsString,
		URL:              e.URL,
	}
	if !e.PublishedAt.IsZero() {
		t := e.PublishedAt
		out.PublishedAt = &t
	}
	return out
}

func toPlayerState(snap playback.Snapshot, st surface.Status) PlayerState {
	queue := make([]Episode, len(snap.Queue))
	for i, e := range snap.Queue {
		queue[i] = toEpisode(e)
	}

	out := PlayerState{
		Queue:           queue,
		CurrentIndex:    snap.CurrentIndex,
		IsPlaying:       snap.IsPlaying,
		IsLooping:       snap.IsLooping,
		IsShuffling:     snap.IsShuffling,
		HasNext:         snap.HasNext(),
		HasPrevious:     snap.HasPrevious(),
		ProgressSeconds: snap.ProgressSeconds,
		Progress:        timefmt.FromSeconds(snap.ProgressSeconds),
		Status:          snap.Status().String(),
		Surface:         st.State.String(),
	}
	if cur, ok := snap.Current(); ok {
		out.Remaining = timefmt.Remaining(cur.Duration, snap.ProgressSeconds)
	}
	if st.Err != nil {
		out.Error = st.Err.Error()
	}
	return out
}

func toNotification(u *notification.Update) *Notification {
	n := &Notification{
		SequenceNo: u.SequenceNo,
		Kind:       u.Kind.String(),
		State:      toPlayerState(u.State, u.Status),
	}
	if u.Changed != 0 {
		n.Changed = u.Changed.String()
	}
	return n
}
