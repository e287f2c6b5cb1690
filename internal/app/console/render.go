package console

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/osa030/podcastr/internal/app/playback"
	"github.com/osa030/podcastr/internal/app/surface"
	"github.com/osa030/podcastr/internal/domain/episode"
	"github.com/osa030/podcastr/internal/domain/playlist"
	"github.com/osa030/podcastr/internal/domain/timefmt"
)

// RenderStatus renders the transport status line.
func RenderStatus(snap playback.Snapshot, st surface.Status) string {
	cur, ok := snap.Current()
	if !ok {
		return "[stopped] queue empty"
	}

	icon := "||"
	if snap.IsPlaying {
		icon = ">"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %d/%d %s | %s %s",
		icon, snap.CurrentIndex+1, len(snap.Queue), cur.Title,
		timefmt.FromSeconds(snap.ProgressSeconds),
		timefmt.Remaining(cur.Duration, snap.ProgressSeconds))
	if snap.IsLooping {
		b.WriteString(" [loop]")
	}
	if snap.IsShuffling {
		b.WriteString(" [shuffle]")
	}
	switch st.State {
	case surface.StateLoading:
		b.WriteString(" (loading)")
	case surface.StateUnavailable:
		b.WriteString(" (unavailable")
		if st.Err != nil {
			b.WriteString(": " + st.Err.Error())
		}
		b.WriteString(")")
	}
	return b.String()
}

// RenderQueue writes the queue with the current episode marked.
func RenderQueue(w io.Writer, snap playback.Snapshot) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for i, e := range snap.Queue {
		mark := " "
		if i == snap.CurrentIndex {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s %d\t%s\t%s\n", mark, i+1, e.Title, e.DurationAsString)
	}
	tw.Flush()
	fmt.Fprintf(w, "%d episodes, %s total\n", len(snap.Queue), totalDuration(snap.Queue))
}

func totalDuration(episodes []episode.Episode) string {
	pl := playlist.Playlist{Episodes: episodes}
	return timefmt.FromSeconds(pl.TotalDuration())
}

// RenderList writes the episode listing: the latest episodes first, then
// all episodes with durations and publish dates relative to now.
func RenderList(w io.Writer, latest, all []episode.Episode, now time.Time) {
	section := func(title string, episodes []episode.Episode) {
		fmt.Fprintf(w, "%s\n", title)
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, e := range episodes {
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\n",
				e.ID, e.Title, e.Members, e.DurationAsString, published(e, now))
		}
		tw.Flush()
	}

	if len(latest) > 0 {
		section("Latest episodes", latest)
		fmt.Fprintln(w)
	}
	section(fmt.Sprintf("All episodes (%d, %s)", len(all), totalDuration(all)), all)
}

// RenderEpisode writes the details of one episode.
func RenderEpisode(w io.Writer, e episode.Episode, now time.Time) {
	fmt.Fprintf(w, "%s\n", e.Title)
	if e.Members != "" {
		fmt.Fprintf(w, "  with %s\n", e.Members)
	}
	fmt.Fprintf(w, "  id:        %s\n", e.ID)
	fmt.Fprintf(w, "  duration:  %s\n", e.DurationAsString)
	fmt.Fprintf(w, "  published: %s\n", published(e, now))
	fmt.Fprintf(w, "  url:       %s\n", e.URL)
	if e.Description != "" {
		fmt.Fprintf(w, "\n%s\n", e.Description)
	}
}

func published(e episode.Episode, now time.Time) string {
	if e.PublishedAt.IsZero() {
		return "-"
	}
	return humanize.RelTime(e.PublishedAt, now, "ago", "from now")
}
