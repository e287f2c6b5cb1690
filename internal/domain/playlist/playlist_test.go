package playlist

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/osa030/podcastr/internal/domain/episode"
)

func sample() []episode.Episode {
	return []episode.Episode{
		episode.New("ep-1", "One", "", "", 60, "https://cdn/1.mp3"),
		episode.New("ep-2", "Two", "", "", 120, "https://cdn/2.mp3"),
		episode.New("ep-3", "Three", "", "", 3600, "https://cdn/3.mp3"),
	}
}

func TestPlaylist_TotalDuration(t *testing.T) {
	p := &Playlist{Episodes: sample()}
	assert.Equal(t, 3780, p.TotalDuration())

	empty := &Playlist{}
	assert.Equal(t, 0, empty.TotalDuration())
}

func TestPlaylist_IndexOf(t *testing.T) {
	p := &Playlist{Episodes: sample()}

	assert.Equal(t, 0, p.IndexOf("ep-1"))
	assert.Equal(t, 2, p.IndexOf("ep-3"))
	assert.Equal(t, -1, p.IndexOf("missing"))
}

func TestPlaylist_Split(t *testing.T) {
	p := &Playlist{Episodes: sample()}

	latest, rest := p.Split(2)
	assert.Len(t, latest, 2)
	assert.Len(t, rest, 1)
	assert.Equal(t, "ep-3", rest[0].ID)

	latest, rest = p.Split(10)
	assert.Len(t, latest, 3)
	assert.Empty(t, rest)

	latest, rest = p.Split(-1)
	assert.Empty(t, latest)
	assert.Len(t, rest, 3)
}
