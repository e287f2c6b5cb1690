package filter

import (
	"context"

	"github.com/osa030/podcastr/internal/domain/episode"
)

// DuplicateEpisodeFilter rejects an episode whose ID was already accepted.
type DuplicateEpisodeFilter struct{}

func (f *DuplicateEpisodeFilter) Name() string {
	return "duplicate_episode"
}

func (f *DuplicateEpisodeFilter) Description() string {
	return "Rejects episodes already present in the queue"
}

func (f *DuplicateEpisodeFilter) ReturnCodes() []string {
	return []string{"duplicate_episode"}
}

func (f *DuplicateEpisodeFilter) Configure(map[string]any) error {
	return nil
}

func (f *DuplicateEpisodeFilter) Check(_ context.Context, e episode.Episode, seen map[string]bool) Result {
	if seen[e.ID] {
		return Reject("duplicate_episode")
	}
	return Accept()
}

func init() {
	Register("duplicate_episode", func() Filter {
		return &DuplicateEpisodeFilter{}
	})
}
