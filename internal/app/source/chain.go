package source

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/podcastr/internal/domain/episode"
)

// SourceWithMetadata wraps a source with its metadata.
type SourceWithMetadata struct {
	Source      Source
	DisplayName string
}

// Chain tries multiple sources in order and returns the first usable result.
type Chain struct {
	sources []SourceWithMetadata
}

// NewChain creates a new source chain.
func NewChain(sources []SourceWithMetadata) *Chain {
	return &Chain{sources: sources}
}

// List returns the episodes of the first source that lists any.
func (c *Chain) List(ctx context.Context) ([]episode.Episode, error) {
	var errs error
	for i, sm := range c.sources {
		zlog.Debug().Msgf("trying source: index=%d total=%d name=%s source_type=%s",
			i+1, len(c.sources), sm.DisplayName, sm.Source.Name())

		episodes, err := sm.Source.List(ctx)
		if err != nil {
			zlog.Warn().Msgf("source failed, trying next: source=%s error=%v", sm.DisplayName, err)
			errs = errors.CombineErrors(errs, errors.Wrapf(err, "source %s", sm.DisplayName))
			continue
		}
		if len(episodes) == 0 {
			zlog.Debug().Msgf("source returned no episodes: source=%s", sm.DisplayName)
			continue
		}

		zlog.Info().Msgf("source returned episodes: source=%s count=%d", sm.DisplayName, len(episodes))
		return episodes, nil
	}

	if errs != nil {
		return nil, errors.Wrap(errs, "all sources failed to list episodes")
	}
	return nil, nil
}

// Get returns the episode from the first source that has it.
func (c *Chain) Get(ctx context.Context, id string) (episode.Episode, error) {
	var errs error
	for _, sm := range c.sources {
		e, err := sm.Source.Get(ctx, id)
		if err == nil {
			return e, nil
		}
		if !errors.Is(err, ErrNotFound) {
			zlog.Warn().Msgf("source failed, trying next: source=%s error=%v", sm.DisplayName, err)
			errs = errors.CombineErrors(errs, errors.Wrapf(err, "source %s", sm.DisplayName))
		}
	}

	if errs != nil {
		return episode.Episode{}, errors.Wrapf(errs, "failed to get episode %q", id)
	}
	return episode.Episode{}, errors.Wrapf(ErrNotFound, "episode %q", id)
}

// Name returns the chain name.
func (c *Chain) Name() string {
	return "source_chain"
}
