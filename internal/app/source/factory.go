package source

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/podcastr/internal/infra/config"
)

// NewChainFromConfig creates a source chain from configuration.
func NewChainFromConfig(ctx context.Context, cfg *config.Config) (*Chain, error) {
	if len(cfg.Sources) == 0 {
		return nil, errors.New("no episode sources configured")
	}

	var sources []SourceWithMetadata

	for i, scfg := range cfg.Sources {
		var src Source
		var err error
		zlog.Debug().Msgf("creating episode source: index=%d type=%s", i+1, scfg.Type)
		switch scfg.Type {
		case "api":
			src, err = NewAPISource(ctx, scfg.Settings)

		case "file":
			src, err = NewFileSource(scfg.Settings)

		default:
			return nil, errors.Newf("unsupported source type: %s (source index %d)", scfg.Type, i)
		}

		if err != nil {
			return nil, errors.Wrapf(err, "failed to create source (index %d, type %s)", i, scfg.Type)
		}

		sources = append(sources, SourceWithMetadata{
			Source:      src,
			DisplayName: scfg.DisplayName,
		})

		zlog.Info().Msgf("registered episode source: index=%d type=%s display_name=%s", i+1, scfg.Type, scfg.DisplayName)
	}

	return NewChain(sources), nil
}
