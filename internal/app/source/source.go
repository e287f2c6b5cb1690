// Package source provides episode catalog sources.
package source

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/osa030/podcastr/internal/domain/episode"
)

// ErrNotFound is returned when a source has no episode with the requested ID.
var ErrNotFound = errors.New("episode not found")

// Source is the interface for episode catalog sources.
type Source interface {
	// List returns episodes, newest first.
	List(ctx context.Context) ([]episode.Episode, error)

	// Get returns the episode with the given ID.
	Get(ctx context.Context, id string) (episode.Episode, error)

	// Name returns the source type (used in config).
	Name() string
}

// decodeSettings decodes, defaults and validates a source's settings map.
func decodeSettings(settings map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create settings decoder")
	}
	if err := dec.Decode(settings); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(out); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(out); err != nil {
		return errors.Wrap(err, "validation failed")
	}
	return nil
}
