package filter

import (
	"context"
	"net/url"

	"github.com/osa030/podcastr/internal/domain/episode"
)

// PlayableConfig represents the configuration for PlayableFilter.
type PlayableConfig struct {
	Schemes []string `mapstructure:"schemes" default:"[\"http\",\"https\",\"file\"]" validate:"min=1,dive,required"`
}

// PlayableFilter rejects episodes without a usable media URL.
type PlayableFilter struct {
	schemes map[string]bool
}

func (f *PlayableFilter) Name() string {
	return "playable"
}

func (f *PlayableFilter) Description() string {
	return "Rejects episodes without a playable media URL"
}

func (f *PlayableFilter) ReturnCodes() []string {
	return []string{"not_playable"}
}

func (f *PlayableFilter) Configure(settings map[string]any) error {
	var config PlayableConfig
	if err := decodeSettings(settings, &config); err != nil {
		return err
	}
	f.schemes = make(map[string]bool, len(config.Schemes))
	for _, s := range config.Schemes {
		f.schemes[s] = true
	}
	return nil
}

func (f *PlayableFilter) Check(_ context.Context, e episode.Episode, _ map[string]bool) Result {
	if !e.IsPlayable() {
		return Reject("not_playable")
	}
	if f.schemes == nil {
		return Accept()
	}
	u, err := url.Parse(e.URL)
	if err != nil || !f.schemes[u.Scheme] {
		return Reject("not_playable")
	}
	return Accept()
}

func init() {
	Register("playable", func() Filter {
		return &PlayableFilter{}
	})
}
