package source

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/podcastr/internal/domain/episode"
	"github.com/osa030/podcastr/internal/infra/podcastapi"
)

// APISourceConfig holds the settings of an api source.
type APISourceConfig struct {
	BaseURL      string   `mapstructure:"base_url" validate:"required,url"`
	Token        string   `mapstructure:"token"`
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	TokenURL     string   `mapstructure:"token_url" validate:"required_with=ClientID"`
	Scopes       []string `mapstructure:"scopes"`
	Limit        int      `mapstructure:"limit" default:"12" validate:"gte=1,lte=100"`
	TimeoutSec   int      `mapstructure:"timeout_sec" default:"10" validate:"gte=1"`
}

// EpisodeClient is the subset of the podcast API client used by APISource.
type EpisodeClient interface {
	ListEpisodes(ctx context.Context, opts podcastapi.ListOptions) ([]podcastapi.Record, error)
	GetEpisode(ctx context.Context, id string) (podcastapi.Record, error)
}

// APISource lists episodes from the podcast HTTP API.
type APISource struct {
	client EpisodeClient
	limit  int
}

// NewAPISource creates an APISource from its settings.
func NewAPISource(ctx context.Context, settings map[string]any) (*APISource, error) {
	var config APISourceConfig
	if err := decodeSettings(settings, &config); err != nil {
		return nil, err
	}
	zlog.Debug().Msgf("api source config: base_url=%s limit=%d", config.BaseURL, config.Limit)

	client, err := podcastapi.New(ctx, podcastapi.Config{
		BaseURL:      config.BaseURL,
		Timeout:      time.Duration(config.TimeoutSec) * time.Second,
		Token:        config.Token,
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		TokenURL:     config.TokenURL,
		Scopes:       config.Scopes,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create podcast API client")
	}
	return NewAPISourceWithClient(client, config.Limit), nil
}

// NewAPISourceWithClient creates an APISource around an existing client.
func NewAPISourceWithClient(client EpisodeClient, limit int) *APISource {
	return &APISource{client: client, limit: limit}
}

// List returns the newest episodes.
func (s *APISource) List(ctx context.Context) ([]episode.Episode, error) {
	records, err := s.client.ListEpisodes(ctx, podcastapi.ListOptions{Limit: s.limit})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list episodes")
	}
	return episode.DecodeList(records)
}

// Get returns a single episode.
func (s *APISource) Get(ctx context.Context, id string) (episode.Episode, error) {
	record, err := s.client.GetEpisode(ctx, id)
	if errors.Is(err, podcastapi.ErrNotFound) {
		return episode.Episode{}, errors.Wrapf(ErrNotFound, "episode %q", id)
	}
	if err != nil {
		return episode.Episode{}, errors.Wrapf(err, "failed to get episode %q", id)
	}
	return episode.Decode(record)
}

// Name returns the source name.
func (s *APISource) Name() string {
	return "api"
}
