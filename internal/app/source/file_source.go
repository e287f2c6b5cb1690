package source

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/osa030/podcastr/internal/domain/episode"
)

// FileSourceConfig holds the settings of a file source.
type FileSourceConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// FileSource reads episodes from a local JSON or YAML catalog. The file is
// re-read on every List so edits are picked up without a restart.
type FileSource struct {
	path string
}

// NewFileSource creates a FileSource from its settings.
func NewFileSource(settings map[string]any) (*FileSource, error) {
	var config FileSourceConfig
	if err := decodeSettings(settings, &config); err != nil {
		return nil, err
	}
	return &FileSource{path: config.Path}, nil
}

// List returns the catalog's episodes, newest first.
func (s *FileSource) List(ctx context.Context) ([]episode.Episode, error) {
	records, err := s.read()
	if err != nil {
		return nil, err
	}
	episodes, err := episode.DecodeList(records)
	if err != nil {
		return nil, errors.Wrapf(err, "catalog %s", s.path)
	}
	sort.SliceStable(episodes, func(i, j int) bool {
		return episodes[i].PublishedAt.After(episodes[j].PublishedAt)
	})
	return episodes, nil
}

// Get returns the episode with the given ID.
func (s *FileSource) Get(ctx context.Context, id string) (episode.Episode, error) {
	episodes, err := s.List(ctx)
	if err != nil {
		return episode.Episode{}, err
	}
	for _, e := range episodes {
		if e.ID == id {
			return e, nil
		}
	}
	return episode.Episode{}, errors.Wrapf(ErrNotFound, "episode %q", id)
}

// Name returns the source name.
func (s *FileSource) Name() string {
	return "file"
}

func (s *FileSource) read() ([]map[string]any, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read catalog")
	}

	var records []map[string]any
	switch strings.ToLower(filepath.Ext(s.path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &records)
	default:
		err = json.Unmarshal(data, &records)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse catalog %s", s.path)
	}
	return records, nil
}
