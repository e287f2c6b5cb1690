package filter

import (
	"context"
	"sort"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/podcastr/internal/domain/episode"
	"github.com/osa030/podcastr/internal/infra/config"
)

// Rejection records an episode dropped by the chain.
type Rejection struct {
	Episode episode.Episode
	Filter  string
	Code    string
}

// Chain executes filters in sequence.
type Chain struct {
	filters []Filter
}

// NewChain creates a new filter chain.
func NewChain() *Chain {
	return &Chain{
		filters: make([]Filter, 0),
	}
}

// NewChainFromConfig builds a chain from the enabled filters in cfg, in
// name order.
func NewChainFromConfig(cfg *config.Config) (*Chain, error) {
	names := make([]string, 0, len(cfg.Filters))
	for name := range cfg.Filters {
		if cfg.IsFilterEnabled(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	c := NewChain()
	for _, name := range names {
		factory, ok := registry[name]
		if !ok {
			return nil, errors.Newf("unknown filter: %s", name)
		}
		f := factory()
		if err := f.Configure(cfg.FilterSettings(name)); err != nil {
			return nil, errors.Wrapf(err, "filter %s", name)
		}
		c.Add(f)
		zlog.Info().Msgf("registered filter: name=%s", name)
	}
	return c, nil
}

// Add adds a filter to the chain.
func (c *Chain) Add(f Filter) {
	c.filters = append(c.filters, f)
}

// Check runs all filters against e. Returns the first rejection.
func (c *Chain) Check(ctx context.Context, e episode.Episode, seen map[string]bool) (Result, string) {
	for _, f := range c.filters {
		result := f.Check(ctx, e, seen)
		if !result.Accepted {
			return result, f.Name()
		}
	}
	return Accept(), ""
}

// Apply returns the accepted episodes in order, and the rejected ones.
func (c *Chain) Apply(ctx context.Context, episodes []episode.Episode) ([]episode.Episode, []Rejection) {
	accepted := make([]episode.Episode, 0, len(episodes))
	var rejected []Rejection
	seen := make(map[string]bool, len(episodes))

	for _, e := range episodes {
		result, name := c.Check(ctx, e, seen)
		if !result.Accepted {
			zlog.Debug().Msgf("episode rejected: id=%s filter=%s code=%s", e.ID, name, result.Code)
			rejected = append(rejected, Rejection{Episode: e, Filter: name, Code: result.Code})
			continue
		}
		seen[e.ID] = true
		accepted = append(accepted, e)
	}
	return accepted, rejected
}

// Filters returns all filters in the chain.
func (c *Chain) Filters() []Filter {
	return c.filters
}
