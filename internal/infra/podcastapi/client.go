// Package podcastapi provides a client for the podcast episodes HTTP API.
package podcastapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	DefaultLimit   = 12
	DefaultSort    = "published_at"
	DefaultOrder   = "desc"
	defaultTimeout = 10 * time.Second
)

// ErrNotFound is returned when the API has no record for the requested ID.
var ErrNotFound = errors.New("episode not found")

// Record is a loosely typed episode record as returned by the API.
type Record = map[string]any

// APIError represents a non-success response from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("podcast API error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("podcast API error: status %d: %s", e.StatusCode, e.Message)
}

// Config represents podcast API client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration

	// Token is sent as a bearer token when set.
	Token string

	// Client credentials flow, used when ClientID is set.
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scopes       []string
}

// ListOptions controls the episode listing query.
type ListOptions struct {
	Limit int
	Sort  string
	Order string
}

// Client is a podcast episodes API client. Episode details are cached
// per ID for the lifetime of the client.
type Client struct {
	baseURL    string
	httpClient *http.Client

	cache   map[string]Record
	cacheMu sync.RWMutex
}

// New creates a new client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("podcast API base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, errors.Wrap(err, "invalid podcast API base URL")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	var httpClient *http.Client
	switch {
	case cfg.ClientID != "":
		if cfg.TokenURL == "" {
			return nil, errors.New("token URL is required for client credentials")
		}
		cc := &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       cfg.Scopes,
		}
		httpClient = cc.Client(ctx)
	case cfg.Token != "":
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: cfg.Token,
			TokenType:   "Bearer",
		}))
	default:
		httpClient = &http.Client{}
	}
	httpClient.Timeout = timeout

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		cache:      make(map[string]Record),
	}, nil
}

// ListEpisodes retrieves episode records, newest first by default.
func (c *Client) ListEpisodes(ctx context.Context, opts ListOptions) ([]Record, error) {
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.Sort == "" {
		opts.Sort = DefaultSort
	}
	if opts.Order == "" {
		opts.Order = DefaultOrder
	}

	params := url.Values{}
	params.Set("_limit", fmt.Sprintf("%d", opts.Limit))
	params.Set("_sort", opts.Sort)
	params.Set("_order", opts.Order)

	var records []Record
	if err := c.get(ctx, "/episodes?"+params.Encode(), &records); err != nil {
		return nil, err
	}

	c.cacheMu.Lock()
	for _, r := range records {
		if id, ok := recordID(r); ok {
			c.cache[id] = r
		}
	}
	c.cacheMu.Unlock()

	return records, nil
}

// GetEpisode retrieves a single episode record by ID.
func (c *Client) GetEpisode(ctx context.Context, id string) (Record, error) {
	if id == "" {
		return nil, errors.New("episode ID is required")
	}

	c.cacheMu.RLock()
	if r, ok := c.cache[id]; ok {
		c.cacheMu.RUnlock()
		zlog.Debug().Msgf("using cached episode: id=%s", id)
		return r, nil
	}
	c.cacheMu.RUnlock()

	var record Record
	if err := c.get(ctx, "/episodes/"+url.PathEscape(id), &record); err != nil {
		return nil, err
	}

	c.cacheMu.Lock()
	c.cache[id] = record
	c.cacheMu.Unlock()
	zlog.Debug().Msgf("cached episode: id=%s", id)

	return record, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response body")
	}

	if resp.StatusCode == http.StatusNotFound {
		return errors.Wrapf(ErrNotFound, "GET %s", path)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(body)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrap(err, "failed to parse response")
	}
	return nil
}

func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return strings.TrimSpace(string(body))
}

func recordID(r Record) (string, bool) {
	switch v := r["id"].(type) {
	case string:
		return v, v != ""
	case float64:
		return fmt.Sprintf("%.0f", v), true
	default:
		return "", false
	}
}
