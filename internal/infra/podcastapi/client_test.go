package podcastapi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.Error(t, err)

	_, err = New(context.Background(), Config{BaseURL: "http://x", ClientID: "id"})
	assert.Error(t, err, "client credentials need a token URL")
}

func TestListEpisodes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/episodes", r.URL.Path)
		assert.Equal(t, "12", r.URL.Query().Get("_limit"))
		assert.Equal(t, "published_at", r.URL.Query().Get("_sort"))
		assert.Equal(t, "desc", r.URL.Query().Get("_order"))
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[
			{"id": 1, "title": "First", "file": {"url": "https://cdn/1.mp3", "duration": 60}},
			{"id": "2", "title": "Second", "file": {"url": "https://cdn/2.mp3", "duration": 90}}
		]`)
	}))
	defer server.Close()

	client, err := New(context.Background(), Config{BaseURL: server.URL + "/", Token: "test-token"})
	require.NoError(t, err)

	records, err := client.ListEpisodes(context.Background(), ListOptions{})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "First", records[0]["title"])
}

func TestGetEpisode_UsesCache(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/episodes/42", r.URL.Path)
		fmt.Fprint(w, `{"id": "42", "title": "Answer"}`)
	}))
	defer server.Close()

	client, err := New(context.Background(), Config{BaseURL: server.URL})
	require.NoError(t, err)

	ctx := context.Background()
	first, err := client.GetEpisode(ctx, "42")
	require.NoError(t, err)
	second, err := client.GetEpisode(ctx, "42")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetEpisode_ServedFromListing(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `[{"id": 7, "title": "Seven"}]`)
	}))
	defer server.Close()

	client, err := New(context.Background(), Config{BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.ListEpisodes(context.Background(), ListOptions{Limit: 1})
	require.NoError(t, err)
	r, err := client.GetEpisode(context.Background(), "7")
	require.NoError(t, err)

	assert.Equal(t, "Seven", r["title"])
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetEpisode_Errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantErr    error
		wantStatus int
		wantMsg    string
	}{
		{
			name:    "not found",
			status:  http.StatusNotFound,
			body:    `{}`,
			wantErr: ErrNotFound,
		},
		{
			name:       "server error with message",
			status:     http.StatusInternalServerError,
			body:       `{"message": "database down"}`,
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "database down",
		},
		{
			name:       "unauthorized plain body",
			status:     http.StatusUnauthorized,
			body:       "unauthorized\n",
			wantStatus: http.StatusUnauthorized,
			wantMsg:    "unauthorized",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			client, err := New(context.Background(), Config{BaseURL: server.URL})
			require.NoError(t, err)

			_, err = client.GetEpisode(context.Background(), "1")
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr))
				return
			}
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.wantStatus, apiErr.StatusCode)
			assert.Equal(t, tt.wantMsg, apiErr.Message)
		})
	}
}

func TestGetEpisode_BadJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{not json`)
	}))
	defer server.Close()

	client, err := New(context.Background(), Config{BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.GetEpisode(context.Background(), "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse response")
}
