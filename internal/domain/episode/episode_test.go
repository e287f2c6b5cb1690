package episode

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DerivesDurationString(t *testing.T) {
	e := New("a", "Episode A", "Diego, Rafa", "https://cdn/a.jpg", 125, "https://cdn/a.mp3")

	assert.Equal(t, "a", e.ID)
	assert.Equal(t, 125, e.Duration)
	assert.Equal(t, "00:02:05", e.DurationAsString)
	assert.True(t, e.IsPlayable())
}

func TestNew_NegativeDurationClamped(t *testing.T) {
	e := New("a", "Episode A", "", "", -3, "https://cdn/a.mp3")

	assert.Equal(t, 0, e.Duration)
	assert.Equal(t, "00:00:00", e.DurationAsString)
}

func TestDecode_NestedFile(t *testing.T) {
	record := map[string]any{
		"id":           "a-importancia-da-contribuicao-em-open-source",
		"title":        "A importância da contribuição em Open Source",
		"members":      "Diego Fernandes, João Pedro, Diego Haz e Bruno Lemos",
		"published_at": "2021-01-22 15:00:00",
		"thumbnail":    "https://cdn/opensource.jpg",
		"description":  "<p>Nesse episódio...</p>",
		"file": map[string]any{
			"url":      "https://cdn/opensource.m4a",
			"type":     "audio/x-m4a",
			"duration": float64(3981),
		},
	}

	e, err := Decode(record)
	require.NoError(t, err)

	assert.Equal(t, "a-importancia-da-contribuicao-em-open-source", e.ID)
	assert.Equal(t, "https://cdn/opensource.m4a", e.URL)
	assert.Equal(t, 3981, e.Duration)
	assert.Equal(t, "01:06:21", e.DurationAsString)
	assert.Equal(t, time.Date(2021, 1, 22, 15, 0, 0, 0, time.UTC), e.PublishedAt)
}

func TestDecode_FlatRecord(t *testing.T) {
	record := map[string]any{
		"id":       "b",
		"title":    "Episode B",
		"members":  []any{"Ana", "Bia"},
		"url":      "https://cdn/b.mp3",
		"duration": "65",
	}

	e, err := Decode(record)
	require.NoError(t, err)

	assert.Equal(t, "Ana, Bia", e.Members)
	assert.Equal(t, 65, e.Duration)
	assert.Equal(t, "00:01:05", e.DurationAsString)
	assert.True(t, e.PublishedAt.IsZero())
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		record  map[string]any
		field   string
		missing bool
	}{
		{
			name:    "missing id",
			record:  map[string]any{"url": "https://cdn/a.mp3", "duration": 10},
			field:   "id",
			missing: true,
		},
		{
			name:    "missing url",
			record:  map[string]any{"id": "a", "duration": 10},
			field:   "url",
			missing: true,
		},
		{
			name:    "missing duration",
			record:  map[string]any{"id": "a", "file": map[string]any{"url": "https://cdn/a.mp3"}},
			field:   "duration",
			missing: true,
		},
		{
			name:   "negative duration",
			record: map[string]any{"id": "a", "url": "https://cdn/a.mp3", "duration": -1},
			field:  "duration",
		},
		{
			name:   "malformed duration",
			record: map[string]any{"id": "a", "url": "https://cdn/a.mp3", "duration": "long"},
			field:  "duration",
		},
		{
			name:   "blank duration",
			record: map[string]any{"id": "a", "url": "https://cdn/a.mp3", "duration": ""},
			field:  "duration",
		},
		{
			name:   "blank nested duration",
			record: map[string]any{"id": "a", "file": map[string]any{"url": "https://cdn/a.mp3", "duration": " "}},
			field:  "file.duration",
		},
		{
			name:   "malformed published_at",
			record: map[string]any{"id": "a", "url": "https://cdn/a.mp3", "duration": 1, "published_at": "yesterday"},
			field:  "published_at",
		},
		{
			name:   "malformed members",
			record: map[string]any{"id": "a", "url": "https://cdn/a.mp3", "duration": 1, "members": 42},
			field:  "members",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.record)
			require.Error(t, err)

			var derr *DecodeError
			require.True(t, errors.As(err, &derr))
			assert.Equal(t, tt.field, derr.Field)
			assert.Equal(t, -1, derr.Index)
			assert.Equal(t, tt.missing, errors.Is(err, ErrMissingField))
		})
	}
}

func TestDecodeList_ReportsIndex(t *testing.T) {
	records := []map[string]any{
		{"id": "a", "url": "https://cdn/a.mp3", "duration": 1},
		{"id": "b", "duration": 2},
	}

	_, err := DecodeList(records)
	require.Error(t, err)

	var derr *DecodeError
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, 1, derr.Index)
	assert.Equal(t, "url", derr.Field)
	assert.Contains(t, err.Error(), "episode record 1")
}
