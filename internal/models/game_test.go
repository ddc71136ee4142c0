package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGameValidate(t *testing.T) {
	tests := []struct {
		name     string
		game     Game
		expected []string
	}{
		{
			name: "valid game",
			game: Game{ID: "a", URL: "https://store.example/p/a", Title: "Alpha"},
		},
		{
			name:     "missing everything",
			game:     Game{},
			expected: []string{"ID is required", "URL is required", "Title is required"},
		},
		{
			name:     "missing title only",
			game:     Game{ID: "a", URL: "https://store.example/p/a"},
			expected: []string{"Title is required"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := tt.game.Validate()
			if tt.expected == nil {
				assert.Empty(t, errs)
			} else {
				assert.Equal(t, tt.expected, errs)
			}
		})
	}
}

func TestDateJSON(t *testing.T) {
	d := NewDate(time.Date(2020, time.May, 14, 0, 0, 0, 0, time.UTC))

	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2020-05-14"`, string(data))

	var decoded Date
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "2020-05-14", decoded.String())
}

func TestGameJSONOmitsAbsentSections(t *testing.T) {
	game := Game{
		ID:        "a",
		URL:       "https://store.example/p/a",
		Title:     "Alpha",
		Genres:    []string{},
		ImageURLs: []string{},
	}

	data, err := json.Marshal(&game)
	require.NoError(t, err)

	assert.NotContains(t, string(data), "developer")
	assert.NotContains(t, string(data), "release_date")
	assert.NotContains(t, string(data), "critic_recommend_percent")
	assert.Contains(t, string(data), `"genres":[]`)
	assert.Contains(t, string(data), `"image_urls":[]`)
}
