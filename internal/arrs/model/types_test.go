package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAppType(t *testing.T) {
	got, err := ParseAppType(" Radarr ")
	require.NoError(t, err)
	assert.Equal(t, Radarr, got)

	_, err = ParseAppType("swaparr")
	assert.Error(t, err)

	_, err = ParseAppType("plex")
	assert.Error(t, err)
}

func TestAppType_Fields(t *testing.T) {
	assert.Equal(t, "movieId", Radarr.IDField())
	assert.Equal(t, "seriesId", Sonarr.IDField())
	assert.Equal(t, "artistId", Lidarr.IDField())
	assert.Equal(t, "authorId", Readarr.IDField())
	assert.Equal(t, "movieId", Eros.IDField())

	assert.Equal(t, "v1", Lidarr.APIVersion())
	assert.Equal(t, "v3", Whisparr.APIVersion())

	assert.True(t, Swaparr.IsHistoryType())
	assert.False(t, AppType("all").IsHistoryType())
	assert.True(t, Eros.MovieLike())
	assert.False(t, Sonarr.MovieLike())
}

func TestInstance(t *testing.T) {
	disabled := false
	inst := Instance{URL: "http://localhost:7878", APIKey: "abc"}

	assert.Equal(t, DefaultInstanceName, inst.DisplayName())
	assert.True(t, inst.IsEnabled())
	assert.True(t, inst.HasCredentials())

	inst.Enabled = &disabled
	inst.APIKey = " "
	assert.False(t, inst.IsEnabled())
	assert.False(t, inst.HasCredentials())
}
