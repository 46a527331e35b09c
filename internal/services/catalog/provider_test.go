package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/yeargame/internal/model"
)

func TestStaticTrackMetadata(t *testing.T) {
	c := NewStatic()
	c.AddTrack("track:1", model.TrackMetadata{Title: "Heroes", Year: 1977})

	meta, err := c.TrackMetadata(context.Background(), "track:1")
	require.NoError(t, err)
	assert.Equal(t, "Heroes", meta.Title)

	_, err = c.TrackMetadata(context.Background(), "track:2")
	assert.ErrorIs(t, err, model.ErrTrackNotFound)
}

func TestStaticPlaylistTracksReturnsCopy(t *testing.T) {
	c := NewStatic()
	c.AddPlaylist("mix", "track:1", "track:2")

	uris, err := c.PlaylistTracks(context.Background(), "mix")
	require.NoError(t, err)
	assert.Equal(t, []string{"track:1", "track:2"}, uris)

	uris[0] = "changed"
	again, _ := c.PlaylistTracks(context.Background(), "mix")
	assert.Equal(t, "track:1", again[0])

	_, err = c.PlaylistTracks(context.Background(), "missing")
	assert.ErrorIs(t, err, model.ErrPlaylistNotFound)
}

func TestStaticHonoursCancelledContext(t *testing.T) {
	c := NewStatic()
	c.AddTrack("track:1", model.TrackMetadata{Title: "Heroes"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.TrackMetadata(ctx, "track:1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	content := `{
		"tracks": [
			{"uri": "track:1", "title": "Heroes", "artist": "David Bowie", "year": 1977},
			{"uri": "track:2", "title": "Hounds of Love", "artist": "Kate Bush", "year": 1985}
		],
		"playlists": {"eighties": ["track:2"]}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	c, err := LoadFile(path)
	require.NoError(t, err)

	meta, err := c.TrackMetadata(context.Background(), "track:2")
	require.NoError(t, err)
	assert.Equal(t, "Kate Bush", meta.Artist)
	assert.Equal(t, 1985, meta.Year)

	uris, err := c.PlaylistTracks(context.Background(), "eighties")
	require.NoError(t, err)
	assert.Equal(t, []string{"track:2"}, uris)
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"tracks": [{"title": "no uri"}]}`), 0o600))
	_, err = LoadFile(path)
	assert.Error(t, err)
}
