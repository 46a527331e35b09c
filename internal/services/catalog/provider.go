// Package catalog describes where track metadata and playlists come from.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/mcoot/yeargame/internal/model"
)

// Provider looks up track metadata and playlist contents
type Provider interface {
	TrackMetadata(ctx context.Context, uri string) (model.TrackMetadata, error)
	PlaylistTracks(ctx context.Context, ref string) ([]string, error)
}

// Static is an in-memory Provider
type Static struct {
	mu        sync.RWMutex
	tracks    map[string]model.TrackMetadata
	playlists map[string][]string
}

// Ensure Static implements Provider
var _ Provider = (*Static)(nil)

// NewStatic creates an empty Static provider
func NewStatic() *Static {
	return &Static{
		tracks:    make(map[string]model.TrackMetadata),
		playlists: make(map[string][]string),
	}
}

// AddTrack registers metadata for a track URI
func (c *Static) AddTrack(uri string, meta model.TrackMetadata) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tracks[uri] = meta
}

// AddPlaylist registers a playlist as an ordered list of track URIs
func (c *Static) AddPlaylist(ref string, uris ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playlists[ref] = append([]string(nil), uris...)
}

// TrackMetadata implements Provider
func (c *Static) TrackMetadata(ctx context.Context, uri string) (model.TrackMetadata, error) {
	if err := ctx.Err(); err != nil {
		return model.TrackMetadata{}, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	meta, ok := c.tracks[uri]
	if !ok {
		return model.TrackMetadata{}, fmt.Errorf("%w: %s", model.ErrTrackNotFound, uri)
	}
	return meta, nil
}

// PlaylistTracks implements Provider
func (c *Static) PlaylistTracks(ctx context.Context, ref string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	uris, ok := c.playlists[ref]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrPlaylistNotFound, ref)
	}
	return append([]string(nil), uris...), nil
}

type fileTrack struct {
	URI      string `json:"uri"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Album    string `json:"album"`
	Year     int    `json:"year"`
	CoverURL string `json:"cover_url"`
}

type catalogFile struct {
	Tracks    []fileTrack         `json:"tracks"`
	Playlists map[string][]string `json:"playlists"`
}

// LoadFile reads a JSON catalog of tracks and playlists into a new Static provider
func LoadFile(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f catalogFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}

	c := NewStatic()
	for _, t := range f.Tracks {
		if t.URI == "" {
			return nil, fmt.Errorf("parse catalog %s: track without uri", path)
		}
		c.AddTrack(t.URI, model.TrackMetadata{
			Title:    t.Title,
			Artist:   t.Artist,
			Album:    t.Album,
			Year:     t.Year,
			CoverURL: t.CoverURL,
		})
	}
	for ref, uris := range f.Playlists {
		c.AddPlaylist(ref, uris...)
	}
	return c, nil
}
