package model

// Song is one entry in a session's song pool
type Song struct {
	URI      string `json:"uri"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Album    string `json:"album"`
	CoverURL string `json:"cover_url"`
	Year     int    `json:"year"`
}

// PublicSong is the projection of a Song that clients may see while a round is running.
// It has no year field so the answer cannot leak through serialization.
type PublicSong struct {
	URI      string `json:"uri"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Album    string `json:"album"`
	CoverURL string `json:"cover_url"`
}

// Public returns the year-free projection of the song
func (s Song) Public() PublicSong {
	return PublicSong{
		URI:      s.URI,
		Title:    s.Title,
		Artist:   s.Artist,
		Album:    s.Album,
		CoverURL: s.CoverURL,
	}
}

// TrackMetadata is what a metadata provider knows about a track
type TrackMetadata struct {
	Title    string
	Artist   string
	Album    string
	Year     int
	CoverURL string
}

// Enrich fills empty song fields from metadata. The pool's year wins when set.
func (s Song) Enrich(meta TrackMetadata) Song {
	if s.Title == "" {
		s.Title = meta.Title
	}
	if s.Artist == "" {
		s.Artist = meta.Artist
	}
	if s.Album == "" {
		s.Album = meta.Album
	}
	if s.CoverURL == "" {
		s.CoverURL = meta.CoverURL
	}
	if s.Year == 0 {
		s.Year = meta.Year
	}
	return s
}

// ValidateSongPool checks a pool and returns it without duplicate URIs
func ValidateSongPool(pool []Song, cfg GameConfig) ([]Song, error) {
	if len(pool) == 0 {
		return nil, NewValidationError("songs", "at least one song is required")
	}
	seen := make(map[string]bool, len(pool))
	result := make([]Song, 0, len(pool))
	for _, song := range pool {
		if song.URI == "" {
			return nil, NewValidationError("songs", "every song needs a uri")
		}
		if song.Year < cfg.YearMin || song.Year > cfg.YearMax {
			return nil, NewValidationError("songs", "song "+song.URI+" has a year outside the configured range")
		}
		if seen[song.URI] {
			continue
		}
		seen[song.URI] = true
		result = append(result, song)
	}
	return result, nil
}
