package models

import "time"

// MediaType distinguishes movies from TV series in the catalog.
type MediaType string

const (
	MediaTypeMovie MediaType = "movie"
	MediaTypeTV    MediaType = "tv"
)

// NormalizeMediaType maps arbitrary input to a supported media type.
// Anything that is not "tv" is treated as a movie.
func NormalizeMediaType(raw string) MediaType {
	if MediaType(raw) == MediaTypeTV {
		return MediaTypeTV
	}
	return MediaTypeMovie
}

// Valid reports whether the media type is one of the supported values.
func (m MediaType) Valid() bool {
	return m == MediaTypeMovie || m == MediaTypeTV
}

// Movie is a locally-owned catalog title mirroring a TMDB entry or a
// manually created record. At most one row exists per (tmdbId, mediaType)
// pair when tmdbId is set; manual titles carry a nil tmdbId.
type Movie struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	PosterURL   *string   `json:"posterUrl,omitempty"`
	Description string    `json:"description"`
	ReleaseYear *int      `json:"releaseYear,omitempty"`
	MediaType   MediaType `json:"mediaType"`
	TMDBID      *int64    `json:"tmdbId,omitempty"`
	YouTubeID   *string   `json:"youtubeId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
