package models

import "time"

// WatchStatus is the per-(user, movie) watch state. The same value is
// denormalized onto every playlist membership referencing the movie.
type WatchStatus string

const (
	StatusToWatch      WatchStatus = "to_watch"
	StatusWatching     WatchStatus = "watching"
	StatusWatched      WatchStatus = "watched"
	StatusDidNotFinish WatchStatus = "did_not_finish"
)

// Valid reports whether the status is one of the four supported values.
func (s WatchStatus) Valid() bool {
	switch s {
	case StatusToWatch, StatusWatching, StatusWatched, StatusDidNotFinish:
		return true
	}
	return false
}

// StatusPlaylistSpec describes one of the four auto-managed status playlists.
type StatusPlaylistSpec struct {
	Status      WatchStatus
	Title       string
	Description string
}

// StatusPlaylists is the fixed enum-to-name table for the auto-managed
// playlists. Renaming a bucket means editing this table and nothing else.
var StatusPlaylists = []StatusPlaylistSpec{
	{StatusWatched, "Watched", "Movies and series I have watched"},
	{StatusWatching, "Watching", "Movies and series I am currently watching"},
	{StatusToWatch, "To Watch", "Movies and series I want to watch"},
	{StatusDidNotFinish, "Did Not Finish", "Movies and series I did not finish"},
}

// StatusPlaylistFor returns the playlist spec for a status value.
func StatusPlaylistFor(status WatchStatus) (StatusPlaylistSpec, bool) {
	for _, spec := range StatusPlaylists {
		if spec.Status == status {
			return spec, true
		}
	}
	return StatusPlaylistSpec{}, false
}

// StatusForPlaylistTitle returns the status value one of the four fixed
// titles maps to.
func StatusForPlaylistTitle(title string) (WatchStatus, bool) {
	for _, spec := range StatusPlaylists {
		if spec.Title == title {
			return spec.Status, true
		}
	}
	return "", false
}

// StatusPlaylistTitles returns the four fixed titles.
func StatusPlaylistTitles() []string {
	titles := make([]string, 0, len(StatusPlaylists))
	for _, spec := range StatusPlaylists {
		titles = append(titles, spec.Title)
	}
	return titles
}

// Playlist is a user-owned collection of catalog titles. Status playlists
// are created by the system under the four fixed titles; everything else is
// a custom playlist with unconstrained membership.
type Playlist struct {
	ID               int64     `json:"id"`
	UserID           string    `json:"userId"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	IsStatusPlaylist bool      `json:"isStatusPlaylist"`
	MovieCount       int       `json:"movieCount"`
	WatchedCount     int       `json:"watchedCount"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// PlaylistItem links a movie into a playlist. (playlistId, movieId) is
// unique; the status field carries the denormalized per-(user, movie) value.
type PlaylistItem struct {
	ID         int64       `json:"id"`
	PlaylistID int64       `json:"playlistId"`
	MovieID    int64       `json:"movieId"`
	Status     WatchStatus `json:"status"`
	UserRating *int        `json:"userRating,omitempty"`
	AddedAt    time.Time   `json:"addedAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
	Movie      *Movie      `json:"movie,omitempty"`
}
