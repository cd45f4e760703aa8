package models

import "time"

// EpisodeStatus is the watch state of a single episode. It is independent
// of the playlist status machinery.
type EpisodeStatus string

const (
	EpisodeNotStarted EpisodeStatus = "not_started"
	EpisodeInProgress EpisodeStatus = "in_progress"
	EpisodeCompleted  EpisodeStatus = "completed"
)

// Valid reports whether the episode status is a supported value.
func (s EpisodeStatus) Valid() bool {
	switch s {
	case EpisodeNotStarted, EpisodeInProgress, EpisodeCompleted:
		return true
	}
	return false
}

// EpisodeProgress records one user's watch state for one episode of a
// series. (userId, seriesId, season, episode) is unique.
type EpisodeProgress struct {
	ID        int64         `json:"id"`
	UserID    string        `json:"userId"`
	SeriesID  int64         `json:"seriesId"`
	Season    int           `json:"season"`
	Episode   int           `json:"episode"`
	Status    EpisodeStatus `json:"status"`
	Notes     string        `json:"notes"`
	Rating    *int          `json:"rating,omitempty"`
	UpdatedAt time.Time     `json:"updatedAt"`
}
