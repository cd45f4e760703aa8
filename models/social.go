package models

import "time"

// Favorite marks a movie as one of a user's favorites. Unique per
// (userId, movieId).
type Favorite struct {
	ID      int64     `json:"id"`
	UserID  string    `json:"userId"`
	MovieID int64     `json:"movieId"`
	AddedAt time.Time `json:"addedAt"`
	Movie   *Movie    `json:"movie,omitempty"`
}

// Review is a user's star rating plus optional text for a movie. Unique per
// (userId, movieId).
type Review struct {
	ID         int64     `json:"id"`
	UserID     string    `json:"userId"`
	MovieID    int64     `json:"movieId"`
	Rating     int       `json:"rating"`
	ReviewText string    `json:"reviewText"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
