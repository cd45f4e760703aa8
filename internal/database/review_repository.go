package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cinestack/models"
)

// ReviewRepository provides access to the reviews table.
type ReviewRepository struct {
	db DBTX
}

// NewReviewRepository creates a review repository bound to db.
func NewReviewRepository(db DBTX) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// UpsertReview creates or replaces the user's review for a movie and
// returns the stored row.
func (r *ReviewRepository) UpsertReview(ctx context.Context, review *models.Review) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reviews (user_id, movie_id, rating, review_text, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, movie_id)
		DO UPDATE SET rating = excluded.rating, review_text = excluded.review_text,
			updated_at = excluded.updated_at`,
		review.UserID, review.MovieID, review.Rating, review.ReviewText, now, now)
	if err != nil {
		return fmt.Errorf("upsert review: %w", err)
	}

	stored, err := r.GetReview(ctx, review.UserID, review.MovieID)
	if err != nil {
		return err
	}
	*review = *stored
	return nil
}

// GetReview returns the user's review of a movie, or nil if absent.
func (r *ReviewRepository) GetReview(ctx context.Context, userID string, movieID int64) (*models.Review, error) {
	var review models.Review
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, movie_id, rating, review_text, created_at, updated_at
		FROM reviews WHERE user_id = ? AND movie_id = ?`, userID, movieID).Scan(
		&review.ID, &review.UserID, &review.MovieID, &review.Rating,
		&review.ReviewText, &review.CreatedAt, &review.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query review: %w", err)
	}
	return &review, nil
}

// ListReviewsByUser returns all of a user's reviews, newest first.
func (r *ReviewRepository) ListReviewsByUser(ctx context.Context, userID string) ([]models.Review, error) {
	return r.listReviews(ctx, `
		SELECT id, user_id, movie_id, rating, review_text, created_at, updated_at
		FROM reviews WHERE user_id = ? ORDER BY created_at DESC`, userID)
}

// ListReviewsByMovie returns all reviews of a movie, newest first.
func (r *ReviewRepository) ListReviewsByMovie(ctx context.Context, movieID int64) ([]models.Review, error) {
	return r.listReviews(ctx, `
		SELECT id, user_id, movie_id, rating, review_text, created_at, updated_at
		FROM reviews WHERE movie_id = ? ORDER BY created_at DESC`, movieID)
}

// DeleteReview removes the user's review of a movie. Returns true if a row
// was deleted.
func (r *ReviewRepository) DeleteReview(ctx context.Context, userID string, movieID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM reviews WHERE user_id = ? AND movie_id = ?`, userID, movieID)
	if err != nil {
		return false, fmt.Errorf("delete review: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *ReviewRepository) listReviews(ctx context.Context, query string, arg any) ([]models.Review, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []models.Review
	for rows.Next() {
		var review models.Review
		if err := rows.Scan(
			&review.ID, &review.UserID, &review.MovieID, &review.Rating,
			&review.ReviewText, &review.CreatedAt, &review.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, review)
	}
	return reviews, rows.Err()
}
