package repository

import (
	"context"
	"database/sql"
	"fmt"

	"movie-discovery-recommender/internal/models"
)

type FeedbackRepository struct {
	db *sql.DB
}

func NewFeedbackRepository(db *sql.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

// UpsertFeedback records feedback for (user, movie, strategy). created is
// true when a new row was inserted rather than an existing one updated.
func (r *FeedbackRepository) UpsertFeedback(ctx context.Context, fb models.RecommendationFeedback) (*models.RecommendationFeedback, bool, error) {
	var saved models.RecommendationFeedback
	var created bool
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO recommendation_feedback (user_id, movie_id, strategy, feedback)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, movie_id, strategy) DO UPDATE SET
			feedback = EXCLUDED.feedback,
			updated_at = NOW()
		RETURNING id, user_id, movie_id, strategy, feedback, created_at, updated_at, (xmax = 0)
	`, fb.UserID, fb.MovieID, fb.Strategy, fb.Feedback).Scan(
		&saved.ID, &saved.UserID, &saved.MovieID, &saved.Strategy, &saved.Feedback,
		&saved.CreatedAt, &saved.UpdatedAt, &created,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to upsert feedback: %w", err)
	}
	return &saved, created, nil
}

// CountFeedback returns the user's feedback counts keyed by kind.
func (r *FeedbackRepository) CountFeedback(ctx context.Context, userID int) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT feedback, COUNT(*) FROM recommendation_feedback
		WHERE user_id = $1
		GROUP BY feedback
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count feedback: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("failed to scan feedback count: %w", err)
		}
		counts[kind] = n
	}
	return counts, rows.Err()
}
