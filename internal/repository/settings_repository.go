package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"movie-discovery-recommender/internal/models"
)

type SettingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

const settingsColumns = `user_id, prefer_content_based, prefer_collaborative, prefer_trending,
	genre_diversity, release_year_range, min_vote_average, min_vote_count,
	max_recommendations, cache_duration_hours, created_at, updated_at`

// GetSettings returns a user's settings or ErrNotFound.
func (r *SettingsRepository) GetSettings(ctx context.Context, userID int) (*models.RecommendationSettings, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+settingsColumns+` FROM recommendation_settings WHERE user_id = $1`, userID)
	s, err := scanSettings(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	return s, nil
}

// UpsertSettings creates or replaces a user's settings.
func (r *SettingsRepository) UpsertSettings(ctx context.Context, s models.RecommendationSettings) (*models.RecommendationSettings, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO recommendation_settings (
			user_id, prefer_content_based, prefer_collaborative, prefer_trending,
			genre_diversity, release_year_range, min_vote_average, min_vote_count,
			max_recommendations, cache_duration_hours, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			prefer_content_based = EXCLUDED.prefer_content_based,
			prefer_collaborative = EXCLUDED.prefer_collaborative,
			prefer_trending = EXCLUDED.prefer_trending,
			genre_diversity = EXCLUDED.genre_diversity,
			release_year_range = EXCLUDED.release_year_range,
			min_vote_average = EXCLUDED.min_vote_average,
			min_vote_count = EXCLUDED.min_vote_count,
			max_recommendations = EXCLUDED.max_recommendations,
			cache_duration_hours = EXCLUDED.cache_duration_hours,
			updated_at = NOW()
		RETURNING `+settingsColumns,
		s.UserID, s.PreferContentBased, s.PreferCollaborative, s.PreferTrending,
		s.GenreDiversity, s.ReleaseYearRange, s.MinVoteAverage, s.MinVoteCount,
		s.MaxRecommendations, s.CacheDurationHours,
	)
	saved, err := scanSettings(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert settings: %w", err)
	}
	return saved, nil
}

func scanSettings(row *sql.Row) (*models.RecommendationSettings, error) {
	var s models.RecommendationSettings
	err := row.Scan(
		&s.UserID, &s.PreferContentBased, &s.PreferCollaborative, &s.PreferTrending,
		&s.GenreDiversity, &s.ReleaseYearRange, &s.MinVoteAverage, &s.MinVoteCount,
		&s.MaxRecommendations, &s.CacheDurationHours, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
