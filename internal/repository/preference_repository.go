package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"movie-discovery-recommender/internal/models"
)

type PreferenceRepository struct {
	db *sql.DB
}

func NewPreferenceRepository(db *sql.DB) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

const preferenceColumns = `user_id, genre_ids, avoid_genre_ids, min_rating, max_runtime,
	preferred_languages, include_foreign_films, created_at, updated_at`

// GetPreference returns a user's preferences or ErrNotFound.
func (r *PreferenceRepository) GetPreference(ctx context.Context, userID int) (*models.UserPreference, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+preferenceColumns+` FROM user_preferences WHERE user_id = $1`, userID)
	pref, err := scanPreference(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get preference: %w", err)
	}
	return pref, nil
}

// UpsertPreference creates or replaces a user's preferences.
func (r *PreferenceRepository) UpsertPreference(ctx context.Context, p models.UserPreference) (*models.UserPreference, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO user_preferences (
			user_id, genre_ids, avoid_genre_ids, min_rating, max_runtime,
			preferred_languages, include_foreign_films, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			genre_ids = EXCLUDED.genre_ids,
			avoid_genre_ids = EXCLUDED.avoid_genre_ids,
			min_rating = EXCLUDED.min_rating,
			max_runtime = EXCLUDED.max_runtime,
			preferred_languages = EXCLUDED.preferred_languages,
			include_foreign_films = EXCLUDED.include_foreign_films,
			updated_at = NOW()
		RETURNING `+preferenceColumns,
		p.UserID, pq.Array(p.GenreIDs), pq.Array(p.AvoidGenreIDs), p.MinRating, p.MaxRuntime,
		pq.Array(p.PreferredLanguages), p.IncludeForeignFilms,
	)
	saved, err := scanPreference(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert preference: %w", err)
	}
	return saved, nil
}

func scanPreference(row *sql.Row) (*models.UserPreference, error) {
	var p models.UserPreference
	var genres, avoid pq.Int64Array
	var langs pq.StringArray
	var minRating sql.NullFloat64
	var maxRuntime sql.NullInt64
	err := row.Scan(
		&p.UserID, &genres, &avoid, &minRating, &maxRuntime,
		&langs, &p.IncludeForeignFilms, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.GenreIDs = intsFrom(genres)
	p.AvoidGenreIDs = intsFrom(avoid)
	p.PreferredLanguages = []string(langs)
	if p.PreferredLanguages == nil {
		p.PreferredLanguages = []string{}
	}
	if minRating.Valid {
		p.MinRating = &minRating.Float64
	}
	if maxRuntime.Valid {
		v := int(maxRuntime.Int64)
		p.MaxRuntime = &v
	}
	return &p, nil
}

func intsFrom(a pq.Int64Array) []int {
	out := make([]int, len(a))
	for i, v := range a {
		out[i] = int(v)
	}
	return out
}
