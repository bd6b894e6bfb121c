package repository

import (
	"context"
	"database/sql"
	"fmt"

	"movie-discovery-recommender/internal/models"
)

type SimilarityRepository struct {
	db *sql.DB
}

func NewSimilarityRepository(db *sql.DB) *SimilarityRepository {
	return &SimilarityRepository{db: db}
}

// SaveUserSimilarities upserts pairwise user similarities in one transaction.
func (r *SimilarityRepository) SaveUserSimilarities(ctx context.Context, sims []models.UserSimilarity) error {
	if len(sims) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO user_similarity (user_id, other_user_id, similarity_score, last_updated)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, other_user_id) DO UPDATE SET
			similarity_score = EXCLUDED.similarity_score,
			last_updated = NOW()
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare user similarity upsert: %w", err)
	}
	defer stmt.Close()

	for _, s := range sims {
		if _, err := stmt.ExecContext(ctx, s.UserID, s.OtherUserID, s.Score); err != nil {
			return fmt.Errorf("failed to upsert user similarity: %w", err)
		}
	}
	return tx.Commit()
}

// SaveMovieSimilarities upserts pairwise movie similarities in one transaction.
func (r *SimilarityRepository) SaveMovieSimilarities(ctx context.Context, sims []models.MovieSimilarity) error {
	if len(sims) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO movie_similarity (movie_id, other_movie_id, similarity_score, similarity_type, last_updated)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (movie_id, other_movie_id, similarity_type) DO UPDATE SET
			similarity_score = EXCLUDED.similarity_score,
			last_updated = NOW()
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare movie similarity upsert: %w", err)
	}
	defer stmt.Close()

	for _, s := range sims {
		if _, err := stmt.ExecContext(ctx, s.MovieID, s.OtherMovieID, s.Score, s.Kind); err != nil {
			return fmt.Errorf("failed to upsert movie similarity: %w", err)
		}
	}
	return tx.Commit()
}

// TopSimilarUsers returns the most similar stored users, best first.
func (r *SimilarityRepository) TopSimilarUsers(ctx context.Context, userID, limit int) ([]models.UserSimilarity, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, other_user_id, similarity_score, last_updated
		FROM user_similarity
		WHERE user_id = $1
		ORDER BY similarity_score DESC, other_user_id
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query user similarity: %w", err)
	}
	defer rows.Close()

	var sims []models.UserSimilarity
	for rows.Next() {
		var s models.UserSimilarity
		if err := rows.Scan(&s.UserID, &s.OtherUserID, &s.Score, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user similarity: %w", err)
		}
		sims = append(sims, s)
	}
	return sims, rows.Err()
}

// TopSimilarMovies returns the most similar stored movies of any kind, best first.
func (r *SimilarityRepository) TopSimilarMovies(ctx context.Context, movieID, limit int) ([]models.MovieSimilarity, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT movie_id, other_movie_id, similarity_score, similarity_type, last_updated
		FROM movie_similarity
		WHERE movie_id = $1
		ORDER BY similarity_score DESC, other_movie_id
		LIMIT $2
	`, movieID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query movie similarity: %w", err)
	}
	defer rows.Close()

	var sims []models.MovieSimilarity
	for rows.Next() {
		var s models.MovieSimilarity
		if err := rows.Scan(&s.MovieID, &s.OtherMovieID, &s.Score, &s.Kind, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan movie similarity: %w", err)
		}
		sims = append(sims, s)
	}
	return sims, rows.Err()
}
