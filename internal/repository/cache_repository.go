package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/lib/pq"

	"movie-discovery-recommender/internal/models"
)

type CacheRepository struct {
	db *sql.DB
}

func NewCacheRepository(db *sql.DB) *CacheRepository {
	return &CacheRepository{db: db}
}

// GetEntry returns the stored entry for (user, strategy) regardless of
// expiry, or ErrNotFound. Callers decide liveness against their own clock.
func (r *CacheRepository) GetEntry(ctx context.Context, userID int, strategy string) (*models.RecommendationCacheEntry, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT user_id, strategy, movie_ids, scores, created_at, expires_at
		FROM recommendation_cache
		WHERE user_id = $1 AND strategy = $2
	`, userID, strategy)
	entry, err := scanCacheEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cache entry: %w", err)
	}
	return entry, nil
}

// PutEntry replaces the entry for (entry.UserID, entry.Strategy).
// Concurrent writers for the same key resolve last-writer-wins.
func (r *CacheRepository) PutEntry(ctx context.Context, entry models.RecommendationCacheEntry) error {
	scores, err := json.Marshal(entry.Scores)
	if err != nil {
		return fmt.Errorf("failed to encode cache scores: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO recommendation_cache (user_id, strategy, movie_ids, scores, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, strategy) DO UPDATE SET
			movie_ids = EXCLUDED.movie_ids,
			scores = EXCLUDED.scores,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at
	`, entry.UserID, entry.Strategy, pq.Array(entry.MovieIDs), scores, entry.CreatedAt, entry.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to upsert cache entry: %w", err)
	}
	return nil
}

// DeleteForUser removes every cache entry of a user and returns the count.
func (r *CacheRepository) DeleteForUser(ctx context.Context, userID int) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM recommendation_cache WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete cache entries: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// PurgeExpired removes entries whose expiry is at or before now.
func (r *CacheRepository) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM recommendation_cache WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to purge cache entries: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// ListForUser returns all of a user's entries, live or expired.
func (r *CacheRepository) ListForUser(ctx context.Context, userID int) ([]models.RecommendationCacheEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, strategy, movie_ids, scores, created_at, expires_at
		FROM recommendation_cache
		WHERE user_id = $1
		ORDER BY strategy
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cache entries: %w", err)
	}
	defer rows.Close()

	var entries []models.RecommendationCacheEntry
	for rows.Next() {
		entry, err := scanCacheEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cache entry: %w", err)
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCacheEntry(row rowScanner) (*models.RecommendationCacheEntry, error) {
	var entry models.RecommendationCacheEntry
	var ids pq.Int64Array
	var scores []byte
	if err := row.Scan(&entry.UserID, &entry.Strategy, &ids, &scores, &entry.CreatedAt, &entry.ExpiresAt); err != nil {
		return nil, err
	}
	entry.MovieIDs = make([]int, len(ids))
	for i, id := range ids {
		entry.MovieIDs[i] = int(id)
	}
	entry.Scores = make(map[int]float64, len(ids))
	if len(scores) > 0 {
		if err := json.Unmarshal(scores, &entry.Scores); err != nil {
			return nil, fmt.Errorf("failed to decode cache scores: %w", err)
		}
	}
	return &entry, nil
}
